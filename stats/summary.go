package stats

import (
	"bytes"
	"fmt"
)

// SummaryNode is the value type stored in the summary Tree: either the
// single iosystem-wide node or one per-file node beneath it.
type SummaryNode struct {
	Kind string // "iosystem" or "file"
	Name string
	Reduced
}

// BuildSummary assembles the two-level tree spec.md's final-summary
// step describes: one iosystem node (its own reduced totals) with one
// child per closed file (that file's reduced totals), in Open order.
func (r *Registry) BuildSummary(iosysName string) *Tree[SummaryNode] {
	t := NewTree[SummaryNode]()
	ioNode := t.Add(SummaryNode{Kind: "iosystem", Name: iosysName, Reduced: r.Iosystem()})

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ncid := range r.order {
		e := r.files[ncid]
		if e.closed == nil {
			continue
		}
		t.AddChild(SummaryNode{Kind: "file", Name: e.name, Reduced: *e.closed}, ioNode)
	}
	return t
}

// textVisitor renders each node as one indented line; file nodes nest
// one level under their iosystem.
type textVisitor struct{ buf bytes.Buffer }

func (v *textVisitor) EnterNode(val SummaryNode, id int, _ SummaryNode, _ int) {
	indent := ""
	if val.Kind == "file" {
		indent = "  "
	}
	fmt.Fprintf(&v.buf, "%s%s %q: read=%d bytes/%s write=%d bytes/%s\n",
		indent, val.Kind, val.Name,
		val.Sum.ReadBytes, val.Sum.ReadTime,
		val.Sum.WriteBytes, val.Sum.WriteTime)
}
func (v *textVisitor) OnNode(SummaryNode, int, SummaryNode, int)   {}
func (v *textVisitor) ExitNode(SummaryNode, int, SummaryNode, int) {}

// WriteText renders t as the human-readable summary form.
func WriteText(t *Tree[SummaryNode]) string {
	v := &textVisitor{}
	t.DFS(v)
	return v.buf.String()
}

// jsonVisitor emits one flat JSON object per node (id/parent/kind/name
// plus its three Counters), joined into an array by the comma EnterNode
// writes before every node after the first — the "tree builder plus a visitor that
// emits each node with appropriate delimiters" shape, without needing a
// full nested-object writer since the summary tree is only ever two
// levels deep.
type jsonVisitor struct {
	buf   bytes.Buffer
	first bool
}

func newJSONVisitor() *jsonVisitor { return &jsonVisitor{first: true} }

func (v *jsonVisitor) EnterNode(val SummaryNode, id int, _ SummaryNode, parentID int) {
	if !v.first {
		v.buf.WriteByte(',')
	}
	v.first = false
	fmt.Fprintf(&v.buf,
		`{"id":%d,"parent":%d,"kind":%q,"name":%q,`+
			`"read_bytes":{"min":%d,"max":%d,"sum":%d},`+
			`"write_bytes":{"min":%d,"max":%d,"sum":%d},`+
			`"read_ns":{"min":%d,"max":%d,"sum":%d},`+
			`"write_ns":{"min":%d,"max":%d,"sum":%d}}`,
		id, parentID, val.Kind, val.Name,
		val.Min.ReadBytes, val.Max.ReadBytes, val.Sum.ReadBytes,
		val.Min.WriteBytes, val.Max.WriteBytes, val.Sum.WriteBytes,
		val.Min.ReadTime.Nanoseconds(), val.Max.ReadTime.Nanoseconds(), val.Sum.ReadTime.Nanoseconds(),
		val.Min.WriteTime.Nanoseconds(), val.Max.WriteTime.Nanoseconds(), val.Sum.WriteTime.Nanoseconds())
}
func (v *jsonVisitor) OnNode(SummaryNode, int, SummaryNode, int)   {}
func (v *jsonVisitor) ExitNode(SummaryNode, int, SummaryNode, int) {}

// WriteJSON renders t as a JSON array of node objects.
func WriteJSON(t *Tree[SummaryNode]) string {
	v := newJSONVisitor()
	t.DFS(v)
	return "[" + v.buf.String() + "]"
}

package backend

import (
	"sync"

	"github.com/parallelio/pario/errs"
	"github.com/parallelio/pario/iotype"
)

// selection is one write's (start,count) record, kept in call order.
type selection struct {
	start []int64
	count []int64
	data  []byte
}

type logVar struct {
	name     string
	typ      iotype.Type
	dimids   []int
	atts     map[string][]byte
	writes   []selection
	isScalar bool
}

// LogStructured is the append-only write-ahead backend: variables are
// not declared up front by def_var in the usual sense, they come into
// existence lazily on first write, and every write is appended rather
// than overlaid in place. Per-variable shape metadata that a real
// self-describing format would store inline is instead recorded as
// side-channel attributes under the "__pio__" namespace instead.
type LogStructured struct {
	mu       sync.Mutex
	dimNames []string
	dimLens  []int64
	vars     []logVar
	varIndex map[string]int
	atts     map[string][]byte
}

func NewLogStructured() *LogStructured {
	return &LogStructured{varIndex: make(map[string]int), atts: make(map[string][]byte)}
}

func (b *LogStructured) Kind() Kind { return KindLogStructured }

func (b *LogStructured) DefDim(name string, length int64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := len(b.dimNames)
	b.dimNames = append(b.dimNames, name)
	b.dimLens = append(b.dimLens, length)
	return id, nil
}

// DefVar pre-registers shape metadata but performs no on-disk allocation;
// repeat calls for the same name are idempotent (see ensureVarLocked).
func (b *LogStructured) DefVar(name string, ty iotype.Type, dimids []int) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ensureVarLocked(name, ty, dimids)
}

func (b *LogStructured) ensureVarLocked(name string, ty iotype.Type, dimids []int) (int, error) {
	if id, ok := b.varIndex[name]; ok {
		return id, nil
	}
	id := len(b.vars)
	b.vars = append(b.vars, logVar{
		name:     name,
		typ:      ty,
		dimids:   append([]int(nil), dimids...),
		atts:     make(map[string][]byte),
		isScalar: len(dimids) == 0,
	})
	b.varIndex[name] = id
	b.recordShapeAttsLocked(id)
	return id, nil
}

// recordShapeAttsLocked writes the side-channel "__pio__" attributes,
// since the log-structured format has no native dimension/type header
// of its own to carry that information.
func (b *LogStructured) recordShapeAttsLocked(varid int) {
	v := &b.vars[varid]
	v.atts["__pio__/ndims"] = encodeI32(int32(len(v.dimids)))
	v.atts["__pio__/nctype"] = encodeI32(int32(v.typ))
	dimbuf := make([]byte, 0, 4*len(v.dimids))
	for _, d := range v.dimids {
		dimbuf = append(dimbuf, encodeI32(int32(d))...)
	}
	v.atts["__pio__/dims"] = dimbuf
}

func encodeI32(v int32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func (b *LogStructured) InqVarid(name string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.varIndex[name]
	if !ok {
		return -1, errs.New(errs.EBADID, "inq_varid").WithFile(name)
	}
	return id, nil
}

func (b *LogStructured) InqVar(varid int) (VarInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, err := b.varAtLocked(varid)
	if err != nil {
		return VarInfo{}, err
	}
	return VarInfo{Name: v.name, Type: v.typ, DimIDs: append([]int(nil), v.dimids...)}, nil
}

func (b *LogStructured) varAtLocked(varid int) (*logVar, error) {
	if varid < 0 || varid >= len(b.vars) {
		return nil, errs.New(errs.EBADID, "varAt").WithVar(varid)
	}
	return &b.vars[varid], nil
}

// PutVars appends this call's selection to varid's write log (varid must
// already have been allocated by DefVar). Scalar writes and unlimited-
// time scalars carry an empty start/count and are handled the same way.
func (b *LogStructured) PutVars(varid int, start, count, stride []int64, memtype iotype.Type, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, err := b.varAtLocked(varid)
	if err != nil {
		return err
	}
	v.writes = append(v.writes, selection{
		start: append([]int64(nil), start...),
		count: append([]int64(nil), count...),
		data:  append([]byte(nil), data...),
	})
	return nil
}

// GetVars scans the write log in order and returns the most recent
// selection whose start matches, since later writes supersede earlier
// ones at the same offset in an append-only log read back by replay.
func (b *LogStructured) GetVars(varid int, start, count, stride []int64, memtype iotype.Type) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, err := b.varAtLocked(varid)
	if err != nil {
		return nil, err
	}
	for i := len(v.writes) - 1; i >= 0; i-- {
		if int64sEqual(v.writes[i].start, start) {
			return append([]byte(nil), v.writes[i].data...), nil
		}
	}
	return nil, errs.New(errs.EINVAL, "get_vars").WithVar(varid)
}

func int64sEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (b *LogStructured) PutAtt(varid int, name string, memtype iotype.Type, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf := append([]byte(nil), data...)
	if varid < 0 {
		b.atts[name] = buf
		return nil
	}
	v, err := b.varAtLocked(varid)
	if err != nil {
		return err
	}
	v.atts[name] = buf
	return nil
}

func (b *LogStructured) GetAtt(varid int, name string, memtype iotype.Type) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var m map[string][]byte
	if varid < 0 {
		m = b.atts
	} else {
		v, err := b.varAtLocked(varid)
		if err != nil {
			return nil, err
		}
		m = v.atts
	}
	buf, ok := m[name]
	if !ok {
		return nil, errs.New(errs.ENOTATT, "get_att").WithVar(varid)
	}
	return append([]byte(nil), buf...), nil
}

func (b *LogStructured) Redef() error          { return nil }
func (b *LogStructured) EndDef() error         { return nil }
func (b *LogStructured) Sync() error           { return nil }
func (b *LogStructured) Close() error          { return nil }
func (b *LogStructured) WaitAll(_ []int) error { return nil }

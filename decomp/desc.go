package decomp

import (
	"sort"

	"github.com/parallelio/pario/comm"
	"github.com/parallelio/pario/iosystem"
	"github.com/parallelio/pario/iotype"
)

// RearrKind selects the rearranger algorithm a decomposition binds to;
// it is the same enum an IOSystem picks its default from.
type RearrKind = iosystem.RearrKind

const (
	Box    = iosystem.RearrBox
	Subset = iosystem.RearrSubset
)

// Desc is the decomposition handle (the io_desc equivalent): how a
// globally logical array of known rank and per-dimension extent is
// distributed across compute ranks, plus the derived state a rearranger
// computes once the decomposition is bound to an IOSystem topology.
type Desc struct {
	IOID    int
	NDims   int
	DimLen  []int64
	PIOType iotype.Type
	MemSz   int
	DiskSz  int
	MPIType iotype.DType

	MapLen int
	Map    []int64 // 1-based global linear offsets; 0 means hole

	Rearranger RearrKind

	// Derived state, populated by Rearranger.Bind. Neither rearranger
	// sets RIndex, RFrom, PeerTypes or Remap; they stay nil.
	NRecvs      int
	NumAiotasks int
	SCount      []int // per io-task, elements this rank sends
	RCount      []int // io-side only: per compute-rank, elements received
	SIndex      []int // permutation placing Map elements into send-peer order
	RIndex      []int // io-side only: permutation placing received elements into region order
	RFrom       []int // io-side only: origin compute rank of each received element
	PeerTypes   []iotype.DType

	Regions    *RegionArena
	MaxRegions int
	LLen       int // io-side element count this rank (if an io rank) owns

	NeedsFill bool
	NeedsSort bool
	Remap     []int // sort permutation; not recorded, even when NeedsSort is set
}

// GlobalSize returns the product of DimLen: the total element count of
// the logical array.
func (d *Desc) GlobalSize() int64 {
	n := int64(1)
	for _, dl := range d.DimLen {
		n *= dl
	}
	return n
}

// Rearranger computes a decomposition's bound state against a topology
// and performs the compute<->io data exchange it describes.
type Rearranger interface {
	Kind() RearrKind
	// Bind computes NRecvs/SCount/Regions/LLen/etc for desc against topo,
	// from the perspective of the calling rank (topo.CompRank or
	// topo.IORank identifies which rank is running). Every rank bound to
	// the same decomposition must call Bind together.
	Bind(topo *comm.Topology, desc *Desc) error
	// Comp2IO rearranges compBuf (MapLen elements of MemSz bytes each, in
	// Map order) to the io side; returns nil on a compute-only rank.
	// Every rank must call this together.
	Comp2IO(topo *comm.Topology, desc *Desc, opts comm.FlowOpts, compBuf []byte) []byte
	// IO2Comp is the inverse: given this rank's io-side buffer (ioBuf,
	// meaningful only on io ranks), returns this rank's compute-side
	// buffer in Map order.
	IO2Comp(topo *comm.Topology, desc *Desc, opts comm.FlowOpts, ioBuf []byte) []byte
}

// sortedCopyNonZero returns the non-zero entries of xs sorted ascending,
// alongside a parallel slice of their original indices.
func sortedCopyNonZero(xs []int64) (vals []int64, idx []int) {
	for i, v := range xs {
		if v != 0 {
			vals = append(vals, v)
			idx = append(idx, i)
		}
	}
	order := make([]int, len(vals))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return vals[order[a]] < vals[order[b]] })
	sortedVals := make([]int64, len(vals))
	sortedIdx := make([]int, len(idx))
	for newPos, oldPos := range order {
		sortedVals[newPos] = vals[oldPos]
		sortedIdx[newPos] = idx[oldPos]
	}
	return sortedVals, sortedIdx
}

// isMonotonic reports whether xs (ignoring zero holes) is already sorted
// ascending.
func isMonotonic(xs []int64) bool {
	last := int64(-1)
	for _, v := range xs {
		if v == 0 {
			continue
		}
		if v < last {
			return false
		}
		last = v
	}
	return true
}

package decomp

import (
	"fmt"
	"sync"

	"github.com/parallelio/pario/comm"
	"github.com/parallelio/pario/errs"
	"github.com/parallelio/pario/iotype"
)

// bound pairs a Desc with the rearranger it was bound through, so
// FreeDecomp and the data path can dispatch without the caller threading
// the algorithm choice through every call.
type bound struct {
	desc  *Desc
	rearr Rearranger
	topo  *comm.Topology
}

// descs tracks one bound value per (ioid, calling rank): every rank of a
// decomposition's topology runs its own InitDecomp call and computes its
// own rank-local Desc (SCount/RIndex/etc are derived from that rank's
// perspective), so unlike IOSystem's single canonical registration, a
// decomposition's table entry holds one bound per rank sharing the id,
// not one shared value. Guarded directly by descsMu rather than
// registry.Table, whose Add/AddAt assume exactly one value per id.
var (
	descsMu  sync.Mutex
	descsSeq int
	descs    = map[int]map[int]*bound{} // ioid -> union rank -> bound
)

// NewRearranger constructs the concrete Rearranger for kind.
func NewRearranger(kind RearrKind) Rearranger {
	if kind == Subset {
		return SubsetRearranger{}
	}
	return BoxRearranger{}
}

// InitDecomp validates and builds a Desc for the calling rank, binds it
// to topo via the chosen rearranger, and registers it under a fresh
// ioid. Every rank sharing the same decomposition must call InitDecomp
// together (Bind is a collective operation). Validation failures roll
// back without registering anything.
func InitDecomp(topo *comm.Topology, piotype iotype.Type, ndims int, dimlen []int64, mp []int64, rearranger RearrKind) (int, *Desc, error) {
	if ndims < 1 {
		return 0, nil, errs.New(errs.EINVAL, "InitDecomp").WithFile("ndims")
	}
	for _, dl := range dimlen {
		if dl <= 0 {
			return 0, nil, errs.New(errs.EINVAL, "InitDecomp").WithFile("dimlen")
		}
	}
	gsize := int64(1)
	for _, dl := range dimlen {
		gsize *= dl
	}
	for _, off := range mp {
		if off < 0 || off > gsize {
			return 0, nil, errs.New(errs.EINVAL, "InitDecomp").WithFile("map")
		}
	}
	if !iotype.Valid(piotype) {
		return 0, nil, errs.New(errs.EBADTYPE, "InitDecomp")
	}

	memSz, err := iotype.MemSize(piotype)
	if err != nil {
		return 0, nil, errs.New(errs.EBADTYPE, "InitDecomp")
	}
	diskSz, err := iotype.DiskSize(piotype)
	if err != nil {
		return 0, nil, errs.New(errs.EBADTYPE, "InitDecomp")
	}

	desc := &Desc{
		NDims:      ndims,
		DimLen:     append([]int64(nil), dimlen...),
		PIOType:    piotype,
		MemSz:      memSz,
		DiskSz:     diskSz,
		MPIType:    iotype.MPIDatatype(piotype),
		MapLen:     len(mp),
		Map:        append([]int64(nil), mp...),
		Rearranger: rearranger,
	}

	rearr := NewRearranger(rearranger)
	if err := rearr.Bind(topo, desc); err != nil {
		return 0, nil, fmt.Errorf("InitDecomp: bind failed: %w", err)
	}

	id := coordinateIOID(topo, &bound{desc: desc, rearr: rearr, topo: topo})
	desc.IOID = id
	return id, desc, nil
}

// coordinateIOID assigns an ioid every rank of topo.UnionComm agrees on
// (union rank 0 advances the shared sequence and broadcasts the result),
// then files this rank's own bound value under that id. Coordinating the
// number, rather than letting every rank advance a shared counter on its
// own, keeps the id stable even when another decomposition's InitDecomp
// call on a different communicator interleaves with this one.
func coordinateIOID(topo *comm.Topology, b *bound) int {
	self := topo.UnionRank
	root := 0

	var idBuf []byte
	if self == root {
		descsMu.Lock()
		id := descsSeq
		descsSeq++
		descsMu.Unlock()
		idBuf = encodeI64(int64(id))
	}
	idBuf = topo.UnionComm.Bcast(self, root, idBuf)
	id := int(decodeI64(idBuf))

	descsMu.Lock()
	byRank, ok := descs[id]
	if !ok {
		byRank = make(map[int]*bound)
		descs[id] = byRank
	}
	byRank[self] = b
	descsMu.Unlock()
	return id
}

// FreeDecomp releases the calling rank's entry for ioid. Safe to call on
// an unknown ioid or rank (matches freedecomp's idempotent-on-double-free
// behavior).
func FreeDecomp(topo *comm.Topology, ioid int) {
	descsMu.Lock()
	defer descsMu.Unlock()
	byRank, ok := descs[ioid]
	if !ok {
		return
	}
	delete(byRank, topo.UnionRank)
	if len(byRank) == 0 {
		delete(descs, ioid)
	}
}

// Lookup retrieves the calling rank's previously registered decomposition
// and its bound rearranger/topology.
func Lookup(topo *comm.Topology, ioid int) (*Desc, Rearranger, *comm.Topology, bool) {
	descsMu.Lock()
	defer descsMu.Unlock()
	byRank, ok := descs[ioid]
	if !ok {
		return nil, nil, nil, false
	}
	b, ok := byRank[topo.UnionRank]
	if !ok {
		return nil, nil, nil, false
	}
	return b.desc, b.rearr, b.topo, true
}

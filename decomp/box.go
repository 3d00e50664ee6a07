package decomp

import (
	"sort"

	"github.com/parallelio/pario/comm"
)

// BoxRearranger partitions the global array into one contiguous slab per
// I/O rank using an even split of the linear index space (a simplified
// stand-in for the aspect-balanced leading-dimension factoring the
// original library uses — see DESIGN.md). Each compute rank computes
// which slab each of its Map offsets falls into; that yields SCount and
// the SIndex permutation placing elements into send-peer order. The
// inverse information on the I/O side is derived from an exchange of
// per-peer counts.
type BoxRearranger struct{}

func (BoxRearranger) Kind() RearrKind { return Box }

func slabBounds(gsize int64, numIO int) int64 {
	slab := gsize / int64(numIO)
	if gsize%int64(numIO) != 0 {
		slab++
	}
	if slab < 1 {
		slab = 1
	}
	return slab
}

func boxOwner(offset, slabSize int64, numIO int) int {
	owner := int((offset - 1) / slabSize)
	if owner >= numIO {
		owner = numIO - 1
	}
	return owner
}

func (BoxRearranger) Bind(topo *comm.Topology, desc *Desc) error {
	numIO := len(topo.IORanks)
	desc.NumAiotasks = numIO
	gsize := desc.GlobalSize()
	slab := slabBounds(gsize, numIO)

	localHole := 0
	if topo.CompProc {
		scount := make([]int, numIO)
		var sindex []int
		buckets := make([][]int, numIO)
		for i, off := range desc.Map {
			if off == 0 {
				localHole = 1
				continue
			}
			owner := boxOwner(off, slab, numIO)
			buckets[owner] = append(buckets[owner], i)
			scount[owner]++
		}
		for _, b := range buckets {
			sindex = append(sindex, b...)
		}
		desc.SCount = scount
		desc.SIndex = sindex
	}
	desc.NeedsFill = unionMaxInt(topo, localHole) == 1

	// Phase 1: tell every I/O rank how many elements each compute rank
	// is about to send it.
	compRanks := compRanksOf(topo.UnionComm.Size(), topo.IORanks)
	plan := comm.ExchangePlan{
		Send: make([][]byte, topo.UnionComm.Size()),
		Recv: make([][]int, topo.UnionComm.Size()),
	}
	if topo.CompProc {
		for idx, ioR := range topo.IORanks {
			plan.Send[ioR] = encodeI64(int64(desc.SCount[idx]))
		}
	}
	if topo.IOProc {
		for _, cr := range compRanks {
			plan.Recv[cr] = []int{8}
		}
	}
	recv := topo.UnionComm.Swapm(topo.UnionRank, plan, comm.DefaultFlowOpts())

	if !topo.IOProc {
		return nil
	}

	rcount := make([]int, len(compRanks))
	nrecvs := 0
	for i, cr := range compRanks {
		if recv[cr] != nil {
			rcount[i] = int(decodeI64(recv[cr]))
		}
		nrecvs += rcount[i]
	}
	desc.RCount = rcount
	desc.NRecvs = nrecvs

	// Phase 2: gather the actual offsets owned by this I/O rank so
	// regions can be discovered once per decomposition bind.
	plan2 := comm.ExchangePlan{
		Send: make([][]byte, topo.UnionComm.Size()),
		Recv: make([][]int, topo.UnionComm.Size()),
	}
	if topo.CompProc {
		pos := 0
		for idx, ioR := range topo.IORanks {
			n := desc.SCount[idx]
			offs := make([]int64, n)
			for k := 0; k < n; k++ {
				offs[k] = desc.Map[desc.SIndex[pos]]
				pos++
			}
			plan2.Send[ioR] = encodeI64s(offs)
		}
	}
	for i, cr := range compRanks {
		if rcount[i] > 0 {
			plan2.Recv[cr] = []int{8 * rcount[i]}
		}
	}
	recv2 := topo.UnionComm.Swapm(topo.UnionRank, plan2, comm.DefaultFlowOpts())

	var mine []int64
	for _, cr := range compRanks {
		if recv2[cr] != nil {
			mine = append(mine, decodeI64s(recv2[cr])...)
		}
	}

	sorted := append([]int64(nil), mine...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a] < sorted[b] })
	desc.NeedsSort = !isMonotonic(mine)
	desc.LLen = len(sorted)
	arena := NewRegionArena(1)
	for _, r := range discoverRegions(sorted) {
		arena.Append(0, r)
	}
	desc.Regions = arena
	desc.MaxRegions = ioCommMaxInt(topo, arena.Count(0))
	return nil
}

func (BoxRearranger) Comp2IO(topo *comm.Topology, desc *Desc, opts comm.FlowOpts, compBuf []byte) []byte {
	numIO := len(topo.IORanks)
	groups := make(map[int][]byte, numIO)
	expect := make(map[int]int)

	if topo.CompProc {
		esz := desc.MemSz
		pos := 0
		for idx, ioR := range topo.IORanks {
			n := desc.SCount[idx]
			buf := make([]byte, 0, n*esz)
			for k := 0; k < n; k++ {
				origIdx := desc.SIndex[pos]
				pos++
				buf = append(buf, compBuf[origIdx*esz:(origIdx+1)*esz]...)
			}
			groups[ioR] = buf
		}
	}
	if topo.IOProc {
		compRanks := compRanksOf(topo.UnionComm.Size(), topo.IORanks)
		for i, cr := range compRanks {
			if desc.RCount[i] > 0 {
				expect[cr] = desc.RCount[i] * desc.MemSz
			}
		}
	}
	return movePayload(topo, opts, groups, expect)
}

func (BoxRearranger) IO2Comp(topo *comm.Topology, desc *Desc, opts comm.FlowOpts, ioBuf []byte) []byte {
	esz := desc.MemSz
	groups := make(map[int][]byte)
	expect := make(map[int]int)

	if topo.IOProc {
		compRanks := compRanksOf(topo.UnionComm.Size(), topo.IORanks)
		offset := 0
		for i, cr := range compRanks {
			n := desc.RCount[i] * esz
			if n > 0 {
				groups[cr] = ioBuf[offset : offset+n]
			}
			offset += n
		}
	}
	if topo.CompProc {
		for idx, ioR := range topo.IORanks {
			expect[ioR] = desc.SCount[idx] * esz
		}
	}

	recv := movePayloadRaw(topo, opts, groups, expect)
	if !topo.CompProc {
		return nil
	}
	out := make([]byte, desc.MapLen*esz)
	pos := 0
	for idx, ioR := range topo.IORanks {
		n := desc.SCount[idx]
		chunk := recv[ioR]
		for k := 0; k < n; k++ {
			origIdx := desc.SIndex[pos]
			pos++
			copy(out[origIdx*esz:(origIdx+1)*esz], chunk[k*esz:(k+1)*esz])
		}
	}
	return out
}

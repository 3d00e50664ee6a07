package decomp

import (
	"sort"

	"github.com/parallelio/pario/comm"
)

// SubsetRearranger partitions compute ranks into disjoint subsets, one
// per I/O rank, communicating only within that subset: every compute
// rank's entire non-hole map goes to exactly one I/O owner (unlike
// BoxRearranger, which buckets per element by global offset). Each
// subset's I/O rank receives the union of its subset's map entries; if
// the gathered map is non-monotonic it is sorted for region discovery.
type SubsetRearranger struct{}

func (SubsetRearranger) Kind() RearrKind { return Subset }

// subsetOwner assigns compRanks[compIdx] to one of numIO owners via a
// contiguous block partition, keeping each subset roughly equal in size.
func subsetOwner(compIdx, numComp, numIO int) int {
	if numComp == 0 {
		return 0
	}
	owner := compIdx * numIO / numComp
	if owner >= numIO {
		owner = numIO - 1
	}
	return owner
}

func (SubsetRearranger) Bind(topo *comm.Topology, desc *Desc) error {
	numIO := len(topo.IORanks)
	desc.NumAiotasks = numIO
	compRanks := compRanksOf(topo.UnionComm.Size(), topo.IORanks)

	myCompIdx := -1
	for i, r := range compRanks {
		if r == topo.UnionRank {
			myCompIdx = i
		}
	}

	localHole := 0
	if topo.CompProc {
		owner := subsetOwner(myCompIdx, len(compRanks), numIO)
		scount := make([]int, numIO)
		var sindex []int
		for i, off := range desc.Map {
			if off == 0 {
				localHole = 1
				continue
			}
			sindex = append(sindex, i)
		}
		scount[owner] = len(sindex)
		desc.SCount = scount
		desc.SIndex = sindex
	}
	desc.NeedsFill = unionMaxInt(topo, localHole) == 1

	plan := comm.ExchangePlan{
		Send: make([][]byte, topo.UnionComm.Size()),
		Recv: make([][]int, topo.UnionComm.Size()),
	}
	if topo.CompProc {
		owner := subsetOwner(myCompIdx, len(compRanks), numIO)
		plan.Send[topo.IORanks[owner]] = encodeI64(int64(len(desc.SIndex)))
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

	plan2 := comm.ExchangePlan{
		Send: make([][]byte, topo.UnionComm.Size()),
		Recv: make([][]int, topo.UnionComm.Size()),
	}
	if topo.CompProc {
		owner := subsetOwner(myCompIdx, len(compRanks), numIO)
		offs := make([]int64, len(desc.SIndex))
		for k, idx := range desc.SIndex {
			offs[k] = desc.Map[idx]
		}
		plan2.Send[topo.IORanks[owner]] = encodeI64s(offs)
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

func (SubsetRearranger) Comp2IO(topo *comm.Topology, desc *Desc, opts comm.FlowOpts, compBuf []byte) []byte {
	numIO := len(topo.IORanks)
	groups := make(map[int][]byte, numIO)
	expect := make(map[int]int)

	if topo.CompProc {
		esz := desc.MemSz
		for idx, ioR := range topo.IORanks {
			n := desc.SCount[idx]
			if n == 0 {
				continue
			}
			buf := make([]byte, 0, n*esz)
			for _, origIdx := range desc.SIndex {
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

func (SubsetRearranger) IO2Comp(topo *comm.Topology, desc *Desc, opts comm.FlowOpts, ioBuf []byte) []byte {
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
	for idx, ioR := range topo.IORanks {
		n := desc.SCount[idx]
		if n == 0 {
			continue
		}
		chunk := recv[ioR]
		for k, origIdx := range desc.SIndex {
			copy(out[origIdx*esz:(origIdx+1)*esz], chunk[k*esz:(k+1)*esz])
		}
	}
	return out
}

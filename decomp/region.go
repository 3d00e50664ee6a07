// Package decomp implements the decomposition and rearrangement engine:
// the mapping from a compute rank's per-rank slice of a globally
// decomposed array to the aggregated layout each I/O rank owns, and the
// two rearranger algorithms (BOX, SUBSET) that compute it.
package decomp

// Region is one contiguous (start,count) box on the global linear index
// space owned by a single I/O rank.
type Region struct {
	Start int64
	Count int64
}

// RegionArena stores every discovered region across every I/O rank in one
// flat, slice-backed store addressed by forward index rather than a
// linked list — grounded on pool.RingBuffer's slice-backed, index-addressed
// storage, generalized from a fixed-capacity circular queue to a
// grow-only per-owner forward chain.
type RegionArena struct {
	regions []Region
	next    []int // next[i] is the arena index following i, or -1
	heads   []int // heads[owner] is the first arena index for owner, or -1
	tails   []int // tails[owner] is the last arena index for owner, used to append in O(1)
}

// NewRegionArena allocates an arena for numOwners I/O ranks.
func NewRegionArena(numOwners int) *RegionArena {
	heads := make([]int, numOwners)
	tails := make([]int, numOwners)
	for i := range heads {
		heads[i] = -1
		tails[i] = -1
	}
	return &RegionArena{heads: heads, tails: tails}
}

// Append adds r to owner's region chain and returns its arena index.
func (a *RegionArena) Append(owner int, r Region) int {
	idx := len(a.regions)
	a.regions = append(a.regions, r)
	a.next = append(a.next, -1)
	if a.tails[owner] == -1 {
		a.heads[owner] = idx
	} else {
		a.next[a.tails[owner]] = idx
	}
	a.tails[owner] = idx
	return idx
}

// Regions walks owner's forward chain and returns its regions in
// discovery order.
func (a *RegionArena) Regions(owner int) []Region {
	var out []Region
	for i := a.heads[owner]; i != -1; i = a.next[i] {
		out = append(out, a.regions[i])
	}
	return out
}

// Count returns the number of regions owner holds.
func (a *RegionArena) Count(owner int) int {
	n := 0
	for i := a.heads[owner]; i != -1; i = a.next[i] {
		n++
	}
	return n
}

// MaxRegions returns the largest per-owner region count across every
// owner the arena was built for — the serial backend needs this to
// pre-size its receive buffers.
func (a *RegionArena) MaxRegions() int {
	max := 0
	for owner := range a.heads {
		if n := a.Count(owner); n > max {
			max = n
		}
	}
	return max
}

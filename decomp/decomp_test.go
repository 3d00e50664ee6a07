package decomp_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parallelio/pario/comm"
	"github.com/parallelio/pario/decomp"
	"github.com/parallelio/pario/iosystem"
	"github.com/parallelio/pario/iotype"
)

func newSys(t *testing.T) *iosystem.IOSystem {
	t.Helper()
	sys := iosystem.InitIntracomm(1, []int{0}, iosystem.RearrBox)[0]
	t.Cleanup(sys.Finalize)
	return sys
}

func float64sToBytes(xs []float64) []byte {
	b := make([]byte, 8*len(xs))
	for i, x := range xs {
		binary.BigEndian.PutUint64(b[i*8:], math.Float64bits(x))
	}
	return b
}

func bytesToFloat64s(b []byte) []float64 {
	xs := make([]float64, len(b)/8)
	for i := range xs {
		xs[i] = math.Float64frombits(binary.BigEndian.Uint64(b[i*8:]))
	}
	return xs
}

func TestBoxRearrangerRoundTripsInGlobalOrder(t *testing.T) {
	sys := newSys(t)

	// Box buckets per element by offset, so even a caller-supplied map
	// already in global order exercises the common, monotonic path.
	ioid, desc, err := decomp.InitDecomp(sys.Topo, iotype.Float64, 1, []int64{4}, []int64{1, 2, 3, 4}, decomp.Box)
	require.NoError(t, err)
	t.Cleanup(func() { decomp.FreeDecomp(sys.Topo, ioid) })
	require.False(t, desc.NeedsSort)

	_, rearr, topo, ok := decomp.Lookup(sys.Topo, ioid)
	require.True(t, ok)

	compBuf := float64sToBytes([]float64{10, 20, 30, 40})
	ioBuf := rearr.Comp2IO(topo, desc, comm.DefaultFlowOpts(), compBuf)
	back := rearr.IO2Comp(topo, desc, comm.DefaultFlowOpts(), ioBuf)
	require.Equal(t, []float64{10, 20, 30, 40}, bytesToFloat64s(back))
}

// TestSubsetRearrangerSortsNonMonotonicMapButRoundTripsOriginalOrder
// exercises the SUBSET rearranger's needssort path: a compute rank's map
// is supplied out of global order, so Bind must sort the gathered offsets
// for region discovery (NeedsSort=true), while Comp2IO/IO2Comp still
// recover each element in the caller's original compute-buffer order,
// since that ordering never depends on the I/O-side region layout.
func TestSubsetRearrangerSortsNonMonotonicMapButRoundTripsOriginalOrder(t *testing.T) {
	sys := newSys(t)

	// A single rank acting as both the sole compute and sole I/O rank
	// still drives the subset owner/gather/sort logic in Bind; only the
	// peer-to-peer fan-out collapses to one party.
	nonMonotonicMap := []int64{3, 1, 4, 2}
	ioid, desc, err := decomp.InitDecomp(sys.Topo, iotype.Float64, 1, []int64{4}, nonMonotonicMap, decomp.Subset)
	require.NoError(t, err)
	t.Cleanup(func() { decomp.FreeDecomp(sys.Topo, ioid) })
	require.True(t, desc.NeedsSort, "a non-monotonic map must set NeedsSort")

	_, rearr, topo, ok := decomp.Lookup(sys.Topo, ioid)
	require.True(t, ok)

	compBuf := float64sToBytes([]float64{30, 10, 40, 20})
	ioBuf := rearr.Comp2IO(topo, desc, comm.DefaultFlowOpts(), compBuf)
	back := rearr.IO2Comp(topo, desc, comm.DefaultFlowOpts(), ioBuf)
	// The round trip recovers the compute rank's own element order,
	// independent of how NeedsSort reordered the I/O-side regions.
	require.Equal(t, []float64{30, 10, 40, 20}, bytesToFloat64s(back))
}

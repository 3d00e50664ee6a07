package stats

import (
	"encoding/binary"
	"time"

	"github.com/parallelio/pario/comm"
)

const countersWireSize = 4 * 8 // four int64-sized fields

func encodeCounters(c Counters) []byte {
	b := make([]byte, countersWireSize)
	binary.BigEndian.PutUint64(b[0:8], uint64(c.ReadBytes))
	binary.BigEndian.PutUint64(b[8:16], uint64(c.WriteBytes))
	binary.BigEndian.PutUint64(b[16:24], uint64(c.ReadTime))
	binary.BigEndian.PutUint64(b[24:32], uint64(c.WriteTime))
	return b
}

func decodeCounters(b []byte) Counters {
	return Counters{
		ReadBytes:  int64(binary.BigEndian.Uint64(b[0:8])),
		WriteBytes: int64(binary.BigEndian.Uint64(b[8:16])),
		ReadTime:   time.Duration(binary.BigEndian.Uint64(b[16:24])),
		WriteTime:  time.Duration(binary.BigEndian.Uint64(b[24:32])),
	}
}

// reduceAcross gathers mine from every rank of c onto root via a fixed-
// size Swapm exchange (the wire size is constant, so unlike decomp's
// map gather this needs no preliminary length round), folds every
// rank's value with min/max/sum, and broadcasts the result back to
// every rank so the caller's replica of iosystem state stays coherent.
func reduceAcross(c *comm.Communicator, self, root int, mine Counters) Reduced {
	plan := comm.ExchangePlan{Send: make([][]byte, c.Size()), Recv: make([][]int, c.Size())}
	if self != root {
		plan.Send[root] = encodeCounters(mine)
	} else {
		for p := 0; p < c.Size(); p++ {
			if p != root {
				plan.Recv[p] = []int{countersWireSize}
			}
		}
	}
	recv := c.Swapm(self, plan, comm.DefaultFlowOpts())

	var out []byte
	if self == root {
		red := Reduced{Min: mine, Max: mine, Sum: mine}
		for p := 0; p < c.Size(); p++ {
			if p == root {
				continue
			}
			v := decodeCounters(recv[p])
			red.Min = minCounters(red.Min, v)
			red.Max = maxCounters(red.Max, v)
			red.Sum = sumCounters(red.Sum, v)
		}
		out = encodeReduced(red)
	}
	out = c.Bcast(self, root, out)
	return decodeReduced(out)
}

const reducedWireSize = 3 * countersWireSize

func encodeReduced(r Reduced) []byte {
	b := make([]byte, 0, reducedWireSize)
	b = append(b, encodeCounters(r.Min)...)
	b = append(b, encodeCounters(r.Max)...)
	b = append(b, encodeCounters(r.Sum)...)
	return b
}

func decodeReduced(b []byte) Reduced {
	return Reduced{
		Min: decodeCounters(b[0:countersWireSize]),
		Max: decodeCounters(b[countersWireSize : 2*countersWireSize]),
		Sum: decodeCounters(b[2*countersWireSize : 3*countersWireSize]),
	}
}

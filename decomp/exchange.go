package decomp

import (
	"encoding/binary"

	"github.com/parallelio/pario/comm"
)

func encodeI64(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func decodeI64(b []byte) int64 {
	return int64(binary.LittleEndian.Uint64(b))
}

func encodeI64s(vs []int64) []byte {
	b := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint64(b[i*8:], uint64(v))
	}
	return b
}

func decodeI64s(b []byte) []int64 {
	n := len(b) / 8
	vs := make([]int64, n)
	for i := range vs {
		vs[i] = int64(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return vs
}

// commMaxInt computes the maximum of myVal across every rank of c and
// returns it to every rank, via a gather-to-root plus broadcast.
func commMaxInt(c *comm.Communicator, self, root, myVal int) int {
	plan := comm.ExchangePlan{Send: make([][]byte, c.Size()), Recv: make([][]int, c.Size())}
	if self != root {
		plan.Send[root] = encodeI64(int64(myVal))
	} else {
		for p := 0; p < c.Size(); p++ {
			if p != root {
				plan.Recv[p] = []int{8}
			}
		}
	}
	recv := c.Swapm(self, plan, comm.DefaultFlowOpts())

	max := int64(myVal)
	if self == root {
		for p := 0; p < c.Size(); p++ {
			if p != root && recv[p] != nil {
				if v := decodeI64(recv[p]); v > max {
					max = v
				}
			}
		}
	}
	var bcastBuf []byte
	if self == root {
		bcastBuf = encodeI64(max)
	}
	result := c.Bcast(self, root, bcastBuf)
	return int(decodeI64(result))
}

// ioCommMaxInt computes the maximum of myVal across every rank of
// topo.IOComm and returns it to every I/O rank (io-comm-local rank 0 is
// always root by comm.NewCommunicator convention).
func ioCommMaxInt(topo *comm.Topology, myVal int) int {
	return commMaxInt(topo.IOComm, topo.IORank, 0, myVal)
}

// unionMaxInt computes the maximum of myVal (0 or 1, typically a boolean
// flag) across every rank of topo.UnionComm and returns it to every rank.
func unionMaxInt(topo *comm.Topology, myVal int) int {
	return commMaxInt(topo.UnionComm, topo.UnionRank, 0, myVal)
}

// compRanksOf returns every union rank not in ioRanks, in ascending order.
func compRanksOf(unionSize int, ioRanks []int) []int {
	ioSet := make(map[int]bool, len(ioRanks))
	for _, r := range ioRanks {
		ioSet[r] = true
	}
	var out []int
	for r := 0; r < unionSize; r++ {
		if !ioSet[r] {
			out = append(out, r)
		}
	}
	return out
}

// movePayloadRaw performs a generic byte exchange over the union
// communicator: every rank sends its groups[dest] bytes to union rank
// dest, and expects exactly expect[peer] bytes from every peer. Returns
// the map of bytes actually received, keyed by sender union rank.
func movePayloadRaw(topo *comm.Topology, opts comm.FlowOpts, groups map[int][]byte, expect map[int]int) map[int][]byte {
	c := topo.UnionComm
	self := topo.UnionRank
	plan := comm.ExchangePlan{Send: make([][]byte, c.Size()), Recv: make([][]int, c.Size())}
	for dest, payload := range groups {
		if len(payload) > 0 {
			plan.Send[dest] = payload
		}
	}
	for peer, n := range expect {
		if n > 0 {
			plan.Recv[peer] = []int{n}
		}
	}
	recv := c.Swapm(self, plan, opts)
	out := make(map[int][]byte, len(expect))
	for peer := range expect {
		if recv[peer] != nil {
			out[peer] = recv[peer]
		}
	}
	return out
}

// movePayload is movePayloadRaw specialized for the comp->io direction:
// it returns, on an io rank, the concatenation of every expected peer's
// bytes in ascending union-rank order (nil on a compute-only rank).
func movePayload(topo *comm.Topology, opts comm.FlowOpts, groups map[int][]byte, expect map[int]int) []byte {
	recv := movePayloadRaw(topo, opts, groups, expect)
	if !topo.IOProc {
		return nil
	}
	var out []byte
	for r := 0; r < topo.UnionComm.Size(); r++ {
		if b, ok := recv[r]; ok {
			out = append(out, b...)
		}
	}
	return out
}

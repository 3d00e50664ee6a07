// Package comm implements the in-process rank/communicator simulation pario
// uses in place of a real MPI binding. Each logical
// rank is expected to be driven by its own goroutine; Communicator provides
// the collective and point-to-point primitives a rearranger needs (Bcast,
// AllReduce-min, Barrier, and the flow-controlled swapm exchange),
// synchronized with channels and a cyclic barrier instead of wire messages.
//
// Grounded on the concurrency primitives in internal/concurrency: the
// per-slot channel matrix plays the role of its RingBuffer-backed queues,
// and the barrier/condvar pairing follows the same "mutex + generation
// counter" shape used by its scheduler wait loop.
package comm

import (
	"sync"

	"github.com/parallelio/pario/errs"
)

// envelope is one point-to-point message traveling from one rank to
// another within a Communicator.
type envelope struct {
	tag  int
	data []byte
}

// Communicator is a fixed-size process group. It owns a full from->to
// channel matrix (one unbounded-ish buffered channel per ordered pair) so
// point-to-point receives never need to filter by sender, and a cyclic
// barrier for Barrier/collective rendezvous.
type Communicator struct {
	size int

	mu    sync.Mutex
	chans [][]chan envelope // chans[from][to]

	barMu    sync.Mutex
	barCond  *sync.Cond
	barCount int
	barGen   int

	rootRank int
}

// NewCommunicator allocates a Communicator of the given size with root 0.
func NewCommunicator(size int) *Communicator {
	if size <= 0 {
		panic("comm: communicator size must be positive")
	}
	c := &Communicator{size: size, rootRank: 0}
	c.barCond = sync.NewCond(&c.barMu)
	c.chans = make([][]chan envelope, size)
	for i := range c.chans {
		c.chans[i] = make([]chan envelope, size)
		for j := range c.chans[i] {
			// Buffered generously: this is a simulator, not a wire
			// transport: backpressure is modeled explicitly by swapm's
			// flow-control options, not by channel capacity.
			c.chans[i][j] = make(chan envelope, 4096)
		}
	}
	return c
}

// Size returns the number of ranks in the communicator.
func (c *Communicator) Size() int { return c.size }

// Root returns the communicator's root rank (always 0 by pario convention).
func (c *Communicator) Root() int { return c.rootRank }

// Barrier blocks the calling rank until every rank in the communicator has
// called Barrier, using a classic generation-counter cyclic barrier.
func (c *Communicator) Barrier() {
	c.barMu.Lock()
	gen := c.barGen
	c.barCount++
	if c.barCount == c.size {
		c.barCount = 0
		c.barGen++
		c.barCond.Broadcast()
	} else {
		for gen == c.barGen {
			c.barCond.Wait()
		}
	}
	c.barMu.Unlock()
}

// send is the blocking point-to-point primitive every collective is built
// from.
func (c *Communicator) send(from, to, tag int, data []byte) {
	c.chans[from][to] <- envelope{tag: tag, data: data}
}

func (c *Communicator) recv(from, to int) []byte {
	return (<-c.chans[from][to]).data
}

// Bcast sends buf from root to every other rank; non-root callers pass a
// nil buf and receive the broadcast value back. Every rank in the
// communicator must call Bcast together.
func (c *Communicator) Bcast(rank, root int, buf []byte) []byte {
	if rank == root {
		for r := 0; r < c.size; r++ {
			if r == root {
				continue
			}
			c.send(root, r, 0, buf)
		}
		return buf
	}
	return c.recv(root, rank)
}

// RankView binds a Communicator to one caller's local rank, satisfying
// errs.Collective so the shared error-handler modes can be applied without
// every package re-implementing broadcast/reduce-min.
type RankView struct {
	C *Communicator
	R int
}

func (v RankView) Rank() int { return v.R }
func (v RankView) Root() int { return v.C.Root() }

func (v RankView) BroadcastCode(root int, code errs.Code) errs.Code {
	return decodeCode(v.C.Bcast(v.R, root, encodeCode(code)))
}

func (v RankView) AllReduceMinCode(code errs.Code) errs.Code {
	root := v.C.Root()
	if v.R == root {
		min := code
		for r := 0; r < v.C.size; r++ {
			if r == root {
				continue
			}
			got := decodeCode(v.C.recv(r, root))
			if got < min {
				min = got
			}
		}
		return v.BroadcastCode(root, min)
	}
	v.C.send(v.R, root, 0, encodeCode(code))
	return v.BroadcastCode(root, errs.NOERR)
}

func encodeCode(c errs.Code) []byte {
	b := make([]byte, 4)
	v := uint32(int32(c))
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	return b
}

func decodeCode(b []byte) errs.Code {
	v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return errs.Code(int32(v))
}

// Package reqblock implements the request-block planner: per-variable
// queues of outstanding nonblocking write requests, and flush_output_buffer's
// policy for grouping them into size-bounded blocks handed to a backend's
// wait_all call.
//
// Grounded on pool.RingBuffer[T]'s grow-by-chunk backing array
// (pool/ring.go) for the per-variable request queue's quantum growth, and
// on control.MetricsRegistry's mutex-guarded running-total shape
// (control/metrics.go) for the file-level pending-byte counter.
package reqblock

import "sort"

// requestQuantum is the chunk size request/request_sz arrays grow by
// while a variable has outstanding nonblocking requests.
const requestQuantum = 16

// Request is one outstanding nonblocking write: a backend-assigned
// handle paired with its byte size.
type Request struct {
	Handle int
	Size   int
}

// varQueue holds one variable's outstanding requests, grown in
// quantum-sized chunks.
type varQueue struct {
	requests []Request
}

func (q *varQueue) append(r Request) {
	if len(q.requests) == cap(q.requests) {
		grown := make([]Request, len(q.requests), cap(q.requests)+requestQuantum)
		copy(grown, q.requests)
		q.requests = grown
	}
	q.requests = append(q.requests, r)
}

// WaitAll is the backend call a block of request handles is drained
// through; different blocks wait sequentially, one call per block.
type WaitAll func(handles []int) error

// Planner tracks one file's outstanding nonblocking requests across all
// of its variables and implements flush_output_buffer's size-bounded
// block emission.
type Planner struct {
	blockSizeLimit int
	varOrder       []int
	vars           map[int]*varQueue
	wbPend         int
}

// NewPlanner returns a planner that emits blocks no larger than
// blockSizeLimit bytes.
func NewPlanner(blockSizeLimit int) *Planner {
	return &Planner{blockSizeLimit: blockSizeLimit, vars: make(map[int]*varQueue)}
}

// Submit records one outstanding nonblocking request for varid and adds
// its size to the file's pending-byte total.
func (p *Planner) Submit(varid int, r Request) {
	q, ok := p.vars[varid]
	if !ok {
		q = &varQueue{}
		p.vars[varid] = q
		p.varOrder = append(p.varOrder, varid)
		sort.Ints(p.varOrder)
	}
	q.append(r)
	p.wbPend += r.Size
}

// Pending returns the current wb_pend total.
func (p *Planner) Pending() int { return p.wbPend }

// Flush implements flush_output_buffer: if not forced and wb_pend+addsize
// stays under the block size limit, it does nothing. Otherwise it walks
// variables in id order, and within each variable emits contiguous
// request-block runs (cumulative size <= blockSizeLimit) to waitAll, one
// call per block, draining every outstanding request when force is true.
func (p *Planner) Flush(force bool, addsize int, waitAll WaitAll) error {
	if !force && p.wbPend+addsize < p.blockSizeLimit {
		return nil
	}
	for _, vid := range p.varOrder {
		q := p.vars[vid]
		for len(q.requests) > 0 {
			end, sum := 1, q.requests[0].Size
			for end < len(q.requests) {
				sz := q.requests[end].Size
				if sum+sz > p.blockSizeLimit {
					break
				}
				sum += sz
				end++
			}
			handles := make([]int, end)
			for i := 0; i < end; i++ {
				handles[i] = q.requests[i].Handle
			}
			if err := waitAll(handles); err != nil {
				return err
			}
			p.wbPend -= sum
			q.requests = append([]Request(nil), q.requests[end:]...)
		}
	}
	return nil
}

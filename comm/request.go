package comm

import "sync"

// Request is a handle to a non-blocking send or receive, standing in for
// an MPI_Request. Wait blocks until the underlying operation completes;
// Test reports completion without blocking.
type Request struct {
	done chan struct{}
	once sync.Once
	size int // bytes moved, used by reqblock's block-size accounting
}

func newRequest() *Request {
	return &Request{done: make(chan struct{})}
}

func (r *Request) complete(size int) {
	r.once.Do(func() {
		r.size = size
		close(r.done)
	})
}

// Wait blocks until r completes.
func (r *Request) Wait() { <-r.done }

// Test reports whether r has completed without blocking.
func (r *Request) Test() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Size returns the number of bytes the completed request moved.
func (r *Request) Size() int { return r.size }

// Isend posts a non-blocking send of data from rank `from` to rank `to`
// and returns immediately with a Request. Completion is signaled once the
// payload has been delivered to the peer's channel slot.
func (c *Communicator) Isend(from, to, tag int, data []byte) *Request {
	req := newRequest()
	go func() {
		c.send(from, to, tag, data)
		req.complete(len(data))
	}()
	return req
}

// Irecv posts a non-blocking receive into a Request whose Wait returns once
// data has arrived; the payload is read through the returned *[]byte once
// Wait has returned.
func (c *Communicator) Irecv(from, to int) (*Request, *[]byte) {
	req := newRequest()
	out := new([]byte)
	go func() {
		data := c.recv(from, to)
		*out = data
		req.complete(len(data))
	}()
	return req, out
}

// WaitAny blocks until at least one of reqs completes and returns its
// index. Used by swapm's bounded-pending-request draining and by the
// request-block planner.
func WaitAny(reqs []*Request) int {
	if len(reqs) == 0 {
		return -1
	}
	// A done channel can only be waited on via select with a fixed arity,
	// so route completions through a shared fan-in channel instead of a
	// dynamic reflect.Select loop.
	idxCh := make(chan int, len(reqs))
	for i, r := range reqs {
		i, r := i, r
		go func() {
			r.Wait()
			idxCh <- i
		}()
	}
	return <-idxCh
}

// WaitAll blocks until every request in reqs has completed.
func WaitAll(reqs []*Request) {
	for _, r := range reqs {
		r.Wait()
	}
}

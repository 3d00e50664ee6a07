// registry.go is the per-iosystem bookkeeping that sits over Counters
// and Reduced: a thread-safe table of live per-file counters plus the
// cached Reduced computed for each file at close, generalized from
// control.MetricsRegistry's mutex-guarded string-keyed map to a table
// specifically shaped for per-file I/O counters rather than arbitrary
// named metrics.
package stats

import (
	"sync"
	"time"

	"github.com/parallelio/pario/comm"
)

type fileEntry struct {
	name   string
	live   Counters
	closed *Reduced
}

// Registry tracks every open (and closed) file's counters for one
// iosystem, keyed by ncid.
type Registry struct {
	mu    sync.Mutex
	files map[int]*fileEntry
	order []int // ncid insertion order, for a stable summary walk
}

// NewRegistry returns an empty per-iosystem registry.
func NewRegistry() *Registry {
	return &Registry{files: make(map[int]*fileEntry)}
}

// Open registers ncid as a live file under name.
func (r *Registry) Open(ncid int, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[ncid]; ok {
		return
	}
	r.files[ncid] = &fileEntry{name: name}
	r.order = append(r.order, ncid)
}

// RecordRead adds one read's bytes and elapsed time to ncid's live
// counters. A no-op if ncid isn't open (the caller forgot to Open it).
func (r *Registry) RecordRead(ncid int, n int64, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.files[ncid]; ok {
		e.live.addRead(n, d)
	}
}

// RecordWrite adds one write's bytes and elapsed time to ncid's live
// counters.
func (r *Registry) RecordWrite(ncid int, n int64, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.files[ncid]; ok {
		e.live.addWrite(n, d)
	}
}

// Close reduces ncid's live counters across every rank of c (min/max/sum)
// and caches the result; every rank of c must call Close for the same
// ncid together. Returns the reduced counters for the caller's immediate
// use (e.g. a per-close log line) in addition to caching them.
func (r *Registry) Close(c *comm.Communicator, self, root, ncid int) Reduced {
	r.mu.Lock()
	e, ok := r.files[ncid]
	var mine Counters
	if ok {
		mine = e.live
	}
	r.mu.Unlock()

	red := reduceAcross(c, self, root, mine)

	r.mu.Lock()
	if ok {
		e.closed = &red
	}
	r.mu.Unlock()
	return red
}

// Iosystem folds every closed file's Reduced into one iosystem-wide
// summary: per-field min-of-mins, max-of-maxes, and sum-of-sums.
func (r *Registry) Iosystem() Reduced {
	r.mu.Lock()
	defer r.mu.Unlock()
	var agg Reduced
	first := true
	for _, ncid := range r.order {
		e := r.files[ncid]
		if e.closed == nil {
			continue
		}
		if first {
			agg = *e.closed
			first = false
			continue
		}
		agg.Min = minCounters(agg.Min, e.closed.Min)
		agg.Max = maxCounters(agg.Max, e.closed.Max)
		agg.Sum = sumCounters(agg.Sum, e.closed.Sum)
	}
	return agg
}

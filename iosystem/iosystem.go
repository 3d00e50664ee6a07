// Package iosystem implements pario's IOSystem: the compute/IO
// process-group topology, its default rearranger and flow-control
// options, and its error-handler setting.
package iosystem

import (
	"sync"

	"github.com/google/uuid"
	"github.com/parallelio/pario/comm"
	"github.com/parallelio/pario/errs"
	"github.com/parallelio/pario/registry"
)

// RearrKind selects the default decomposition rearranger algorithm: BOX
// partitions the global array into contiguous slabs, SUBSET partitions
// compute ranks into disjoint groups.
type RearrKind int

const (
	RearrBox RearrKind = iota
	RearrSubset
)

// RearrOpts bundles the per-direction flow-control options attached to
// every IOSystem.
type RearrOpts struct {
	Comp2IO comm.FlowOpts
	IO2Comp comm.FlowOpts
}

// DefaultRearrOpts matches the library defaults (no handshake, isend on,
// unbounded pending) in both directions.
func DefaultRearrOpts() RearrOpts {
	return RearrOpts{Comp2IO: comm.DefaultFlowOpts(), IO2Comp: comm.DefaultFlowOpts()}
}

// ForCollective forces flow control off in both directions: choosing the
// collective rearranger disables handshake/pending caps.
func ForCollective(o RearrOpts) RearrOpts {
	return RearrOpts{Comp2IO: comm.ForCollective(o.Comp2IO), IO2Comp: comm.ForCollective(o.IO2Comp)}
}

// IOSystem is one registered compute/IO topology.
type IOSystem struct {
	IosysID int
	UUID    string // random per-system tag; not a handle key, and not read by any other package

	Topo *comm.Topology

	mu           sync.Mutex
	rearrKind    RearrKind
	rearrOpts    RearrOpts
	errorHandler errs.HandlerMode

	closed bool
}

var systems = registry.New[*IOSystem](1)

// InitIntracomm creates an IOSystem for every rank of a single user
// communicator, splitting out the given I/O ranks as a subcommunicator
// (intracomm mode). rearranger picks the default algorithm new
// decompositions bind to unless overridden. Returns one IOSystem per
// world rank, all sharing the same iosysid.
func InitIntracomm(size int, ioRanks []int, rearranger RearrKind) []*IOSystem {
	topos := comm.NewIntracomm(size, ioRanks)
	return register(topos, rearranger, false)
}

// InitAsync creates disjoint compute/IO IOSystems connected by an
// intercommunicator (async mode), one per rank. The I/O ranks' IOSystems
// are returned like the compute ranks'; no message-handler loop is
// started here (asyncmsg.Dispatcher.Run is not called).
func InitAsync(plan comm.AsyncPlan, rearranger RearrKind) []*IOSystem {
	topos := comm.NewAsync(plan)
	return register(topos, rearranger, true)
}

func register(topos []*comm.Topology, rearranger RearrKind, async bool) []*IOSystem {
	out := make([]*IOSystem, len(topos))
	id := systems.NextWouldBe()
	for i, t := range topos {
		sys := &IOSystem{
			IosysID:      id,
			UUID:         uuid.NewString(),
			Topo:         t,
			rearrKind:    rearranger,
			rearrOpts:    DefaultRearrOpts(),
			errorHandler: errs.ReturnError,
		}
		out[i] = sys
	}
	// Every rank shares one iosysid; register once using the first
	// rank's handle as the table's canonical entry so lookups by id see
	// a single logical system.
	systems.AddAt(id, out[0])
	return out
}

// Lookup retrieves a previously registered IOSystem by id.
func Lookup(iosysid int) (*IOSystem, bool) { return systems.Get(iosysid) }

// Finalize marks the IOSystem closed and removes its iosysid from the
// table; later calls are no-ops. It sends no message and does not stop
// an asyncmsg dispatch loop.
func (s *IOSystem) Finalize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	systems.Delete(s.IosysID)
}

// SetErrorHandler installs mode as this IOSystem's error handler and
// returns the previous mode.
func (s *IOSystem) SetErrorHandler(mode errs.HandlerMode) errs.HandlerMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.errorHandler
	s.errorHandler = mode
	return old
}

// ErrorHandler returns the current error-handler mode.
func (s *IOSystem) ErrorHandler() errs.HandlerMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorHandler
}

// Handle applies the IOSystem's error handler to code on behalf of rank
// (a rank local to MyComm), via comm.RankView.
func (s *IOSystem) Handle(code errs.Code) errs.Code {
	view := comm.RankView{C: s.Topo.MyComm, R: s.myCommRank()}
	return errs.Handle(s.ErrorHandler(), view, code)
}

func (s *IOSystem) myCommRank() int {
	if s.Topo.IOProc && s.Topo.CompComm == nil {
		return s.Topo.IORank
	}
	return s.Topo.CompRank
}

// SetRearrOpts overrides the active rearranger flow-control options.
// When forceCollective is set (the caller is binding the collective
// rearranger), flow control is forced off in both directions.
func (s *IOSystem) SetRearrOpts(opts RearrOpts, forceCollective bool) errs.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	if forceCollective {
		opts = ForCollective(opts)
	}
	s.rearrOpts = opts
	return errs.NOERR
}

// RearrOpts returns the active flow-control options.
func (s *IOSystem) RearrOpts() RearrOpts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rearrOpts
}

// DefaultRearranger returns the rearranger algorithm new decompositions
// bind to on this IOSystem unless overridden at InitDecomp time.
func (s *IOSystem) DefaultRearranger() RearrKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rearrKind
}

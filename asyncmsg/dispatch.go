// dispatch.go implements the I/O-side message loop and the compute-side
// send call it pairs with.
//
// Grounded on internal/concurrency/eventloop.go's shape (a registered
// handler table consulted per dequeued event, with the loop driving
// itself until told to stop) generalized from draining a local ring
// buffer to draining one MPI-style receive-then-rearm cycle per message.
package asyncmsg

import (
	"fmt"
	"sync"

	"github.com/parallelio/pario/comm"
)

const (
	tagEnvelope = 10
	tagPayload  = 11
)

// Handler executes one message's logic on the I/O side once its envelope
// and decoded payload are available.
type Handler func(env Envelope, args []Value) error

// Dispatcher is the I/O-side message loop for one connected compute
// component: it posts a receive for the envelope on the I/O root,
// broadcasts it to the rest of the I/O communicator, does the same for
// the payload, decodes it against the message's signature, and invokes
// the registered Handler. The loop exits after MsgFinalize or the
// terminal, local-only MsgExit.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[MsgType]Handler
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[MsgType]Handler)}
}

// Register installs h as the handler for m, replacing any prior handler.
func (d *Dispatcher) Register(m MsgType, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[m] = h
}

// compRootUnion is the union-rank of the compute root: compute ranks are
// always union ranks 0..compSize-1 by comm.NewAsync's layout convention,
// so the root is always union rank 0.
const compRootUnion = 0

// Run drives the dispatch loop on every I/O rank of topo until the
// connected compute component sends MsgFinalize or MsgExit. Every I/O
// rank of topo.IOComm must call Run together.
func (d *Dispatcher) Run(topo *comm.Topology) error {
	if !topo.IOProc {
		return fmt.Errorf("asyncmsg: Run called on a non-I/O rank")
	}
	ioRootUnion := topo.IORanks[0]
	for {
		envBuf := recvOnRootThenBroadcast(topo, ioRootUnion)
		env, err := DecodeEnvelope(envBuf)
		if err != nil {
			return fmt.Errorf("asyncmsg: decoding envelope: %w", err)
		}
		if env.MsgEnum == MsgExit {
			return nil
		}

		payloadBuf := recvOnRootThenBroadcastPayload(topo, ioRootUnion)
		args, err := DecodePayload(SignatureOf(env.MsgEnum), payloadBuf)
		if err != nil {
			return fmt.Errorf("asyncmsg: decoding %s payload: %w", env.MsgEnum, err)
		}

		d.mu.RLock()
		h, ok := d.handlers[env.MsgEnum]
		d.mu.RUnlock()
		if !ok {
			return fmt.Errorf("asyncmsg: no handler registered for %s", env.MsgEnum)
		}
		if err := h(env, args); err != nil {
			return err
		}
		if env.MsgEnum == MsgFinalize {
			return nil
		}
	}
}

func recvOnRootThenBroadcast(topo *comm.Topology, ioRootUnion int) []byte {
	var buf []byte
	if topo.UnionRank == ioRootUnion {
		req, out := topo.Intercomm.Irecv(compRootUnion, topo.UnionRank)
		req.Wait()
		buf = *out
	}
	return topo.IOComm.Bcast(topo.IORank, 0, buf)
}

func recvOnRootThenBroadcastPayload(topo *comm.Topology, ioRootUnion int) []byte {
	var buf []byte
	if topo.UnionRank == ioRootUnion {
		req, out := topo.Intercomm.Irecv(compRootUnion, topo.UnionRank)
		req.Wait()
		buf = *out
	}
	return topo.IOComm.Bcast(topo.IORank, 0, buf)
}

// SendMessage is the compute-side half: the calling rank (which must be
// the compute root; async mode routes every compute entry point through
// it) encodes msg's envelope and args and sends both to the I/O root over
// the intercommunicator.
func SendMessage(topo *comm.Topology, seqNum int64, prevMsg, msg MsgType, args []Value) error {
	payload, err := EncodePayload(SignatureOf(msg), args)
	if err != nil {
		return fmt.Errorf("asyncmsg: encoding %s payload: %w", msg, err)
	}
	env := EncodeEnvelope(Envelope{MsgEnum: msg, SeqNum: seqNum, PrevMsg: prevMsg})
	ioRootUnion := topo.IORanks[0]
	// The I/O root reads envelope and payload from the same channel, so the
	// envelope must be delivered before the payload send is issued.
	topo.Intercomm.Isend(topo.UnionRank, ioRootUnion, tagEnvelope, env).Wait()
	topo.Intercomm.Isend(topo.UnionRank, ioRootUnion, tagPayload, payload).Wait()
	return nil
}

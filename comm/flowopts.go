package comm

// FlowOpts configures one direction of a flow-controlled exchange.
// Rearrangers keep one FlowOpts per direction (compute->io and
// io->compute).
type FlowOpts struct {
	Handshake          bool
	Isend              bool
	MaxPendingRequests int // 0 means unlimited
}

// DefaultFlowOpts mirrors the library defaults: no handshake, isend on, no
// pending-request cap.
func DefaultFlowOpts() FlowOpts {
	return FlowOpts{Handshake: false, Isend: true, MaxPendingRequests: 0}
}

// ForCollective returns opts with flow control forced off in both
// directions: choosing the collective rearranger always disables
// handshake and pending caps.
func ForCollective(opts FlowOpts) FlowOpts {
	opts.Handshake = false
	opts.MaxPendingRequests = 0
	return opts
}

// Unbounded reports whether opts degenerates swapm to a plain
// all-to-all-w (handshake off and pending unlimited).
func (o FlowOpts) Unbounded() bool {
	return !o.Handshake && o.MaxPendingRequests <= 0
}

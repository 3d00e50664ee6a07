// dispatch.go implements backend selection and the create/open policies
// the dispatch layer owns, grounded on server/hioload.go's New(cfg)
// constructor: there, a DPDK transport is attempted first and, on
// failure, the error is logged and construction retries with the plain
// transport instead of propagating; here, a parallel backend's failed
// open is retried against the serial backend under the same "log and
// fall back" shape, but only when the caller opted in.
package backend

import "fmt"

// OpenFunc is the (possibly failing) attempt to bring up one backend
// kind; Dispatch calls it once for the requested kind and, on a retried
// failure, again for the serial fallback.
type OpenFunc func(kind Kind, mode CreateMode, role Role) (Backend, error)

// Dispatch resolves kind/mode into a live Backend. If kind's open fails
// and retry is true, it masks the flags a serial fallback can't honor
// and retries once against Classic (the universal serial backend); the
// resulting Kind may differ from the one requested, which the caller
// (pio.File) surfaces via its own iotype field rather than silently
// hiding.
func Dispatch(kind Kind, mode CreateMode, role Role, retry bool, open OpenFunc) (Backend, Kind, CreateMode, error) {
	mode = maskUnsupportedFlags(kind, mode)
	be, err := open(kind, mode, role)
	if err == nil {
		return be, kind, mode, nil
	}
	if !retry {
		return nil, kind, mode, err
	}
	fallbackKind := KindClassic
	fallbackMode := maskUnsupportedFlags(fallbackKind, mode)
	be2, err2 := open(fallbackKind, fallbackMode, role)
	if err2 != nil {
		return nil, kind, mode, fmt.Errorf("backend: retry-open fallback to %s also failed: %w (original: %v)", fallbackKind, err2, err)
	}
	return be2, fallbackKind, fallbackMode, nil
}

// maskUnsupportedFlags silently drops create-mode flags a backend
// rejects outright rather than surfacing an error for them: the v4
// backends here reject the 64-bit-offset/64-bit-data classic-format
// flags, so those bits are cleared before open ever sees them.
func maskUnsupportedFlags(kind Kind, mode CreateMode) CreateMode {
	switch kind {
	case KindV4Serial, KindV4Parallel:
		mode &^= Mode64BitOffset
		mode &^= Mode64BitData
	}
	return mode
}

// Hints are the implementation hints set on create for the
// parallel-classic backend: alignment for the header and variable data
// sections, whether collective buffering is requested, whether
// byte-swapped reads/writes happen in place versus through a scratch
// buffer, and the size of the backend's internal pending-write buffer.
type Hints struct {
	Alignment         int64
	CollectiveBuffer  bool
	InPlaceByteSwap   bool
	PendingBufferSize int64
}

// DefaultHints returns the hint set New applies to a parallel-classic
// backend when the caller doesn't override them.
func DefaultHints() Hints {
	return Hints{
		Alignment:         4096,
		CollectiveBuffer:  true,
		InPlaceByteSwap:   false,
		PendingBufferSize: 16 << 20,
	}
}

// New constructs the concrete Backend for kind, applying role where the
// backend's access rule depends on it. hints is consulted only for
// KindParallelClassic; every other kind ignores it.
func New(kind Kind, role Role, hints Hints) (Backend, error) {
	switch kind {
	case KindClassic:
		return NewClassic(), nil
	case KindParallelClassic:
		pc := NewParallelClassic(role)
		pc.hints = hints
		return pc, nil
	case KindV4Serial:
		return NewV4Serial(role), nil
	case KindV4Parallel:
		return NewV4Parallel(role), nil
	case KindLogStructured:
		return NewLogStructured(), nil
	default:
		return nil, fmt.Errorf("backend: unknown kind %d", kind)
	}
}

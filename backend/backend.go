// Package backend implements the pluggable storage backends a File
// dispatches its calls to, and the dispatch layer that opens/creates one
// per file, retries on the serial backend when asked, and masks create
// flags a backend silently can't honor.
//
// The concrete wire formats themselves are out of scope (they're treated
// as external collaborators with narrow contracts); what's built here is
// the contract — def_dim/def_var/inq_*/put_*/get_*/enddef/redef/sync/
// close/wait_all — and enough of an in-memory store behind it to exercise
// every backend's access rule.
package backend

import (
	"fmt"

	"github.com/parallelio/pario/errs"
	"github.com/parallelio/pario/iotype"
)

// Kind selects which concrete backend a file is bound to.
type Kind int

const (
	KindClassic Kind = iota
	KindParallelClassic
	KindV4Serial
	KindV4Parallel
	KindLogStructured
)

func (k Kind) String() string {
	switch k {
	case KindClassic:
		return "classic"
	case KindParallelClassic:
		return "parallel-classic"
	case KindV4Serial:
		return "v4-serial"
	case KindV4Parallel:
		return "v4-parallel"
	case KindLogStructured:
		return "log-structured"
	default:
		return "unknown"
	}
}

// CreateMode mirrors the create/open mode flags a caller passes through
// to File.Create/Open.
type CreateMode uint32

const (
	ModeWrite CreateMode = 1 << iota
	ModeClobber
	Mode64BitOffset
	Mode64BitData
	ModeIndependent
)

func (m CreateMode) Has(f CreateMode) bool { return m&f != 0 }

// Role tells a backend instance what this rank is allowed to do: whether
// it is the I/O-communicator master (do_io for serial backends) and
// whether the file was opened in independent mode (relaxes
// ParallelClassic's master-only restriction).
type Role struct {
	IOMaster    bool
	Independent bool
}

// VarInfo is what Backend.InqVar reports back about one defined variable.
type VarInfo struct {
	Name   string
	Type   iotype.Type
	DimIDs []int
}

// Backend is the call menu a dispatched file forwards to. Every method may return
// an *errs.Error carrying errs.EBADID/EINVAL/etc; callers that need the
// code use errs.CodeOf.
type Backend interface {
	Kind() Kind

	DefDim(name string, length int64) (int, error)
	DefVar(name string, ty iotype.Type, dimids []int) (int, error)
	InqVarid(name string) (int, error)
	InqVar(varid int) (VarInfo, error)

	PutVars(varid int, start, count, stride []int64, memtype iotype.Type, data []byte) error
	GetVars(varid int, start, count, stride []int64, memtype iotype.Type) ([]byte, error)
	PutAtt(varid int, name string, memtype iotype.Type, data []byte) error
	GetAtt(varid int, name string, memtype iotype.Type) ([]byte, error)

	Redef() error
	EndDef() error
	Sync() error
	Close() error

	// WaitAll completes a batch of previously-issued asynchronous
	// requests (the buffered nonblocking puts ParallelClassic issues;
	// see reqblock.Planner.Flush). Backends with no async path treat
	// it as a no-op.
	WaitAll(handles []int) error
}

// errNotWriter is returned by a PutVars/DefVar/DefDim call made on a rank
// the backend's access rule excludes (a non-master rank of a serial
// backend, or a non-independent ParallelClassic rank that isn't the
// I/O-master).
func errNotWriter(kind Kind) error {
	return errs.New(errs.EINVAL, fmt.Sprintf("backend(%s): write call on non-writer rank", kind))
}

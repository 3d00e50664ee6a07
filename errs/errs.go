// Package errs implements the uniform error code space shared by every
// package in pario: positive codes pass through host errno values, zero is
// success, a dedicated internal band covers library errors, and strongly
// negative codes are reserved for backend-reported failures.
//
// Grounded on api/errors.go's Error/ErrorCode shape, generalized from a
// flat library-error enum to a three-region code space.
package errs

import "fmt"

// Code is the library-wide error code. Zero is success. Positive values
// are reserved for host errno passthrough. Values at or below internalBase
// are library-internal. Values below backendBase are backend-reported.
type Code int32

const (
	NOERR Code = 0

	internalBase Code = -1000
	backendBase  Code = -2000
)

// Library-internal error codes.
const (
	EBADID     Code = internalBase - iota // bad iosysid/ioid/ncid/varid
	EBADTYPE                              // unknown primitive type
	EBADIOTYPE                            // unknown/unsupported iotype
	EINVAL                                // bad argument
	ENOMEM                                // allocation failure
	ENOTATT                               // attribute not found
	EIO                                   // generic I/O / MPI-surfaced error
	EEXIST                                // resource already exists
	EMAXATTS                              // attribute limit reached
	EADIOSREAD                            // ADIOS-style read error
	EADIOS2ERR                            // ADIOS2-style backend error
	EBADLOG                               // log-backend error
)

// messages holds the human string for every named internal code. Backend
// codes (< backendBase) and errno passthrough (> 0) are not listed here;
// Strerror synthesizes a message for those instead.
var messages = map[Code]string{
	NOERR:      "no error",
	EBADID:     "bad handle id",
	EBADTYPE:   "unknown primitive type",
	EBADIOTYPE: "unsupported iotype",
	EINVAL:     "invalid argument",
	ENOMEM:     "out of memory",
	ENOTATT:    "attribute not found",
	EIO:        "I/O error",
	EEXIST:     "resource already exists",
	EMAXATTS:   "maximum number of attributes exceeded",
	EADIOSREAD: "ADIOS read error",
	EADIOS2ERR: "ADIOS2 backend error",
	EBADLOG:    "log backend error",
}

// Strerror returns a short human-readable string for any Code, including
// errno passthrough and out-of-range backend codes.
func Strerror(c Code) string {
	if c == NOERR {
		return messages[NOERR]
	}
	if msg, ok := messages[c]; ok {
		return msg
	}
	if c > 0 {
		return fmt.Sprintf("system error %d", int32(c))
	}
	if c < backendBase {
		return fmt.Sprintf("backend error %d", int32(c))
	}
	return fmt.Sprintf("unknown library error %d", int32(c))
}

// Error adapts a Code to the standard error interface, optionally carrying
// call-site context (file, varid, call) for the one-line stderr message
// on the I/O root.
type Error struct {
	Code    Code
	File    string
	VarID   int
	HasVar  bool
	Call    string
}

func (e *Error) Error() string {
	msg := Strerror(e.Code)
	switch {
	case e.Call != "" && e.HasVar:
		return fmt.Sprintf("%s: file=%q varid=%d: %s", e.Call, e.File, e.VarID, msg)
	case e.Call != "" && e.File != "":
		return fmt.Sprintf("%s: file=%q: %s", e.Call, e.File, msg)
	case e.Call != "":
		return fmt.Sprintf("%s: %s", e.Call, msg)
	default:
		return msg
	}
}

// New builds an *Error for the given call site.
func New(code Code, call string) *Error {
	return &Error{Code: code, Call: call}
}

// WithFile attaches a file name to the error.
func (e *Error) WithFile(name string) *Error {
	e.File = name
	return e
}

// WithVar attaches a varid to the error.
func (e *Error) WithVar(varid int) *Error {
	e.VarID = varid
	e.HasVar = true
	return e
}

// CodeOf extracts the Code from any error produced by this package, or
// EIO if err is a non-nil foreign error, or NOERR if err is nil.
func CodeOf(err error) Code {
	if err == nil {
		return NOERR
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return EIO
}

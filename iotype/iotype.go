// Package iotype implements pario's closed primitive-type registry: the
// fixed set of primitive element types, their on-disk and in-memory
// sizes, and the datatype handle a backend or rearranger would hand to a
// real transport layer in place of an MPI datatype.
//
// Grounded on the closed-enum, fixed-table style of
// core/protocol/constants.go (opcode/close-code tables with one
// authoritative definition site).
package iotype

import "fmt"

// Type is a primitive element type. The set is closed: pario never exposes
// arbitrary user-defined types, only this fixed list.
type Type int32

const (
	// NAT ("not a type") means "use the variable's declared on-disk type".
	NAT Type = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
	Char

	// platformLong is a reserved internal tag used transiently during type
	// conversion; it is never returned by any public lookup.
	platformLong
)

func (t Type) String() string {
	switch t {
	case NAT:
		return "nat"
	case Int8:
		return "int8"
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	case Int64:
		return "int64"
	case Uint64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Char:
		return "char"
	default:
		return fmt.Sprintf("type(%d)", int32(t))
	}
}

// sizes holds {on-disk, in-memory} byte widths. The on-disk width is fixed
// by the storage format regardless of host layout (the on-disk "short" is
// always 2 bytes even where the host C "short" is 4).
var sizes = map[Type][2]int{
	Int8:    {1, 1},
	Uint8:   {1, 1},
	Int16:   {2, 2},
	Uint16:  {2, 2},
	Int32:   {4, 4},
	Uint32:  {4, 4},
	Int64:   {8, 8},
	Uint64:  {8, 8},
	Float32: {4, 4},
	Float64: {8, 8},
	Char:    {1, 1},
}

// DiskSize returns the on-disk byte width of t.
func DiskSize(t Type) (int, error) {
	s, ok := sizes[t]
	if !ok {
		return 0, fmt.Errorf("iotype: unknown type %v", t)
	}
	return s[0], nil
}

// MemSize returns the in-memory byte width of t on this host.
func MemSize(t Type) (int, error) {
	s, ok := sizes[t]
	if !ok {
		return 0, fmt.Errorf("iotype: unknown type %v", t)
	}
	return s[1], nil
}

// Valid reports whether t is one of the closed primitive types (excluding
// NAT and the internal platformLong tag).
func Valid(t Type) bool {
	_, ok := sizes[t]
	return ok
}

// DType is the datatype handle a rearranger or backend passes down in
// place of a real MPI_Datatype.
type DType struct {
	Elem  Type
	Count int // element datatype repeated Count times (indexed datatype arity)
}

// MPIDatatype returns the datatype handle for a single element of t. Real
// backends/transports would map this 1:1 to MPI_INT, MPI_DOUBLE, etc.
func MPIDatatype(t Type) DType { return DType{Elem: t, Count: 1} }

// Resolve returns declared if requested is NAT, else requested, enforcing
// that NAT only ever resolves to one of the closed primitive types.
func Resolve(requested, declared Type) (Type, error) {
	t := requested
	if t == NAT {
		t = declared
	}
	if !Valid(t) {
		return NAT, fmt.Errorf("iotype: unresolved or invalid type %v", t)
	}
	return t, nil
}

// Package asyncmsg implements the async message protocol: the fixed
// message enum compute ranks use to drive I/O ranks when the two groups
// are disjoint, each message's typed argument signature, the envelope
// wire format, and the I/O-side dispatch loop.
//
// The original signature table is a compact character string
// ("iioS...") parsed at dispatch time; here it is instead a compile-time
// Signature built from typed Param descriptors, so a mismatch between a
// message's declared shape and the values passed to Encode/Decode is
// caught as a returned error at the call site instead of by a runtime
// format-string walk (see DESIGN.md's Open Question decision).
package asyncmsg

// ElemKind is the primitive shape one Param carries, independent of
// whether it is a scalar or the element type of a length-prefixed array.
type ElemKind int

const (
	KindInt32 ElemKind = iota
	KindOffset          // 64-bit
	KindFloat32
	KindByte
	KindChar
)

// LenWidth is the width of an array parameter's length prefix.
type LenWidth int

const (
	LenInt32 LenWidth = iota
	LenOffset
)

// Param describes one positional argument of a message.
type Param struct {
	Name string

	// IsArray selects between a bare scalar (Kind applies directly) and
	// a length-prefixed array (Kind is the element type, LenWidth is
	// the prefix width).
	IsArray  bool
	Kind     ElemKind
	LenWidth LenWidth

	// Owned is meaningful only for IsArray params: true means the
	// receiver already owns storage for the payload (the s/S case in
	// the original signature alphabet), false means the receiver must
	// allocate fresh storage to decode into (the m/M case).
	Owned bool
}

func Int32(name string) Param   { return Param{Name: name, Kind: KindInt32} }
func Offset(name string) Param  { return Param{Name: name, Kind: KindOffset} }
func Float32(name string) Param { return Param{Name: name, Kind: KindFloat32} }
func Byte(name string) Param    { return Param{Name: name, Kind: KindByte} }

// OwnedBuf describes a caller-owned length-prefixed buffer (the s/S
// case): the receiver already has storage sized for it.
func OwnedBuf(name string, elem ElemKind, lw LenWidth) Param {
	return Param{Name: name, IsArray: true, Kind: elem, LenWidth: lw, Owned: true}
}

// AllocBuf describes a length-prefixed buffer the receiver must allocate
// (the m/M case).
func AllocBuf(name string, elem ElemKind, lw LenWidth) Param {
	return Param{Name: name, IsArray: true, Kind: elem, LenWidth: lw, Owned: false}
}

// Signature is a message's full positional argument list.
type Signature []Param

// Value is the decoded (or to-be-encoded) form of one Param. Exactly one
// field is meaningful per Param's Kind/IsArray combination.
type Value struct {
	I32   int32
	I64   int64 // Offset scalar
	F32   float32
	B     byte
	Bytes []byte // array/char payload, length-derived from the wire prefix
}

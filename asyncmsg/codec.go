// codec.go implements the envelope and payload wire encoding, grounded on
// the explicit big-endian, length-prefixed framing in
// core/protocol/frame_codec.go (there: a WebSocket frame's opcode byte
// plus an escalating-width payload-length prefix; here: a fixed
// msg_enum/seq_num/prev_msg header plus one length-prefixed field per
// array Param).
package asyncmsg

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Envelope is broadcast from the compute root to every I/O rank before
// the payload: the message being sent, a monotonic per-iosystem sequence
// number the I/O side uses to detect lost messages, and the previous
// message sent (a defensive assertion aid).
type Envelope struct {
	MsgEnum MsgType
	SeqNum  int64
	PrevMsg MsgType
}

const envelopeSize = 4 + 8 + 4

func EncodeEnvelope(e Envelope) []byte {
	b := make([]byte, envelopeSize)
	binary.BigEndian.PutUint32(b[0:4], uint32(e.MsgEnum))
	binary.BigEndian.PutUint64(b[4:12], uint64(e.SeqNum))
	binary.BigEndian.PutUint32(b[12:16], uint32(e.PrevMsg))
	return b
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) < envelopeSize {
		return Envelope{}, fmt.Errorf("asyncmsg: envelope too short: %d bytes", len(b))
	}
	return Envelope{
		MsgEnum: MsgType(binary.BigEndian.Uint32(b[0:4])),
		SeqNum:  int64(binary.BigEndian.Uint64(b[4:12])),
		PrevMsg: MsgType(binary.BigEndian.Uint32(b[12:16])),
	}, nil
}

// EncodePayload serializes vals against sig, in order. len(vals) must
// equal len(sig); a Value's populated field must match its Param's Kind.
func EncodePayload(sig Signature, vals []Value) ([]byte, error) {
	if len(vals) != len(sig) {
		return nil, fmt.Errorf("asyncmsg: signature has %d params, got %d values", len(sig), len(vals))
	}
	var out []byte
	for i, p := range sig {
		v := vals[i]
		if !p.IsArray {
			switch p.Kind {
			case KindInt32:
				out = append(out, be32(uint32(v.I32))...)
			case KindOffset:
				out = append(out, be64(uint64(v.I64))...)
			case KindFloat32:
				out = append(out, be32(math.Float32bits(v.F32))...)
			case KindByte:
				out = append(out, v.B)
			default:
				return nil, fmt.Errorf("asyncmsg: param %q: unsupported scalar kind", p.Name)
			}
			continue
		}
		switch p.LenWidth {
		case LenInt32:
			out = append(out, be32(uint32(len(v.Bytes)))...)
		case LenOffset:
			out = append(out, be64(uint64(len(v.Bytes)))...)
		}
		out = append(out, v.Bytes...)
	}
	return out, nil
}

// DecodePayload is EncodePayload's inverse.
func DecodePayload(sig Signature, b []byte) ([]Value, error) {
	vals := make([]Value, len(sig))
	for i, p := range sig {
		var v Value
		if !p.IsArray {
			switch p.Kind {
			case KindInt32:
				if len(b) < 4 {
					return nil, fmt.Errorf("asyncmsg: param %q: short int32", p.Name)
				}
				v.I32 = int32(binary.BigEndian.Uint32(b))
				b = b[4:]
			case KindOffset:
				if len(b) < 8 {
					return nil, fmt.Errorf("asyncmsg: param %q: short offset", p.Name)
				}
				v.I64 = int64(binary.BigEndian.Uint64(b))
				b = b[8:]
			case KindFloat32:
				if len(b) < 4 {
					return nil, fmt.Errorf("asyncmsg: param %q: short float32", p.Name)
				}
				v.F32 = math.Float32frombits(binary.BigEndian.Uint32(b))
				b = b[4:]
			case KindByte:
				if len(b) < 1 {
					return nil, fmt.Errorf("asyncmsg: param %q: short byte", p.Name)
				}
				v.B = b[0]
				b = b[1:]
			default:
				return nil, fmt.Errorf("asyncmsg: param %q: unsupported scalar kind", p.Name)
			}
			vals[i] = v
			continue
		}
		var n int
		switch p.LenWidth {
		case LenInt32:
			if len(b) < 4 {
				return nil, fmt.Errorf("asyncmsg: param %q: short array length", p.Name)
			}
			n = int(binary.BigEndian.Uint32(b))
			b = b[4:]
		case LenOffset:
			if len(b) < 8 {
				return nil, fmt.Errorf("asyncmsg: param %q: short array length", p.Name)
			}
			n = int(binary.BigEndian.Uint64(b))
			b = b[8:]
		}
		if len(b) < n {
			return nil, fmt.Errorf("asyncmsg: param %q: short array payload", p.Name)
		}
		v.Bytes = append([]byte(nil), b[:n]...)
		b = b[n:]
		vals[i] = v
	}
	return vals, nil
}

func be32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func be64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

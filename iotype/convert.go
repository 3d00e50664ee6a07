package iotype

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ConvertElems converts n elements of type from to type to, reading from
// src (which must hold at least n*MemSize(from) bytes) and returning a
// freshly allocated slice of n*MemSize(to) bytes. No other package in the
// module calls it.
func ConvertElems(from, to Type, n int, src []byte) ([]byte, error) {
	if from == to {
		out := make([]byte, len(src))
		copy(out, src)
		return out, nil
	}
	fsz, err := MemSize(from)
	if err != nil {
		return nil, err
	}
	tsz, err := MemSize(to)
	if err != nil {
		return nil, err
	}
	if len(src) < n*fsz {
		return nil, fmt.Errorf("iotype: short source buffer: have %d need %d", len(src), n*fsz)
	}
	out := make([]byte, n*tsz)
	for i := 0; i < n; i++ {
		v, err := decodeFloat64(from, src[i*fsz:(i+1)*fsz])
		if err != nil {
			return nil, err
		}
		if err := encodeFloat64(to, v, out[i*tsz:(i+1)*tsz]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// decodeFloat64 widens any primitive element to a float64. Integer values
// are exact up to 2^53 in magnitude; larger Int64/Uint64 values are
// rounded to the nearest float64.
func decodeFloat64(t Type, b []byte) (float64, error) {
	switch t {
	case Int8:
		return float64(int8(b[0])), nil
	case Uint8, Char:
		return float64(b[0]), nil
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(b))), nil
	case Uint16:
		return float64(binary.LittleEndian.Uint16(b)), nil
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(b))), nil
	case Uint32:
		return float64(binary.LittleEndian.Uint32(b)), nil
	case Int64:
		return float64(int64(binary.LittleEndian.Uint64(b))), nil
	case Uint64:
		return float64(binary.LittleEndian.Uint64(b)), nil
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	default:
		return 0, fmt.Errorf("iotype: cannot decode type %v", t)
	}
}

func encodeFloat64(t Type, v float64, out []byte) error {
	switch t {
	case Int8:
		out[0] = byte(int8(v))
	case Uint8, Char:
		out[0] = byte(uint8(v))
	case Int16:
		binary.LittleEndian.PutUint16(out, uint16(int16(v)))
	case Uint16:
		binary.LittleEndian.PutUint16(out, uint16(v))
	case Int32:
		binary.LittleEndian.PutUint32(out, uint32(int32(v)))
	case Uint32:
		binary.LittleEndian.PutUint32(out, uint32(v))
	case Int64:
		binary.LittleEndian.PutUint64(out, uint64(int64(v)))
	case Uint64:
		binary.LittleEndian.PutUint64(out, uint64(v))
	case Float32:
		binary.LittleEndian.PutUint32(out, math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(out, math.Float64bits(v))
	default:
		return fmt.Errorf("iotype: cannot encode type %v", t)
	}
	return nil
}

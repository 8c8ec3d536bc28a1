package pkg

import (
	"encoding/binary"
	"math"
)

// targetOrder is the byte order of every multi-byte value in the output,
// whatever the host order is.
var targetOrder = binary.BigEndian

// TargetOrder returns the byte order used for emitted values.
func TargetOrder() binary.ByteOrder {
	return targetOrder
}

// Scalar is the set of types Write can encode.
type Scalar interface {
	uint8 | uint16 | uint32 | uint64 | int8 | int16 | int32 | int64 | float32 | float64
}

// Write appends v at the cursor in target byte order. Floats are written
// as their IEEE-754 bit patterns.
func Write[T Scalar](w *BinaryWriter, v T) {
	switch x := any(v).(type) {
	case uint8:
		w.extend(1)[0] = x
	case int8:
		w.extend(1)[0] = uint8(x)
	case uint16:
		targetOrder.PutUint16(w.extend(2), x)
	case int16:
		targetOrder.PutUint16(w.extend(2), uint16(x))
	case uint32:
		targetOrder.PutUint32(w.extend(4), x)
	case int32:
		targetOrder.PutUint32(w.extend(4), uint32(x))
	case uint64:
		targetOrder.PutUint64(w.extend(8), x)
	case int64:
		targetOrder.PutUint64(w.extend(8), uint64(x))
	case float32:
		targetOrder.PutUint32(w.extend(4), math.Float32bits(x))
	case float64:
		targetOrder.PutUint64(w.extend(8), math.Float64bits(x))
	}
}

// WriteArray writes each item in order.
func WriteArray[T Scalar](w *BinaryWriter, items []T) {
	for _, v := range items {
		Write(w, v)
	}
}

func (c *BinaryWriter) WriteUint8(v uint8)     { Write(c, v) }
func (c *BinaryWriter) WriteUint16(v uint16)   { Write(c, v) }
func (c *BinaryWriter) WriteUint32(v uint32)   { Write(c, v) }
func (c *BinaryWriter) WriteUint64(v uint64)   { Write(c, v) }
func (c *BinaryWriter) WriteFloat32(v float32) { Write(c, v) }

package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/luphord/remcall/schema"
)

// Writer encodes the primitive wire types to an underlying byte stream.
type Writer struct {
	out    io.Writer
	offset int64
}

// NewWriter wraps out for primitive encoding.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Offset returns the number of bytes written so far.
func (w *Writer) Offset() int64 { return w.offset }

func (w *Writer) writeRaw(b []byte) error {
	n, err := w.out.Write(b)
	w.offset += int64(n)
	return err
}

func (w *Writer) WriteInt8(v int8) error { return w.writeRaw([]byte{byte(v)}) }

func (w *Writer) WriteUint8(v uint8) error { return w.writeRaw([]byte{v}) }

func (w *Writer) WriteInt16(v int16) error {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(v))
	return w.writeRaw(b)
}

func (w *Writer) WriteUint16(v uint16) error {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return w.writeRaw(b)
}

func (w *Writer) WriteInt32(v int32) error {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return w.writeRaw(b)
}

func (w *Writer) WriteUint32(v uint32) error {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return w.writeRaw(b)
}

func (w *Writer) WriteInt64(v int64) error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return w.writeRaw(b)
}

func (w *Writer) WriteUint64(v uint64) error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return w.writeRaw(b)
}

func (w *Writer) WriteFloat32(v float32) error {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, math.Float32bits(v))
	return w.writeRaw(b)
}

func (w *Writer) WriteFloat64(v float64) error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(v))
	return w.writeRaw(b)
}

// WriteSignedInteger writes a two's-complement signed integer in nbytes
// bytes (1, 2, 4 or 8), failing if v does not fit in that width.
func (w *Writer) WriteSignedInteger(v int64, nbytes int) error {
	if nbytes == 1 || nbytes == 2 || nbytes == 4 {
		limit := int64(1) << (8*nbytes - 1)
		if v < -limit || v >= limit {
			return fmt.Errorf("codec: %d does not fit in a %d-byte signed integer", v, nbytes)
		}
	}
	switch nbytes {
	case 1:
		return w.WriteInt8(int8(v))
	case 2:
		return w.WriteInt16(int16(v))
	case 4:
		return w.WriteInt32(int32(v))
	case 8:
		return w.WriteInt64(v)
	default:
		return fmt.Errorf("codec: integers must be 1, 2, 4 or 8 bytes long, got %d", nbytes)
	}
}

// WriteUnsignedInteger writes an unsigned integer in nbytes bytes (1, 2, 4
// or 8), failing if v does not fit in that width.
func (w *Writer) WriteUnsignedInteger(v uint64, nbytes int) error {
	if (nbytes == 1 || nbytes == 2 || nbytes == 4) && v >= uint64(1)<<(8*nbytes) {
		return fmt.Errorf("codec: %d does not fit in a %d-byte unsigned integer", v, nbytes)
	}
	switch nbytes {
	case 1:
		return w.WriteUint8(uint8(v))
	case 2:
		return w.WriteUint16(uint16(v))
	case 4:
		return w.WriteUint32(uint32(v))
	case 8:
		return w.WriteUint64(v)
	default:
		return fmt.Errorf("codec: integers must be 1, 2, 4 or 8 bytes long, got %d", nbytes)
	}
}

// WriteBytes writes a uint32 length prefix followed by the raw bytes.
func (w *Writer) WriteBytes(b []byte) error {
	if err := w.WriteUint32(uint32(len(b))); err != nil {
		return err
	}
	return w.writeRaw(b)
}

// WriteString writes a length-prefixed UTF-8 string.
func (w *Writer) WriteString(s string) error {
	return w.WriteBytes([]byte(s))
}

// WriteName validates s as a schema identifier, then writes it as a
// length-prefixed string.
func (w *Writer) WriteName(s string) error {
	if err := schema.ValidateName(s); err != nil {
		return err
	}
	return w.WriteString(s)
}

// WriteTypeRef writes a signed 32-bit type index.
func (w *Writer) WriteTypeRef(index int32) error {
	return w.WriteInt32(index)
}

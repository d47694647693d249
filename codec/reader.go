package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/luphord/remcall"
	"github.com/luphord/remcall/schema"
)

// Reader decodes the primitive wire types from an underlying byte stream,
// tracking the byte offset so that short-read errors can name where in the
// stream they occurred.
type Reader struct {
	in     io.Reader
	offset int64
}

// NewReader wraps in for primitive decoding.
func NewReader(in io.Reader) *Reader {
	return &Reader{in: in}
}

// Offset returns the number of bytes read so far.
func (r *Reader) Offset() int64 { return r.offset }

func (r *Reader) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := io.ReadFull(r.in, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	if got != n {
		return nil, &remcall.ShortReadError{Requested: n, Got: got, Offset: r.offset}
	}
	r.offset += int64(got)
	return buf, nil
}

// ReadConstant reads len(want) bytes and fails if they do not match want.
func (r *Reader) ReadConstant(want []byte) error {
	got, err := r.readN(len(want))
	if err != nil {
		return err
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("codec: expected %q at offset 0x%x, got %q", want, r.offset-int64(len(want)), got)
		}
	}
	return nil
}

func (r *Reader) ReadInt8() (int8, error) {
	b, err := r.readN(1)
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadInt16() (int16, error) {
	b, err := r.readN(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.readN(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *Reader) ReadInt64() (int64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *Reader) ReadFloat32() (float32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
}

func (r *Reader) ReadFloat64() (float64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// ReadSignedInteger reads a two's-complement signed integer of nbytes bytes
// (1, 2, 4 or 8), used for object references whose width is fixed
// per-schema rather than per-value.
func (r *Reader) ReadSignedInteger(nbytes int) (int64, error) {
	switch nbytes {
	case 1:
		v, err := r.ReadInt8()
		return int64(v), err
	case 2:
		v, err := r.ReadInt16()
		return int64(v), err
	case 4:
		v, err := r.ReadInt32()
		return int64(v), err
	case 8:
		return r.ReadInt64()
	default:
		return 0, fmt.Errorf("codec: integers must be 1, 2, 4 or 8 bytes long, got %d", nbytes)
	}
}

// ReadUnsignedInteger reads an unsigned integer of nbytes bytes (1, 2, 4 or
// 8), used for method references.
func (r *Reader) ReadUnsignedInteger(nbytes int) (uint64, error) {
	switch nbytes {
	case 1:
		v, err := r.ReadUint8()
		return uint64(v), err
	case 2:
		v, err := r.ReadUint16()
		return uint64(v), err
	case 4:
		v, err := r.ReadUint32()
		return uint64(v), err
	case 8:
		return r.ReadUint64()
	default:
		return 0, fmt.Errorf("codec: integers must be 1, 2, 4 or 8 bytes long, got %d", nbytes)
	}
}

// ReadBytes reads a uint32 length prefix followed by that many raw bytes.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	return r.readN(int(n))
}

// ReadString reads a length-prefixed UTF-8 string.
func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadName reads a length-prefixed string and validates it as a schema
// identifier.
func (r *Reader) ReadName() (string, error) {
	s, err := r.ReadString()
	if err != nil {
		return "", err
	}
	if err := schema.ValidateName(s); err != nil {
		return "", err
	}
	return s, nil
}

// ReadTypeRef reads a signed 32-bit type index as used in schema frames
// (positive for the declaring type, negated for its array, relative to the
// primitive/declared-type table).
func (r *Reader) ReadTypeRef() (int32, error) {
	return r.ReadInt32()
}

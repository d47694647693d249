package communication

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/luphord/remcall/codec"
	"github.com/luphord/remcall/registry"
	"github.com/luphord/remcall/schema"
)

// Sender serializes outgoing frames to a byte stream. A single mutex
// serializes every write so that a frame's bytes are never interleaved
// with another goroutine's frame, mirroring the way eventsocket's Server
// guards concurrent writers to its client connections with one mutex.
type Sender struct {
	mu     sync.Mutex
	w      *codec.Writer
	out    io.Writer
	schema *schema.Schema
	store  *registry.ReferenceStore

	serializedSchema []byte
	requestID        uint32
}

// NewSender prepares a Sender writing frames for s to out, resolving
// object references through store.
func NewSender(out io.Writer, s *schema.Schema, store *registry.ReferenceStore) (*Sender, error) {
	serialized, err := codec.SchemaBytes(s)
	if err != nil {
		return nil, fmt.Errorf("communication: serializing schema for sender: %w", err)
	}
	return &Sender{
		w:                codec.NewWriter(out),
		out:              out,
		schema:           s,
		store:            store,
		serializedSchema: serialized,
	}, nil
}

func (s *Sender) writeCommand(cmd byte) error {
	if err := s.w.WriteUint8(cmd); err != nil {
		return err
	}
	if f, ok := s.out.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// flusher is implemented by buffered transports (bufio.Writer and this
// module's own transport.FlushWriter) that need an explicit Flush call
// after every frame.
type flusher interface {
	Flush() error
}

func (s *Sender) nextRequestID() uint32 {
	s.requestID++
	return s.requestID
}

// Noop writes a NOOP frame.
func (s *Sender) Noop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeCommand(codec.CmdNoop)
}

// RequestSchema asks the peer to send its schema.
func (s *Sender) RequestSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeCommand(codec.CmdRequestSchema)
}

// SendSchema sends this side's serialized schema.
func (s *Sender) SendSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.WriteUint8(codec.CmdSendSchema); err != nil {
		return err
	}
	if _, err := s.out.Write(s.serializedSchema); err != nil {
		return err
	}
	if f, ok := s.out.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// Disconnect writes a DISCONNECT frame, requesting a graceful shutdown.
func (s *Sender) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log.Println("communication: sending DISCONNECT")
	return s.writeCommand(codec.CmdDisconnect)
}

// AcknowledgeDisconnect writes an ACKNOWLEDGE_DISCONNECT frame in reply to
// a peer's DISCONNECT.
func (s *Sender) AcknowledgeDisconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log.Println("communication: acknowledging disconnect")
	return s.writeCommand(codec.CmdAcknowledgeDisconnect)
}

// AllocateRequestID returns the next request ID, which the peer must echo
// back in its RETURN_FROM_METHOD or METHOD_ERROR frame; it writes nothing.
// The request ID is allocated and returned to the caller up front, before
// CallMethod writes the frame (see Bridge.CallMethod),
// so a waiter can be registered before the frame reaches the wire: on a
// duplex stream the peer could otherwise reply before this call returns.
func (s *Sender) AllocateRequestID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRequestID()
}

// CallMethod writes a CALL_METHOD frame for requestID (from
// AllocateRequestID), requesting method be invoked on this with args keyed
// by argument name.
func (s *Sender) CallMethod(requestID uint32, method *schema.Method, this any, args map[string]any) error {
	ordinal, ok := s.schema.MethodOrdinal(method)
	if !ok {
		return fmt.Errorf("communication: method %q does not belong to this schema", method.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.w.WriteUint8(codec.CmdCallMethod); err != nil {
		return err
	}
	if err := s.w.WriteUint32(requestID); err != nil {
		return err
	}
	if err := s.w.WriteUnsignedInteger(uint64(ordinal), s.schema.BytesMethodRef); err != nil {
		return err
	}
	if err := s.writeObjectRef(this); err != nil {
		return err
	}
	for _, arg := range method.Arguments {
		if err := s.writeValue(arg.Type, args[arg.Name]); err != nil {
			return fmt.Errorf("communication: writing argument %q of method %q: %w", arg.Name, method.Name, err)
		}
	}
	if f, ok := s.out.(flusher); ok {
		if err := f.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// ReturnMethod writes a RETURN_FROM_METHOD frame carrying the result of a
// previously requested call.
func (s *Sender) ReturnMethod(requestID uint32, returnType schema.Type, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.WriteUint8(codec.CmdReturnFromMethod); err != nil {
		return err
	}
	if err := s.w.WriteUint32(requestID); err != nil {
		return err
	}
	if err := s.writeValue(returnType, value); err != nil {
		return err
	}
	if f, ok := s.out.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// MethodError writes a METHOD_ERROR frame: the local implementation method
// for requestID either does not exist or itself returned an error, and the
// caller should surface message as the error of its blocked call.
func (s *Sender) MethodError(requestID uint32, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.WriteUint8(codec.CmdMethodError); err != nil {
		return err
	}
	if err := s.w.WriteUint32(requestID); err != nil {
		return err
	}
	if err := s.w.WriteString(message); err != nil {
		return err
	}
	if f, ok := s.out.(flusher); ok {
		return f.Flush()
	}
	return nil
}

func (s *Sender) writeObjectRef(obj any) error {
	oid, err := s.store.IDOf(obj)
	if err != nil {
		return err
	}
	return s.w.WriteSignedInteger(oid, s.schema.BytesObjectRef)
}

// writeValue encodes value as typ onto the wire: primitives in their
// natural width, enums as a uint32 ordinal, records as their fields in
// declaration order, arrays as a uint32 length followed by elements, and
// interfaces as an object reference resolved through the reference store.
func (s *Sender) writeValue(typ schema.Type, value any) error {
	switch t := typ.(type) {
	case *schema.Primitive:
		return s.writePrimitive(t, value)
	case *schema.Enum:
		ev, ok := value.(EnumValue)
		if !ok {
			return fmt.Errorf("communication: expected EnumValue for enum %q, got %T", t.TypeName(), value)
		}
		ordinal := t.Ordinal(ev.Name)
		if ordinal < 0 {
			return fmt.Errorf("communication: %q is not a value of enum %q", ev.Name, t.TypeName())
		}
		return s.w.WriteUint32(uint32(ordinal))
	case *schema.Record:
		rv, ok := value.(RecordValue)
		if !ok {
			return fmt.Errorf("communication: expected RecordValue for record %q, got %T", t.TypeName(), value)
		}
		for _, f := range t.Fields {
			if err := s.writeValue(f.Type, rv.Fields[f.Name]); err != nil {
				return fmt.Errorf("communication: writing field %q of record %q: %w", f.Name, t.TypeName(), err)
			}
		}
		return nil
	case *schema.Array:
		elems, ok := value.([]any)
		if !ok {
			return fmt.Errorf("communication: expected []any for array of %q, got %T", t.Elem.TypeName(), value)
		}
		if err := s.w.WriteUint32(uint32(len(elems))); err != nil {
			return err
		}
		for i, e := range elems {
			if err := s.writeValue(t.Elem, e); err != nil {
				return fmt.Errorf("communication: writing element %d of array: %w", i, err)
			}
		}
		return nil
	case *schema.Interface:
		return s.writeObjectRef(value)
	default:
		return fmt.Errorf("communication: cannot encode value of unknown type %v", typ)
	}
}

func (s *Sender) writePrimitive(p *schema.Primitive, value any) error {
	switch p {
	case schema.Void:
		return nil
	case schema.Boolean:
		v, _ := value.(bool)
		if v {
			return s.w.WriteUint8(1)
		}
		return s.w.WriteUint8(0)
	case schema.Int8:
		v, _ := value.(int8)
		return s.w.WriteInt8(v)
	case schema.Uint8:
		v, _ := value.(uint8)
		return s.w.WriteUint8(v)
	case schema.Int16:
		v, _ := value.(int16)
		return s.w.WriteInt16(v)
	case schema.Uint16:
		v, _ := value.(uint16)
		return s.w.WriteUint16(v)
	case schema.Int32:
		v, _ := value.(int32)
		return s.w.WriteInt32(v)
	case schema.Uint32:
		v, _ := value.(uint32)
		return s.w.WriteUint32(v)
	case schema.Int64:
		v, _ := value.(int64)
		return s.w.WriteInt64(v)
	case schema.Uint64:
		v, _ := value.(uint64)
		return s.w.WriteUint64(v)
	case schema.Float32:
		v, _ := value.(float32)
		return s.w.WriteFloat32(v)
	case schema.Float64:
		v, _ := value.(float64)
		return s.w.WriteFloat64(v)
	case schema.String:
		v, _ := value.(string)
		return s.w.WriteString(v)
	case schema.Date, schema.Time, schema.Datetime:
		return s.writeTemporal(p, value)
	default:
		return fmt.Errorf("communication: unknown primitive type %v", p)
	}
}

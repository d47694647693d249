package communication

import (
	"fmt"
	"io"
	"log"
	"reflect"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luphord/remcall"
	"github.com/luphord/remcall/codec"
	"github.com/luphord/remcall/metrics"
	"github.com/luphord/remcall/naming"
	"github.com/luphord/remcall/registry"
	"github.com/luphord/remcall/schema"
)

// methodReturn is delivered to a waiting caller once its RETURN_FROM_METHOD
// or METHOD_ERROR frame arrives.
type methodReturn struct {
	value any
	err   error
}

// Receiver reads and dispatches incoming frames on a single goroutine
// (Run), except for CALL_METHOD frames, which it hands off to their own
// goroutine so that a reentrant outbound call made by the method
// implementation (calling back into the peer) cannot deadlock against the
// frame that is waiting to be read next.
type Receiver struct {
	r      *codec.Reader
	schema *schema.Schema
	store  *registry.ReferenceStore
	conv   naming.Converter

	sender           *Sender
	serializedSchema []byte

	waitersMu   sync.Mutex
	waiters     map[uint32]chan methodReturn
	returnTypes map[uint32]returnTypeEntry
	completed   map[uint32]bool
}

// NewReceiver prepares a Receiver reading frames for s from in, dispatching
// method calls against objects resolved through store and named according
// to conv.
func NewReceiver(in io.Reader, s *schema.Schema, store *registry.ReferenceStore, sender *Sender, conv naming.Converter) (*Receiver, error) {
	serialized, err := codec.SchemaBytes(s)
	if err != nil {
		return nil, fmt.Errorf("communication: serializing schema for receiver: %w", err)
	}
	if conv == nil {
		conv = naming.GoConverter{}
	}
	return &Receiver{
		r:                codec.NewReader(in),
		schema:           s,
		store:            store,
		conv:             conv,
		sender:           sender,
		serializedSchema: serialized,
		waiters:          map[uint32]chan methodReturn{},
	}, nil
}

// Run processes frames until a DISCONNECT/ACKNOWLEDGE_DISCONNECT handshake
// completes or the stream returns an error. It is meant to run in its own
// goroutine for the lifetime of a connection, the same way eventsocket's
// Server.Serve runs its accept loop in a goroutine owned by the caller.
func (r *Receiver) Run() error {
	for {
		done, err := r.processNext()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (r *Receiver) processNext() (done bool, err error) {
	done, err = r.processNextFrame()
	if err != nil {
		if re, ok := err.(remcall.RemcallError); ok {
			metrics.ProtocolErrorCount.With(prometheus.Labels{"kind": remcallErrorKind(re)}).Inc()
		}
	}
	return done, err
}

// remcallErrorKind reports the unqualified type name of a RemcallError, for
// use as a metrics label (e.g. "*remcall.SchemaMismatchError" -> "SchemaMismatchError").
func remcallErrorKind(err remcall.RemcallError) string {
	name := fmt.Sprintf("%T", err)
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return name
}

func (r *Receiver) processNextFrame() (done bool, err error) {
	cmd, err := r.r.ReadUint8()
	if err != nil {
		return false, err
	}
	switch cmd {
	case codec.CmdNoop:
		return false, nil
	case codec.CmdDisconnect:
		log.Println("communication: received DISCONNECT, acknowledging and exiting")
		if err := r.sender.AcknowledgeDisconnect(); err != nil {
			return false, err
		}
		metrics.DisconnectCount.Inc()
		return true, nil
	case codec.CmdAcknowledgeDisconnect:
		log.Println("communication: received ACKNOWLEDGE_DISCONNECT, exiting")
		metrics.DisconnectCount.Inc()
		return true, nil
	case codec.CmdRequestSchema:
		return false, r.sender.SendSchema()
	case codec.CmdSendSchema:
		return false, r.receiveAndCheckSchema()
	case codec.CmdCallMethod:
		return false, r.processMethodCall()
	case codec.CmdReturnFromMethod:
		return false, r.processMethodReturn()
	case codec.CmdMethodError:
		return false, r.processMethodError()
	default:
		return false, &remcall.UnknownCommandError{Command: cmd}
	}
}

func (r *Receiver) receiveAndCheckSchema() error {
	peerSchema, err := codec.ReadSchema(r.r)
	if err != nil {
		return fmt.Errorf("communication: reading peer schema: %w", err)
	}
	peerBytes, err := codec.SchemaBytes(peerSchema)
	if err != nil {
		return err
	}
	if string(peerBytes) != string(r.serializedSchema) {
		return &remcall.SchemaMismatchError{}
	}
	metrics.SchemaExchangeCount.Inc()
	return nil
}

func (r *Receiver) readObjectRef(typ schema.Type) (any, error) {
	oid, err := r.r.ReadSignedInteger(r.schema.BytesObjectRef)
	if err != nil {
		return nil, err
	}
	return r.store.ResolveID(oid, typ)
}

func (r *Receiver) readValue(typ schema.Type) (any, error) {
	switch t := typ.(type) {
	case *schema.Interface:
		return r.readObjectRef(t)
	case *schema.Enum:
		ordinal, err := r.r.ReadUint32()
		if err != nil {
			return nil, err
		}
		if int(ordinal) >= len(t.Values) {
			return nil, fmt.Errorf("communication: ordinal %d out of range for enum %q", ordinal, t.TypeName())
		}
		return EnumValue{Enum: t, Name: t.Values[ordinal]}, nil
	case *schema.Record:
		fields := map[string]any{}
		for _, f := range t.Fields {
			v, err := r.readValue(f.Type)
			if err != nil {
				return nil, fmt.Errorf("communication: reading field %q of record %q: %w", f.Name, t.TypeName(), err)
			}
			fields[f.Name] = v
		}
		return RecordValue{Record: t, Fields: fields}, nil
	case *schema.Array:
		n, err := r.r.ReadUint32()
		if err != nil {
			return nil, err
		}
		elems := make([]any, n)
		for i := range elems {
			v, err := r.readValue(t.Elem)
			if err != nil {
				return nil, fmt.Errorf("communication: reading element %d of array: %w", i, err)
			}
			elems[i] = v
		}
		return elems, nil
	case *schema.Primitive:
		return r.readPrimitive(t)
	default:
		return nil, fmt.Errorf("communication: cannot decode value of unknown type %v", typ)
	}
}

func (r *Receiver) readPrimitive(p *schema.Primitive) (any, error) {
	switch p {
	case schema.Void:
		return nil, nil
	case schema.Boolean:
		v, err := r.r.ReadUint8()
		return v != 0, err
	case schema.Int8:
		return r.r.ReadInt8()
	case schema.Uint8:
		return r.r.ReadUint8()
	case schema.Int16:
		return r.r.ReadInt16()
	case schema.Uint16:
		return r.r.ReadUint16()
	case schema.Int32:
		return r.r.ReadInt32()
	case schema.Uint32:
		return r.r.ReadUint32()
	case schema.Int64:
		return r.r.ReadInt64()
	case schema.Uint64:
		return r.r.ReadUint64()
	case schema.Float32:
		return r.r.ReadFloat32()
	case schema.Float64:
		return r.r.ReadFloat64()
	case schema.String:
		return r.r.ReadString()
	case schema.Date, schema.Time, schema.Datetime:
		return r.readTemporal(p)
	default:
		return nil, fmt.Errorf("communication: unknown primitive type %v", p)
	}
}

func (r *Receiver) processMethodCall() error {
	requestID, err := r.r.ReadUint32()
	if err != nil {
		return err
	}
	ordinal, err := r.r.ReadUnsignedInteger(r.schema.BytesMethodRef)
	if err != nil {
		return err
	}
	method, ok := r.schema.MethodLookup(int(ordinal))
	if !ok {
		return fmt.Errorf("communication: received CALL_METHOD with request ID %d and unknown method ordinal %d", requestID, ordinal)
	}
	ifc, _ := r.schema.MethodInterface(int(ordinal))
	this, err := r.readObjectRef(ifc)
	if err != nil {
		return err
	}

	implName := r.conv.MethodName(method.Name)
	fn := reflect.ValueOf(this).MethodByName(implName)

	args := make([]any, len(method.Arguments))
	argNames := make([]string, len(method.Arguments))
	for i, a := range method.Arguments {
		v, err := r.readValue(a.Type)
		if err != nil {
			return fmt.Errorf("communication: reading argument %q of method %q: %w", a.Name, method.Name, err)
		}
		args[i] = v
		argNames[i] = a.Name
	}

	if !fn.IsValid() {
		methodErr := &remcall.MethodNotAvailableError{Method: method, ImplName: implName, ReceiverType: ifc}
		log.Println("communication:", methodErr)
		go func() {
			if err := r.sender.MethodError(requestID, methodErr.Error()); err != nil {
				log.Println("communication: failed to send METHOD_ERROR:", err)
			}
		}()
		return nil
	}

	if ifc != nil {
		metrics.CallsReceived.With(prometheus.Labels{"interface": ifc.TypeName()}).Inc()
	}

	// Dispatched on its own goroutine: the implementation may itself call
	// back into the peer (a proxy method on an object it was handed), which
	// would otherwise deadlock waiting for this same read loop to deliver
	// the callback's return value.
	go r.invokeMethod(requestID, method, fn, args, argNames)
	return nil
}

func (r *Receiver) invokeMethod(requestID uint32, method *schema.Method, fn reflect.Value, args []any, argNames []string) {
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		if a == nil {
			in[i] = reflect.Zero(fn.Type().In(i))
			continue
		}
		in[i] = reflect.ValueOf(a)
	}

	var returnValue any
	var callErr error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				callErr = fmt.Errorf("communication: method %q panicked: %v", method.Name, rec)
			}
		}()
		out := fn.Call(in)
		if len(out) > 0 {
			returnValue = out[0].Interface()
		}
		if len(out) > 1 {
			if e, ok := out[1].Interface().(error); ok && e != nil {
				callErr = e
			}
		}
	}()

	if callErr != nil {
		if err := r.sender.MethodError(requestID, callErr.Error()); err != nil {
			log.Println("communication: failed to send METHOD_ERROR:", err)
		}
		return
	}
	if err := r.sender.ReturnMethod(requestID, method.ReturnType, returnValue); err != nil {
		log.Println("communication: failed to send RETURN_FROM_METHOD:", err)
	}
}

func (r *Receiver) processMethodReturn() error {
	requestID, err := r.r.ReadUint32()
	if err != nil {
		return err
	}
	ch, err := r.takeWaiter(requestID)
	if err != nil {
		return err
	}
	returnType := r.pendingReturnType(requestID)
	value, err := r.readValue(returnType)
	if err != nil {
		return err
	}
	ch <- methodReturn{value: value}
	return nil
}

func (r *Receiver) processMethodError() error {
	requestID, err := r.r.ReadUint32()
	if err != nil {
		return err
	}
	message, err := r.r.ReadString()
	if err != nil {
		return err
	}
	ch, err := r.takeWaiter(requestID)
	if err != nil {
		return err
	}
	ch <- methodReturn{err: fmt.Errorf("communication: remote method call failed: %s", message)}
	return nil
}

// returnTypes records the expected return type for every in-flight request,
// set by RegisterWaiter and consulted (then cleared) by processMethodReturn.
type returnTypeEntry struct {
	typ schema.Type
}

func (r *Receiver) pendingReturnType(requestID uint32) schema.Type {
	r.waitersMu.Lock()
	defer r.waitersMu.Unlock()
	if e, ok := r.returnTypes[requestID]; ok {
		delete(r.returnTypes, requestID)
		return e.typ
	}
	return schema.Void
}

// RegisterWaiter registers a channel to receive the eventual return value
// or error for requestID, recording returnType so processMethodReturn knows
// how to decode the response. It returns a DuplicateWaiterError if a waiter
// for requestID is already registered.
func (r *Receiver) RegisterWaiter(requestID uint32, returnType schema.Type) (<-chan methodReturn, error) {
	r.waitersMu.Lock()
	defer r.waitersMu.Unlock()
	if _, ok := r.waiters[requestID]; ok {
		return nil, &remcall.DuplicateWaiterError{RequestID: requestID}
	}
	if r.returnTypes == nil {
		r.returnTypes = map[uint32]returnTypeEntry{}
	}
	r.returnTypes[requestID] = returnTypeEntry{typ: returnType}
	ch := make(chan methodReturn, 1)
	r.waiters[requestID] = ch
	return ch, nil
}

func (r *Receiver) takeWaiter(requestID uint32) (chan methodReturn, error) {
	r.waitersMu.Lock()
	defer r.waitersMu.Unlock()
	ch, ok := r.waiters[requestID]
	if !ok {
		if r.completed[requestID] {
			return nil, &remcall.DuplicateMethodReturnError{RequestID: requestID}
		}
		return nil, &remcall.MissingWaiterError{RequestID: requestID}
	}
	delete(r.waiters, requestID)
	if r.completed == nil {
		r.completed = map[uint32]bool{}
	}
	r.completed[requestID] = true
	return ch, nil
}

package remcall

import (
	"fmt"

	"github.com/luphord/remcall/schema"
)

// RemcallError is implemented by every error defined by this module; it lets
// callers distinguish protocol-level failures from ordinary Go errors
// (transport I/O errors, context cancellation) without type-switching on
// every concrete error type.
type RemcallError interface {
	error
	remcallError()
}

type baseError struct{}

func (baseError) remcallError() {}

// ShortReadError reports fewer bytes read from a stream than the frame
// required at a given byte offset. Fatal to the bridge: the stream's
// framing is now unrecoverable.
type ShortReadError struct {
	baseError
	Requested int
	Got       int
	Offset    int64
}

func (e *ShortReadError) Error() string {
	if e.Offset != 0 {
		return fmt.Sprintf("remcall: trying to read %d bytes from stream, got %d at offset 0x%x", e.Requested, e.Got, e.Offset)
	}
	return fmt.Sprintf("remcall: trying to read %d bytes from stream, got %d", e.Requested, e.Got)
}

// UnknownCommandError reports an unrecognized 1-byte command tag. Fatal to
// the bridge.
type UnknownCommandError struct {
	baseError
	Command byte
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("remcall: unknown command 0x%02x", e.Command)
}

// UnknownTypeError reports a type index absent from the resolved type
// table, or a type with no proxy class. Fatal to the bridge (decode state is
// now unrecoverable).
type UnknownTypeError struct {
	baseError
	TypeIndex int32
	Type      schema.Type
}

func (e *UnknownTypeError) Error() string {
	if e.Type != nil {
		return fmt.Sprintf("remcall: unknown type %v", e.Type)
	}
	return fmt.Sprintf("remcall: unknown type index %d", e.TypeIndex)
}

// UnknownProxyObjectError reports an outbound reference to a proxy that is
// not present in the registry. Nothing in this module returns it:
// registry.ReferenceStore.IDOf registers any object missing from its proxy
// table as a local implementation object instead.
type UnknownProxyObjectError struct {
	baseError
	Object any
}

func (e *UnknownProxyObjectError) Error() string {
	return fmt.Sprintf("remcall: unknown proxy object %v", e.Object)
}

// UnknownImplementationObjectError reports an inbound object ID, of the
// sign reserved for local implementations, with no corresponding registry
// entry. Fatal to the bridge.
type UnknownImplementationObjectError struct {
	baseError
	ObjectID int64
}

func (e *UnknownImplementationObjectError) Error() string {
	return fmt.Sprintf("remcall: unknown implementation object reference %d", e.ObjectID)
}

// MethodNotAvailableError reports that the receiver object named by a
// CALL_METHOD frame has no implementation of the requested method, under
// its converted name. Delivered to the calling peer as a METHOD_ERROR
// response frame; it does not terminate the bridge (see communication
// package).
type MethodNotAvailableError struct {
	baseError
	Method       *schema.Method
	ImplName     string
	ReceiverType schema.Type
}

func (e *MethodNotAvailableError) Error() string {
	return fmt.Sprintf("remcall: method %s with expected implementation name %q does not exist on object of type %v",
		e.Method.Name, e.ImplName, e.ReceiverType)
}

// DuplicateWaiterError reports two callers registering a waiter for the
// same request ID concurrently. It is returned to the caller of
// Bridge.CallMethod whose registration failed; the receive loop keeps
// running.
type DuplicateWaiterError struct {
	baseError
	RequestID uint32
}

func (e *DuplicateWaiterError) Error() string {
	return fmt.Sprintf("remcall: multiple callers are waiting for method return with request ID %d", e.RequestID)
}

// DuplicateMethodReturnError reports a second RETURN_FROM_METHOD frame for
// a request ID whose response was already delivered. A protocol violation
// by the peer, fatal to the bridge.
type DuplicateMethodReturnError struct {
	baseError
	RequestID uint32
}

func (e *DuplicateMethodReturnError) Error() string {
	return fmt.Sprintf("remcall: multiple method return values exist for request ID %d", e.RequestID)
}

// MissingWaiterError reports a RETURN_FROM_METHOD frame for a request ID
// with no registered waiter. A protocol violation by the peer, fatal to the
// bridge.
type MissingWaiterError struct {
	baseError
	RequestID uint32
}

func (e *MissingWaiterError) Error() string {
	return fmt.Sprintf("remcall: no method return waiter exists for request ID %d", e.RequestID)
}

// SchemaMismatchError reports that a peer's serialized schema differs from
// the schema expected locally. Fatal to the bridge.
type SchemaMismatchError struct {
	baseError
}

func (e *SchemaMismatchError) Error() string {
	return "remcall: peer schema does not match the locally expected schema"
}

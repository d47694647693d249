package communication

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luphord/remcall/metrics"
	"github.com/luphord/remcall/naming"
	"github.com/luphord/remcall/registry"
	"github.com/luphord/remcall/schema"
)

// Bridge owns one connection's Sender, Receiver and ReferenceStore, and is
// the entry point applications use to make and serve remote method calls.
// Exactly one side of a connection supplies main (the server, hosting the
// schema's "Main" interface's implementation); the other passes nil and is
// the client.
type Bridge struct {
	schema *schema.Schema
	store  *registry.ReferenceStore
	sender *Sender
	recv   *Receiver

	isClient bool
	main     any

	// Server, on a client Bridge, is the peer's Main object: a *Proxy for
	// schema.MainType() that every method call starting a conversation goes
	// through. It is nil on a server Bridge (that side's own main object is
	// local, reachable directly as the value it was constructed with).
	Server *Proxy
}

// New builds a Bridge over stream, which must be both readable and
// writable (a net.Conn, a paired stdin/stdout, an in-memory pipe). main is
// the local implementation of s.MainType() for a server, or nil for a
// client. conv names local implementation methods when dispatching
// incoming calls; nil selects GoConverter, the naming scheme this module's
// own generated-free dispatch (see Receiver.processMethodCall) expects.
func New(stream io.ReadWriter, s *schema.Schema, main any, conv naming.Converter) (*Bridge, error) {
	b := &Bridge{
		schema:   s,
		isClient: main == nil,
		main:     main,
	}
	b.store = registry.NewReferenceStore(b.isClient, newProxyFactory(b))

	sender, err := NewSender(stream, s, b.store)
	if err != nil {
		return nil, err
	}
	b.sender = sender

	recv, err := NewReceiver(stream, s, b.store, sender, conv)
	if err != nil {
		return nil, err
	}
	b.recv = recv

	if b.isClient {
		if main != nil {
			return nil, fmt.Errorf("communication: a nil main marks a client, got %v", main)
		}
		// A client's main is nil and stays unregistered: the client's own
		// first real local object must get ID -1, not the null main.
	} else if mainID := b.store.RegisterLocal(main); mainID != 1 {
		return nil, fmt.Errorf("communication: server's main object must be assigned ID 1, got %d", mainID)
	}

	if b.isClient {
		obj, err := b.store.ResolveID(1, s.MainType())
		if err != nil {
			return nil, fmt.Errorf("communication: resolving server's main object: %w", err)
		}
		proxy, ok := obj.(*Proxy)
		if !ok {
			return nil, fmt.Errorf("communication: expected server main object to resolve to a proxy, got %T", obj)
		}
		b.Server = proxy
	}

	return b, nil
}

// Run starts the bridge's receive loop and blocks until the connection's
// DISCONNECT/ACKNOWLEDGE_DISCONNECT handshake completes, the stream
// errors, or ctx is canceled. It is meant to be called once, typically in
// its own goroutine, mirroring the way eventsocket's Server.Serve is
// started in a goroutine by its caller and stopped via context
// cancellation.
func (b *Bridge) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		errc <- b.recv.Run()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		log.Println("communication: context canceled, disconnecting")
		if err := b.Disconnect(); err != nil {
			return err
		}
		return <-errc
	}
}

// Serve is Run under the name eventsocket's Listen/Serve split uses for the
// blocking half: start the receive loop, block until it exits or ctx is
// canceled (disconnecting gracefully in the latter case).
func (b *Bridge) Serve(ctx context.Context) error {
	return b.Run(ctx)
}

// ServerProxy returns the peer's Main object on a client Bridge (the same
// value as the Server field), or nil on a server Bridge.
func (b *Bridge) ServerProxy() any {
	if b.Server == nil {
		return nil
	}
	return b.Server
}

// CallMethod requests method be invoked on this (a *Proxy for a remote
// object, or a local implementation object being handed a callback) and
// blocks until the peer's response arrives or ctx is canceled.
func (b *Bridge) CallMethod(ctx context.Context, method *schema.Method, this any, args map[string]any) (any, error) {
	ifcName := "unknown"
	if ordinal, ok := b.schema.MethodOrdinal(method); ok {
		if ifc, ok := b.schema.MethodInterface(ordinal); ok {
			ifcName = ifc.TypeName()
		}
	}

	requestID := b.sender.AllocateRequestID()
	ch, err := b.recv.RegisterWaiter(requestID, method.ReturnType)
	if err != nil {
		return nil, err
	}

	metrics.CallsSent.With(prometheus.Labels{"interface": ifcName}).Inc()
	metrics.InFlightCalls.Inc()
	start := time.Now()
	defer func() {
		metrics.InFlightCalls.Dec()
		metrics.CallLatencyHistogram.With(prometheus.Labels{"interface": ifcName}).Observe(time.Since(start).Seconds())
	}()

	if err := b.sender.CallMethod(requestID, method, this, args); err != nil {
		return nil, err
	}
	select {
	case result := <-ch:
		if result.err != nil {
			metrics.MethodErrorCount.Inc()
		}
		return result.value, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Disconnect writes a DISCONNECT frame, asking the peer to acknowledge and
// close the connection.
func (b *Bridge) Disconnect() error {
	return b.sender.Disconnect()
}

// Close releases the bridge's object registry.
func (b *Bridge) Close() {
	b.store.Close()
}

// Package remcall is a protocol for remote method calls (RMC): inter
// process communication between different programming languages using
// object proxying as its primary means of information exchange.
//
// Communication requires the upfront agreement of a schema (enums, records
// and interfaces with method signatures). Both communication participants
// may implement any subset of the interfaces and hand concrete objects to
// the other side, which sees them as proxies. There is a distinction
// between a server (waiting for connections, hosting the entry point
// object) and a client (initiating a connection, performing the first
// method call), but the protocol permits method calls and object proxying
// in both directions.
//
// remcall uses a binary representation for both its schema and its wire
// protocol, and can be layered on top of any bidirectional byte stream:
// TCP sockets, stdin/stdout, WebSockets, pipes.
//
// This package holds the error taxonomy shared by the schema/codec and
// communication packages. The schema data model lives in
// github.com/luphord/remcall/schema, the wire codec in
// github.com/luphord/remcall/codec, and the bidirectional RPC engine in
// github.com/luphord/remcall/communication.
package remcall

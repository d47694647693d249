// Package registry tracks the object identifiers exchanged across a
// remcall connection: every interface-typed value that crosses the wire is
// represented by a signed integer ID, and this package is where an ID and
// the Go value it names are looked up in either direction.
package registry

import (
	"sync"

	"github.com/luphord/remcall"
	"github.com/luphord/remcall/schema"
)

// IDStore is a bidirectional map between an int64 ID and the object it
// names, kept in sync so that either direction is an O(1) lookup.
type IDStore[V comparable] struct {
	idToObj map[int64]V
	objToID map[V]int64
}

// NewIDStore returns an empty IDStore.
func NewIDStore[V comparable]() *IDStore[V] {
	return &IDStore[V]{
		idToObj: map[int64]V{},
		objToID: map[V]int64{},
	}
}

// Get returns the object registered for id.
func (s *IDStore[V]) Get(id int64) (V, bool) {
	v, ok := s.idToObj[id]
	return v, ok
}

// Set registers obj under id, overwriting any previous occupant of id (but
// not removing a stale reverse mapping for that occupant, matching the
// teacher's never-shrinks registry discipline: entries are only removed
// explicitly via Delete).
func (s *IDStore[V]) Set(id int64, obj V) {
	s.idToObj[id] = obj
	s.objToID[obj] = id
}

// IDOf returns the ID registered for obj.
func (s *IDStore[V]) IDOf(obj V) (int64, bool) {
	id, ok := s.objToID[obj]
	return id, ok
}

// Contains reports whether obj has a registered ID.
func (s *IDStore[V]) Contains(obj V) bool {
	_, ok := s.objToID[obj]
	return ok
}

// Delete removes id and its object from both directions of the map.
func (s *IDStore[V]) Delete(id int64) {
	if obj, ok := s.idToObj[id]; ok {
		delete(s.objToID, obj)
		delete(s.idToObj, id)
	}
}

// Len returns the number of registered objects.
func (s *IDStore[V]) Len() int { return len(s.idToObj) }

// ProxyFactory builds the local stand-in for a remote object of the given
// interface type, the first time the bridge encounters its object ID.
type ProxyFactory func(typ schema.Type) any

// ReferenceStore is the per-connection object registry: it allocates
// object IDs for locally-implemented objects handed to the peer, and
// resolves IDs the peer sends back into either a cached proxy (for IDs this
// side originated) or a local implementation object (for IDs the peer
// originated).
//
// The two roles partition the ID space by sign: a client decrements from 0
// (its first allocation is -1), a server increments from 0 (its first
// allocation is 1, leaving 0 reserved for "no object" and 1 conventionally
// the server's bootstrap Main object). Whichever side receives a positive
// ID treats it as the server's; whichever receives a negative ID treats it
// as the client's. A side resolves an ID it did not allocate to a proxy,
// and an ID it did allocate to its own implementation object.
type ReferenceStore struct {
	mu           sync.Mutex
	isClient     bool
	proxyFactory ProxyFactory

	proxies         *IDStore[any]
	implementations *IDStore[any]

	nextID int64
}

// NewReferenceStore builds a ReferenceStore for one end of a connection.
// isClient selects the ID allocation sign; proxyFactory builds a proxy the
// first time an ID naming the peer's object is resolved.
func NewReferenceStore(isClient bool, proxyFactory ProxyFactory) *ReferenceStore {
	return &ReferenceStore{
		isClient:        isClient,
		proxyFactory:    proxyFactory,
		proxies:         NewIDStore[any](),
		implementations: NewIDStore[any](),
	}
}

func (r *ReferenceStore) objectIDSign() int64 {
	if r.isClient {
		return -1
	}
	return 1
}

// nextObjectID allocates and returns the next ID for a locally-implemented
// object, consuming one step away from zero in this side's sign.
func (r *ReferenceStore) nextObjectID() int64 {
	r.nextID += r.objectIDSign()
	return r.nextID
}

// RegisterLocal assigns obj the next implementation-object ID if it has
// none yet, and returns its ID either way.
func (r *ReferenceStore) RegisterLocal(obj any) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocalLocked(obj)
}

func (r *ReferenceStore) registerLocalLocked(obj any) int64 {
	if id, ok := r.implementations.IDOf(obj); ok {
		return id
	}
	id := r.nextObjectID()
	r.implementations.Set(id, obj)
	return id
}

// IDOf returns the wire ID for obj: 0 for a nil interface value, its proxy
// ID if obj is a value this store itself produced via ResolveID, or
// otherwise obj's implementation ID, registering obj as a fresh
// locally-implemented object on first outbound reference if it has none
// yet.
func (r *ReferenceStore) IDOf(obj any) (int64, error) {
	if obj == nil {
		return 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.proxies.IDOf(obj); ok {
		return id, nil
	}
	return r.registerLocalLocked(obj), nil
}

// ResolveID returns the object named by a wire ID of the given type: nil
// for ID 0, a (possibly newly constructed and cached) proxy for an ID this
// side did not allocate, or a previously registered implementation object
// for an ID this side did allocate.
func (r *ReferenceStore) ResolveID(id int64, typ schema.Type) (any, error) {
	if id == 0 {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	isProxy := (r.isClient && id > 0) || (!r.isClient && id < 0)
	if isProxy {
		if obj, ok := r.proxies.Get(id); ok {
			return obj, nil
		}
		obj := r.proxyFactory(typ)
		r.proxies.Set(id, obj)
		return obj, nil
	}
	obj, ok := r.implementations.Get(id)
	if !ok {
		return nil, &remcall.UnknownImplementationObjectError{ObjectID: id}
	}
	return obj, nil
}

// Close releases every registered proxy and implementation object,
// allowing them to be garbage collected once the bridge that owned this
// store shuts down.
func (r *ReferenceStore) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proxies = NewIDStore[any]()
	r.implementations = NewIDStore[any]()
}

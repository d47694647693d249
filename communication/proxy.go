package communication

import (
	"context"
	"fmt"

	"github.com/luphord/remcall/schema"
)

// Proxy stands in for an object the peer implements. It is the one,
// generic proxy type this module hands out for every interface in a
// schema: rather than synthesizing a distinct Go type per interface at
// runtime (which Go, unlike Python's types.new_class, has no supported way
// to do), every interface's proxy is this same struct, dispatching by
// method name. A code generator wanting typed proxies wraps a Proxy with
// hand-written (or generated) methods that call Invoke.
type Proxy struct {
	Interface *schema.Interface
	bridge    *Bridge
}

// Invoke calls the named method (its schema name, not any converted
// implementation name) on the peer object this proxy stands in for, with
// args keyed by argument name, and returns its result. ctx bounds how long
// the call waits for the peer's response; it does not cancel a call already
// dispatched to the peer.
func (p *Proxy) Invoke(ctx context.Context, methodName string, args map[string]any) (any, error) {
	for _, m := range p.Interface.Methods {
		if m.Name == methodName {
			return p.bridge.CallMethod(ctx, m, p, args)
		}
	}
	return nil, fmt.Errorf("communication: interface %q has no method %q", p.Interface.TypeName(), methodName)
}

func (p *Proxy) String() string {
	return fmt.Sprintf("Proxy(%s)", p.Interface.TypeName())
}

// newProxyFactory returns a registry.ProxyFactory that builds Proxy values
// bound to bridge, the one per-connection indirection every interface in
// the schema shares.
func newProxyFactory(bridge *Bridge) func(typ schema.Type) any {
	return func(typ schema.Type) any {
		ifc, ok := typ.(*schema.Interface)
		if !ok {
			return nil
		}
		return &Proxy{Interface: ifc, bridge: bridge}
	}
}

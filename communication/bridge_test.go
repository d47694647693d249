package communication

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/luphord/remcall/schema"
)

// greeterSchema builds a small schema with a "Main" interface carrying one
// method, mirroring buildSampleSchema in the codec package but kept minimal
// since these tests exercise the bridge, not schema construction.
func greeterSchema(t *testing.T) *schema.Schema {
	t.Helper()
	greet, err := schema.NewMethod("greet", []schema.Field{{Type: schema.String, Name: "name"}}, schema.String)
	if err != nil {
		t.Fatalf("NewMethod: %v", err)
	}
	main, err := schema.NewInterface("Main", []*schema.Method{greet})
	if err != nil {
		t.Fatalf("NewInterface: %v", err)
	}
	s, err := schema.New("greeter", []schema.Type{main}, 2, 4, nil)
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	return s
}

// greeterImpl implements the Main interface's "greet" method under its
// GoConverter name.
type greeterImpl struct{}

func (greeterImpl) Greet(name string) (string, error) {
	return "hello " + name, nil
}

func pipeConns(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return server, client
}

func TestBridgeClientCallsServerMainMethod(t *testing.T) {
	s := greeterSchema(t)
	serverConn, clientConn := pipeConns(t)

	server, err := New(serverConn, s, greeterImpl{}, nil)
	if err != nil {
		t.Fatalf("New(server): %v", err)
	}
	client, err := New(clientConn, s, nil, nil)
	if err != nil {
		t.Fatalf("New(client): %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Run(ctx)
	go client.Run(ctx)

	result, err := client.Server.Invoke(context.Background(), "greet", map[string]any{"name": "world"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result != "hello world" {
		t.Errorf("result = %q, want %q", result, "hello world")
	}
}

func TestBridgeUnknownMethodReturnsMethodError(t *testing.T) {
	s := greeterSchema(t)
	serverConn, clientConn := pipeConns(t)

	server, err := New(serverConn, s, struct{}{}, nil) // no Greet method
	if err != nil {
		t.Fatalf("New(server): %v", err)
	}
	client, err := New(clientConn, s, nil, nil)
	if err != nil {
		t.Fatalf("New(client): %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Run(ctx)
	go client.Run(ctx)

	_, err = client.Server.Invoke(context.Background(), "greet", map[string]any{"name": "world"})
	if err == nil {
		t.Fatal("expected an error for a method with no implementation")
	}
}

// userBridgeSchema builds a two-interface schema exercising object
// references in both directions: Main.GetFirstUser returns a User, and
// Main.GreetUser takes a User argument so the server can call back into a
// client-implemented User.
func userBridgeSchema(t *testing.T) *schema.Schema {
	t.Helper()
	getAge, err := schema.NewMethod("getAge", nil, schema.Int32)
	if err != nil {
		t.Fatalf("NewMethod(getAge): %v", err)
	}
	user, err := schema.NewInterface("User", []*schema.Method{getAge})
	if err != nil {
		t.Fatalf("NewInterface(User): %v", err)
	}
	getFirstUser, err := schema.NewMethod("getFirstUser", nil, user)
	if err != nil {
		t.Fatalf("NewMethod(getFirstUser): %v", err)
	}
	greetUser, err := schema.NewMethod("greetUser", []schema.Field{{Type: user, Name: "u"}}, schema.String)
	if err != nil {
		t.Fatalf("NewMethod(greetUser): %v", err)
	}
	main, err := schema.NewInterface("Main", []*schema.Method{getFirstUser, greetUser})
	if err != nil {
		t.Fatalf("NewInterface(Main): %v", err)
	}
	s, err := schema.New("users", []schema.Type{user, main}, 2, 4, nil)
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	return s
}

// brian is a server-side User implementation, returned by GetFirstUser as a
// fresh, never-before-registered object: this is the path that exercises
// lazy object-ID registration on first outbound reference.
type brian struct{ age int32 }

func (b *brian) GetAge() (int32, error) { return b.age, nil }

type userMainImpl struct{}

func (userMainImpl) GetFirstUser() (any, error) {
	return &brian{age: 34}, nil
}

func (userMainImpl) GreetUser(u any) (string, error) {
	proxy, ok := u.(*Proxy)
	if !ok {
		return "", fmt.Errorf("greetUser: expected a User proxy, got %T", u)
	}
	age, err := proxy.Invoke(context.Background(), "getAge", nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("hello age %v", age), nil
}

// clientUser is the client's own User implementation, handed to the server
// as an argument: the server calling back into it is the reverse-callback
// scenario.
type clientUser struct{ age int32 }

func (c *clientUser) GetAge() (int32, error) { return c.age, nil }

func TestBridgeReturnsFreshInterfaceTypedObject(t *testing.T) {
	s := userBridgeSchema(t)
	serverConn, clientConn := pipeConns(t)

	server, err := New(serverConn, s, userMainImpl{}, nil)
	if err != nil {
		t.Fatalf("New(server): %v", err)
	}
	client, err := New(clientConn, s, nil, nil)
	if err != nil {
		t.Fatalf("New(client): %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Run(ctx)
	go client.Run(ctx)

	result, err := client.Server.Invoke(context.Background(), "getFirstUser", nil)
	if err != nil {
		t.Fatalf("Invoke(getFirstUser): %v", err)
	}
	userProxy, ok := result.(*Proxy)
	if !ok {
		t.Fatalf("getFirstUser result = %T, want *Proxy", result)
	}
	age, err := userProxy.Invoke(context.Background(), "getAge", nil)
	if err != nil {
		t.Fatalf("Invoke(getAge): %v", err)
	}
	if age != int32(34) {
		t.Errorf("age = %v, want 34", age)
	}
}

func TestBridgeServerCallsBackIntoClientSuppliedObject(t *testing.T) {
	s := userBridgeSchema(t)
	serverConn, clientConn := pipeConns(t)

	server, err := New(serverConn, s, userMainImpl{}, nil)
	if err != nil {
		t.Fatalf("New(server): %v", err)
	}
	client, err := New(clientConn, s, nil, nil)
	if err != nil {
		t.Fatalf("New(client): %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Run(ctx)
	go client.Run(ctx)

	result, err := client.Server.Invoke(context.Background(), "greetUser", map[string]any{"u": &clientUser{age: 7}})
	if err != nil {
		t.Fatalf("Invoke(greetUser): %v", err)
	}
	if result != "hello age 7" {
		t.Errorf("result = %q, want %q", result, "hello age 7")
	}
}

func TestBridgeGracefulDisconnect(t *testing.T) {
	s := greeterSchema(t)
	serverConn, clientConn := pipeConns(t)

	server, err := New(serverConn, s, greeterImpl{}, nil)
	if err != nil {
		t.Fatalf("New(server): %v", err)
	}
	client, err := New(clientConn, s, nil, nil)
	if err != nil {
		t.Fatalf("New(client): %v", err)
	}

	serverDone := make(chan error, 1)
	go func() { serverDone <- server.Run(context.Background()) }()
	clientDone := make(chan error, 1)
	go func() { clientDone <- client.Run(context.Background()) }()

	if err := client.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	select {
	case err := <-clientDone:
		if err != nil {
			t.Errorf("client.Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client did not exit after disconnect handshake")
	}
	select {
	case err := <-serverDone:
		if err != nil {
			t.Errorf("server.Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not exit after disconnect handshake")
	}
}

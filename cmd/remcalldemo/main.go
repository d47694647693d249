// Command remcalldemo exercises a bridge end to end over a Unix domain
// socket: run with -listen to host the demo Main interface, or -dial to
// connect to a running -listen instance and call its one method.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	"github.com/luphord/remcall"
	"github.com/luphord/remcall/communication"
	"github.com/luphord/remcall/schema"
	"github.com/luphord/remcall/schema/schemadump"
	"github.com/luphord/remcall/transport"
)

func init() {
	// Always prepend the filename and line number.
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

// referenceWidth is a flag.Value restricting a reference width to the four
// wire-legal byte counts, the way flagx.StringArray restricts its own flag
// values to a validated shape in the teacher's main.go.
type referenceWidth int

func (w *referenceWidth) String() string { return fmt.Sprintf("%d", int(*w)) }

func (w *referenceWidth) Set(s string) error {
	switch s {
	case "1", "2", "4", "8":
	default:
		return fmt.Errorf("reference width must be 1, 2, 4 or 8, got %q", s)
	}
	var n int
	fmt.Sscanf(s, "%d", &n)
	*w = referenceWidth(n)
	return nil
}

var (
	listenPath   = flag.String("listen", "", "Unix domain socket path to listen on, hosting the demo Main object")
	dialPath     = flag.String("dial", "", "Unix domain socket path to dial, calling the demo Main object's one method")
	label        = flag.String("label", "remcalldemo", "Schema label exchanged in the SEND_SCHEMA frame")
	promAddr     = flag.String("prom", ":9090", "Prometheus metrics export address and port")
	dumpSchema   = flag.Bool("dump-schema-csv", false, "Write the demo schema's declared types as CSV to stdout and exit")
	verbose      = flag.Bool("verbose", false, "Enable wire-level trace logging")
	bytesMethod  = referenceWidth(2)
	bytesObject  = referenceWidth(4)
)

func init() {
	flag.Var(&bytesMethod, "bytes-method-ref", "Width in bytes of a method reference on the wire (1, 2, 4 or 8)")
	flag.Var(&bytesObject, "bytes-object-ref", "Width in bytes of an object reference on the wire (1, 2, 4 or 8)")
}

// Echoer is the demo Main interface: a single method that echoes a string
// back to the caller, enough to exercise a full call/return round trip.
type Echoer interface {
	Echo(message string) (string, error)
}

// echoServer is the server-side implementation of Echoer.
type echoServer struct{}

func (echoServer) Echo(message string) (string, error) {
	return "echo: " + message, nil
}

func buildSchema(label string, bytesMethodRef, bytesObjectRef int) (*schema.Schema, error) {
	echo, err := schema.NewMethod("echo", []schema.Field{{Type: schema.String, Name: "message"}}, schema.String)
	if err != nil {
		return nil, err
	}
	main, err := schema.NewInterface("Main", []*schema.Method{echo})
	if err != nil {
		return nil, err
	}
	return schema.New(label, []schema.Type{main}, bytesMethodRef, bytesObjectRef, nil)
}

func main() {
	flag.Parse()
	flagx.ArgsFromEnv(flag.CommandLine)
	remcall.Verbose = *verbose

	s, err := buildSchema(*label, int(bytesMethod), int(bytesObject))
	rtx.Must(err, "could not build demo schema")

	if *dumpSchema {
		rtx.Must(schemadump.Write(s, os.Stdout), "could not write schema CSV")
		return
	}

	if *listenPath == "" && *dialPath == "" {
		rtx.Must(fmt.Errorf("one of -listen or -dial is required"), "missing required flag")
	}
	if *listenPath != "" && *dialPath != "" {
		rtx.Must(fmt.Errorf("-listen and -dial are mutually exclusive"), "conflicting flags")
	}

	promSrv := prometheusx.MustStartPrometheus(*promAddr)
	defer promSrv.Shutdown(context.Background())

	ctx := context.Background()
	if *listenPath != "" {
		runServer(ctx, s, *listenPath)
		return
	}
	runClient(ctx, s, *dialPath)
}

func runServer(ctx context.Context, s *schema.Schema, path string) {
	l, err := transport.ListenUnix(path)
	rtx.Must(err, "could not listen on %q", path)
	defer l.Close()
	log.Println("remcalldemo: serving on", path)

	for {
		conn, err := l.Accept()
		if err != nil {
			log.Println("remcalldemo: accept failed:", err)
			return
		}
		bridge, err := communication.New(conn, s, echoServer{}, nil)
		if err != nil {
			log.Println("remcalldemo: could not build bridge for accepted connection:", err)
			conn.Close()
			continue
		}
		go func() {
			if err := bridge.Serve(ctx); err != nil {
				log.Println("remcalldemo: bridge exited with error:", err)
			}
		}()
	}
}

func runClient(ctx context.Context, s *schema.Schema, path string) {
	conn, err := transport.DialUnix(path)
	rtx.Must(err, "could not dial %q", path)
	defer conn.Close()

	bridge, err := communication.New(conn, s, nil, nil)
	rtx.Must(err, "could not build client bridge")

	go func() {
		if err := bridge.Serve(ctx); err != nil {
			log.Println("remcalldemo: bridge exited with error:", err)
		}
	}()

	server, ok := bridge.ServerProxy().(*communication.Proxy)
	if !ok {
		rtx.Must(fmt.Errorf("server proxy has unexpected type %T", bridge.ServerProxy()), "bridge setup failed")
	}
	result, err := server.Invoke(ctx, "echo", map[string]any{"message": "hello from remcalldemo"})
	rtx.Must(err, "echo call failed")
	log.Println("remcalldemo: server replied:", result)
	rtx.Must(bridge.Disconnect(), "could not disconnect cleanly")
}

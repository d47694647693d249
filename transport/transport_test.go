package transport

import (
	"bytes"
	"io/ioutil"
	"net"
	"os"
	"testing"

	"github.com/m-lab/go/rtx"
)

func TestListenUnixAcceptsAndEchoes(t *testing.T) {
	dir, err := ioutil.TempDir("", "TestListenUnix")
	rtx.Must(err, "could not create tempdir")
	defer os.RemoveAll(dir)
	sockPath := dir + "/bridge.sock"

	l, err := ListenUnix(sockPath)
	rtx.Must(err, "could not listen on unix socket")
	defer l.Close()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 5)
		if _, err := conn.Read(buf); err != nil {
			t.Errorf("server read: %v", err)
			return
		}
		if _, err := conn.Write(buf); err != nil {
			t.Errorf("server write: %v", err)
		}
	}()

	client, err := DialUnix(sockPath)
	rtx.Must(err, "could not dial unix socket")
	defer client.Close()

	if _, err := client.Write([]byte("hello")); err != nil {
		t.Fatalf("client write: %v", err)
	}
	got := make([]byte, 5)
	if _, err := client.Read(got); err != nil {
		t.Fatalf("client read: %v", err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Errorf("got %q, want %q", got, "hello")
	}
	<-serverDone
}

func TestListenUnixRemovesStaleSocketFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "TestListenUnixStale")
	rtx.Must(err, "could not create tempdir")
	defer os.RemoveAll(dir)
	sockPath := dir + "/bridge.sock"

	first, err := net.Listen("unix", sockPath)
	rtx.Must(err, "could not create initial listener")
	first.Close() // leaves the socket file behind, as an unclean shutdown would

	l, err := ListenUnix(sockPath)
	if err != nil {
		t.Fatalf("ListenUnix did not clean up a stale socket file: %v", err)
	}
	l.Close()
}

func TestFlushWriterFlushesOnDemand(t *testing.T) {
	var buf bytes.Buffer
	fw := NewFlushWriter(&buf)
	if _, err := fw.Write([]byte("abc")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected buffered write not yet visible, got %d bytes", buf.Len())
	}
	if err := fw.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if buf.String() != "abc" {
		t.Errorf("got %q, want %q", buf.String(), "abc")
	}
}

func TestStdioStreamWrapsStandardHandles(t *testing.T) {
	s := Stdio()
	if s.Reader == nil || s.WriteCloser == nil {
		t.Fatal("Stdio() returned a Stream with a nil half")
	}
}

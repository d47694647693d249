package transport

import (
	"net"

	"golang.org/x/sys/unix"
)

// tuneTCP disables Nagle's algorithm and enables TCP keepalive on conn: a
// remcall bridge exchanges small request/response frames where Nagle's
// batching adds latency for no throughput benefit, and keepalive detects a
// peer that vanished without a clean DISCONNECT.
func tuneTCP(conn *net.TCPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		if sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); sockErr != nil {
			return
		}
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

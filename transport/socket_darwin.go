package transport

import (
	"net"

	"golang.org/x/sys/unix"
)

// tuneTCP disables Nagle's algorithm and enables TCP keepalive on conn, the
// same reasoning as the Linux build (see socket_linux.go); kept as a
// separate file since the constants live in different underlying syscall
// tables per platform, the same reason netlink.go splits into
// netlink_linux.go/netlink_darwin.go.
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

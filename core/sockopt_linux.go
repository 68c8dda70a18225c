//go:build linux

package core

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// keepAliveIdleSecs is the quiet time before the first TCP keepalive probe.
const keepAliveIdleSecs = 30

// tuneListener enables TCP_DEFER_ACCEPT so connection goroutines only start
// once the client sent data.
func tuneListener(ln net.Listener) {
	sc, ok := ln.(syscall.Conn)
	if !ok {
		return
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return
	}
	raw.Control(func(fd uintptr) {
		unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_DEFER_ACCEPT, 1)
	})
}

// tuneConn disables Nagle and arms TCP keepalive. Media streams write many
// small chunks; coalescing them adds player-visible latency.
func tuneConn(c net.Conn) {
	sc, ok := c.(syscall.Conn)
	if !ok {
		return
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return
	}
	raw.Control(func(fd uintptr) {
		unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
		unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
		unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, keepAliveIdleSecs)
	})
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package hostrpc

import (
	"net"

	"golang.org/x/sys/unix"
)

// peerCredentials reads SO_PEERCRED from a Unix socket connection.
func peerCredentials(conn net.Conn) (PeerCredentials, bool) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return PeerCredentials{}, false
	}
	rawConn, err := unixConn.SyscallConn()
	if err != nil {
		return PeerCredentials{}, false
	}

	var ucred *unix.Ucred
	var sockoptErr error
	if err := rawConn.Control(func(fd uintptr) {
		ucred, sockoptErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil || sockoptErr != nil {
		return PeerCredentials{}, false
	}
	return PeerCredentials{PID: ucred.Pid, UID: ucred.Uid, GID: ucred.Gid}, true
}

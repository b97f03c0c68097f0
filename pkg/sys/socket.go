//go:build linux

package sys

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func newSocket(family int, sotype int, protocol int) (sock int, err error) {
	sock, err = unix.Socket(family, sotype|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, protocol)
	if err != nil {
		if errors.Is(err, unix.EPROTONOSUPPORT) || errors.Is(err, unix.EINVAL) {
			sock, err = unix.Socket(family, sotype, protocol)
			if err != nil {
				err = os.NewSyscallError("socket", err)
				return
			}
			unix.CloseOnExec(sock)
			if err = unix.SetNonblock(sock, true); err != nil {
				_ = unix.Close(sock)
				err = os.NewSyscallError("setnonblock", err)
				return
			}
			return
		}
		err = os.NewSyscallError("socket", err)
	}
	return
}

func sockaddr(ip []byte, port int, family int) unix.Sockaddr {
	if family == unix.AF_INET6 {
		sa := &unix.SockaddrInet6{Port: port}
		copy(sa.Addr[:], ip)
		return sa
	}
	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], ip)
	return sa
}

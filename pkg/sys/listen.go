//go:build linux

package sys

import (
	"net"
	"os"
	"strconv"

	"github.com/brickingsoft/errors"
	"golang.org/x/sys/unix"
)

var ErrBind = errors.Define("listen failed")

const (
	errMetaPkgKey   = "pkg"
	errMetaPkgVal   = "sys"
	errMetaStageKey = "stage"
	errMetaAddrKey  = "address"
)

type ListenOptions struct {
	// Backlog 小于等于 0 时使用 MaxListenerBacklog。
	Backlog int
	// ReusePort 允许多个监听者绑定同一端口，由内核分发连接。
	ReusePort bool
}

// Listen
// 创建 TCP 监听 socket：SO_REUSEADDR、可选 SO_REUSEPORT、bind、listen。
// 失败时返回 ErrBind，元数据中带有失败阶段与地址。
func Listen(address string, port int, options ListenOptions) (fd int, err error) {
	hostport := net.JoinHostPort(address, strconv.Itoa(port))
	if port < 0 || port > 65535 {
		err = newBindError("resolve", hostport, &net.AddrError{Err: "invalid port", Addr: hostport})
		return
	}
	ip, family, resolveErr := resolveIP(address)
	if resolveErr != nil {
		err = newBindError("resolve", hostport, resolveErr)
		return
	}
	// sock
	sock, sockErr := newSocket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if sockErr != nil {
		err = newBindError("socket", hostport, sockErr)
		return
	}
	// reuse addr
	if err = unix.SetsockoptInt(sock, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(sock)
		err = newBindError("setsockopt", hostport, os.NewSyscallError("setsockopt", err))
		return
	}
	// reuse port
	if options.ReusePort {
		if err = unix.SetsockoptInt(sock, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			_ = unix.Close(sock)
			err = newBindError("setsockopt", hostport, os.NewSyscallError("setsockopt", err))
			return
		}
	}
	// bind
	if err = unix.Bind(sock, sockaddr(ip, port, family)); err != nil {
		_ = unix.Close(sock)
		err = newBindError("bind", hostport, os.NewSyscallError("bind", err))
		return
	}
	// listen
	backlog := options.Backlog
	if backlog <= 0 {
		backlog = MaxListenerBacklog()
	}
	if err = unix.Listen(sock, backlog); err != nil {
		_ = unix.Close(sock)
		err = newBindError("listen", hostport, os.NewSyscallError("listen", err))
		return
	}
	fd = sock
	return
}

// LocalPort
// 返回监听 socket 实际绑定的端口，用于端口为 0 的情况。
func LocalPort(fd int) (int, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return 0, os.NewSyscallError("getsockname", err)
	}
	switch addr := sa.(type) {
	case *unix.SockaddrInet4:
		return addr.Port, nil
	case *unix.SockaddrInet6:
		return addr.Port, nil
	default:
		return 0, unix.EAFNOSUPPORT
	}
}

func resolveIP(address string) (ip net.IP, family int, err error) {
	switch address {
	case "", "0.0.0.0":
		return net.IPv4zero.To4(), unix.AF_INET, nil
	case "::":
		return net.IPv6unspecified, unix.AF_INET6, nil
	}
	ip = net.ParseIP(address)
	if ip == nil {
		addr, resolveErr := net.ResolveIPAddr("ip", address)
		if resolveErr != nil {
			err = resolveErr
			return
		}
		ip = addr.IP
	}
	if ip4 := ip.To4(); ip4 != nil {
		return ip4, unix.AF_INET, nil
	}
	return ip.To16(), unix.AF_INET6, nil
}

func newBindError(stage string, address string, cause error) error {
	return errors.From(
		ErrBind,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaStageKey, stage),
		errors.WithMeta(errMetaAddrKey, address),
		WithErrno(cause),
		errors.WithWrap(cause),
	)
}

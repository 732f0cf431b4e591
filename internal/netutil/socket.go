package netutil

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

// ErrNotUnix 套接字不是 AF_UNIX（或不是套接字）。
var ErrNotUnix = errors.New("netutil: not a unix socket")

// SockType 返回 SO_TYPE；非套接字返回 ENOTSOCK。
func SockType(fd int) (int, error) {
	return unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TYPE)
}

// LocalPath 返回 unix 套接字绑定的文件系统路径（未绑定时为空串）。
func LocalPath(fd int) (string, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return "", err
	}
	ua, ok := sa.(*unix.SockaddrUnix)
	if !ok {
		return "", fmt.Errorf("%w: %T", ErrNotUnix, sa)
	}
	return ua.Name, nil
}

// IsUnix 判断 fd 是否为 AF_UNIX 套接字。
func IsUnix(fd int) (bool, error) {
	_, err := LocalPath(fd)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotUnix) || errors.Is(err, unix.ENOTSOCK) {
		return false, nil
	}
	return false, err
}

// ProcPath 通过 /proc/self/fd 解析非套接字 fd 打开的路径。
func ProcPath(fd int) (string, error) {
	if fd < 0 {
		return "", unix.EBADF
	}
	return os.Readlink("/proc/self/fd/" + strconv.Itoa(fd))
}

// SetRecvTimeout 为阻塞读设置 SO_RCVTIMEO；d<=0 时取消超时。
func SetRecvTimeout(fd int, d time.Duration) error {
	var tv unix.Timeval
	if d > 0 {
		tv = unix.NsecToTimeval(d.Nanoseconds())
	}
	return unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}

// SetNonblock 设置 O_NONBLOCK。
func SetNonblock(fd int, nonblock bool) error {
	return unix.SetNonblock(fd, nonblock)
}

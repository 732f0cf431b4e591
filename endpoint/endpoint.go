package endpoint

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/legamerdc/logd/internal/handoff"
	"github.com/legamerdc/logd/internal/netutil"
)

// Endpoint 是一个已分类、可读（或可 accept）的资源。
// ReadOnce 只在就绪通知之后调用，每次通知恰好读一次。
type Endpoint interface {
	Role() Role
	FD() int
	ReadOnce(buf []byte) (int, error)
	Close() error
}

type base struct {
	role Role
	file *os.File
	fd   int
}

// newBase 只调用一次 file.Fd()（它会把 fd 置为阻塞），之后改回非阻塞。
func newBase(role Role, f *os.File) (base, error) {
	fd := int(f.Fd())
	if err := netutil.SetNonblock(fd, true); err != nil {
		return base{}, fmt.Errorf("set nonblock %s: %w", f.Name(), err)
	}
	return base{role: role, file: f, fd: fd}, nil
}

func (b *base) Role() Role     { return b.role }
func (b *base) FD() int        { return b.fd }
func (b *base) Close() error   { return b.file.Close() }
func (b *base) String() string { return fmt.Sprintf("%s(%s)", b.role, b.file.Name()) }

// DefaultAcceptReadTimeout 为 accept 后单次读取的默认上限。
const DefaultAcceptReadTimeout = time.Second

// Listener 面向连接的监听端点：先 accept，再对新连接读一次。
// 每次事件只处理一个连接，连接读完即关闭。
type Listener struct {
	base
	readTimeout time.Duration
}

// NewListener 的 readTimeout <= 0 时使用 DefaultAcceptReadTimeout，读取总是有界。
func NewListener(role Role, f *os.File, readTimeout time.Duration) (*Listener, error) {
	b, err := newBase(role, f)
	if err != nil {
		return nil, err
	}
	if readTimeout <= 0 {
		readTimeout = DefaultAcceptReadTimeout
	}
	return &Listener{base: b, readTimeout: readTimeout}, nil
}

func (l *Listener) ReadOnce(buf []byte) (int, error) {
	nfd, _, err := accept(l.FD())
	if err != nil {
		return 0, fmt.Errorf("accept: %w", err)
	}
	defer unix.Close(nfd)
	// accept 出来的连接是阻塞的，用 SO_RCVTIMEO 给读取设上限
	if err := netutil.SetRecvTimeout(nfd, l.readTimeout); err != nil {
		return 0, fmt.Errorf("set read timeout: %w", err)
	}
	n, err := readRetry(nfd, buf)
	if err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}
	return n, nil
}

// Datagram 无连接端点：每次 recv 一个报文。
type Datagram struct {
	base
}

func NewDatagram(role Role, f *os.File) (*Datagram, error) {
	b, err := newBase(role, f)
	if err != nil {
		return nil, err
	}
	return &Datagram{base: b}, nil
}

// ReadOnce 读取一个报文。报文比 buf 长时返回 len(buf) 和 ErrTruncated，
// buf 中仍是报文的前缀。
func (d *Datagram) ReadOnce(buf []byte) (int, error) {
	for {
		n, _, err := unix.Recvfrom(d.FD(), buf, unix.MSG_DONTWAIT|unix.MSG_TRUNC)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("recv: %w", err)
		}
		if n > len(buf) {
			return len(buf), fmt.Errorf("%w: %d bytes, buffer %d", ErrTruncated, n, len(buf))
		}
		return n, nil
	}
}

// File 普通可读文件（字符设备、管道），无网络地址。
type File struct {
	base
}

func NewFile(role Role, f *os.File) (*File, error) {
	b, err := newBase(role, f)
	if err != nil {
		return nil, err
	}
	return &File{base: b}, nil
}

// OpenFile 以非阻塞只读方式打开路径（如 /dev/kmsg）。
func OpenFile(role Role, path string) (*File, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	f := os.NewFile(uintptr(fd), path)
	ep, err := NewFile(role, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return ep, nil
}

func (f *File) ReadOnce(buf []byte) (int, error) {
	n, err := readRetry(f.FD(), buf)
	if err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}
	return n, nil
}

// Wrap 按传输类型为描述符选择端点实现。
// 失败时描述符仍归调用方所有。
func Wrap(role Role, d handoff.Descriptor, acceptReadTimeout time.Duration) (Endpoint, error) {
	var (
		ep  Endpoint
		err error
	)
	switch d.Kind {
	case handoff.KindStream:
		ep, err = NewListener(role, d.File, acceptReadTimeout)
	case handoff.KindDatagram:
		ep, err = NewDatagram(role, d.File)
	default:
		ep, err = NewFile(role, d.File)
	}
	if err != nil {
		return nil, err
	}
	return ep, nil
}

func readRetry(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Read(fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

func accept(fd int) (int, unix.Sockaddr, error) {
	for {
		nfd, sa, err := unix.Accept(fd)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return -1, nil, err
		}
		unix.CloseOnExec(nfd)
		return nfd, sa, nil
	}
}

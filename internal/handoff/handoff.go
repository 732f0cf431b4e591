// Package handoff 读取 supervisor（systemd socket activation）传入的描述符。
package handoff

import (
	"errors"
	"fmt"
	"os"

	"github.com/coreos/go-systemd/v22/activation"
	"golang.org/x/sys/unix"

	"github.com/legamerdc/logd/internal/netutil"
)

var (
	// ErrNoHandoff 环境中没有 LISTEN_FDS
	ErrNoHandoff = errors.New("handoff: no descriptors passed (LISTEN_FDS unset)")
	// ErrEmpty 握手存在但没有可用描述符（含 LISTEN_PID 不匹配）
	ErrEmpty = errors.New("handoff: zero descriptors received")
	// ErrMalformed 无法判定某个描述符的传输类型
	ErrMalformed = errors.New("handoff: malformed descriptor")
)

// Kind 为粗粒度传输类型。
type Kind int

const (
	KindUnspecified Kind = iota
	KindStream
	KindDatagram
)

func (k Kind) String() string {
	switch k {
	case KindStream:
		return "unix-stream"
	case KindDatagram:
		return "unix-datagram"
	default:
		return "unspecified"
	}
}

// Descriptor 是一个继承来的 fd 及其传输类型。
// File 的所有权随 Descriptor 一起转移，最终只由一个 endpoint 关闭。
type Descriptor struct {
	File *os.File
	Kind Kind
}

// FD 返回底层 fd，文件已关闭时为 -1。
func (d Descriptor) FD() int { return int(d.File.Fd()) }

func (d Descriptor) Name() string { return d.File.Name() }

func (d Descriptor) Close() error { return d.File.Close() }

// Acquire 从 LISTEN_* 环境变量读取描述符，只应调用一次。
// 环境变量会被清除，子进程不会重复继承。
func Acquire() ([]Descriptor, error) {
	if os.Getenv("LISTEN_FDS") == "" {
		return nil, ErrNoHandoff
	}
	files := activation.Files(true)
	if len(files) == 0 {
		return nil, ErrEmpty
	}
	return FromFiles(files)
}

// FromFiles 为每个文件查询内核得到传输类型。
// 出错时关闭全部文件。
func FromFiles(files []*os.File) ([]Descriptor, error) {
	if len(files) == 0 {
		return nil, ErrEmpty
	}
	descs := make([]Descriptor, 0, len(files))
	for _, f := range files {
		kind, err := kindOf(int(f.Fd()))
		if err != nil {
			for _, f := range files {
				f.Close()
			}
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, f.Name(), err)
		}
		descs = append(descs, Descriptor{File: f, Kind: kind})
	}
	return descs, nil
}

func kindOf(fd int) (Kind, error) {
	typ, err := netutil.SockType(fd)
	if errors.Is(err, unix.ENOTSOCK) {
		return KindUnspecified, nil
	}
	if err != nil {
		return KindUnspecified, err
	}
	isUnix, err := netutil.IsUnix(fd)
	if err != nil {
		return KindUnspecified, err
	}
	if !isUnix {
		return KindUnspecified, nil
	}
	switch typ {
	case unix.SOCK_STREAM:
		return KindStream, nil
	case unix.SOCK_DGRAM:
		return KindDatagram, nil
	}
	return KindUnspecified, nil
}

//go:build linux

package poller

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sys/unix"
)

// wakeData 是 wakeToken 在 EpollEvent.Fd 中的表示。
const wakeData int32 = -1

type epollPoller struct {
	efd    int
	wfd    int // eventfd for wakeup
	raw    []unix.EpollEvent
	closed bool
}

func New() (Poller, error) {
	efd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wfd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(efd)
		return nil, err
	}
	p := &epollPoller{efd: efd, wfd: wfd}
	// 注册 wakeup fd
	ev := &unix.EpollEvent{Events: unix.EPOLLIN, Fd: wakeData}
	if err := unix.EpollCtl(efd, unix.EPOLL_CTL_ADD, wfd, ev); err != nil {
		unix.Close(wfd)
		unix.Close(efd)
		return nil, err
	}
	return p, nil
}

func (p *epollPoller) Register(fd FD, tok Token) error {
	if tok == wakeToken {
		return ErrReservedToken
	}
	// 不使用 EPOLLET：每个事件只做一次读取
	ev := &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(tok)}
	err := unix.EpollCtl(p.efd, unix.EPOLL_CTL_ADD, fd, ev)
	if errors.Is(err, unix.ENOSPC) || errors.Is(err, unix.ENOMEM) {
		return fmt.Errorf("%w: %v", ErrFull, err)
	}
	return err
}

func (p *epollPoller) Unregister(fd FD) error {
	return unix.EpollCtl(p.efd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) Wake() error {
	var buf [8]byte
	buf[0] = 1
	_, err := unix.Write(p.wfd, buf[:])
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

func (p *epollPoller) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	unix.Close(p.wfd)
	return unix.Close(p.efd)
}

func (p *epollPoller) Wait(events []Event, timeout time.Duration) (int, error) {
	defer runtime.KeepAlive(p)
	if len(events) == 0 {
		return 0, nil
	}
	if cap(p.raw) < len(events) {
		p.raw = make([]unix.EpollEvent, len(events))
	}
	raw := p.raw[:len(events)]
	n, err := unix.EpollWait(p.efd, raw, waitMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	out := 0
	for i := 0; i < n; i++ {
		ev := raw[i]
		if ev.Fd == wakeData {
			// 清空 eventfd
			var efdBuf [8]byte
			_, _ = unix.Read(p.wfd, efdBuf[:])
			continue
		}
		events[out] = Event{
			Token:  Token(uint32(ev.Fd)),
			Hangup: ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		}
		out++
	}
	return out, nil
}

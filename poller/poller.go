package poller

import (
	"errors"
	"time"
)

// FD 表示文件描述符。
type FD = int

// Token 是注册时绑定到 fd 的稳定标识，事件中原样返回。
type Token = uint32

// wakeToken 保留给内部唤醒 fd，调用方不可使用。
const wakeToken Token = ^Token(0)

var (
	// ErrFull 通知子系统拒绝更多注册（epoll ENOSPC/ENOMEM）。
	ErrFull = errors.New("poller: notification set full")
	// ErrReservedToken 调用方试图使用内部保留 token。
	ErrReservedToken = errors.New("poller: reserved token")
)

// Event 描述一次就绪通知。
type Event struct {
	Token  Token
	Hangup bool // EPOLLHUP|EPOLLERR
}

// Poller 是只关注可读事件的就绪集合。
// 水平触发：一次唤醒只读一次，剩余数据在下一次 Wait 中仍会就绪。
type Poller interface {
	Register(fd FD, tok Token) error
	Unregister(fd FD) error
	// Wait 阻塞至多 timeout（<0 表示无限），返回写入 events 的就绪数量。
	// 超时或被信号打断时返回 0, nil。
	Wait(events []Event, timeout time.Duration) (int, error)
	Wake() error
	Close() error
}

// waitMillis 将超时换算为 epoll/kevent 的毫秒参数，向上取整避免忙等。
func waitMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := timeout / time.Millisecond
	if timeout%time.Millisecond != 0 {
		ms++
	}
	return int(ms)
}

//go:build !linux

package poller

import "errors"

// ErrNotSupported 非 Linux 平台没有 epoll。
var ErrNotSupported = errors.New("poller: platform not supported (requires Linux/epoll)")

func New() (Poller, error) { return nil, ErrNotSupported }

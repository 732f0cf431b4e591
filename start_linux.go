//go:build linux

package logd

import "github.com/legamerdc/logd/internal/handoff"

// Start 在 Linux 上读取 supervisor 握手、注册端点并发送 READY=1。
// 返回的 Daemon 尚未进入事件循环，调用方接着调用 Serve。
func Start(cfg Config, e Emitter, n Notifier, opts ...Option) (*Daemon, error) {
	descs, err := handoff.Acquire()
	if err != nil {
		return nil, err
	}
	d, err := New(cfg, e, n, opts...)
	if err != nil {
		closeAll(descs)
		return nil, err
	}
	if err := d.Activate(descs); err != nil {
		d.Close()
		return nil, err
	}
	d.Ready()
	return d, nil
}

package logd

import (
	"errors"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/legamerdc/logd/endpoint"
)

// handle 对一次就绪事件做一次有界读取。
// 读取/accept 失败记日志后丢弃本次事件，下一次就绪会重新尝试。
func (d *Daemon) handle(ep endpoint.Endpoint, hangup bool) {
	bp := d.bufs.Get().(*[]byte)
	defer d.bufs.Put(bp)

	role := ep.Role()
	n, err := ep.ReadOnce(*bp)
	switch {
	case errors.Is(err, endpoint.ErrTruncated):
		d.metrics.truncated.WithLabelValues(role.String()).Inc()
		d.warn(role.String(), err, "message truncated")
		d.deliver(role, trimPartialRune((*bp)[:n]))
		return
	case err != nil:
		d.metrics.readErrors.WithLabelValues(role.String()).Inc()
		d.warn(role.String(), err, "read failed")
		if hangup {
			d.detach(ep)
		}
		return
	}
	if n == 0 && hangup {
		// 对端已关闭（例如管道写端），水平触发下会一直就绪
		d.detach(ep)
		return
	}
	d.deliver(role, (*bp)[:n])
}

// trimPartialRune 去掉截断处不完整的 UTF-8 序列。
func trimPartialRune(b []byte) []byte {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				return b[:i]
			}
			break
		}
	}
	return b
}

// deliver 只解码实际读到的字节；非 UTF-8 静默丢弃。
func (d *Daemon) deliver(role endpoint.Role, b []byte) {
	if len(b) == 0 {
		return
	}
	if !utf8.Valid(b) {
		d.metrics.discarded.WithLabelValues(role.String()).Inc()
		return
	}
	d.emitter.Emit(string(b))
	if d.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		d.log.WithFields(logrus.Fields{"role": role, "bytes": len(b)}).Debug("read event")
	}
	d.metrics.emitted.WithLabelValues(role.String()).Inc()
}

func (d *Daemon) detach(ep endpoint.Endpoint) {
	if err := d.p.Unregister(ep.FD()); err != nil {
		d.warn(ep.Role().String(), err, "unregister closed endpoint")
		return
	}
	d.log.WithField("role", ep.Role()).Warn("endpoint hung up, no longer polled")
}

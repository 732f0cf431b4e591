package logd

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/legamerdc/logd/notify"
	"github.com/legamerdc/logd/poller"
)

// heartbeatClock 记录下一次必须发送 WATCHDOG=1 的时间点。
type heartbeatClock struct {
	interval time.Duration
	deadline time.Time
}

// newHeartbeatClock 周期取 wait 与 supervisor 看门狗周期一半中的较小者。
func newHeartbeatClock(wait, watchdog time.Duration) heartbeatClock {
	interval := wait
	if half := watchdog / 2; half > 0 && half < interval {
		interval = half
	}
	return heartbeatClock{interval: interval}
}

func (c *heartbeatClock) reset(now time.Time) { c.deadline = now.Add(c.interval) }

func (c *heartbeatClock) remaining(now time.Time) time.Duration {
	if r := c.deadline.Sub(now); r > 0 {
		return r
	}
	return 0
}

// Serve 运行事件循环直到 Stop；只有 poller 自身失败时返回错误。
func (d *Daemon) Serve() error {
	d.clock.reset(time.Now())
	for !d.stopping.Load() {
		if err := d.step(); err != nil {
			return err
		}
	}
	return nil
}

// step 执行一次 Idle -> Dispatching -> Idle：
// 有界等待，发送心跳，逐个分发就绪事件。
func (d *Daemon) step() error {
	n, err := d.p.Wait(d.events, d.clock.remaining(time.Now()))
	if err != nil {
		return fmt.Errorf("logd: wait: %w", err)
	}
	if d.stopping.Load() {
		return nil
	}
	d.heartbeat()
	for _, ev := range d.events[:n] {
		d.dispatch(ev)
	}
	return nil
}

func (d *Daemon) heartbeat() {
	d.metrics.wakeups.Inc()
	err := d.notifier.Notify(notify.Watchdog)
	d.clock.reset(time.Now())
	if err != nil {
		d.metrics.watchdog.WithLabelValues("error").Inc()
		d.warn("watchdog", err, "watchdog notification failed")
		return
	}
	d.metrics.watchdog.WithLabelValues("ok").Inc()
	d.log.Debug("watchdog")
}

func (d *Daemon) dispatch(ev poller.Event) {
	ep, ok := d.reg.Lookup(ev.Token)
	if !ok {
		// poller 与注册表不一致，无法继续保证正确性
		d.log.WithField("token", ev.Token).Error("readiness event for unregistered token")
		panic(fmt.Sprintf("logd: readiness event for unregistered token %d", ev.Token))
	}
	d.handle(ep, ev.Hangup)
}

// warnLimiter 限制同一来源的告警频率，并统计被吞掉的条数。
type warnLimiter struct {
	lim        *rate.Limiter
	suppressed int
}

func (d *Daemon) warn(key string, err error, msg string) {
	wl, ok := d.warns[key]
	if !ok {
		wl = &warnLimiter{lim: rate.NewLimiter(rate.Limit(d.cfg.ErrorLogRate), d.cfg.ErrorLogBurst)}
		d.warns[key] = wl
	}
	if !wl.lim.Allow() {
		wl.suppressed++
		return
	}
	entry := d.log.WithError(err).WithField("source", key)
	if wl.suppressed > 0 {
		entry = entry.WithField("suppressed", wl.suppressed)
		wl.suppressed = 0
	}
	entry.Warn(msg)
}

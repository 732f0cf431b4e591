package logd

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/legamerdc/logd/endpoint"
	"github.com/legamerdc/logd/internal/handoff"
	"github.com/legamerdc/logd/notify"
	"github.com/legamerdc/logd/poller"
)

// Daemon 持有 poller、端点注册表和事件循环状态。
// 除 Stop 外的方法都只能在同一个 goroutine 中调用。
type Daemon struct {
	cfg      Config
	emitter  Emitter
	notifier Notifier
	log      *logrus.Entry
	metrics  *Metrics

	p      poller.Poller
	reg    *endpoint.Registry
	events []poller.Event
	bufs   sync.Pool
	clock  heartbeatClock
	warns  map[string]*warnLimiter

	stopping atomic.Bool
}

type Option func(*Daemon)

func WithLogger(entry *logrus.Entry) Option {
	return func(d *Daemon) { d.log = entry }
}

func WithMetrics(m *Metrics) Option {
	return func(d *Daemon) { d.metrics = m }
}

// New 构造未激活的 Daemon
func New(cfg Config, e Emitter, n Notifier, opts ...Option) (*Daemon, error) {
	if e == nil || n == nil {
		return nil, ErrInvalidArgument
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Daemon{
		cfg:      cfg,
		emitter:  e,
		notifier: n,
		events:   make([]poller.Event, len(endpoint.Roles)),
		warns:    make(map[string]*warnLimiter),
	}
	for _, o := range opts {
		o(d)
	}
	if d.log == nil {
		d.log = logrus.WithField("component", "logd")
	}
	if d.metrics == nil {
		d.metrics = NewMetrics(nil)
	}
	size := cfg.ReadBufferSize
	d.bufs.New = func() any {
		b := make([]byte, size)
		return &b
	}
	var watchdog time.Duration
	if wi, ok := n.(watchdogIntervaler); ok {
		watchdog = wi.WatchdogInterval()
	}
	d.clock = newHeartbeatClock(cfg.WaitTimeout, watchdog)

	p, err := poller.New()
	if err != nil {
		return nil, err
	}
	d.p = p
	d.reg = endpoint.NewRegistry(p, cfg.AcceptReadTimeout)
	return d, nil
}

// CheckCount 校验握手数量；不一致时启动必须失败。
func CheckCount(descs []handoff.Descriptor, expected int) error {
	if len(descs) != expected {
		return fmt.Errorf("%w: got %d, want %d", ErrRoleCountMismatch, len(descs), expected)
	}
	return nil
}

// Activate 校验数量、逐个分类并注册描述符，再按需打开内核日志。
// descs 的所有权全部转移：无论成功失败，未被注册的描述符都会被关闭。
func (d *Daemon) Activate(descs []handoff.Descriptor) error {
	if err := CheckCount(descs, d.cfg.ExpectedDescriptors); err != nil {
		closeAll(descs)
		return err
	}
	for i, desc := range descs {
		log := d.log.WithFields(logrus.Fields{"fd": desc.Name(), "kind": desc.Kind})
		role, err := endpoint.Classify(desc)
		if err != nil {
			reason := "unrecognized"
			if errors.Is(err, endpoint.ErrMetadataUnavailable) {
				reason = "metadata"
			}
			d.metrics.dropped.WithLabelValues(reason).Inc()
			log.WithError(err).Warn("dropping descriptor")
			desc.Close()
			continue
		}
		if err := d.reg.Register(role, desc); err != nil {
			closeAll(descs[i+1:])
			return err
		}
		log.WithField("role", role).Info("registered endpoint")
	}
	if err := d.openKernelLog(); err != nil {
		return err
	}
	if d.reg.Len() == 0 {
		return ErrNoEndpoints
	}
	return nil
}

// Register 直接登记一个描述符，跳过分类。
func (d *Daemon) Register(role endpoint.Role, desc handoff.Descriptor) error {
	return d.reg.Register(role, desc)
}

// openKernelLog 在握手未提供 kernel-log 时自行打开；打开失败只告警。
func (d *Daemon) openKernelLog() error {
	path := d.cfg.KernelLogPath
	if path == "" || d.reg.Has(endpoint.RoleKernel) {
		return nil
	}
	ep, err := endpoint.OpenFile(endpoint.RoleKernel, path)
	if err != nil {
		d.log.WithError(err).Warn("kernel log unavailable")
		return nil
	}
	if err := d.reg.Add(ep); err != nil {
		return err
	}
	d.log.WithFields(logrus.Fields{"role": endpoint.RoleKernel, "path": path}).Info("registered endpoint")
	return nil
}

// Roles 返回已注册角色
func (d *Daemon) Roles() []endpoint.Role { return d.reg.Active() }

// Ready 通知 supervisor 已完成注册。失败只记录。
func (d *Daemon) Ready() {
	if err := d.notifier.Notify(notify.Ready); err != nil {
		d.log.WithError(err).Error("ready notification failed")
		return
	}
	d.log.WithField("roles", d.reg.Active()).Info("ready")
}

// Stop 可从任意 goroutine 调用，使 Serve 在下一次唤醒后返回。
func (d *Daemon) Stop() {
	if d.stopping.Swap(true) {
		return
	}
	if err := d.p.Wake(); err != nil {
		d.log.WithError(err).Warn("wake poller")
	}
}

// Close 关闭全部端点与 poller；只在 Serve 返回后调用。
func (d *Daemon) Close() error {
	err := d.reg.Close()
	if perr := d.p.Close(); err == nil {
		err = perr
	}
	return err
}

func closeAll(descs []handoff.Descriptor) {
	for _, d := range descs {
		d.Close()
	}
}

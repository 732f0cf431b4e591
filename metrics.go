package logd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 为事件循环的计数器；reg 为 nil 时不注册。
type Metrics struct {
	wakeups    prometheus.Counter
	watchdog   *prometheus.CounterVec
	emitted    *prometheus.CounterVec
	discarded  *prometheus.CounterVec
	truncated  *prometheus.CounterVec
	readErrors *prometheus.CounterVec
	dropped    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		wakeups: f.NewCounter(prometheus.CounterOpts{
			Name: "logd_wakeups_total",
			Help: "Event loop wakeups (ready or timed out).",
		}),
		watchdog: f.NewCounterVec(prometheus.CounterOpts{
			Name: "logd_watchdog_total",
			Help: "Watchdog notifications by result.",
		}, []string{"result"}),
		emitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "logd_messages_emitted_total",
			Help: "Messages forwarded to the sink.",
		}, []string{"role"}),
		discarded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "logd_messages_discarded_total",
			Help: "Messages discarded because they were not valid UTF-8.",
		}, []string{"role"}),
		truncated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "logd_messages_truncated_total",
			Help: "Datagrams longer than the read buffer.",
		}, []string{"role"}),
		readErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "logd_read_errors_total",
			Help: "Failed accept or read attempts.",
		}, []string{"role"}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "logd_descriptors_dropped_total",
			Help: "Inherited descriptors dropped during classification.",
		}, []string{"reason"}),
	}
}

package logd

import (
	"fmt"
	"time"

	"github.com/legamerdc/logd/endpoint"
	"github.com/legamerdc/logd/sink"
)

// Emitter 为外部日志协作者：收到的每条文本原样交给 Emit。
type Emitter interface {
	Emit(line string)
}

// Notifier 向 supervisor 发送状态（READY=1 / WATCHDOG=1 ...）。
// 若同时实现 WatchdogInterval，事件循环的等待时长会据此收紧。
type Notifier interface {
	Notify(state string) error
}

type watchdogIntervaler interface {
	WatchdogInterval() time.Duration
}

// Config 为守护进程配置
type Config struct {
	ExpectedDescriptors int           `toml:"expected_descriptors"` // supervisor 应传入的描述符数量
	WaitTimeout         time.Duration `toml:"wait_timeout"`         // 单次等待上限，同时是心跳周期
	ReadBufferSize      int           `toml:"read_buffer_size"`     // 单次读取的缓冲大小
	AcceptReadTimeout   time.Duration `toml:"accept_read_timeout"`  // accept 后读取的超时
	KernelLogPath       string        `toml:"kernel_log_path"`      // 为空则不打开内核日志
	ErrorLogRate        float64       `toml:"error_log_rate"`       // 每个角色每秒最多几条错误日志
	ErrorLogBurst       int           `toml:"error_log_burst"`
	LogLevel            string        `toml:"log_level"`
	LogFormat           string        `toml:"log_format"`      // text / json
	MetricsAddress      string        `toml:"metrics_address"` // 为空则不暴露 /metrics
	Sink                sink.Config   `toml:"sink"`
}

// DefaultConfig 对应 systemd-journald.socket 的三个描述符
func DefaultConfig() Config {
	return Config{
		ExpectedDescriptors: 3,
		WaitTimeout:         30 * time.Second,
		ReadBufferSize:      64 << 10, // 64 KiB
		AcceptReadTimeout:   endpoint.DefaultAcceptReadTimeout,
		KernelLogPath:       "/dev/kmsg",
		ErrorLogRate:        1,
		ErrorLogBurst:       5,
		LogLevel:            "info",
		LogFormat:           "text",
		Sink:                sink.DefaultConfig(),
	}
}

func (c Config) Validate() error {
	switch {
	case c.ExpectedDescriptors <= 0:
		return fmt.Errorf("%w: expected_descriptors must be > 0", ErrInvalidArgument)
	case c.WaitTimeout <= 0:
		return fmt.Errorf("%w: wait_timeout must be > 0", ErrInvalidArgument)
	case c.ReadBufferSize <= 0:
		return fmt.Errorf("%w: read_buffer_size must be > 0", ErrInvalidArgument)
	case c.AcceptReadTimeout <= 0:
		return fmt.Errorf("%w: accept_read_timeout must be > 0", ErrInvalidArgument)
	case c.ErrorLogRate <= 0 || c.ErrorLogBurst <= 0:
		return fmt.Errorf("%w: error_log_rate and error_log_burst must be > 0", ErrInvalidArgument)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidArgument, c.LogFormat)
	}
	return c.Sink.Validate()
}

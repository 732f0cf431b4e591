//go:build !linux

package logd

// Start 在非 Linux 平台返回占位错误，保证编译通过
func Start(cfg Config, e Emitter, n Notifier, opts ...Option) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return nil, ErrPlatformNotSupported
}

// Package notify 向 supervisor 发送 sd_notify 状态。
package notify

import (
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

const (
	Ready    = daemon.SdNotifyReady
	Watchdog = daemon.SdNotifyWatchdog
	Stopping = daemon.SdNotifyStopping
)

// Systemd 通过 NOTIFY_SOCKET 发送状态；未设置 NOTIFY_SOCKET 时静默成功。
type Systemd struct{}

func (Systemd) Notify(state string) error {
	_, err := daemon.SdNotify(false, state)
	return err
}

// WatchdogInterval 返回 supervisor 要求的看门狗周期，未启用时为 0。
func (Systemd) WatchdogInterval() time.Duration {
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return 0
	}
	return d
}

package endpoint

import (
	"fmt"

	"github.com/legamerdc/logd/poller"
)

// Role 为端点的逻辑身份，与传输类型无关。
type Role int

const (
	RoleNative Role = iota // /run/systemd/journal/socket
	RoleSyslog             // /run/systemd/journal/dev-log
	RoleKernel             // /dev/kmsg
	RoleStdout             // /run/systemd/journal/stdout
)

// Roles 列出全部已知角色。
var Roles = []Role{RoleNative, RoleSyslog, RoleKernel, RoleStdout}

func (r Role) String() string {
	switch r {
	case RoleNative:
		return "native-protocol"
	case RoleSyslog:
		return "legacy-syslog"
	case RoleKernel:
		return "kernel-log"
	case RoleStdout:
		return "stdout-capture"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Token 是注册到 poller 的稳定 key。
func (r Role) Token() poller.Token { return poller.Token(r) }

// RoleOf 将 poller token 映射回角色；未知 token 返回 false。
func RoleOf(tok poller.Token) (Role, bool) {
	r := Role(tok)
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return 0, false
}

package endpoint

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/legamerdc/logd/internal/handoff"
	"github.com/legamerdc/logd/internal/netutil"
)

// 角色路径名
const (
	stdoutName = "stdout"
	devLogName = "dev-log"
	socketName = "socket"
	kmsgName   = "kmsg"
)

// Classify 根据传输类型和内核报告的本地路径为描述符分配角色。
// 不依赖描述符在握手列表中的位置。
func Classify(d handoff.Descriptor) (Role, error) {
	switch d.Kind {
	case handoff.KindStream:
		path, err := localPath(d)
		if err != nil {
			return 0, err
		}
		if filepath.Base(path) == stdoutName {
			return RoleStdout, nil
		}
		return 0, unrecognized(d, path)
	case handoff.KindDatagram:
		path, err := localPath(d)
		if err != nil {
			return 0, err
		}
		switch {
		case strings.HasSuffix(path, devLogName):
			return RoleSyslog, nil
		case strings.HasSuffix(path, socketName):
			return RoleNative, nil
		}
		return 0, unrecognized(d, path)
	default:
		path, err := netutil.ProcPath(d.FD())
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrMetadataUnavailable, d.Name(), err)
		}
		if filepath.Base(path) == kmsgName {
			return RoleKernel, nil
		}
		return 0, unrecognized(d, path)
	}
}

func localPath(d handoff.Descriptor) (string, error) {
	path, err := netutil.LocalPath(d.FD())
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMetadataUnavailable, d.Name(), err)
	}
	return path, nil
}

func unrecognized(d handoff.Descriptor, path string) error {
	return fmt.Errorf("%w: %s kind=%s path=%q", ErrUnrecognized, d.Name(), d.Kind, path)
}

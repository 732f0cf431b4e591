package logd

import "errors"

var (
	// ErrPlatformNotSupported 非 Linux 平台的占位错误（需要 epoll）
	ErrPlatformNotSupported = errors.New("logd: platform not supported (requires Linux/epoll)")

	// ErrInvalidArgument 参数非法
	ErrInvalidArgument = errors.New("logd: invalid argument")

	// ErrRoleCountMismatch 描述符数量与预期角色数不一致，unit 配置有误
	ErrRoleCountMismatch = errors.New("logd: descriptor count does not match expected roles")

	// ErrNoEndpoints 没有任何端点可服务
	ErrNoEndpoints = errors.New("logd: no endpoint registered")
)

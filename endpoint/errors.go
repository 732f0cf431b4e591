package endpoint

import "errors"

var (
	// ErrUnrecognized 描述符的类型/路径不匹配任何角色，丢弃即可
	ErrUnrecognized = errors.New("endpoint: unrecognized descriptor")
	// ErrMetadataUnavailable 内核元数据查询失败，仅影响该描述符
	ErrMetadataUnavailable = errors.New("endpoint: socket metadata unavailable")
	// ErrDuplicateRole 角色已被占用（启动期不变量被破坏）
	ErrDuplicateRole = errors.New("endpoint: duplicate role")
	// ErrMultiplexerFull 通知子系统拒绝更多注册
	ErrMultiplexerFull = errors.New("endpoint: multiplexer full")
	// ErrTruncated 报文超过读缓冲区，只读到前 len(buf) 字节
	ErrTruncated = errors.New("endpoint: message truncated")
)

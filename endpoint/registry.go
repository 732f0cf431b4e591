package endpoint

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/legamerdc/logd/internal/handoff"
	"github.com/legamerdc/logd/poller"
)

// Registry 持有全部端点（角色 -> 端点），并负责在 poller 中登记。
// 只在启动期修改；事件循环期间只读。
type Registry struct {
	p                 poller.Poller
	eps               map[Role]Endpoint
	acceptReadTimeout time.Duration
}

func NewRegistry(p poller.Poller, acceptReadTimeout time.Duration) *Registry {
	return &Registry{
		p:                 p,
		eps:               make(map[Role]Endpoint, len(Roles)),
		acceptReadTimeout: acceptReadTimeout,
	}
}

// Register 按类型包装描述符并登记到 role 下。
// 描述符的所有权总是转移给 Registry：失败时它会被关闭。
func (r *Registry) Register(role Role, d handoff.Descriptor) error {
	if _, ok := r.eps[role]; ok {
		d.Close()
		return fmt.Errorf("%w: %s", ErrDuplicateRole, role)
	}
	ep, err := Wrap(role, d, r.acceptReadTimeout)
	if err != nil {
		d.Close()
		return fmt.Errorf("endpoint: register %s: %w", role, err)
	}
	return r.Add(ep)
}

// Add 登记一个已构造好的端点（例如本地打开的 /dev/kmsg）。
// 失败时关闭 ep。
func (r *Registry) Add(ep Endpoint) error {
	role := ep.Role()
	if _, ok := r.eps[role]; ok {
		ep.Close()
		return fmt.Errorf("%w: %s", ErrDuplicateRole, role)
	}
	if err := r.p.Register(ep.FD(), role.Token()); err != nil {
		ep.Close()
		if errors.Is(err, poller.ErrFull) {
			return fmt.Errorf("%w: %s: %w", ErrMultiplexerFull, role, err)
		}
		return fmt.Errorf("endpoint: register %s: %w", role, err)
	}
	r.eps[role] = ep
	return nil
}

// Lookup 按 poller token 找到端点。
func (r *Registry) Lookup(tok poller.Token) (Endpoint, bool) {
	role, ok := RoleOf(tok)
	if !ok {
		return nil, false
	}
	ep, ok := r.eps[role]
	return ep, ok
}

func (r *Registry) Has(role Role) bool {
	_, ok := r.eps[role]
	return ok
}

func (r *Registry) Len() int { return len(r.eps) }

// Active 返回已登记的角色，按角色值排序。
func (r *Registry) Active() []Role {
	roles := make([]Role, 0, len(r.eps))
	for role := range r.eps {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// Close 从 poller 注销并关闭全部端点，返回遇到的第一个错误。
func (r *Registry) Close() error {
	var first error
	for role, ep := range r.eps {
		_ = r.p.Unregister(ep.FD())
		if err := ep.Close(); err != nil && first == nil {
			first = err
		}
		delete(r.eps, role)
	}
	return first
}

package endpoint

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/legamerdc/logd/poller"
)

func TestRegisterWrapsByKind(t *testing.T) {
	p := newFakePoller()
	reg := NewRegistry(p, time.Second)
	defer reg.Close()

	require.NoError(t, reg.Register(RoleSyslog, datagramDescriptor(t, tempPath(t, "dev-log"))))
	require.NoError(t, reg.Register(RoleStdout, listenerDescriptor(t, tempPath(t, "stdout"))))
	pd, _ := pipeDescriptor(t)
	require.NoError(t, reg.Register(RoleKernel, pd))

	ep, ok := reg.Lookup(RoleSyslog.Token())
	require.True(t, ok)
	assert.IsType(t, &Datagram{}, ep)
	ep, ok = reg.Lookup(RoleStdout.Token())
	require.True(t, ok)
	assert.IsType(t, &Listener{}, ep)
	ep, ok = reg.Lookup(RoleKernel.Token())
	require.True(t, ok)
	assert.IsType(t, &File{}, ep)

	assert.Equal(t, []Role{RoleSyslog, RoleKernel, RoleStdout}, reg.Active())
	assert.Len(t, p.registered, 3)
	for fd, tok := range p.registered {
		ep, ok := reg.Lookup(tok)
		require.True(t, ok)
		assert.Equal(t, fd, ep.FD())
	}
}

func TestRegisterDuplicateRoleKeepsFirst(t *testing.T) {
	p := newFakePoller()
	reg := NewRegistry(p, time.Second)
	defer reg.Close()

	first := datagramDescriptor(t, tempPath(t, "socket"))
	require.NoError(t, reg.Register(RoleNative, first))
	firstFD := first.FD()

	second := datagramDescriptor(t, tempPath(t, "socket"))
	err := reg.Register(RoleNative, second)
	assert.ErrorIs(t, err, ErrDuplicateRole)

	ep, ok := reg.Lookup(RoleNative.Token())
	require.True(t, ok)
	assert.Equal(t, firstFD, ep.FD())
	assert.Equal(t, 1, reg.Len())
	assert.Len(t, p.registered, 1)
}

func TestRegisterMultiplexerFull(t *testing.T) {
	p := newFakePoller()
	p.registerErr = errors.Join(poller.ErrFull, unix.ENOSPC)
	reg := NewRegistry(p, time.Second)

	err := reg.Register(RoleSyslog, datagramDescriptor(t, tempPath(t, "dev-log")))
	assert.ErrorIs(t, err, ErrMultiplexerFull)
	assert.False(t, reg.Has(RoleSyslog))
}

func TestRegisterOtherPollerError(t *testing.T) {
	p := newFakePoller()
	p.registerErr = unix.EPERM
	reg := NewRegistry(p, time.Second)

	err := reg.Register(RoleSyslog, datagramDescriptor(t, tempPath(t, "dev-log")))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMultiplexerFull)
	assert.ErrorIs(t, err, unix.EPERM)
}

func TestDatagramReadOnce(t *testing.T) {
	path := tempPath(t, "dev-log")
	d := datagramDescriptor(t, path)
	ep, err := NewDatagram(RoleSyslog, d.File)
	require.NoError(t, err)
	defer ep.Close()

	c, err := net.Dial("unixgram", path)
	require.NoError(t, err)
	defer c.Close()
	_, err = c.Write([]byte("one"))
	require.NoError(t, err)
	_, err = c.Write([]byte("two"))
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, err := ep.ReadOnce(buf)
	require.NoError(t, err)
	assert.Equal(t, "one", string(buf[:n]))
	n, err = ep.ReadOnce(buf)
	require.NoError(t, err)
	assert.Equal(t, "two", string(buf[:n]))

	_, err = ep.ReadOnce(buf)
	assert.ErrorIs(t, err, unix.EAGAIN)
}

func TestListenerReadOnceAcceptsOneConnection(t *testing.T) {
	path := tempPath(t, "stdout")
	d := listenerDescriptor(t, path)
	ep, err := NewListener(RoleStdout, d.File, time.Second)
	require.NoError(t, err)
	defer ep.Close()

	c, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer c.Close()
	_, err = c.Write([]byte("x"))
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, err := ep.ReadOnce(buf)
	require.NoError(t, err)
	assert.Equal(t, "x", string(buf[:n]))

	// 没有挂起连接时 accept 不阻塞
	_, err = ep.ReadOnce(buf)
	assert.ErrorIs(t, err, unix.EAGAIN)
}

func TestListenerReadTimeout(t *testing.T) {
	path := tempPath(t, "stdout")
	d := listenerDescriptor(t, path)
	ep, err := NewListener(RoleStdout, d.File, 20*time.Millisecond)
	require.NoError(t, err)
	defer ep.Close()

	c, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer c.Close()

	start := time.Now()
	_, err = ep.ReadOnce(make([]byte, 8))
	assert.ErrorIs(t, err, unix.EAGAIN)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFileReadOnce(t *testing.T) {
	d, w := pipeDescriptor(t)
	ep, err := NewFile(RoleKernel, d.File)
	require.NoError(t, err)
	defer ep.Close()

	_, err = w.Write([]byte("6,1,2,-;kernel line\n"))
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, err := ep.ReadOnce(buf)
	require.NoError(t, err)
	assert.Equal(t, "6,1,2,-;kernel line\n", string(buf[:n]))
}

func TestOpenFileMissing(t *testing.T) {
	_, err := OpenFile(RoleKernel, tempPath(t, "kmsg"))
	assert.ErrorIs(t, err, unix.ENOENT)
}

func TestRegistryCloseUnregisters(t *testing.T) {
	p := newFakePoller()
	reg := NewRegistry(p, time.Second)
	require.NoError(t, reg.Register(RoleNative, datagramDescriptor(t, tempPath(t, "socket"))))
	require.NoError(t, reg.Close())
	assert.Empty(t, p.registered)
	assert.Equal(t, 0, reg.Len())
}

func TestDatagramReadOnceReportsTruncation(t *testing.T) {
	path := tempPath(t, "dev-log")
	d := datagramDescriptor(t, path)
	ep, err := NewDatagram(RoleSyslog, d.File)
	require.NoError(t, err)
	defer ep.Close()

	c, err := net.Dial("unixgram", path)
	require.NoError(t, err)
	defer c.Close()
	_, err = c.Write([]byte("0123456789"))
	require.NoError(t, err)
	_, err = c.Write([]byte("next"))
	require.NoError(t, err)

	buf := make([]byte, 4)
	n, err := ep.ReadOnce(buf)
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, 4, n)
	assert.Equal(t, "0123", string(buf[:n]))

	// 截断的剩余部分被丢弃，下一次读到下一个报文
	n, err = ep.ReadOnce(buf)
	require.NoError(t, err)
	assert.Equal(t, "next", string(buf[:n]))
}

func TestListenerZeroTimeoutIsBounded(t *testing.T) {
	path := tempPath(t, "stdout")
	d := listenerDescriptor(t, path)
	ep, err := NewListener(RoleStdout, d.File, 0)
	require.NoError(t, err)
	defer ep.Close()
	assert.Equal(t, DefaultAcceptReadTimeout, ep.readTimeout)

	c, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer c.Close()

	done := make(chan error, 1)
	go func() {
		_, err := ep.ReadOnce(make([]byte, 8))
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, unix.EAGAIN)
	case <-time.After(DefaultAcceptReadTimeout + 2*time.Second):
		t.Fatal("read on a silent connection was not bounded")
	}
}

func TestRegisterFailsWhenNonblockFails(t *testing.T) {
	p := newFakePoller()
	reg := NewRegistry(p, time.Second)
	defer reg.Close()

	d := datagramDescriptor(t, tempPath(t, "dev-log"))
	require.NoError(t, d.File.Close())

	err := reg.Register(RoleSyslog, d)
	assert.ErrorIs(t, err, unix.EBADF)
	assert.False(t, reg.Has(RoleSyslog))
	assert.Empty(t, p.registered)
}

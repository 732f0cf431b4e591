package endpoint

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/legamerdc/logd/internal/handoff"
	"github.com/legamerdc/logd/poller"
)

// fakePoller 记录注册，可注入错误。
type fakePoller struct {
	registered  map[int]poller.Token
	registerErr error
}

func newFakePoller() *fakePoller {
	return &fakePoller{registered: make(map[int]poller.Token)}
}

func (f *fakePoller) Register(fd poller.FD, tok poller.Token) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered[fd] = tok
	return nil
}

func (f *fakePoller) Unregister(fd poller.FD) error {
	delete(f.registered, fd)
	return nil
}

func (f *fakePoller) Wait([]poller.Event, time.Duration) (int, error) { return 0, nil }
func (f *fakePoller) Wake() error                                    { return nil }
func (f *fakePoller) Close() error                                   { return nil }

func datagramDescriptor(t *testing.T, path string) handoff.Descriptor {
	t.Helper()
	c, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	require.NoError(t, err)
	defer c.Close()
	f, err := c.File()
	require.NoError(t, err)
	return handoff.Descriptor{File: f, Kind: handoff.KindDatagram}
}

func listenerDescriptor(t *testing.T, path string) handoff.Descriptor {
	t.Helper()
	l, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	require.NoError(t, err)
	l.SetUnlinkOnClose(false)
	defer l.Close()
	f, err := l.File()
	require.NoError(t, err)
	return handoff.Descriptor{File: f, Kind: handoff.KindStream}
}

func pipeDescriptor(t *testing.T) (handoff.Descriptor, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return handoff.Descriptor{File: r, Kind: handoff.KindUnspecified}, w
}

func tempPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

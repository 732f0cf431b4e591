package logd

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/legamerdc/logd/internal/handoff"
	"github.com/legamerdc/logd/notify"
)

// recorder 记录 Emit 调用
type recorder struct {
	lines []string
}

func (r *recorder) Emit(line string) { r.lines = append(r.lines, line) }

// fakeNotifier 记录状态，可注入错误
type fakeNotifier struct {
	states   []string
	err      error
	watchdog time.Duration
}

func (f *fakeNotifier) Notify(state string) error {
	f.states = append(f.states, state)
	return f.err
}

func (f *fakeNotifier) WatchdogInterval() time.Duration { return f.watchdog }

func (f *fakeNotifier) count(state string) int {
	n := 0
	for _, s := range f.states {
		if s == state {
			n++
		}
	}
	return n
}

func (f *fakeNotifier) watchdogs() int { return f.count(notify.Watchdog) }

type harness struct {
	d       *Daemon
	emitted *recorder
	notif   *fakeNotifier
	metrics *Metrics
	hook    *test.Hook
	dir     string
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.WaitTimeout = 20 * time.Millisecond
	cfg.ReadBufferSize = 1024
	cfg.AcceptReadTimeout = 200 * time.Millisecond
	cfg.KernelLogPath = ""
	return cfg
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	h := &harness{
		emitted: &recorder{},
		notif:   &fakeNotifier{},
		metrics: NewMetrics(prometheus.NewRegistry()),
		hook:    hook,
		dir:     t.TempDir(),
	}
	d, err := New(cfg, h.emitted, h.notif, WithLogger(logrus.NewEntry(logger)), WithMetrics(h.metrics))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	d.clock.reset(time.Now())
	h.d = d
	return h
}

// path 返回独立子目录下的路径，便于同名套接字并存。
func (h *harness) path(t *testing.T, name string) string {
	t.Helper()
	dir, err := os.MkdirTemp(h.dir, "ep")
	require.NoError(t, err)
	return filepath.Join(dir, name)
}

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

func sendDatagram(t *testing.T, path string, msgs ...[]byte) {
	t.Helper()
	c, err := net.Dial("unixgram", path)
	require.NoError(t, err)
	defer c.Close()
	for _, m := range msgs {
		_, err := c.Write(m)
		require.NoError(t, err)
	}
}

func isClosed(d handoff.Descriptor) bool { return d.File.Fd() == ^uintptr(0) }

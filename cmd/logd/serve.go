package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"time"

	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/legamerdc/logd"
	"github.com/legamerdc/logd/notify"
	"github.com/legamerdc/logd/sink"
)

type serveCmd struct {
	configPath string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the sockets passed by systemd" }
func (*serveCmd) Usage() string {
	return `serve [-config FILE]:
  Take the descriptors passed by systemd socket activation, classify them,
  and log every message received until SIGTERM.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "TOML config file (defaults when empty)")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, err := logd.LoadConfig(c.configPath)
	if err != nil {
		logrus.WithError(err).Error("load config")
		return subcommands.ExitUsageError
	}
	logger, err := logd.NewLogger(cfg)
	if err != nil {
		logrus.WithError(err).Error("configure logging")
		return subcommands.ExitUsageError
	}
	log := logrus.NewEntry(logger).WithField("component", "logd")

	emitter, closeSink, err := openSink(cfg.Sink, logger)
	if err != nil {
		log.WithError(err).Error("open sink")
		return subcommands.ExitFailure
	}
	defer closeSink()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	notifier := notify.Systemd{}
	d, err := logd.Start(cfg, emitter, notifier, logd.WithLogger(log), logd.WithMetrics(logd.NewMetrics(reg)))
	if err != nil {
		log.WithError(err).Error("startup failed")
		return subcommands.ExitFailure
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(ctx, unix.SIGINT, unix.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		return d.Serve()
	})
	g.Go(func() error {
		<-gctx.Done()
		d.Stop()
		return nil
	})
	if cfg.MetricsAddress != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			err := srv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				// 指标不可用不影响日志收集
				log.WithError(err).Error("metrics server")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	err = g.Wait()
	if nerr := notifier.Notify(notify.Stopping); nerr != nil {
		log.WithError(nerr).Warn("stopping notification failed")
	}
	if err != nil {
		log.WithError(err).Error("event loop failed")
		return subcommands.ExitFailure
	}
	log.Info("stopped")
	return subcommands.ExitSuccess
}

func openSink(cfg sink.Config, logger *logrus.Logger) (logd.Emitter, func(), error) {
	entry := logrus.NewEntry(logger).WithField("component", "sink")
	if cfg.Path == "" {
		return sink.NewLog(entry), func() {}, nil
	}
	f, err := sink.Open(cfg, entry)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

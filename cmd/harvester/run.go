package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-feed-harvester/internal/config"
	"github.com/samvad-hq/samvad-feed-harvester/internal/crawler"
	"github.com/samvad-hq/samvad-feed-harvester/internal/domain"
	"github.com/samvad-hq/samvad-feed-harvester/internal/logger"
	"github.com/samvad-hq/samvad-feed-harvester/internal/metrics"
	"github.com/samvad-hq/samvad-feed-harvester/internal/sink"
	"github.com/samvad-hq/samvad-feed-harvester/pkg/providers"
	"github.com/samvad-hq/samvad-feed-harvester/pkg/publishers"
)

type runOptions struct {
	only     []string
	interval time.Duration
	once     bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Harvest every selected provider",
		Long: `Run performs a harvest pass over the selected providers. With a schedule
interval it keeps running passes until interrupted.

Section failures are written to the error log and never change the exit code;
only configuration and startup errors do.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.cfgFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("only") {
				cfg.Providers.Only = opts.only
			}
			if cmd.Flags().Changed("interval") {
				cfg.Schedule.Interval = opts.interval
			}
			if opts.once {
				cfg.Schedule.Interval = 0
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runHarvest(ctx, cfg)
		},
	}

	cmd.Flags().StringSliceVar(&opts.only, "only", nil, "comma-separated provider ids to harvest")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "repeat passes at this interval (0 runs once)")
	cmd.Flags().BoolVar(&opts.once, "once", false, "run a single pass regardless of schedule.interval")
	return cmd
}

func runHarvest(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	provs, err := cat.Select(cfg.Providers.Only)
	if err != nil {
		return err
	}
	if len(provs) == 0 {
		return errors.New("no enabled providers selected")
	}

	m := metrics.New()

	out, err := openSink(ctx, cfg, log, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.WarnObj("closing output failed", "sink_close_error", map[string]any{"error": err.Error()})
		}
	}()

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, m, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	fetcher := providers.NewFeedFetcher(
		providers.DefaultHTTPClient(cfg.HTTP.Timeout),
		providers.InsecureHTTPClient(cfg.HTTP.Timeout),
	)

	h := crawler.New(fetcher, out, domain.BatchDate(time.Now()),
		crawler.WithLogger(log),
		crawler.WithMetrics(m),
		crawler.WithWorkers(cfg.Schedule.Workers),
		crawler.WithRunTimeout(cfg.Schedule.RunTimeout),
		crawler.WithRateLimit(cfg.Schedule.RateLimit, cfg.Schedule.Burst),
	)

	sum, err := h.RunEvery(ctx, provs, cfg.Schedule.Interval)
	if err != nil {
		return err
	}
	log.InfoObj("harvester stopped", "harvest_done", map[string]any{
		"sections":    sum.Sections,
		"succeeded":   sum.Succeeded,
		"failed":      sum.Failed,
		"sink_errors": sum.SinkErrors,
	})
	return nil
}

// openSink builds the configured backend and wraps it with publishers when a publishers file is set.
func openSink(ctx context.Context, cfg *config.Config, log logger.Logger, m *metrics.Metrics) (sink.Sink, error) {
	var (
		out sink.Sink
		err error
	)
	switch cfg.Output.Backend {
	case config.BackendBolt:
		out, err = sink.OpenBolt(cfg.Output.BoltPath)
	default:
		var format sink.Format
		if format, err = sink.ParseFormat(cfg.Output.Format); err != nil {
			return nil, err
		}
		out, err = sink.NewFileSink(cfg.Output.Dir, cfg.Output.ErrorLog, format)
	}
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}

	if cfg.Publishers.File == "" {
		return out, nil
	}

	pubs, err := publishers.Open(ctx, cfg.Publishers.File, log)
	if err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("open publishers: %w", err)
	}
	return sink.NewPublishingSink(out, pubs, log, m), nil
}

func serveMetrics(addr string, m *metrics.Metrics, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.InfoObj("metrics listener started", "metrics_start", map[string]any{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorObj("metrics listener failed", "metrics_error", map[string]any{"error": err.Error()})
		}
	}()
	return srv
}

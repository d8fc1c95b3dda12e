package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/bft-labs/logship"
	"github.com/bft-labs/logship/internal/cliconfig"
)

// followRunner ships NDJSON records from stdin through the batch writer.
// The client can be swapped at runtime when the config file changes.
type followRunner struct {
	mu sync.Mutex
	c  *logship.Client
	zl zerolog.Logger
}

func (r *followRunner) client() *logship.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.c
}

func (r *followRunner) swap(c *logship.Client) *logship.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.c
	r.c = c
	return old
}

func runFollow(ctx context.Context, cfg *cliconfig.Config, cfgPath, stream, metricsListen string, zl zerolog.Logger) error {
	var opts []logship.Option
	if metricsListen != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, logship.WithMetricsSink(logship.NewPromSink(reg)))

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: metricsListen, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zl.Error().Err(err).Msg("metrics server")
			}
		}()
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutCtx)
		}()
	}

	c, err := newClient(cfg, opts...)
	if err != nil {
		return err
	}
	runner := &followRunner{c: c, zl: zl}

	// Rebuild the client when the config file changes so long-running follow
	// sessions pick up credential or threshold updates without a restart.
	watchPath := cfgPath
	if watchPath == "" {
		watchPath = cliconfig.DefaultConfigPath()
	}
	if watchPath != "" && cliconfig.FileExists(watchPath) {
		w := cliconfig.NewWatcher(watchPath, func(fc cliconfig.FileConfig) {
			next := *cfg
			if err := cliconfig.ApplyFileConfig(&next, fc, map[string]bool{}); err != nil {
				zl.Warn().Err(err).Msg("config reload rejected")
				return
			}
			if err := next.Validate(); err != nil {
				zl.Warn().Err(err).Msg("config reload rejected")
				return
			}
			nc, err := newClient(&next, opts...)
			if err != nil {
				zl.Warn().Err(err).Msg("config reload rejected")
				return
			}
			*cfg = next
			old := runner.swap(nc)
			if err := old.Close(context.Background()); err != nil {
				zl.Warn().Err(err).Msg("close previous client")
			}
			zl.Info().Str("path", watchPath).Msg("configuration reloaded")
		}, nil)
		if err := w.Start(ctx); err != nil {
			zl.Warn().Err(err).Msg("config watcher unavailable")
		} else {
			defer w.Stop()
		}
	}

	zl.Info().Str("stream", stream).Msg("following stdin")

	var shipped, skipped int64
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return runner.client().Close(context.Background())
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal(line, &rec); err != nil {
			skipped++
			zl.Warn().Err(err).Msg("skipping malformed line")
			continue
		}
		if _, err := runner.client().Ingest(ctx, stream, []map[string]any{rec}); err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		shipped++
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if err := runner.client().Close(context.Background()); err != nil {
		return err
	}
	zl.Info().Int64("shipped", shipped).Int64("skipped", skipped).Msg("done")
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/logship"
	"github.com/bft-labs/logship/internal/cliconfig"
	"github.com/bft-labs/logship/pkg/log"
	"github.com/bft-labs/logship/pkg/query"
)

const helpDescription = `
Query, ingest and administer an SQL-over-HTTP observability backend.

Highlights:
  - Validates identifiers and time ranges before anything hits the network.
  - Batches and gzips ingestion with automatic retry and backoff.
  - Configure via file ($HOME/.logship/config.toml), LOGSHIP_* env, or flags.
`

var exampleUsage = strings.TrimSpace(`
  logship query 'SELECT * FROM "app"' --streams app --start now-1h --limit 50
  logship ingest app records.json
  cat events.ndjson | logship ingest app --follow
  logship correlate --primary app --secondaries audit --field trace_id --start now-15m
  logship cleanup app --days 30
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string
	var metricsListen string

	adapter := log.NewZerologAdapter()
	zl := adapter.Logger()

	root := &cobra.Command{
		Use:           "logship",
		Short:         "Query, ingest and administer an SQL-over-HTTP observability backend",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Resolve layered configuration before any subcommand runs: config file
	// first, then LOGSHIP_* env, with explicitly set flags winning over both.
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		changed := map[string]bool{}
		cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
		cmd.InheritedFlags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

		cfgFile := cfgPath
		if cfgFile == "" {
			cfgFile = cliconfig.DefaultConfigPath()
		}
		if cfgFile != "" && cliconfig.FileExists(cfgFile) {
			fc, err := cliconfig.LoadFileConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
				return err
			}
		}
		if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
			return err
		}
		return cfg.Validate()
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.logship/config.toml)")
	pf.StringVar(&cfg.ServiceURL, "url", cfg.ServiceURL, "backend base URL")
	pf.StringVar(&cfg.Org, "org", cfg.Org, "backend organization")
	pf.StringVar(&cfg.Token, "token", cfg.Token, "bearer token for authentication")
	pf.StringVar(&cfg.Username, "username", cfg.Username, "basic auth username")
	pf.StringVar(&cfg.Password, "password", cfg.Password, "basic auth password")
	pf.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout per attempt")
	pf.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "maximum attempts per operation")
	pf.DurationVar(&cfg.RetryBaseDelay, "retry-base-delay", cfg.RetryBaseDelay, "base delay between retries")
	pf.DurationVar(&cfg.RetryMaxDelay, "retry-max-delay", cfg.RetryMaxDelay, "maximum delay between retries")
	pf.Float64Var(&cfg.RetryMultiplier, "retry-multiplier", cfg.RetryMultiplier, "backoff multiplier")
	pf.Float64Var(&cfg.RetryJitter, "retry-jitter", cfg.RetryJitter, "backoff jitter fraction")
	pf.IntVar(&cfg.FlushBytes, "flush-bytes", cfg.FlushBytes, "batch size threshold in bytes")
	pf.DurationVar(&cfg.Linger, "linger", cfg.Linger, "maximum age of a batch before flush")
	pf.BoolVar(&cfg.NoCompression, "no-compression", cfg.NoCompression, "disable gzip compression of payloads")
	pf.BoolVar(&cfg.NoBatching, "no-batching", cfg.NoBatching, "send every ingest call synchronously")

	var (
		queryStreams []string
		queryStart   string
		queryEnd     string
		queryLimit   int
	)
	queryCmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a SQL query against one or more streams",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(&cfg)
			if err != nil {
				return err
			}
			defer closeClient(c, zl)

			res, err := c.Query(cmd.Context(), queryStreams, args[0], logship.QueryOptions{
				Start: queryStart,
				End:   queryEnd,
				Limit: queryLimit,
			})
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	queryCmd.Flags().StringSliceVar(&queryStreams, "streams", []string{"default"}, "streams to query")
	queryCmd.Flags().StringVar(&queryStart, "start", "", "start of time range (now-1h, RFC3339, or epoch)")
	queryCmd.Flags().StringVar(&queryEnd, "end", "", "end of time range")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "maximum hits to return (0 = default)")

	var (
		corrPrimary     string
		corrSecondaries []string
		corrField       string
		corrStart       string
		corrEnd         string
	)
	correlateCmd := &cobra.Command{
		Use:   "correlate",
		Short: "Join streams on a shared field within a time window",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(&cfg)
			if err != nil {
				return err
			}
			defer closeClient(c, zl)

			res, err := c.Correlate(cmd.Context(), corrPrimary, corrSecondaries, corrField, logship.Window{
				Start: corrStart,
				End:   corrEnd,
			})
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	correlateCmd.Flags().StringVar(&corrPrimary, "primary", "", "primary stream")
	correlateCmd.Flags().StringSliceVar(&corrSecondaries, "secondaries", nil, "secondary streams to join")
	correlateCmd.Flags().StringVar(&corrField, "field", "", "field to join on")
	correlateCmd.Flags().StringVar(&corrStart, "start", "", "start of time window")
	correlateCmd.Flags().StringVar(&corrEnd, "end", "", "end of time window")

	var follow bool
	ingestCmd := &cobra.Command{
		Use:   "ingest <stream> [file]",
		Short: "Send JSON records to a stream",
		Long: strings.TrimSpace(`
Send JSON records to a stream.

Without --follow, the input (a file argument or stdin) must hold a JSON array
of objects; it is sent as one batch. With --follow, stdin is read as NDJSON
(one JSON object per line) and shipped continuously through the batch writer
until EOF or a signal.`),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if follow {
				return runFollow(cmd.Context(), &cfg, cfgPath, args[0], metricsListen, zl)
			}
			return runIngestOnce(cmd.Context(), &cfg, args)
		},
	}
	ingestCmd.Flags().BoolVar(&follow, "follow", false, "read NDJSON records from stdin until EOF")
	ingestCmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address while following")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check backend health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(&cfg)
			if err != nil {
				return err
			}
			defer closeClient(c, zl)

			res, err := c.Health(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats [streams...]",
		Short: "Fetch backend statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(&cfg)
			if err != nil {
				return err
			}
			defer closeClient(c, zl)

			res, err := c.Stats(cmd.Context(), args...)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}

	var retentionDays int
	cleanupCmd := &cobra.Command{
		Use:   "cleanup <stream>",
		Short: "Delete records older than the retention period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(&cfg)
			if err != nil {
				return err
			}
			defer closeClient(c, zl)

			res, err := c.Cleanup(cmd.Context(), args[0], retentionDays)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	cleanupCmd.Flags().IntVar(&retentionDays, "days", 30, "retention period in days")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	configInitCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file at the default path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgPath
			if path == "" {
				path = cliconfig.DefaultConfigPath()
			}
			if path == "" {
				return fmt.Errorf("cannot determine config path, pass --config")
			}
			if err := cliconfig.WriteStarterConfig(path); err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
	// config init must not require valid credentials.
	configInitCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error { return nil }
	configCmd.AddCommand(configInitCmd)

	root.AddCommand(queryCmd, correlateCmd, ingestCmd, healthCmd, statsCmd, cleanupCmd, configCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		zl.Error().Err(err).Msg("logship")
		os.Exit(1)
	}
}

func newClient(cfg *cliconfig.Config, opts ...logship.Option) (*logship.Client, error) {
	base := []logship.Option{
		logship.WithLogger(log.NewZerologAdapter()),
	}
	if len(cfg.Fields) > 0 {
		base = append(base, logship.WithFieldWhitelist(query.NewMapWhitelist(cfg.Fields)))
	}
	return logship.New(cfg.ClientConfig(), append(base, opts...)...)
}

func closeClient(c *logship.Client, zl zerolog.Logger) {
	if err := c.Close(context.Background()); err != nil {
		zl.Warn().Err(err).Msg("close client")
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runIngestOnce(ctx context.Context, cfg *cliconfig.Config, args []string) error {
	in := os.Stdin
	if len(args) == 2 {
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("input must be a JSON array of objects: %w", err)
	}

	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	res, err := c.Ingest(ctx, args[0], records)
	if err != nil {
		_ = c.Close(ctx)
		return err
	}
	if err := c.Close(ctx); err != nil {
		return err
	}
	return printJSON(res)
}

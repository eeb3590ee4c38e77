package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/adapters/sqlite"
	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/cliconfig"
	"github.com/HustleDanie/Realtime-Vision-System-sub001/pkg/edgebuffer"
	logpkg "github.com/HustleDanie/Realtime-Vision-System-sub001/pkg/log"
	"github.com/HustleDanie/Realtime-Vision-System-sub001/plugins/configwatcher"
)

const helpDescription = `
Buffer observation records durably on the edge and deliver them upstream
when connectivity allows.

Highlights:
  - Records survive crashes and power loss; nothing is dropped on network outage.
  - Batches, retries with backoff, and recovers backlog automatically on reconnect.
  - Configure via file, env (EDGEBUFFER_*), or flags; safe defaults throughout.
`

var longHelp = strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  edgebufferd --device-id cam-01 --auth-key <api-key>
  edgebufferd --config $HOME/.edgebufferd/config.toml
  edgebufferd status --store $HOME/.edgebufferd/records.db
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

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "edgebufferd",
		Short:   "Durable edge observation buffer with store-and-forward delivery",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.edgebufferd/config.toml),
			// then env, then flag overrides.
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			} else {
				cfgFile = ""
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			// Log configuration (masking API key)
			logCfg := cfg
			if len(logCfg.AuthKey) > 0 {
				logCfg.AuthKey = "*****"
			}
			log.Info().Interface("config", logCfg).Msg("configuration")

			libCfg := edgebuffer.Config{
				StorePath:        cfg.StorePath,
				DeviceID:         cfg.DeviceID,
				ServiceURL:       cfg.ServiceURL,
				AuthKey:          cfg.AuthKey,
				MaxStoreBytes:    cfg.MaxStoreBytes,
				RetentionWindow:  cfg.RetentionWindow,
				BatchSize:        cfg.BatchSize,
				BatchTimeout:     cfg.BatchTimeout,
				MaxRetries:       cfg.MaxRetries,
				BackoffBase:      cfg.BackoffBase,
				BackoffCap:       cfg.BackoffCap,
				ProbeInterval:    cfg.ProbeInterval,
				ProbeTimeout:     cfg.ProbeTimeout,
				HTTPTimeout:      cfg.HTTPTimeout,
				CleanupInterval:  cfg.CleanupInterval,
				PendingAlert:     cfg.PendingAlert,
				FailedAlert:      cfg.FailedAlert,
				CapacityAlertPct: cfg.CapacityAlertPct,
				ConfigPath:       cfgFile,
			}

			zerologAdapter := logpkg.NewZerologAdapterWithLogger(log)

			b, err := edgebuffer.New(libCfg,
				edgebuffer.WithLogger(zerologAdapter),
				configwatcher.WithConfigWatcher(configwatcher.DefaultConfig()),
			)
			if err != nil {
				return fmt.Errorf("create buffer: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			if err := b.Start(ctx); err != nil {
				return fmt.Errorf("start buffer: %w", err)
			}

			// Detect crash without a signal.
			doneCh := make(chan struct{})
			go func() {
				ticker := time.NewTicker(100 * time.Millisecond)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						s := b.State()
						if s == edgebuffer.StateStopped || s == edgebuffer.StateCrashed {
							close(doneCh)
							return
						}
					}
				}
			}()

			select {
			case <-sigCh:
				log.Info().Msg("received signal, stopping...")
			case <-doneCh:
				if b.State() == edgebuffer.StateCrashed {
					log.Error().Msg("edgebufferd crashed")
				}
			}

			if err := b.Stop(); err != nil {
				return fmt.Errorf("stop buffer: %w", err)
			}
			return nil
		},
	}

	// Flags
	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.edgebufferd/config.toml)")
	root.Flags().StringVar(&cfg.DeviceID, "device-id", cfg.DeviceID, "device identifier sent with each batch")
	root.Flags().StringVar(&cfg.StorePath, "store-path", cfg.StorePath, "SQLite file backing the record store")

	root.Flags().StringVar(&cfg.ServiceURL, "service-url", cfg.ServiceURL, fmt.Sprintf("base service URL (defaults to %s)", cliconfig.DefaultServiceURL))
	root.Flags().StringVar(&cfg.AuthKey, "auth-key", cfg.AuthKey, "API key for authentication")

	root.Flags().Int64Var(&cfg.MaxStoreBytes, "max-store-bytes", cfg.MaxStoreBytes, "maximum store size in bytes (0 disables the cap)")
	root.Flags().DurationVar(&cfg.RetentionWindow, "retention", cfg.RetentionWindow, "how long delivered records are kept")
	root.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "records per batch submission")
	root.Flags().DurationVar(&cfg.BatchTimeout, "batch-timeout", cfg.BatchTimeout, "flush a partial batch after this long")
	root.Flags().IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "per-record retry budget before marking failed")
	root.Flags().DurationVar(&cfg.BackoffBase, "backoff-base", cfg.BackoffBase, "base retry backoff delay")
	root.Flags().DurationVar(&cfg.BackoffCap, "backoff-cap", cfg.BackoffCap, "maximum retry backoff delay")

	root.Flags().DurationVar(&cfg.ProbeInterval, "probe-interval", cfg.ProbeInterval, "connectivity probe cadence")
	root.Flags().DurationVar(&cfg.ProbeTimeout, "probe-timeout", cfg.ProbeTimeout, "connectivity probe timeout")
	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout for batch submissions")
	root.Flags().DurationVar(&cfg.CleanupInterval, "cleanup-interval", cfg.CleanupInterval, "retention cleanup cadence")

	root.Flags().Int64Var(&cfg.PendingAlert, "pending-alert", cfg.PendingAlert, "alert when pending records exceed this count (0 disables)")
	root.Flags().Int64Var(&cfg.FailedAlert, "failed-alert", cfg.FailedAlert, "alert when failed records exceed this count (0 disables)")
	root.Flags().Float64Var(&cfg.CapacityAlertPct, "capacity-alert-pct", cfg.CapacityAlertPct, "alert when store utilization exceeds this percentage (0 disables)")

	root.AddCommand(statusCmd())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("edgebufferd")
		os.Exit(1)
	}
}

// statusCmd inspects a record store and prints its statistics as JSON.
func statusCmd() *cobra.Command {
	var storePath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print record store statistics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if storePath == "" {
				if h, err := os.UserHomeDir(); err == nil {
					storePath = h + "/.edgebufferd/records.db"
				}
			}
			if storePath == "" || !cliconfig.FileExists(storePath) {
				return fmt.Errorf("record store not found at %q", storePath)
			}

			store, err := sqlite.Open(storePath, 0, 0)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			stats, err := store.Stats(ctx)
			if err != nil {
				return fmt.Errorf("read stats: %w", err)
			}

			out, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "path to the record store (default: $HOME/.edgebufferd/records.db)")
	return cmd
}

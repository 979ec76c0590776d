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

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/mbtools/modpoll/internal/adapters/log"
	"github.com/mbtools/modpoll/internal/cliconfig"
	"github.com/mbtools/modpoll/pkg/modpoll"
)

const helpDescription = `
Poll Modbus RTU and TCP devices from request templates.

Highlights:
  - Frame-accurate codec: CRC16 RTU framing, MBAP headers, exception decoding.
  - Ordered polling passes with per-request cycle limits and delays.
  - Request templates in TOML, hot-reloaded on edit with --watch.
  - Bounded transaction history, exportable as CSV.
`

var exampleUsage = strings.TrimSpace(`
  modpoll --port /dev/ttyUSB0 --baud 19200 --parity E
  modpoll --mode tcp --address 192.168.1.50 --interval 2s --cycles 10
  modpoll send --port /dev/ttyUSB0 --function 3 --start 156 --count 2 --slave 1
  modpoll ports
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var (
		cfgPath    string
		selection  []string
		exportPath string
	)

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "modpoll",
		Short:   "Poll Modbus RTU and TCP devices from request templates",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolveConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}
			if !cfg.Verbose {
				log = log.Level(zerolog.InfoLevel)
			}

			client := modpoll.New(cfg.ToConnectionConfig(),
				modpoll.WithLogger(logAdapter.NewZerologAdapterWithLogger(log)),
				modpoll.WithHistoryCapacity(cfg.HistoryCapacity),
			)

			specs, err := client.LoadRequests(cfg.RequestsFile)
			if err != nil {
				return fmt.Errorf("load requests: %w", err)
			}
			if len(specs) == 0 {
				return fmt.Errorf("no requests in %s", cfg.RequestsFile)
			}

			ids := selection
			if len(ids) == 0 {
				for _, spec := range specs {
					ids = append(ids, spec.ID)
				}
			}

			if err := client.Connect(context.Background()); err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer client.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if cfg.Watch {
				go func() {
					if err := client.WatchRequests(ctx, cfg.RequestsFile); err != nil && ctx.Err() == nil {
						log.Warn().Err(err).Msg("request watcher stopped")
					}
				}()
			}

			if err := client.StartPolling(ids, cfg.Interval, cfg.GlobalCycles); err != nil {
				return fmt.Errorf("start polling: %w", err)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case <-sigCh:
				log.Info().Msg("received signal, stopping...")
				if err := client.StopPolling(); err != nil {
					return err
				}
			case <-client.PollingDone():
				if err := client.PollingErr(); err != nil {
					log.Error().Err(err).Msg("polling aborted")
				}
			}

			printStats(client.Statistics())

			if exportPath != "" {
				if err := exportHistory(client, exportPath); err != nil {
					return fmt.Errorf("export history: %w", err)
				}
				log.Info().Str("path", exportPath).Msg("history exported")
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.modpoll/config.toml)")
	root.PersistentFlags().StringVar(&cfg.Mode, "mode", cfg.Mode, "connection mode: serial or tcp")
	root.PersistentFlags().StringVar(&cfg.Port, "port", cfg.Port, "serial port device")
	root.PersistentFlags().IntVar(&cfg.BaudRate, "baud", cfg.BaudRate, "serial baud rate")
	root.PersistentFlags().StringVar(&cfg.Parity, "parity", cfg.Parity, "serial parity: N, E or O")
	root.PersistentFlags().StringVar(&cfg.StopBits, "stop-bits", cfg.StopBits, "serial stop bits: 1, 1.5 or 2")
	root.PersistentFlags().IntVar(&cfg.DataBits, "data-bits", cfg.DataBits, "serial data bits: 7 or 8")
	root.PersistentFlags().StringVar(&cfg.Address, "address", cfg.Address, "device host or IP (tcp mode)")
	root.PersistentFlags().IntVar(&cfg.TCPPort, "tcp-port", cfg.TCPPort, "device TCP port")
	root.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-transaction response timeout")
	root.PersistentFlags().BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "log every transaction frame")

	root.Flags().DurationVar(&cfg.Interval, "interval", cfg.Interval, "pause between polling passes")
	root.Flags().IntVar(&cfg.GlobalCycles, "cycles", cfg.GlobalCycles, "number of polling passes (0 = until stopped)")
	root.Flags().StringVar(&cfg.RequestsFile, "requests", cfg.RequestsFile, "request template TOML file")
	root.Flags().StringSliceVar(&selection, "select", nil, "request ids to poll (default: all)")
	root.Flags().IntVar(&cfg.HistoryCapacity, "history-capacity", cfg.HistoryCapacity, "transaction history ring size")
	root.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload request templates when the file changes")
	root.Flags().StringVar(&exportPath, "export", "", "write history CSV to this file on exit")

	root.AddCommand(newSendCommand(&cfg, &cfgPath))
	root.AddCommand(newPortsCommand())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("modpoll")
		os.Exit(1)
	}
}

// resolveConfig overlays file and environment configuration under the
// explicitly set flags, then validates.
func resolveConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) error {
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
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}

	return cfg.Validate()
}

func printStats(stats modpoll.Statistics) {
	fmt.Printf("passes: %d\n", stats.Passes)
	fmt.Printf("total %d  started %d  completed %d  timeouts %d  errors %d  remaining %d\n",
		stats.Aggregate.Total, stats.Aggregate.Started, stats.Aggregate.Completed,
		stats.Aggregate.Timeouts, stats.Aggregate.Errors, stats.Aggregate.Remaining)
}

func exportHistory(client *modpoll.Client, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := client.ExportHistoryCSV(f, time.Time{}, time.Time{}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

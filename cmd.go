package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "1.0.0" // set during build with -ldflags

// errUsage marks an invalid invocation; Execute prints the bare usage
// line for it instead of the generic "Error: ..." wrapper.
var errUsage = errors.New("usage")

func progName() string {
	return filepath.Base(os.Args[0])
}

var rootCmd = &cobra.Command{
	Use:   "kvreactor <port>",
	Short: "Single-threaded, epoll-driven key-value cache server",
	Long: `kvreactor is a single-process, single-threaded, event-driven
key-value cache. It multiplexes many TCP connections over one epoll
readiness loop, speaking a newline-delimited SET/GET/DEL protocol
against an in-memory store with lazy TTL expiry and LRU eviction.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          validatePortArg,
	RunE:          runServer,
}

// validatePortArg requires exactly one positional argument, a base-10
// port in [1, 65535].
func validatePortArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	port, err := strconv.Atoi(args[0])
	if err != nil || port < 1 || port > 65535 {
		return errUsage
	}
	return nil
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// The positional port argument is authoritative over any config
	// file/env/flag value, since it is the one part of the CLI the
	// wire-protocol contract actually governs.
	port, _ := strconv.Atoi(args[0])
	cfg.Port = port

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := newLogger(cfg)
	log.Info().Str("config", cfg.String()).Msg("starting kvreactor")

	reg := prometheus.NewRegistry()
	stats := NewStats(reg)

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, reg, log)
	}

	server := NewServer(cfg, log, stats)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("reactor exited: %w", err)
	}
	return nil
}

// serveMetrics runs the promhttp handler on its own goroutine. It is
// explicitly not part of the single-threaded reactor core: it only
// ever reads the stats registry, never the store's index/recency/arena.
func serveMetrics(addr string, reg *prometheus.Registry, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	log.Info().Str("addr", addr).Msg("metrics listener starting")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics listener stopped")
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig()
		if err != nil {
			return err
		}
		fmt.Println(cfg.String())
		fmt.Printf("Host: %s\n", cfg.Host)
		fmt.Printf("Port: %d\n", cfg.Port)
		fmt.Printf("Capacity: %d\n", cfg.Capacity)
		fmt.Printf("Buffer Size: %d\n", cfg.BufferSize)
		fmt.Printf("Log Level: %s\n", cfg.LogLevel)
		fmt.Printf("Log Format: %s\n", cfg.LogFormat)
		fmt.Printf("Metrics Addr: %s\n", cfg.MetricsAddr)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("kvreactor v%s\n", version)
		fmt.Printf("Built with Go %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.PersistentFlags().String("host", "0.0.0.0", "Host to bind to")
	rootCmd.PersistentFlags().Int("capacity", hashSlots, "Maximum live entries before LRU eviction")
	rootCmd.PersistentFlags().Int("buffer-size", 4096, "Per-connection read/write buffer size in bytes")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Address for the Prometheus /metrics listener (empty disables it)")

	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("capacity", rootCmd.PersistentFlags().Lookup("capacity"))
	viper.BindPFlag("buffer_size", rootCmd.PersistentFlags().Lookup("buffer-size"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("metrics_addr", rootCmd.PersistentFlags().Lookup("metrics-addr"))

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute is the CLI entry point. A bad invocation prints a bare usage
// line to stderr and exits 1; any other failure is reported with a
// generic diagnostic, also exiting 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Usage: %s <port>\n", progName())
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// Command ragfile writes, searches, inspects, benchmarks and publishes
// ragfile containers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hupe1980/ragfile"
	"github.com/hupe1980/ragfile/internal/config"
	"github.com/hupe1980/ragfile/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const usage = `Usage: ragfile [global flags] <command> [flags]

Commands:
  generate   generate content and embeddings and write a container
  bench      compare in-memory and container keyword search
  search     look up a keyword (or the nearest vectors) in a container
  inspect    print header, index, sections, checksum and a hexdump
  publish    copy a container to a blob store

Global flags:
`

// env carries what every command needs.
type env struct {
	cfg    *config.Config
	logger *ragfile.Logger
	opts   []ragfile.Option
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "ragfile:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("ragfile", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML configuration file")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address (overrides config)")
	logLevel := fs.String("log-level", "", "debug, info, warn or error (overrides config)")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	e := &env{
		cfg:    cfg,
		logger: logger,
		opts:   []ragfile.Option{ragfile.WithLogger(logger)},
		stdout: stdout,
		stderr: stderr,
	}

	if cfg.Metrics.Addr != "" {
		shutdown := e.serveMetrics(cfg.Metrics.Addr)
		defer shutdown()
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "generate":
		return runGenerate(ctx, e, rest)
	case "bench":
		return runBench(ctx, e, rest)
	case "search":
		return runSearch(ctx, e, rest)
	case "inspect":
		return runInspect(ctx, e, rest)
	case "publish":
		return runPublish(ctx, e, rest)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) (*ragfile.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return ragfile.NewLogger(slog.NewJSONHandler(w, opts)), nil
	}
	return ragfile.NewLogger(slog.NewTextHandler(w, opts)), nil
}

// serveMetrics registers a Prometheus collector with the command options and
// serves it on addr until the returned function is called.
func (e *env) serveMetrics(addr string) func() {
	reg := prometheus.NewRegistry()
	e.opts = append(e.opts, ragfile.WithMetricsCollector(metrics.NewPrometheusCollector(reg)))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		e.logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// newFlagSet returns a subcommand flag set that reports errors instead of
// exiting.
func (e *env) newFlagSet(name, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() {
		fmt.Fprintf(e.stderr, "Usage: ragfile %s %s\n\n", name, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// Command filecache keeps the sources listed in its config file cached on disk.
//
//	filecache [-config filecache.toml] check
//	filecache [-config filecache.toml] get <source>
//	filecache [-config filecache.toml] serve
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/gwillem/filecache"
	"github.com/gwillem/filecache/internal/config"
	"github.com/gwillem/filecache/internal/logging"
	"github.com/gwillem/filecache/internal/server"
)

type cliOptions struct {
	configPath string
	command    string
	args       []string
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("filecache", flag.ContinueOnError)
	fs.SetOutput(stdErr)

	var opts cliOptions
	fs.StringVar(&opts.configPath, "config", "filecache.toml", "path to the TOML config")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return opts, errors.New("usage: filecache [-config path] check|get <source>|serve")
	}
	opts.command, opts.args = rest[0], rest[1:]

	switch opts.command {
	case "check", "serve":
		if len(opts.args) != 0 {
			return opts, fmt.Errorf("%s takes no arguments", opts.command)
		}
	case "get":
		if len(opts.args) != 1 {
			return opts, errors.New("usage: filecache get <source>")
		}
	default:
		return opts, fmt.Errorf("unknown command %q", opts.command)
	}
	return opts, nil
}

func run(opts cliOptions) int {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "couldn't load config: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(*cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "couldn't init logger: %v\n", err)
		return 1
	}

	if opts.command == "check" {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["sources"] = len(cfg.Sources)
		fields["cache_root"] = cfg.CacheRoot
		fields["result"] = "ok"
		logger.WithFields(fields).Info("config ok")
		return 0
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	cache, err := newCache(cfg, logger, reg)
	if err != nil {
		logger.WithFields(logging.BaseFields("init_cache", opts.configPath)).WithError(err).Error("couldn't create cache")
		return 1
	}

	switch opts.command {
	case "get":
		return get(cache, cfg, logger, opts.args[0])
	case "serve":
		return serve(cache, cfg, logger, reg)
	}
	return 2
}

func newCache(cfg *config.Config, logger logrus.FieldLogger, reg prometheus.Registerer) (*filecache.Cache, error) {
	fetcher := &filecache.HTTPFetcher{
		Client:    &http.Client{Timeout: cfg.FetchTimeout.DurationValue()},
		UserAgent: cfg.UserAgent,
	}

	opts := []filecache.Option{
		filecache.WithRoot(cfg.CacheRoot),
		filecache.WithFetcher(fetcher),
		filecache.WithLogger(logger),
		filecache.WithRegisterer(reg),
	}
	if cfg.CreateParents {
		opts = append(opts, filecache.CreateParents)
	}
	return filecache.New(opts...)
}

func get(cache *filecache.Cache, cfg *config.Config, logger logrus.FieldLogger, name string) int {
	src, ok := cfg.Source(name)
	if !ok {
		fmt.Fprintf(stdErr, "unknown source %q\n", name)
		return 1
	}

	content := cache.ReadOrUpdateFile(context.Background(), src.Path, src.URL, src.MaxAge.DurationValue(), src.Force)
	if content == "" {
		logger.WithFields(logging.SourceFields(src)).Error("no content")
		return 1
	}

	fmt.Fprintln(stdOut, content)
	return 0
}

func serve(cache *filecache.Cache, cfg *config.Config, logger logrus.FieldLogger, reg *prometheus.Registry) int {
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.New(cache, cfg.Sources, logger, reg).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.WithFields(logrus.Fields{
		"action":  "serve",
		"addr":    cfg.ListenAddr,
		"root":    cache.Root(),
		"sources": cfg.SourceNames(),
	}).Info("listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("server failed")
		return 1
	}
	return 0
}

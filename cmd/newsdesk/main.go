package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/umputun/newsdesk/pkg/aggregator"
	"github.com/umputun/newsdesk/pkg/config"
	"github.com/umputun/newsdesk/pkg/content"
	"github.com/umputun/newsdesk/pkg/domain"
	"github.com/umputun/newsdesk/pkg/feed"
	"github.com/umputun/newsdesk/pkg/llm"
	"github.com/umputun/newsdesk/pkg/relevance"
	"github.com/umputun/newsdesk/pkg/repository"
	"github.com/umputun/newsdesk/pkg/scheduler"
	"github.com/umputun/newsdesk/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"CONFIG" description:"configuration file, embedded defaults if empty"`
	Listen string `short:"l" long:"listen" env:"LISTEN" description:"listen address, overrides config"`
	DB     string `long:"db" env:"DB_DSN" description:"sync history database, overrides config"`

	// common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	color.NoColor = color.NoColor || opts.NoColor
	SetupLog(opts.Debug)
	log.Printf("[INFO] starting newsdesk version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	err := run(ctx, opts)
	cancel()

	if err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}

	log.Print("[INFO] shutdown complete")
}

// run wires all components and blocks until ctx is done or the server fails
func run(ctx context.Context, opts Opts) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.LLM.APIKey != "" {
		SetupLog(opts.Debug, cfg.LLM.APIKey)
	}

	fetcher := feed.NewFetcher(feed.Options{
		Timeout:   cfg.Schedule.FetchTimeout,
		UserAgent: cfg.Proxy.UserAgent,
		ProxyURL:  cfg.Proxy.URL,
	})
	pipeline := aggregator.New(aggregator.Params{
		Fetcher:    fetcher,
		Scorer:     relevance.NewScorer(cfg.Keywords),
		MaxWorkers: cfg.Schedule.MaxWorkers,
	})

	// history is optional, interfaces stay nil when disabled
	var historyStore scheduler.HistoryStore
	var historyAPI server.History
	if cfg.Database.DSN != "" {
		repos, err := repository.NewRepositories(ctx, repository.Config{DSN: cfg.Database.DSN})
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer func() {
			if err := repos.Close(); err != nil {
				log.Printf("[WARN] failed to close database: %v", err)
			}
		}()
		historyStore, historyAPI = repos.History, repos.History
		log.Printf("[INFO] sync history enabled, keep %d runs", cfg.Database.HistoryLimit)
	}

	sched := scheduler.NewScheduler(scheduler.Params{
		Aggregator:     pipeline,
		Sources:        cfg.Sources,
		UpdateInterval: cfg.Schedule.UpdateInterval,
		History:        historyStore,
		HistoryLimit:   cfg.Database.HistoryLimit,
		OnRefresh:      []func(domain.Snapshot){logBreaking},
	})

	summarizer := llm.NewSummarizer(cfg.LLM)
	if !summarizer.Configured() {
		log.Printf("[WARN] llm api key is not set, summaries are disabled")
	}

	var extractor server.Extractor
	if cfg.Extraction.Enabled {
		extractor = content.NewHTTPExtractor(content.Options{
			Timeout:       cfg.Extraction.Timeout,
			MinTextLength: cfg.Extraction.MinTextLength,
			MaxTextLength: cfg.Extraction.MaxTextLength,
			UserAgent:     cfg.Proxy.UserAgent,
		})
	}

	srv := server.New(server.Params{
		Config:     cfg,
		Scheduler:  sched,
		History:    historyAPI,
		Summarizer: summarizer,
		Extractor:  extractor,
		Downloader: fetcher,
		Version:    revision,
		Debug:      opts.Debug,
	})

	sched.Start(ctx)
	defer sched.Stop()

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// loadConfig reads config file or embedded defaults and applies cli overrides
func loadConfig(opts Opts) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.Config == "" {
		cfg, err = config.Default()
	} else {
		cfg, err = config.Load(opts.Config)
	}
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errors.New("empty configuration")
	}

	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}
	if opts.DB != "" {
		cfg.Database.DSN = opts.DB
	}
	return cfg, nil
}

// logBreaking reports breaking headlines of a fresh snapshot
func logBreaking(snap domain.Snapshot) {
	for _, a := range snap.Breaking() {
		log.Printf("[DEBUG] breaking: %s (%s, %s)", a.Title, a.Source, a.TimeAgo)
	}
}

// SetupLog configures lgr and redirects std logger to it, secrets are masked in the output
func SetupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}

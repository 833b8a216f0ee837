package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/rally/internal/adapters/repository"
	service "github.com/okian/rally/internal/app"
	"github.com/okian/rally/internal/config"
	"github.com/okian/rally/internal/domain/rating"
	"github.com/okian/rally/internal/replay"
	"github.com/okian/rally/pkg/logger"
)

const (
	defaultTopN    = 10
	defaultTimeout = 10 * time.Minute
)

func main() {
	var (
		configFile  = flag.String("config", "", "YAML config file")
		logFile     = flag.String("log", "", "Log file for replay output (default: replay_TIMESTAMP.log)")
		topN        = flag.Int("top", defaultTopN, "Number of leaderboard rows to print")
		stopOnError = flag.Bool("stop-on-error", false, "Abort at the first failed event")
		timeout     = flag.Duration("timeout", defaultTimeout, "Overall replay timeout")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help || flag.NArg() != 1 {
		replay.ShowHelp()
		return
	}

	closer, err := replay.SetupLogging(*logFile)
	if err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, flag.Arg(0), *configFile, *topN, *stopOnError); err != nil {
		logger.Get().Error(ctx, "replay failed", logger.Error(err))
		cancel()
		_ = closer.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, path, configFile string, topN int, stopOnError bool) error {
	if configFile != "" {
		if err := os.Setenv(config.EnvConfigFile, configFile); err != nil {
			return err
		}
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}
	log := logger.Get()

	matchLog, err := replay.DecodeFile(path)
	if err != nil {
		return err
	}

	stores, err := repository.Open(ctx, cfg.RepositorySettings(), log)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error(context.Background(), "failed to close stores", logger.Error(err))
		}
	}()

	svc := service.New(
		service.WithEngine(rating.NewEngine(cfg.EngineOptions()...)),
		service.WithStores(stores),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
		service.WithLogger(log.Named("ladder")),
	)

	r := replay.New(svc,
		replay.WithTopN(topN),
		replay.WithStopOnError(stopOnError),
		replay.WithLogger(log.Named("replay")),
	)
	stats, err := r.Run(ctx, matchLog)
	replay.LogStats(ctx, log, stats)
	return err
}

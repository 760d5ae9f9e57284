package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Alwanly/remotebuild-client/internal/config"
	"github.com/Alwanly/remotebuild-client/pkg/logger"
	"github.com/Alwanly/remotebuild-client/pkg/remotebuild"
	"github.com/alecthomas/kong"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("rbctl"),
		kong.Description("Client for the remote build server."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	if cli.Verbose {
		_ = os.Setenv("LOG_LEVEL", "debug")
	}
	if os.Getenv("LOG_FORMAT") == "" {
		_ = os.Setenv("LOG_FORMAT", "console")
	}
	log, err := logger.NewLoggerFromEnv("rbctl")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	path := cli.Config
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.LoadClientConfig(path)
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		return exitUsage
	}

	log.Debug("configuration loaded",
		logger.String("url", cfg.Server.URL),
		logger.String("username", cfg.Server.Username),
		logger.Duration("timeout", cfg.RequestTimeout),
	)

	client, err := remotebuild.NewClient(cfg.Server,
		remotebuild.WithTimeout(cfg.RequestTimeout),
		remotebuild.WithLogger(log),
	)
	if err != nil {
		log.WithError(err).Error("failed to create client")
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return exitCode(kctx.Run(&Globals{
		Ctx:           ctx,
		Client:        client,
		Log:           log,
		Out:           os.Stdout,
		JSON:          cli.JSON,
		ConfigPath:    path,
		WatchInterval: cfg.WatchInterval,
	}))
}

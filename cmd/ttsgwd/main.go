// Command ttsgwd runs the TTS streaming gateway daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lee-jian-hui/tts-system/internal/api"
	"github.com/lee-jian-hui/tts-system/internal/breaker"
	"github.com/lee-jian-hui/tts-system/internal/config"
	"github.com/lee-jian-hui/tts-system/internal/log"
	"github.com/lee-jian-hui/tts-system/internal/provider"
	"github.com/lee-jian-hui/tts-system/internal/provider/mocktone"
	"github.com/lee-jian-hui/tts-system/internal/queue"
	"github.com/lee-jian-hui/tts-system/internal/ratelimit"
	"github.com/lee-jian-hui/tts-system/internal/session"
	"github.com/lee-jian-hui/tts-system/internal/transcode"
	"github.com/lee-jian-hui/tts-system/internal/ttsservice"
)

var (
	version = "v0.1.0"
	commit  = "none"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ttsgwd %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	log.Configure(log.Config{Level: "info", Service: "ttsgwd", Version: version})
	logger := log.WithComponent("main")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	log.Configure(log.Config{Level: cfg.LogLevel, Service: "ttsgwd", Version: version})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := provider.NewRegistry()
	if cfg.MockToneEnabled {
		registry.Register(mocktone.New())
	}

	store := session.NewStore(cfg.SessionRetentionTTL, cfg.SessionRetentionMaxRecords)
	store.StartRetentionSweeper(ctx, time.Minute)
	defer store.Stop()

	limiter := ratelimit.New(cfg.RateLimitWindow, cfg.RateLimitMaxPerWin)
	transcoder := transcode.NewMatrix(nil)

	newBreaker := func(providerID string) *breaker.Breaker {
		return breaker.New(providerID, cfg.CircuitFailureThreshold, cfg.CircuitResetTimeout, cfg.CircuitHalfOpenTrials)
	}

	svc := ttsservice.New(registry, store, limiter, nil, transcoder, ttsservice.Params{
		ProviderChunkTimeout: cfg.ProviderChunkTimeout,
		ProviderMaxRetries:   cfg.ProviderMaxRetries,
		VoiceCrossValidate:   cfg.VoiceCrossValidateProvider,
	}, newBreaker)

	q := queue.New(cfg.QueueMaxSize, cfg.QueueWorkers, svc.Handler())
	svc.AttachQueue(q)
	q.Start()

	server := api.NewServer(cfg.ListenAddr, svc, registry, store)

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server exited with error")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	q.Stop()

	logger.Info().Msg("shutdown complete")
}

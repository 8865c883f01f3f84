package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"finitefield.org/uniform-studio/internal/config"
	"finitefield.org/uniform-studio/internal/genserver"
	"finitefield.org/uniform-studio/internal/httpserver"
	"finitefield.org/uniform-studio/internal/observability"
	"finitefield.org/uniform-studio/internal/secrets"
)

// writeTimeout bounds a whole generation response; a prediction gets what is
// left after the model lookup and the reply.
const (
	writeTimeout      = 5 * time.Minute
	predictionTimeout = writeTimeout - 30*time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseLogger, err := observability.NewLogger("uniform-generator")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("generator")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load(ctx, config.WithEnvFile(".env"))
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	resolver := secrets.NewResolver(
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithProject(cfg.Secrets.Project),
		secrets.WithFallbackFile(cfg.Secrets.FallbackFile),
	)
	defer func() {
		_ = resolver.Close()
	}()
	if err := cfg.ResolveSecrets(ctx, resolver); err != nil {
		logger.Fatal("failed to resolve secrets", zap.Error(err))
	}
	gc := cfg.Generator

	model, candidates, err := buildModel(ctx, gc)
	if err != nil {
		logger.Fatal("failed to initialise image model", zap.Error(err))
	}
	if !gc.TokenLoaded() {
		logger.Warn("backend credentials are not set; generation requests will fail", zap.String("backend", gc.Backend))
	}

	srv := genserver.New(model,
		genserver.WithCandidates(candidates),
		genserver.WithTokenLoaded(gc.TokenLoaded()),
		genserver.WithAllowedOrigins(gc.CORSOrigins),
		genserver.WithRateLimit(gc.RateLimit.PerMinute, gc.RateLimit.Burst),
		genserver.WithLogger(logger),
	)
	logger.Info("generator starting",
		zap.String("backend", gc.Backend),
		zap.Strings("candidate_models", candidates),
	)

	server := &http.Server{
		Addr:              gc.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
	if err := httpserver.Run(ctx, server, nil, logger.Named("http")); err != nil {
		logger.Fatal("http server error", zap.Error(err))
	}
}

func buildModel(ctx context.Context, gc config.GeneratorConfig) (genserver.ImageModel, []string, error) {
	switch gc.Backend {
	case config.BackendGenAI:
		model, err := genserver.NewGenAIModel(ctx, gc.GeminiAPIKey)
		if err != nil {
			return nil, nil, err
		}
		return model, genserver.Candidates(gc.ModelOverride, []string{gc.GenAIModel}), nil
	default:
		client := &http.Client{Timeout: writeTimeout}
		model := genserver.NewReplicateModel(gc.ReplicateBaseURL, gc.ReplicateToken, client,
			genserver.WithPredictionTimeout(predictionTimeout),
		)
		return model, genserver.Candidates(gc.ModelOverride, genserver.DefaultCandidates), nil
	}
}

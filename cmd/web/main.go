package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"

	"finitefield.org/uniform-studio/internal/config"
	"finitefield.org/uniform-studio/internal/content"
	"finitefield.org/uniform-studio/internal/generator"
	"finitefield.org/uniform-studio/internal/httpserver"
	"finitefield.org/uniform-studio/internal/i18n"
	"finitefield.org/uniform-studio/internal/middleware"
	"finitefield.org/uniform-studio/internal/observability"
	"finitefield.org/uniform-studio/internal/secrets"
	"finitefield.org/uniform-studio/internal/session"
	"finitefield.org/uniform-studio/internal/submission"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseLogger, err := observability.NewLogger("uniform-web")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("web")
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
	web := cfg.Web

	bundle, err := i18n.Embedded(web.DefaultLocale)
	if err != nil {
		logger.Fatal("failed to load translations", zap.Error(err))
	}

	hashKey := []byte(web.SessionHashKey)
	if len(hashKey) == 0 {
		logger.Warn("UNIFORM_SESSION_HASH_KEY not set; using a per-process development key")
		hashKey = session.DevelopmentKey()
	}
	sessions, err := session.NewManager(session.Config{
		HashKey:      hashKey,
		BlockKey:     []byte(web.SessionBlockKey),
		CookieSecure: web.IsProduction(),
	})
	if err != nil {
		logger.Fatal("failed to initialise session manager", zap.Error(err))
	}

	gen, err := buildGenerator(web, logger)
	if err != nil {
		logger.Fatal("failed to initialise generator client", zap.Error(err))
	}

	srv, err := httpserver.New(httpserver.Config{
		Address:        web.Addr,
		Logger:         logger,
		Bundle:         bundle,
		Tips:           content.Tips(bundle.Fallback()),
		Sessions:       sessions,
		Generator:      gen,
		Guard:          submission.NewGuard(submission.WithCapacity(int64(web.MaxInFlight))),
		Authenticator:  buildAuthenticator(ctx, web.FirebaseProjectID, logger),
		AllowDebugAuth: !web.IsProduction(),
		ReadTimeout:    web.ReadTimeout,
		WriteTimeout:   web.WriteTimeout,
	})
	if err != nil {
		logger.Fatal("failed to build http server", zap.Error(err))
	}

	logger.Info("web starting",
		zap.String("env", web.Environment),
		zap.String("default_locale", web.DefaultLocale),
	)
	if err := httpserver.Run(ctx, srv, nil, logger.Named("http")); err != nil {
		logger.Fatal("http server error", zap.Error(err))
	}
}

func buildGenerator(web config.WebConfig, logger *zap.Logger) (submission.Generator, error) {
	if web.UsesFakeGenerator() {
		logger.Info("using in-process static generator")
		return generator.NewStaticGenerator(), nil
	}
	client := &http.Client{Timeout: web.GeneratorTimeout}
	return generator.NewClient(web.GeneratorEndpoint, client, generator.WithUserAgent("uniform-web"))
}

func buildAuthenticator(ctx context.Context, projectID string, logger *zap.Logger) middleware.Authenticator {
	if projectID == "" {
		logger.Info("UNIFORM_FIREBASE_PROJECT_ID not set; Firebase sign-in disabled")
		return nil
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		logger.Error("failed to initialise Firebase app", zap.Error(err))
		return nil
	}
	client, err := app.Auth(ctx)
	if err != nil {
		logger.Error("failed to initialise Firebase auth client", zap.Error(err))
		return nil
	}
	return middleware.NewFirebaseAuthenticator(client)
}

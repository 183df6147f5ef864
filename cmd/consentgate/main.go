package main

import (
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/consentgate/consentgate/internal/adapters/api"
	"github.com/consentgate/consentgate/internal/adapters/cache"
	"github.com/consentgate/consentgate/internal/adapters/repository"
	"github.com/consentgate/consentgate/internal/config"
	"github.com/consentgate/consentgate/internal/core/ports"
	"github.com/consentgate/consentgate/internal/core/services"
	"github.com/consentgate/consentgate/internal/infrastructure/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("unable to open database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("failed to close database: %v", err)
		}
	}()

	if err := db.Ping(); err != nil {
		logger.Warn("could not ping database", "err", err)
	}

	repo := repository.NewPostgresRepository(db)

	var tokenCache ports.TokenCache
	if cfg.RedisAddr != "" {
		tokenCache = cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		logger.Info("token cache enabled", "addr", cfg.RedisAddr)
	}

	tokens := services.NewTokenService(repo, tokenCache, cfg.AdminToken)
	sites := services.NewSiteService(repo, repo, tokenCache)
	consents := services.NewConsentService(repo)

	limiter := api.NewRateLimiter(map[api.RateCategory]api.RatePolicy{
		api.RateRegistration: {Limit: cfg.RegistrationLimit, Window: cfg.RegistrationWindow},
		api.RateAPI:          {Limit: cfg.APILimit, Window: cfg.APIWindow},
		api.RateAdmin:        {Limit: cfg.AdminLimit, Window: cfg.AdminWindow},
	})
	stop := make(chan struct{})
	defer close(stop)
	go limiter.SweepLoop(time.Minute, stop)

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			metrics.DBConnectionsActive.Set(float64(db.Stats().OpenConnections))
		}
	}()

	admission := api.NewAdmission(tokens, limiter, logger)
	handler := api.NewAPIHandler(sites, consents, admission, cfg.APIBaseURL, logger)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	logger.Info("consentgate listening", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
}

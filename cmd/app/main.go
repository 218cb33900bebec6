package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/punkmap/questledger/internal/api"
	"github.com/punkmap/questledger/internal/events"
	"github.com/punkmap/questledger/internal/jobs"
	"github.com/punkmap/questledger/internal/middleware"
	"github.com/punkmap/questledger/internal/repository"
	"github.com/punkmap/questledger/internal/service"
	"github.com/punkmap/questledger/pkg/auth"
	"github.com/punkmap/questledger/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	repo, err := repository.New(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	bus := events.NewBus(cfg.EventBuffer)
	clock := clockwork.NewRealClock()

	ledgerService := service.NewQuestLedgerService(repo, bus, clock)
	callerAuth := auth.NewCallerAuth(cfg.Auth.Secret, cfg.Auth.TokenTTL)

	sweeper := jobs.NewExpirySweeper(repo, bus, clock)
	if err := sweeper.Start(); err != nil {
		zapLogger.Fatal("Failed to start expiry sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RateLimit(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst))

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.AllowCredentials = true
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	a := router.Group("/api/v1")
	api.NewQuestRoutes(a, ledgerService, callerAuth)
	api.NewTokenRoutes(a, ledgerService, callerAuth)
	api.NewBalanceRoutes(a, ledgerService, callerAuth)
	api.NewEventRoutes(a, bus)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	zapLogger.Info("Starting server", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}

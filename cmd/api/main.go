package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/a3888968/wiseguide-backend/interfaces/http/rest"
	"github.com/a3888968/wiseguide-backend/internal/config"
	"github.com/a3888968/wiseguide-backend/internal/geocode"
	"github.com/a3888968/wiseguide-backend/internal/repository"
	"github.com/a3888968/wiseguide-backend/internal/service"
	"github.com/a3888968/wiseguide-backend/internal/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Fatal("failed to load AWS config", zap.Error(err))
	}

	db := store.NewDynamo(dynamodb.NewFromConfig(awsCfg), logger)
	tables := repository.Tables{Prefix: cfg.TablePrefix}

	systems := repository.NewSystemRepository(db, tables, logger)
	users := repository.NewUserRepository(db, tables, logger)
	agendas := repository.NewAgendaRepository(db, tables, logger)
	events := repository.NewEventRepository(db, tables, logger, agendas)
	venues := repository.NewVenueRepository(db, tables, logger)
	venues.SetRefresher(events)
	categories := repository.NewCategoryRepository(db, tables, logger, agendas)
	geoEvents := repository.NewGeoEventRepository(db, tables, logger)
	counters := repository.NewCounterRepository(db, tables, logger)
	suggestions := repository.NewSuggestedEventRepository(db, tables, logger)

	listing := service.NewListingService(events, venues, geocode.NewOSM(), logger)
	geoEntries := service.NewGeoEntryService(geoEvents, events, counters, logger)
	popularity := service.NewPopularityService(counters)
	var analysis *service.AnalysisService
	if cfg.AnalysisQueueURL != "" {
		analysis = service.NewAnalysisService(sqs.NewFromConfig(awsCfg), cfg.AnalysisQueueURL, systems, logger)
	} else {
		logger.Warn("ANALYSIS_QUEUE_URL not set, suggestion analysis disabled")
	}

	server := rest.NewServer(rest.ServerDeps{
		Logger:      logger,
		Auth:        rest.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer),
		Users:       users,
		Systems:     systems,
		Venues:      venues,
		Events:      events,
		Categories:  categories,
		Agendas:     agendas,
		Suggestions: suggestions,
		Listing:     listing,
		GeoEntries:  geoEntries,
		Popularity:  popularity,
		Analysis:    analysis,
	})

	httpServer := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      server.Router(rest.RouterOptions{EnableCORS: cfg.EnableCORS}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server", zap.String("address", cfg.ServerAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-shutdownCtx.Done()
	logger.Info("shutting down")
	timeoutCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSecs)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
		os.Exit(1)
	}
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsDevelopment() {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zapCfg.Build()
}

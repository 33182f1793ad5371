package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/address-matcher/app/controllers"
	"github.com/address-matcher/app/services"
	"github.com/address-matcher/internal/bootstrap"
	"github.com/address-matcher/internal/gazetteer"
	"github.com/address-matcher/routes"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	settings, err := bootstrap.LoadSettings(os.Getenv("APP_CONFIG"))
	if err != nil {
		log.Fatalf("Cannot load settings: %v", err)
	}

	logger, err := bootstrap.NewLogger(settings.Env, settings.LogLevel)
	if err != nil {
		log.Fatalf("Cannot initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting Address Matcher Service", zap.String("env", settings.Env))

	cfg, err := bootstrap.LoadPipeline(settings.PipelineConfig)
	if err != nil {
		logger.Fatal("Failed to load pipeline config", zap.Error(err))
	}
	gaz := gazetteer.Default()

	searcher, err := bootstrap.NewSearcher(settings, logger)
	if err != nil {
		logger.Warn("Meilisearch unavailable, province lookup disabled", zap.Error(err))
		searcher = nil
	}

	addressParser := bootstrap.NewParser(settings, cfg, gaz, searcher, logger)
	for _, d := range addressParser.Diagnostics() {
		logger.Warn("Rule skipped", zap.String("rule", d.String()))
	}

	ctx := context.Background()
	cache, closeCache, err := bootstrap.NewCache(ctx, settings, addressParser.VersionTag(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize cache", zap.String("backend", settings.CacheBackend), zap.Error(err))
	}
	defer closeCache()

	addressService := services.NewAddressService(addressParser, cache, cfg.Workers, logger)
	addressService.SetJobRetention(settings.JobTTL, settings.MaxJobs)
	matchService := services.NewMatchService(cfg, addressParser.Normalizer(), logger)

	var seeder services.GazetteerSeeder
	if searcher != nil {
		seeder = searcher
	}
	adminService := services.NewAdminService(addressService, gaz, seeder, logger)

	if settings.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	routes.SetupAllRoutes(router, &routes.Controllers{
		Address: controllers.NewAddressController(addressService, logger),
		Match:   controllers.NewMatchController(matchService, logger),
		Admin:   controllers.NewAdminController(adminService, logger),
	}, routes.Options{
		VersionTag:   addressParser.VersionTag(),
		RateLimitRPS: settings.RateLimitRPS,
		RateBurst:    settings.RateLimitBurst,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP server",
			zap.String("port", settings.Port),
			zap.String("version_tag", addressParser.VersionTag()),
			zap.String("cache", settings.CacheBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
	if err := addressService.Shutdown(shutdownCtx); err != nil {
		logger.Error("Batch jobs still running", zap.Error(err))
	}
	logger.Info("Server exited")
}

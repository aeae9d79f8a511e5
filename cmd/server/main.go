package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobby-s-dev/weather-agent/internal/api"
	"github.com/bobby-s-dev/weather-agent/internal/config"
	"github.com/bobby-s-dev/weather-agent/internal/middleware"
	"github.com/bobby-s-dev/weather-agent/internal/services"
	"github.com/bobby-s-dev/weather-agent/pkg/client"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	if cfg.Server.LogLevel != "info" {
		logger = newLogger(cfg.Server.LogLevel, logger)
		zap.ReplaceGlobals(logger)
	}
	logger.Info("Starting Weather AI Agent")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	llm, err := client.NewBedrockClient(ctx, client.BedrockConfig{
		Region:          cfg.LLM.Region,
		AccessKeyID:     cfg.LLM.AccessKeyID,
		SecretAccessKey: cfg.LLM.SecretAccessKey,
		SessionToken:    cfg.LLM.SessionToken,
		ModelID:         cfg.LLM.ModelID,
		MaxTokens:       cfg.LLM.MaxTokens,
		Temperature:     cfg.LLM.Temperature,
		Timeout:         cfg.LLM.Timeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Bedrock client", zap.Error(err))
	}

	weather := client.NewOpenWeatherClient(client.OpenWeatherConfig{
		APIKey:           cfg.WeatherAPI.APIKey,
		BaseURL:          cfg.WeatherAPI.BaseURL,
		Timeout:          cfg.WeatherAPI.Timeout,
		ValidatorTimeout: cfg.WeatherAPI.ValidatorTimeout,
	}, client.ClientConfig{
		Threshold:      cfg.CircuitBreaker.Threshold,
		BreakerTimeout: cfg.CircuitBreaker.Timeout,
	}, logger)

	agent := services.NewAgent(services.NewExtractor(llm, logger), weather, logger)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.PerMinute)
	if limiter.Enabled() {
		go limiter.Cleanup(ctx)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})

	api.SetupRoutes(app, api.NewHandler(agent, logger), limiter)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Info("Server running",
			zap.String("address", addr),
			zap.String("model", llm.ModelID()))

		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}

// newLogger builds a logger at the given level, development-style for debug.
// fallback is returned when the level does not parse.
func newLogger(level string, fallback *zap.Logger) *zap.Logger {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		fallback.Warn("Unknown LOG_LEVEL, keeping info", zap.String("level", level))
		return fallback
	}

	zcfg := zap.NewProductionConfig()
	if level == "debug" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = lvl

	logger, err := zcfg.Build()
	if err != nil {
		fallback.Warn("Failed to build logger", zap.Error(err))
		return fallback
	}
	return logger
}

func errorHandler(c *fiber.Ctx, err error) error {
	zap.L().Error("HTTP error",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err))

	// Default to 500 status code
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   err.Error(),
		"success": false,
	})
}

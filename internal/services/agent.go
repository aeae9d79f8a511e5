package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bobby-s-dev/weather-agent/internal/metrics"
	"github.com/bobby-s-dev/weather-agent/internal/models"
	"go.uber.org/zap"
)

var ErrEmptyQuery = errors.New("query must not be empty")

type WeatherClient interface {
	FetchWeather(ctx context.Context, location string) (string, error)
	IsValidLocation(ctx context.Context, candidate string) bool
}

type LocationExtractor interface {
	Extract(ctx context.Context, userText string) (string, error)
}

// Agent runs the query pipeline: extract, validate, then fetch weather or
// return the model's answer as-is. It holds no per-query state.
type Agent struct {
	extractor LocationExtractor
	weather   WeatherClient
	logger    *zap.Logger

	mu            sync.RWMutex
	lastQueryTime time.Time
	weatherCount  int
	answerCount   int
	failureCount  int
}

func NewAgent(extractor LocationExtractor, weather WeatherClient, logger *zap.Logger) *Agent {
	return &Agent{
		extractor: extractor,
		weather:   weather,
		logger:    logger,
	}
}

func (a *Agent) ProcessQuery(ctx context.Context, userText string) (*models.QueryResult, error) {
	start := time.Now()
	query := strings.TrimSpace(userText)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	a.mu.Lock()
	a.lastQueryTime = start
	a.mu.Unlock()

	stageStart := time.Now()
	candidate, err := a.extractor.Extract(ctx, query)
	metrics.StageDuration.WithLabelValues(metrics.StageExtract).Observe(time.Since(stageStart).Seconds())
	if err != nil {
		a.recordFailure(metrics.StageExtract)
		a.logger.Error("Failed to extract intent", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	candidate = strings.TrimSpace(candidate)

	stageStart = time.Now()
	valid := a.weather.IsValidLocation(ctx, candidate)
	metrics.StageDuration.WithLabelValues(metrics.StageValidate).Observe(time.Since(stageStart).Seconds())

	result := &models.QueryResult{Query: query}

	if !valid {
		result.Answer = candidate
		result.Kind = models.KindAnswer
	} else {
		stageStart = time.Now()
		sentence, err := a.weather.FetchWeather(ctx, candidate)
		metrics.StageDuration.WithLabelValues(metrics.StageWeather).Observe(time.Since(stageStart).Seconds())
		if err != nil {
			a.recordFailure(metrics.StageWeather)
			a.logger.Error("Failed to fetch weather",
				zap.String("location", candidate),
				zap.Error(err))
			return nil, fmt.Errorf("fetching weather for %s: %w", candidate, err)
		}
		result.Answer = sentence
		result.Kind = models.KindWeather
		result.Location = candidate
	}

	result.Duration = time.Since(start)
	a.recordSuccess(result.Kind)

	a.logger.Info("Query answered",
		zap.String("kind", string(result.Kind)),
		zap.String("location", result.Location),
		zap.Duration("duration", result.Duration))

	return result, nil
}

func (a *Agent) recordSuccess(kind models.QueryKind) {
	metrics.QueriesTotal.WithLabelValues(string(kind)).Inc()

	a.mu.Lock()
	defer a.mu.Unlock()
	if kind == models.KindWeather {
		a.weatherCount++
	} else {
		a.answerCount++
	}
}

func (a *Agent) recordFailure(stage string) {
	metrics.QueryFailures.WithLabelValues(stage).Inc()

	a.mu.Lock()
	a.failureCount++
	a.mu.Unlock()
}

func (a *Agent) GetLastQueryTime() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastQueryTime
}

func (a *Agent) GetStats() map[string]interface{} {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := map[string]interface{}{
		"last_query_time": a.lastQueryTime,
		"weather_answers": a.weatherCount,
		"direct_answers":  a.answerCount,
		"failure_count":   a.failureCount,
	}
	if b, ok := a.weather.(interface{ State() string }); ok {
		stats["weather_breaker"] = b.State()
	}
	return stats
}

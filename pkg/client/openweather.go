package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bobby-s-dev/weather-agent/internal/models"
	"go.uber.org/zap"
)

var (
	ErrLocationNotFound   = errors.New("location not found")
	ErrWeatherUnavailable = errors.New("weather provider unavailable")
)

type OpenWeatherClient struct {
	*BaseClient
	apiKey           string
	baseURL          string
	timeout          time.Duration
	validatorTimeout time.Duration
}

type OpenWeatherConfig struct {
	APIKey  string
	BaseURL string
	// Timeout bounds FetchWeather/Lookup; zero means no client-side deadline.
	Timeout          time.Duration
	ValidatorTimeout time.Duration
}

func NewOpenWeatherClient(cfg OpenWeatherConfig, config ClientConfig, logger *zap.Logger) *OpenWeatherClient {
	baseClient := NewBaseClient("openweather", config, logger)
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://api.openweathermap.org/data/2.5"
	}
	validatorTimeout := cfg.ValidatorTimeout
	if validatorTimeout <= 0 {
		validatorTimeout = 5 * time.Second
	}
	return &OpenWeatherClient{
		BaseClient:       baseClient,
		apiKey:           cfg.APIKey,
		baseURL:          strings.TrimRight(baseURL, "/"),
		timeout:          cfg.Timeout,
		validatorTimeout: validatorTimeout,
	}
}

func (c *OpenWeatherClient) weatherURL(location string, metric bool) string {
	params := url.Values{}
	params.Set("q", location)
	params.Set("appid", c.apiKey)
	if metric {
		params.Set("units", "metric")
	}
	return c.baseURL + "/weather?" + params.Encode()
}

// Lookup fetches current conditions for location in metric units. A non-200
// provider status yields ErrLocationNotFound; transport and decode failures are
// wrapped in ErrWeatherUnavailable.
func (c *OpenWeatherClient) Lookup(ctx context.Context, location string) (*models.WeatherReport, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.Get(ctx, c.weatherURL(location, true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeatherUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Info("Weather provider rejected location",
			zap.String("location", location),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: %s (HTTP %d)", ErrLocationNotFound, location, resp.StatusCode)
	}

	var data models.ProviderResponse
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", ErrWeatherUnavailable, err)
	}

	return models.NewWeatherReport(location, &data), nil
}

// FetchWeather returns a display sentence for location. A location the provider
// does not recognise produces the fixed "could not fetch" sentence rather than
// an error; only transport-level failures are returned as errors.
func (c *OpenWeatherClient) FetchWeather(ctx context.Context, location string) (string, error) {
	report, err := c.Lookup(ctx, location)
	if errors.Is(err, ErrLocationNotFound) {
		return models.NotFoundSentence(location), nil
	}
	if err != nil {
		return "", err
	}
	return report.Sentence(), nil
}

// IsValidLocation asks the provider whether candidate names a place it knows.
// It never fails: every error is reported as false.
func (c *OpenWeatherClient) IsValidLocation(ctx context.Context, candidate string) bool {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, c.validatorTimeout)
	defer cancel()

	resp, err := c.Get(ctx, c.weatherURL(candidate, false))
	if err != nil {
		c.logger.Warn("Location validation request failed",
			zap.String("candidate", candidate),
			zap.Error(err))
		return false
	}

	var data models.ProviderResponse
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		c.logger.Debug("Location validation response not JSON",
			zap.String("candidate", candidate),
			zap.Error(err))
		return false
	}

	return data.Success()
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	ErrMissingWeatherAPIKey = errors.New("WEATHER_API_KEY is required")
	ErrMissingAWSRegion     = errors.New("AWS_REGION is required")
)

type Config struct {
	Server struct {
		Port         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
		LogLevel     string
	}

	WeatherAPI struct {
		APIKey           string
		BaseURL          string
		Timeout          time.Duration
		ValidatorTimeout time.Duration
	}

	LLM struct {
		Region          string
		AccessKeyID     string
		SecretAccessKey string
		SessionToken    string
		ModelID         string
		MaxTokens       int
		Temperature     float64
		Timeout         time.Duration
	}

	CircuitBreaker struct {
		Threshold int
		Timeout   time.Duration
	}

	RateLimit struct {
		PerMinute int
	}
}

var defaults = map[string]interface{}{
	"PORT":                      "8000",
	"SERVER_READ_TIMEOUT":       "10s",
	"SERVER_WRITE_TIMEOUT":      "60s",
	"LOG_LEVEL":                 "info",
	"WEATHER_API_URL":           "http://api.openweathermap.org/data/2.5",
	"WEATHER_TIMEOUT":           "10s",
	"VALIDATOR_TIMEOUT":         "5s",
	"BEDROCK_MODEL_ID":          "anthropic.claude-v2",
	"LLM_MAX_TOKENS":            512,
	"LLM_TEMPERATURE":           0.2,
	"LLM_TIMEOUT":               "30s",
	"CIRCUIT_BREAKER_THRESHOLD": 5,
	"CIRCUIT_BREAKER_TIMEOUT":   "30s",
	"RATE_LIMIT_PER_MINUTE":     0,
}

// LoadConfig reads .env (if present), an optional config.yaml and the process
// environment, in increasing order of precedence.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		zap.L().Info("No .env file found, using environment variables")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from an already-populated viper instance. Keys are
// the upper-case environment variable names.
func FromViper(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys without defaults must be bound explicitly for AutomaticEnv to see them.
	for _, key := range []string{
		"WEATHER_API_KEY", "AWS_REGION", "AWS_ACCESS_KEY_ID",
		"AWS_SECRET_ACCESS_KEY", "AWS_SESSION_TOKEN",
	} {
		_ = v.BindEnv(key)
	}

	cfg := &Config{}

	cfg.Server.Port = v.GetString("PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.LogLevel = strings.ToLower(v.GetString("LOG_LEVEL"))

	cfg.WeatherAPI.APIKey = v.GetString("WEATHER_API_KEY")
	cfg.WeatherAPI.BaseURL = strings.TrimRight(v.GetString("WEATHER_API_URL"), "/")
	cfg.WeatherAPI.Timeout = v.GetDuration("WEATHER_TIMEOUT")
	cfg.WeatherAPI.ValidatorTimeout = v.GetDuration("VALIDATOR_TIMEOUT")

	cfg.LLM.Region = v.GetString("AWS_REGION")
	cfg.LLM.AccessKeyID = v.GetString("AWS_ACCESS_KEY_ID")
	cfg.LLM.SecretAccessKey = v.GetString("AWS_SECRET_ACCESS_KEY")
	cfg.LLM.SessionToken = v.GetString("AWS_SESSION_TOKEN")
	cfg.LLM.ModelID = v.GetString("BEDROCK_MODEL_ID")
	cfg.LLM.MaxTokens = v.GetInt("LLM_MAX_TOKENS")
	cfg.LLM.Temperature = v.GetFloat64("LLM_TEMPERATURE")
	cfg.LLM.Timeout = v.GetDuration("LLM_TIMEOUT")

	cfg.CircuitBreaker.Threshold = v.GetInt("CIRCUIT_BREAKER_THRESHOLD")
	cfg.CircuitBreaker.Timeout = v.GetDuration("CIRCUIT_BREAKER_TIMEOUT")

	cfg.RateLimit.PerMinute = v.GetInt("RATE_LIMIT_PER_MINUTE")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.WeatherAPI.APIKey == "" {
		return ErrMissingWeatherAPIKey
	}
	if c.LLM.Region == "" {
		return ErrMissingAWSRegion
	}
	if c.WeatherAPI.ValidatorTimeout <= 0 {
		return fmt.Errorf("VALIDATOR_TIMEOUT must be positive, got %s", c.WeatherAPI.ValidatorTimeout)
	}
	return nil
}

// HasStaticCredentials reports whether explicit AWS keys were supplied.
func (c *Config) HasStaticCredentials() bool {
	return c.LLM.AccessKeyID != "" && c.LLM.SecretAccessKey != ""
}

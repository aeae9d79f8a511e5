package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// maxBodySize bounds how much of a provider response is read into memory.
const maxBodySize = 1 << 20

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type BaseClient struct {
	client         HTTPClient
	logger         *zap.Logger
	circuitBreaker *gobreaker.CircuitBreaker
}

type ClientConfig struct {
	Threshold      int
	BreakerTimeout time.Duration
	// HTTPClient overrides the default transport, mainly for tests.
	HTTPClient HTTPClient
}

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
}

func NewBaseClient(name string, config ClientConfig, logger *zap.Logger) *BaseClient {
	var httpClient HTTPClient = &http.Client{}
	if config.HTTPClient != nil {
		httpClient = config.HTTPClient
	}

	breakerSettings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return config.Threshold > 0 && counts.ConsecutiveFailures >= uint32(config.Threshold)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				zap.String("client", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &BaseClient{
		client:         httpClient,
		logger:         logger,
		circuitBreaker: gobreaker.NewCircuitBreaker(breakerSettings),
	}
}

// Get performs a single GET through the circuit breaker. Non-2xx statuses are
// returned to the caller, not treated as errors; only transport failures and
// 5xx responses count against the breaker.
func (c *BaseClient) Get(ctx context.Context, rawURL string) (*Response, error) {
	var response *Response

	_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		resp, err := c.doGet(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		response = resp
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return resp, nil
	})

	if response != nil {
		return response, nil
	}
	return nil, err
}

func (c *BaseClient) doGet(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request failed: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		err = stripURL(err)
		c.logger.Warn("HTTP request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	c.logger.Debug("Request completed",
		zap.Int("status", resp.StatusCode),
		zap.Int("body_size", len(body)))

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// stripURL drops the request URL from transport errors; it carries the API key.
func stripURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s request failed: %w", uerr.Op, uerr.Err)
	}
	return err
}

// State exposes the breaker state for health reporting.
func (c *BaseClient) State() string {
	return c.circuitBreaker.State().String()
}

package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// RoundTripperFunc lets tests stub the transport without a listener.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestWeatherClient(t *testing.T, baseURL string, httpClient HTTPClient) *OpenWeatherClient {
	t.Helper()
	return NewOpenWeatherClient(
		OpenWeatherConfig{
			APIKey:           "test-key",
			BaseURL:          baseURL,
			Timeout:          2 * time.Second,
			ValidatorTimeout: 200 * time.Millisecond,
		},
		ClientConfig{Threshold: 0, BreakerTimeout: time.Second, HTTPClient: httpClient},
		zaptest.NewLogger(t),
	)
}

func TestFetchWeather_Success(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"cod":200,"name":"Paris","main":{"temp":21.5},"sys":{"country":"FR"},"weather":[{"description":"clear sky"}]}`)
	}))
	defer server.Close()

	c := newTestWeatherClient(t, server.URL, nil)
	got, err := c.FetchWeather(context.Background(), "Paris")
	require.NoError(t, err)

	assert.Equal(t, "The weather in Paris, FR is clear sky with a temperature of 21.50°C. (Data provided by OpenWeatherMap API)", got)
	assert.Equal(t, []string{"Paris"}, gotQuery["q"])
	assert.Equal(t, []string{"test-key"}, gotQuery["appid"])
	assert.Equal(t, []string{"metric"}, gotQuery["units"])
}

func TestFetchWeather_CityCountryIsEncoded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "São Paulo,BR", r.URL.Query().Get("q"))
		_, _ = io.WriteString(w, `{"cod":200,"main":{"temp":25},"sys":{"country":"BR"},"weather":[{"description":"haze"}]}`)
	}))
	defer server.Close()

	c := newTestWeatherClient(t, server.URL, nil)
	got, err := c.FetchWeather(context.Background(), "São Paulo,BR")
	require.NoError(t, err)
	assert.Contains(t, got, "The weather in São Paulo,BR, BR is haze")
	assert.Contains(t, got, "25.00°C")
}

func TestFetchWeather_MissingCountryDefaultsToUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"cod":200,"main":{"temp":1.005},"sys":{},"weather":[{"description":"snow"}]}`)
	}))
	defer server.Close()

	c := newTestWeatherClient(t, server.URL, nil)
	got, err := c.FetchWeather(context.Background(), "Longyearbyen")
	require.NoError(t, err)
	assert.Contains(t, got, "Longyearbyen, Unknown is snow")
}

func TestFetchWeather_NonOKStatusReturnsSentence(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusUnauthorized, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				_, _ = io.WriteString(w, `{"cod":"404","message":"city not found"}`)
			}))
			defer server.Close()

			c := newTestWeatherClient(t, server.URL, nil)
			got, err := c.FetchWeather(context.Background(), "Zzzznotacity")
			require.NoError(t, err)
			assert.Equal(t, "Could not fetch weather data for Zzzznotacity. Please check the city name. (Data provided by OpenWeatherMap API)", got)
		})
	}
}

func TestFetchWeather_TransportErrorPropagates(t *testing.T) {
	failing := &http.Client{Transport: RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}

	c := newTestWeatherClient(t, "http://weather.invalid", failing)
	_, err := c.FetchWeather(context.Background(), "Paris")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWeatherUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NotContains(t, err.Error(), "test-key")
}

func TestFetchWeather_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "not-json")
	}))
	defer server.Close()

	c := newTestWeatherClient(t, server.URL, nil)
	_, err := c.FetchWeather(context.Background(), "Paris")
	assert.ErrorIs(t, err, ErrWeatherUnavailable)
}

func TestLookup_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestWeatherClient(t, server.URL, nil)
	_, err := c.Lookup(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestIsValidLocation(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"integer cod 200", http.StatusOK, `{"cod":200,"name":"Paris"}`, true},
		{"string cod 200", http.StatusOK, `{"cod":"200"}`, false},
		{"not found", http.StatusNotFound, `{"cod":"404","message":"city not found"}`, false},
		{"cod 200 with non-200 status", http.StatusTeapot, `{"cod":200}`, true},
		{"malformed json", http.StatusOK, `<html>`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Empty(t, r.URL.Query().Get("units"))
				assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			c := newTestWeatherClient(t, server.URL, nil)
			assert.Equal(t, tt.want, c.IsValidLocation(context.Background(), "Paris"))
		})
	}
}

func TestIsValidLocation_TrimsCandidate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Paris,FR", r.URL.Query().Get("q"))
		_, _ = io.WriteString(w, `{"cod":200}`)
	}))
	defer server.Close()

	c := newTestWeatherClient(t, server.URL, nil)
	assert.True(t, c.IsValidLocation(context.Background(), "  Paris,FR\n"))
}

func TestIsValidLocation_EmptyCandidateSkipsNetwork(t *testing.T) {
	called := false
	stub := &http.Client{Transport: RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		called = true
		return nil, errors.New("unexpected call")
	})}

	c := newTestWeatherClient(t, "http://weather.invalid", stub)
	assert.False(t, c.IsValidLocation(context.Background(), "   "))
	assert.False(t, called)
}

func TestIsValidLocation_NetworkErrorIsFalse(t *testing.T) {
	stub := &http.Client{Transport: RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: no route to host")
	})}

	c := newTestWeatherClient(t, "http://weather.invalid", stub)
	assert.False(t, c.IsValidLocation(context.Background(), "Paris"))
}

func TestIsValidLocation_TimeoutIsFalse(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		_, _ = io.WriteString(w, `{"cod":200}`)
	}))
	defer server.Close()
	defer close(release)

	c := newTestWeatherClient(t, server.URL, nil)
	start := time.Now()
	assert.False(t, c.IsValidLocation(context.Background(), "Paris"))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestBaseClient_BreakerOpensAfterThreshold(t *testing.T) {
	calls := 0
	stub := &http.Client{Transport: RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		calls++
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       io.NopCloser(strings.NewReader("bad gateway")),
			Header:     make(http.Header),
		}, nil
	})}

	base := NewBaseClient("test", ClientConfig{Threshold: 2, BreakerTimeout: time.Minute, HTTPClient: stub}, zaptest.NewLogger(t))

	for i := 0; i < 2; i++ {
		resp, err := base.Get(context.Background(), "http://weather.invalid/weather")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	}

	_, err := base.Get(context.Background(), "http://weather.invalid/weather")
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "open", base.State())
}

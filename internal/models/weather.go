package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const Attribution = "(Data provided by OpenWeatherMap API)"

// UnknownCountry is reported when the provider omits sys.country.
const UnknownCountry = "Unknown"

// ProviderResponse is the subset of the OpenWeatherMap current-weather payload
// the agent reads. Cod is kept raw because the provider sends an integer on
// success and a string on most errors.
type ProviderResponse struct {
	Cod  json.RawMessage `json:"cod"`
	Name string          `json:"name"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Message string `json:"message"`
}

// Success reports whether cod is the JSON number 200.
func (r *ProviderResponse) Success() bool {
	var code int
	raw := bytes.TrimSpace(r.Cod)
	if len(raw) == 0 || raw[0] == '"' {
		return false
	}
	if err := json.Unmarshal(raw, &code); err != nil {
		return false
	}
	return code == 200
}

type WeatherReport struct {
	Location    string  `json:"location"`
	Country     string  `json:"country"`
	Description string  `json:"description"`
	Temperature float64 `json:"temperature"`
}

// NewWeatherReport maps a provider payload onto a report for the location the
// caller asked about.
func NewWeatherReport(location string, resp *ProviderResponse) *WeatherReport {
	report := &WeatherReport{
		Location:    location,
		Country:     resp.Sys.Country,
		Temperature: resp.Main.Temp,
	}
	if report.Country == "" {
		report.Country = UnknownCountry
	}
	if len(resp.Weather) > 0 {
		report.Description = resp.Weather[0].Description
	}
	return report
}

func (w *WeatherReport) Sentence() string {
	return fmt.Sprintf("The weather in %s, %s is %s with a temperature of %.2f°C. %s",
		w.Location, w.Country, w.Description, w.Temperature, Attribution)
}

// NotFoundSentence is returned in place of a report when the provider rejects
// the location.
func NotFoundSentence(location string) string {
	return fmt.Sprintf("Could not fetch weather data for %s. Please check the city name. %s",
		location, Attribution)
}

type QueryKind string

const (
	KindWeather QueryKind = "weather"
	KindAnswer  QueryKind = "answer"
)

type QueryResult struct {
	Query    string        `json:"query"`
	Answer   string        `json:"answer"`
	Kind     QueryKind     `json:"kind"`
	Location string        `json:"location,omitempty"`
	Duration time.Duration `json:"-"`
}

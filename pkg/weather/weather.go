package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"bee-finder/pkg/apperr"
)

const (
	msgStationFailed  = "Could not fetch weather station data."
	msgForecastFailed = "Could not fetch the weather forecast."
	msgNoPeriods      = "Weather data is currently unavailable for this location."
)

// Forecast is the raw result of a lookup, before the local hour is known.
type Forecast struct {
	ShortForecast string
	Timezone      string
}

// Snapshot is the frozen weather view used for one generation run.
type Snapshot struct {
	ShortDescription string `json:"shortDescription"`
	Timezone         string `json:"timezone"`
	LocalHour        int    `json:"localHour"`
}

// Snapshot combines the forecast with the civil hour of now in the forecast's timezone.
func (f Forecast) Snapshot(now time.Time) (Snapshot, error) {
	hour, err := LocalHour(now, f.Timezone)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{ShortDescription: f.ShortForecast, Timezone: f.Timezone, LocalHour: hour}, nil
}

// LocalHour returns the hour of day (0-23) of now in the named IANA timezone.
func LocalHour(now time.Time, timezone string) (int, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, msgForecastFailed, fmt.Errorf("unknown timezone %q: %w", timezone, err))
	}
	return NormalizeHour(now.In(loc).Hour()), nil
}

// NormalizeHour maps the "24" some clocks report for midnight onto 0.
func NormalizeHour(h int) int {
	if h == 24 {
		return 0
	}
	return h
}

// ParseHour parses a two-digit hour string such as "07" or "24".
func ParseHour(s string) (int, error) {
	h, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid hour %q: %w", s, err)
	}
	h = NormalizeHour(h)
	if h < 0 || h > 23 {
		return 0, fmt.Errorf("hour %d out of range", h)
	}
	return h, nil
}

// Client talks to a weather.gov-style points/forecast API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a client. rps <= 0 disables rate limiting.
func NewClient(baseURL, userAgent string, rps float64, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(limit, 2),
		logger:  logger.With("component", "weather"),
	}
}

type pointsResponse struct {
	Properties struct {
		Forecast string `json:"forecast"`
		TimeZone string `json:"timeZone"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Periods []struct {
			Number          int    `json:"number"`
			Name            string `json:"name"`
			IsDaytime       bool   `json:"isDaytime"`
			Temperature     int    `json:"temperature"`
			TemperatureUnit string `json:"temperatureUnit"`
			ShortForecast   string `json:"shortForecast"`
		} `json:"periods"`
	} `json:"properties"`
}

// Lookup resolves the forecast endpoint for a coordinate, then fetches its most imminent period.
func (c *Client) Lookup(ctx context.Context, lat, lon string) (Forecast, error) {
	var points pointsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/points/%s,%s", c.baseURL, lat, lon), &points); err != nil {
		c.logger.Error("points lookup failed", "lat", lat, "lon", lon, "error", err)
		return Forecast{}, apperr.Wrap(apperr.Unavailable, msgStationFailed, err)
	}
	if points.Properties.Forecast == "" || points.Properties.TimeZone == "" {
		return Forecast{}, apperr.Wrap(apperr.Unavailable, msgStationFailed, fmt.Errorf("incomplete points response"))
	}

	var forecast forecastResponse
	if err := c.getJSON(ctx, points.Properties.Forecast, &forecast); err != nil {
		c.logger.Error("forecast fetch failed", "url", points.Properties.Forecast, "error", err)
		return Forecast{}, apperr.Wrap(apperr.Unavailable, msgForecastFailed, err)
	}
	if len(forecast.Properties.Periods) == 0 {
		return Forecast{}, apperr.New(apperr.NotFound, msgNoPeriods)
	}

	current := forecast.Properties.Periods[0]
	c.logger.Debug("forecast resolved", "period", current.Name, "short_forecast", current.ShortForecast, "timezone", points.Properties.TimeZone)
	return Forecast{ShortForecast: current.ShortForecast, Timezone: points.Properties.TimeZone}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait canceled: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

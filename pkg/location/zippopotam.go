package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"bee-finder/pkg/apperr"
)

// ZippopotamResolver looks up US postal codes and city/state pairs against a Zippopotam-style API.
type ZippopotamResolver struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewZippopotamResolver creates a resolver. rps <= 0 disables rate limiting.
func NewZippopotamResolver(baseURL string, rps float64, logger *slog.Logger) *ZippopotamResolver {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &ZippopotamResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With("component", "location.zippopotam"),
	}
}

type zippopotamPlace struct {
	PlaceName         string `json:"place name"`
	Longitude         string `json:"longitude"`
	Latitude          string `json:"latitude"`
	State             string `json:"state"`
	StateAbbreviation string `json:"state abbreviation"`
}

// zippopotamResponse covers both payload shapes. City/state lookups carry the
// state fields at the top level instead of inside each place.
type zippopotamResponse struct {
	State             string            `json:"state"`
	StateAbbreviation string            `json:"state abbreviation"`
	Places            []zippopotamPlace `json:"places"`
}

func (r *ZippopotamResolver) Resolve(ctx context.Context, q Query) (Resolved, error) {
	if err := q.Validate(); err != nil {
		return Resolved{}, err
	}

	var endpoint string
	if q.Kind == KindZipcode {
		endpoint = fmt.Sprintf("%s/us/%s", r.baseURL, url.PathEscape(q.Value))
	} else {
		endpoint = fmt.Sprintf("%s/us/%s/%s", r.baseURL, url.PathEscape(strings.ToLower(q.State)), url.PathEscape(q.City))
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return Resolved{}, apperr.Wrap(apperr.Unavailable, msgFetchFailed, fmt.Errorf("rate limit wait canceled: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Resolved{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Error("location request failed", "query", q.String(), "error", err)
		return Resolved{}, apperr.Wrap(apperr.Unavailable, msgFetchFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Resolved{}, apperr.Wrap(apperr.Unavailable, msgFetchFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		r.logger.Info("location not found", "query", q.String())
		return Resolved{}, q.notFound()
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		r.logger.Error("location API error", "query", q.String(), "status", resp.StatusCode)
		return Resolved{}, apperr.Wrap(apperr.Unavailable, msgFetchFailed, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body)))
	}

	var payload zippopotamResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return Resolved{}, apperr.Wrap(apperr.Unavailable, msgFetchFailed, fmt.Errorf("failed to parse response: %w", err))
	}

	places := normalizePlaces(q.Kind, payload)
	if len(places) == 0 {
		return Resolved{}, q.notFound()
	}

	place := places[0]
	if place.Latitude == "" || place.Longitude == "" {
		return Resolved{}, apperr.New(apperr.NotFound, msgMissingCoords)
	}

	loc := newResolved(place.PlaceName, place.StateAbbreviation, place.Latitude, place.Longitude)
	r.logger.Debug("location resolved", "query", q.String(), "location", loc.DisplayName)
	return loc, nil
}

// normalizePlaces copies top-level state fields down into every place for city/state payloads,
// so both query kinds produce the same per-place shape.
func normalizePlaces(kind Kind, payload zippopotamResponse) []zippopotamPlace {
	if kind != KindCityState {
		return payload.Places
	}
	places := make([]zippopotamPlace, len(payload.Places))
	for i, p := range payload.Places {
		p.State = payload.State
		p.StateAbbreviation = payload.StateAbbreviation
		places[i] = p
	}
	return places
}

var _ Resolver = (*ZippopotamResolver)(nil)

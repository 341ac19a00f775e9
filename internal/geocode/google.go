package geocode

import (
	"communityconnect/pkg/domain"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultGoogleEndpoint is the Google Geocoding JSON API.
const DefaultGoogleEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// Google queries the Google Geocoding API.
type Google struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// GoogleOption configures a Google geocoder.
type GoogleOption func(*Google)

// WithEndpoint overrides the API endpoint.
func WithEndpoint(endpoint string) GoogleOption {
	return func(g *Google) { g.endpoint = endpoint }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) GoogleOption {
	return func(g *Google) { g.client = client }
}

// NewGoogle returns a geocoder using apiKey.
func NewGoogle(apiKey string, opts ...GoogleOption) (*Google, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("geocode: api key required")
	}
	g := &Google{
		apiKey:   apiKey,
		endpoint: DefaultGoogleEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode returns the location of the first result. ZERO_RESULTS maps to
// ErrNoResult; any other non-OK status is an error carrying the API message.
func (g *Google) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return domain.Coordinates{}, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return domain.Coordinates{}, fmt.Errorf("geocode: http status %d", resp.StatusCode)
	}
	var body googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode decode: %w", err)
	}
	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		return domain.Coordinates{}, ErrNoResult
	default:
		return domain.Coordinates{}, fmt.Errorf("geocode: status %s: %s", body.Status, body.ErrorMessage)
	}
	if len(body.Results) == 0 {
		return domain.Coordinates{}, ErrNoResult
	}
	loc := body.Results[0].Geometry.Location
	return domain.Coordinates{Lat: loc.Lat, Lng: loc.Lng}, nil
}

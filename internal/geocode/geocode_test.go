package geocode

import (
	"communityconnect/pkg/domain"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticGeocoder(t *testing.T) {
	g := NewStatic(map[string]domain.Coordinates{"Student Union": {Lat: 40.1, Lng: -88.2}})
	c, err := g.Geocode(context.Background(), "  student union ")
	require.NoError(t, err)
	assert.Equal(t, 40.1, c.Lat)

	_, err = g.Geocode(context.Background(), "Main Quad")
	assert.ErrorIs(t, err, ErrNoResult)

	g.Add("Main Quad", domain.Coordinates{Lat: 1, Lng: 2})
	c, err = g.Geocode(context.Background(), "main quad")
	require.NoError(t, err)
	assert.Equal(t, 2.0, c.Lng)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Geocode(ctx, "main quad")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGoogleGeocoder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("address") {
		case "Foellinger Auditorium":
			_, _ = w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":40.1059,"lng":-88.2272}}}]}`))
		case "nowhere":
			_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
		default:
			_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key"}`))
		}
	}))
	defer srv.Close()

	g, err := NewGoogle("secret", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	c, err := g.Geocode(context.Background(), "Foellinger Auditorium")
	require.NoError(t, err)
	assert.InDelta(t, 40.1059, c.Lat, 1e-9)
	assert.InDelta(t, -88.2272, c.Lng, 1e-9)

	_, err = g.Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNoResult)

	_, err = g.Geocode(context.Background(), "other")
	assert.ErrorContains(t, err, "REQUEST_DENIED")
}

func TestGoogleGeocoderHTTPFailures(t *testing.T) {
	_, err := NewGoogle(" ")
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("address") == "slow" {
			time.Sleep(200 * time.Millisecond)
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	g, err := NewGoogle("k", WithEndpoint(srv.URL))
	require.NoError(t, err)

	_, err = g.Geocode(context.Background(), "x")
	assert.ErrorContains(t, err, "502")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Geocode(ctx, "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

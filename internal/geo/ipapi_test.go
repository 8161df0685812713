package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/tipoca/internal/config"
	"github.com/BradenHooton/tipoca/internal/models"
)

func newTestClient(t *testing.T, production bool, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.GeoConfig{BaseURL: srv.URL, Timeout: time.Second}, production)
}

func TestResolve(t *testing.T) {
	var gotPath, gotFields string
	c := newTestClient(t, true, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFields = r.URL.Query().Get("fields")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","continent":"Europe","country":"Germany",
			"regionName":"Berlin","city":"Berlin","lat":52.52,"lon":13.405,"timezone":"Europe/Berlin"}`))
	})

	loc, err := c.Resolve(context.Background(), "203.0.113.9")
	require.NoError(t, err)

	assert.Equal(t, "/json/203.0.113.9", gotPath)
	assert.Equal(t, lookupFields, gotFields)
	assert.Equal(t, &models.IPLocation{
		Continent: "Europe", Country: "Germany", Region: "Berlin", City: "Berlin",
		Lat: 52.52, Lon: 13.405, Timezone: "Europe/Berlin",
	}, loc)
}

func TestResolve_NonProductionUsesStubTarget(t *testing.T) {
	var gotPath string
	c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"status":"success","country":"United States"}`))
	})

	_, err := c.Resolve(context.Background(), "198.51.100.1")
	require.NoError(t, err)
	assert.Equal(t, "/json/"+stubTarget, gotPath)
}

func TestResolve_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"api reports fail", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
		}},
		{"non-200", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, true, tt.handler)
			_, err := c.Resolve(context.Background(), "10.0.0.1")
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrGeoLookup))
		})
	}
}

func TestResolve_Unreachable(t *testing.T) {
	c := NewClient(config.GeoConfig{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond}, true)
	_, err := c.Resolve(context.Background(), "10.0.0.1")
	assert.True(t, errors.Is(err, models.ErrGeoLookup))
}

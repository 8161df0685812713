// Package geo resolves IP addresses to coarse locations through ip-api.com.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/BradenHooton/tipoca/internal/config"
	"github.com/BradenHooton/tipoca/internal/models"
)

// stubTarget is looked up instead of the caller's address outside production.
const stubTarget = "google.com"

const lookupFields = "status,message,continent,country,regionName,city,lat,lon,timezone"

type Client struct {
	client     *http.Client
	baseURL    string
	production bool
}

func NewClient(cfg config.GeoConfig, production bool) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		client:     &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		production: production,
	}
}

type apiResponse struct {
	Status     string  `json:"status"`
	Message    string  `json:"message"`
	Continent  string  `json:"continent"`
	Country    string  `json:"country"`
	RegionName string  `json:"regionName"`
	City       string  `json:"city"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Timezone   string  `json:"timezone"`
}

// Resolve looks up ip. Any transport, status or decode failure wraps
// models.ErrGeoLookup.
func (c *Client) Resolve(ctx context.Context, ip string) (*models.IPLocation, error) {
	target := ip
	if !c.production {
		target = stubTarget
	}

	endpoint := fmt.Sprintf("%s/json/%s?fields=%s", c.baseURL, url.PathEscape(target), lookupFields)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", models.ErrGeoLookup, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGeoLookup, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", models.ErrGeoLookup, resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", models.ErrGeoLookup, err)
	}
	if body.Status == "fail" {
		return nil, fmt.Errorf("%w: %s", models.ErrGeoLookup, body.Message)
	}

	return &models.IPLocation{
		Continent: body.Continent,
		Country:   body.Country,
		Region:    body.RegionName,
		City:      body.City,
		Lat:       body.Lat,
		Lon:       body.Lon,
		Timezone:  body.Timezone,
	}, nil
}

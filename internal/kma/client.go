// Package kma talks to the KMA API hub: hourly surface observations and
// short-term forecast overviews.
package kma

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"StationData.influxDB/internal/utils"
	"github.com/go-resty/resty/v2"
)

var ErrEmptyResponse = errors.New("kma: empty response")

// Client fetches raw KMA responses.
type Client struct {
	http           *resty.Client
	observationURL string
	forecastURL    string
	authKey        string
	station        string
}

// Config is the subset of application settings the client needs.
type Config struct {
	ObservationURL string
	ForecastURL    string
	AuthKey        string
	Station        string
	Timeout        time.Duration
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:           resty.New().SetTimeout(timeout),
		observationURL: cfg.ObservationURL,
		forecastURL:    cfg.ForecastURL,
		authKey:        cfg.AuthKey,
		station:        cfg.Station,
	}
}

// Station is the configured station code.
func (c *Client) Station() string {
	return c.station
}

// FetchObservations returns the raw whitespace-separated observation table for [tm1, tm2].
func (c *Client) FetchObservations(ctx context.Context, tm1, tm2 string) (string, error) {
	return c.get(ctx, c.observationURL, map[string]string{
		"stn":     c.station,
		"tm1":     tm1,
		"tm2":     tm2,
		"authKey": c.authKey,
	})
}

// FetchForecastSummaries returns forecast overview rows issued in [tmf1, tmf2].
func (c *Client) FetchForecastSummaries(ctx context.Context, tmf1, tmf2 string) ([]ForecastRow, error) {
	body, err := c.get(ctx, c.forecastURL, map[string]string{
		"stn":     c.station,
		"tmf1":    tmf1,
		"tmf2":    tmf2,
		"disp":    "1",
		"authKey": c.authKey,
	})
	if err != nil {
		return nil, err
	}
	return ParseForecastSummaries(body)
}

func (c *Client) get(ctx context.Context, url string, params map[string]string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(url)
	if err != nil {
		return "", fmt.Errorf("kma: request to %s (station=%s, authKey=%s): %w",
			url, utils.Mask(c.station), utils.Mask(c.authKey), redact(err, c.authKey))
	}
	if resp.IsError() {
		return "", fmt.Errorf("kma: %s returned %d", url, resp.StatusCode())
	}
	body := strings.TrimSpace(resp.String())
	if body == "" {
		return "", ErrEmptyResponse
	}
	return body, nil
}

// redact strips the auth key from transport errors, which echo the request URL.
func redact(err error, secret string) error {
	if secret == "" || !strings.Contains(err.Error(), secret) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), secret, utils.Mask(secret)))
}

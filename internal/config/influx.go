package config

import (
	"context"
	"fmt"
	"time"

	"StationData.influxDB/internal/models"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/domain"
)

// NewInfluxClient creates a client that writes with millisecond precision.
// Timeouts are enforced by the client's HTTP transport.
func NewInfluxClient(cfg Config) influxdb2.Client {
	opts := influxdb2.DefaultOptions().
		SetPrecision(models.WritePrecision).
		SetHTTPRequestTimeout(uint(cfg.InfluxTimeout / time.Second))
	return influxdb2.NewClientWithOptions(cfg.InfluxDBURL, cfg.InfluxDBToken, opts)
}

// InitInfluxClient creates the client and checks the connection health.
func InitInfluxClient(ctx context.Context, cfg Config) (influxdb2.Client, error) {
	client := NewInfluxClient(cfg)

	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}
	if health.Status != domain.HealthCheckStatusPass {
		client.Close()
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return nil, fmt.Errorf("InfluxDB health check failed: %s", msg)
	}
	return client, nil
}

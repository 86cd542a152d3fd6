package controller

import (
	"context"
	"net/http"

	"StationData.influxDB/internal/utils"
	"github.com/rs/zerolog"
)

type BucketLister interface {
	ListBuckets(ctx context.Context) ([]string, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) (bool, error)
}

// LocationController serves the bucket list and the health check.
type LocationController struct {
	buckets BucketLister
	health  HealthChecker
	logger  zerolog.Logger
}

func NewLocationController(buckets BucketLister, health HealthChecker, logger zerolog.Logger) *LocationController {
	return &LocationController{
		buckets: buckets,
		health:  health,
		logger:  logger.With().Str("component", "location_controller").Logger(),
	}
}

// GetLocations handles GET /api/locations.
func (c *LocationController) GetLocations(w http.ResponseWriter, r *http.Request) {
	names, err := c.buckets.ListBuckets(r.Context())
	if err != nil {
		respondWithServiceError(w, c.logger, err)
		return
	}
	utils.RespondWithPayload(w, http.StatusOK, names)
}

// Health handles GET /health. It reports 503 when InfluxDB does not answer.
func (c *LocationController) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "UP", "influxdb": "UP"}
	code := http.StatusOK
	if ok, err := c.health.Ping(r.Context()); err != nil || !ok {
		c.logger.Warn().Err(err).Msg("influxdb ping failed")
		status["status"], status["influxdb"] = "DOWN", "DOWN"
		code = http.StatusServiceUnavailable
	}
	utils.RespondWithJSON(w, code, status)
}

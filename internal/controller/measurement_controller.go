package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"StationData.influxDB/internal/models"
	"StationData.influxDB/internal/utils"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/sosodev/duration"
)

const defaultDurationSec int64 = 86400

// MeasurementService is what MeasurementController needs from the service layer.
type MeasurementService interface {
	SaveMeasurement(ctx context.Context, req models.SensorMeasurementRequest) (models.SensorMeasurement, error)
	GetMeasurements(ctx context.Context, sensorID int64, durationSec int64) ([]models.SensorMeasurementResponse, error)
	GetMeasurementsByName(ctx context.Context, sensorName string, durationSec int64) ([]models.SensorMeasurementResponse, error)
	GetAllMeasurements(ctx context.Context) ([]models.SensorMeasurementResponse, error)
	GetAllMeasurementsWithin(ctx context.Context, durationSec int64) ([]models.SensorMeasurementResponse, error)
	GetMeasurementsBetween(ctx context.Context, sensorName string, start, end time.Time) ([]models.SensorMeasurementResponse, error)
	GetMeasurementsGroupedBySensor(ctx context.Context, start, end time.Time) (map[string][]models.SensorMeasurementResponse, error)
}

// MeasurementController handles the /api/measurements endpoints.
type MeasurementController struct {
	service MeasurementService
	logger  zerolog.Logger
}

func NewMeasurementController(service MeasurementService, logger zerolog.Logger) *MeasurementController {
	return &MeasurementController{
		service: service,
		logger:  logger.With().Str("component", "measurement_controller").Logger(),
	}
}

// SaveMeasurement handles POST /api/measurements.
func (c *MeasurementController) SaveMeasurement(w http.ResponseWriter, r *http.Request) {
	var req models.SensorMeasurementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, models.BadRequest(models.ErrorCodeInvalidFormat, fmt.Sprintf("error decoding JSON: %v", err)))
		return
	}
	if req.SensorID <= 0 {
		utils.RespondWithError(w, models.BadRequest(models.ErrorCodeMissingParameter, "sensorId is required"))
		return
	}
	if req.Value == nil {
		utils.RespondWithError(w, models.BadRequest(models.ErrorCodeMissingParameter, "value is required"))
		return
	}

	m, err := c.service.SaveMeasurement(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, c.logger, err)
		return
	}
	id := m.SensorID
	utils.RespondWithPayload(w, http.StatusCreated, models.SensorMeasurementResponse{
		SensorID:    &id,
		SensorName:  m.SensorName,
		Value:       m.Value,
		SensingDate: m.Time,
	})
}

// GetBySensorID handles GET /api/measurements/{sensorId}.
func (c *MeasurementController) GetBySensorID(w http.ResponseWriter, r *http.Request) {
	sensorID, err := strconv.ParseInt(mux.Vars(r)["sensorId"], 10, 64)
	if err != nil || sensorID <= 0 {
		utils.RespondWithError(w, models.BadRequest(models.ErrorCodeInvalidFormat, "sensorId must be a positive integer"))
		return
	}
	durationSec, ok := c.durationParam(w, r)
	if !ok {
		return
	}

	list, err := c.service.GetMeasurements(r.Context(), sensorID, durationSec)
	if err != nil {
		respondWithServiceError(w, c.logger, err)
		return
	}
	utils.RespondWithPayload(w, http.StatusOK, list)
}

// GetBySensorName handles GET /api/measurements/by-name/{sensorName}.
func (c *MeasurementController) GetBySensorName(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["sensorName"]
	durationSec, ok := c.durationParam(w, r)
	if !ok {
		return
	}
	c.logger.Debug().Str("sensor", utils.Mask(name)).Int64("duration_sec", durationSec).Msg("query by name")

	list, err := c.service.GetMeasurementsByName(r.Context(), name, durationSec)
	if err != nil {
		respondWithServiceError(w, c.logger, err)
		return
	}
	utils.RespondWithPayload(w, http.StatusOK, list)
}

// GetAll handles GET /api/measurements/all. Without a duration every
// stored point is returned.
func (c *MeasurementController) GetAll(w http.ResponseWriter, r *http.Request) {
	var (
		list []models.SensorMeasurementResponse
		err  error
	)
	if hasDuration(r) {
		durationSec, ok := c.durationParam(w, r)
		if !ok {
			return
		}
		list, err = c.service.GetAllMeasurementsWithin(r.Context(), durationSec)
	} else {
		list, err = c.service.GetAllMeasurements(r.Context())
	}
	if err != nil {
		respondWithServiceError(w, c.logger, err)
		return
	}
	utils.RespondWithPayload(w, http.StatusOK, list)
}

// GetBetween handles GET /api/measurements/list.
func (c *MeasurementController) GetBetween(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("sensorName")
	if name == "" {
		utils.RespondWithError(w, models.BadRequest(models.ErrorCodeMissingParameter, "sensorName is required"))
		return
	}
	start, end, ok := timeRangeParams(w, r)
	if !ok {
		return
	}

	list, err := c.service.GetMeasurementsBetween(r.Context(), name, start, end)
	if err != nil {
		respondWithServiceError(w, c.logger, err)
		return
	}
	utils.RespondWithPayload(w, http.StatusOK, list)
}

// GetGrouped handles GET /api/measurements/list/grouped.
func (c *MeasurementController) GetGrouped(w http.ResponseWriter, r *http.Request) {
	start, end, ok := timeRangeParams(w, r)
	if !ok {
		return
	}

	grouped, err := c.service.GetMeasurementsGroupedBySensor(r.Context(), start, end)
	if err != nil {
		respondWithServiceError(w, c.logger, err)
		return
	}
	utils.RespondWithPayload(w, http.StatusOK, grouped)
}

func hasDuration(r *http.Request) bool {
	q := r.URL.Query()
	return q.Get("durationSec") != "" || q.Get("duration") != ""
}

// durationParam reads durationSec (seconds) or duration (ISO-8601, e.g. PT1H).
func (c *MeasurementController) durationParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	q := r.URL.Query()
	if raw := q.Get("durationSec"); raw != "" {
		sec, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || sec < 0 {
			utils.RespondWithError(w, models.BadRequest(models.ErrorCodeInvalidFormat, "durationSec must be a non-negative integer"))
			return 0, false
		}
		return sec, true
	}
	if raw := q.Get("duration"); raw != "" {
		d, err := duration.Parse(raw)
		if err != nil {
			utils.RespondWithError(w, models.BadRequest(models.ErrorCodeInvalidFormat, fmt.Sprintf("invalid ISO-8601 duration %q", raw)))
			return 0, false
		}
		td := d.ToTimeDuration()
		if td < 0 {
			utils.RespondWithError(w, models.BadRequest(models.ErrorCodeInvalidFormat, "duration must not be negative"))
			return 0, false
		}
		return int64(td / time.Second), true
	}
	return defaultDurationSec, true
}

func timeRangeParams(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()
	rawStart, rawEnd := q.Get("start"), q.Get("end")
	if rawStart == "" || rawEnd == "" {
		utils.RespondWithError(w, models.BadRequest(models.ErrorCodeMissingParameter, "start and end are required"))
		return time.Time{}, time.Time{}, false
	}
	start, err := utils.ParseLocalDateTime(rawStart)
	if err != nil {
		utils.RespondWithError(w, models.BadRequest(models.ErrorCodeInvalidFormat, err.Error()))
		return time.Time{}, time.Time{}, false
	}
	end, err := utils.ParseLocalDateTime(rawEnd)
	if err != nil {
		utils.RespondWithError(w, models.BadRequest(models.ErrorCodeInvalidFormat, err.Error()))
		return time.Time{}, time.Time{}, false
	}
	if end.Before(start) {
		utils.RespondWithError(w, models.BadRequest(models.ErrorCodeValidationFailed, "end must not be before start"))
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

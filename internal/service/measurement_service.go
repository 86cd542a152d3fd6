package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"StationData.influxDB/internal/metrics"
	"StationData.influxDB/internal/models"
	"StationData.influxDB/internal/repository"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrSensorNotFound = errors.New("sensor not found")
	ErrInvalidValue   = errors.New("value is required")
)

// groupedQueryConcurrency bounds the per-sensor fan-out of GetMeasurementsGroupedBySensor.
const groupedQueryConcurrency = 4

// MeasurementService handles the business logic for sensor measurements.
type MeasurementService struct {
	repo    repository.MeasurementRepository
	sensors repository.SensorCatalog
	bucket  string
	logger  zerolog.Logger
	now     func() time.Time
}

// NewMeasurementService creates a new MeasurementService reading from bucket.
func NewMeasurementService(repo repository.MeasurementRepository, sensors repository.SensorCatalog, bucket string, logger zerolog.Logger) *MeasurementService {
	return &MeasurementService{
		repo:    repo,
		sensors: sensors,
		bucket:  bucket,
		logger:  logger.With().Str("component", "measurement_service").Logger(),
		now:     time.Now,
	}
}

// SaveMeasurement stores a reading for a catalogued sensor, stamped with the current time.
func (s *MeasurementService) SaveMeasurement(ctx context.Context, req models.SensorMeasurementRequest) (models.SensorMeasurement, error) {
	if req.Value == nil {
		return models.SensorMeasurement{}, ErrInvalidValue
	}
	sensor, err := s.sensorByID(ctx, req.SensorID)
	if err != nil {
		return models.SensorMeasurement{}, err
	}

	m := models.SensorMeasurement{
		SensorName: sensor.Name,
		SensorID:   sensor.ID,
		Value:      *req.Value,
		Time:       s.now().UTC(),
	}
	err = s.repo.Save(ctx, m)
	metrics.ObserveWrite(1, err)
	if err != nil {
		return models.SensorMeasurement{}, fmt.Errorf("saving measurement for sensor %d: %w", sensor.ID, err)
	}

	s.logger.Info().Str("sensor", sensor.Name).Float64("value", m.Value).Time("time", m.Time).Msg("measurement saved")
	return m, nil
}

// GetMeasurements returns the readings of sensor id from the last durationSec seconds.
func (s *MeasurementService) GetMeasurements(ctx context.Context, sensorID int64, durationSec int64) ([]models.SensorMeasurementResponse, error) {
	sensor, err := s.sensorByID(ctx, sensorID)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	rows, err := s.repo.FindBySensorIDWithin(ctx, s.bucket, sensor.Name, durationSec)
	metrics.ObserveQuery("find_by_sensor_within", started, err)
	if err != nil {
		return nil, err
	}
	return toResponses(rows, fixedID(sensor.ID)), nil
}

// GetMeasurementsByName is GetMeasurements keyed by the sensor name.
func (s *MeasurementService) GetMeasurementsByName(ctx context.Context, sensorName string, durationSec int64) ([]models.SensorMeasurementResponse, error) {
	sensor, err := s.sensorByName(ctx, sensorName)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	rows, err := s.repo.FindBySensorIDWithin(ctx, s.bucket, sensor.Name, durationSec)
	metrics.ObserveQuery("find_by_sensor_within", started, err)
	if err != nil {
		return nil, err
	}
	return toResponses(rows, fixedID(sensor.ID)), nil
}

// GetAllMeasurements returns every stored reading. Expensive on large buckets.
func (s *MeasurementService) GetAllMeasurements(ctx context.Context) ([]models.SensorMeasurementResponse, error) {
	started := time.Now()
	rows, err := s.repo.FindAll(ctx, s.bucket)
	metrics.ObserveQuery("find_all", started, err)
	if err != nil {
		return nil, err
	}
	return s.withCatalogIDs(ctx, rows)
}

// GetAllMeasurementsWithin returns every sensor's readings from the last durationSec seconds.
func (s *MeasurementService) GetAllMeasurementsWithin(ctx context.Context, durationSec int64) ([]models.SensorMeasurementResponse, error) {
	started := time.Now()
	rows, err := s.repo.FindAllWithin(ctx, s.bucket, durationSec)
	metrics.ObserveQuery("find_all_within", started, err)
	if err != nil {
		return nil, err
	}
	return s.withCatalogIDs(ctx, rows)
}

// GetMeasurementsBetween returns a sensor's readings in [start, end).
func (s *MeasurementService) GetMeasurementsBetween(ctx context.Context, sensorName string, start, end time.Time) ([]models.SensorMeasurementResponse, error) {
	sensor, err := s.sensorByName(ctx, sensorName)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	rows, err := s.repo.FindBySensorIDBetween(ctx, s.bucket, sensor.Name, start, end)
	metrics.ObserveQuery("find_by_sensor_between", started, err)
	if err != nil {
		return nil, err
	}
	return toResponses(rows, fixedID(sensor.ID)), nil
}

// GetMeasurementsGroupedBySensor queries [start, end) for every catalogued
// sensor concurrently and groups the readings by sensor name.
func (s *MeasurementService) GetMeasurementsGroupedBySensor(ctx context.Context, start, end time.Time) (map[string][]models.SensorMeasurementResponse, error) {
	sensors, err := s.sensors.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sensors: %w", err)
	}

	var mu sync.Mutex
	grouped := make(map[string][]models.SensorMeasurementResponse, len(sensors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(groupedQueryConcurrency)
	for _, sensor := range sensors {
		sensor := sensor
		g.Go(func() error {
			started := time.Now()
			rows, err := s.repo.FindBySensorIDBetween(gctx, s.bucket, sensor.Name, start, end)
			metrics.ObserveQuery("find_by_sensor_between", started, err)
			if err != nil {
				return fmt.Errorf("sensor %s: %w", sensor.Name, err)
			}
			mu.Lock()
			grouped[sensor.Name] = toResponses(rows, fixedID(sensor.ID))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return grouped, nil
}

func (s *MeasurementService) sensorByID(ctx context.Context, id int64) (*models.Sensor, error) {
	sensor, err := s.sensors.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("looking up sensor %d: %w", id, err)
	}
	if sensor == nil {
		return nil, fmt.Errorf("%w: id=%d", ErrSensorNotFound, id)
	}
	return sensor, nil
}

func (s *MeasurementService) sensorByName(ctx context.Context, name string) (*models.Sensor, error) {
	sensor, err := s.sensors.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("looking up sensor %q: %w", name, err)
	}
	if sensor == nil {
		return nil, fmt.Errorf("%w: name=%s", ErrSensorNotFound, name)
	}
	return sensor, nil
}

// withCatalogIDs attaches catalogue ids; readings of uncatalogued sensors keep a nil id.
func (s *MeasurementService) withCatalogIDs(ctx context.Context, rows []models.SensorMeasurement) ([]models.SensorMeasurementResponse, error) {
	sensors, err := s.sensors.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sensors: %w", err)
	}
	ids := make(map[string]int64, len(sensors))
	for _, sensor := range sensors {
		ids[sensor.Name] = sensor.ID
	}
	return toResponses(rows, func(name string) *int64 {
		if id, ok := ids[name]; ok {
			return &id
		}
		return nil
	}), nil
}

func fixedID(id int64) func(string) *int64 {
	return func(string) *int64 {
		v := id
		return &v
	}
}

func toResponses(rows []models.SensorMeasurement, idOf func(name string) *int64) []models.SensorMeasurementResponse {
	out := make([]models.SensorMeasurementResponse, 0, len(rows))
	for _, m := range rows {
		out = append(out, models.SensorMeasurementResponse{
			SensorID:    idOf(m.SensorName),
			SensorName:  m.SensorName,
			Value:       m.Value,
			SensingDate: m.Time,
		})
	}
	return out
}

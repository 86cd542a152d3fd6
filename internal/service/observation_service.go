package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"StationData.influxDB/internal/kma"
	"StationData.influxDB/internal/metrics"
	"StationData.influxDB/internal/models"
	"StationData.influxDB/internal/repository"
	"StationData.influxDB/internal/utils"
	"github.com/rs/zerolog"
)

// observationSensors is the order points are written for each row.
var observationSensors = []string{
	kma.SensorWindDir,
	kma.SensorWindSpeed,
	kma.SensorPressure,
	kma.SensorTemperature,
	kma.SensorRainfall,
}

// ObservationFetcher returns the raw observation table for [tm1, tm2].
type ObservationFetcher interface {
	FetchObservations(ctx context.Context, tm1, tm2 string) (string, error)
}

// ObservationService ingests KMA hourly surface observations into InfluxDB.
type ObservationService struct {
	fetcher ObservationFetcher
	repo    repository.MeasurementRepository
	logger  zerolog.Logger
}

func NewObservationService(fetcher ObservationFetcher, repo repository.MeasurementRepository, logger zerolog.Logger) *ObservationService {
	return &ObservationService{
		fetcher: fetcher,
		repo:    repo,
		logger:  logger.With().Str("component", "observation_service").Logger(),
	}
}

// FetchAndStore writes one point per sensor for every observation row in
// [tm1, tm2]. Missing values are not written. It returns the number of rows stored.
func (s *ObservationService) FetchAndStore(ctx context.Context, tm1, tm2 string) (int, error) {
	body, err := s.fetcher.FetchObservations(ctx, tm1, tm2)
	metrics.ObserveKMAFetch("observation", err)
	if err != nil {
		return 0, fmt.Errorf("fetching observations %s-%s: %w", tm1, tm2, err)
	}

	observations, parseErrs := kma.ParseObservations(body)
	for _, perr := range parseErrs {
		s.logger.Warn().Err(perr).Msg("skipping observation row")
	}

	saved := 0
	for _, obs := range observations {
		points := toMeasurements(obs)
		if len(points) == 0 {
			continue
		}
		err := s.repo.SaveAll(ctx, points)
		metrics.ObserveWrite(len(points), err)
		if err != nil {
			return saved, fmt.Errorf("storing observation %s: %w", obs.Time.Format(time.RFC3339), err)
		}
		saved++
	}

	s.logger.Info().Str("tm1", tm1).Str("tm2", tm2).Int("saved", saved).Msg("observations stored")
	return saved, nil
}

func toMeasurements(obs kma.Observation) []models.SensorMeasurement {
	points := make([]models.SensorMeasurement, 0, len(observationSensors))
	for _, sensor := range observationSensors {
		v, ok := obs.Values[sensor]
		if !ok || math.IsNaN(v) {
			continue
		}
		points = append(points, models.SensorMeasurement{
			SensorName: sensor,
			Station:    obs.Station,
			Value:      v,
			Time:       obs.Time,
		})
	}
	return points
}

// Backfill loads the last days days, one request per day, ending at now.
func (s *ObservationService) Backfill(ctx context.Context, now time.Time, days int) (int, error) {
	total := 0
	for d := days; d > 0; d-- {
		from := now.Add(-time.Duration(d) * 24 * time.Hour)
		to := from.Add(24 * time.Hour)
		n, err := s.FetchAndStore(ctx, utils.FormatKMATime(from), utils.FormatKMATime(to))
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Schedule registers a run at ten past every hour KST fetching the preceding hour.
func (s *ObservationService) Schedule(sched *Scheduler) error {
	return sched.Add("observation", ObservationSchedule, func(ctx context.Context, now time.Time) error {
		_, err := s.FetchAndStore(ctx, utils.FormatKMATime(now.Add(-time.Hour)), utils.FormatKMATime(now))
		return err
	})
}

package service

import (
	"context"
	"fmt"
	"time"

	"StationData.influxDB/internal/kma"
	"StationData.influxDB/internal/metrics"
	"StationData.influxDB/internal/repository"
	"StationData.influxDB/internal/utils"
	"github.com/rs/zerolog"
)

const forecastWindow = 6 * time.Hour

// ForecastFetcher retrieves forecast overview rows issued in [tmf1, tmf2].
type ForecastFetcher interface {
	FetchForecastSummaries(ctx context.Context, tmf1, tmf2 string) ([]kma.ForecastRow, error)
}

// ForecastService copies KMA forecast overviews into the relational store.
type ForecastService struct {
	fetcher ForecastFetcher
	store   repository.ForecastSummaryStore
	logger  zerolog.Logger
}

func NewForecastService(fetcher ForecastFetcher, store repository.ForecastSummaryStore, logger zerolog.Logger) *ForecastService {
	return &ForecastService{
		fetcher: fetcher,
		store:   store,
		logger:  logger.With().Str("component", "forecast_service").Logger(),
	}
}

// FetchAndSave fetches the overviews issued in [tmf1, tmf2] and upserts each
// one. Rows that cannot be converted are logged and skipped; a failed upsert
// aborts the run. It returns the number of rows stored.
func (s *ForecastService) FetchAndSave(ctx context.Context, tmf1, tmf2 string) (int, error) {
	rows, err := s.fetcher.FetchForecastSummaries(ctx, tmf1, tmf2)
	metrics.ObserveKMAFetch("forecast", err)
	if err != nil {
		return 0, fmt.Errorf("fetching forecasts %s-%s: %w", tmf1, tmf2, err)
	}

	saved := 0
	for i, row := range rows {
		fs, err := row.ToForecastSummary()
		if err != nil {
			s.logger.Warn().Err(err).Int("row", i).Msg("skipping forecast row")
			continue
		}
		err = s.store.Upsert(ctx, fs)
		metrics.ObserveForecastUpsert(err)
		if err != nil {
			return saved, fmt.Errorf("storing forecast %s/%d: %w", fs.TmFc.Format(time.RFC3339), fs.StnID, err)
		}
		saved++
	}

	s.logger.Info().Str("tmf1", tmf1).Str("tmf2", tmf2).Int("saved", saved).Msg("forecasts stored")
	return saved, nil
}

// Schedule registers a run at 00, 06, 12 and 18 KST fetching the preceding six hours.
func (s *ForecastService) Schedule(sched *Scheduler) error {
	return sched.Add("forecast", ForecastSchedule, func(ctx context.Context, now time.Time) error {
		_, err := s.FetchAndSave(ctx, utils.FormatKMATime(now.Add(-forecastWindow)), utils.FormatKMATime(now))
		return err
	})
}

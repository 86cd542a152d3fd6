package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"StationData.influxDB/internal/kma"
	"StationData.influxDB/internal/models"
	"StationData.influxDB/internal/utils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu       sync.Mutex
	saved    [][]models.SensorMeasurement
	rows     map[string][]models.SensorMeasurement
	calls    []string
	queryErr error
	saveErr  error
}

func (f *fakeRepo) Save(ctx context.Context, m models.SensorMeasurement) error {
	return f.SaveAll(ctx, []models.SensorMeasurement{m})
}

func (f *fakeRepo) SaveAll(_ context.Context, ms []models.SensorMeasurement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, ms)
	return nil
}

func (f *fakeRepo) record(call, sensor string) ([]models.SensorMeasurement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if sensor == "" {
		var all []models.SensorMeasurement
		for _, rows := range f.rows {
			all = append(all, rows...)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].SensorName < all[j].SensorName })
		return all, nil
	}
	return f.rows[sensor], nil
}

func (f *fakeRepo) FindBySensorIDWithin(_ context.Context, _ string, sensorName string, _ int64) ([]models.SensorMeasurement, error) {
	return f.record("within", sensorName)
}

func (f *fakeRepo) FindAll(context.Context, string) ([]models.SensorMeasurement, error) {
	return f.record("all", "")
}

func (f *fakeRepo) FindAllWithin(context.Context, string, int64) ([]models.SensorMeasurement, error) {
	return f.record("all_within", "")
}

func (f *fakeRepo) FindBySensorIDBetween(_ context.Context, _ string, sensorName string, _, _ time.Time) ([]models.SensorMeasurement, error) {
	return f.record("between", sensorName)
}

func testCatalog(t *testing.T) *StaticCatalog {
	t.Helper()
	sensors, err := SeedSensors()
	require.NoError(t, err)
	return NewStaticCatalog(sensors)
}

func TestSeedSensors(t *testing.T) {
	sensors, err := SeedSensors()
	require.NoError(t, err)
	require.Len(t, sensors, 5)

	names := make([]string, 0, len(sensors))
	for _, s := range sensors {
		names = append(names, s.Name)
		assert.Equal(t, "STN_108", s.Location)
	}
	assert.ElementsMatch(t, []string{"temperature", "wind_speed", "wind_dir", "pressure", "rainfall"}, names)
	assert.Equal(t, int64(1), sensors[0].ID)

	_, err = parseSeed([]byte("sensors:\n  - unit: mm\n"))
	assert.Error(t, err)
}

type recordingWriter struct{ names []string }

func (w *recordingWriter) CreateIfNotExists(_ context.Context, name, _, _ string) error {
	w.names = append(w.names, name)
	return nil
}

func TestSeedSensorCatalog(t *testing.T) {
	w := &recordingWriter{}
	require.NoError(t, SeedSensorCatalog(context.Background(), w, zerolog.Nop()))
	assert.Len(t, w.names, 5)
}

func TestSaveMeasurement(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewMeasurementService(repo, testCatalog(t), "my-bucket", zerolog.Nop())
	fixed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	value := 21.5
	m, err := svc.SaveMeasurement(context.Background(), models.SensorMeasurementRequest{SensorID: 1, Value: &value})
	require.NoError(t, err)

	assert.Equal(t, "temperature", m.SensorName)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, models.SensorMeasurement{SensorName: "temperature", SensorID: 1, Value: 21.5, Time: fixed}, repo.saved[0][0])
}

func TestSaveMeasurement_Errors(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewMeasurementService(repo, testCatalog(t), "my-bucket", zerolog.Nop())
	value := 1.0

	_, err := svc.SaveMeasurement(context.Background(), models.SensorMeasurementRequest{SensorID: 99, Value: &value})
	assert.ErrorIs(t, err, ErrSensorNotFound)

	_, err = svc.SaveMeasurement(context.Background(), models.SensorMeasurementRequest{SensorID: 1})
	assert.ErrorIs(t, err, ErrInvalidValue)

	boom := errors.New("write refused")
	repo.saveErr = boom
	_, err = svc.SaveMeasurement(context.Background(), models.SensorMeasurementRequest{SensorID: 1, Value: &value})
	assert.ErrorIs(t, err, boom)
}

func TestGetMeasurements(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := &fakeRepo{rows: map[string][]models.SensorMeasurement{
		"wind_speed": {{SensorName: "wind_speed", Value: 2.1, Time: ts}},
	}}
	svc := NewMeasurementService(repo, testCatalog(t), "my-bucket", zerolog.Nop())

	got, err := svc.GetMeasurements(context.Background(), 2, 3600)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].SensorID)
	assert.Equal(t, int64(2), *got[0].SensorID)
	assert.Equal(t, 2.1, got[0].Value)
	assert.Equal(t, ts, got[0].SensingDate)

	got, err = svc.GetMeasurementsByName(context.Background(), "wind_speed", 3600)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = svc.GetMeasurementsByName(context.Background(), "humidity", 3600)
	assert.ErrorIs(t, err, ErrSensorNotFound)
	assert.Equal(t, []string{"within", "within"}, repo.calls)
}

func TestGetAllMeasurements_AttachesCatalogIDs(t *testing.T) {
	repo := &fakeRepo{rows: map[string][]models.SensorMeasurement{
		"pressure": {{SensorName: "pressure", Value: 1013}},
		"legacy":   {{SensorName: "legacy", Value: 1}},
	}}
	svc := NewMeasurementService(repo, testCatalog(t), "my-bucket", zerolog.Nop())

	got, err := svc.GetAllMeasurements(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "legacy", got[0].SensorName)
	assert.Nil(t, got[0].SensorID)
	require.NotNil(t, got[1].SensorID)
	assert.Equal(t, int64(4), *got[1].SensorID)

	_, err = svc.GetAllMeasurementsWithin(context.Background(), 60)
	require.NoError(t, err)
	assert.Equal(t, []string{"all", "all_within"}, repo.calls)
}

func TestGetMeasurementsBetween_PropagatesQueryError(t *testing.T) {
	boom := errors.New("engine down")
	svc := NewMeasurementService(&fakeRepo{queryErr: boom}, testCatalog(t), "my-bucket", zerolog.Nop())

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.GetMeasurementsBetween(context.Background(), "temperature", start, start.Add(time.Hour))
	assert.ErrorIs(t, err, boom)
}

func TestGetMeasurementsGroupedBySensor(t *testing.T) {
	repo := &fakeRepo{rows: map[string][]models.SensorMeasurement{
		"temperature": {{SensorName: "temperature", Value: 4.5}, {SensorName: "temperature", Value: 4.7}},
		"rainfall":    {{SensorName: "rainfall", Value: 0}},
	}}
	svc := NewMeasurementService(repo, testCatalog(t), "my-bucket", zerolog.Nop())

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	grouped, err := svc.GetMeasurementsGroupedBySensor(context.Background(), start, start.Add(time.Hour))
	require.NoError(t, err)

	assert.Len(t, grouped, 5)
	assert.Len(t, grouped["temperature"], 2)
	assert.Len(t, grouped["rainfall"], 1)
	assert.Empty(t, grouped["pressure"])
	assert.Len(t, repo.calls, 5)

	repo.queryErr = errors.New("engine down")
	_, err = svc.GetMeasurementsGroupedBySensor(context.Background(), start, start.Add(time.Hour))
	assert.Error(t, err)
}

type fakeForecastFetcher struct {
	rows []kma.ForecastRow
	err  error
	args []string
}

func (f *fakeForecastFetcher) FetchForecastSummaries(_ context.Context, tmf1, tmf2 string) ([]kma.ForecastRow, error) {
	f.args = []string{tmf1, tmf2}
	return f.rows, f.err
}

type fakeForecastStore struct {
	upserted []models.ForecastSummary
	err      error
}

func (s *fakeForecastStore) Upsert(_ context.Context, fs models.ForecastSummary) error {
	if s.err != nil {
		return s.err
	}
	s.upserted = append(s.upserted, fs)
	return nil
}

func (s *fakeForecastStore) FindByStationAndIssuedBetween(context.Context, int, time.Time, time.Time) ([]models.ForecastSummary, error) {
	return s.upserted, nil
}

func TestForecastFetchAndSave(t *testing.T) {
	fetcher := &fakeForecastFetcher{rows: []kma.ForecastRow{
		{"stn_id": 108.0, "tm_fc": "2024.03.01.05:00", "wf_sv1": "맑음"},
		{"stn_id": 108.0},
		{"stn_id": 108.0, "tm_fc": "2024.03.01.11:00"},
	}}
	store := &fakeForecastStore{}
	svc := NewForecastService(fetcher, store, zerolog.Nop())

	n, err := svc.FetchAndSave(context.Background(), "202403010000", "202403010600")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "the row without tm_fc is skipped")
	assert.Equal(t, []string{"202403010000", "202403010600"}, fetcher.args)
	require.Len(t, store.upserted, 2)
	assert.Equal(t, 108, store.upserted[0].StnID)
}

func TestForecastFetchAndSave_Errors(t *testing.T) {
	boom := errors.New("upstream 500")
	svc := NewForecastService(&fakeForecastFetcher{err: boom}, &fakeForecastStore{}, zerolog.Nop())
	_, err := svc.FetchAndSave(context.Background(), "1", "2")
	assert.ErrorIs(t, err, boom)

	dbErr := errors.New("db gone")
	svc = NewForecastService(&fakeForecastFetcher{rows: []kma.ForecastRow{{"stn_id": 108.0, "tm_fc": "2024.03.01.05:00"}}},
		&fakeForecastStore{err: dbErr}, zerolog.Nop())
	n, err := svc.FetchAndSave(context.Background(), "1", "2")
	assert.ErrorIs(t, err, dbErr)
	assert.Zero(t, n)
}

type fakeObservationFetcher struct {
	body  string
	calls [][2]string
}

func (f *fakeObservationFetcher) FetchObservations(_ context.Context, tm1, tm2 string) (string, error) {
	f.calls = append(f.calls, [2]string{tm1, tm2})
	return f.body, nil
}

func TestObservationFetchAndStore(t *testing.T) {
	fetcher := &fakeObservationFetcher{body: `#START7777
202403010900 108  20  2.1  -9 -9.0   -9 1016.2 1026.9 -9  -9.0   4.5  -3.1  58.0   4.9   0.0
202403011000 108  18  2.6  -9 -9.0   -9 1015.8 1026.4 -9  -9.0   x.x  -2.9  50.0   5.0   0.0
#7777END`}
	repo := &fakeRepo{}
	svc := NewObservationService(fetcher, repo, zerolog.Nop())

	n, err := svc.FetchAndStore(context.Background(), "202403010900", "202403011000")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, repo.saved, 2)
	first := repo.saved[0]
	require.Len(t, first, 5)
	assert.Equal(t, "wind_dir", first[0].SensorName)
	assert.Equal(t, "108", first[0].Station)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), first[0].Time.UTC())
	assert.Len(t, repo.saved[1], 4, "the unparsable temperature is not written")
}

func TestObservationBackfill(t *testing.T) {
	fetcher := &fakeObservationFetcher{}
	svc := NewObservationService(fetcher, &fakeRepo{}, zerolog.Nop())

	now := time.Date(2024, 3, 3, 12, 0, 0, 0, utils.Seoul)
	_, err := svc.Backfill(context.Background(), now, 2)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{
		{"202403011200", "202403021200"},
		{"202403021200", "202403031200"},
	}, fetcher.calls)
}

func TestScheduleNextRuns(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2024, 3, 1, h, m, 0, 0, utils.Seoul) }

	sched := NewScheduler(zerolog.Nop())
	require.NoError(t, NewForecastService(&fakeForecastFetcher{}, &fakeForecastStore{}, zerolog.Nop()).Schedule(sched))
	require.NoError(t, NewObservationService(&fakeObservationFetcher{}, &fakeRepo{}, zerolog.Nop()).Schedule(sched))

	assert.Equal(t, at(6, 0), sched.Next("forecast", at(0, 0)))
	assert.Equal(t, at(12, 0), sched.Next("forecast", at(7, 59)))
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, utils.Seoul), sched.Next("forecast", at(18, 30)))
	assert.True(t, at(6, 0).Equal(sched.Next("forecast", at(0, 0).UTC())), "UTC input is read as Seoul time")

	assert.Equal(t, at(9, 10), sched.Next("observation", at(9, 0)))
	assert.Equal(t, at(10, 10), sched.Next("observation", at(9, 10)))
	assert.Equal(t, at(10, 10), sched.Next("observation", at(9, 45)))

	assert.True(t, sched.Next("unknown", at(0, 0)).IsZero())
	assert.Error(t, sched.Add("bad", "not a spec", func(context.Context, time.Time) error { return nil }))
}

func TestScheduledRunWindows(t *testing.T) {
	forecasts := &fakeForecastFetcher{}
	observations := &fakeObservationFetcher{}

	sched := NewScheduler(zerolog.Nop())
	sched.now = func() time.Time { return time.Date(2024, 3, 1, 12, 10, 42, 0, utils.Seoul) }
	require.NoError(t, NewForecastService(forecasts, &fakeForecastStore{}, zerolog.Nop()).Schedule(sched))
	require.NoError(t, NewObservationService(observations, &fakeRepo{}, zerolog.Nop()).Schedule(sched))

	sched.cron.Entry(sched.ids["forecast"]).Job.Run()
	sched.cron.Entry(sched.ids["observation"]).Job.Run()

	assert.Equal(t, []string{"202403010610", "202403011210"}, forecasts.args)
	assert.Equal(t, [][2]string{{"202403011110", "202403011210"}}, observations.calls)
}

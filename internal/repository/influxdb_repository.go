package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"StationData.influxDB/internal/models"
	"StationData.influxDB/internal/query"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

var (
	ErrWriteFailed = errors.New("influxdb write failed")
	ErrQueryFailed = errors.New("influxdb query failed")
)

// MeasurementRepository reads and writes sensor measurements.
type MeasurementRepository interface {
	Save(ctx context.Context, m models.SensorMeasurement) error
	SaveAll(ctx context.Context, ms []models.SensorMeasurement) error
	FindBySensorIDWithin(ctx context.Context, bucket, sensorName string, durationSeconds int64) ([]models.SensorMeasurement, error)
	FindAll(ctx context.Context, bucket string) ([]models.SensorMeasurement, error)
	FindAllWithin(ctx context.Context, bucket string, durationSeconds int64) ([]models.SensorMeasurement, error)
	FindBySensorIDBetween(ctx context.Context, bucket, sensorName string, start, end time.Time) ([]models.SensorMeasurement, error)
}

// BucketRepository manages InfluxDB buckets.
type BucketRepository interface {
	BucketExists(ctx context.Context, name string) (bool, error)
	CreateBucket(ctx context.Context, name string) error
	ListBuckets(ctx context.Context) ([]string, error)
}

var systemBuckets = map[string]bool{
	"_internal":   true,
	"_monitoring": true,
	"_tasks":      true,
}

// InfluxDBRepository implements MeasurementRepository and BucketRepository.
// It holds only the client handle and is safe for concurrent use.
type InfluxDBRepository struct {
	client influxdb2.Client
	org    string
	bucket string
}

// NewInfluxDBRepository creates a repository writing to bucket within org.
// The client's write precision should be milliseconds (see config.InitInfluxClient).
func NewInfluxDBRepository(client influxdb2.Client, org, bucket string) *InfluxDBRepository {
	return &InfluxDBRepository{
		client: client,
		org:    org,
		bucket: bucket,
	}
}

// Save writes one point to the default bucket.
func (r *InfluxDBRepository) Save(ctx context.Context, m models.SensorMeasurement) error {
	return r.SaveAll(ctx, []models.SensorMeasurement{m})
}

// SaveAll writes the points in a single blocking request. Nothing is retried.
func (r *InfluxDBRepository) SaveAll(ctx context.Context, ms []models.SensorMeasurement) error {
	if len(ms) == 0 {
		return nil
	}
	points := make([]*write.Point, 0, len(ms))
	for _, m := range ms {
		if err := query.RequireIdentifier("sensor name", m.SensorName); err != nil {
			return err
		}
		points = append(points, toPoint(m))
	}

	writeAPI := r.client.WriteAPIBlocking(r.org, r.bucket)
	if err := writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

func toPoint(m models.SensorMeasurement) *write.Point {
	tags := map[string]string{query.SensorTag: m.SensorName}
	if m.Station != "" {
		tags[query.StationTag] = m.Station
	}
	ts := m.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return influxdb2.NewPoint(
		query.MeasurementName,
		tags,
		map[string]interface{}{query.ValueField: m.Value},
		ts.UTC().Truncate(models.WritePrecision),
	)
}

// FindBySensorIDWithin returns one sensor's points from the last durationSeconds.
func (r *InfluxDBRepository) FindBySensorIDWithin(ctx context.Context, bucket, sensorName string, durationSeconds int64) ([]models.SensorMeasurement, error) {
	flux, err := query.BuildRangeQuery(bucket, sensorName, durationSeconds)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, flux)
}

// FindAll returns every point in bucket. Unbounded; meant for small buckets.
func (r *InfluxDBRepository) FindAll(ctx context.Context, bucket string) ([]models.SensorMeasurement, error) {
	flux, err := query.BuildAllQuery(bucket)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, flux)
}

// FindAllWithin returns every sensor's points from the last durationSeconds.
func (r *InfluxDBRepository) FindAllWithin(ctx context.Context, bucket string, durationSeconds int64) ([]models.SensorMeasurement, error) {
	flux, err := query.BuildAllWithinQuery(bucket, durationSeconds)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, flux)
}

// FindBySensorIDBetween returns one sensor's points in [start, end).
func (r *InfluxDBRepository) FindBySensorIDBetween(ctx context.Context, bucket, sensorName string, start, end time.Time) ([]models.SensorMeasurement, error) {
	flux, err := query.BuildBetweenQuery(bucket, sensorName, start, end)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, flux)
}

// run executes flux and maps rows in the order InfluxDB returns them.
func (r *InfluxDBRepository) run(ctx context.Context, flux string) ([]models.SensorMeasurement, error) {
	result, err := r.client.QueryAPI(r.org).Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer result.Close()

	measurements := []models.SensorMeasurement{}
	for result.Next() {
		record := result.Record()

		m := models.SensorMeasurement{Time: record.Time()}
		if sensor, ok := record.ValueByKey(query.SensorTag).(string); ok {
			m.SensorName = sensor
		}
		if station, ok := record.ValueByKey(query.StationTag).(string); ok {
			m.Station = station
		}
		switch v := record.Value().(type) {
		case float64:
			m.Value = v
		case int64:
			m.Value = float64(v)
		case uint64:
			m.Value = float64(v)
		default:
			return nil, fmt.Errorf("%w: unexpected _value type %T", ErrQueryFailed, v)
		}
		measurements = append(measurements, m)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, result.Err())
	}
	return measurements, nil
}

// BucketExists checks if a bucket exists in InfluxDB.
func (r *InfluxDBRepository) BucketExists(ctx context.Context, name string) (bool, error) {
	_, err := r.client.BucketsAPI().FindBucketByName(ctx, name)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return false, nil
		}
		return false, fmt.Errorf("error checking bucket existence: %w", err)
	}
	return true, nil
}

// CreateBucket creates a bucket in the repository's organization.
func (r *InfluxDBRepository) CreateBucket(ctx context.Context, name string) error {
	org, err := r.client.OrganizationsAPI().FindOrganizationByName(ctx, r.org)
	if err != nil {
		return fmt.Errorf("finding organization %q: %w", r.org, err)
	}
	if org == nil {
		return fmt.Errorf("organization %q not found", r.org)
	}

	if _, err := r.client.BucketsAPI().CreateBucketWithName(ctx, org, name); err != nil {
		return fmt.Errorf("creating bucket %q: %w", name, err)
	}
	return nil
}

// EnsureBucket creates the default bucket when it is missing.
func (r *InfluxDBRepository) EnsureBucket(ctx context.Context) (bool, error) {
	exists, err := r.BucketExists(ctx, r.bucket)
	if err != nil || exists {
		return false, err
	}
	if err := r.CreateBucket(ctx, r.bucket); err != nil {
		return false, err
	}
	return true, nil
}

// ListBuckets returns bucket names, system buckets excluded.
func (r *InfluxDBRepository) ListBuckets(ctx context.Context) ([]string, error) {
	buckets, err := r.client.BucketsAPI().GetBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing buckets: %w", err)
	}

	names := []string{}
	if buckets == nil {
		return names, nil
	}
	for _, bucket := range *buckets {
		if !systemBuckets[bucket.Name] {
			names = append(names, bucket.Name)
		}
	}
	return names, nil
}

// DefaultBucket is the bucket Save writes to.
func (r *InfluxDBRepository) DefaultBucket() string {
	return r.bucket
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"StationData.influxDB/internal/models"
)

// SensorCatalog resolves numeric sensor ids to the tag values stored in InfluxDB.
type SensorCatalog interface {
	FindByID(ctx context.Context, id int64) (*models.Sensor, error)
	FindByName(ctx context.Context, name string) (*models.Sensor, error)
	FindAll(ctx context.Context) ([]models.Sensor, error)
}

// SensorRepository is a Postgres implementation of SensorCatalog.
type SensorRepository struct {
	db DBTX
}

// NewSensorRepository constructs a repository.
func NewSensorRepository(db DBTX) *SensorRepository {
	return &SensorRepository{db: db}
}

// FindByID returns nil, nil when no sensor has the id.
func (r *SensorRepository) FindByID(ctx context.Context, id int64) (*models.Sensor, error) {
	return r.findOne(ctx, `SELECT id, name, unit, location FROM sensors WHERE id = $1`, id)
}

// FindByName returns nil, nil when no sensor has the name.
func (r *SensorRepository) FindByName(ctx context.Context, name string) (*models.Sensor, error) {
	return r.findOne(ctx, `SELECT id, name, unit, location FROM sensors WHERE name = $1`, name)
}

func (r *SensorRepository) findOne(ctx context.Context, query string, arg any) (*models.Sensor, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sensor repo: nil db")
	}
	var s models.Sensor
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&s.ID, &s.Name, &s.Unit, &s.Location); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sensor repo: %w", err)
	}
	return &s, nil
}

// FindAll lists every sensor ordered by id.
func (r *SensorRepository) FindAll(ctx context.Context) ([]models.Sensor, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sensor repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, unit, location FROM sensors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sensor repo: %w", err)
	}
	defer rows.Close()

	var sensors []models.Sensor
	for rows.Next() {
		var s models.Sensor
		if err := rows.Scan(&s.ID, &s.Name, &s.Unit, &s.Location); err != nil {
			return nil, fmt.Errorf("sensor repo: scan: %w", err)
		}
		sensors = append(sensors, s)
	}
	return sensors, rows.Err()
}

// CreateIfNotExists inserts the sensor unless the name is already taken.
func (r *SensorRepository) CreateIfNotExists(ctx context.Context, name, unit, location string) error {
	if r == nil || r.db == nil {
		return errors.New("sensor repo: nil db")
	}
	if name == "" {
		return errors.New("sensor repo: empty name")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sensors (name, unit, location)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO NOTHING`, name, unit, location)
	if err != nil {
		return fmt.Errorf("sensor repo: insert: %w", err)
	}
	return nil
}

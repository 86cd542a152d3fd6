package service

import (
	"context"
	_ "embed"
	"fmt"

	"StationData.influxDB/internal/models"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

//go:embed sensors.yaml
var seedFile []byte

type seedDocument struct {
	Location string `yaml:"location"`
	Sensors  []struct {
		Name     string `yaml:"name"`
		Unit     string `yaml:"unit"`
		Location string `yaml:"location"`
	} `yaml:"sensors"`
}

// SeedSensors returns the built-in sensor list, numbered from 1 in file order.
func SeedSensors() ([]models.Sensor, error) {
	return parseSeed(seedFile)
}

func parseSeed(raw []byte) ([]models.Sensor, error) {
	var doc seedDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding sensor seed: %w", err)
	}
	sensors := make([]models.Sensor, 0, len(doc.Sensors))
	for i, s := range doc.Sensors {
		if s.Name == "" {
			return nil, fmt.Errorf("sensor seed entry %d has no name", i)
		}
		location := s.Location
		if location == "" {
			location = doc.Location
		}
		sensors = append(sensors, models.Sensor{
			ID:       int64(i + 1),
			Name:     s.Name,
			Unit:     s.Unit,
			Location: location,
		})
	}
	return sensors, nil
}

// SensorWriter registers sensors that are not yet known.
type SensorWriter interface {
	CreateIfNotExists(ctx context.Context, name, unit, location string) error
}

// SeedSensorCatalog registers the built-in sensors. Existing names are left alone.
func SeedSensorCatalog(ctx context.Context, w SensorWriter, logger zerolog.Logger) error {
	sensors, err := SeedSensors()
	if err != nil {
		return err
	}
	for _, s := range sensors {
		if err := w.CreateIfNotExists(ctx, s.Name, s.Unit, s.Location); err != nil {
			return fmt.Errorf("seeding sensor %s: %w", s.Name, err)
		}
	}
	logger.Info().Int("sensors", len(sensors)).Msg("sensor catalogue seeded")
	return nil
}

// StaticCatalog serves a fixed sensor list. Used when no database is configured.
type StaticCatalog struct {
	sensors []models.Sensor
}

func NewStaticCatalog(sensors []models.Sensor) *StaticCatalog {
	return &StaticCatalog{sensors: sensors}
}

func (c *StaticCatalog) FindByID(_ context.Context, id int64) (*models.Sensor, error) {
	for i := range c.sensors {
		if c.sensors[i].ID == id {
			s := c.sensors[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (c *StaticCatalog) FindByName(_ context.Context, name string) (*models.Sensor, error) {
	for i := range c.sensors {
		if c.sensors[i].Name == name {
			s := c.sensors[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (c *StaticCatalog) FindAll(context.Context) ([]models.Sensor, error) {
	out := make([]models.Sensor, len(c.sensors))
	copy(out, c.sensors)
	return out, nil
}

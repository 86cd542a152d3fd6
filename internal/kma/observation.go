package kma

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"StationData.influxDB/internal/utils"
)

// Sensor names written for each observation row.
const (
	SensorWindDir     = "wind_dir"
	SensorWindSpeed   = "wind_speed"
	SensorPressure    = "pressure"
	SensorTemperature = "temperature"
	SensorRainfall    = "rainfall"
)

// column positions in the kma_sfctm3 table
const (
	colTime        = 0
	colStation     = 1
	colWindDir     = 2
	colWindSpeed   = 3
	colPressure    = 7
	colTemperature = 11
	colRainfall    = 15
)

// Observation is one row of the hourly surface observation table.
type Observation struct {
	Time    time.Time
	Station string
	Values  map[string]float64 // sensor name -> value, NaN when unparsable
}

// ParseObservations parses every non-comment row. Rows that cannot be
// parsed are reported in errs and skipped.
func ParseObservations(body string) (obs []Observation, errs []error) {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) <= colRainfall {
			errs = append(errs, fmt.Errorf("short observation row (%d columns): %q", len(parts), line))
			continue
		}
		ts, err := utils.ParseKMATime(parts[colTime])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		obs = append(obs, Observation{
			Time:    ts,
			Station: parts[colStation],
			Values: map[string]float64{
				SensorWindDir:     parseFloat(parts[colWindDir]),
				SensorWindSpeed:   parseFloat(parts[colWindSpeed]),
				SensorPressure:    parseFloat(parts[colPressure]),
				SensorTemperature: parseFloat(parts[colTemperature]),
				SensorRainfall:    parseFloat(parts[colRainfall]),
			},
		})
	}
	return obs, errs
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Package query builds the Flux queries sent to InfluxDB.
//
// Every externally supplied string that ends up inside a Flux string literal
// goes through EscapeForQueryText. Nothing else in the module may assemble
// Flux text; the repository only executes what this package returns.
package query

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	MeasurementName = "sensor_data"
	SensorTag       = "sensor"
	StationTag      = "station"
	ValueField      = "value"

	// DisplayShift moves UTC timestamps into KST on the way out. Stored
	// points are never shifted.
	DisplayShift = 9 * time.Hour
)

// ErrInvalidArgument is returned when a required identifier is empty.
var ErrInvalidArgument = errors.New("invalid argument")

var fluxEscaper = strings.NewReplacer("${", `\${`)

// EscapeForQueryText makes raw safe to embed between double quotes in a
// Flux string literal. Backslashes are escaped first so the escapes added
// for quotes are not escaped a second time.
func EscapeForQueryText(raw string) string {
	s := strings.ReplaceAll(raw, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return fluxEscaper.Replace(s)
}

// BuildRangeQuery selects the value field of one sensor over the last
// durationSeconds seconds. A duration <= 0 yields a now-to-now range.
func BuildRangeQuery(bucket, sensorName string, durationSeconds int64) (string, error) {
	if err := RequireIdentifier("bucket", bucket); err != nil {
		return "", err
	}
	if err := RequireIdentifier("sensor name", sensorName); err != nil {
		return "", err
	}

	return fmt.Sprintf(`from(bucket: "%s")
  |> range(start: %s)
  |> filter(fn: (r) => r["_measurement"] == "%s")
  |> filter(fn: (r) => r["%s"] == "%s")
  |> filter(fn: (r) => r["_field"] == "%s")
  |> timeShift(duration: %s)`,
		bucket, relativeStart(durationSeconds), MeasurementName,
		SensorTag, EscapeForQueryText(sensorName), ValueField, displayShift()), nil
}

// BuildAllQuery selects every sensor's values from the epoch until now.
func BuildAllQuery(bucket string) (string, error) {
	if err := RequireIdentifier("bucket", bucket); err != nil {
		return "", err
	}

	return fmt.Sprintf(`from(bucket: "%s")
  |> range(start: 0)
  |> filter(fn: (r) => r["_measurement"] == "%s")
  |> filter(fn: (r) => r["_field"] == "%s")
  |> timeShift(duration: %s)`,
		bucket, MeasurementName, ValueField, displayShift()), nil
}

// BuildAllWithinQuery is BuildRangeQuery without the sensor filter.
func BuildAllWithinQuery(bucket string, durationSeconds int64) (string, error) {
	if err := RequireIdentifier("bucket", bucket); err != nil {
		return "", err
	}

	return fmt.Sprintf(`from(bucket: "%s")
  |> range(start: %s)
  |> filter(fn: (r) => r["_measurement"] == "%s")
  |> filter(fn: (r) => r["_field"] == "%s")
  |> timeShift(duration: %s)`,
		bucket, relativeStart(durationSeconds), MeasurementName, ValueField, displayShift()), nil
}

// BuildBetweenQuery selects one sensor's values in [start, end). Ordering
// of start and end is not checked; an inverted range is left to the engine.
func BuildBetweenQuery(bucket, sensorName string, start, end time.Time) (string, error) {
	if err := RequireIdentifier("bucket", bucket); err != nil {
		return "", err
	}
	if err := RequireIdentifier("sensor name", sensorName); err != nil {
		return "", err
	}

	return fmt.Sprintf(`from(bucket: "%s")
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r["_measurement"] == "%s")
  |> filter(fn: (r) => r["%s"] == "%s")
  |> filter(fn: (r) => r["_field"] == "%s")
  |> timeShift(duration: %s)`,
		bucket, FormatInstant(start), FormatInstant(end), MeasurementName,
		SensorTag, EscapeForQueryText(sensorName), ValueField, displayShift()), nil
}

// FormatInstant renders t as a Flux time literal.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func relativeStart(durationSeconds int64) string {
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	return fmt.Sprintf("-%ds", durationSeconds)
}

func displayShift() string {
	return fmt.Sprintf("%dh", int(DisplayShift/time.Hour))
}

// RequireIdentifier rejects empty or whitespace-only identifiers with ErrInvalidArgument.
func RequireIdentifier(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidArgument, name)
	}
	return nil
}

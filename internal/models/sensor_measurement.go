package models

import "time"

// SensorMeasurement is a single observation stored in InfluxDB under the
// sensor_data measurement. Timestamps read back from queries carry the
// +9h display shift; timestamps handed to Save are stored as given (UTC).
type SensorMeasurement struct {
	SensorName string    `json:"sensorName"`
	SensorID   int64     `json:"sensorId,omitempty"` // legacy numeric id from the sensors table
	Station    string    `json:"station,omitempty"`
	Value      float64   `json:"value"`
	Time       time.Time `json:"sensingDate"`
}

// WritePrecision is fixed for every point this service writes.
const WritePrecision = time.Millisecond

package models

import "time"

type SensorMeasurementRequest struct {
	SensorID int64    `json:"sensorId"`
	Value    *float64 `json:"value"`
}

type SensorMeasurementResponse struct {
	SensorID    *int64    `json:"sensorId"`
	SensorName  string    `json:"sensorName,omitempty"`
	Value       float64   `json:"value"`
	SensingDate time.Time `json:"sensingDate"`
}

// AdminResponse is the envelope every /api endpoint answers with.
type AdminResponse struct {
	Status  int `json:"status"`
	Payload any `json:"payload,omitempty"`
}

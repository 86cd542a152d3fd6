package models

// Sensor is a catalogue entry mapping a numeric id to the tag value used in InfluxDB.
type Sensor struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`     // e.g. temperature, wind_speed
	Unit     string `json:"unit"`     // e.g. ℃, m/s, hPa
	Location string `json:"location"` // station code, e.g. STN_108
}

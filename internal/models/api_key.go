package models

type APIKey struct {
	ID             int64
	Key            string
	Owner          string
	LimitPerMinute int
	Active         bool
}

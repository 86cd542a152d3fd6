package models

import "time"

// ForecastSummary is one KMA short-term forecast overview. (TmFc, StnID)
// is the natural key; every other column is overwritten on upsert.
type ForecastSummary struct {
	ID        int64      `json:"id,omitempty"`
	TmFc      time.Time  `json:"tmFc"`  // issue time
	StnID     int        `json:"stnId"` // issuing office
	TmIn      *time.Time `json:"tmIn,omitempty"`
	Cnt       *int       `json:"cnt,omitempty"`
	ManFc     *string    `json:"manFc,omitempty"`
	ManFcID   *string    `json:"manFcId,omitempty"`
	ManIn     *string    `json:"manIn,omitempty"`
	ManInID   *string    `json:"manInId,omitempty"`
	ManIP     *string    `json:"manIp,omitempty"`
	WfSv1     *string    `json:"wfSv1,omitempty"` // overview: today
	WfSv2     *string    `json:"wfSv2,omitempty"` // tomorrow
	WfSv3     *string    `json:"wfSv3,omitempty"` // day after tomorrow
	Wn        *string    `json:"wn,omitempty"`    // warnings in effect
	Wr        *string    `json:"wr,omitempty"`    // preliminary warnings
	Rem       *string    `json:"rem,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

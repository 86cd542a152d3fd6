package kma

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"StationData.influxDB/internal/models"
	"StationData.influxDB/internal/utils"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

const forecastTimeLayout = "2006.01.02.15:04"

var ErrNoForecastRows = errors.New("kma: no forecast rows")

// ForecastRow is one element of the fct_afs_ds array.
type ForecastRow map[string]any

// CleanResponse strips the #START7777 / #7777END envelope markers.
func CleanResponse(body string) string {
	body = strings.ReplaceAll(body, "#START7777", "")
	body = strings.ReplaceAll(body, "#7777END", "")
	return strings.TrimSpace(body)
}

// ParseForecastSummaries decodes the forecast overview payload. The API may
// emit object keys without quotes, so the body is read as JSON5.
func ParseForecastSummaries(body string) ([]ForecastRow, error) {
	var doc struct {
		Rows []ForecastRow `json:"fct_afs_ds"`
	}
	if err := json5.Unmarshal([]byte(CleanResponse(body)), &doc); err != nil {
		return nil, fmt.Errorf("kma: decode forecast: %w", err)
	}
	if len(doc.Rows) == 0 {
		return nil, ErrNoForecastRows
	}
	return doc.Rows, nil
}

// ToForecastSummary maps a row onto the relational model. tm_fc is KMA local time.
func (r ForecastRow) ToForecastSummary() (models.ForecastSummary, error) {
	stnID, ok := r.intValue("stn_id")
	if !ok {
		return models.ForecastSummary{}, errors.New("kma: forecast row without stn_id")
	}
	tmFcRaw, _ := r.stringValue("tm_fc")
	tmFc, err := time.ParseInLocation(forecastTimeLayout, tmFcRaw, utils.Seoul)
	if err != nil {
		return models.ForecastSummary{}, fmt.Errorf("kma: forecast tm_fc %q: %w", tmFcRaw, err)
	}

	fs := models.ForecastSummary{
		TmFc:    tmFc,
		StnID:   stnID,
		ManFc:   r.optString("man_fc"),
		ManFcID: r.optString("man_fc_id"),
		ManIn:   r.optString("man_in"),
		ManInID: r.optString("man_in_id"),
		ManIP:   r.optString("man_ip"),
		WfSv1:   r.optString("wf_sv1"),
		WfSv2:   r.optString("wf_sv2"),
		WfSv3:   r.optString("wf_sv3"),
		Wn:      r.optString("wn"),
		Wr:      r.optString("wr"),
		Rem:     r.optString("rem"),
	}
	if cnt, ok := r.intValue("cnt"); ok {
		fs.Cnt = &cnt
	}
	if raw, ok := r.stringValue("tm_in"); ok {
		if tmIn, err := time.ParseInLocation(forecastTimeLayout, raw, utils.Seoul); err == nil {
			fs.TmIn = &tmIn
		}
	}
	return fs, nil
}

func (r ForecastRow) stringValue(key string) (string, bool) {
	switch v := r[key].(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

func (r ForecastRow) optString(key string) *string {
	if v, ok := r.stringValue(key); ok {
		return &v
	}
	return nil
}

func (r ForecastRow) intValue(key string) (int, bool) {
	switch v := r[key].(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}

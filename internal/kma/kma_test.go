package kma

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const observationBody = `#START7777
# YYMMDDHHMI STN  WD   WS GST  GST  GST     PA     PS PT    PR    TA    TD    HM    PV     RN
#        KST  ID  16  m/s  WD   WS   TM    hPa    hPa  -   hPa     C     C     %   hPa     mm
202403010900 108  20  2.1  -9 -9.0   -9 1016.2 1026.9 -9  -9.0   4.5  -3.1  58.0   4.9   0.0
202403011000 108  18  2.6  -9 -9.0   -9 1015.8 1026.4 -9  -9.0   x.x  -2.9  50.0   5.0   0.0
202403011100 108
#7777END`

func TestParseObservations(t *testing.T) {
	obs, errs := ParseObservations(observationBody)

	require.Len(t, obs, 2)
	require.Len(t, errs, 1, "the truncated row is reported")

	first := obs[0]
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), first.Time.UTC())
	assert.Equal(t, "108", first.Station)
	assert.Equal(t, 20.0, first.Values[SensorWindDir])
	assert.Equal(t, 2.1, first.Values[SensorWindSpeed])
	assert.Equal(t, 1016.2, first.Values[SensorPressure])
	assert.Equal(t, 4.5, first.Values[SensorTemperature])
	assert.Equal(t, 0.0, first.Values[SensorRainfall])

	assert.True(t, math.IsNaN(obs[1].Values[SensorTemperature]))
}

func TestParseForecastSummaries_JSON(t *testing.T) {
	body := `#START7777
{"fct_afs_ds":[{"stn_id":108,"tm_fc":"2024.03.01.05:00","cnt":3,"man_fc":"Kim","wf_sv1":"맑음, 바람: 약함","wn":""}]}
#7777END`

	rows, err := ParseForecastSummaries(body)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	fs, err := rows[0].ToForecastSummary()
	require.NoError(t, err)
	assert.Equal(t, 108, fs.StnID)
	assert.Equal(t, time.Date(2024, 2, 29, 20, 0, 0, 0, time.UTC), fs.TmFc.UTC())
	require.NotNil(t, fs.Cnt)
	assert.Equal(t, 3, *fs.Cnt)
	require.NotNil(t, fs.WfSv1)
	assert.Equal(t, "맑음, 바람: 약함", *fs.WfSv1)
	require.NotNil(t, fs.Wn)
	assert.Equal(t, "", *fs.Wn)
	assert.Nil(t, fs.Rem)
}

func TestParseForecastSummaries_UnquotedKeys(t *testing.T) {
	body := `#START7777 {fct_afs_ds:[{stn_id:"108", tm_fc:"2024.03.01.17:00", wf_sv1:"구름 {많음}, rem:x", codes:[1,2,true]}]} #7777END`

	rows, err := ParseForecastSummaries(body)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	fs, err := rows[0].ToForecastSummary()
	require.NoError(t, err)
	assert.Equal(t, 108, fs.StnID)
	require.NotNil(t, fs.WfSv1)
	assert.Equal(t, "구름 {많음}, rem:x", *fs.WfSv1)
	assert.Nil(t, fs.Rem)
}

func TestParseForecastSummaries_Empty(t *testing.T) {
	_, err := ParseForecastSummaries(`#START7777 {"fct_afs_ds":[]} #7777END`)
	assert.True(t, errors.Is(err, ErrNoForecastRows))

	_, err = ParseForecastSummaries(`not json at all`)
	assert.Error(t, err)
}

func TestForecastRow_MissingKey(t *testing.T) {
	_, err := ForecastRow{"tm_fc": "2024.03.01.05:00"}.ToForecastSummary()
	assert.Error(t, err)

	_, err = ForecastRow{"stn_id": 108.0, "tm_fc": "2024-03-01"}.ToForecastSummary()
	assert.Error(t, err)
}

func TestClient_FetchObservations(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		_, _ = io.WriteString(w, observationBody)
	}))
	defer srv.Close()

	client := NewClient(Config{ObservationURL: srv.URL, AuthKey: "secret-key", Station: "108"})
	body, err := client.FetchObservations(context.Background(), "202403010900", "202403011100")
	require.NoError(t, err)

	assert.Contains(t, body, "202403010900 108")
	assert.Equal(t, client.Station(), gotQuery["stn"])
	assert.Equal(t, "202403010900", gotQuery["tm1"])
	assert.Equal(t, "202403011100", gotQuery["tm2"])
	assert.Equal(t, "secret-key", gotQuery["authKey"])
}

func TestClient_FetchForecastSummaries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("disp"))
		_, _ = io.WriteString(w, `#START7777 {"fct_afs_ds":[{"stn_id":108,"tm_fc":"2024.03.01.05:00"}]} #7777END`)
	}))
	defer srv.Close()

	client := NewClient(Config{ForecastURL: srv.URL, Station: "108"})
	rows, err := client.FetchForecastSummaries(context.Background(), "202403010000", "202403010600")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty" {
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(Config{ObservationURL: srv.URL + "/denied", AuthKey: "secret-key"})
	_, err := client.FetchObservations(context.Background(), "1", "2")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-key")

	client = NewClient(Config{ObservationURL: srv.URL + "/empty"})
	_, err = client.FetchObservations(context.Background(), "1", "2")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

package controller

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"StationData.influxDB/internal/models"
	"StationData.influxDB/internal/utils"
	"github.com/rs/zerolog"
)

var kmaTimeParam = regexp.MustCompile(`^\d{10,12}$`)

type ForecastFetcher interface {
	FetchAndSave(ctx context.Context, tmf1, tmf2 string) (int, error)
}

type ObservationFetcher interface {
	FetchAndStore(ctx context.Context, tm1, tm2 string) (int, error)
}

// KMAController triggers manual KMA ingests.
type KMAController struct {
	forecasts    ForecastFetcher
	observations ObservationFetcher
	logger       zerolog.Logger
}

func NewKMAController(forecasts ForecastFetcher, observations ObservationFetcher, logger zerolog.Logger) *KMAController {
	return &KMAController{
		forecasts:    forecasts,
		observations: observations,
		logger:       logger.With().Str("component", "kma_controller").Logger(),
	}
}

// FetchForecasts handles POST /api/forecast?tm1=&tm2=.
func (c *KMAController) FetchForecasts(w http.ResponseWriter, r *http.Request) {
	if c.forecasts == nil {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeServiceUnavailable, "forecast storage is not configured", nil, http.StatusServiceUnavailable))
		return
	}
	tm1, tm2, ok := kmaWindow(w, r)
	if !ok {
		return
	}
	c.logger.Info().Str("tm1", utils.Mask(tm1)).Str("tm2", utils.Mask(tm2)).Msg("manual forecast fetch")

	saved, err := c.forecasts.FetchAndSave(r.Context(), tm1, tm2)
	if err != nil {
		respondWithServiceError(w, c.logger, err)
		return
	}
	utils.RespondWithPayload(w, http.StatusOK, fmt.Sprintf("Saved count: %d", saved))
}

// FetchObservations handles POST /api/kma/fetch?tm1=&tm2=.
func (c *KMAController) FetchObservations(w http.ResponseWriter, r *http.Request) {
	tm1, tm2, ok := kmaWindow(w, r)
	if !ok {
		return
	}
	c.logger.Info().Str("tm1", utils.Mask(tm1)).Str("tm2", utils.Mask(tm2)).Msg("manual observation fetch")

	saved, err := c.observations.FetchAndStore(r.Context(), tm1, tm2)
	if err != nil {
		respondWithServiceError(w, c.logger, err)
		return
	}
	utils.RespondWithPayload(w, http.StatusOK, fmt.Sprintf("Saved count: %d", saved))
}

func kmaWindow(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	q := r.URL.Query()
	tm1, tm2 := q.Get("tm1"), q.Get("tm2")
	for _, p := range [][2]string{{"tm1", tm1}, {"tm2", tm2}} {
		name, v := p[0], p[1]
		if !kmaTimeParam.MatchString(v) {
			utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeValidationFailed,
				fmt.Sprintf("%s must be 10~12 digits", name), map[string]string{"param": name}, http.StatusBadRequest))
			return "", "", false
		}
	}
	return tm1, tm2, true
}

package controller

import (
	"errors"
	"net/http"

	"StationData.influxDB/internal/kma"
	"StationData.influxDB/internal/models"
	"StationData.influxDB/internal/query"
	"StationData.influxDB/internal/repository"
	"StationData.influxDB/internal/service"
	"StationData.influxDB/internal/utils"
	"github.com/rs/zerolog"
)

// respondWithServiceError maps service and storage errors onto API errors.
func respondWithServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var apiErr models.APIError
	switch {
	case errors.Is(err, service.ErrSensorNotFound):
		apiErr = models.NewAPIError(models.ErrorCodeSensorNotFound, err.Error(), nil, http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidValue), errors.Is(err, query.ErrInvalidArgument):
		apiErr = models.BadRequest(models.ErrorCodeValidationFailed, err.Error())
	case errors.Is(err, repository.ErrQueryFailed):
		apiErr = models.NewAPIError(models.ErrorCodeQueryFailed, "Error querying InfluxDB", nil, http.StatusBadGateway)
	case errors.Is(err, repository.ErrWriteFailed):
		apiErr = models.NewAPIError(models.ErrorCodeWriteFailed, "Error writing to InfluxDB", nil, http.StatusBadGateway)
	case errors.Is(err, kma.ErrEmptyResponse), errors.Is(err, kma.ErrNoForecastRows):
		apiErr = models.NewAPIError(models.ErrorCodeUpstreamFailed, err.Error(), nil, http.StatusBadGateway)
	default:
		apiErr = models.NewAPIError(models.ErrorCodeInternalServerError, "Internal server error", nil, http.StatusInternalServerError)
	}
	if apiErr.StatusCode >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("code", string(apiErr.Code)).Msg("request failed")
	}
	utils.RespondWithError(w, apiErr)
}

package utils

import (
	"encoding/json"
	"net/http"

	"StationData.influxDB/internal/models"
	"github.com/rs/zerolog/log"
)

// RespondWithError sends a JSON error response using the APIError model.
// The HTTP status comes from the APIError.
func RespondWithError(writer http.ResponseWriter, apiErr models.APIError) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(apiErr.StatusCode)

	if err := json.NewEncoder(writer).Encode(apiErr); err != nil {
		log.Error().Err(err).Msg("failed to encode error response")
	}
}

// RespondWithJSON sends a JSON success response.
func RespondWithJSON(writer http.ResponseWriter, statusCode int, payload interface{}) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(statusCode)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(writer).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// RespondWithPayload wraps payload in the AdminResponse envelope.
func RespondWithPayload(writer http.ResponseWriter, statusCode int, payload any) {
	RespondWithJSON(writer, statusCode, models.AdminResponse{Status: statusCode, Payload: payload})
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"StationData.influxDB/internal/metrics"
	"StationData.influxDB/internal/models"
	"StationData.influxDB/internal/utils"
	"github.com/rs/zerolog"
)

const APIKeyHeader = "X-API-KEY"

type ownerKey struct{}

// KeyStore looks up API keys. Unknown keys yield nil, nil.
type KeyStore interface {
	FindByKey(ctx context.Context, key string) (*models.APIKey, error)
}

// APIKeyAuth requires an active key in X-API-KEY and enforces the key's
// per-minute limit. The key owner is stored in the request context.
func APIKeyAuth(store KeyStore, limiter Limiter, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("middleware", "api_key").Logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if raw == "" {
				unauthorized(w, "API key missing")
				return
			}

			key, err := store.FindByKey(r.Context(), raw)
			if err != nil {
				logger.Error().Err(err).Str("key", utils.MaskVisible(raw, 4)).Msg("api key lookup failed")
				utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeInternalServerError, "API key lookup failed", nil, http.StatusInternalServerError))
				return
			}
			if key == nil || !key.Active {
				logger.Warn().Str("key", utils.MaskVisible(raw, 4)).Msg("invalid or inactive api key")
				unauthorized(w, "Invalid or inactive API key")
				return
			}

			if key.LimitPerMinute > 0 {
				allowed, err := limiter.Allow(r.Context(), "key:"+key.Key, key.LimitPerMinute, limitWindow)
				if err != nil {
					logger.Error().Err(err).Msg("rate limiter unavailable")
				} else if !allowed {
					metrics.IncRateLimited("api_key")
					logger.Warn().Str("owner", key.Owner).Msg("api key rate limit exceeded")
					tooManyRequests(w, key.LimitPerMinute, "Rate limit exceeded for this API key")
					return
				}
			}

			ctx := context.WithValue(r.Context(), ownerKey{}, key.Owner)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OwnerFromContext returns the owner of the API key that authenticated the request.
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerKey{}).(string)
	return owner, ok
}

func unauthorized(w http.ResponseWriter, msg string) {
	utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeUnauthorized, msg, nil, http.StatusUnauthorized))
}

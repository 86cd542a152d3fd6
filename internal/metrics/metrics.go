package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "station_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	influxQueries      *prometheus.CounterVec
	influxQueryLatency *prometheus.HistogramVec
	influxWrites       *prometheus.CounterVec
	forecastUpserts    *prometheus.CounterVec
	kmaFetches         *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpLatency        *prometheus.HistogramVec
	rateLimited        *prometheus.CounterVec
)

// Init registers the collectors with reg, or the default registerer when reg is nil.
// Only the first call has an effect.
func Init(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		influxQueries = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "influx_queries_total",
				Help: "InfluxDB queries by operation and result",
			},
			[]string{"op", "result"},
		)
		influxQueryLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "influx_query_latency_seconds",
				Help:    "InfluxDB query latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		)
		influxWrites = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "influx_points_written_total",
				Help: "Points written to InfluxDB by result",
			},
			[]string{"result"},
		)
		forecastUpserts = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "forecast_upserts_total",
				Help: "Forecast summary upserts by result",
			},
			[]string{"result"},
		)
		kmaFetches = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "kma_fetches_total",
				Help: "KMA API calls by kind and result",
			},
			[]string{"kind", "result"},
		)
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_latency_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		)
		rateLimited = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"scope"},
		)

		reg.MustRegister(
			influxQueries,
			influxQueryLatency,
			influxWrites,
			forecastUpserts,
			kmaFetches,
			httpRequests,
			httpLatency,
			rateLimited,
		)
	})
}

func resultOf(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// ObserveQuery records one InfluxDB query.
func ObserveQuery(op string, started time.Time, err error) {
	if influxQueries == nil {
		return
	}
	influxQueries.WithLabelValues(op, resultOf(err)).Inc()
	influxQueryLatency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// ObserveWrite records points written (or attempted) in one request.
func ObserveWrite(points int, err error) {
	if influxWrites == nil {
		return
	}
	influxWrites.WithLabelValues(resultOf(err)).Add(float64(points))
}

func ObserveForecastUpsert(err error) {
	if forecastUpserts == nil {
		return
	}
	forecastUpserts.WithLabelValues(resultOf(err)).Inc()
}

func ObserveKMAFetch(kind string, err error) {
	if kmaFetches == nil {
		return
	}
	kmaFetches.WithLabelValues(kind, resultOf(err)).Inc()
}

func ObserveHTTP(route, code string, started time.Time) {
	if httpRequests == nil {
		return
	}
	httpRequests.WithLabelValues(route, code).Inc()
	httpLatency.WithLabelValues(route).Observe(time.Since(started).Seconds())
}

func IncRateLimited(scope string) {
	if rateLimited == nil {
		return
	}
	rateLimited.WithLabelValues(scope).Inc()
}

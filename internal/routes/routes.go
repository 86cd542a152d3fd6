package routes

import (
	"net/http"

	"StationData.influxDB/internal/controller"
	"github.com/gorilla/mux"
)

type Middleware = func(http.Handler) http.Handler

// Options wires controllers and middleware into the router. Nil middleware is skipped.
type Options struct {
	Measurements *controller.MeasurementController
	KMA          *controller.KMAController
	Locations    *controller.LocationController

	RequestLogger Middleware
	IPRateLimit   Middleware
	APIKeyAuth    Middleware
	RequireJWT    Middleware

	Metrics http.Handler
}

// SetupRouter defines all API routes.
func SetupRouter(opts Options) *mux.Router {
	router := mux.NewRouter()
	use(router, opts.RequestLogger, opts.IPRateLimit)

	router.HandleFunc("/health", opts.Locations.Health).Methods(http.MethodGet)
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api").Subrouter()
	use(api, opts.APIKeyAuth)

	SetupMeasurementRoutes(api, opts.Measurements)
	api.HandleFunc("/locations", opts.Locations.GetLocations).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	use(protected, opts.RequireJWT)
	SetupKMARoutes(protected, opts.KMA)

	return router
}

// SetupMeasurementRoutes registers /api/measurements. Literal paths come
// before {sensorId} so they are not captured by it.
func SetupMeasurementRoutes(router *mux.Router, c *controller.MeasurementController) {
	r := router.PathPrefix("/measurements").Subrouter()
	r.HandleFunc("", c.SaveMeasurement).Methods(http.MethodPost)
	r.HandleFunc("/all", c.GetAll).Methods(http.MethodGet)
	r.HandleFunc("/list", c.GetBetween).Methods(http.MethodGet)
	r.HandleFunc("/list/grouped", c.GetGrouped).Methods(http.MethodGet)
	r.HandleFunc("/by-name/{sensorName}", c.GetBySensorName).Methods(http.MethodGet)
	r.HandleFunc("/{sensorId:[0-9]+}", c.GetBySensorID).Methods(http.MethodGet)
}

// SetupKMARoutes registers the manual ingest triggers.
func SetupKMARoutes(router *mux.Router, c *controller.KMAController) {
	router.HandleFunc("/forecast", c.FetchForecasts).Methods(http.MethodPost)
	router.HandleFunc("/kma/fetch", c.FetchObservations).Methods(http.MethodPost)
}

func use(router *mux.Router, mws ...Middleware) {
	for _, mw := range mws {
		if mw != nil {
			router.Use(mux.MiddlewareFunc(mw))
		}
	}
}

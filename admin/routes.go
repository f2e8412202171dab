package admin

import (
	"net/http"
	"net/http/pprof"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/maxpert/tagcodec/encoding"
	"github.com/maxpert/tagcodec/telemetry"
	"github.com/rs/zerolog/log"
)

// NewRouter builds the admin HTTP routes using chi router
func NewRouter(handlers *AdminHandlers, maxBodyBytes int64) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.With(countRequests("health")).Get("/health", handlers.handleHealth)

	if metrics := telemetry.GetMetricsHandler(); metrics != nil {
		r.Handle("/metrics", metrics)
		log.Info().Msg("Metrics endpoint enabled at /metrics")
	}

	// Codec operations, one route per operation
	r.Route("/v1", func(r chi.Router) {
		r.Use(limitBody(maxBodyBytes))

		r.With(countRequests("ops")).Get("/ops", handlers.handleOps)
		for _, op := range encoding.Ops {
			r.With(countRequests(string(op))).Post("/"+routeName(op), handlers.handleOp(op))
		}
		r.With(countRequests("batch")).Post("/batch", handlers.handleBatch)
	})

	// Profiling
	r.Route("/debug/pprof", func(r chi.Router) {
		r.HandleFunc("/", pprof.Index)
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)
		r.Handle("/{profile}", http.HandlerFunc(pprof.Index))
	})

	log.Info().Int("operations", len(encoding.Ops)).Msg("Admin endpoints enabled at /v1/*")
	return r
}

// routeName maps an operation to its URL segment
func routeName(op encoding.Op) string {
	if op == encoding.OpDecodeAttribute {
		return "decode-attribute"
	}
	return string(op)
}

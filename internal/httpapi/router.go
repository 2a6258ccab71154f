package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/meqhh/simpat-api/internal/metrics"
	"github.com/meqhh/simpat-api/internal/telemetry"
)

// RouterOptions configures the middleware stack around the QC check routes.
// Zero values disable the corresponding feature.
type RouterOptions struct {
	AllowedOrigins     []string
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	// Ready backs /readyz. A nil Ready always reports ready.
	Ready   func(ctx context.Context) error
	Metrics *metrics.Metrics
	// TracingService names the server spans; empty disables tracing middleware.
	TracingService string
	Logger         zerolog.Logger
}

func NewRouter(handler *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	if opts.TracingService != "" {
		r.Use(telemetry.Middleware(opts.TracingService))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware(opts.Logger))
	r.Use(opts.Metrics.Middleware)
	r.Use(middleware.Recoverer)

	allowed := opts.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         int((10 * time.Minute).Seconds()),
	}))

	if opts.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(opts.RateLimitPerMinute, time.Minute))
	}

	r.Get("/healthcheck", healthcheck)
	r.Get("/readyz", readiness(opts.Ready))
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	r.Group(func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(middleware.Timeout(opts.RequestTimeout))
		}
		r.Mount("/qc-checks", handler.Routes())
	})

	return r
}

func healthcheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func readiness(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("not ready"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}

func loggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info().
				Str("method", r.Method).
				Str("uri", r.URL.RequestURI()).
				Int("status", status).
				Dur("duration", time.Since(start)).
				Str("request_id", requestID(r)).
				Msg("request")
		})
	}
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	cargoqueue "github.com/dayemsiddiqui/cargo-queue"
)

// RouterConfig holds the optional parts of the HTTP surface.
type RouterConfig struct {
	RateLimit int                             // Requests per minute per client IP, 0 disables
	Metrics   http.Handler                    // Served at GET /metrics when set
	Ping      func(ctx context.Context) error // Storage check behind GET /health
}

// NewRouter mounts every route of the API on a chi router.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.logger))
	if cfg.RateLimit > 0 {
		r.Use(httprate.Limit(cfg.RateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
	}

	r.Get("/health", h.HandleHealth(cfg.Ping))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/queues", func(r chi.Router) {
		r.Get("/", h.HandleListQueues)
		r.Post("/", h.HandleCreateQueue)
		r.Post("/purge-all", h.HandlePurgeAllQueues)

		r.Route("/{slug}", func(r chi.Router) {
			r.Get("/", h.HandleGetQueue)
			r.Delete("/", h.HandleDeleteQueue)
			r.Patch("/retention", h.HandleUpdateRetention)
			r.Post("/purge", h.HandlePurgeQueue)
			r.Get("/stats", h.HandleQueueStats)
			r.Get("/messages", h.HandlePollMessage)
			r.Post("/messages", h.HandleSendMessage)
			r.Delete("/messages", h.HandleAcknowledgeMessage)
		})
	})

	r.Route("/topics", func(r chi.Router) {
		r.Get("/", h.HandleListTopics)
		r.Post("/", h.HandleCreateTopic)

		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", h.HandleGetTopic)
			r.Delete("/", h.HandleDeleteTopic)
			r.Post("/", h.HandlePublish)
			r.Get("/queues", h.HandleGetTopicQueues)
			r.Post("/queues", h.HandleAddTopicQueue)
			r.Delete("/queues", h.HandleRemoveTopicQueue)
		})
	})

	return r
}

// requestLogger logs HTTP requests.
func requestLogger(logger cargoqueue.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Infof("%s %s %d %v", r.Method, r.URL.Path, ww.Status(), time.Since(start))
		})
	}
}

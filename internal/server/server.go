// Package server hosts the HTTP surface: the Telegram webhook, the
// authoring/search API and operational endpoints.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"eventsbot/internal/dispatch"
	"eventsbot/internal/event"
	"eventsbot/internal/ratelimit"
	"eventsbot/internal/storage"
	"eventsbot/internal/telegram"
)

// TextSender is the slice of the delivery client the webhook needs.
type TextSender interface {
	SendText(ctx context.Context, m telegram.Text) (int, error)
}

// Dispatcher runs the notification pipeline for a created event.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev event.Event) dispatch.Result
}

// Options carries the explicit server configuration; no ambient lookups.
type Options struct {
	WebhookSecret string
	MenuAddURL    string
	MenuSearchURL string
}

type Server struct {
	opts       Options
	store      storage.Store
	dispatcher Dispatcher
	limiter    *ratelimit.Limiter
	sender     TextSender
	log        zerolog.Logger
}

func New(opts Options, store storage.Store, d Dispatcher, limiter *ratelimit.Limiter, sender TextSender, log zerolog.Logger) *Server {
	return &Server{
		opts:       opts,
		store:      store,
		dispatcher: d,
		limiter:    limiter,
		sender:     sender,
		log:        log,
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Post("/telegram/webhook", s.handleWebhook)

	r.Route("/api", func(r chi.Router) {
		r.Post("/events", s.handleCreateEvent)
		r.Get("/events", s.handleListEvents)
		r.Put("/categories/{name}", s.handleUpsertCategory)
		r.Get("/categories/{name}", s.handleGetCategory)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("dur", time.Since(start)).
			Msg("http request")
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

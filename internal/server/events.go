package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"eventsbot/internal/event"
)

type deliveryOutcome struct {
	ChatID   string `json:"chat_id"`
	Thread   string `json:"thread"`
	OK       bool   `json:"ok"`
	Fallback bool   `json:"fallback,omitempty"`
	Error    string `json:"error,omitempty"`
}

type createEventResponse struct {
	EventID    string            `json:"event_id"`
	Outcome    string            `json:"outcome"` // sent | skipped
	Deliveries []deliveryOutcome `json:"deliveries,omitempty"`
}

// handleCreateEvent persists a new event record and runs the dispatch
// pipeline. Delivery failures are reported in the response, not as an HTTP
// error: the record was created either way.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var ev event.Event
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ev); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if ev.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if ev.EndAt != nil && ev.StartAt == nil {
		respondError(w, http.StatusBadRequest, "end_at requires start_at")
		return
	}
	if ev.EndAt != nil && ev.EndAt.Before(*ev.StartAt) {
		respondError(w, http.StatusBadRequest, "end_at precedes start_at")
		return
	}

	created, err := s.store.CreateEvent(r.Context(), ev)
	if err != nil {
		s.log.Error().Err(err).Msg("event create failed")
		respondError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	res := s.dispatcher.Dispatch(r.Context(), created)

	resp := createEventResponse{EventID: created.ID, Outcome: "sent"}
	if res.Skipped {
		resp.Outcome = "skipped"
	}
	for _, d := range res.Deliveries {
		out := deliveryOutcome{
			ChatID:   d.Dest.ChatID,
			Thread:   d.Dest.Thread.String(),
			OK:       d.Err == nil,
			Fallback: d.Fallback,
		}
		if d.Err != nil {
			out.Error = d.Err.Error()
		}
		resp.Deliveries = append(resp.Deliveries, out)
	}
	respondJSON(w, http.StatusCreated, resp)
}

// handleListEvents returns events starting within the next N days
// (default 30).
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 365 {
			respondError(w, http.StatusBadRequest, "days must be 1..365")
			return
		}
		days = n
	}

	now := time.Now()
	events, err := s.store.ListUpcoming(r.Context(), now, now.Add(time.Duration(days)*24*time.Hour))
	if err != nil {
		s.log.Error().Err(err).Msg("event list failed")
		respondError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []event.Event{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": events})
}

type categoryBody struct {
	Destinations []string `json:"destinations"`
}

func (s *Server) handleUpsertCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var body categoryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.store.UpsertCategory(r.Context(), name, body.Destinations); err != nil {
		s.log.Error().Str("category", name).Err(err).Msg("category upsert failed")
		respondError(w, http.StatusInternalServerError, "failed to store category")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"name": name, "destinations": body.Destinations})
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	tokens, err := s.store.CategoryDestinations(r.Context(), name)
	if err != nil {
		s.log.Error().Str("category", name).Err(err).Msg("category read failed")
		respondError(w, http.StatusInternalServerError, "failed to read category")
		return
	}
	if tokens == nil {
		tokens = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"name": name, "destinations": tokens})
}

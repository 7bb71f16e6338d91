package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"eventsbot/internal/dispatch"
	"eventsbot/internal/event"
	"eventsbot/internal/ratelimit"
	"eventsbot/internal/routing"
)

// fakeStore is an in-memory storage.Store for handler tests.
type fakeStore struct {
	mu         sync.Mutex
	nextID     int
	events     []event.Event
	categories map[string][]string
	windows    *memWindows

	createErr error
	listErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, categories: map[string][]string{}, windows: newMemWindows()}
}

func (f *fakeStore) CreateEvent(ctx context.Context, ev event.Event) (event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return event.Event{}, f.createErr
	}
	ev.ID = strconv.Itoa(f.nextID)
	f.nextID++
	ev.CreatedAt = time.Now()
	f.events = append(f.events, ev)
	return ev, nil
}

func (f *fakeStore) ListUpcoming(ctx context.Context, from, until time.Time) ([]event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []event.Event
	for _, ev := range f.events {
		if ev.StartAt == nil {
			continue
		}
		if ev.StartAt.Before(from) || ev.StartAt.After(until) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (f *fakeStore) CategoryDestinations(ctx context.Context, name string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.categories[name], nil
}

func (f *fakeStore) UpsertCategory(ctx context.Context, name string, tokens []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories[name] = tokens
	return nil
}

func (f *fakeStore) Update(ctx context.Context, key string, fn func(ratelimit.Window) (ratelimit.Window, error)) error {
	return f.windows.Update(ctx, key, fn)
}

func (f *fakeStore) Close() error { return nil }

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateEventDispatchesAndReports(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.disp.result = dispatch.Result{Deliveries: []dispatch.Delivery{
		{Dest: routing.Destination{ChatID: "-100555", Thread: routing.NumericThread(42)}, MessageID: 7},
		{Dest: routing.Destination{ChatID: "-100555"}, Err: errors.New("boom"), Fallback: true},
	}}

	rec := postJSON(t, f.srv.Router(), "/api/events", `{"name":"Open Stage","category":"music"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp createEventResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.EventID == "" || resp.Outcome != "sent" {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp.Deliveries) != 2 {
		t.Fatalf("deliveries = %+v", resp.Deliveries)
	}
	if !resp.Deliveries[0].OK || resp.Deliveries[0].Thread != "42" {
		t.Fatalf("first delivery = %+v", resp.Deliveries[0])
	}
	if resp.Deliveries[1].OK || resp.Deliveries[1].Error != "boom" || !resp.Deliveries[1].Fallback {
		t.Fatalf("second delivery = %+v", resp.Deliveries[1])
	}

	if len(f.disp.events) != 1 || f.disp.events[0].Name != "Open Stage" {
		t.Fatalf("dispatched = %+v", f.disp.events)
	}
	if f.disp.events[0].ID == "" {
		t.Fatal("dispatch must receive the persisted record")
	}
}

func TestCreateEventSkipped(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.disp.result = dispatch.Result{Skipped: true}

	rec := postJSON(t, f.srv.Router(), "/api/events", `{"name":"Quiet","post_to_telegram":false}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp createEventResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Outcome != "skipped" || len(resp.Deliveries) != 0 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestCreateEventValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := f.srv.Router()

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"category":"music"}`},
		{"unknown field", `{"name":"x","bogus":1}`},
		{"end without start", `{"name":"x","end_at":"2026-06-10T20:00:00Z"}`},
		{"end before start", `{"name":"x","start_at":"2026-06-10T20:00:00Z","end_at":"2026-06-10T18:00:00Z"}`},
		{"not json", `nope`},
	}
	for _, tc := range cases {
		rec := postJSON(t, h, "/api/events", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", tc.name, rec.Code)
		}
	}
	if len(f.disp.events) != 0 {
		t.Fatal("invalid requests must not dispatch")
	}
}

func TestListEvents(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	soon := time.Now().Add(48 * time.Hour)
	far := time.Now().Add(90 * 24 * time.Hour)
	f.store.events = []event.Event{
		{ID: "1", Name: "soon", StartAt: &soon},
		{ID: "2", Name: "far", StartAt: &far},
		{ID: "3", Name: "dateless"},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events?days=7", nil)
	rec := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Events []event.Event `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].Name != "soon" {
		t.Fatalf("events = %+v", resp.Events)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/events?days=9999", nil)
	rec = httptest.NewRecorder()
	f.srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("days out of range: status = %d", rec.Code)
	}
}

func TestCategoryRoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := f.srv.Router()

	req := httptest.NewRequest(http.MethodPut, "/api/categories/music",
		strings.NewReader(`{"destinations":["11745","vip-room"]}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/categories/music", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp struct {
		Name         string   `json:"name"`
		Destinations []string `json:"destinations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Name != "music" || len(resp.Destinations) != 2 || resp.Destinations[0] != "11745" {
		t.Fatalf("resp = %+v", resp)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/categories/unknown", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"destinations":[]`) {
		t.Fatalf("missing category: %d %s", rec.Code, rec.Body.String())
	}
}

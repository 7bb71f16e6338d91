// Package dispatch drives the notification pipeline for newly created
// events: render, resolve destinations, deliver with photo-then-reply
// sequencing and a plain-text fallback on MarkdownV2 rejection.
package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"eventsbot/internal/event"
	"eventsbot/internal/markup"
	"eventsbot/internal/metrics"
	"eventsbot/internal/routing"
	"eventsbot/internal/telegram"
)

// Transport delivers messages to one destination. Production wiring is
// telegram.Delivery; tests use stubs.
type Transport interface {
	SendText(ctx context.Context, m telegram.Text) (int, error)
	SendEventPhoto(ctx context.Context, dest routing.Destination, imageRef string) (int, error)
}

// Config carries the explicit dispatch dependencies; nothing is read from
// ambient state.
type Config struct {
	DefaultChatID string
	// Location is the reference timezone for date rendering.
	Location *time.Location
}

type Orchestrator struct {
	cfg       Config
	transport Transport
	lookup    routing.CategoryLookup
	log       zerolog.Logger
}

func New(cfg Config, tr Transport, lookup routing.CategoryLookup, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, transport: tr, lookup: lookup, log: log}
}

// Delivery is the outcome for one destination.
type Delivery struct {
	Dest      routing.Destination
	MessageID int
	Fallback  bool // text was resent without markup
	Err       error
}

// Result aggregates a dispatch run. Per-destination failures are recorded
// here, never raised.
type Result struct {
	Skipped    bool
	Deliveries []Delivery
}

// Sent reports whether every destination received the message.
func (r Result) Sent() bool {
	if r.Skipped {
		return false
	}
	for _, d := range r.Deliveries {
		if d.Err != nil {
			return false
		}
	}
	return true
}

// Dispatch announces a newly created event to all resolved destinations.
func (o *Orchestrator) Dispatch(ctx context.Context, ev event.Event) Result {
	if !ev.ShouldPost() {
		o.log.Info().Str("event", ev.Name).Msg("event marked as do-not-post, skipping")
		metrics.DispatchesTotal.WithLabelValues("skipped").Inc()
		return Result{Skipped: true}
	}

	text := markup.EventMessage(ev, o.cfg.Location)
	tokens := routing.Resolve(ctx, ev.Category, o.lookup)
	dests := routing.Destinations(tokens, o.cfg.DefaultChatID)

	res := Result{Deliveries: make([]Delivery, 0, len(dests))}
	for _, dest := range dests {
		d := o.deliver(ctx, dest, ev, text)
		if d.Err != nil {
			o.log.Warn().
				Str("event", ev.Name).
				Str("chat", dest.ChatID).
				Stringer("thread", dest.Thread).
				Err(d.Err).
				Msg("delivery failed")
		}
		metrics.RecordDelivery(d.Err == nil)
		res.Deliveries = append(res.Deliveries, d)
	}
	metrics.DispatchesTotal.WithLabelValues("sent").Inc()
	return res
}

// deliver handles one destination. With an image the photo goes first,
// caption-less, and the rendered text follows as a reply to it; ordering
// within a destination is strict.
func (o *Orchestrator) deliver(ctx context.Context, dest routing.Destination, ev event.Event, text string) Delivery {
	d := Delivery{Dest: dest}

	replyTo := 0
	if ev.ImageRef != "" {
		photoID, err := o.transport.SendEventPhoto(ctx, dest, ev.ImageRef)
		if err != nil {
			d.Err = err
			return d
		}
		replyTo = photoID
	}

	d.MessageID, d.Fallback, d.Err = o.sendTextWithFallback(ctx, dest, text, replyTo)
	return d
}

// sendTextWithFallback tries rich formatting first and resends as plain text
// only when the transport rejected the markup itself. A second failure is
// returned as the delivery error.
func (o *Orchestrator) sendTextWithFallback(ctx context.Context, dest routing.Destination, text string, replyTo int) (int, bool, error) {
	m := telegram.Text{
		ChatID:         dest.ChatID,
		Thread:         dest.Thread,
		Body:           text,
		Markdown:       true,
		DisablePreview: true,
		ReplyTo:        replyTo,
	}

	id, err := o.transport.SendText(ctx, m)
	if err == nil {
		return id, false, nil
	}
	if !telegram.IsParseError(err) {
		return 0, false, err
	}

	metrics.FallbacksTotal.Inc()
	o.log.Warn().Str("chat", dest.ChatID).Err(err).Msg("markup rejected, resending plain")
	m.Markdown = false
	id, err = o.transport.SendText(ctx, m)
	return id, true, err
}

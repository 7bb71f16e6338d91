// Package digest posts a periodic summary of upcoming events to the default
// chat's general topic.
package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"eventsbot/internal/event"
	"eventsbot/internal/markup"
	"eventsbot/internal/telegram"
)

// EventLister is the slice of the store the digest needs.
type EventLister interface {
	ListUpcoming(ctx context.Context, from, until time.Time) ([]event.Event, error)
}

// Sender delivers the composed summary.
type Sender interface {
	SendText(ctx context.Context, m telegram.Text) (int, error)
}

type Config struct {
	Schedule string // five-field cron spec, evaluated in Location
	Window   time.Duration
	ChatID   string
	Location *time.Location
}

type Service struct {
	cfg    Config
	lister EventLister
	sender Sender
	log    zerolog.Logger

	c  *cron.Cron
	id cron.EntryID
}

func New(cfg Config, lister EventLister, sender Sender, log zerolog.Logger) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{cfg: cfg, lister: lister, sender: sender, log: log}
}

// Start schedules the digest job. The returned error is a bad cron spec.
func (s *Service) Start(ctx context.Context) error {
	s.c = cron.New(cron.WithLocation(s.cfg.Location))
	id, err := s.c.AddFunc(s.cfg.Schedule, func() { s.runOnce(ctx) })
	if err != nil {
		return fmt.Errorf("digest schedule %q: %w", s.cfg.Schedule, err)
	}
	s.id = id
	s.c.Start()
	s.log.Info().Str("schedule", s.cfg.Schedule).Dur("window", s.cfg.Window).Msg("digest scheduled")
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Service) Stop() {
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
}

func (s *Service) runOnce(ctx context.Context) {
	now := time.Now().In(s.cfg.Location)
	events, err := s.lister.ListUpcoming(ctx, now, now.Add(s.cfg.Window))
	if err != nil {
		s.log.Error().Err(err).Msg("digest listing failed")
		return
	}
	if len(events) == 0 {
		s.log.Debug().Msg("digest window empty, nothing to post")
		return
	}

	text := Compose(events, s.cfg.Location)
	if _, err := s.send(ctx, text); err != nil {
		s.log.Error().Err(err).Int("events", len(events)).Msg("digest send failed")
		return
	}
	s.log.Info().Int("events", len(events)).Msg("digest posted")
}

// send posts with MarkdownV2 and retries once in plain text when the API
// rejects the entities.
func (s *Service) send(ctx context.Context, text string) (int, error) {
	msg := telegram.Text{
		ChatID:         s.cfg.ChatID,
		Body:           text,
		Markdown:       true,
		DisablePreview: true,
	}
	id, err := s.sender.SendText(ctx, msg)
	if err == nil || !telegram.IsParseError(err) {
		return id, err
	}
	msg.Markdown = false
	return s.sender.SendText(ctx, msg)
}

// Compose renders the digest body in MarkdownV2. One bullet per event, in
// the order the store returned them.
func Compose(events []event.Event, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("📅 *Upcoming events*\n")
	for _, ev := range events {
		name := ev.Name
		if name == "" {
			name = "Untitled Event"
		}
		b.WriteString("\n• *")
		b.WriteString(markup.Escape(name))
		b.WriteString("*")
		if when := markup.DateText(ev.StartAt, ev.EndAt, loc); when != "" {
			// Multi-day events render on one bullet line.
			b.WriteString(" · ")
			b.WriteString(markup.Escape(strings.ReplaceAll(when, "\n", ", ")))
		}
		if ev.Place != "" {
			b.WriteString("\n  📍 ")
			b.WriteString(markup.Escape(ev.Place))
		}
	}
	return b.String()
}

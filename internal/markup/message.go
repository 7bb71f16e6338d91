package markup

import (
	"strings"
	"time"

	"eventsbot/internal/event"
)

// Fields carries the raw (unescaped) message parts. Message escapes each one
// exactly once.
type Fields struct {
	Name        string
	Category    string
	Tags        []string
	DateText    string
	Place       string
	Price       string
	Link        string
	Contact     string
	Description string
}

const footer = "— Posted by Event Bot"

// Message assembles the MarkdownV2 body. Lines whose source field is empty
// are omitted.
//
// The link goes into the URL target of "[More info](...)" unescaped: it is a
// URL, not body text, and escaping would corrupt it. The display text is a
// fixed literal so a hostile link cannot break the surrounding markup.
func Message(f Fields) string {
	var b strings.Builder

	name := f.Name
	if strings.TrimSpace(name) == "" {
		name = "Untitled Event"
	}
	b.WriteString("*" + Escape(name) + "*\n")

	if f.Category != "" {
		b.WriteString("🏷️ *Category:* " + Escape(f.Category) + "\n")
	}
	if tags := tagLine(f.Tags); tags != "" {
		b.WriteString("🏷️ *Tags:* " + tags + "\n")
	}
	if f.DateText != "" {
		b.WriteString("📅 *When:* " + Escape(f.DateText) + "\n")
	}
	if f.Place != "" {
		b.WriteString("📍 *Where:* " + Escape(f.Place) + "\n")
	}
	if f.Price != "" {
		b.WriteString("💰 *Price:* " + Escape(f.Price) + "\n")
	}
	if f.Link != "" {
		b.WriteString("🔗 [More info](" + f.Link + ")\n")
	}
	if f.Contact != "" {
		b.WriteString("📞 *Contact:* " + Escape(f.Contact) + "\n")
	}
	if f.Description != "" {
		b.WriteString("\n" + Escape(f.Description) + "\n")
	}
	b.WriteString("\n" + Escape(footer))

	return strings.TrimSpace(b.String())
}

// EventMessage renders a full event record, projecting its dates into loc.
func EventMessage(ev event.Event, loc *time.Location) string {
	return Message(Fields{
		Name:        ev.Name,
		Category:    ev.Category,
		Tags:        ev.Tags,
		DateText:    DateText(ev.StartAt, ev.EndAt, loc),
		Place:       ev.Place,
		Price:       ev.Price,
		Link:        ev.Link,
		Contact:     ev.Contact,
		Description: ev.Description,
	})
}

func tagLine(tags []string) string {
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		parts = append(parts, `\#`+Escape(t))
	}
	return strings.Join(parts, " ")
}

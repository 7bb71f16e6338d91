package markup

import (
	"strings"
	"testing"
	"time"

	"eventsbot/internal/event"
)

func TestMessageLayout(t *testing.T) {
	t.Parallel()
	got := Message(Fields{
		Name:        "Rock-Show!",
		Category:    "Music",
		Tags:        []string{"live", "rock-n-roll"},
		DateText:    "June 10, 2025, 10:00",
		Place:       "Berlin",
		Price:       "10€",
		Link:        "https://example.com/a_(1)",
		Contact:     "@someone",
		Description: "Doors open 19:00.",
	})

	wantLines := []string{
		`*Rock\-Show\!*`,
		"🏷️ *Category:* Music",
		`🏷️ *Tags:* \#live \#rock\-n\-roll`,
		`📅 *When:* June 10, 2025, 10:00`,
		"📍 *Where:* Berlin",
		"💰 *Price:* 10€",
		"🔗 [More info](https://example.com/a_(1))",
		"📞 *Contact:* @someone",
	}
	for _, line := range wantLines {
		if !strings.Contains(got, line) {
			t.Fatalf("message missing line %q:\n%s", line, got)
		}
	}
	if !strings.Contains(got, `Doors open 19:00\.`) {
		t.Fatalf("description not escaped:\n%s", got)
	}
	if !strings.HasSuffix(got, Escape(footer)) {
		t.Fatalf("missing footer:\n%s", got)
	}
}

func TestMessageOmitsEmptyLines(t *testing.T) {
	t.Parallel()
	got := Message(Fields{Name: "Bare"})
	for _, label := range []string{"Tags:", "When:", "Where:", "Price:", "More info", "Contact:"} {
		if strings.Contains(got, label) {
			t.Fatalf("line %q should be omitted:\n%s", label, got)
		}
	}
	if !strings.HasPrefix(got, "*Bare*") {
		t.Fatalf("unexpected prefix:\n%s", got)
	}
}

func TestMessageDefaultsEmptyName(t *testing.T) {
	t.Parallel()
	got := Message(Fields{})
	if !strings.HasPrefix(got, "*Untitled Event*") {
		t.Fatalf("want untitled fallback, got:\n%s", got)
	}
}

func TestEventMessageDateProjection(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("CEST", 2*3600)
	start := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 10, 21, 59, 0, 0, time.UTC)

	got := EventMessage(event.Event{Name: "All-day", StartAt: &start, EndAt: &end}, loc)
	if !strings.Contains(got, `*All\-day*`) {
		t.Fatalf("name not escaped:\n%s", got)
	}
	if !strings.Contains(got, "June 10, 2025") {
		t.Fatalf("missing date line:\n%s", got)
	}
	if strings.Contains(got, "–") {
		t.Fatalf("sentinel end must not render a range:\n%s", got)
	}
}

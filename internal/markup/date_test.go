package markup

import (
	"strings"
	"testing"
	"time"
)

func tp(t time.Time) *time.Time { return &t }

func TestDateTextSentinelEnd(t *testing.T) {
	t.Parallel()
	// 21:59 UTC is 23:59 in the UTC+2 reference zone: treated as "no end
	// time given", so only the date may appear.
	loc := time.FixedZone("CEST", 2*3600)
	start := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 10, 21, 59, 0, 0, time.UTC)

	got := DateText(tp(start), tp(end), loc)
	if got != "June 10, 2025" {
		t.Fatalf("DateText = %q, want date only", got)
	}
	if strings.Contains(got, "–") || strings.Contains(got, ":") {
		t.Fatalf("unexpected time range in %q", got)
	}
}

func TestDateTextVariants(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("CEST", 2*3600)
	start := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC) // 10:00 local

	tests := []struct {
		name  string
		start *time.Time
		end   *time.Time
		want  string
	}{
		{name: "no start", start: nil, end: nil, want: ""},
		{
			name:  "start only",
			start: tp(start),
			want:  "June 10, 2025, 10:00",
		},
		{
			name:  "same day with end time",
			start: tp(start),
			end:   tp(time.Date(2025, 6, 10, 19, 30, 0, 0, time.UTC)), // 21:30 local
			want:  "June 10, 2025 · 10:00 – 21:30",
		},
		{
			name:  "multi day",
			start: tp(start),
			end:   tp(time.Date(2025, 6, 12, 16, 0, 0, 0, time.UTC)), // 18:00 local
			want:  "Start: June 10, 2025, 10:00\nEnd: June 12, 2025, 18:00",
		},
		{
			name:  "multi day sentinel end",
			start: tp(start),
			end:   tp(time.Date(2025, 6, 12, 21, 59, 0, 0, time.UTC)),
			want:  "Start: June 10, 2025, 10:00\nEnd: June 12, 2025",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := DateText(tt.start, tt.end, loc); got != tt.want {
				t.Fatalf("DateText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDateTextCrossesMidnightLocally(t *testing.T) {
	t.Parallel()
	// 23:30 UTC on the 10th is 01:30 local on the 11th: the calendar-day
	// comparison must happen in the reference zone, not UTC.
	loc := time.FixedZone("CEST", 2*3600)
	start := time.Date(2025, 6, 10, 20, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 10, 23, 30, 0, 0, time.UTC)

	got := DateText(tp(start), tp(end), loc)
	if !strings.HasPrefix(got, "Start: ") {
		t.Fatalf("expected multi-day rendering, got %q", got)
	}
}

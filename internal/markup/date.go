package markup

import "time"

// The authoring UI writes 23:59 as the end time when the user supplied none.
// Rendering must treat that value as "no explicit end" and never show it as a
// time range.
const (
	SentinelEndHour   = 23
	SentinelEndMinute = 59
)

const (
	dateLayout = "January 2, 2006"
	timeLayout = "15:04"
)

// HasSentinelEnd reports whether t's local time-of-day in loc is the
// unspecified-end sentinel.
func HasSentinelEnd(t time.Time, loc *time.Location) bool {
	lt := t.In(loc)
	return lt.Hour() == SentinelEndHour && lt.Minute() == SentinelEndMinute
}

// DateText renders the start/end pair of an event in the reference timezone.
//
//   - no start: ""
//   - start only: "January 2, 2006, 15:04"
//   - same calendar day, sentinel end: date only
//   - same calendar day: "January 2, 2006 · 10:00 – 18:00"
//   - different days: "Start: ..." / "End: ..." on two lines, the end time
//     omitted when it is the sentinel
func DateText(start, end *time.Time, loc *time.Location) string {
	if start == nil || loc == nil {
		return ""
	}
	s := start.In(loc)
	if end == nil {
		return s.Format(dateLayout) + ", " + s.Format(timeLayout)
	}
	e := end.In(loc)

	if sameDay(s, e) {
		if HasSentinelEnd(*end, loc) {
			return s.Format(dateLayout)
		}
		return s.Format(dateLayout) + " · " + s.Format(timeLayout) + " – " + e.Format(timeLayout)
	}

	endLine := "End: " + e.Format(dateLayout)
	if !HasSentinelEnd(*end, loc) {
		endLine += ", " + e.Format(timeLayout)
	}
	return "Start: " + s.Format(dateLayout) + ", " + s.Format(timeLayout) + "\n" + endLine
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Package markup renders event records into Telegram MarkdownV2 message text.
package markup

import "strings"

// reserved is the full MarkdownV2 reserved set. Telegram rejects a message
// whose body contains any of these unescaped.
const reserved = "_*[]()~`>#+-=|{}.!\\"

// Escape prefixes every reserved MarkdownV2 character with a backslash.
//
// Escape is not idempotent: applying it twice double-escapes. Each raw field
// must pass through it exactly once on its way into a message body.
func Escape(s string) string {
	if !strings.ContainsAny(s, reserved) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) * 2)
	for _, r := range s {
		if r < 0x80 && strings.ContainsRune(reserved, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

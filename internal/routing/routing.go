// Package routing resolves which destinations receive an event announcement.
//
// Category routing maps a category name to an ordered list of destination
// tokens. A token selects a forum topic (thread) inside the configured
// default chat; an empty token is the sentinel for "default destination"
// (general topic).
package routing

import (
	"context"
	"strconv"
	"strings"
)

// DefaultToken is the sentinel returned when a category has no routing: the
// configured default chat, general topic.
const DefaultToken = ""

// ThreadID identifies a forum topic within a chat. The zero value means the
// general topic, i.e. message_thread_id must be omitted entirely.
type ThreadID struct {
	num int
	key string
}

// NumericThread builds a ThreadID from Telegram's numeric topic id.
func NumericThread(n int) ThreadID { return ThreadID{num: n} }

// IsZero reports whether the id addresses the general topic.
func (t ThreadID) IsZero() bool { return t.num == 0 && t.key == "" }

// Value returns nil, an int or a string, ready for a request payload.
func (t ThreadID) Value() any {
	switch {
	case t.num != 0:
		return t.num
	case t.key != "":
		return t.key
	default:
		return nil
	}
}

func (t ThreadID) String() string {
	switch {
	case t.num != 0:
		return strconv.Itoa(t.num)
	case t.key != "":
		return t.key
	default:
		return "general"
	}
}

// Destination is a (chat, optional thread) pair that can receive a message.
type Destination struct {
	ChatID string
	Thread ThreadID
}

// NormalizeThreadID maps a raw destination token to a thread id.
//
// Telegram uses "1" (or an unset field) for the default topic, and the
// routing documents historically also used "0", "" and "general" for it;
// none of those may be sent as an explicit message_thread_id. A purely
// numeric token is the topic id; anything else passes through as an opaque
// thread key.
func NormalizeThreadID(token string) ThreadID {
	tok := strings.TrimSpace(token)
	switch strings.ToLower(tok) {
	case "", "0", "1", "general":
		return ThreadID{}
	}
	if isDigits(tok) {
		n, err := strconv.Atoi(tok)
		if err == nil {
			return ThreadID{num: n}
		}
	}
	return ThreadID{key: tok}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// CategoryLookup returns the raw destination tokens configured for a
// category. An empty slice means "not configured".
type CategoryLookup func(ctx context.Context, category string) ([]string, error)

// Resolve produces the ordered token list for a category. A failed or empty
// lookup falls back to the single default-destination sentinel; the result is
// never empty.
func Resolve(ctx context.Context, category string, lookup CategoryLookup) []string {
	if lookup != nil {
		tokens, err := lookup(ctx, category)
		if err == nil {
			out := make([]string, 0, len(tokens))
			for _, t := range tokens {
				if strings.TrimSpace(t) != "" {
					out = append(out, t)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return []string{DefaultToken}
}

// Destinations expands resolved tokens into concrete destinations. The chat
// is always the configured default chat; the token picks the topic in it.
func Destinations(tokens []string, defaultChatID string) []Destination {
	out := make([]Destination, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, Destination{
			ChatID: defaultChatID,
			Thread: NormalizeThreadID(tok),
		})
	}
	return out
}

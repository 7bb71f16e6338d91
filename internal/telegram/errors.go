package telegram

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadImageRef marks an image reference that cannot be mapped to an object
// store path. It is a distinct kind so callers can tell it apart from a
// transport failure.
var ErrBadImageRef = errors.New("telegram: image reference not resolvable")

// APIError is a Bot API rejection: HTTP-level failure or an ok:false body.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %s (code %d)", e.Description, e.Code)
}

// IsParseError reports whether err is the Bot API rejecting MarkdownV2
// formatting. Only this shape triggers the plain-text resend; a network or
// quota failure must not cause a duplicate delivery attempt.
func IsParseError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == 400 && strings.Contains(strings.ToLower(apiErr.Description), "can't parse entities")
}

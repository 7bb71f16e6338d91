// Package telegram is a thin Bot API client for the handful of calls this
// service makes: sendMessage and sendPhoto, with forum-topic routing.
//
// It deliberately builds the HTTP calls itself instead of going through a bot
// framework: the delivery contract (omitting message_thread_id for the
// general topic, caption-less photos, resending without parse_mode) must be
// owned here, not inside a library.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"eventsbot/internal/routing"
)

const defaultBaseURL = "https://api.telegram.org"

// ParseModeMarkdownV2 is the only rich-format dialect this service sends.
const ParseModeMarkdownV2 = "MarkdownV2"

// Config configures the client.
type Config struct {
	Token   string
	BaseURL string        // override for tests; default api.telegram.org
	Timeout time.Duration // per-call; default 10s

	// RatePerSec bounds outbound calls (Telegram allows ~30 msg/s overall).
	// 0 means a default of 25.
	RatePerSec int
}

// Client issues Bot API calls. Safe for concurrent use.
type Client struct {
	token   string
	base    string
	http    *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("telegram: token is empty")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 25
	}
	return &Client{
		token:   strings.TrimSpace(cfg.Token),
		base:    base,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}, nil
}

// Button is an inline keyboard button opening a web app.
type Button struct {
	Text   string
	WebApp string
}

// Text is one sendMessage call.
type Text struct {
	ChatID         string
	Thread         routing.ThreadID
	Body           string
	Markdown       bool // parse_mode=MarkdownV2
	DisablePreview bool
	ReplyTo        int // reply_to_message_id; 0 means none
	Keyboard       [][]Button
}

// SendText delivers m and returns the new message id.
func (c *Client) SendText(ctx context.Context, m Text) (int, error) {
	payload := map[string]any{
		"chat_id": m.ChatID,
		"text":    m.Body,
	}
	if v := m.Thread.Value(); v != nil {
		payload["message_thread_id"] = v
	}
	if m.Markdown {
		payload["parse_mode"] = ParseModeMarkdownV2
	}
	if m.DisablePreview {
		payload["disable_web_page_preview"] = true
	}
	if m.ReplyTo != 0 {
		payload["reply_to_message_id"] = m.ReplyTo
	}
	if kb := inlineKeyboard(m.Keyboard); kb != nil {
		payload["reply_markup"] = kb
	}
	return c.callJSON(ctx, "sendMessage", payload)
}

// SendPhotoURL sends a photo the transport fetches itself from a public URL.
func (c *Client) SendPhotoURL(ctx context.Context, dest routing.Destination, photoURL string) (int, error) {
	payload := map[string]any{
		"chat_id": dest.ChatID,
		"photo":   photoURL,
	}
	if v := dest.Thread.Value(); v != nil {
		payload["message_thread_id"] = v
	}
	return c.callJSON(ctx, "sendPhoto", payload)
}

func inlineKeyboard(rows [][]Button) map[string]any {
	if len(rows) == 0 {
		return nil
	}
	kb := make([][]map[string]any, 0, len(rows))
	for _, row := range rows {
		r := make([]map[string]any, 0, len(row))
		for _, b := range row {
			r = append(r, map[string]any{
				"text":    b.Text,
				"web_app": map[string]any{"url": b.WebApp},
			})
		}
		kb = append(kb, r)
	}
	return map[string]any{"inline_keyboard": kb}
}

func (c *Client) callJSON(ctx context.Context, method string, payload any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("telegram: marshal %s: %w", method, err)
	}
	return c.do(ctx, method, "application/json", bytes.NewReader(body))
}

// do posts one Bot API call and decodes the standard response envelope.
func (c *Client) do(ctx context.Context, method, contentType string, body *bytes.Reader) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	url := c.base + "/bot" + c.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()

	var out struct {
		OK          bool   `json:"ok"`
		ErrorCode   int    `json:"error_code"`
		Description string `json:"description"`
		Result      struct {
			MessageID int `json:"message_id"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, &APIError{Code: resp.StatusCode, Description: "malformed response: " + err.Error()}
	}
	if !out.OK {
		code := out.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		desc := out.Description
		if desc == "" {
			desc = resp.Status
		}
		c.log.Warn().Str("method", method).Int("code", code).Str("desc", desc).Msg("bot api call rejected")
		return 0, &APIError{Code: code, Description: desc}
	}
	return out.Result.MessageID, nil
}

package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"eventsbot/internal/metrics"
	"eventsbot/internal/ratelimit"
	"eventsbot/internal/telegram"
)

// secretHeader is set by Telegram on every webhook call when the webhook was
// registered with a secret token.
const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

const welcomeText = "👋 Welcome to Events Bot! Choose what you’d like to do:"

// handleWebhook gates and routes inbound bot updates. The response contract
// is deliberate: rate-limited and ignored updates answer 200 so Telegram
// does not re-deliver them in a retry storm.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	got := r.Header.Get(secretHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(s.opts.WebhookSecret)) != 1 {
		metrics.WebhookRequestsTotal.WithLabelValues("unauthorized").Inc()
		plain(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var upd tele.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		metrics.WebhookRequestsTotal.WithLabelValues("ignored").Inc()
		plain(w, http.StatusOK, "OK (not a message)")
		return
	}
	if upd.Message == nil || upd.Message.Chat == nil || upd.Message.Text == "" {
		metrics.WebhookRequestsTotal.WithLabelValues("ignored").Inc()
		plain(w, http.StatusOK, "OK (not a message)")
		return
	}

	chatID := strconv.FormatInt(upd.Message.Chat.ID, 10)
	if err := s.limiter.Allow(r.Context(), chatID); err != nil {
		if errors.Is(err, ratelimit.ErrLimited) {
			metrics.WebhookRequestsTotal.WithLabelValues("throttled").Inc()
			plain(w, http.StatusOK, "throttled")
			return
		}
		s.log.Error().Str("chat", chatID).Err(err).Msg("rate limit check failed")
		metrics.WebhookRequestsTotal.WithLabelValues("error").Inc()
		plain(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if upd.Message.Text != "/start" {
		metrics.WebhookRequestsTotal.WithLabelValues("ignored").Inc()
		plain(w, http.StatusOK, "Ignored")
		return
	}

	_, err := s.sender.SendText(r.Context(), telegram.Text{
		ChatID: chatID,
		Body:   welcomeText,
		Keyboard: [][]telegram.Button{{
			{Text: "➕ Add Event", WebApp: s.opts.MenuAddURL},
			{Text: "🔍 Search Events", WebApp: s.opts.MenuSearchURL},
		}},
	})
	if err != nil {
		var apiErr *telegram.APIError
		if errors.As(err, &apiErr) {
			s.log.Warn().Str("chat", chatID).Err(err).Msg("menu send rejected")
			metrics.WebhookRequestsTotal.WithLabelValues("error").Inc()
			plain(w, http.StatusInternalServerError, "Telegram error")
			return
		}
		s.log.Error().Str("chat", chatID).Err(err).Msg("menu send failed")
		metrics.WebhookRequestsTotal.WithLabelValues("error").Inc()
		plain(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	metrics.WebhookRequestsTotal.WithLabelValues("sent").Inc()
	plain(w, http.StatusOK, "Message sent")
}

func plain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

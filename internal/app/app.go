// Package app wires the configuration, storage, Telegram client, dispatcher
// and HTTP server into one runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"

	"eventsbot/internal/config"
	"eventsbot/internal/digest"
	"eventsbot/internal/dispatch"
	"eventsbot/internal/images"
	"eventsbot/internal/ratelimit"
	"eventsbot/internal/server"
	"eventsbot/internal/storage"
	"eventsbot/internal/telegram"
)

type App struct {
	cfgm *config.Manager
	log  zerolog.Logger

	store  storage.Store
	digest *digest.Service
	httpd  *http.Server

	errCh chan error
}

func New(cfgPath string) (*App, error) {
	bootLog := newLogger(config.LoggingConfig{Level: "info"})

	cfgm := config.NewManager(cfgPath, bootLog.With().Str("comp", "config").Logger())
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	log := newLogger(cfg.Logging)
	cfgm.OnReload(func(next *config.Config) {
		applyLogLevel(next.Logging.Level)
	})

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: config.Duration(cfg.Storage.BusyTimeout, 0),
	}, log.With().Str("comp", "storage").Logger())
	if err != nil {
		return nil, err
	}

	client, err := telegram.New(telegram.Config{
		Token:      cfg.Telegram.Token,
		BaseURL:    cfg.Telegram.APIBaseURL,
		Timeout:    config.Duration(cfg.Telegram.Timeout, 0),
		RatePerSec: cfg.Telegram.RatePerSec,
	}, log.With().Str("comp", "telegram").Logger())
	if err != nil {
		store.Close()
		return nil, err
	}

	var objects telegram.ObjectStore
	if cfg.Objects.BaseURL != "" {
		objects = images.NewHTTPStore(cfg.Objects.BaseURL, config.Duration(cfg.Objects.Timeout, 15*time.Second))
	}

	dispatcher := dispatch.New(dispatch.Config{
		DefaultChatID: cfg.Telegram.DefaultChatID,
		Location:      loc,
	}, telegram.Delivery{Client: client, Objects: objects},
		store.CategoryDestinations,
		log.With().Str("comp", "dispatch").Logger())

	limiter := ratelimit.New(store, cfg.RateCeiling(), cfg.RatePeriod())

	srv := server.New(server.Options{
		WebhookSecret: cfg.Telegram.WebhookSecret,
		MenuAddURL:    cfg.Telegram.Menu.AddURL,
		MenuSearchURL: cfg.Telegram.Menu.SearchURL,
	}, store, dispatcher, limiter, client, log.With().Str("comp", "http").Logger())

	a := &App{
		cfgm:  cfgm,
		log:   log,
		store: store,
		httpd: &http.Server{
			Addr:              cfg.ListenAddr(),
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		errCh: make(chan error, 1),
	}

	if cfg.Digest.Enabled {
		a.digest = digest.New(digest.Config{
			Schedule: cfg.DigestSchedule(),
			Window:   cfg.DigestWindow(),
			ChatID:   cfg.Telegram.DefaultChatID,
			Location: loc,
		}, store, client, log.With().Str("comp", "digest").Logger())
	}

	return a, nil
}

// Start brings up the config watcher, the digest schedule and the HTTP
// listener. It returns once these are launched; Err reports a later
// listener failure.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.cfgm.Watch(ctx); err != nil {
			a.log.Warn().Err(err).Msg("config watch stopped")
		}
	}()

	if a.digest != nil {
		if err := a.digest.Start(ctx); err != nil {
			return err
		}
	}

	go func() {
		a.log.Info().Str("addr", a.httpd.Addr).Msg("http listening")
		if err := a.httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn().Err(err).Msg("sd_notify failed")
	} else if sent {
		a.log.Debug().Msg("sd_notify ready")
	}
	return nil
}

// Err reports an asynchronous listener failure.
func (a *App) Err() <-chan error { return a.errCh }

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.digest != nil {
		a.digest.Stop()
	}

	var firstErr error
	if err := a.httpd.Shutdown(ctx); err != nil {
		firstErr = err
	}
	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	applyLogLevel(cfg.Level)
	var log zerolog.Logger
	if cfg.Console {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.With().Timestamp().Logger()
}

func applyLogLevel(raw string) {
	if raw == "" {
		raw = "info"
	}
	lvl, err := zerolog.ParseLevel(raw)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

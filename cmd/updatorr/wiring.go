// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/autobrr/updatorr/internal/buildinfo"
	"github.com/autobrr/updatorr/internal/config"
	"github.com/autobrr/updatorr/internal/database"
	"github.com/autobrr/updatorr/internal/deluge"
	"github.com/autobrr/updatorr/internal/models"
	"github.com/autobrr/updatorr/internal/notify"
	"github.com/autobrr/updatorr/internal/panel"
	"github.com/autobrr/updatorr/internal/torrents"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configDir   string
	dataDir     string
	askPassword bool
}

func loadConfig(opts *globalOptions) (*config.AppConfig, error) {
	cfg, err := config.New(opts.configDir, buildinfo.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize configuration: %w", err)
	}

	if opts.dataDir != "" {
		cfg.SetDataDir(opts.dataDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.ApplyLogConfig()
	return cfg, nil
}

func readPassword(prompt string) (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(os.Stderr, prompt)
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(password), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	var password string
	if _, err := fmt.Scanln(&password); err != nil {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	return password, nil
}

// newDelugeClient builds the JSON-RPC client. The password is prompted for
// when asked to, or when none is configured and stdin is a terminal.
func newDelugeClient(cfg *config.AppConfig, askPassword bool) (*deluge.Client, error) {
	password := cfg.Config.DelugePassword
	if askPassword || (password == "" && term.IsTerminal(int(os.Stdin.Fd()))) {
		var err error
		password, err = readPassword("Deluge web password: ")
		if err != nil {
			return nil, err
		}
	}

	return deluge.NewClient(deluge.Config{
		URL:           cfg.Config.DelugeURL,
		Password:      password,
		HostID:        cfg.Config.DelugeHostID,
		Timeout:       cfg.DelugeTimeout(),
		LoginAttempts: cfg.Config.DelugeLoginAttempts,
		TLSSkipVerify: cfg.Config.DelugeTLSSkipVerify,
	})
}

// openActivity opens the history database. Callers treat failure as "no
// history" rather than fatal.
func openActivity(cfg *config.AppConfig) (*database.DB, *models.ActivityStore, error) {
	db, err := database.New(cfg.GetDatabasePath())
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to initialize database")
	}
	return db, models.NewActivityStore(db, cfg.Config.ActivityRetention), nil
}

func checkDaemonVersion(ctx context.Context, client *deluge.Client) {
	version, err := client.DaemonVersion(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Could not determine Deluge daemon version")
		return
	}
	log.Info().Str("daemon", version.String()).Msg("Connected to Deluge")
}

// startWatcher polls plugin events until ctx is done. It returns nil when
// polling is disabled.
func startWatcher(ctx context.Context, cfg *config.AppConfig, source notify.Source, refresh func(context.Context)) *notify.Watcher {
	interval := cfg.EventPollInterval()
	if interval == 0 {
		log.Info().Msg("Plugin event polling disabled")
		return nil
	}

	watcher := notify.NewWatcher(notify.Config{PollInterval: interval, HistorySize: 200}, source)
	if refresh != nil {
		watcher.Subscribe(notify.RefreshOn(refresh))
	}
	watcher.Start(ctx)
	return watcher
}

// clientApp is the wiring shared by the one-shot commands.
type clientApp struct {
	cfg        *config.AppConfig
	client     *deluge.Client
	torrents   *torrents.Service
	db         *database.DB
	activity   *models.ActivityStore
	dispatcher *panel.Dispatcher
}

func newClientApp(ctx context.Context, opts *globalOptions) (*clientApp, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	client, err := newDelugeClient(cfg, opts.askPassword)
	if err != nil {
		return nil, err
	}
	if err := client.Login(ctx); err != nil {
		return nil, errors.Wrapf(err, "could not log in to %s", cfg.Config.DelugeURL)
	}

	app := &clientApp{
		cfg:      cfg,
		client:   client,
		torrents: torrents.NewService(client, cfg.TorrentCacheTTL()),
	}

	var recorders []panel.ActivityRecorder
	if db, store, err := openActivity(cfg); err != nil {
		log.Warn().Err(err).Msg("Activity history disabled")
	} else {
		app.db = db
		app.activity = store
		recorders = append(recorders, store)
	}

	app.dispatcher = panel.NewDispatcher(client, app.torrents, recorders...)
	return app, nil
}

func (a *clientApp) Close() {
	a.torrents.Close()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}
}

// panelHost keeps one panel enabled on a host and swaps it when the menu
// variant changes.
type panelHost struct {
	mu         sync.Mutex
	host       panel.Host
	remote     panel.Remote
	dispatcher *panel.Dispatcher
	dispatch   func(func())

	current *panel.Panel
	variant panel.Variant
}

func newPanelHost(host panel.Host, remote panel.Remote, dispatcher *panel.Dispatcher, dispatch func(func())) *panelHost {
	return &panelHost{
		host:       host,
		remote:     remote,
		dispatcher: dispatcher,
		dispatch:   dispatch,
	}
}

func (h *panelHost) enable(variant panel.Variant) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current != nil {
		if h.variant == variant {
			return nil
		}
		h.current.Disable()
		h.current = nil
	}

	p := panel.New(panel.Config{Variant: variant, Dispatch: h.dispatch}, h.remote, h.dispatcher)
	if err := p.Enable(h.host); err != nil {
		return err
	}

	h.current = p
	h.variant = variant
	log.Info().Str("variant", string(variant)).Msg("Context menu panel enabled")
	return nil
}

func (h *panelHost) disable() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current != nil {
		h.current.Disable()
		h.current = nil
	}
}

// applyReload follows a reloaded menu variant without a restart.
func (h *panelHost) applyReload(variantName string) {
	variant, err := panel.ParseVariant(variantName)
	if err != nil {
		log.Error().Err(err).Msg("Ignoring reloaded menu variant")
		return
	}
	if err := h.enable(variant); err != nil {
		log.Error().Err(err).Msg("Failed to re-enable context menu panel")
	}
}

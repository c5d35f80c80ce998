// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package notify polls the Updatorr plugin's events and fans them out.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/updatorr/internal/deluge"
)

// Source returns the events queued since the previous call.
type Source interface {
	Events(ctx context.Context) ([]deluge.Event, error)
}

// Config controls the poll cadence and how much history is kept.
type Config struct {
	PollInterval time.Duration
	HistorySize  int
}

const defaultHistorySize = 100

// DefaultConfig returns sane defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval: 2 * time.Second,
		HistorySize:  defaultHistorySize,
	}
}

// Watcher polls a Source, logs every event, keeps a bounded history and
// notifies subscribers in arrival order.
type Watcher struct {
	cfg    Config
	source Source
	logger zerolog.Logger

	mu          sync.Mutex
	history     []deluge.Event
	subscribers map[int]func(deluge.Event)
	nextID      int
	failing     bool
}

func NewWatcher(cfg Config, source Source) *Watcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaultHistorySize
	}
	return &Watcher{
		cfg:         cfg,
		source:      source,
		logger:      log.Logger.With().Str("module", "notify").Logger(),
		subscribers: make(map[int]func(deluge.Event)),
	}
}

// Subscribe registers fn for every future event. Subscribers run on the
// polling goroutine and must not block.
func (w *Watcher) Subscribe(fn func(deluge.Event)) (unsubscribe func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.subscribers[id] = fn
	return func() {
		w.mu.Lock()
		delete(w.subscribers, id)
		w.mu.Unlock()
	}
}

// Start launches the polling loop. It stops when ctx is done.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		_ = w.Poll(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll fetches and delivers one round of events. Failures are logged once
// per outage and returned.
func (w *Watcher) Poll(ctx context.Context) error {
	events, err := w.source.Events(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		w.mu.Lock()
		first := !w.failing
		w.failing = true
		w.mu.Unlock()

		if first {
			w.logger.Warn().Err(err).Msg("Failed to poll updatorr events, will keep retrying")
		} else {
			w.logger.Debug().Err(err).Msg("Polling updatorr events still failing")
		}
		return err
	}

	w.mu.Lock()
	if w.failing {
		w.logger.Info().Msg("Polling updatorr events recovered")
	}
	w.failing = false
	w.history = append(w.history, events...)
	if len(w.history) > w.cfg.HistorySize {
		w.history = w.history[len(w.history)-w.cfg.HistorySize:]
	}
	subscribers := make([]func(deluge.Event), 0, len(w.subscribers))
	for id := 0; id < w.nextID; id++ {
		if fn, ok := w.subscribers[id]; ok {
			subscribers = append(subscribers, fn)
		}
	}
	w.mu.Unlock()

	for _, ev := range events {
		w.logEvent(ev)
		for _, fn := range subscribers {
			fn(ev)
		}
	}
	return nil
}

func (w *Watcher) logEvent(ev deluge.Event) {
	var e *zerolog.Event
	if ev.Kind == deluge.EventUpdateError {
		e = w.logger.Warn()
	} else {
		e = w.logger.Info()
	}
	if ev.TorrentID != "" {
		e = e.Str("torrent", ev.TorrentID)
	}
	e.Str("event", string(ev.Kind)).Msg(ev.String())
}

// Recent returns up to limit events, newest first. limit <= 0 returns all.
func (w *Watcher) Recent(limit int) []deluge.Event {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := len(w.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]deluge.Event, 0, n)
	for i := len(w.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, w.history[i])
	}
	return out
}

// RefreshOn returns a subscriber that calls refresh when an event means the
// torrent list may have changed.
func RefreshOn(refresh func(context.Context)) func(deluge.Event) {
	return func(ev deluge.Event) {
		switch ev.Kind {
		case deluge.EventUpdateDone, deluge.EventCheckFinished:
			refresh(context.Background())
		}
	}
}

// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/updatorr/internal/deluge"
)

type scriptedSource struct {
	mu     sync.Mutex
	rounds [][]deluge.Event
	errs   []error
	polls  int
}

func (s *scriptedSource) Events(context.Context) ([]deluge.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.polls
	s.polls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.rounds) {
		return s.rounds[i], nil
	}
	return nil, nil
}

func (s *scriptedSource) pollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

func ev(kind deluge.EventKind, id string) deluge.Event {
	return deluge.Event{Kind: kind, TorrentID: id}
}

func TestPollDeliversInOrder(t *testing.T) {
	source := &scriptedSource{rounds: [][]deluge.Event{
		{ev(deluge.EventCheckStarted, ""), ev(deluge.EventUpdateDone, "h1")},
		{ev(deluge.EventCheckFinished, "")},
	}}
	w := NewWatcher(Config{HistorySize: 10}, source)

	var got []deluge.EventKind
	unsubscribe := w.Subscribe(func(e deluge.Event) { got = append(got, e.Kind) })

	require.NoError(t, w.Poll(context.Background()))
	require.NoError(t, w.Poll(context.Background()))
	assert.Equal(t, []deluge.EventKind{deluge.EventCheckStarted, deluge.EventUpdateDone, deluge.EventCheckFinished}, got)

	unsubscribe()
	source.rounds = append(source.rounds, []deluge.Event{ev(deluge.EventUpdateDone, "h2")})
	require.NoError(t, w.Poll(context.Background()))
	assert.Len(t, got, 3)

	recent := w.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "h2", recent[0].TorrentID)
	assert.Equal(t, deluge.EventCheckFinished, recent[1].Kind)
}

func TestHistoryIsBounded(t *testing.T) {
	source := &scriptedSource{rounds: [][]deluge.Event{
		{ev(deluge.EventUpdateDone, "a"), ev(deluge.EventUpdateDone, "b"), ev(deluge.EventUpdateDone, "c")},
	}}
	w := NewWatcher(Config{HistorySize: 2}, source)

	require.NoError(t, w.Poll(context.Background()))
	recent := w.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].TorrentID)
	assert.Equal(t, "b", recent[1].TorrentID)
}

func TestPollErrorKeepsHistory(t *testing.T) {
	source := &scriptedSource{
		rounds: [][]deluge.Event{{ev(deluge.EventUpdateDone, "a")}, nil, {ev(deluge.EventUpdateError, "b")}},
		errs:   []error{nil, errors.New("connection refused")},
	}
	w := NewWatcher(DefaultConfig(), source)

	require.NoError(t, w.Poll(context.Background()))
	require.Error(t, w.Poll(context.Background()))
	require.NoError(t, w.Poll(context.Background()))

	recent := w.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, deluge.EventUpdateError, recent[0].Kind)
}

func TestStartPollsUntilCancelled(t *testing.T) {
	source := &scriptedSource{}
	w := NewWatcher(Config{PollInterval: 5 * time.Millisecond}, source)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	require.Eventually(t, func() bool { return source.pollCount() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
}

func TestRefreshOn(t *testing.T) {
	var refreshed int
	fn := RefreshOn(func(context.Context) { refreshed++ })

	fn(ev(deluge.EventCheckStarted, ""))
	fn(ev(deluge.EventUpdateError, "a"))
	assert.Zero(t, refreshed)

	fn(ev(deluge.EventUpdateDone, "a"))
	fn(ev(deluge.EventCheckFinished, ""))
	assert.Equal(t, 2, refreshed)
}

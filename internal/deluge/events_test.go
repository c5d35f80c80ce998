// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package deluge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsRegistersOncePerSession(t *testing.T) {
	f, srv := newFakeDeluge(t)
	f.setResult("web.register_event_listener", nil)
	f.setResult("web.get_events", [][]any{
		{"UpdatorrUpdatesCheckStartedEvent", []any{}},
		{"TorrentAddedEvent", []any{"h9", false}},
		{"UpdatorrUpdateDoneEvent", []any{"h1"}},
		{"UpdatorrErrorEvent", []any{"h2", "tracker login failed"}},
		{"UpdatorrUpdatesCheckFinishedEvent", []any{}},
	})
	c := newTestClient(t, srv)

	events, err := c.Events(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, EventCheckStarted, events[0].Kind)
	assert.Equal(t, Event{Kind: EventUpdateDone, TorrentID: "h1", ReceivedAt: events[1].ReceivedAt}, events[1])
	assert.Equal(t, "h2", events[2].TorrentID)
	assert.Equal(t, "tracker login failed", events[2].Message)
	assert.Equal(t, EventCheckFinished, events[3].Kind)

	registered := f.methodCalls("web.register_event_listener")
	require.Len(t, registered, 4)
	assert.JSONEq(t, `"UpdatorrUpdateDoneEvent"`, string(registered[0].Params[0]))

	f.setResult("web.get_events", nil)
	events, err = c.Events(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Len(t, f.methodCalls("web.register_event_listener"), 4)

	// a new session has no listeners, so they are registered again
	require.NoError(t, c.Login(context.Background()))
	_, err = c.Events(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.methodCalls("web.register_event_listener"), 8)
}

func TestParseEventsSkipsMalformed(t *testing.T) {
	raw := [][]json.RawMessage{
		{},
		{json.RawMessage(`42`)},
		{json.RawMessage(`"UpdatorrUpdateDoneEvent"`), json.RawMessage(`"not-a-list"`)},
		{json.RawMessage(`"UpdatorrUpdateDoneEvent"`)},
	}
	now := time.Unix(1700000000, 0).UTC()

	events := parseEvents(raw, now)
	require.Len(t, events, 1)
	assert.Equal(t, Event{Kind: EventUpdateDone, ReceivedAt: now}, events[0])
}

func TestEventString(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{Event{Kind: EventUpdateDone, TorrentID: "h1"}, "Torrent h1 is updated"},
		{Event{Kind: EventUpdateError, TorrentID: "h2", Message: "boom"}, "Update failed for h2: boom"},
		{Event{Kind: EventCheckStarted}, "Updates check is started"},
		{Event{Kind: EventCheckFinished}, "Updates check is finished"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.event.String())
	}
}

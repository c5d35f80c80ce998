// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package deluge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EventKind names an event the Updatorr plugin emits on the daemon.
type EventKind string

const (
	EventUpdateDone    EventKind = "UpdatorrUpdateDoneEvent"
	EventUpdateError   EventKind = "UpdatorrErrorEvent"
	EventCheckStarted  EventKind = "UpdatorrUpdatesCheckStartedEvent"
	EventCheckFinished EventKind = "UpdatorrUpdatesCheckFinishedEvent"
)

// EventKinds lists every plugin event, in registration order.
func EventKinds() []EventKind {
	return []EventKind{EventUpdateDone, EventUpdateError, EventCheckStarted, EventCheckFinished}
}

// Event is one plugin event fetched from the web ui's event queue.
type Event struct {
	Kind       EventKind `json:"kind" yaml:"kind"`
	TorrentID  string    `json:"torrentId,omitempty" yaml:"torrentId,omitempty"`
	Message    string    `json:"message,omitempty" yaml:"message,omitempty"`
	ReceivedAt time.Time `json:"receivedAt" yaml:"receivedAt"`
}

func (e Event) String() string {
	switch e.Kind {
	case EventUpdateDone:
		return fmt.Sprintf("Torrent %s is updated", e.TorrentID)
	case EventUpdateError:
		return fmt.Sprintf("Update failed for %s: %s", e.TorrentID, e.Message)
	case EventCheckStarted:
		return "Updates check is started"
	case EventCheckFinished:
		return "Updates check is finished"
	}
	return string(e.Kind)
}

// Events returns plugin events queued since the previous call. Listeners are
// registered on first use and again after every new login session.
func (c *Client) Events(ctx context.Context) ([]Event, error) {
	if err := c.registerEventListeners(ctx); err != nil {
		return nil, err
	}

	var raw [][]json.RawMessage
	if err := c.Call(ctx, "web.get_events", nil, &raw); err != nil {
		return nil, err
	}
	return parseEvents(raw, time.Now().UTC()), nil
}

func (c *Client) registerEventListeners(ctx context.Context) error {
	if !c.loggedIn.Load() {
		if err := c.Login(ctx); err != nil {
			return err
		}
	}

	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()

	session := c.session.Load()
	if c.eventsSession == session {
		return nil
	}

	for _, kind := range EventKinds() {
		if err := c.Call(ctx, "web.register_event_listener", []any{string(kind)}, nil); err != nil {
			return errors.Wrapf(err, "could not listen for %s", kind)
		}
	}
	c.eventsSession = session
	log.Debug().Int64("session", session).Msg("Registered updatorr event listeners")
	return nil
}

// parseEvents decodes [[name, [args...]], ...]. Events of other plugins and
// malformed entries are skipped.
func parseEvents(raw [][]json.RawMessage, now time.Time) []Event {
	events := make([]Event, 0, len(raw))
	for _, entry := range raw {
		if len(entry) == 0 {
			continue
		}

		var name string
		if err := json.Unmarshal(entry[0], &name); err != nil {
			continue
		}

		var args []json.RawMessage
		if len(entry) > 1 {
			if err := json.Unmarshal(entry[1], &args); err != nil {
				log.Debug().Err(err).Str("event", name).Msg("Skipping event with unreadable arguments")
				continue
			}
		}

		ev := Event{Kind: EventKind(name), ReceivedAt: now}
		switch ev.Kind {
		case EventUpdateDone:
			ev.TorrentID = stringArg(args, 0)
		case EventUpdateError:
			ev.TorrentID = stringArg(args, 0)
			ev.Message = stringArg(args, 1)
		case EventCheckStarted, EventCheckFinished:
		default:
			continue
		}
		events = append(events, ev)
	}
	return events
}

func stringArg(args []json.RawMessage, i int) string {
	if i >= len(args) {
		return ""
	}
	var s string
	if err := json.Unmarshal(args[i], &s); err != nil {
		return ""
	}
	return s
}

// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package deluge

import (
	"context"
	"sort"

	"github.com/autobrr/updatorr/internal/panel"
)

var torrentStatusKeys = []string{"name", "state", "progress", panel.StatusColumnID}

// Torrent is one row of the torrent list with the plugin's status column.
type Torrent struct {
	ID       string             `json:"id" yaml:"id"`
	Name     string             `json:"name" yaml:"name"`
	State    string             `json:"state" yaml:"state"`
	Progress float64            `json:"progress" yaml:"progress"`
	Update   panel.UpdateStatus `json:"update" yaml:"update"`
}

// Entity returns the selection snapshot entry for this torrent.
func (t Torrent) Entity() panel.Entity {
	return panel.Entity{ID: t.ID, UpdateStatus: t.Update}
}

type torrentStatus struct {
	Name     string  `json:"name"`
	State    string  `json:"state"`
	Progress float64 `json:"progress"`
	Updatorr string  `json:"Updatorr"`
}

// Torrents returns the given torrents, or every torrent when ids is empty,
// sorted by name.
func (c *Client) Torrents(ctx context.Context, ids ...string) ([]Torrent, error) {
	filter := map[string]any{}
	if len(ids) > 0 {
		filter["id"] = ids
	}

	var raw map[string]torrentStatus
	if err := c.Call(ctx, "core.get_torrents_status", []any{filter, torrentStatusKeys}, &raw); err != nil {
		return nil, err
	}

	out := make([]Torrent, 0, len(raw))
	for id, st := range raw {
		out = append(out, Torrent{
			ID:       id,
			Name:     st.Name,
			State:    st.State,
			Progress: st.Progress,
			Update:   panel.ParseUpdateStatus(st.Updatorr),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

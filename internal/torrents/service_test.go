// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrents

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/updatorr/internal/deluge"
	"github.com/autobrr/updatorr/internal/panel"
)

type fakeSource struct {
	mu       sync.Mutex
	torrents []deluge.Torrent
	calls    int
	err      error
}

func (f *fakeSource) Torrents(_ context.Context, ids ...string) ([]deluge.Torrent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(ids) == 0 {
		return append([]deluge.Torrent(nil), f.torrents...), nil
	}
	var out []deluge.Torrent
	for _, t := range f.torrents {
		for _, id := range ids {
			if t.ID == id {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func sampleTorrents() []deluge.Torrent {
	return []deluge.Torrent{
		{ID: "aaa111", Name: "Some.Show.S01E01.1080p", State: "Seeding", Update: panel.UpdateStatusOn},
		{ID: "bbb222", Name: "Another_Movie_2024", State: "Paused", Update: panel.UpdateStatusOff},
		{ID: "ccc333", Name: "Linux ISO", State: "Downloading"},
	}
}

func TestListIsCachedUntilRefresh(t *testing.T) {
	source := &fakeSource{torrents: sampleTorrents()}
	svc := NewService(source, time.Minute)
	defer svc.Close()
	ctx := context.Background()

	list, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, list, 3)

	_, err = svc.List(ctx, "linux")
	require.NoError(t, err)
	assert.Equal(t, 1, source.callCount())

	refreshed := make(chan struct{}, 1)
	svc.OnRefresh(func() { refreshed <- struct{}{} })
	svc.Refresh(ctx)
	<-refreshed

	_, err = svc.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, source.callCount())
}

func TestListError(t *testing.T) {
	source := &fakeSource{err: errors.New("daemon offline")}
	svc := NewService(source, time.Minute)
	defer svc.Close()

	_, err := svc.List(context.Background(), "")
	assert.EqualError(t, err, "daemon offline")
}

func TestResolveKeepsSelectionOrder(t *testing.T) {
	source := &fakeSource{torrents: sampleTorrents()}
	svc := NewService(source, time.Minute)
	defer svc.Close()

	entities, err := svc.Resolve(context.Background(), []string{"ccc333", "missing", "aaa111"})
	require.NoError(t, err)
	assert.Equal(t, []panel.Entity{
		{ID: "ccc333", UpdateStatus: panel.UpdateStatusUnknown},
		{ID: "missing", UpdateStatus: panel.UpdateStatusUnknown},
		{ID: "aaa111", UpdateStatus: panel.UpdateStatusOn},
	}, entities)

	empty, err := svc.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, 1, source.callCount())
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "empty query", query: "", want: []string{"aaa111", "bbb222", "ccc333"}},
		{name: "substring", query: "show", want: []string{"aaa111"}},
		{name: "normalized separators", query: "another movie", want: []string{"bbb222"}},
		{name: "state", query: "paused", want: []string{"bbb222"}},
		{name: "id prefix", query: "ccc", want: []string{"ccc333"}},
		{name: "fuzzy", query: "lnx iso", want: []string{"ccc333"}},
		{name: "no match", query: "zzzz", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, torrent := range Filter(sampleTorrents(), tt.query) {
				got = append(got, torrent.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCell(t *testing.T) {
	torrent := deluge.Torrent{ID: "x", Name: "Some.Show", State: "Seeding", Progress: 42.5, Update: panel.UpdateStatusOn}

	assert.Equal(t, "Some.Show", Cell(torrent, ColumnName))
	assert.Equal(t, "Seeding", Cell(torrent, ColumnState))
	assert.Equal(t, "42.5%", Cell(torrent, ColumnProgress))
	assert.Equal(t, "On", Cell(torrent, panel.StatusColumnID))
	assert.Empty(t, Cell(torrent, "ratio"))
	assert.Len(t, Columns(), 3)
}

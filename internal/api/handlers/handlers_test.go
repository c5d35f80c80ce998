// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/updatorr/internal/deluge"
	"github.com/autobrr/updatorr/internal/menu"
	"github.com/autobrr/updatorr/internal/models"
	"github.com/autobrr/updatorr/internal/panel"
	"github.com/autobrr/updatorr/internal/selection"
)

type fakeRemote struct {
	mu      sync.Mutex
	walking bool
	failFor map[string]bool
	toggled map[string]bool
	walks   []panel.WalkTarget
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{failFor: map[string]bool{}, toggled: map[string]bool{}}
}

func (f *fakeRemote) SetUpdateEnabled(_ context.Context, id string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[id] {
		return errors.New("torrent not found")
	}
	f.toggled[id] = enabled
	return nil
}

func (f *fakeRemote) IsWalking(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.walking, nil
}

func (f *fakeRemote) RunWalker(_ context.Context, target panel.WalkTarget) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.walks = append(f.walks, target)
	return nil
}

func (f *fakeRemote) toggledSnapshot() map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool, len(f.toggled))
	for k, v := range f.toggled {
		out[k] = v
	}
	return out
}

type fakeTorrents struct {
	list       []deluge.Torrent
	err        error
	refreshes  int
	lastQuery  string
	resolveErr error
}

func (f *fakeTorrents) List(_ context.Context, query string) ([]deluge.Torrent, error) {
	f.lastQuery = query
	return f.list, f.err
}

func (f *fakeTorrents) Resolve(_ context.Context, ids []string) ([]panel.Entity, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	byID := make(map[string]deluge.Torrent, len(f.list))
	for _, t := range f.list {
		byID[t.ID] = t
	}
	out := make([]panel.Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id].Entity())
	}
	return out, nil
}

func (f *fakeTorrents) Refresh(context.Context) { f.refreshes++ }

type menuFixture struct {
	remote   *fakeRemote
	torrents *fakeTorrents
	handler  *MenuHandler
}

func newMenuFixture(t *testing.T) *menuFixture {
	t.Helper()

	remote := newFakeRemote()
	remote.walking = true
	torrents := &fakeTorrents{list: []deluge.Torrent{
		{ID: "a", Name: "alpha", Update: panel.UpdateStatusOn},
		{ID: "b", Name: "bravo", Update: panel.UpdateStatusOff},
		{ID: "c", Name: "charlie", Update: panel.UpdateStatusOff},
	}}

	model := menu.New()
	holder := selection.NewHolder()
	dispatcher := panel.NewDispatcher(remote, nil)
	p := panel.New(panel.Config{Variant: panel.VariantExtended}, remote, dispatcher)
	require.NoError(t, p.Enable(panel.Host{Menu: model, Columns: menu.NewColumns(), Selection: holder}))
	t.Cleanup(p.Disable)

	return &menuFixture{
		remote:   remote,
		torrents: torrents,
		handler:  NewMenuHandler(torrents, holder, model, time.Second),
	}
}

func (f *menuFixture) show(t *testing.T, ids ...string) (*httptest.ResponseRecorder, MenuResponse) {
	t.Helper()
	body, err := json.Marshal(map[string]any{"ids": ids})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	f.handler.ShowMenu(rec, httptest.NewRequest(http.MethodPost, "/api/menu", bytes.NewReader(body)))

	var resp MenuResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func (f *menuFixture) click(id int) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]int{"id": id})
	rec := httptest.NewRecorder()
	f.handler.ClickMenu(rec, httptest.NewRequest(http.MethodPost, "/api/menu/click", bytes.NewReader(body)))
	return rec
}

func TestShowMenu(t *testing.T) {
	f := newMenuFixture(t)

	rec, resp := f.show(t, "a", "b", "c")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Settled)
	require.Len(t, resp.Items, 4)

	assert.True(t, resp.Items[0].Separator)
	assert.Equal(t, panel.LabelEnable, resp.Items[1].Label)
	assert.Equal(t, panel.LabelUpdatesInProgress, resp.Items[2].Label)
	assert.False(t, resp.Items[2].Enabled)
	assert.Equal(t, panel.LabelUpdatesInProgress, resp.Items[3].Label)
	assert.False(t, resp.Items[3].Enabled)

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	body := strings.NewReader(`{"ids":["a","b","c"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/menu", body)
	req.Header.Set("If-None-Match", etag)
	again := httptest.NewRecorder()
	f.handler.ShowMenu(again, req)
	assert.Equal(t, http.StatusNotModified, again.Code)
}

func TestShowMenuEmptySelectionHidesToggle(t *testing.T) {
	f := newMenuFixture(t)
	f.remote.walking = false

	rec, resp := f.show(t)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, panel.LabelRunSelected, resp.Items[0].Label)
	assert.True(t, resp.Items[0].Enabled)
	assert.Equal(t, panel.LabelRunAll, resp.Items[1].Label)
}

func TestShowMenuResolveError(t *testing.T) {
	f := newMenuFixture(t)
	f.torrents.resolveErr = errors.New("daemon offline")

	rec, _ := f.show(t, "a")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestShowMenuInvalidPayload(t *testing.T) {
	f := newMenuFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ShowMenu(rec, httptest.NewRequest(http.MethodPost, "/api/menu", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClickMenuTogglesSelection(t *testing.T) {
	f := newMenuFixture(t)

	_, resp := f.show(t, "b", "c")
	require.Len(t, resp.Items, 4)
	toggle := resp.Items[1]
	require.Equal(t, panel.LabelEnable, toggle.Label)

	rec := f.click(toggle.ID)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	assert.Eventually(t, func() bool {
		return len(f.remote.toggledSnapshot()) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, map[string]bool{"b": true, "c": true}, f.remote.toggledSnapshot())
}

func TestClickMenuErrors(t *testing.T) {
	f := newMenuFixture(t)

	_, resp := f.show(t, "a")
	require.Len(t, resp.Items, 4)
	toggleID := resp.Items[1].ID
	runSelectedID := resp.Items[2].ID

	assert.Equal(t, http.StatusNotFound, f.click(9999).Code)
	// walking: run controls are disabled
	assert.Equal(t, http.StatusConflict, f.click(runSelectedID).Code)

	_, _ = f.show(t)
	assert.Equal(t, http.StatusConflict, f.click(toggleID).Code)
}

func TestAutoupdateToggle(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		failFor    []string
		wantStatus int
		want       BatchResponse
	}{
		{
			name:       "enable",
			body:       `{"ids":["x","y"],"enable":true}`,
			wantStatus: http.StatusOK,
			want:       BatchResponse{Action: panel.ActionToggleOn, Issued: 2},
		},
		{
			name:       "empty_selection",
			body:       `{"ids":[],"enable":false}`,
			wantStatus: http.StatusOK,
			want:       BatchResponse{Action: panel.ActionToggleOff},
		},
		{
			name:       "partial_failure",
			body:       `{"ids":["x","y"],"enable":false}`,
			failFor:    []string{"y"},
			wantStatus: http.StatusBadGateway,
			want:       BatchResponse{Action: panel.ActionToggleOff, Issued: 2, Failed: 1},
		},
		{
			name:       "invalid_payload",
			body:       `{"ids":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := newFakeRemote()
			for _, id := range tt.failFor {
				remote.failFor[id] = true
			}
			h := NewAutoupdateHandler(panel.NewDispatcher(remote, nil), nil)

			rec := httptest.NewRecorder()
			h.Toggle(rec, httptest.NewRequest(http.MethodPost, "/api/autoupdate/toggle", strings.NewReader(tt.body)))
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusBadRequest {
				return
			}

			var got BatchResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want.Action, got.Action)
			assert.Equal(t, tt.want.Issued, got.Issued)
			assert.Equal(t, tt.want.Failed, got.Failed)
			if tt.want.Failed > 0 {
				assert.Contains(t, got.Error, "y")
			}
		})
	}
}

func TestAutoupdateRun(t *testing.T) {
	remote := newFakeRemote()
	h := NewAutoupdateHandler(panel.NewDispatcher(remote, nil), nil)

	rec := httptest.NewRecorder()
	h.Run(rec, httptest.NewRequest(http.MethodPost, "/api/autoupdate/run", strings.NewReader(`{"ids":["x"]}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.RunAll(rec, httptest.NewRequest(http.MethodPost, "/api/autoupdate/run-all", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	remote.mu.Lock()
	defer remote.mu.Unlock()
	require.Len(t, remote.walks, 2)
	assert.Equal(t, []string{"x"}, remote.walks[0].IDs())
	assert.True(t, remote.walks[1].All())
}

type fakeStatus struct {
	status deluge.PluginStatus
	err    error
}

func (f fakeStatus) Status(context.Context) (deluge.PluginStatus, error) { return f.status, f.err }

func TestAutoupdateStatus(t *testing.T) {
	h := NewAutoupdateHandler(nil, fakeStatus{status: deluge.PluginStatus{WalkPeriodHours: 12, Walking: true}})
	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/autoupdate/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got deluge.PluginStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 12, got.WalkPeriodHours)
	assert.True(t, got.Walking)

	h = NewAutoupdateHandler(nil, fakeStatus{err: errors.New("plugin not enabled")})
	rec = httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/autoupdate/status", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestListTorrents(t *testing.T) {
	torrents := &fakeTorrents{list: []deluge.Torrent{{ID: "a", Name: "alpha", Update: panel.UpdateStatusOn}}}
	columns := menu.NewColumns(panel.Column{ID: "name", Title: "Name"})
	require.NoError(t, columns.RegisterColumn(panel.Column{ID: panel.StatusColumnID, Title: panel.StatusColumnID, Hidden: true}))
	h := NewTorrentsHandler(torrents, columns)

	rec := httptest.NewRecorder()
	h.ListTorrents(rec, httptest.NewRequest(http.MethodGet, "/api/torrents?q=alp", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alp", torrents.lastQuery)

	var got TorrentListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Columns, 2)
	assert.True(t, got.Columns[1].Hidden)
	require.Len(t, got.Torrents, 1)
	assert.Equal(t, panel.UpdateStatusOn, got.Torrents[0].Update)

	torrents.err = errors.New("connection refused")
	rec = httptest.NewRecorder()
	h.ListTorrents(rec, httptest.NewRequest(http.MethodGet, "/api/torrents", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSetColumnVisibility(t *testing.T) {
	columns := menu.NewColumns(panel.Column{ID: panel.StatusColumnID, Title: panel.StatusColumnID, Hidden: true})
	torrents := &fakeTorrents{}
	h := NewTorrentsHandler(torrents, columns)

	r := chi.NewRouter()
	r.Put("/api/columns/{columnID}", h.SetColumnVisibility)
	r.Post("/api/torrents/refresh", h.RefreshTorrents)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/columns/Updatorr", strings.NewReader(`{"hidden":false}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, columns.List()[0].Hidden)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/columns/nope", strings.NewReader(`{"hidden":true}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/torrents/refresh", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, torrents.refreshes)
}

type fakeActivity struct {
	limit int
	err   error
}

func (f *fakeActivity) List(_ context.Context, limit int) ([]*models.Activity, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []*models.Activity{{ID: 1, Action: string(panel.ActionRunAll)}}, nil
}

func TestActivityList(t *testing.T) {
	store := &fakeActivity{}
	h := NewActivityHandler(store)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/activity?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, store.limit)

	var got []models.Activity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "run_all", got[0].Action)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/activity?limit=ten", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	store.err = errors.New("disk full")
	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/activity", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

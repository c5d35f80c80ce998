// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/updatorr/internal/menu"
	"github.com/autobrr/updatorr/internal/panel"
)

// SelectionSetter receives the resolved selection before the menu is shown.
type SelectionSetter interface {
	Set(entities []panel.Entity)
}

// MenuHandler drives show and click cycles of the shared menu model. One
// mutex serializes them the way a UI event loop would.
type MenuHandler struct {
	mu        sync.Mutex
	torrents  TorrentLister
	selection SelectionSetter
	menu      *menu.Model
	busyWait  time.Duration
}

func NewMenuHandler(torrents TorrentLister, selection SelectionSetter, model *menu.Model, busyWait time.Duration) *MenuHandler {
	return &MenuHandler{
		torrents:  torrents,
		selection: selection,
		menu:      model,
		busyWait:  busyWait,
	}
}

type showMenuRequest struct {
	IDs []string `json:"ids"`
}

type MenuResponse struct {
	Items []menu.Item `json:"items"`
	// Settled is false when the busy query had not answered within the wait.
	Settled bool `json:"settled"`
}

// ShowMenu resolves the selection, runs the before-show handlers and returns
// the visible items.
func (h *MenuHandler) ShowMenu(w http.ResponseWriter, r *http.Request) {
	var req showMenuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	resp, err := h.show(r.Context(), req.IDs)
	if err != nil {
		log.Error().Err(err).Int("selected", len(req.IDs)).Msg("failed to resolve selection")
		RespondError(w, http.StatusBadGateway, "Failed to resolve selection")
		return
	}

	body, err := json.Marshal(resp)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "Failed to encode menu")
		return
	}

	etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *MenuHandler) show(ctx context.Context, ids []string) (MenuResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entities := []panel.Entity{}
	if len(ids) > 0 {
		resolved, err := h.torrents.Resolve(ctx, ids)
		if err != nil {
			return MenuResponse{}, err
		}
		entities = resolved
	}
	h.selection.Set(entities)

	settled := h.menu.Show(ctx)

	timer := time.NewTimer(h.busyWait)
	defer timer.Stop()

	resp := MenuResponse{}
	select {
	case <-settled:
		resp.Settled = true
	case <-timer.C:
	case <-ctx.Done():
	}

	resp.Items = h.menu.Items(true)
	return resp, nil
}

type clickMenuRequest struct {
	ID int `json:"id"`
}

// ClickMenu activates an item against the selection of the last show.
func (h *MenuHandler) ClickMenu(w http.ResponseWriter, r *http.Request) {
	var req clickMenuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	h.mu.Lock()
	// the click outlives the request
	err := h.menu.Click(context.WithoutCancel(r.Context()), req.ID)
	h.mu.Unlock()

	switch {
	case errors.Is(err, menu.ErrUnknownItem):
		RespondError(w, http.StatusNotFound, "Menu item not found")
	case errors.Is(err, menu.ErrItemDisabled):
		RespondError(w, http.StatusConflict, "Menu item is not available")
	case err != nil:
		RespondError(w, http.StatusInternalServerError, "Failed to activate menu item")
	default:
		RespondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/updatorr/internal/deluge"
	"github.com/autobrr/updatorr/internal/menu"
	"github.com/autobrr/updatorr/internal/panel"
)

// TorrentLister lists torrents and resolves selections into snapshots.
type TorrentLister interface {
	List(ctx context.Context, query string) ([]deluge.Torrent, error)
	Resolve(ctx context.Context, ids []string) ([]panel.Entity, error)
	Refresh(ctx context.Context)
}

// ColumnRegistry is the torrent list's column set.
type ColumnRegistry interface {
	List() []panel.Column
	SetHidden(id string, hidden bool) error
}

type TorrentsHandler struct {
	torrents TorrentLister
	columns  ColumnRegistry
}

func NewTorrentsHandler(torrents TorrentLister, columns ColumnRegistry) *TorrentsHandler {
	return &TorrentsHandler{
		torrents: torrents,
		columns:  columns,
	}
}

type TorrentListResponse struct {
	Columns  []panel.Column   `json:"columns"`
	Torrents []deluge.Torrent `json:"torrents"`
}

// ListTorrents returns the torrent list, optionally filtered by ?q=.
func (h *TorrentsHandler) ListTorrents(w http.ResponseWriter, r *http.Request) {
	list, err := h.torrents.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		log.Error().Err(err).Msg("failed to list torrents")
		RespondError(w, http.StatusBadGateway, "Failed to load torrents from Deluge")
		return
	}
	if list == nil {
		list = []deluge.Torrent{}
	}

	RespondJSON(w, http.StatusOK, TorrentListResponse{
		Columns:  h.columns.List(),
		Torrents: list,
	})
}

// RefreshTorrents drops the cached list.
func (h *TorrentsHandler) RefreshTorrents(w http.ResponseWriter, r *http.Request) {
	h.torrents.Refresh(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type columnVisibilityRequest struct {
	Hidden bool `json:"hidden"`
}

// SetColumnVisibility shows or hides a registered column.
func (h *TorrentsHandler) SetColumnVisibility(w http.ResponseWriter, r *http.Request) {
	var req columnVisibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	id := chi.URLParam(r, "columnID")
	if err := h.columns.SetHidden(id, req.Hidden); err != nil {
		if errors.Is(err, menu.ErrUnknownColumn) {
			RespondError(w, http.StatusNotFound, "Column not found")
			return
		}
		log.Error().Err(err).Str("column", id).Msg("failed to update column visibility")
		RespondError(w, http.StatusInternalServerError, "Failed to update column")
		return
	}

	RespondJSON(w, http.StatusOK, h.columns.List())
}

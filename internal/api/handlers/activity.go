// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/updatorr/internal/models"
)

type ActivityLister interface {
	List(ctx context.Context, limit int) ([]*models.Activity, error)
}

type ActivityHandler struct {
	store ActivityLister
}

func NewActivityHandler(store ActivityLister) *ActivityHandler {
	return &ActivityHandler{store: store}
}

func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			RespondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	entries, err := h.store.List(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list activity")
		RespondError(w, http.StatusInternalServerError, "Failed to load activity")
		return
	}
	if entries == nil {
		entries = []*models.Activity{}
	}

	RespondJSON(w, http.StatusOK, entries)
}

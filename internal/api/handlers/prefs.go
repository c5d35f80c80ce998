// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/updatorr/internal/deluge"
)

// PrefsStore reads and writes the plugin preferences.
type PrefsStore interface {
	Config(ctx context.Context) (deluge.PluginConfig, error)
	UpdateConfig(ctx context.Context, u deluge.ConfigUpdate) (deluge.PluginConfig, error)
	TestLogin(ctx context.Context, domain, login, password string) (bool, error)
}

// EventSource lists recently received plugin events, newest first.
type EventSource interface {
	Recent(limit int) []deluge.Event
}

type PrefsHandler struct {
	prefs PrefsStore
}

func NewPrefsHandler(prefs PrefsStore) *PrefsHandler {
	return &PrefsHandler{prefs: prefs}
}

func (h *PrefsHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.prefs.Config(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to get updatorr config")
		RespondError(w, http.StatusBadGateway, "Failed to get plugin preferences from Deluge")
		return
	}

	RespondJSON(w, http.StatusOK, cfg.Redacted())
}

func (h *PrefsHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req deluge.ConfigUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	cfg, err := h.prefs.UpdateConfig(r.Context(), req)
	switch {
	case errors.Is(err, deluge.ErrInvalidWalkPeriod), errors.Is(err, deluge.ErrUnknownTracker):
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Msg("failed to update updatorr config")
		RespondError(w, http.StatusBadGateway, "Failed to save plugin preferences to Deluge")
		return
	}

	RespondJSON(w, http.StatusOK, cfg.Redacted())
}

type testLoginRequest struct {
	Domain   string `json:"domain"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

type TestLoginResponse struct {
	Success bool `json:"success"`
}

func (h *PrefsHandler) TestLogin(w http.ResponseWriter, r *http.Request) {
	var req testLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if strings.TrimSpace(req.Domain) == "" {
		RespondError(w, http.StatusBadRequest, "domain is required")
		return
	}

	ok, err := h.prefs.TestLogin(r.Context(), req.Domain, req.Login, req.Password)
	if err != nil {
		log.Error().Err(err).Str("domain", req.Domain).Msg("failed to test tracker login")
		RespondError(w, http.StatusBadGateway, "Failed to test tracker login through Deluge")
		return
	}

	RespondJSON(w, http.StatusOK, TestLoginResponse{Success: ok})
}

type EventsHandler struct {
	source EventSource
}

func NewEventsHandler(source EventSource) *EventsHandler {
	return &EventsHandler{source: source}
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			RespondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	events := h.source.Recent(limit)
	if events == nil {
		events = []deluge.Event{}
	}
	RespondJSON(w, http.StatusOK, events)
}

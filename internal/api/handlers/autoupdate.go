// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/updatorr/internal/deluge"
	"github.com/autobrr/updatorr/internal/panel"
)

// BatchDispatcher issues autoupdate commands.
type BatchDispatcher interface {
	Toggle(ctx context.Context, enable bool, ids []string) *panel.Batch
	RunSelected(ctx context.Context, ids []string) *panel.Batch
	RunAll(ctx context.Context) *panel.Batch
}

// StatusSource reports the plugin's walker status.
type StatusSource interface {
	Status(ctx context.Context) (deluge.PluginStatus, error)
}

type AutoupdateHandler struct {
	dispatcher BatchDispatcher
	status     StatusSource
}

func NewAutoupdateHandler(dispatcher BatchDispatcher, status StatusSource) *AutoupdateHandler {
	return &AutoupdateHandler{
		dispatcher: dispatcher,
		status:     status,
	}
}

type toggleRequest struct {
	IDs    []string `json:"ids"`
	Enable bool     `json:"enable"`
}

type runRequest struct {
	IDs []string `json:"ids"`
}

type BatchResponse struct {
	Action  panel.Action `json:"action"`
	Issued  int          `json:"issued"`
	Failed  int          `json:"failed"`
	Pending bool         `json:"pending,omitempty"`
	Error   string       `json:"error,omitempty"`
}

func (h *AutoupdateHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	batch := h.dispatcher.Toggle(context.WithoutCancel(r.Context()), req.Enable, req.IDs)
	respondBatch(w, r, batch)
}

func (h *AutoupdateHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	batch := h.dispatcher.RunSelected(context.WithoutCancel(r.Context()), req.IDs)
	respondBatch(w, r, batch)
}

func (h *AutoupdateHandler) RunAll(w http.ResponseWriter, r *http.Request) {
	batch := h.dispatcher.RunAll(context.WithoutCancel(r.Context()))
	respondBatch(w, r, batch)
}

func (h *AutoupdateHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.status.Status(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to get updatorr status")
		RespondError(w, http.StatusBadGateway, "Failed to get plugin status from Deluge")
		return
	}

	RespondJSON(w, http.StatusOK, status)
}

// respondBatch waits for the batch while the client is connected. A client
// that goes away leaves the batch running.
func respondBatch(w http.ResponseWriter, r *http.Request, batch *panel.Batch) {
	select {
	case <-batch.Done():
	case <-r.Context().Done():
		RespondJSON(w, http.StatusAccepted, BatchResponse{
			Action:  batch.Action(),
			Issued:  batch.Issued(),
			Failed:  batch.Failed(),
			Pending: true,
		})
		return
	}

	resp := BatchResponse{
		Action: batch.Action(),
		Issued: batch.Issued(),
		Failed: batch.Failed(),
	}
	if err := batch.Err(); err != nil {
		resp.Error = err.Error()
		RespondJSON(w, http.StatusBadGateway, resp)
		return
	}

	RespondJSON(w, http.StatusOK, resp)
}

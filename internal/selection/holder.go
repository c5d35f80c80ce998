// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package selection

import (
	"slices"
	"sync"

	"github.com/autobrr/updatorr/internal/panel"
)

// Holder keeps the host's current selection. Readers get a copy.
type Holder struct {
	mu       sync.RWMutex
	entities []panel.Entity
}

func NewHolder() *Holder {
	return &Holder{}
}

// Set replaces the selection.
func (h *Holder) Set(entities []panel.Entity) {
	h.mu.Lock()
	h.entities = slices.Clone(entities)
	h.mu.Unlock()
}

func (h *Holder) Clear() {
	h.Set(nil)
}

func (h *Holder) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entities)
}

func (h *Holder) CurrentSelection() []panel.Entity {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.entities)
}

func (h *Holder) CurrentSelectedIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.entities))
	for _, e := range h.entities {
		ids = append(ids, e.ID)
	}
	return ids
}

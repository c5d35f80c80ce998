// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package menu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/autobrr/updatorr/internal/panel"
)

var ErrUnknownColumn = errors.New("column not found")

// Columns is the torrent list's column set.
type Columns struct {
	mu      sync.RWMutex
	columns []panel.Column
}

// NewColumns seeds the registry with the host's built-in columns.
func NewColumns(builtin ...panel.Column) *Columns {
	return &Columns{columns: append([]panel.Column(nil), builtin...)}
}

func (c *Columns) RegisterColumn(col panel.Column) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.columns {
		if existing.ID == col.ID {
			return fmt.Errorf("column %q already registered", col.ID)
		}
	}
	c.columns = append(c.columns, col)
	return nil
}

func (c *Columns) DeregisterColumn(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for idx, col := range c.columns {
		if col.ID == id {
			c.columns = append(c.columns[:idx], c.columns[idx+1:]...)
			return
		}
	}
}

// SetHidden shows or hides a registered column.
func (c *Columns) SetHidden(id string, hidden bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for idx := range c.columns {
		if c.columns[idx].ID == id {
			c.columns[idx].Hidden = hidden
			return nil
		}
	}
	return ErrUnknownColumn
}

// Has reports whether a column with the given id is registered.
func (c *Columns) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, col := range c.columns {
		if col.ID == id {
			return true
		}
	}
	return false
}

// List returns the registered columns in order.
func (c *Columns) List() []panel.Column {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]panel.Column(nil), c.columns...)
}

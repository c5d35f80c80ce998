// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/autobrr/updatorr/internal/panel"
)

func TestHolder(t *testing.T) {
	h := NewHolder()
	assert.Empty(t, h.CurrentSelection())
	assert.Empty(t, h.CurrentSelectedIDs())

	input := []panel.Entity{
		{ID: "b", UpdateStatus: panel.UpdateStatusOff},
		{ID: "a", UpdateStatus: panel.UpdateStatusOn},
	}
	h.Set(input)
	input[0].ID = "mutated"

	assert.Equal(t, []string{"b", "a"}, h.CurrentSelectedIDs())
	assert.Equal(t, 2, h.Len())

	snapshot := h.CurrentSelection()
	snapshot[1].UpdateStatus = panel.UpdateStatusOff
	assert.Equal(t, panel.UpdateStatusOn, h.CurrentSelection()[1].UpdateStatus)

	h.Clear()
	assert.Zero(t, h.Len())
}

// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrents

import (
	"fmt"

	"github.com/autobrr/updatorr/internal/deluge"
	"github.com/autobrr/updatorr/internal/panel"
)

const (
	ColumnName     = "name"
	ColumnState    = "state"
	ColumnProgress = "progress"
)

// Columns are the list's built-in columns, in display order.
func Columns() []panel.Column {
	return []panel.Column{
		{ID: ColumnName, Title: "Name"},
		{ID: ColumnState, Title: "State"},
		{ID: ColumnProgress, Title: "Progress"},
	}
}

// Cell renders one column of a torrent. Unknown columns render empty.
func Cell(t deluge.Torrent, columnID string) string {
	switch columnID {
	case ColumnName:
		return t.Name
	case ColumnState:
		return t.State
	case ColumnProgress:
		return fmt.Sprintf("%.1f%%", t.Progress)
	case panel.StatusColumnID:
		return string(t.Update)
	}
	return ""
}

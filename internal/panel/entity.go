// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package panel

import "strings"

// UpdateStatus is the value of the plugin's status column for a torrent.
type UpdateStatus string

const (
	UpdateStatusOn      UpdateStatus = "On"
	UpdateStatusOff     UpdateStatus = "Off"
	UpdateStatusUnknown UpdateStatus = ""
)

// ParseUpdateStatus maps a raw status column value onto a known status.
// Anything other than On or Off is unknown.
func ParseUpdateStatus(raw string) UpdateStatus {
	switch strings.TrimSpace(raw) {
	case string(UpdateStatusOn):
		return UpdateStatusOn
	case string(UpdateStatusOff):
		return UpdateStatusOff
	default:
		return UpdateStatusUnknown
	}
}

// Known reports whether the status carries a value.
func (s UpdateStatus) Known() bool {
	return s == UpdateStatusOn || s == UpdateStatusOff
}

// Entity is a read-only snapshot of a selected torrent.
type Entity struct {
	ID           string       `json:"id"`
	UpdateStatus UpdateStatus `json:"updateStatus"`
}

// Summary aggregates a selection snapshot.
type Summary struct {
	// Any is true when at least one entity has autoupdates on.
	Any bool
	// Relevant is true when at least one entity has a known status.
	Relevant bool
	// Balance is +1 per entity that is On and -1 for every other entity.
	Balance int
	Count   int
}

// Summarize scans the selection once.
func Summarize(selection []Entity) Summary {
	var s Summary
	for _, e := range selection {
		s.Count++
		if e.UpdateStatus.Known() {
			s.Relevant = true
		}
		if e.UpdateStatus == UpdateStatusOn {
			s.Any = true
			s.Balance++
			continue
		}
		s.Balance--
	}
	return s
}

// ToggleLabel picks the toggle's label. Ties lean towards disable.
func (s Summary) ToggleLabel() string {
	if s.Balance < 0 {
		return LabelEnable
	}
	return LabelDisable
}

// ToggleVisible reports whether the separator and toggle should be shown.
func (s Summary) ToggleVisible(variant Variant) bool {
	if variant == VariantMinimal {
		return s.Any
	}
	return s.Relevant
}

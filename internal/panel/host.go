// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package panel

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Fixed menu labels.
const (
	LabelEnable            = "Enable autoupdates"
	LabelDisable           = "Disable autoupdates"
	LabelRunSelected       = "Check updates for selected"
	LabelRunAll            = "Check updates for scheduled"
	LabelUpdatesInProgress = "Torrent updates in progress..."
)

// StatusColumnID is the hidden column carrying UpdateStatus values.
const StatusColumnID = "Updatorr"

// Variant selects which controls the panel adds to the menu.
type Variant string

const (
	VariantMinimal  Variant = "minimal"
	VariantExtended Variant = "extended"
)

// ParseVariant accepts "minimal" or "extended" in any case. Empty means extended.
func ParseVariant(raw string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(VariantExtended):
		return VariantExtended, nil
	case string(VariantMinimal):
		return VariantMinimal, nil
	default:
		return "", fmt.Errorf("unknown menu variant %q", raw)
	}
}

// Remote is the plugin's command surface.
type Remote interface {
	SetUpdateEnabled(ctx context.Context, id string, enabled bool) error
	IsWalking(ctx context.Context) (bool, error)
	RunWalker(ctx context.Context, target WalkTarget) error
}

// SelectionProvider exposes the host's current selection.
type SelectionProvider interface {
	CurrentSelection() []Entity
	CurrentSelectedIDs() []string
}

// Control is a single menu entry.
type Control interface {
	SetVisible(visible bool)
	SetLabel(label string)
	SetEnabled(enabled bool)
	Label() string
}

// ShowHandler runs before the menu becomes visible. The returned channel, if
// non-nil, is closed once any asynchronous presentation update has applied.
type ShowHandler func(ctx context.Context) <-chan struct{}

// Menu is the host's context menu.
type Menu interface {
	AddSeparator() Control
	AddItem(label string, onClick func(ctx context.Context)) Control
	Remove(c Control)
	// OnBeforeShow subscribes fn and returns a function that unsubscribes it.
	OnBeforeShow(fn ShowHandler) (unsubscribe func())
}

// Column describes a torrent list column.
type Column struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Hidden bool   `json:"hidden"`
}

// ColumnRegistry is the host's torrent list column set.
type ColumnRegistry interface {
	RegisterColumn(col Column) error
	DeregisterColumn(id string)
}

// Refresher asks the host to re-render status columns.
type Refresher interface {
	Refresh(ctx context.Context)
}

// RefreshFunc adapts a plain function to Refresher.
type RefreshFunc func(ctx context.Context)

func (f RefreshFunc) Refresh(ctx context.Context) { f(ctx) }

// ActivityRecorder receives every finished batch.
type ActivityRecorder interface {
	RecordBatch(ctx context.Context, result BatchResult)
}

// Host bundles the collaborators a panel attaches to.
type Host struct {
	Menu      Menu
	Columns   ColumnRegistry
	Selection SelectionProvider
}

// WalkTarget is either an explicit id list or every scheduled torrent.
// The zero value targets nothing.
type WalkTarget struct {
	all bool
	ids []string
}

// AllTargets returns the all-sentinel.
func AllTargets() WalkTarget {
	return WalkTarget{all: true}
}

// Targets returns a target for the given ids.
func Targets(ids ...string) WalkTarget {
	return WalkTarget{ids: slices.Clone(ids)}
}

func (t WalkTarget) All() bool { return t.all }

func (t WalkTarget) IDs() []string { return slices.Clone(t.ids) }

func (t WalkTarget) String() string {
	if t.all {
		return "all"
	}
	return strings.Join(t.ids, ",")
}

// MarshalJSON encodes the all-sentinel as true and an id list as an array,
// which is what run_walker(force) accepts.
func (t WalkTarget) MarshalJSON() ([]byte, error) {
	if t.all {
		return []byte("true"), nil
	}
	if t.ids == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.ids)
}

func (t *WalkTarget) UnmarshalJSON(data []byte) error {
	var all bool
	if err := json.Unmarshal(data, &all); err == nil {
		*t = WalkTarget{all: all}
		return nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("walk target must be true or a list of ids: %w", err)
	}
	*t = WalkTarget{ids: ids}
	return nil
}

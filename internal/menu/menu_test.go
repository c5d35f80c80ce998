// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package menu

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/updatorr/internal/panel"
)

func TestModelClick(t *testing.T) {
	m := New()
	var clicks atomic.Int32
	sep := m.AddSeparator()
	item := m.AddItem("Do it", func(context.Context) { clicks.Add(1) })

	items := m.Items(false)
	require.Len(t, items, 2)
	assert.True(t, items[0].Separator)
	assert.Equal(t, "Do it", items[1].Label)

	require.NoError(t, m.Click(context.Background(), items[1].ID))
	assert.Equal(t, int32(1), clicks.Load())

	assert.ErrorIs(t, m.Click(context.Background(), items[0].ID), ErrItemDisabled)
	assert.ErrorIs(t, m.Click(context.Background(), 999), ErrUnknownItem)

	item.SetEnabled(false)
	assert.ErrorIs(t, m.Click(context.Background(), items[1].ID), ErrItemDisabled)

	item.SetEnabled(true)
	item.SetVisible(false)
	assert.ErrorIs(t, m.Click(context.Background(), items[1].ID), ErrItemDisabled)
	assert.Len(t, m.Items(true), 1)

	m.Remove(sep)
	m.Remove(item)
	assert.Empty(t, m.Items(false))
}

func TestModelShowWaitsForHandlers(t *testing.T) {
	m := New()
	release := make(chan struct{})
	unsubscribe := m.OnBeforeShow(func(context.Context) <-chan struct{} { return release })
	m.OnBeforeShow(func(context.Context) <-chan struct{} { return nil })
	assert.Equal(t, 2, m.Subscribers())

	settled := m.Show(context.Background())
	select {
	case <-settled:
		t.Fatal("show settled before its handler finished")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	select {
	case <-settled:
	case <-time.After(5 * time.Second):
		t.Fatal("show never settled")
	}

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 1, m.Subscribers())
}

func TestColumns(t *testing.T) {
	c := NewColumns(panel.Column{ID: "name", Title: "Name"})

	require.NoError(t, c.RegisterColumn(panel.Column{ID: "Updatorr", Hidden: true}))
	assert.Error(t, c.RegisterColumn(panel.Column{ID: "Updatorr"}))
	assert.True(t, c.Has("Updatorr"))

	require.NoError(t, c.SetHidden("Updatorr", false))
	assert.False(t, c.List()[1].Hidden)
	assert.ErrorIs(t, c.SetHidden("missing", true), ErrUnknownColumn)

	c.DeregisterColumn("Updatorr")
	assert.False(t, c.Has("Updatorr"))
	assert.Len(t, c.List(), 1)
}

type stubRemote struct {
	walking bool
}

func (stubRemote) SetUpdateEnabled(context.Context, string, bool) error { return nil }
func (r stubRemote) IsWalking(context.Context) (bool, error)           { return r.walking, nil }
func (stubRemote) RunWalker(context.Context, panel.WalkTarget) error    { return nil }

type fixedSelection []panel.Entity

func (s fixedSelection) CurrentSelection() []panel.Entity { return s }

func (s fixedSelection) CurrentSelectedIDs() []string {
	ids := make([]string, 0, len(s))
	for _, e := range s {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestPanelOnModel(t *testing.T) {
	remote := stubRemote{walking: true}
	p := panel.New(panel.Config{Variant: panel.VariantExtended}, remote,
		panel.NewDispatcher(remote, nil))
	m := New()
	columns := NewColumns()
	selection := fixedSelection{{ID: "a", UpdateStatus: panel.UpdateStatusOn}}

	require.NoError(t, p.Enable(panel.Host{Menu: m, Columns: columns, Selection: selection}))

	select {
	case <-m.Show(context.Background()):
	case <-time.After(5 * time.Second):
		t.Fatal("show never settled")
	}

	items := m.Items(false)
	require.Len(t, items, 4)
	assert.True(t, items[0].Visible)
	assert.Equal(t, panel.LabelDisable, items[1].Label)
	assert.Equal(t, panel.LabelUpdatesInProgress, items[2].Label)
	assert.False(t, items[2].Enabled)
	assert.False(t, items[3].Enabled)
	assert.ErrorIs(t, m.Click(context.Background(), items[3].ID), ErrItemDisabled)

	p.Disable()
	assert.Empty(t, m.Items(false))
	assert.Zero(t, m.Subscribers())
	assert.False(t, columns.Has(panel.StatusColumnID))
}

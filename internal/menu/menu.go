// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package menu is an in-memory context menu shared by the HTTP and terminal hosts.
package menu

import (
	"context"
	"errors"
	"sync"

	"github.com/autobrr/updatorr/internal/panel"
)

var (
	ErrUnknownItem  = errors.New("menu item not found")
	ErrItemDisabled = errors.New("menu item is hidden or disabled")
)

// Item is a point-in-time view of a menu entry.
type Item struct {
	ID        int    `json:"id"`
	Separator bool   `json:"separator,omitempty"`
	Label     string `json:"label,omitempty"`
	Visible   bool   `json:"visible"`
	Enabled   bool   `json:"enabled"`
}

type item struct {
	model     *Model
	id        int
	separator bool
	label     string
	visible   bool
	enabled   bool
	onClick   func(ctx context.Context)
}

func (i *item) SetVisible(visible bool) {
	i.model.mu.Lock()
	i.visible = visible
	i.model.mu.Unlock()
}

func (i *item) SetLabel(label string) {
	i.model.mu.Lock()
	i.label = label
	i.model.mu.Unlock()
}

func (i *item) SetEnabled(enabled bool) {
	i.model.mu.Lock()
	i.enabled = enabled
	i.model.mu.Unlock()
}

func (i *item) Label() string {
	i.model.mu.Lock()
	defer i.model.mu.Unlock()
	return i.label
}

// Model holds menu entries and before-show subscribers.
type Model struct {
	mu          sync.Mutex
	items       []*item
	nextItem    int
	handlers    map[int]panel.ShowHandler
	nextHandler int
}

func New() *Model {
	return &Model{handlers: make(map[int]panel.ShowHandler)}
}

func (m *Model) AddSeparator() panel.Control {
	return m.add(&item{separator: true, visible: true, enabled: true})
}

func (m *Model) AddItem(label string, onClick func(ctx context.Context)) panel.Control {
	return m.add(&item{label: label, visible: true, enabled: true, onClick: onClick})
}

func (m *Model) add(it *item) panel.Control {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextItem++
	it.id = m.nextItem
	it.model = m
	m.items = append(m.items, it)
	return it
}

func (m *Model) Remove(c panel.Control) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for idx, it := range m.items {
		if panel.Control(it) == c {
			m.items = append(m.items[:idx], m.items[idx+1:]...)
			return
		}
	}
}

func (m *Model) OnBeforeShow(fn panel.ShowHandler) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextHandler++
	id := m.nextHandler
	m.handlers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.handlers, id)
			m.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active before-show subscriptions.
func (m *Model) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

// Show runs every before-show handler. The returned channel is closed once all
// asynchronous presentation updates have applied.
func (m *Model) Show(ctx context.Context) <-chan struct{} {
	m.mu.Lock()
	handlers := make([]panel.ShowHandler, 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()

	var pending []<-chan struct{}
	for _, h := range handlers {
		if done := h(ctx); done != nil {
			pending = append(pending, done)
		}
	}

	settled := make(chan struct{})
	go func() {
		for _, done := range pending {
			<-done
		}
		close(settled)
	}()
	return settled
}

// Click runs the click handler of a visible, enabled item.
func (m *Model) Click(ctx context.Context, id int) error {
	m.mu.Lock()
	var target *item
	for _, it := range m.items {
		if it.id == id {
			target = it
			break
		}
	}
	if target == nil {
		m.mu.Unlock()
		return ErrUnknownItem
	}
	if target.separator || !target.visible || !target.enabled || target.onClick == nil {
		m.mu.Unlock()
		return ErrItemDisabled
	}
	onClick := target.onClick
	m.mu.Unlock()

	onClick(ctx)
	return nil
}

// Items returns a copy of the menu in insertion order.
func (m *Model) Items(visibleOnly bool) []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Item, 0, len(m.items))
	for _, it := range m.items {
		if visibleOnly && !it.visible {
			continue
		}
		out = append(out, Item{
			ID:        it.id,
			Separator: it.separator,
			Label:     it.label,
			Visible:   it.visible,
			Enabled:   it.enabled,
		})
	}
	return out
}

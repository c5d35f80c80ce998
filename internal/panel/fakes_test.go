// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package panel

import (
	"context"
	"sync"
)

type toggleCall struct {
	id      string
	enabled bool
}

type fakeRemote struct {
	mu        sync.Mutex
	toggles   []toggleCall
	walks     []WalkTarget
	walking   bool
	walkErr   error
	toggleErr map[string]error
	// gates blocks SetUpdateEnabled for an id until the channel is closed
	gates    map[string]chan struct{}
	returned chan string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		toggleErr: map[string]error{},
		gates:     map[string]chan struct{}{},
		returned:  make(chan string, 64),
	}
}

func (f *fakeRemote) SetUpdateEnabled(_ context.Context, id string, enabled bool) error {
	f.mu.Lock()
	f.toggles = append(f.toggles, toggleCall{id: id, enabled: enabled})
	gate := f.gates[id]
	err := f.toggleErr[id]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	f.returned <- id
	return err
}

func (f *fakeRemote) IsWalking(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.walking, f.walkErr
}

func (f *fakeRemote) RunWalker(_ context.Context, target WalkTarget) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.walks = append(f.walks, target)
	return nil
}

func (f *fakeRemote) toggleCalls() []toggleCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]toggleCall(nil), f.toggles...)
}

func (f *fakeRemote) walkCalls() []WalkTarget {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]WalkTarget(nil), f.walks...)
}

type countingRefresher struct {
	mu    sync.Mutex
	count int
}

func (r *countingRefresher) Refresh(context.Context) {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
}

func (r *countingRefresher) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

type recordingRecorder struct {
	mu      sync.Mutex
	results []BatchResult
}

func (r *recordingRecorder) RecordBatch(_ context.Context, result BatchResult) {
	r.mu.Lock()
	r.results = append(r.results, result)
	r.mu.Unlock()
}

type staticSelection struct {
	entities []Entity
}

func (s *staticSelection) CurrentSelection() []Entity { return s.entities }

func (s *staticSelection) CurrentSelectedIDs() []string {
	ids := make([]string, 0, len(s.entities))
	for _, e := range s.entities {
		ids = append(ids, e.ID)
	}
	return ids
}

type fakeControl struct {
	mu        sync.Mutex
	separator bool
	label     string
	visible   bool
	enabled   bool
	onClick   func(ctx context.Context)
}

func (c *fakeControl) SetVisible(v bool) { c.mu.Lock(); c.visible = v; c.mu.Unlock() }
func (c *fakeControl) SetLabel(l string) { c.mu.Lock(); c.label = l; c.mu.Unlock() }
func (c *fakeControl) SetEnabled(e bool) { c.mu.Lock(); c.enabled = e; c.mu.Unlock() }

func (c *fakeControl) Label() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.label
}

func (c *fakeControl) state() (label string, visible, enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.label, c.visible, c.enabled
}

type fakeMenu struct {
	controls []*fakeControl
	handlers map[int]ShowHandler
	nextID   int
}

func newFakeMenu() *fakeMenu {
	return &fakeMenu{handlers: map[int]ShowHandler{}}
}

func (m *fakeMenu) AddSeparator() Control {
	c := &fakeControl{separator: true, enabled: true}
	m.controls = append(m.controls, c)
	return c
}

func (m *fakeMenu) AddItem(label string, onClick func(ctx context.Context)) Control {
	c := &fakeControl{label: label, enabled: true, onClick: onClick}
	m.controls = append(m.controls, c)
	return c
}

func (m *fakeMenu) Remove(ctl Control) {
	for i, c := range m.controls {
		if Control(c) == ctl {
			m.controls = append(m.controls[:i], m.controls[i+1:]...)
			return
		}
	}
}

func (m *fakeMenu) OnBeforeShow(fn ShowHandler) func() {
	id := m.nextID
	m.nextID++
	m.handlers[id] = fn
	return func() { delete(m.handlers, id) }
}

func (m *fakeMenu) show(ctx context.Context) {
	for _, h := range m.handlers {
		if done := h(ctx); done != nil {
			<-done
		}
	}
}

type fakeColumns struct {
	columns map[string]Column
}

func (c *fakeColumns) RegisterColumn(col Column) error {
	if c.columns == nil {
		c.columns = map[string]Column{}
	}
	c.columns[col.ID] = col
	return nil
}

func (c *fakeColumns) DeregisterColumn(id string) { delete(c.columns, id) }

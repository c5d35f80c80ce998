// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/autobrr/updatorr/internal/deluge"
)

// applyMsg carries a presentation update onto the program's event loop.
type applyMsg struct {
	fn func()
}

// reloadMsg asks the model to reload the torrent list.
type reloadMsg struct{}

// noticeMsg replaces the status line.
type noticeMsg struct {
	text string
}

// Bridge hands work from background goroutines to a running program. Before
// a program is attached, or after it has exited, work runs inline.
type Bridge struct {
	mu      sync.RWMutex
	program *tea.Program
}

func NewBridge() *Bridge {
	return &Bridge{}
}

// SetProgram attaches the program that receives dispatched work.
func (b *Bridge) SetProgram(p *tea.Program) {
	b.mu.Lock()
	b.program = p
	b.mu.Unlock()
}

// Dispatch runs fn on the program's event loop.
func (b *Bridge) Dispatch(fn func()) {
	b.mu.RLock()
	p := b.program
	b.mu.RUnlock()

	if p == nil {
		fn()
		return
	}
	p.Send(applyMsg{fn: fn})
}

// Reload asks the program to reload the torrent list. It never blocks, so it
// is safe to call from the event loop itself.
func (b *Bridge) Reload() {
	b.mu.RLock()
	p := b.program
	b.mu.RUnlock()

	if p != nil {
		go p.Send(reloadMsg{})
	}
}

// Notify shows a plugin event in the status line. Like Reload it never blocks.
func (b *Bridge) Notify(ev deluge.Event) {
	b.mu.RLock()
	p := b.program
	b.mu.RUnlock()

	if p != nil {
		go p.Send(noticeMsg{text: ev.String()})
	}
}

// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Action names what a batch did.
type Action string

const (
	ActionToggleOn    Action = "toggle_on"
	ActionToggleOff   Action = "toggle_off"
	ActionRunSelected Action = "run_selected"
	ActionRunAll      Action = "run_all"
)

func toggleAction(enable bool) Action {
	if enable {
		return ActionToggleOn
	}
	return ActionToggleOff
}

// BatchResult is handed to activity recorders once a batch has finished.
type BatchResult struct {
	Action     Action
	Targets    int
	Issued     int
	Failed     int
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Batch tracks the remote calls issued for one user action.
type Batch struct {
	action  Action
	targets int
	done    chan struct{}

	mu     sync.Mutex
	issued int
	errs   []error
}

func newBatch(action Action, targets int) *Batch {
	return &Batch{
		action:  action,
		targets: targets,
		done:    make(chan struct{}),
	}
}

func completedBatch(action Action) *Batch {
	b := newBatch(action, 0)
	close(b.done)
	return b
}

func (b *Batch) Action() Action { return b.action }

// Done is closed once every issued call has completed.
func (b *Batch) Done() <-chan struct{} { return b.done }

// Wait blocks until the batch finishes or ctx is done.
func (b *Batch) Wait(ctx context.Context) error {
	select {
	case <-b.done:
		return b.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Issued is the number of remote calls started so far.
func (b *Batch) Issued() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issued
}

// Failed is the number of remote calls that returned an error.
func (b *Batch) Failed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.errs)
}

// Err joins the errors of every failed call.
func (b *Batch) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return errors.Join(b.errs...)
}

func (b *Batch) markIssued() {
	b.mu.Lock()
	b.issued++
	b.mu.Unlock()
}

func (b *Batch) fail(target string, err error) {
	b.mu.Lock()
	b.errs = append(b.errs, fmt.Errorf("%s: %w", target, err))
	b.mu.Unlock()
}

func (b *Batch) result(started, finished time.Time) BatchResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BatchResult{
		Action:     b.action,
		Targets:    b.targets,
		Issued:     b.issued,
		Failed:     len(b.errs),
		Err:        errors.Join(b.errs...),
		StartedAt:  started,
		FinishedAt: finished,
	}
}

// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package panel

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Controls holds the menu entries owned by an enabled panel. Run controls are
// nil in the minimal variant.
type Controls struct {
	Separator   Control
	Toggle      Control
	RunSelected Control
	RunAll      Control
}

func (c *Controls) all() []Control {
	if c == nil {
		return nil
	}
	out := make([]Control, 0, 4)
	for _, ctl := range []Control{c.Separator, c.Toggle, c.RunSelected, c.RunAll} {
		if ctl != nil {
			out = append(out, ctl)
		}
	}
	return out
}

func (c *Controls) runControls() []Control {
	if c == nil {
		return nil
	}
	var out []Control
	if c.RunSelected != nil {
		out = append(out, c.RunSelected)
	}
	if c.RunAll != nil {
		out = append(out, c.RunAll)
	}
	return out
}

const defaultBusyQueryTimeout = 15 * time.Second

// Synchronizer recomputes control presentation before the menu is shown.
type Synchronizer struct {
	variant      Variant
	remote       Remote
	selection    SelectionProvider
	dispatch     func(func())
	queryTimeout time.Duration
}

// NewSynchronizer builds a synchronizer. dispatch marshals asynchronous
// updates onto the host's event loop; nil runs them inline on the query goroutine.
func NewSynchronizer(variant Variant, remote Remote, selection SelectionProvider, dispatch func(func())) *Synchronizer {
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	return &Synchronizer{
		variant:      variant,
		remote:       remote,
		selection:    selection,
		dispatch:     dispatch,
		queryTimeout: defaultBusyQueryTimeout,
	}
}

// OnBeforeShow applies the toggle presentation synchronously, then queries the
// busy flag in the background. The returned channel is closed once the run
// controls reflect the busy flag, or once the query has failed.
func (s *Synchronizer) OnBeforeShow(ctx context.Context, controls *Controls) <-chan struct{} {
	done := make(chan struct{})
	if controls == nil {
		close(done)
		return done
	}

	summary := Summarize(s.selection.CurrentSelection())
	visible := summary.ToggleVisible(s.variant)
	if controls.Separator != nil {
		controls.Separator.SetVisible(visible)
	}
	if controls.Toggle != nil {
		controls.Toggle.SetLabel(summary.ToggleLabel())
		controls.Toggle.SetVisible(visible)
	}

	runControls := controls.runControls()
	if len(runControls) == 0 {
		close(done)
		return done
	}

	// the busy query outlives a request-scoped show event
	queryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.queryTimeout)
	go func() {
		defer cancel()
		busy, err := s.remote.IsWalking(queryCtx)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to query walker state, leaving run controls untouched")
			close(done)
			return
		}
		s.dispatch(func() {
			applyBusy(controls, busy)
			close(done)
		})
	}()

	return done
}

func applyBusy(controls *Controls, busy bool) {
	if controls.RunSelected != nil {
		controls.RunSelected.SetLabel(runLabel(LabelRunSelected, busy))
		controls.RunSelected.SetEnabled(!busy)
	}
	if controls.RunAll != nil {
		controls.RunAll.SetLabel(runLabel(LabelRunAll, busy))
		controls.RunAll.SetEnabled(!busy)
	}
}

func runLabel(idle string, busy bool) string {
	if busy {
		return LabelUpdatesInProgress
	}
	return idle
}

// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package panel implements the autoupdate context menu: keeping its controls in
// sync with the selection and dispatching toggle and walker commands.
package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

var ErrIncompleteHost = errors.New("panel host requires a menu, column registry and selection provider")

// Config controls which controls the panel adds and how async updates are applied.
type Config struct {
	Variant Variant
	// Dispatch marshals asynchronous presentation updates onto the host's event loop.
	Dispatch func(func())
}

// Panel owns the controls, subscriptions and column it adds to a host.
type Panel struct {
	cfg        Config
	remote     Remote
	dispatcher *Dispatcher

	mu       sync.Mutex
	host     *Host
	controls *Controls
	tokens   []func()
}

func New(cfg Config, remote Remote, dispatcher *Dispatcher) *Panel {
	if cfg.Variant == "" {
		cfg.Variant = VariantExtended
	}
	return &Panel{
		cfg:        cfg,
		remote:     remote,
		dispatcher: dispatcher,
	}
}

// Enabled reports whether the panel is attached to a host.
func (p *Panel) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.host != nil
}

// Controls returns the controls added on Enable, or nil when disabled.
func (p *Panel) Controls() *Controls {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.controls
}

// Enable adds the panel's controls to host, subscribes to before-show events
// and registers the hidden status column. Enabling twice is a no-op.
func (p *Panel) Enable(host Host) error {
	if host.Menu == nil || host.Columns == nil || host.Selection == nil {
		return ErrIncompleteHost
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.host != nil {
		return nil
	}

	if err := host.Columns.RegisterColumn(Column{ID: StatusColumnID, Title: StatusColumnID, Hidden: true}); err != nil {
		return fmt.Errorf("register status column: %w", err)
	}

	controls := &Controls{}
	controls.Separator = host.Menu.AddSeparator()
	controls.Toggle = host.Menu.AddItem(LabelDisable, func(ctx context.Context) {
		enable := controls.Toggle.Label() == LabelEnable
		p.dispatcher.Toggle(ctx, enable, host.Selection.CurrentSelectedIDs())
	})
	if p.cfg.Variant == VariantExtended {
		controls.RunSelected = host.Menu.AddItem(LabelRunSelected, func(ctx context.Context) {
			p.dispatcher.RunSelected(ctx, host.Selection.CurrentSelectedIDs())
		})
		controls.RunAll = host.Menu.AddItem(LabelRunAll, func(ctx context.Context) {
			p.dispatcher.RunAll(ctx)
		})
	}
	for _, ctl := range controls.all() {
		ctl.SetVisible(false)
	}
	// run controls are always visible in the extended variant
	for _, ctl := range controls.runControls() {
		ctl.SetVisible(true)
	}

	synchronizer := NewSynchronizer(p.cfg.Variant, p.remote, host.Selection, p.cfg.Dispatch)
	unsubscribe := host.Menu.OnBeforeShow(func(ctx context.Context) <-chan struct{} {
		return synchronizer.OnBeforeShow(ctx, controls)
	})

	p.host = &host
	p.controls = controls
	p.tokens = append(p.tokens, unsubscribe)

	log.Debug().Str("variant", string(p.cfg.Variant)).Int("controls", len(controls.all())).Msg("Panel enabled")
	return nil
}

// Disable releases every subscription, removes every control and deregisters
// the status column. Disabling a disabled panel is a no-op.
func (p *Panel) Disable() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.host == nil {
		return
	}

	for _, unsubscribe := range p.tokens {
		if unsubscribe != nil {
			unsubscribe()
		}
	}
	p.tokens = nil

	for _, ctl := range p.controls.all() {
		p.host.Menu.Remove(ctl)
	}
	p.host.Columns.DeregisterColumn(StatusColumnID)

	p.host = nil
	p.controls = nil

	log.Debug().Msg("Panel disabled")
}

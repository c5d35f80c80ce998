// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package panel

import (
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
)

// Dispatcher fans one user action out to per-torrent remote calls and
// reports the whole batch through a single refresh.
type Dispatcher struct {
	remote    Remote
	refresher Refresher
	recorders []ActivityRecorder
	now       func() time.Time
	spawn     func(func())
}

// NewDispatcher constructs a Dispatcher. refresher may be nil.
func NewDispatcher(remote Remote, refresher Refresher, recorders ...ActivityRecorder) *Dispatcher {
	return &Dispatcher{
		remote:    remote,
		refresher: refresher,
		recorders: recorders,
		now:       time.Now,
		spawn:     func(fn func()) { go fn() },
	}
}

// Toggle sets the autoupdate flag for every id. ids is copied before any call
// is issued, and calls are issued one at a time in ids order off the caller's
// goroutine. The refresher runs exactly once, after every call has completed.
// An empty ids slice is a no-op and the returned batch is already done.
func (d *Dispatcher) Toggle(ctx context.Context, enable bool, ids []string) *Batch {
	action := toggleAction(enable)
	if len(ids) == 0 {
		log.Debug().Str("action", string(action)).Msg("Toggle requested with empty selection, nothing to do")
		return completedBatch(action)
	}

	ids = slices.Clone(ids)
	batch := newBatch(action, len(ids))
	started := d.now()

	d.spawn(func() {
		for _, id := range ids {
			batch.markIssued()
			if err := d.remote.SetUpdateEnabled(ctx, id, enable); err != nil {
				log.Error().Err(err).Str("torrent", id).Bool("enable", enable).Msg("Failed to set autoupdate flag")
				batch.fail(id, err)
			}
		}

		if d.refresher != nil {
			d.refresher.Refresh(ctx)
		}
		d.finish(ctx, batch, started)
	})

	return batch
}

// RunSelected asks the plugin to check the given torrents for updates now.
// An empty ids slice is a no-op.
func (d *Dispatcher) RunSelected(ctx context.Context, ids []string) *Batch {
	if len(ids) == 0 {
		return completedBatch(ActionRunSelected)
	}
	return d.runWalker(ctx, ActionRunSelected, Targets(ids...), len(ids))
}

// RunAll asks the plugin to check every scheduled torrent now.
func (d *Dispatcher) RunAll(ctx context.Context) *Batch {
	return d.runWalker(ctx, ActionRunAll, AllTargets(), 0)
}

func (d *Dispatcher) runWalker(ctx context.Context, action Action, target WalkTarget, targets int) *Batch {
	batch := newBatch(action, targets)
	started := d.now()

	d.spawn(func() {
		batch.markIssued()
		if err := d.remote.RunWalker(ctx, target); err != nil {
			log.Error().Err(err).Str("target", target.String()).Msg("Failed to start update walker")
			batch.fail("walker", err)
		}
		d.finish(ctx, batch, started)
	})

	return batch
}

func (d *Dispatcher) finish(ctx context.Context, batch *Batch, started time.Time) {
	result := batch.result(started, d.now())
	log.Debug().
		Str("action", string(result.Action)).
		Int("targets", result.Targets).
		Int("failed", result.Failed).
		Dur("took", result.FinishedAt.Sub(result.StartedAt)).
		Msg("Batch finished")

	for _, rec := range d.recorders {
		if rec != nil {
			rec.RecordBatch(context.WithoutCancel(ctx), result)
		}
	}
	close(batch.done)
}

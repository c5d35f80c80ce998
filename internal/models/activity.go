// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/updatorr/internal/dbinterface"
	"github.com/autobrr/updatorr/internal/panel"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 1000
	// prune after this many inserts
	activityPruneEvery = 25
)

// Activity is one dispatched batch.
type Activity struct {
	ID          int64     `json:"id" yaml:"id"`
	Action      string    `json:"action" yaml:"action"`
	TargetCount int       `json:"targetCount" yaml:"targetCount"`
	FailedCount int       `json:"failedCount" yaml:"failedCount"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMs  int64     `json:"durationMs" yaml:"durationMs"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
}

// ActivityStore persists batch history and trims it to a retention count.
type ActivityStore struct {
	db        dbinterface.Querier
	retention int
	inserts   atomic.Int64
}

// NewActivityStore creates a store. retention <= 0 keeps every row.
func NewActivityStore(db dbinterface.Querier, retention int) *ActivityStore {
	return &ActivityStore{db: db, retention: retention}
}

// Record inserts a row and fills in its id.
func (s *ActivityStore) Record(ctx context.Context, a *Activity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.CreatedAt = a.CreatedAt.UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO activity (action, target_count, failed_count, error, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.Action, a.TargetCount, a.FailedCount, a.Error, a.DurationMs, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("activity id: %w", err)
	}
	a.ID = id
	return nil
}

// List returns the newest rows first.
func (s *ActivityStore) List(ctx context.Context, limit int) ([]*Activity, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, target_count, failed_count, error, duration_ms, created_at
		FROM activity ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	result := make([]*Activity, 0, limit)
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.Action, &a.TargetCount, &a.FailedCount, &a.Error, &a.DurationMs, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		result = append(result, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Prune deletes everything but the newest keep rows.
func (s *ActivityStore) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM activity WHERE id NOT IN (SELECT id FROM activity ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune activity: %w", err)
	}
	return res.RowsAffected()
}

// RecordBatch implements panel.ActivityRecorder. Failures are logged, never returned.
func (s *ActivityStore) RecordBatch(ctx context.Context, result panel.BatchResult) {
	a := &Activity{
		Action:      string(result.Action),
		TargetCount: result.Targets,
		FailedCount: result.Failed,
		DurationMs:  result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		CreatedAt:   result.FinishedAt,
	}
	if result.Err != nil {
		a.Error = result.Err.Error()
	}

	if err := s.Record(ctx, a); err != nil {
		log.Error().Err(err).Str("action", a.Action).Msg("Failed to record activity")
		return
	}

	if s.retention > 0 && s.inserts.Add(1)%activityPruneEvery == 0 {
		if removed, err := s.Prune(ctx, s.retention); err != nil {
			log.Warn().Err(err).Msg("Failed to prune activity history")
		} else if removed > 0 {
			log.Debug().Int64("removed", removed).Msg("Pruned activity history")
		}
	}
}

// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesMigrationsOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "updatorr.db")

	db, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, path, db.Path())

	var version int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version))
	assert.Equal(t, len(migrations), version)

	_, err = db.ExecContext(ctx, `INSERT INTO activity (action, target_count, duration_ms) VALUES ('run_all', 0, 12)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// reopening must not re-run migrations or lose rows
	db, err = New(path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity`).Scan(&count))
	assert.Equal(t, 1, count)

	var applied int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, len(migrations), applied)
}

func TestBeginTxRollback(t *testing.T) {
	ctx := context.Background()
	db, err := New(filepath.Join(t.TempDir(), "updatorr.db"))
	require.NoError(t, err)
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `INSERT INTO activity (action) VALUES ('toggle_on')`)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity`).Scan(&count))
	assert.Zero(t, count)
}

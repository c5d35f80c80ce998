// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package deluge

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/updatorr/internal/panel"
)

// Oldest daemon the plugin was written against.
var minDaemonVersion = semver.MustParse("1.3.0")

// PluginStatus mirrors updatorr.get_status.
type PluginStatus struct {
	LastWalk        time.Time `json:"lastWalk" yaml:"lastWalk"`
	WalkPeriodHours int       `json:"walkPeriodHours" yaml:"walkPeriodHours"`
	Walking         bool      `json:"walking" yaml:"walking"`
	NextWalk        time.Time `json:"nextWalk" yaml:"nextWalk"`
}

// SetUpdateEnabled adds or removes a torrent from the plugin's update list.
func (c *Client) SetUpdateEnabled(ctx context.Context, id string, enabled bool) error {
	return c.Call(ctx, "updatorr.set_items_to_update", []any{id, enabled}, nil)
}

// IsWalking reports whether the plugin is currently checking torrents for updates.
func (c *Client) IsWalking(ctx context.Context) (bool, error) {
	var walking bool
	if err := c.Call(ctx, "updatorr.is_walking", nil, &walking); err != nil {
		return false, err
	}
	return walking, nil
}

// RunWalker starts an update check for the target. An explicit id list or the
// all-sentinel forces a walk; the plugin may still refuse if it is already walking.
func (c *Client) RunWalker(ctx context.Context, target panel.WalkTarget) error {
	var started bool
	if err := c.Call(ctx, "updatorr.run_walker", []any{target}, &started); err != nil {
		return err
	}
	if !started {
		log.Debug().Str("target", target.String()).Msg("Deluge did not start the update walker")
	}
	return nil
}

// IsToUpdate reports whether a single torrent is on the update list.
func (c *Client) IsToUpdate(ctx context.Context, id string) (bool, error) {
	var enabled bool
	if err := c.Call(ctx, "updatorr.check_is_to_update", []any{id}, &enabled); err != nil {
		return false, err
	}
	return enabled, nil
}

// ItemsToUpdate returns every torrent id on the plugin's update list.
func (c *Client) ItemsToUpdate(ctx context.Context) ([]string, error) {
	var ids []string
	if err := c.Call(ctx, "updatorr.get_items_to_update", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Status returns the plugin's walker schedule.
func (c *Client) Status(ctx context.Context) (PluginStatus, error) {
	var raw []json.RawMessage
	if err := c.Call(ctx, "updatorr.get_status", nil, &raw); err != nil {
		return PluginStatus{}, err
	}
	return parsePluginStatus(raw)
}

func parsePluginStatus(raw []json.RawMessage) (PluginStatus, error) {
	if len(raw) != 3 {
		return PluginStatus{}, fmt.Errorf("unexpected updatorr.get_status result with %d fields", len(raw))
	}

	var lastWalk, period float64
	var walking bool
	if err := json.Unmarshal(raw[0], &lastWalk); err != nil {
		return PluginStatus{}, errors.Wrap(err, "invalid last walk")
	}
	if err := json.Unmarshal(raw[1], &period); err != nil {
		return PluginStatus{}, errors.Wrap(err, "invalid walk period")
	}
	if err := json.Unmarshal(raw[2], &walking); err != nil {
		return PluginStatus{}, errors.Wrap(err, "invalid walking flag")
	}

	sec, frac := math.Modf(lastWalk)
	status := PluginStatus{
		WalkPeriodHours: int(period),
		Walking:         walking,
	}
	if lastWalk > 0 {
		status.LastWalk = time.Unix(int64(sec), int64(frac*1e9)).UTC()
		status.NextWalk = status.LastWalk.Add(time.Duration(status.WalkPeriodHours) * time.Hour)
	}
	return status, nil
}

// DaemonVersion returns the connected daemon's version and warns when it is
// older than the plugin supports.
func (c *Client) DaemonVersion(ctx context.Context) (*semver.Version, error) {
	var raw string
	if err := c.Call(ctx, "daemon.info", nil, &raw); err != nil {
		return nil, err
	}

	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse daemon version %q", raw)
	}
	if v.LessThan(minDaemonVersion) {
		log.Warn().Str("version", v.String()).Str("minimum", minDaemonVersion.String()).Msg("Deluge daemon is older than the Updatorr plugin supports")
	}
	return v, nil
}

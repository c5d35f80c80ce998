// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package deluge

import (
	"context"
	"encoding/json"
	"maps"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrUnknownTracker    = errors.New("unknown tracker domain")
	ErrInvalidWalkPeriod = errors.New("walk period must be at least one hour")
)

// TrackerSettings are the credentials the plugin uses for one tracker domain.
// Cookies cached by the plugin are carried through untouched.
type TrackerSettings struct {
	LoginRequired bool   `json:"loginRequired" yaml:"loginRequired"`
	Login         string `json:"login" yaml:"login"`
	Password      string `json:"password,omitempty" yaml:"password,omitempty"`
	HasPassword   bool   `json:"hasPassword" yaml:"hasPassword"`

	cookies json.RawMessage
}

// PluginConfig mirrors the editable part of updatorr.get_config.
type PluginConfig struct {
	WalkPeriodHours int                        `json:"walkPeriodHours" yaml:"walkPeriodHours"`
	Trackers        map[string]TrackerSettings `json:"trackers" yaml:"trackers"`
}

// Redacted returns a copy without tracker passwords.
func (c PluginConfig) Redacted() PluginConfig {
	out := PluginConfig{WalkPeriodHours: c.WalkPeriodHours, Trackers: make(map[string]TrackerSettings, len(c.Trackers))}
	for domain, t := range c.Trackers {
		t.Password = ""
		out.Trackers[domain] = t
	}
	return out
}

// TrackerUpdate changes the fields that are set.
type TrackerUpdate struct {
	Login    *string `json:"login,omitempty"`
	Password *string `json:"password,omitempty"`
}

// ConfigUpdate is a partial change to PluginConfig.
type ConfigUpdate struct {
	WalkPeriodHours *int                     `json:"walkPeriodHours,omitempty"`
	Trackers        map[string]TrackerUpdate `json:"trackers,omitempty"`
}

// Apply returns a copy of c with u applied. Only domains the plugin already
// knows can be changed, since it only keeps settings for registered handlers.
func (c PluginConfig) Apply(u ConfigUpdate) (PluginConfig, error) {
	out := PluginConfig{WalkPeriodHours: c.WalkPeriodHours, Trackers: maps.Clone(c.Trackers)}
	if out.Trackers == nil {
		out.Trackers = map[string]TrackerSettings{}
	}

	if u.WalkPeriodHours != nil {
		if *u.WalkPeriodHours < 1 {
			return PluginConfig{}, ErrInvalidWalkPeriod
		}
		out.WalkPeriodHours = *u.WalkPeriodHours
	}

	for domain, change := range u.Trackers {
		t, ok := out.Trackers[domain]
		if !ok {
			return PluginConfig{}, errors.Wrap(ErrUnknownTracker, domain)
		}
		if change.Login != nil {
			t.Login = *change.Login
		}
		if change.Password != nil {
			t.Password = *change.Password
			t.HasPassword = t.Password != ""
		}
		out.Trackers[domain] = t
	}
	return out, nil
}

type rawTrackerSettings struct {
	LoginRequired bool            `json:"login_required"`
	Login         string          `json:"login"`
	Password      string          `json:"password"`
	Cookies       json.RawMessage `json:"cookies"`
}

type rawPluginConfig struct {
	WalkPeriod json.RawMessage               `json:"walk_period"`
	Trackers   map[string]rawTrackerSettings `json:"trackers_settings"`
}

// Config returns the plugin preferences, passwords included.
func (c *Client) Config(ctx context.Context) (PluginConfig, error) {
	var raw rawPluginConfig
	if err := c.Call(ctx, "updatorr.get_config", nil, &raw); err != nil {
		return PluginConfig{}, err
	}

	period, err := parseWalkPeriod(raw.WalkPeriod)
	if err != nil {
		return PluginConfig{}, err
	}

	cfg := PluginConfig{WalkPeriodHours: period, Trackers: make(map[string]TrackerSettings, len(raw.Trackers))}
	for domain, t := range raw.Trackers {
		cfg.Trackers[domain] = TrackerSettings{
			LoginRequired: t.LoginRequired,
			Login:         t.Login,
			Password:      t.Password,
			HasPassword:   t.Password != "",
			cookies:       t.Cookies,
		}
	}
	return cfg, nil
}

// SetConfig replaces the plugin preferences. The plugin replaces its whole
// tracker map, so cfg should come from Config.
func (c *Client) SetConfig(ctx context.Context, cfg PluginConfig) error {
	if cfg.WalkPeriodHours < 1 {
		return ErrInvalidWalkPeriod
	}

	trackers := make(map[string]rawTrackerSettings, len(cfg.Trackers))
	for domain, t := range cfg.Trackers {
		cookies := t.cookies
		if len(cookies) == 0 {
			cookies = json.RawMessage("null")
		}
		trackers[domain] = rawTrackerSettings{
			LoginRequired: t.LoginRequired,
			Login:         t.Login,
			Password:      t.Password,
			Cookies:       cookies,
		}
	}

	payload := map[string]any{
		"walk_period":       cfg.WalkPeriodHours,
		"trackers_settings": trackers,
	}
	return c.Call(ctx, "updatorr.set_config", []any{payload}, nil)
}

// UpdateConfig reads the preferences, applies u and writes them back.
func (c *Client) UpdateConfig(ctx context.Context, u ConfigUpdate) (PluginConfig, error) {
	current, err := c.Config(ctx)
	if err != nil {
		return PluginConfig{}, err
	}

	next, err := current.Apply(u)
	if err != nil {
		return PluginConfig{}, err
	}

	if err := c.SetConfig(ctx, next); err != nil {
		return PluginConfig{}, err
	}
	return next, nil
}

// TestLogin asks the plugin to log in to a tracker with the given credentials.
// A tracker without a handler reports false.
func (c *Client) TestLogin(ctx context.Context, domain, login, password string) (bool, error) {
	var ok *bool
	if err := c.Call(ctx, "updatorr.test_login", []any{domain, login, password}, &ok); err != nil {
		return false, err
	}
	return ok != nil && *ok, nil
}

// The GTK preferences page sends the walk period as text.
func parseWalkPeriod(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, errors.Wrap(err, "invalid walk period")
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid walk period %q", s)
	}
	return int(n), nil
}

// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	MenuVariantMinimal  = "minimal"
	MenuVariantExtended = "extended"
)

// Validate checks values that cannot be fixed up with a default.
func (c *AppConfig) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Config.MenuVariant)) {
	case "", MenuVariantMinimal, MenuVariantExtended:
	default:
		return fmt.Errorf("invalid menuVariant %q: expected %q or %q", c.Config.MenuVariant, MenuVariantMinimal, MenuVariantExtended)
	}

	if strings.TrimSpace(c.Config.DelugeURL) == "" {
		return fmt.Errorf("delugeUrl is required")
	}

	return nil
}

// IsMinimalMenu reports whether only the autoupdate toggle should be added to the context menu.
func (c *AppConfig) IsMinimalMenu() bool {
	return strings.EqualFold(strings.TrimSpace(c.Config.MenuVariant), MenuVariantMinimal)
}

func (c *AppConfig) DelugeTimeout() time.Duration {
	if c.Config.DelugeTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Config.DelugeTimeout) * time.Second
}

func (c *AppConfig) BusyWait() time.Duration {
	if c.Config.BusyWaitMillis <= 0 {
		return 1500 * time.Millisecond
	}
	return time.Duration(c.Config.BusyWaitMillis) * time.Millisecond
}

func (c *AppConfig) TorrentCacheTTL() time.Duration {
	if c.Config.TorrentCacheTTL <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Config.TorrentCacheTTL) * time.Second
}


// EventPollInterval returns zero when event polling is disabled.
func (c *AppConfig) EventPollInterval() time.Duration {
	if c.Config.EventPollSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Config.EventPollSeconds) * time.Second
}

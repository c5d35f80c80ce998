// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

type Config struct {
	Version string

	Host    string `toml:"host" mapstructure:"host"`
	Port    int    `toml:"port" mapstructure:"port"`
	BaseURL string `toml:"baseUrl" mapstructure:"baseUrl"`

	LogLevel      string `toml:"logLevel" mapstructure:"logLevel"`
	LogPath       string `toml:"logPath" mapstructure:"logPath"`
	LogMaxSize    int    `toml:"logMaxSize" mapstructure:"logMaxSize"`
	LogMaxBackups int    `toml:"logMaxBackups" mapstructure:"logMaxBackups"`
	DataDir       string `toml:"dataDir" mapstructure:"dataDir"`

	PprofEnabled          bool   `toml:"pprofEnabled" mapstructure:"pprofEnabled"`
	MetricsEnabled        bool   `toml:"metricsEnabled" mapstructure:"metricsEnabled"`
	MetricsHost           string `toml:"metricsHost" mapstructure:"metricsHost"`
	MetricsPort           int    `toml:"metricsPort" mapstructure:"metricsPort"`
	MetricsBasicAuthUsers string `toml:"metricsBasicAuthUsers" mapstructure:"metricsBasicAuthUsers"`

	// Deluge Web UI connection
	DelugeURL           string `toml:"delugeUrl" mapstructure:"delugeUrl"`
	DelugePassword      string `toml:"delugePassword" mapstructure:"delugePassword"`
	DelugeHostID        string `toml:"delugeHostId" mapstructure:"delugeHostId"`
	DelugeTimeout       int    `toml:"delugeTimeout" mapstructure:"delugeTimeout"`
	DelugeLoginAttempts int    `toml:"delugeLoginAttempts" mapstructure:"delugeLoginAttempts"`
	DelugeTLSSkipVerify bool   `toml:"delugeTlsSkipVerify" mapstructure:"delugeTlsSkipVerify"`

	// Context menu behaviour
	MenuVariant       string `toml:"menuVariant" mapstructure:"menuVariant"`
	BusyWaitMillis    int    `toml:"busyWaitMillis" mapstructure:"busyWaitMillis"`
	TorrentCacheTTL   int    `toml:"torrentCacheTtl" mapstructure:"torrentCacheTtl"`
	ActivityRetention int    `toml:"activityRetention" mapstructure:"activityRetention"`
	EventPollSeconds  int    `toml:"eventPollSeconds" mapstructure:"eventPollSeconds"`
}

// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/updatorr/internal/deluge"
)

func TestPrefsSetFlagsUpdate(t *testing.T) {
	prompt := func() (string, error) { return "typed", nil }

	tests := []struct {
		name    string
		flags   prefsSetFlags
		want    deluge.ConfigUpdate
		wantErr string
	}{
		{
			name:    "nothing",
			wantErr: "nothing to change",
		},
		{
			name:  "walk_period",
			flags: prefsSetFlags{walkPeriod: 6, walkChanged: true},
			want:  deluge.ConfigUpdate{WalkPeriodHours: ptr(6)},
		},
		{
			name:  "tracker_login",
			flags: prefsSetFlags{tracker: "t.example", login: "bob", loginSet: true},
			want:  deluge.ConfigUpdate{Trackers: map[string]deluge.TrackerUpdate{"t.example": {Login: ptr("bob")}}},
		},
		{
			name:  "clear_password",
			flags: prefsSetFlags{tracker: "t.example", passwordSet: true},
			want:  deluge.ConfigUpdate{Trackers: map[string]deluge.TrackerUpdate{"t.example": {Password: ptr("")}}},
		},
		{
			name:  "prompted_password",
			flags: prefsSetFlags{tracker: "t.example", askPassword: true, passwordInput: prompt},
			want:  deluge.ConfigUpdate{Trackers: map[string]deluge.TrackerUpdate{"t.example": {Password: ptr("typed")}}},
		},
		{
			name:    "credentials_without_tracker",
			flags:   prefsSetFlags{login: "bob", loginSet: true},
			wantErr: "need --tracker",
		},
		{
			name:    "tracker_without_credentials",
			flags:   prefsSetFlags{tracker: "t.example"},
			wantErr: "--tracker needs",
		},
		{
			name: "prompt_fails",
			flags: prefsSetFlags{tracker: "t.example", askPassword: true, passwordInput: func() (string, error) {
				return "", errors.New("not a terminal")
			}},
			wantErr: "not a terminal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.flags.update()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrefsSetRejectsEmptyChange(t *testing.T) {
	cmd := RunPrefsCommand(&globalOptions{})
	cmd.SetArgs([]string{"set"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to change")
}

func TestPrintPluginConfig(t *testing.T) {
	cfg := deluge.PluginConfig{
		WalkPeriodHours: 12,
		Trackers: map[string]deluge.TrackerSettings{
			"b.example": {LoginRequired: true, Login: "bob", HasPassword: true},
			"a.example": {},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printPluginConfig(&buf, outputTable, cfg))
	out := buf.String()
	assert.Contains(t, out, "Walk period: 12h")
	assert.Less(t, strings.Index(out, "a.example"), strings.Index(out, "b.example"))
	assert.Contains(t, out, "set")

	buf.Reset()
	require.NoError(t, printPluginConfig(&buf, outputJSON, cfg))
	assert.Contains(t, buf.String(), `"walkPeriodHours": 12`)
}

func TestPrintEvent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printEvent(&buf, outputTable, deluge.Event{
		Kind:       deluge.EventUpdateError,
		TorrentID:  "abc",
		Message:    "tracker down",
		ReceivedAt: time.Now(),
	}))
	assert.Contains(t, buf.String(), "Update failed for abc: tracker down")

	buf.Reset()
	require.NoError(t, printEvent(&buf, outputYAML, deluge.Event{Kind: deluge.EventCheckStarted}))
	assert.Contains(t, buf.String(), "kind: UpdatorrUpdatesCheckStartedEvent")
}

func ptr[T any](v T) *T {
	return &v
}

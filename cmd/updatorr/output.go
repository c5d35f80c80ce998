// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/autobrr/updatorr/internal/deluge"
	"github.com/autobrr/updatorr/internal/models"
	"github.com/autobrr/updatorr/internal/panel"
	"github.com/autobrr/updatorr/internal/torrents"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func validateOutput(format string) error {
	switch format {
	case outputTable, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q: use table, json or yaml", format)
}

// encode writes v as JSON or YAML. ok is false for the table format.
func encode(w io.Writer, format string, v any) (ok bool, err error) {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return true, enc.Encode(v)
	}
	return false, nil
}

func printTorrents(w io.Writer, format string, list []deluge.Torrent) error {
	if ok, err := encode(w, format, list); ok {
		return err
	}

	columns := append(torrents.Columns(), panel.Column{ID: panel.StatusColumnID, Title: panel.StatusColumnID})

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	header := []string{"ID"}
	for _, col := range columns {
		header = append(header, strings.ToUpper(col.Title))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, t := range list {
		row := []string{t.ID}
		for _, col := range columns {
			row = append(row, torrents.Cell(t, col.ID))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func printActivity(w io.Writer, format string, entries []*models.Activity) error {
	if ok, err := encode(w, format, entries); ok {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tACTION\tTARGETS\tFAILED\tTOOK\tERROR")
	for _, a := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			a.CreatedAt.Local().Format(time.DateTime),
			a.Action,
			a.TargetCount,
			a.FailedCount,
			time.Duration(a.DurationMs)*time.Millisecond,
			a.Error,
		)
	}
	return tw.Flush()
}

func printStatus(w io.Writer, format string, status deluge.PluginStatus) error {
	if ok, err := encode(w, format, status); ok {
		return err
	}

	formatTime := func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.Local().Format(time.DateTime)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "Walking:\t%t\n", status.Walking)
	fmt.Fprintf(tw, "Walk period:\t%dh\n", status.WalkPeriodHours)
	fmt.Fprintf(tw, "Last walk:\t%s\n", formatTime(status.LastWalk))
	fmt.Fprintf(tw, "Next walk:\t%s\n", formatTime(status.NextWalk))
	return tw.Flush()
}

func printBatch(w io.Writer, batch *panel.Batch) {
	fmt.Fprintf(w, "%s: %d issued, %d failed\n", batch.Action(), batch.Issued(), batch.Failed())
}

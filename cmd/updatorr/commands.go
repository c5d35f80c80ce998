// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"io"
	"slices"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/autobrr/updatorr/internal/domain"
	"github.com/autobrr/updatorr/internal/menu"
	"github.com/autobrr/updatorr/internal/panel"
	"github.com/autobrr/updatorr/internal/selection"
	"github.com/autobrr/updatorr/internal/torrents"
	"github.com/autobrr/updatorr/internal/tui"
)

func RunTUICommand(opts *globalOptions) *cobra.Command {
	command := &cobra.Command{
		Use:   "tui",
		Short: "Browse torrents and use the context menu in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newClientApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			// stdout belongs to the terminal UI
			if app.cfg.Config.LogPath == "" {
				log.Logger = log.Output(io.Discard)
			}

			variant, err := panel.ParseVariant(app.cfg.Config.MenuVariant)
			if err != nil {
				return err
			}

			bridge := tui.NewBridge()
			model := menu.New()
			columns := menu.NewColumns(torrents.Columns()...)
			holder := selection.NewHolder()

			panels := newPanelHost(panel.Host{Menu: model, Columns: columns, Selection: holder}, app.client, app.dispatcher, bridge.Dispatch)
			if err := panels.enable(variant); err != nil {
				return errors.Wrap(err, "failed to enable context menu panel")
			}
			defer panels.disable()

			app.cfg.RegisterReloadListener(func(conf *domain.Config) {
				panels.applyReload(conf.MenuVariant)
			})
			app.torrents.OnRefresh(bridge.Reload)
			if watcher := startWatcher(cmd.Context(), app.cfg, app.client, app.torrents.Refresh); watcher != nil {
				watcher.Subscribe(bridge.Notify)
			}

			return tui.Run(cmd.Context(), tui.Dependencies{
				Torrents:  app.torrents,
				Menu:      model,
				Columns:   columns,
				Selection: holder,
			}, bridge)
		},
	}

	return command
}

func RunToggleCommand(opts *globalOptions) *cobra.Command {
	var (
		enable  bool
		disable bool
		where   string
	)

	command := &cobra.Command{
		Use:   "toggle [torrent-id...]",
		Short: "Enable or disable autoupdate for torrents",
		Example: `  updatorr toggle --enable 0123abcd 4567ef01
  updatorr toggle --disable --where 'State == "Paused"'
  updatorr toggle --enable --where 'Name contains "ubuntu" && Update != "On"'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if enable == disable {
				return errors.New("exactly one of --enable or --disable is required")
			}
			if len(args) == 0 && where == "" {
				return errors.New("no torrents given: pass ids or --where")
			}

			app, err := newClientApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			ids := slices.Clone(args)
			if where != "" {
				program, err := compileWhere(where)
				if err != nil {
					return err
				}

				list, err := app.torrents.List(cmd.Context(), "")
				if err != nil {
					return errors.Wrap(err, "failed to list torrents")
				}

				matched, err := matchIDs(program, list)
				if err != nil {
					return err
				}
				ids = append(ids, matched...)
			}

			ids = dedupe(ids)
			if len(ids) == 0 {
				cmd.Println("No torrents matched.")
				return nil
			}

			batch := app.dispatcher.Toggle(cmd.Context(), enable, ids)
			return reportBatch(cmd, batch)
		},
	}

	command.Flags().BoolVar(&enable, "enable", false, "turn autoupdate on")
	command.Flags().BoolVar(&disable, "disable", false, "turn autoupdate off")
	command.Flags().StringVar(&where, "where", "", "select torrents with an expression over ID, Name, State, Progress and Update")
	command.MarkFlagsMutuallyExclusive("enable", "disable")

	return command
}

func RunRunCommand(opts *globalOptions) *cobra.Command {
	var all bool

	command := &cobra.Command{
		Use:   "run [torrent-id...]",
		Short: "Run the update walker for torrents",
		Example: `  updatorr run 0123abcd
  updatorr run --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New("pass torrent ids or --all")
			}

			app, err := newClientApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			var batch *panel.Batch
			if all {
				batch = app.dispatcher.RunAll(cmd.Context())
			} else {
				batch = app.dispatcher.RunSelected(cmd.Context(), dedupe(args))
			}

			return reportBatch(cmd, batch)
		},
	}

	command.Flags().BoolVar(&all, "all", false, "check every torrent marked for autoupdate")

	return command
}

func RunStatusCommand(opts *globalOptions) *cobra.Command {
	var output string

	command := &cobra.Command{
		Use:   "status",
		Short: "Show the Updatorr plugin status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}

			app, err := newClientApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			status, err := app.client.Status(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "failed to query plugin status")
			}

			return printStatus(cmd.OutOrStdout(), output, status)
		},
	}

	command.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or yaml")

	return command
}

func RunListCommand(opts *globalOptions) *cobra.Command {
	var (
		filter string
		output string
	)

	command := &cobra.Command{
		Use:   "list",
		Short: "List torrents with their autoupdate state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}

			app, err := newClientApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			list, err := app.torrents.List(cmd.Context(), filter)
			if err != nil {
				return errors.Wrap(err, "failed to list torrents")
			}

			return printTorrents(cmd.OutOrStdout(), output, list)
		},
	}

	command.Flags().StringVarP(&filter, "filter", "f", "", "fuzzy filter on torrent name")
	command.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or yaml")

	return command
}

func RunActivityCommand(opts *globalOptions) *cobra.Command {
	var (
		limit  int
		output string
	)

	command := &cobra.Command{
		Use:   "activity",
		Short: "Show recently dispatched batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			if limit < 0 {
				return errors.New("--limit must not be negative")
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			db, store, err := openActivity(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return errors.Wrap(err, "failed to list activity")
			}

			return printActivity(cmd.OutOrStdout(), output, entries)
		},
	}

	command.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	command.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or yaml")

	return command
}

// reportBatch waits for batch and prints its summary, also when some calls
// failed. Only an interrupted wait skips the summary.
func reportBatch(cmd *cobra.Command, batch *panel.Batch) error {
	if err := batch.Wait(cmd.Context()); err != nil && cmd.Context().Err() != nil {
		return err
	}

	printBatch(cmd.OutOrStdout(), batch)
	return batch.Err()
}

// dedupe drops repeated ids, keeping first occurrences in order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

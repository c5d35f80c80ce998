// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/autobrr/updatorr/internal/deluge"
	"github.com/autobrr/updatorr/internal/notify"
)

func RunPrefsCommand(opts *globalOptions) *cobra.Command {
	command := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change the Updatorr plugin preferences",
	}

	command.AddCommand(runPrefsShowCommand(opts))
	command.AddCommand(runPrefsSetCommand(opts))
	command.AddCommand(runPrefsTestLoginCommand(opts))

	return command
}

func runPrefsShowCommand(opts *globalOptions) *cobra.Command {
	var output string

	command := &cobra.Command{
		Use:   "show",
		Short: "Show the walk period and tracker settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}

			app, err := newClientApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			cfg, err := app.client.Config(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "failed to read plugin preferences")
			}

			return printPluginConfig(cmd.OutOrStdout(), output, cfg.Redacted())
		},
	}

	command.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or yaml")

	return command
}

type prefsSetFlags struct {
	walkPeriod    int
	tracker       string
	login         string
	password      string
	askPassword   bool
	walkChanged   bool
	loginSet      bool
	passwordSet   bool
	passwordInput func() (string, error)
}

// update turns the set flags into a ConfigUpdate.
func (f prefsSetFlags) update() (deluge.ConfigUpdate, error) {
	var u deluge.ConfigUpdate
	if f.walkChanged {
		walk := f.walkPeriod
		u.WalkPeriodHours = &walk
	}

	credentials := f.loginSet || f.passwordSet || f.askPassword
	switch {
	case f.tracker == "" && credentials:
		return u, errors.New("--login and --password need --tracker")
	case f.tracker != "" && !credentials:
		return u, errors.New("--tracker needs --login, --password or --ask-tracker-password")
	case f.tracker != "":
		var change deluge.TrackerUpdate
		if f.loginSet {
			login := f.login
			change.Login = &login
		}
		password := f.password
		if f.askPassword {
			read, err := f.passwordInput()
			if err != nil {
				return u, err
			}
			password = read
		}
		if f.passwordSet || f.askPassword {
			change.Password = &password
		}
		u.Trackers = map[string]deluge.TrackerUpdate{f.tracker: change}
	}

	if u.WalkPeriodHours == nil && u.Trackers == nil {
		return u, errors.New("nothing to change: pass --walk-period or --tracker")
	}
	return u, nil
}

func runPrefsSetCommand(opts *globalOptions) *cobra.Command {
	var (
		flags  prefsSetFlags
		output string
	)

	command := &cobra.Command{
		Use:   "set",
		Short: "Change the walk period or a tracker's credentials",
		Example: `  updatorr prefs set --walk-period 6
  updatorr prefs set --tracker tracker.example --login bob --ask-tracker-password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}

			flags.walkChanged = cmd.Flags().Changed("walk-period")
			flags.loginSet = cmd.Flags().Changed("login")
			flags.passwordSet = cmd.Flags().Changed("password")
			flags.passwordInput = func() (string, error) {
				return readPassword(fmt.Sprintf("Password for %s: ", flags.tracker))
			}

			update, err := flags.update()
			if err != nil {
				return err
			}

			app, err := newClientApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			cfg, err := app.client.UpdateConfig(cmd.Context(), update)
			if err != nil {
				return errors.Wrap(err, "failed to update plugin preferences")
			}

			return printPluginConfig(cmd.OutOrStdout(), output, cfg.Redacted())
		},
	}

	command.Flags().IntVar(&flags.walkPeriod, "walk-period", 0, "hours between update checks")
	command.Flags().StringVar(&flags.tracker, "tracker", "", "tracker domain whose credentials change")
	command.Flags().StringVar(&flags.login, "login", "", "tracker login")
	command.Flags().StringVar(&flags.password, "password", "", "tracker password")
	command.Flags().BoolVar(&flags.askPassword, "ask-tracker-password", false, "prompt for the tracker password")
	command.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or yaml")
	command.MarkFlagsMutuallyExclusive("password", "ask-tracker-password")

	return command
}

func runPrefsTestLoginCommand(opts *globalOptions) *cobra.Command {
	var password string

	command := &cobra.Command{
		Use:   "test-login <domain> <login>",
		Short: "Check that the plugin can log in to a tracker",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, login := args[0], args[1]

			if !cmd.Flags().Changed("password") {
				read, err := readPassword(fmt.Sprintf("Password for %s: ", domain))
				if err != nil {
					return err
				}
				password = read
			}

			app, err := newClientApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			ok, err := app.client.TestLogin(cmd.Context(), domain, login, password)
			if err != nil {
				return errors.Wrapf(err, "failed to test login to %s", domain)
			}
			if !ok {
				return errors.Errorf("login to %s failed", domain)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Login to %s succeeded\n", domain)
			return nil
		},
	}

	command.Flags().StringVar(&password, "password", "", "tracker password, prompted for when omitted")

	return command
}

func RunEventsCommand(opts *globalOptions) *cobra.Command {
	var (
		once   bool
		output string
	)

	command := &cobra.Command{
		Use:   "events",
		Short: "Follow events from the Updatorr plugin",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}

			app, err := newClientApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			cfg := notify.DefaultConfig()
			if interval := app.cfg.EventPollInterval(); interval > 0 {
				cfg.PollInterval = interval
			}
			watcher := notify.NewWatcher(cfg, app.client)

			var printErr error
			watcher.Subscribe(func(ev deluge.Event) {
				if printErr == nil {
					printErr = printEvent(cmd.OutOrStdout(), output, ev)
				}
			})

			if once {
				if err := watcher.Poll(cmd.Context()); err != nil {
					return errors.Wrap(err, "failed to poll plugin events")
				}
				return printErr
			}

			watcher.Start(cmd.Context())
			<-cmd.Context().Done()
			return nil
		},
	}

	command.Flags().BoolVar(&once, "once", false, "print queued events and exit")
	command.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or yaml")

	return command
}

func printPluginConfig(w io.Writer, format string, cfg deluge.PluginConfig) error {
	if ok, err := encode(w, format, cfg); ok {
		return err
	}

	fmt.Fprintf(w, "Walk period: %dh\n", cfg.WalkPeriodHours)
	if len(cfg.Trackers) == 0 {
		return nil
	}

	domains := make([]string, 0, len(cfg.Trackers))
	for domain := range cfg.Trackers {
		domains = append(domains, domain)
	}
	slices.Sort(domains)

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "TRACKER\tLOGIN REQUIRED\tLOGIN\tPASSWORD")
	for _, domain := range domains {
		t := cfg.Trackers[domain]
		password := "-"
		if t.HasPassword {
			password = "set"
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", domain, t.LoginRequired, t.Login, password)
	}
	return tw.Flush()
}

func printEvent(w io.Writer, format string, ev deluge.Event) error {
	if ok, err := encode(w, format, ev); ok {
		return err
	}

	_, err := fmt.Fprintf(w, "%s  %s\n", ev.ReceivedAt.Local().Format(time.DateTime), ev.String())
	return err
}

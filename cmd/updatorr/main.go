// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/autobrr/updatorr/internal/api"
	"github.com/autobrr/updatorr/internal/buildinfo"
	"github.com/autobrr/updatorr/internal/config"
	"github.com/autobrr/updatorr/internal/domain"
	"github.com/autobrr/updatorr/internal/menu"
	"github.com/autobrr/updatorr/internal/metrics"
	"github.com/autobrr/updatorr/internal/panel"
	"github.com/autobrr/updatorr/internal/selection"
	"github.com/autobrr/updatorr/internal/torrents"
)

func main() {
	config.InitDefaultLogger(buildinfo.Version)

	var rootCmd = &cobra.Command{
		Use:   "updatorr",
		Short: "Autoupdate controls for the Deluge Updatorr plugin",
		Long: `updatorr - context menu and command line controls for the Deluge
Updatorr plugin: mark torrents for automatic updates and trigger update checks.`,
		SilenceUsage: true,
	}

	rootCmd.Version = buildinfo.String()

	opts := &globalOptions{}
	rootCmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "config directory path (default is OS-specific: ~/.config/updatorr/ or %APPDATA%\\updatorr\\). Can also be a direct path to a .toml file")
	rootCmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory for the activity database (default is next to config file)")
	rootCmd.PersistentFlags().BoolVar(&opts.askPassword, "ask-password", false, "prompt for the Deluge web password instead of using the configured one")

	rootCmd.AddCommand(RunServeCommand(opts))
	rootCmd.AddCommand(RunTUICommand(opts))
	rootCmd.AddCommand(RunToggleCommand(opts))
	rootCmd.AddCommand(RunRunCommand(opts))
	rootCmd.AddCommand(RunStatusCommand(opts))
	rootCmd.AddCommand(RunListCommand(opts))
	rootCmd.AddCommand(RunActivityCommand(opts))
	rootCmd.AddCommand(RunPrefsCommand(opts))
	rootCmd.AddCommand(RunEventsCommand(opts))
	rootCmd.AddCommand(RunVersionCommand(buildinfo.Version))
	rootCmd.AddCommand(RunGenerateConfigCommand(opts))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func RunServeCommand(opts *globalOptions) *cobra.Command {
	var (
		logPath   string
		pprofFlag bool
	)

	var command = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API that hosts the context menu",
	}

	command.Flags().StringVar(&logPath, "log-path", "", "log file path (default is stdout)")
	command.Flags().BoolVar(&pprofFlag, "pprof", false, "enable pprof server on :6060")

	command.RunE = func(cmd *cobra.Command, args []string) error {
		app := NewApplication(opts, logPath, pprofFlag)
		return app.runServer()
	}

	return command
}

func RunVersionCommand(version string) *cobra.Command {
	var command = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of updatorr",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	return command
}

func RunGenerateConfigCommand(opts *globalOptions) *cobra.Command {
	command := &cobra.Command{
		Use:   "generate-config",
		Short: "Generate a default configuration file",
		Long: `Generate a default configuration file without starting the server.

If no --config-dir is specified, uses the OS-specific default location:
- Linux/macOS: ~/.config/updatorr/config.toml
- Windows: %APPDATA%\updatorr\config.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := resolveConfigFile(opts.configDir)

			if _, err := os.Stat(configPath); err == nil {
				cmd.Printf("Configuration file already exists at: %s\n", configPath)
				cmd.Println("Skipping generation to avoid overwriting existing configuration.")
				return nil
			}

			if err := config.WriteDefaultConfig(configPath); err != nil {
				return fmt.Errorf("failed to create configuration file: %w", err)
			}

			cmd.Printf("Configuration file created successfully at: %s\n", configPath)
			return nil
		},
	}

	return command
}

func resolveConfigFile(configDir string) string {
	if configDir == "" {
		return filepath.Join(config.GetDefaultConfigDir(), "config.toml")
	}
	if strings.HasSuffix(strings.ToLower(configDir), ".toml") {
		return configDir
	}
	if info, err := os.Stat(configDir); err == nil && !info.IsDir() {
		return configDir
	}
	return filepath.Join(configDir, "config.toml")
}

type Application struct {
	opts      *globalOptions
	logPath   string
	pprofFlag bool
}

func NewApplication(opts *globalOptions, logPath string, pprofFlag bool) *Application {
	return &Application{
		opts:      opts,
		logPath:   logPath,
		pprofFlag: pprofFlag,
	}
}

func (app *Application) runServer() error {
	if app.logPath != "" {
		os.Setenv("UPDATORR__LOG_PATH", app.logPath)
	}

	cfg, err := loadConfig(app.opts)
	if err != nil {
		return err
	}

	if app.pprofFlag {
		cfg.Config.PprofEnabled = true
	}

	log.Info().Str("version", buildinfo.Version).Msg("Starting updatorr")

	client, err := newDelugeClient(cfg, app.opts.askPassword)
	if err != nil {
		return err
	}

	metricsManager := metrics.NewMetricsManager()
	client.SetObserver(metricsManager.ObserveRemoteCall)

	// the client logs in lazily, so an offline Deluge at startup is not fatal
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.DelugeTimeout())
		defer cancel()
		if err := client.Login(ctx); err != nil {
			log.Warn().Err(err).Str("url", cfg.Config.DelugeURL).Msg("Initial Deluge login failed, will retry on demand")
			return
		}
		checkDaemonVersion(ctx, client)
	}()

	torrentService := torrents.NewService(client, cfg.TorrentCacheTTL())
	defer torrentService.Close()

	deps := &api.Dependencies{
		Config:  cfg,
		Version: buildinfo.Version,
		Status:  client,
	}

	recorders := []panel.ActivityRecorder{metricsManager}
	db, store, err := openActivity(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Activity history disabled")
	} else {
		defer db.Close()
		recorders = append(recorders, store)
		deps.Activity = store
	}

	dispatcher := panel.NewDispatcher(client, torrentService, recorders...)

	model := menu.New()
	columns := menu.NewColumns(torrents.Columns()...)
	holder := selection.NewHolder()

	variant, err := panel.ParseVariant(cfg.Config.MenuVariant)
	if err != nil {
		return err
	}
	panels := newPanelHost(panel.Host{Menu: model, Columns: columns, Selection: holder}, client, dispatcher, nil)
	if err := panels.enable(variant); err != nil {
		return errors.Wrap(err, "failed to enable context menu panel")
	}
	defer panels.disable()

	cfg.RegisterReloadListener(func(conf *domain.Config) {
		panels.applyReload(conf.MenuVariant)
	})

	watchCtx, stopWatcher := context.WithCancel(context.Background())
	defer stopWatcher()
	if watcher := startWatcher(watchCtx, cfg, client, torrentService.Refresh); watcher != nil {
		watcher.Subscribe(metricsManager.RecordEvent)
		deps.Events = watcher
	}

	deps.Torrents = torrentService
	deps.Columns = columns
	deps.Selection = holder
	deps.Menu = model
	deps.Dispatcher = dispatcher
	deps.Prefs = client
	httpServer := api.NewServer(deps)

	errorChannel := make(chan error, 2)
	serverReady := make(chan struct{}, 1)
	go func() {
		if err := httpServer.ListenAndServeReady(serverReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorChannel <- err
		}
	}()

	select {
	case <-serverReady:
	case err := <-errorChannel:
		return errors.Wrap(err, "failed to start HTTP server")
	}

	var metricsServer *metrics.Server
	if cfg.Config.MetricsEnabled {
		metricsServer = metrics.NewMetricsServer(
			metricsManager,
			cfg.Config.MetricsHost,
			cfg.Config.MetricsPort,
			cfg.Config.MetricsBasicAuthUsers,
		)

		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errorChannel <- err
			}
		}()
	}

	if cfg.Config.PprofEnabled {
		go func() {
			log.Info().Msg("Starting pprof server on :6060")
			log.Info().Msg("Access profiling at: http://localhost:6060/debug/pprof/")
			if err := http.ListenAndServe(":6060", nil); err != nil {
				log.Error().Err(err).Msg("Profiling server failed")
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Msgf("got signal %v, shutting down server", sig.String())
	case err := <-errorChannel:
		log.Error().Err(err).Msg("got unexpected error from server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("got error during metrics server shutdown")
		}
	}

	if err := httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "got error during graceful http shutdown")
	}

	log.Info().Msg("Server stopped")
	return nil
}

// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/updatorr/internal/api/handlers"
	"github.com/autobrr/updatorr/internal/api/middleware"
	"github.com/autobrr/updatorr/internal/config"
	"github.com/autobrr/updatorr/internal/menu"
)

type Server struct {
	server  *http.Server
	logger  zerolog.Logger
	config  *config.AppConfig
	version string

	torrents   handlers.TorrentLister
	columns    handlers.ColumnRegistry
	selection  handlers.SelectionSetter
	menu       *menu.Model
	dispatcher handlers.BatchDispatcher
	status     handlers.StatusSource
	activity   handlers.ActivityLister
	prefs      handlers.PrefsStore
	events     handlers.EventSource
}

type Dependencies struct {
	Config     *config.AppConfig
	Version    string
	Torrents   handlers.TorrentLister
	Columns    handlers.ColumnRegistry
	Selection  handlers.SelectionSetter
	Menu       *menu.Model
	Dispatcher handlers.BatchDispatcher
	Status     handlers.StatusSource
	Activity   handlers.ActivityLister
	Prefs      handlers.PrefsStore
	Events     handlers.EventSource
}

func NewServer(deps *Dependencies) *Server {
	s := Server{
		server: &http.Server{
			ReadHeaderTimeout: time.Second * 15,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      120 * time.Second,
			IdleTimeout:       180 * time.Second,
		},
		logger:     log.Logger.With().Str("module", "api").Logger(),
		config:     deps.Config,
		version:    deps.Version,
		torrents:   deps.Torrents,
		columns:    deps.Columns,
		selection:  deps.Selection,
		menu:       deps.Menu,
		dispatcher: deps.Dispatcher,
		status:     deps.Status,
		activity:   deps.Activity,
		prefs:      deps.Prefs,
		events:     deps.Events,
	}

	return &s
}

func (s *Server) ListenAndServe() error {
	return s.open(nil)
}

// ListenAndServeReady behaves like ListenAndServe but signals once the listener is active.
func (s *Server) ListenAndServeReady(ready chan<- struct{}) error {
	return s.open(ready)
}

func (s *Server) open(ready chan<- struct{}) error {
	addr := fmt.Sprintf("%s:%d", s.config.Config.Host, s.config.Config.Port)

	var lastErr error
	for _, proto := range []string{"tcp", "tcp4", "tcp6"} {
		err := s.tryToServe(addr, proto, ready)
		if err == nil {
			return nil
		}

		if errors.Is(err, http.ErrServerClosed) {
			return err
		}

		s.logger.Error().Err(err).Str("addr", addr).Str("proto", proto).Msg("Failed to start server")
		lastErr = err
	}

	return lastErr
}

func (s *Server) tryToServe(addr, protocol string, ready chan<- struct{}) error {
	listener, err := net.Listen(protocol, addr)
	if err != nil {
		return err
	}

	host := listener.Addr().String()
	if strings.HasPrefix(host, "0.0.0.0:") || strings.HasPrefix(host, "[::]:") {
		host = strings.Replace(host, "0.0.0.0:", "localhost:", 1)
		host = strings.Replace(host, "[::]:", "localhost:", 1)
	}

	s.logger.Info().
		Str("protocol", protocol).
		Str("addr", listener.Addr().String()).
		Str("base_url", s.baseURL()).
		Msgf("Starting API server - Open: http://%s%s", host, s.baseURL())

	s.server.Handler = s.Handler()

	if ready != nil {
		select {
		case ready <- struct{}{}:
		default:
		}
	}

	return s.server.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) baseURL() string {
	baseURL := "/"
	if s.config != nil && s.config.Config.BaseURL != "" {
		baseURL = s.config.Config.BaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL
}

func (s *Server) busyWait() time.Duration {
	if s.config == nil {
		return 1500 * time.Millisecond
	}
	return s.config.BusyWait()
}

func (s *Server) Handler() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer(s.logger))
	r.Use(middleware.RealIP)

	compressor, err := httpcompression.DefaultAdapter(
		httpcompression.MinSize(1024),
		httpcompression.GzipCompressionLevel(2),
		httpcompression.Prefer(httpcompression.PreferServer),
	)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create HTTP compression adapter")
	} else {
		r.Use(compressor)
	}

	corsMiddleware := cors.New(cors.Options{
		AllowCredentials: true,
		AllowedMethods:   []string{"HEAD", "OPTIONS", "GET", "POST", "PUT"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "If-None-Match"},
		ExposedHeaders:   []string{"ETag"},
		AllowOriginFunc:  func(origin string) bool { return true },
		MaxAge:           300,
	})
	r.Use(corsMiddleware.Handler)

	healthHandler := handlers.NewHealthHandler(s.version)
	torrentsHandler := handlers.NewTorrentsHandler(s.torrents, s.columns)
	menuHandler := handlers.NewMenuHandler(s.torrents, s.selection, s.menu, s.busyWait())
	autoupdateHandler := handlers.NewAutoupdateHandler(s.dispatcher, s.status)

	apiRouter := chi.NewRouter()
	apiRouter.Group(func(r chi.Router) {
		r.Use(middleware.Logger(s.logger))

		r.Get("/openapi.yaml", serveOpenAPISpec)

		r.Route("/torrents", func(r chi.Router) {
			r.Get("/", torrentsHandler.ListTorrents)
			r.Post("/refresh", torrentsHandler.RefreshTorrents)
		})
		r.Put("/columns/{columnID}", torrentsHandler.SetColumnVisibility)

		r.Route("/menu", func(r chi.Router) {
			r.Post("/", menuHandler.ShowMenu)
			r.Post("/click", menuHandler.ClickMenu)
		})

		r.Route("/autoupdate", func(r chi.Router) {
			r.Post("/toggle", autoupdateHandler.Toggle)
			r.Post("/run", autoupdateHandler.Run)
			r.Post("/run-all", autoupdateHandler.RunAll)
			r.Get("/status", autoupdateHandler.Status)

			if s.prefs != nil {
				prefsHandler := handlers.NewPrefsHandler(s.prefs)
				r.Get("/config", prefsHandler.GetConfig)
				r.Put("/config", prefsHandler.UpdateConfig)
				r.Post("/test-login", prefsHandler.TestLogin)
			}

			// nil when event polling is disabled
			if s.events != nil {
				r.Get("/events", handlers.NewEventsHandler(s.events).List)
			}
		})

		// history is optional: the database may be disabled
		if s.activity != nil {
			r.Get("/activity", handlers.NewActivityHandler(s.activity).List)
		}
	})

	r.Get("/health", healthHandler.HandleHealth)
	r.Mount(s.baseURL()+"api", apiRouter)

	return r
}

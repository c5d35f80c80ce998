// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type Server struct {
	manager *MetricsManager
	users   map[string]string
	server  *http.Server
}

// NewMetricsServer serves /metrics on host:port. basicAuthUsers is a comma
// separated list of user:bcrypt-hash pairs; empty disables auth.
func NewMetricsServer(manager *MetricsManager, host string, port int, basicAuthUsers string) *Server {
	s := &Server{
		manager: manager,
		users:   parseBasicAuthUsers(basicAuthUsers),
	}
	s.server = &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if len(s.users) > 0 {
		r.Use(s.basicAuth)
	}
	r.Handle("/metrics", promhttp.HandlerFor(s.manager.GetRegistry(), promhttp.HandlerOpts{}))
	return r
}

func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.server.Addr).Bool("basicAuth", len(s.users) > 0).Msg("Starting metrics server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if ok && s.checkUser(user, pass) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	})
}

func (s *Server) checkUser(user, pass string) bool {
	for name, hash := range s.users {
		if subtle.ConstantTimeCompare([]byte(name), []byte(user)) != 1 {
			continue
		}
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)) == nil
	}
	return false
}

func parseBasicAuthUsers(raw string) map[string]string {
	users := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, hash, found := strings.Cut(entry, ":")
		if !found || name == "" || hash == "" {
			log.Warn().Str("entry", fmt.Sprintf("%.8s...", entry)).Msg("Ignoring malformed metrics basic auth entry")
			continue
		}
		users[name] = hash
	}
	return users
}

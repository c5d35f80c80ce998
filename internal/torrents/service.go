// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrents

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/autobrr/autobrr/pkg/ttlcache"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/autobrr/updatorr/internal/deluge"
	"github.com/autobrr/updatorr/internal/panel"
)

const listCacheKey = "all"

// Source loads torrents from the daemon. An empty ids list means every torrent.
type Source interface {
	Torrents(ctx context.Context, ids ...string) ([]deluge.Torrent, error)
}

// Service serves the torrent list with the status column. The full list is
// cached; Resolve always hits the daemon.
type Service struct {
	source Source
	cache  *ttlcache.Cache[string, []deluge.Torrent]
	group  singleflight.Group

	listenersMu sync.RWMutex
	listeners   []func()
}

func NewService(source Source, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Service{
		source: source,
		cache:  ttlcache.New(ttlcache.Options[string, []deluge.Torrent]{}.SetDefaultTTL(ttl)),
	}
}

// List returns every torrent, filtered by query when it is non-empty.
func (s *Service) List(ctx context.Context, query string) ([]deluge.Torrent, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(all, query), nil
}

func (s *Service) all(ctx context.Context) ([]deluge.Torrent, error) {
	if cached, ok := s.cache.Get(listCacheKey); ok {
		return slices.Clone(cached), nil
	}

	v, err, _ := s.group.Do(listCacheKey, func() (any, error) {
		list, err := s.source.Torrents(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.Set(listCacheKey, list, ttlcache.DefaultTTL)
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]deluge.Torrent)), nil
}

// Resolve builds a fresh selection snapshot for ids, in ids order. Ids the
// daemon does not know keep an unknown status.
func (s *Service) Resolve(ctx context.Context, ids []string) ([]panel.Entity, error) {
	if len(ids) == 0 {
		return []panel.Entity{}, nil
	}

	list, err := s.source.Torrents(ctx, ids...)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]panel.UpdateStatus, len(list))
	for _, t := range list {
		byID[t.ID] = t.Update
	}

	out := make([]panel.Entity, 0, len(ids))
	for _, id := range ids {
		status, ok := byID[id]
		if !ok {
			log.Debug().Str("torrent", id).Msg("Selected torrent not found on daemon")
		}
		out = append(out, panel.Entity{ID: id, UpdateStatus: status})
	}
	return out, nil
}

// OnRefresh registers fn to run after every Refresh.
func (s *Service) OnRefresh(fn func()) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

// Refresh drops the cached list so the next List shows new status values.
// It implements panel.Refresher.
func (s *Service) Refresh(context.Context) {
	s.cache.Delete(listCacheKey)

	s.listenersMu.RLock()
	listeners := slices.Clone(s.listeners)
	s.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

func (s *Service) Close() {
	s.cache.Close()
}

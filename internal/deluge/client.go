// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package deluge talks to the Deluge web JSON api and the Updatorr plugin behind it.
package deluge

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/updatorr/internal/buildinfo"
)

// Config describes how to reach Deluge web.
type Config struct {
	URL           string
	Password      string
	HostID        string
	Timeout       time.Duration
	LoginAttempts int
	TLSSkipVerify bool
}

// CallObserver is notified after every JSON-RPC round trip.
type CallObserver func(method string, took time.Duration, err error)

type Client struct {
	cfg      Config
	endpoint string
	http     *http.Client
	seq      atomic.Int64
	observer CallObserver

	loginMu  sync.Mutex
	loggedIn atomic.Bool
	// session counts successful logins; event listeners die with a session
	session atomic.Int64

	eventsMu      sync.Mutex
	eventsSession int64
}

func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.URL))
	if err != nil {
		return nil, errors.Wrap(err, "invalid deluge url")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Errorf("invalid deluge url %q: scheme must be http or https", cfg.URL)
	}
	endpoint := base.JoinPath("json").String()

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.LoginAttempts <= 0 {
		cfg.LoginAttempts = 1
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not create cookie jar")
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLSSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	return &Client{
		cfg:      cfg,
		endpoint: endpoint,
		http: &http.Client{
			Jar:       jar,
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}, nil
}

// SetObserver installs a hook invoked after every call.
func (c *Client) SetObserver(fn CallObserver) {
	c.observer = fn
}

// Login authenticates and makes sure the web ui is connected to a daemon.
func (c *Client) Login(ctx context.Context) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()
	return c.loginLocked(ctx)
}

func (c *Client) loginLocked(ctx context.Context) error {
	c.loggedIn.Store(false)

	err := retry.Do(func() error {
		var ok bool
		if err := c.do(ctx, "auth.login", []any{c.cfg.Password}, &ok); err != nil {
			return err
		}
		if !ok {
			return retry.Unrecoverable(ErrLoginFailed)
		}
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(uint(c.cfg.LoginAttempts)),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Debug().Err(err).Uint("attempt", n+1).Msg("Retrying deluge login")
		}),
	)
	if err != nil {
		return errors.Wrap(err, "deluge login failed")
	}

	if err := c.ensureConnected(ctx); err != nil {
		return err
	}

	c.session.Add(1)
	c.loggedIn.Store(true)
	log.Debug().Str("url", c.endpoint).Msg("Logged in to deluge web")
	return nil
}

func (c *Client) ensureConnected(ctx context.Context) error {
	var connected bool
	if err := c.do(ctx, "web.connected", nil, &connected); err != nil {
		return errors.Wrap(err, "could not check daemon connection")
	}
	if connected {
		return nil
	}

	hostID := c.cfg.HostID
	if hostID == "" {
		var hosts [][]any
		if err := c.do(ctx, "web.get_hosts", nil, &hosts); err != nil {
			return errors.Wrap(err, "could not list daemon hosts")
		}
		if len(hosts) == 0 || len(hosts[0]) == 0 {
			return ErrNotConnected
		}
		id, ok := hosts[0][0].(string)
		if !ok {
			return ErrNotConnected
		}
		hostID = id
		log.Info().Str("hostId", hostID).Msg("No daemon host configured, connecting to the first known host")
	}

	if err := c.do(ctx, "web.connect", []any{hostID}, nil); err != nil {
		return errors.Wrapf(err, "could not connect to daemon %s", hostID)
	}
	return nil
}

// Call runs a JSON-RPC method, logging in first if needed. A not-authenticated
// reply triggers one re-login and a single replay.
func (c *Client) Call(ctx context.Context, method string, params []any, result any) error {
	if !c.loggedIn.Load() {
		if err := c.Login(ctx); err != nil {
			return err
		}
	}

	err := c.do(ctx, method, params, result)
	if err == nil || !isAuthError(err) {
		return err
	}

	log.Debug().Str("method", method).Msg("Deluge session expired, logging in again")
	if err := c.Login(ctx); err != nil {
		return err
	}
	return c.do(ctx, method, params, result)
}

func (c *Client) do(ctx context.Context, method string, params []any, result any) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer(method, time.Since(start), err)
		}
	}()

	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{Method: method, Params: params, ID: c.seq.Add(1)})
	if err != nil {
		return errors.Wrapf(err, "could not encode %s request", method)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "could not build %s request", method)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s request failed", method)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("%s: unexpected status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return errors.Wrapf(err, "could not decode %s response", method)
	}
	if rpcResp.Error != nil {
		rpcResp.Error.Method = method
		return rpcResp.Error
	}

	if result == nil || len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("could not decode %s result: %w", method, err)
	}
	return nil
}

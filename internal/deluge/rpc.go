// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package deluge

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Deluge web error codes.
const (
	errCodeNotAuthenticated = 1
	errCodeUnknownMethod    = 2
)

var (
	ErrLoginFailed  = errors.New("deluge rejected the password")
	ErrNotConnected = errors.New("deluge web is not connected to a daemon")
)

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
	ID     int64  `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
	ID     int64           `json:"id"`
}

// RPCError is an error object returned by the Deluge web JSON api.
type RPCError struct {
	Method  string `json:"-"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("deluge %s: %s (code %d)", e.Method, e.Message, e.Code)
}

// IsAuthError reports whether the session cookie was missing or expired.
func (e *RPCError) IsAuthError() bool {
	return e.Code == errCodeNotAuthenticated
}

// IsUnknownMethod reports whether the method does not exist, which usually
// means the plugin is not enabled on the daemon.
func (e *RPCError) IsUnknownMethod() bool {
	return e.Code == errCodeUnknownMethod
}

func isAuthError(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.IsAuthError()
}

// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/autobrr/updatorr/internal/deluge"
)

// torrentEnv is what a --where expression sees for each torrent.
type torrentEnv struct {
	ID       string
	Name     string
	State    string
	Progress float64
	Update   string
}

func compileWhere(expression string) (*vm.Program, error) {
	program, err := expr.Compile(expression, expr.Env(torrentEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid --where expression: %w", err)
	}
	return program, nil
}

// matchIDs returns the ids of the torrents the program accepts, in list order.
func matchIDs(program *vm.Program, list []deluge.Torrent) ([]string, error) {
	var ids []string
	for _, t := range list {
		result, err := expr.Run(program, torrentEnv{
			ID:       t.ID,
			Name:     t.Name,
			State:    t.State,
			Progress: t.Progress,
			Update:   string(t.Update),
		})
		if err != nil {
			return nil, fmt.Errorf("evaluate --where for %s: %w", t.ID, err)
		}

		matched, ok := result.(bool)
		if !ok {
			return nil, fmt.Errorf("--where must evaluate to a boolean")
		}
		if matched {
			ids = append(ids, t.ID)
		}
	}
	return ids, nil
}

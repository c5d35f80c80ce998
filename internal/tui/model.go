// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package tui is a terminal host for the torrent list and its context menu.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/updatorr/internal/deluge"
	"github.com/autobrr/updatorr/internal/menu"
	"github.com/autobrr/updatorr/internal/panel"
	"github.com/autobrr/updatorr/internal/torrents"
)

const (
	loadTimeout  = 30 * time.Second
	selectMarker = "●"
)

// TorrentSource lists torrents and resolves selections.
type TorrentSource interface {
	List(ctx context.Context, query string) ([]deluge.Torrent, error)
	Resolve(ctx context.Context, ids []string) ([]panel.Entity, error)
	Refresh(ctx context.Context)
}

// SelectionSetter receives the resolved selection before each show.
type SelectionSetter interface {
	Set(entities []panel.Entity)
}

type Dependencies struct {
	Torrents  TorrentSource
	Menu      *menu.Model
	Columns   *menu.Columns
	Selection SelectionSetter
}

type torrentsLoadedMsg struct {
	torrents []deluge.Torrent
	err      error
}

type menuShownMsg struct {
	settled <-chan struct{}
	err     error
}

type menuSettledMsg struct{}

// Model is the bubbletea model of the torrent list.
type Model struct {
	deps Dependencies
	keys keyMap

	table    table.Model
	torrents []deluge.Torrent
	selected map[string]bool

	menuOpen   bool
	menuItems  []menu.Item
	menuCursor int

	width   int
	height  int
	loading bool
	status  string
	err     error
}

func New(deps Dependencies) Model {
	t := table.New(table.WithFocused(true), table.WithHeight(10))

	m := Model{
		deps:     deps,
		keys:     defaultKeyMap(),
		table:    t,
		selected: make(map[string]bool),
		loading:  true,
	}
	m.rebuildTable()
	return m
}

func (m Model) Init() tea.Cmd {
	return m.loadTorrents
}

func (m Model) loadTorrents() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	list, err := m.deps.Torrents.List(ctx, "")
	return torrentsLoadedMsg{torrents: list, err: err}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.menuOpen {
			return m.updateMenu(msg)
		}
		return m.updateList(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(msg.Height-6, 3))
		m.rebuildTable()

	case torrentsLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.torrents = msg.torrents
			m.pruneSelection()
			m.rebuildTable()
		}

	case reloadMsg:
		m.loading = true
		return m, m.loadTorrents

	case noticeMsg:
		m.status = msg.text

	case applyMsg:
		msg.fn()
		if m.menuOpen {
			m.menuItems = m.deps.Menu.Items(true)
			m.clampMenuCursor()
		}

	case menuShownMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.menuOpen = true
		m.menuCursor = 0
		m.menuItems = m.deps.Menu.Items(true)
		m.clampMenuCursor()
		settled := msg.settled
		return m, func() tea.Msg {
			<-settled
			return menuSettledMsg{}
		}

	case menuSettledMsg:
		if m.menuOpen {
			m.menuItems = m.deps.Menu.Items(true)
			m.clampMenuCursor()
		}
	}

	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Select):
		if id, ok := m.cursorID(); ok {
			if m.selected[id] {
				delete(m.selected, id)
			} else {
				m.selected[id] = true
			}
			m.rebuildRows()
		}
		return m, nil

	case key.Matches(msg, m.keys.Menu):
		return m, m.showMenu(m.selectedIDs())

	case key.Matches(msg, m.keys.Column):
		m.toggleStatusColumn()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		source := m.deps.Torrents
		return m, func() tea.Msg {
			source.Refresh(context.Background())
			return reloadMsg{}
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Back):
		m.menuOpen = false

	case key.Matches(msg, m.keys.Up):
		m.moveMenuCursor(-1)

	case key.Matches(msg, m.keys.Down):
		m.moveMenuCursor(1)

	case key.Matches(msg, m.keys.Enter):
		if m.menuCursor < 0 || m.menuCursor >= len(m.menuItems) {
			return m, nil
		}
		item := m.menuItems[m.menuCursor]
		if err := m.deps.Menu.Click(context.Background(), item.ID); err != nil {
			m.status = ""
			m.err = fmt.Errorf("%s: %w", item.Label, err)
			return m, nil
		}
		m.menuOpen = false
		m.err = nil
		m.status = item.Label
	}

	return m, nil
}

// showMenu resolves the selection off the event loop and runs the menu's
// before-show handlers.
func (m Model) showMenu(ids []string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		entities := []panel.Entity{}
		if len(ids) > 0 {
			resolved, err := m.deps.Torrents.Resolve(ctx, ids)
			if err != nil {
				return menuShownMsg{err: fmt.Errorf("resolve selection: %w", err)}
			}
			entities = resolved
		}
		m.deps.Selection.Set(entities)

		return menuShownMsg{settled: m.deps.Menu.Show(ctx)}
	}
}

// selectedIDs returns the marked rows in list order, or the row under the
// cursor when nothing is marked.
func (m Model) selectedIDs() []string {
	var ids []string
	for _, t := range m.torrents {
		if m.selected[t.ID] {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 {
		if id, ok := m.cursorID(); ok {
			ids = []string{id}
		}
	}
	return ids
}

func (m Model) cursorID() (string, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.torrents) {
		return "", false
	}
	return m.torrents[idx].ID, true
}

func (m *Model) pruneSelection() {
	present := make(map[string]bool, len(m.torrents))
	for _, t := range m.torrents {
		present[t.ID] = true
	}
	for id := range m.selected {
		if !present[id] {
			delete(m.selected, id)
		}
	}
}

func (m *Model) toggleStatusColumn() {
	for _, col := range m.deps.Columns.List() {
		if col.ID != panel.StatusColumnID {
			continue
		}
		if err := m.deps.Columns.SetHidden(col.ID, !col.Hidden); err != nil {
			log.Warn().Err(err).Msg("Failed to toggle status column")
		}
		m.rebuildTable()
		return
	}
	m.status = "Status column is not registered"
}

func (m *Model) moveMenuCursor(delta int) {
	if len(m.menuItems) == 0 {
		return
	}
	next := m.menuCursor
	for range m.menuItems {
		next = (next + delta + len(m.menuItems)) % len(m.menuItems)
		if !m.menuItems[next].Separator {
			m.menuCursor = next
			return
		}
	}
}

func (m *Model) clampMenuCursor() {
	if m.menuCursor >= len(m.menuItems) {
		m.menuCursor = len(m.menuItems) - 1
	}
	if m.menuCursor < 0 {
		m.menuCursor = 0
	}
	if len(m.menuItems) > 0 && m.menuItems[m.menuCursor].Separator {
		m.moveMenuCursor(1)
	}
}

func (m Model) visibleColumns() []panel.Column {
	var cols []panel.Column
	for _, col := range m.deps.Columns.List() {
		if !col.Hidden {
			cols = append(cols, col)
		}
	}
	return cols
}

// rebuildTable resets columns and rows. Rows are cleared first so the table
// never renders rows wider than its columns.
func (m *Model) rebuildTable() {
	cols := []table.Column{{Title: "", Width: 1}}
	for _, col := range m.visibleColumns() {
		cols = append(cols, table.Column{Title: col.Title, Width: m.columnWidth(col.ID)})
	}

	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.rebuildRows()
}

func (m *Model) rebuildRows() {
	visible := m.visibleColumns()
	rows := make([]table.Row, 0, len(m.torrents))
	for _, t := range m.torrents {
		row := table.Row{""}
		if m.selected[t.ID] {
			row[0] = selectMarker
		}
		for _, col := range visible {
			row = append(row, torrents.Cell(t, col.ID))
		}
		rows = append(rows, row)
	}
	m.table.SetRows(rows)
}

func (m Model) columnWidth(id string) int {
	switch id {
	case torrents.ColumnName:
		return max(m.width-40, 24)
	case torrents.ColumnState:
		return 12
	case torrents.ColumnProgress:
		return 9
	default:
		return 9
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("updatorr  %d torrents, %d selected", len(m.torrents), len(m.selected))))
	b.WriteString("\n\n")

	switch {
	case m.loading && len(m.torrents) == 0:
		b.WriteString("  Loading torrents...\n")
	default:
		body := m.table.View()
		if m.menuOpen {
			body = lipgloss.JoinHorizontal(lipgloss.Top, body, "  ", m.menuView())
		}
		b.WriteString(body)
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.helpView())

	return b.String()
}

func (m Model) menuView() string {
	if len(m.menuItems) == 0 {
		return menuStyle.Render(menuDisabledStyle.Render("(no actions)"))
	}

	lines := make([]string, 0, len(m.menuItems))
	for idx, it := range m.menuItems {
		switch {
		case it.Separator:
			lines = append(lines, separatorStyle.Render(strings.Repeat("─", 24)))
		case idx == m.menuCursor:
			style := menuCursorStyle
			if !it.Enabled {
				style = style.Faint(true)
			}
			lines = append(lines, style.Render("> "+it.Label))
		case !it.Enabled:
			lines = append(lines, menuDisabledStyle.Render("  "+it.Label))
		default:
			lines = append(lines, "  "+it.Label)
		}
	}
	return menuStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) helpView() string {
	bindings := m.keys.help(m.menuOpen)
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		parts = append(parts, helpKeyStyle.Render(h.Key)+helpStyle.Render(" "+h.Desc))
	}
	return strings.Join(parts, "  ")
}

// Run starts the program, attaching it to bridge so panel callbacks and
// refresh notifications reach the event loop.
func Run(ctx context.Context, deps Dependencies, bridge *Bridge) error {
	p := tea.NewProgram(New(deps), tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.SetProgram(p)
	defer bridge.SetProgram(nil)

	_, err := p.Run()
	return err
}

// Package tui renders the dashboard. It never touches aggregation
// state directly: key presses become pipeline commands, and the only
// input is the published snapshot.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/antdash/antdash/internal/dashboard"
	"github.com/antdash/antdash/internal/model"
	"github.com/antdash/antdash/internal/pipeline"
)

// Commander is the pipeline surface the TUI drives.
type Commander interface {
	Offer(ev pipeline.Event) bool
	Snapshot() *dashboard.Snapshot
	Redraw() <-chan struct{}
}

type viewID int

const (
	viewSummary viewID = iota
	viewDetail
)

// redrawMsg signals that a fresh snapshot is available.
type redrawMsg struct{}

// sortColumns is the cycle order for the sort key.
var sortColumns = func() []string {
	cols := []string{dashboard.ColumnID, dashboard.ColumnStatus}
	for _, info := range model.Metrics {
		cols = append(cols, info.Name)
	}
	return cols
}()

// Model is the bubbletea model for the dashboard.
type Model struct {
	pipe     Commander
	rescan   func() // manual watch-set refresh, optional
	keys     KeyMap
	snap     *dashboard.Snapshot
	view     viewID
	showHelp bool
	width    int
	height   int
	version  string
}

// NewModel builds the dashboard model. rescan may be nil when the
// watch set is fixed.
func NewModel(pipe Commander, version string, rescan func()) Model {
	return Model{
		pipe:    pipe,
		rescan:  rescan,
		keys:    DefaultKeyMap(),
		snap:    pipe.Snapshot(),
		version: version,
	}
}

// Init starts listening for redraw signals.
func (m Model) Init() tea.Cmd {
	return m.waitRedraw()
}

func (m Model) waitRedraw() tea.Cmd {
	redraw := m.pipe.Redraw()
	return func() tea.Msg {
		<-redraw
		return redrawMsg{}
	}
}

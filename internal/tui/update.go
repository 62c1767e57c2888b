package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/antdash/antdash/internal/pipeline"
)

// Update handles redraw signals, resizes and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case redrawMsg:
		m.snap = m.pipe.Snapshot()
		return m, m.waitRedraw()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.keys
	switch {
	case key.Matches(msg, keys.ForceQuit):
		return m, tea.Quit

	case key.Matches(msg, keys.Quit):
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, keys.Escape):
		switch {
		case m.showHelp:
			m.showHelp = false
		case m.view == viewDetail:
			m.view = viewSummary
		}
		return m, nil

	case key.Matches(msg, keys.Up):
		m.pipe.Offer(pipeline.SelectStep{Delta: -1})
		return m, nil

	case key.Matches(msg, keys.Down):
		m.pipe.Offer(pipeline.SelectStep{Delta: 1})
		return m, nil

	case key.Matches(msg, keys.Enter):
		if m.snap != nil && len(m.snap.Rows) > 0 {
			if m.snap.Selected == "" {
				m.pipe.Offer(pipeline.Select{NodeID: m.snap.Rows[0].ID})
			}
			m.view = viewDetail
		}
		return m, nil

	case key.Matches(msg, keys.SortNext):
		m.pipe.Offer(pipeline.SortBy{Column: m.nextSortColumn(), Ascending: m.snap.SortAscending})
		return m, nil

	case key.Matches(msg, keys.SortToggle):
		m.pipe.Offer(pipeline.SortBy{Column: m.snap.SortColumn, Ascending: !m.snap.SortAscending})
		return m, nil

	case key.Matches(msg, keys.Rescan):
		if m.rescan != nil {
			m.rescan()
		}
		return m, nil

	case key.Matches(msg, keys.Left):
		if m.view == viewDetail {
			m.pipe.Offer(pipeline.FocusMetric{Delta: -1})
		}
		return m, nil

	case key.Matches(msg, keys.Right):
		if m.view == viewDetail {
			m.pipe.Offer(pipeline.FocusMetric{Delta: 1})
		}
		return m, nil

	case key.Matches(msg, keys.ZoomIn):
		if m.view == viewDetail {
			m.pipe.Offer(pipeline.ZoomIn{})
		}
		return m, nil

	case key.Matches(msg, keys.ZoomOut):
		if m.view == viewDetail {
			m.pipe.Offer(pipeline.ZoomOut{})
		}
		return m, nil

	case key.Matches(msg, keys.CycleMode):
		if m.view == viewDetail {
			m.pipe.Offer(pipeline.CycleDisplayMode{})
		}
		return m, nil
	}
	return m, nil
}

func (m Model) nextSortColumn() string {
	current := ""
	if m.snap != nil {
		current = m.snap.SortColumn
	}
	for i, col := range sortColumns {
		if col == current {
			return sortColumns[(i+1)%len(sortColumns)]
		}
	}
	return sortColumns[0]
}

package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/antdash/antdash/internal/dashboard"
	"github.com/antdash/antdash/internal/model"
	"github.com/antdash/antdash/internal/pricing"
)

// View renders the active view from the latest snapshot.
func (m Model) View() string {
	if m.snap == nil {
		return "starting..."
	}
	if m.showHelp {
		return m.viewHelp()
	}
	if m.view == viewDetail && m.snap.Detail != nil {
		return m.viewDetail()
	}
	return m.viewSummary()
}

func (m Model) viewSummary() string {
	snap := m.snap
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("antdash %s", m.version)))
	active := 0
	for _, row := range snap.Rows {
		if row.Status == model.StatusActive && !row.Inactive {
			active++
		}
	}
	b.WriteString(helpStyle.Render(fmt.Sprintf("  %d nodes, %d active", len(snap.Rows), active)))
	if snap.Rate.Valid() {
		b.WriteString(helpStyle.Render(fmt.Sprintf("  rate %s%.4f/token", snap.Rate.Symbol, snap.Rate.Rate)))
	}
	b.WriteString("\n\n")

	b.WriteString(m.summaryHeader())
	b.WriteString("\n")
	for _, row := range snap.Rows {
		b.WriteString(m.summaryRow(row))
		b.WriteString("\n")
	}
	if len(snap.Rows) == 0 {
		b.WriteString(helpStyle.Render("waiting for log files..."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select  enter details  s sort  S direction  g rescan  ? help  q quit"))
	return b.String()
}

type summaryColumn struct {
	title  string
	column string
	width  int
}

func (m Model) summaryColumns() []summaryColumn {
	cols := []summaryColumn{
		{"Node", dashboard.ColumnID, 24},
		{"Status", dashboard.ColumnStatus, 10},
	}
	widths := map[string]int{
		model.MetricEarnings:    12,
		model.MetricStorageCost: 10,
	}
	for _, info := range model.Metrics {
		w, ok := widths[info.Name]
		if !ok {
			w = 8
		}
		cols = append(cols, summaryColumn{info.Title, info.Name, w})
	}
	return cols
}

func (m Model) summaryHeader() string {
	var parts []string
	for _, col := range m.summaryColumns() {
		cell := pad(col.title, col.width)
		if col.column == m.snap.SortColumn {
			arrow := "↓"
			if m.snap.SortAscending {
				arrow = "↑"
			}
			cell = pad(col.title+arrow, col.width)
			parts = append(parts, sortedHeaderStyle.Render(cell))
			continue
		}
		parts = append(parts, headerStyle.Render(cell))
	}
	return strings.Join(parts, " ")
}

func (m Model) summaryRow(row dashboard.SummaryRow) string {
	style := rowStyle
	switch {
	case row.ID == m.snap.Selected:
		style = selectedRowStyle
	case row.Status != model.StatusActive:
		style = staleRowStyle
	case row.Inactive:
		style = inactiveStyle
	}

	var parts []string
	for _, col := range m.summaryColumns() {
		parts = append(parts, pad(m.summaryCell(row, col.column), col.width))
	}
	return style.Render(strings.Join(parts, " "))
}

func (m Model) summaryCell(row dashboard.SummaryRow, column string) string {
	switch column {
	case dashboard.ColumnID:
		return displayName(row)
	case dashboard.ColumnStatus:
		if row.Status == model.StatusActive && row.Inactive {
			return "Inactive"
		}
		return row.Status.String()
	}
	v := row.Values[column]
	if model.MetricByName(column).Priced {
		return pricing.FormatNanos(v, m.snap.Rate)
	}
	return fmt.Sprintf("%.0f", v)
}

func (m Model) viewDetail() string {
	d := m.snap.Detail
	var b strings.Builder

	b.WriteString(titleStyle.Render(displayName(d.SummaryRow)))
	b.WriteString(helpStyle.Render(fmt.Sprintf("  %s  %s  PID %d", d.Version, d.Conn, d.PID)))
	if d.PeerID != "" {
		b.WriteString(helpStyle.Render("  " + d.PeerID))
	}
	if d.Status != model.StatusActive {
		b.WriteString("  " + errorStyle.Render(d.Status.String()))
	} else if d.Inactive {
		b.WriteString("  " + inactiveStyle.Render("Inactive"))
	}
	b.WriteString("\n\n")

	for _, mt := range d.Timelines {
		if mt.Info.Name == d.Focused {
			b.WriteString(m.renderTimeline(mt))
			b.WriteString("\n")
			break
		}
	}

	b.WriteString(m.renderStats(d))
	b.WriteString("\n")
	b.WriteString(m.renderLogTail(d))

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("←/→ metric  i/o zoom  m min/mean/max  esc back  q quit"))
	return b.String()
}

// renderStats lists one line per metric so the whole node is readable
// while a single timeline is charted.
func (m Model) renderStats(d *dashboard.NodeDetail) string {
	var lines []string
	for _, mt := range d.Timelines {
		stat := mt.Stat
		label := pad(mt.Info.Title, 13)
		line := fmt.Sprintf("%s %10s  min %8.5g  mean %8.5g  max %8.5g",
			label, m.summaryCell(d.SummaryRow, mt.Info.Name), stat.Min, stat.Mean(), stat.Max)
		if mt.Info.Name == d.Focused {
			lines = append(lines, selectedRowStyle.Render(line))
			continue
		}
		lines = append(lines, rowStyle.Render(line))
	}
	return sectionStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderLogTail(d *dashboard.NodeDetail) string {
	max := 8
	lines := d.Lines
	if len(lines) > max {
		lines = lines[len(lines)-max:]
	}
	width := m.width - 4
	if width < 20 {
		width = 76
	}
	var out []string
	for _, l := range lines {
		if len(l) > width {
			l = l[:width]
		}
		out = append(out, logLineStyle.Render(l))
	}
	if len(out) == 0 {
		out = append(out, helpStyle.Render("no log lines yet"))
	}
	return sectionStyle.Render(strings.Join(out, "\n"))
}

func (m Model) viewHelp() string {
	rows := []struct{ keys, desc string }{
		{"q", "quit"},
		{"ctrl+c", "force quit"},
		{"?", "toggle this help"},
		{"↑/k ↓/j", "select node"},
		{"enter", "open node details"},
		{"esc", "back to summary"},
		{"s", "cycle sort column"},
		{"S", "toggle sort direction"},
		{"g", "rescan log files"},
		{"←/h →/l", "focus previous/next metric"},
		{"i / o", "zoom timeline in/out"},
		{"m", "cycle min/mean/max display"},
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("antdash keys"))
	b.WriteString("\n\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("  %s %s\n", pad(r.keys, 10), r.desc))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("press ? or esc to close"))
	return b.String()
}

func displayName(row dashboard.SummaryRow) string {
	return filepath.Base(row.ID)
}

func pad(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}

package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a new Bubbles table with default styling.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{
			Title: c.Title,
			Width: c.Width,
		}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+2), // header and its border
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.
		Foreground(ColorPrimary)
	// Nothing is focused, so the selected row must look like the rest.
	s.Selected = s.Cell

	t.SetStyles(s)
	return t
}

// RenderSimpleTable renders a non-interactive table string.
// Column widths grow to fit the widest cell.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	cols := make([]TableColumn, len(columns))
	copy(cols, columns)
	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
		for j, cell := range row {
			if j < len(cols) && lipgloss.Width(cell) > cols[j].Width {
				cols[j].Width = lipgloss.Width(cell)
			}
		}
	}

	t := NewTable(cols, tableRows)
	return t.View()
}

// MachineTableRow is one machine in the machines listing.
type MachineTableRow struct {
	ID      string
	Name    string
	State   string
	IP      string
	Actions []string // enabled actions, in display order
}

// RenderMachineTable renders machines with their state and available actions.
func RenderMachineTable(rows []MachineTableRow) string {
	if len(rows) == 0 {
		return "No machines found"
	}

	columns := []TableColumn{
		{Title: "ID", Width: 10},
		{Title: "NAME", Width: 10},
		{Title: "STATE", Width: 10},
		{Title: "IP", Width: 15},
		{Title: "ACTIONS", Width: 20},
	}
	cells := make([][]string, len(rows))
	for i, r := range rows {
		ip := r.IP
		if ip == "" {
			ip = "-"
		}
		actions := "none"
		if len(r.Actions) > 0 {
			actions = strings.Join(r.Actions, ", ")
		}
		cells[i] = []string{r.ID, r.Name, r.State, ip, actions}
	}
	return RenderSimpleTable(columns, cells)
}

// StateSymbol returns a colored marker for a machine state.
func StateSymbol(state string) string {
	switch state {
	case "running":
		return SuccessStyle.Render(SymbolComplete)
	case "pending", "rebooting":
		return WarningStyle.Render(SymbolComplete)
	case "terminated":
		return ErrorStyle.Render(SymbolFail)
	default:
		return MutedStyle.Render(SymbolPending)
	}
}

// CheckRow is one line of a validation report.
type CheckRow struct {
	Status     string // "pass", "warn", "fail"
	Category   string
	Message    string
	Suggestion string
}

// RenderCheckTable renders check results grouped by category, in the
// order categories first appear.
func RenderCheckTable(rows []CheckRow) string {
	if len(rows) == 0 {
		return "No checks to display"
	}

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary)

	var b strings.Builder

	categories := make(map[string][]CheckRow)
	var order []string
	for _, row := range rows {
		if _, exists := categories[row.Category]; !exists {
			order = append(order, row.Category)
		}
		categories[row.Category] = append(categories[row.Category], row)
	}

	for _, cat := range order {
		b.WriteString(headerStyle.Render(cat) + "\n")

		for _, row := range categories[cat] {
			var icon string
			switch row.Status {
			case "pass":
				icon = SuccessStyle.Render(SymbolSuccess)
			case "warn":
				icon = WarningStyle.Render(SymbolSkipped)
			case "fail":
				icon = ErrorStyle.Render(SymbolFail)
			default:
				icon = MutedStyle.Render(SymbolPending)
			}

			b.WriteString("  " + icon + " " + row.Message + "\n")

			if row.Suggestion != "" && row.Status != "pass" {
				b.WriteString("    " + MutedStyle.Render(row.Suggestion) + "\n")
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

// padRight pads a string to the specified width.
func padRight(s string, width int) string {
	// Account for ANSI codes when calculating visible length
	visibleLen := lipgloss.Width(s)
	if visibleLen >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visibleLen)
}

// KeyValue renders aligned "key: value" lines.
func KeyValue(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		width = max(width, lipgloss.Width(p[0])+1)
	}
	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(MutedStyle.Render(padRight(p[0]+":", width)) + " " + p[1] + "\n")
	}
	return b.String()
}

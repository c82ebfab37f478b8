// ABOUTME: Sync history view for the selected linked workspace
// ABOUTME: Renders recent passes in a bubbles table; esc returns to the link list
package tui

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/claimsync/db"
)

func (m *Model) loadRuns() {
	m.runs = nil
	if m.selected >= len(m.links) {
		return
	}
	runs, err := db.ListSyncRuns(context.Background(), m.db, m.links[m.selected].ID, 50)
	m.loadErr = err
	m.runs = runs

	columns := []table.Column{
		{Title: "Started", Width: 20},
		{Title: "Trigger", Width: 8},
		{Title: "Succeeded", Width: 10},
		{Title: "Failed", Width: 8},
		{Title: "Duration", Width: 12},
	}

	rows := make([]table.Row, 0, len(runs))
	for _, run := range runs {
		duration := "running"
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		rows = append(rows, table.Row{
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Trigger,
			strconv.Itoa(run.Succeeded),
			strconv.Itoa(run.Failed),
			duration,
		})
	}

	m.runsTable = table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-8, 3)),
	)
}

func (m Model) renderRunsView() string {
	var s strings.Builder

	link := m.links[m.selected]
	s.WriteString(titleStyle.Render("Sync History • " + link.ExternalInstanceURL))
	s.WriteString("\n\n")

	if len(m.runs) == 0 {
		s.WriteString(messageStyle.Render("No sync runs yet."))
		s.WriteString("\n")
	} else {
		s.WriteString(m.runsTable.View())
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render("↑/↓: Scroll • Esc: Back • r: Refresh • q: Quit"))
	return s.String()
}

func (m Model) handleRunsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace":
		m.viewMode = ViewLinks
		m.loadLinks()
		return m, nil
	case "r":
		m.loadRuns()
		return m, nil
	}

	var cmd tea.Cmd
	m.runsTable, cmd = m.runsTable.Update(msg)
	return m, cmd
}

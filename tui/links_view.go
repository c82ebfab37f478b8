// ABOUTME: Dashboard view listing linked workspaces and their sync state
// ABOUTME: Enter syncs the selected link, a syncs every active link
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/claimsync/db"
	"github.com/harperreed/claimsync/models"
	"github.com/harperreed/claimsync/sync"
)

// LinkSyncedMsg is sent when a pass for one link completes.
type LinkSyncedMsg struct {
	LinkID  string
	Results []sync.ClaimResult
	Error   error
}

func (m Model) renderLinksView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Claim Sync"))
	s.WriteString("\n\n")

	if m.loadErr != nil {
		s.WriteString(errorStyle.Render("Error: " + m.loadErr.Error()))
		s.WriteString("\n")
	}

	if len(m.links) == 0 {
		s.WriteString(messageStyle.Render("No linked workspaces. Run 'claimsync link register' first."))
		s.WriteString("\n\n")
		s.WriteString(helpStyle.Render("q: Quit"))
		return s.String()
	}

	s.WriteString(headerStyle.Render("Linked Workspaces"))
	s.WriteString("\n\n")

	for i, link := range m.links {
		var row strings.Builder

		if i == m.selected {
			row.WriteString("▶ ")
		} else {
			row.WriteString("  ")
		}

		name := link.InstanceName
		if name == "" {
			name = link.ExternalInstanceURL
		}
		name = fmt.Sprintf("%-40s", truncate(name, 40))
		if i == m.selected {
			row.WriteString(selectedStyle.Render(name))
		} else {
			row.WriteString(name)
		}

		switch {
		case m.inProgress[link.ID]:
			row.WriteString(syncingStyle.Render("  ⟳ Syncing..."))
		case link.Status != models.LinkStatusActive:
			row.WriteString(errorStyle.Render("  ✗ " + link.Status))
		default:
			row.WriteString(idleStyle.Render("  ✓ Active"))
			if link.LastSyncedAt != nil {
				row.WriteString(messageStyle.Render(" • Last synced " + formatTimeSince(*link.LastSyncedAt)))
			} else {
				row.WriteString(messageStyle.Render(" • Never synced"))
			}
		}

		s.WriteString(row.String())
		s.WriteString("\n")
	}

	s.WriteString("\n")

	if len(m.messages) > 0 {
		s.WriteString(headerStyle.Render("Recent Activity"))
		s.WriteString("\n\n")
		start := 0
		if len(m.messages) > 5 {
			start = len(m.messages) - 5
		}
		for _, msg := range m.messages[start:] {
			s.WriteString(messageStyle.Render("  " + msg))
			s.WriteString("\n")
		}
		s.WriteString("\n")
	}

	help := []string{
		"↑/↓: Select link",
		"Enter: Sync selected",
		"a: Sync all",
		"h: History",
		"r: Refresh",
		"q: Quit",
	}
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))

	return s.String()
}

func (m *Model) loadLinks() {
	links, err := db.ListLinkedWorkspaces(context.Background(), m.db, "")
	m.loadErr = err
	if err != nil {
		return
	}
	m.links = links
	if m.selected >= len(m.links) {
		m.selected = max(len(m.links)-1, 0)
	}
}

func (m Model) handleLinksKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.links)-1 {
			m.selected++
		}
	case "enter":
		if m.selected >= len(m.links) {
			return m, nil
		}
		link := m.links[m.selected]
		if cmd := m.startSync(link); cmd != nil {
			return m, cmd
		}
	case "a":
		var cmds []tea.Cmd
		for _, link := range m.links {
			if link.Status != models.LinkStatusActive {
				continue
			}
			if cmd := m.startSync(link); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		return m, tea.Batch(cmds...)
	case "h":
		if m.selected < len(m.links) {
			m.loadRuns()
			m.viewMode = ViewRuns
		}
	case "r":
		m.loadLinks()
	}

	return m, nil
}

// startSync marks link busy and returns the command running its pass, or
// nil when the link cannot be synced right now.
func (m *Model) startSync(link models.LinkedWorkspace) tea.Cmd {
	if m.inProgress[link.ID] {
		return nil
	}
	if link.Status != models.LinkStatusActive {
		m.addMessage(fmt.Sprintf("✗ %s is %s", link.ExternalInstanceURL, link.Status))
		return nil
	}

	m.inProgress[link.ID] = true
	m.addMessage(fmt.Sprintf("Starting sync to %s...", link.ExternalInstanceURL))
	return syncLink(m.syncer, link)
}

func syncLink(syncer Syncer, link models.LinkedWorkspace) tea.Cmd {
	return func() tea.Msg {
		results, err := syncer.SyncClaims(context.Background(), link.WorkspaceID, link.ExternalInstanceURL, link.SyncSecret)
		return LinkSyncedMsg{LinkID: link.ID, Results: results, Error: err}
	}
}

func (m *Model) handleLinkSynced(msg LinkSyncedMsg) {
	delete(m.inProgress, msg.LinkID)

	target := msg.LinkID
	for _, l := range m.links {
		if l.ID == msg.LinkID {
			target = l.ExternalInstanceURL
		}
	}

	switch failed := sync.Failed(msg.Results); {
	case msg.Error != nil:
		m.addMessage(fmt.Sprintf("✗ sync to %s failed: %v", target, msg.Error))
	case failed > 0:
		m.addMessage(fmt.Sprintf("✗ sync to %s: %d of %d claims failed", target, failed, len(msg.Results)))
	default:
		m.addMessage(fmt.Sprintf("✓ sync to %s: %d claims", target, len(msg.Results)))
	}

	m.loadLinks()
}

func (m *Model) addMessage(msg string) {
	timestamp := time.Now().Format("15:04:05")
	m.messages = append(m.messages, fmt.Sprintf("[%s] %s", timestamp, msg))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

// formatTimeSince formats a time duration in a human-readable way.
func formatTimeSince(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return "just now"
	} else if duration < time.Hour {
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	} else if duration < 24*time.Hour {
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}
	days := int(duration.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}

// ABOUTME: Terminal dashboard for linked workspaces using the bubbletea framework
// ABOUTME: Shows link status and sync history and can trigger passes interactively
package tui

import (
	"context"
	"database/sql"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/claimsync/models"
	"github.com/harperreed/claimsync/sync"
)

// ViewMode represents the current dashboard view
type ViewMode int

const (
	ViewLinks ViewMode = iota
	ViewRuns
)

// Syncer runs one pass for a link. *sync.Initiator satisfies it.
type Syncer interface {
	SyncClaims(ctx context.Context, workspaceID, targetURL, secret string) ([]sync.ClaimResult, error)
}

// Model is the main bubbletea model
type Model struct {
	db       *sql.DB
	syncer   Syncer
	viewMode ViewMode

	links      []models.LinkedWorkspace
	selected   int
	inProgress map[string]bool
	messages   []string
	loadErr    error

	runs      []models.SyncRun
	runsTable table.Model

	width  int
	height int
}

// NewModel creates a dashboard over database, syncing through syncer.
func NewModel(database *sql.DB, syncer Syncer) Model {
	m := Model{
		db:         database,
		syncer:     syncer,
		viewMode:   ViewLinks,
		inProgress: map[string]bool{},
		width:      100,
		height:     24,
	}
	m.loadLinks()
	return m
}

// Run starts the dashboard full screen.
func Run(database *sql.DB, syncer Syncer) error {
	_, err := tea.NewProgram(NewModel(database, syncer), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case LinkSyncedMsg:
		m.handleLinkSynced(msg)
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewLinks:
		return m.renderLinksView()
	case ViewRuns:
		return m.renderRunsView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewLinks:
		return m.handleLinksKeys(msg)
	case ViewRuns:
		return m.handleRunsKeys(msg)
	}

	return m, nil
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Underline(true)

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	syncingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255")).
			Bold(true)

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)
)

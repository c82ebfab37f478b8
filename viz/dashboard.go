// ABOUTME: Terminal statistics for claims and linked workspaces
// ABOUTME: Provides an ASCII overview of claim status and link health
package viz

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/claimsync/db"
	"github.com/harperreed/claimsync/models"
)

// StaleAfter is how long an active link may go without a pass before it is flagged.
const StaleAfter = 24 * time.Hour

type DashboardStats struct {
	ClaimsByStatus map[string]StatusStats

	TotalWorkspaces int
	TotalClaims     int
	ActiveLinks     int
	InactiveLinks   int

	// Needs attention
	StaleLinks  []StaleLink
	FailedLinks []FailedLink
}

type StatusStats struct {
	Status string
	Count  int
	Amount int64 // in cents
}

type StaleLink struct {
	URL       string
	DaysSince int // -1 when never synced
}

type FailedLink struct {
	URL    string
	Failed int
}

func GenerateDashboardStats(ctx context.Context, database *sql.DB) (*DashboardStats, error) {
	stats := &DashboardStats{
		ClaimsByStatus: make(map[string]StatusStats),
	}

	workspaces, err := db.ListWorkspaces(ctx, database)
	if err != nil {
		return nil, err
	}
	stats.TotalWorkspaces = len(workspaces)

	for _, ws := range workspaces {
		claims, err := db.ListClaimsByWorkspace(ctx, database, ws.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch claims: %w", err)
		}

		for _, claim := range claims {
			status := claim.Status
			if status == "" {
				status = "unknown"
			}

			sstats := stats.ClaimsByStatus[status]
			sstats.Status = status
			sstats.Count++
			sstats.Amount += claim.Amount
			stats.ClaimsByStatus[status] = sstats
		}
		stats.TotalClaims += len(claims)
	}

	links, err := db.ListLinkedWorkspaces(ctx, database, "")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, link := range links {
		if link.Status != models.LinkStatusActive {
			stats.InactiveLinks++
			continue
		}
		stats.ActiveLinks++

		if link.LastSyncedAt == nil {
			stats.StaleLinks = append(stats.StaleLinks, StaleLink{URL: link.ExternalInstanceURL, DaysSince: -1})
		} else if since := now.Sub(*link.LastSyncedAt); since > StaleAfter {
			stats.StaleLinks = append(stats.StaleLinks, StaleLink{URL: link.ExternalInstanceURL, DaysSince: int(since.Hours() / 24)})
		}

		runs, err := db.ListSyncRuns(ctx, database, link.ID, 1)
		if err != nil {
			return nil, err
		}
		if len(runs) > 0 && runs[0].Failed > 0 {
			stats.FailedLinks = append(stats.FailedLinks, FailedLink{URL: link.ExternalInstanceURL, Failed: runs[0].Failed})
		}
	}

	return stats, nil
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  CLAIMSYNC DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("CLAIMS BY STATUS\n")
	renderStatuses(&out, stats.ClaimsByStatus)
	out.WriteString("\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  🗂  %d workspaces  📋 %d claims  🔗 %d active links  ⛔ %d inactive\n\n",
		stats.TotalWorkspaces, stats.TotalClaims, stats.ActiveLinks, stats.InactiveLinks))

	if len(stats.StaleLinks) > 0 || len(stats.FailedLinks) > 0 {
		out.WriteString("NEEDS ATTENTION\n")

		for _, l := range stats.StaleLinks {
			if l.DaysSince < 0 {
				out.WriteString(fmt.Sprintf("  ⚠️  %s - never synced\n", l.URL))
			} else {
				out.WriteString(fmt.Sprintf("  ⚠️  %s - last synced %d day(s) ago\n", l.URL, l.DaysSince))
			}
		}

		for _, l := range stats.FailedLinks {
			out.WriteString(fmt.Sprintf("  ⚠️  %s - %d claim(s) failed on the last pass\n", l.URL, l.Failed))
		}
	}

	return out.String()
}

func renderStatuses(out *strings.Builder, byStatus map[string]StatusStats) {
	order := []string{
		models.ClaimStatusOpen,
		models.ClaimStatusInProgress,
		models.ClaimStatusSettled,
		models.ClaimStatusClosed,
	}

	// Free-text statuses follow the known ones alphabetically
	known := map[string]bool{}
	for _, s := range order {
		known[s] = true
	}
	var extra []string
	for status := range byStatus {
		if !known[status] {
			extra = append(extra, status)
		}
	}
	sort.Strings(extra)
	order = append(order, extra...)

	maxCount := 0
	for _, sstats := range byStatus {
		if sstats.Count > maxCount {
			maxCount = sstats.Count
		}
	}
	if maxCount == 0 {
		out.WriteString("  (no claims)\n")
		return
	}

	for _, status := range order {
		sstats, exists := byStatus[status]
		if !exists {
			continue
		}

		barLength := (sstats.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)

		amountK := sstats.Amount / 100000

		out.WriteString(fmt.Sprintf("  %-13s %s  %2d ($%dK)\n",
			status, bar, sstats.Count, amountK))
	}
}

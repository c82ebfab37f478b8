// ABOUTME: Manual sync commands and sync run history
// ABOUTME: Pushes claims to one linked peer or to every active link
package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harperreed/claimsync/db"
	"github.com/harperreed/claimsync/sync"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	var workspaceID, target, secret string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push every claim of a workspace to one linked peer",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := requireBaseURL(e.cfg); err != nil {
				return err
			}

			ctx := background(cmd)
			if secret == "" {
				link, err := db.FindLinkedWorkspace(ctx, e.db, workspaceID, sync.NormalizeURL(target))
				if err != nil {
					return err
				}
				if link == nil {
					return fmt.Errorf("workspace %s is not linked to %s", workspaceID, target)
				}
				secret = link.SyncSecret
			}

			results, err := e.initiator(ctx, e.peerClient()).SyncClaims(ctx, workspaceID, target, secret)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printf(out, "%s\n\n", titleStyle.Render("Sync to "+sync.NormalizeURL(target)))
			printResults(out, results)
			if n := sync.Failed(results); n > 0 {
				return fmt.Errorf("%d of %d claims failed", n, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "", "local workspace id (required)")
	cmd.Flags().StringVar(&target, "target", "", "peer instance url (required)")
	cmd.Flags().StringVar(&secret, "secret", "", "link sync secret (default: the stored secret)")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newSyncAllCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-all",
		Short: "Run one pass over every active linked workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := requireBaseURL(e.cfg); err != nil {
				return err
			}

			ctx := background(cmd)
			passes, err := e.initiator(ctx, e.peerClient()).SyncAllWorkspaces(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(passes) == 0 {
				printf(out, "No active linked workspaces\n")
				return nil
			}

			failed := 0
			for _, lr := range passes {
				printf(out, "%s %s\n", titleStyle.Render(lr.TargetInstanceURL), mutedStyle.Render("("+shortID(lr.LinkedWorkspaceID)+")"))
				if lr.Error != "" {
					printf(out, "  %s\n", errorStyle.Render("✗ "+lr.Error))
					failed++
				}
				printResults(out, lr.Results)
				printf(out, "\n")
				failed += sync.Failed(lr.Results)
			}

			if failed > 0 {
				return fmt.Errorf("%d failures across %d links", failed, len(passes))
			}
			return nil
		},
	}
}

func printResults(out io.Writer, results []sync.ClaimResult) {
	for _, r := range results {
		if r.Success {
			verb := "updated"
			if r.Created {
				verb = "created"
			}
			printf(out, "  %s %s %s\n", okStyle.Render("✓"), r.ClaimID, mutedStyle.Render(verb+" as "+r.RemoteClaimID))
			continue
		}
		printf(out, "  %s %s %s\n", errorStyle.Render("✗"), r.ClaimID, r.Error)
	}
	printf(out, "\nTotal: %d claim(s), %d failed\n", len(results), sync.Failed(results))
}

func newRunsCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs <linked-workspace-id>",
		Short: "Show recent sync runs for a link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			runs, err := db.ListSyncRuns(background(cmd), e.db, args[0], limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				printf(out, "No sync runs found\n")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "STARTED\tTRIGGER\tSUCCEEDED\tFAILED\tDURATION")
			_, _ = fmt.Fprintln(w, "-------\t-------\t---------\t------\t--------")
			for _, run := range runs {
				duration := "running"
				if run.FinishedAt != nil {
					duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
					run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Trigger, run.Succeeded, run.Failed, duration)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum runs to show")
	return cmd
}

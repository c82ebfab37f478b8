// ABOUTME: Linked workspace CLI commands
// ABOUTME: Register, list, revoke and invite peers, and browse a peer's users
package cli

import (
	"crypto/rand"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harperreed/claimsync/db"
	"github.com/harperreed/claimsync/models"
	"github.com/harperreed/claimsync/sync"
)

func newLinkCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Manage links between local workspaces and peer instances",
	}

	cmd.AddCommand(
		newLinkRegisterCmd(opts),
		newLinkInviteCmd(opts),
		newLinkListCmd(opts),
		newLinkRevokeCmd(opts),
		newLinkUsersCmd(opts),
		newLinkGraphCmd(opts),
	)
	return cmd
}

type linkFlags struct {
	workspaceID     string
	peerURL         string
	remoteWorkspace string
	name            string
	secret          string
}

func (f *linkFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.workspaceID, "workspace", "", "local workspace id (required)")
	cmd.Flags().StringVar(&f.peerURL, "url", "", "peer instance base url (required)")
	cmd.Flags().StringVar(&f.remoteWorkspace, "remote-workspace", "", "workspace id on the peer that receives claims")
	cmd.Flags().StringVar(&f.name, "name", "", "display name for the peer")
	cmd.Flags().StringVar(&f.secret, "secret", "", "shared sync secret (default: prompted on a terminal, otherwise generated)")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("url")
}

// resolveSecret fills the sync secret from the flag, a hidden prompt, or a
// random value, in that order. It reports whether the value was generated.
func (f *linkFlags) resolveSecret(cmd *cobra.Command) (bool, error) {
	if f.secret != "" {
		return false, nil
	}
	secret, _, err := readSecret(cmd, promptSyncSecret)
	if err != nil {
		return false, err
	}
	if secret != "" {
		f.secret = secret
		return false, nil
	}
	f.secret = rand.Text()
	return true, nil
}

func (f *linkFlags) params() sync.LinkParams {
	return sync.LinkParams{
		WorkspaceID:         f.workspaceID,
		ExternalInstanceURL: f.peerURL,
		ExternalWorkspaceID: f.remoteWorkspace,
		InstanceName:        f.name,
		SyncSecret:          f.secret,
	}
}

func newLinkRegisterCmd(opts *rootOptions) *cobra.Command {
	f := &linkFlags{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Link a local workspace to a peer instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			generated, err := f.resolveSecret(cmd)
			if err != nil {
				return err
			}

			ctx := background(cmd)
			link, created, err := e.initiator(ctx, e.peerClient()).RegisterLink(ctx, f.params())
			if err != nil {
				return err
			}

			printLink(cmd, link, created)
			if created && generated {
				printf(cmd.OutOrStdout(), "  Secret: %s\n", f.secret)
			}
			return nil
		},
	}

	f.bind(cmd)
	return cmd
}

func newLinkInviteCmd(opts *rootOptions) *cobra.Command {
	f := &linkFlags{}
	var workspaceSecret string

	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Link a workspace and ask the peer to link back",
		Long: `invite registers the link locally, then calls the peer's workspace-sync
webhook so the peer creates the matching link for its workspace.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := requireBaseURL(e.cfg); err != nil {
				return err
			}
			if f.remoteWorkspace == "" {
				return fmt.Errorf("--remote-workspace is required for invites")
			}
			if workspaceSecret == "" {
				secret, ok, err := readSecret(cmd, promptWorkspaceSecret)
				if err != nil {
					return err
				}
				if !ok || secret == "" {
					return fmt.Errorf("--workspace-secret is required when not running on a terminal")
				}
				workspaceSecret = secret
			}
			if _, err := f.resolveSecret(cmd); err != nil {
				return err
			}

			ctx := background(cmd)
			client := e.peerClient()
			link, created, err := e.initiator(ctx, client).RegisterLink(ctx, f.params())
			if err != nil {
				return err
			}
			printLink(cmd, link, created)

			err = client.SendInvite(ctx, link.ExternalInstanceURL, workspaceSecret, &sync.Request{
				TargetWorkspaceID: f.remoteWorkspace,
				InstanceURL:       e.cfg.BaseURL,
				WorkspaceID:       link.WorkspaceID,
				InstanceName:      f.name,
				SyncSecret:        link.SyncSecret,
			})
			if err != nil {
				return fmt.Errorf("peer rejected invite: %w", err)
			}

			printf(cmd.OutOrStdout(), "%s Peer %s linked back to %s\n", okStyle.Render("✓"), link.ExternalInstanceURL, e.cfg.BaseURL)
			return nil
		},
	}

	f.bind(cmd)
	cmd.Flags().StringVar(&workspaceSecret, "workspace-secret", "", "the peer's workspace sync secret (default: prompted on a terminal)")
	return cmd
}

func printLink(cmd *cobra.Command, link *models.LinkedWorkspace, created bool) {
	out := cmd.OutOrStdout()
	if created {
		printf(out, "%s Linked workspace created: %s\n", okStyle.Render("✓"), link.ID)
	} else {
		printf(out, "%s Link already exists: %s\n", warnStyle.Render("•"), link.ID)
	}
	printf(out, "  Peer: %s\n", link.ExternalInstanceURL)
	if link.ExternalWorkspaceID != "" {
		printf(out, "  Remote workspace: %s\n", link.ExternalWorkspaceID)
	}
	printf(out, "  Status: %s\n", link.Status)
}

func newLinkListCmd(opts *rootOptions) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List linked workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			links, err := db.ListLinkedWorkspaces(background(cmd), e.db, status)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(links) == 0 {
				printf(out, "No linked workspaces found\n")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tWORKSPACE\tPEER\tREMOTE WORKSPACE\tSTATUS\tLAST SYNC")
			_, _ = fmt.Fprintln(w, "--\t---------\t----\t----------------\t------\t---------")
			for _, l := range links {
				last := "never"
				if l.LastSyncedAt != nil {
					last = l.LastSyncedAt.Local().Format("2006-01-02 15:04")
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					l.ID, shortID(l.WorkspaceID), l.ExternalInstanceURL, orDash(l.ExternalWorkspaceID), l.Status, last)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			printf(out, "\nTotal: %d link(s)\n", len(links))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (active, inactive)")
	return cmd
}

func newLinkRevokeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <linked-workspace-id>",
		Short: "Deactivate a link; its claims stop syncing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := background(cmd)
			if err := e.initiator(ctx, e.peerClient()).RevokeLink(ctx, args[0]); err != nil {
				return err
			}

			printf(cmd.OutOrStdout(), "%s Link revoked: %s\n", okStyle.Render("✓"), args[0])
			return nil
		},
	}
}

func newLinkUsersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "users <linked-workspace-id>",
		Short: "List the users of a linked peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := background(cmd)
			link, err := db.GetLinkedWorkspace(ctx, e.db, args[0])
			if err != nil {
				return err
			}
			if link == nil {
				return fmt.Errorf("linked workspace not found: %s", args[0])
			}

			users, err := e.peerClient().FetchUsers(ctx, link.ExternalInstanceURL, link.SyncSecret, &sync.Request{
				SourceInstanceURL: e.cfg.BaseURL,
				TargetWorkspaceID: link.ExternalWorkspaceID,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printf(out, "%s\n\n", titleStyle.Render("Users on "+link.ExternalInstanceURL))
			if len(users) == 0 {
				printf(out, "No users found\n")
				return nil
			}
			printUsers(cmd, users)
			return nil
		},
	}
}

func printUsers(cmd *cobra.Command, users []models.User) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "EMAIL\tNAME\tROLE")
	_, _ = fmt.Fprintln(w, "-----\t----\t----")
	for _, u := range users {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", u.Email, orDash(u.FullName), orDash(u.Role))
	}
	_ = w.Flush()
	printf(cmd.OutOrStdout(), "\nTotal: %d user(s)\n", len(users))
}

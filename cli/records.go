// ABOUTME: Workspace, claim and user CLI commands
// ABOUTME: Local record management for the data that gets replicated
package cli

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harperreed/claimsync/db"
	"github.com/harperreed/claimsync/models"
)

func newWorkspaceCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage local workspaces",
	}

	var name string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			ws := &models.Workspace{Name: name}
			if err := db.CreateWorkspace(background(cmd), e.db, ws); err != nil {
				return err
			}

			printf(cmd.OutOrStdout(), "%s Workspace created: %s (ID: %s)\n", okStyle.Render("✓"), ws.Name, ws.ID)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "workspace name (required)")
	_ = add.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := background(cmd)
			workspaces, err := db.ListWorkspaces(ctx, e.db)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(workspaces) == 0 {
				printf(out, "No workspaces found\n")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tCLAIMS\tID")
			_, _ = fmt.Fprintln(w, "----\t------\t--")
			for _, ws := range workspaces {
				n, err := db.CountClaimsByWorkspace(ctx, e.db, ws.ID)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", ws.Name, n, ws.ID)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

type claimFlags struct {
	workspaceID string
	number      string
	policy      string
	holder      string
	email       string
	address     string
	status      string
	amount      float64
	insurer     string
	lossType    string
}

func newClaimCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Manage local claims",
	}

	f := &claimFlags{}
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a claim in a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			claim := &models.Claim{
				WorkspaceID:       f.workspaceID,
				ClaimNumber:       f.number,
				PolicyNumber:      f.policy,
				PolicyholderName:  f.holder,
				PolicyholderEmail: f.email,
				PropertyAddress:   f.address,
				Status:            f.status,
				Amount:            int64(math.Round(f.amount * 100)),
				InsuranceCompany:  f.insurer,
				LossType:          f.lossType,
			}
			if err := db.CreateClaim(background(cmd), e.db, claim); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printf(out, "%s Claim created: %s (ID: %s)\n", okStyle.Render("✓"), claim.PolicyholderName, claim.ID)
			if claim.ClaimNumber != "" {
				printf(out, "  Number: %s\n", claim.ClaimNumber)
			}
			printf(out, "  Status: %s\n", claim.Status)
			return nil
		},
	}
	add.Flags().StringVar(&f.workspaceID, "workspace", "", "workspace id (required)")
	add.Flags().StringVar(&f.holder, "policyholder", "", "policyholder name (required)")
	add.Flags().StringVar(&f.number, "number", "", "claim number")
	add.Flags().StringVar(&f.policy, "policy", "", "policy number")
	add.Flags().StringVar(&f.email, "email", "", "policyholder email")
	add.Flags().StringVar(&f.address, "address", "", "property address")
	add.Flags().StringVar(&f.status, "status", models.ClaimStatusOpen, "claim status")
	add.Flags().Float64Var(&f.amount, "amount", 0, "claim amount in dollars")
	add.Flags().StringVar(&f.insurer, "insurer", "", "insurance company")
	add.Flags().StringVar(&f.lossType, "loss-type", "", "type of loss (wind, water, fire...)")
	_ = add.MarkFlagRequired("workspace")
	_ = add.MarkFlagRequired("policyholder")

	var workspaceID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the claims of a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			claims, err := db.ListClaimsByWorkspace(background(cmd), e.db, workspaceID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(claims) == 0 {
				printf(out, "No claims found\n")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NUMBER\tPOLICYHOLDER\tSTATUS\tAMOUNT\tID")
			_, _ = fmt.Fprintln(w, "------\t------------\t------\t------\t--")
			for _, c := range claims {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					orDash(c.ClaimNumber), c.PolicyholderName, c.Status, formatCents(c.Amount), c.ID)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			printf(out, "\nTotal: %d claim(s)\n", len(claims))
			return nil
		},
	}
	list.Flags().StringVar(&workspaceID, "workspace", "", "workspace id (required)")
	_ = list.MarkFlagRequired("workspace")

	show := &cobra.Command{
		Use:   "show <claim-id>",
		Short: "Show a claim and how many child records it carries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := background(cmd)
			claim, err := db.GetClaim(ctx, e.db, args[0])
			if err != nil {
				return err
			}
			if claim == nil {
				return fmt.Errorf("claim not found: %s", args[0])
			}

			counts, err := db.ClaimChildCounts(ctx, e.db, claim.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printf(out, "%s\n", titleStyle.Render(claim.PolicyholderName))
			printf(out, "  Number: %s\n", orDash(claim.ClaimNumber))
			printf(out, "  Status: %s\n", claim.Status)
			printf(out, "  Amount: %s\n", formatCents(claim.Amount))
			printf(out, "  Insurer: %s\n\n", orDash(claim.InsuranceCompany))

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, c := range counts {
				_, _ = fmt.Fprintf(w, "  %s\t%d\n", c.Table, c.Count)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(add, list, show)
	return cmd
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the local user directory served to peers",
	}

	var email, name, role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			u := &models.User{Email: email, FullName: name, Role: role}
			if err := db.CreateUser(background(cmd), e.db, u); err != nil {
				return err
			}

			printf(cmd.OutOrStdout(), "%s User created: %s (ID: %s)\n", okStyle.Render("✓"), u.Email, u.ID)
			return nil
		},
	}
	add.Flags().StringVar(&email, "email", "", "email address (required)")
	add.Flags().StringVar(&name, "name", "", "full name")
	add.Flags().StringVar(&role, "role", "", "role")
	_ = add.MarkFlagRequired("email")

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.Close()

			users, err := db.ListUsers(background(cmd), e.db)
			if err != nil {
				return err
			}
			if len(users) == 0 {
				printf(cmd.OutOrStdout(), "No users found\n")
				return nil
			}
			printUsers(cmd, users)
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

// ABOUTME: Hidden terminal prompts for shared secrets
// ABOUTME: Keeps secrets off argv when a command runs interactively
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	promptSyncSecret      = "Sync secret (leave empty to generate)"
	promptWorkspaceSecret = "Peer workspace sync secret"
)

// readSecret asks for a secret without echoing it. ok is false when stdin is
// not a terminal, in which case nothing is read. Tests replace it.
var readSecret = func(cmd *cobra.Command, prompt string) (secret string, ok bool, err error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", false, nil
	}

	printf(cmd.ErrOrStderr(), "%s: ", prompt)
	raw, err := term.ReadPassword(fd)
	printf(cmd.ErrOrStderr(), "\n")
	if err != nil {
		return "", true, fmt.Errorf("failed to read secret: %w", err)
	}
	return strings.TrimSpace(string(raw)), true, nil
}

// ABOUTME: Entry point for the claimsync service and CLI
// ABOUTME: Hands control to the cobra command tree in package cli
package main

import (
	"fmt"
	"os"

	"github.com/harperreed/claimsync/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

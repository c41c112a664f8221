package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/hos-tracker/internal/guard"
)

var whoamiCmd = &cobra.Command{
	Use:         "whoami",
	Aliases:     []string{"profile"},
	Short:       "Show your driver profile",
	Args:        cobra.NoArgs,
	Annotations: guard.Annotate(guard.Protected),
	RunE:        runWhoami,
}

func runWhoami(cmd *cobra.Command, args []string) error {
	loading(cmd, "profile")
	u, err := client.Me(cmd.Context())
	if err != nil {
		return fmt.Errorf("could not load profile: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name:     %s\n", u.DisplayName())
	fmt.Fprintf(out, "Username: %s\n", u.Username)
	if u.Email != "" && u.Email != u.Username {
		fmt.Fprintf(out, "E-mail:   %s\n", u.Email)
	}
	fmt.Fprintf(out, "ID:       %d\n", u.ID)
	return nil
}

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/hos-tracker/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	// Config only: no token store, session or guard.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return &exitError{code: 1, err: err}
		}
		cfg = c
		return nil
	},
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	path, err := config.FilePath()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Config file: %s\n\n", path)
	printConfig(w, cfg)

	desc, err := config.Describe()
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, desc)
	return nil
}

func printConfig(w io.Writer, c config.Config) {
	tz := c.Display.Timezone
	if tz == "" {
		tz = "local"
	}
	fmt.Fprintf(w, "api.base_url        %s\n", orDash(c.API.BaseURL))
	fmt.Fprintf(w, "api.timeout         %s\n", c.API.Timeout)
	fmt.Fprintf(w, "auth.ready_timeout  %s\n", c.Auth.ReadyTimeout)
	fmt.Fprintf(w, "storage.driver      %s\n", c.Storage.Driver)
	fmt.Fprintf(w, "storage.path        %s\n", c.Storage.Path)
	fmt.Fprintf(w, "log.level           %s\n", c.Log.Level)
	fmt.Fprintf(w, "log.format          %s\n", c.Log.Format)
	fmt.Fprintf(w, "display.timezone    %s\n", tz)
}

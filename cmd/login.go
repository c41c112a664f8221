package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/hos-tracker/internal/guard"
)

var (
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:         "login",
	Short:       "Log in with your e-mail address and password",
	Args:        cobra.NoArgs,
	Annotations: guard.Annotate(guard.AuthOnly),
	RunE:        runLogin,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "E-mail address")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password (prompted when omitted)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if redirectToDashboard {
		// The marker may be stale; only redirect when the session holds.
		if err := sess.Initialize(ctx); err == nil && sess.IsAuthenticated() {
			fmt.Fprintln(cmd.ErrOrStderr(), "Already logged in.")
			return runDashboard(cmd, nil)
		}
	}

	in := bufio.NewReader(cmd.InOrStdin())
	username := strings.TrimSpace(loginUsername)
	if username == "" {
		var err error
		if username, err = prompt(in, cmd.ErrOrStderr(), "E-mail: "); err != nil {
			return err
		}
	}
	password := loginPassword
	if password == "" {
		var err error
		if password, err = prompt(in, cmd.ErrOrStderr(), "Password: "); err != nil {
			return err
		}
	}
	if username == "" || password == "" {
		return &exitError{code: 1, err: errors.New("username and password are required")}
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Logging in...")
	if _, err := sess.Login(ctx, username, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", sess.User().DisplayName())
	return nil
}

// prompt writes label to w and reads one line from r.
func prompt(r *bufio.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

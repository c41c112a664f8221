package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/hos-tracker/internal/guard"
	"github.com/Tiliavir/hos-tracker/internal/model"
)

var (
	registerName     string
	registerUsername string
	registerPassword string
	registerConfirm  string
)

var registerCmd = &cobra.Command{
	Use:         "register",
	Short:       "Create a new driver account",
	Args:        cobra.NoArgs,
	Annotations: guard.Annotate(guard.AuthOnly),
	RunE:        runRegister,
}

func init() {
	registerCmd.Flags().StringVar(&registerName, "name", "", "Full name")
	registerCmd.Flags().StringVarP(&registerUsername, "username", "u", "", "E-mail address")
	registerCmd.Flags().StringVarP(&registerPassword, "password", "p", "", "Password (prompted when omitted)")
	registerCmd.Flags().StringVar(&registerConfirm, "confirm", "", "Password confirmation (prompted when omitted)")
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if redirectToDashboard {
		if err := sess.Initialize(ctx); err == nil && sess.IsAuthenticated() {
			fmt.Fprintln(cmd.ErrOrStderr(), "Already logged in.")
			return runDashboard(cmd, nil)
		}
	}

	in := bufio.NewReader(cmd.InOrStdin())
	fields := []struct {
		value *string
		label string
	}{
		{&registerName, "Full name: "},
		{&registerUsername, "E-mail: "},
		{&registerPassword, "Password: "},
		{&registerConfirm, "Confirm password: "},
	}
	for _, f := range fields {
		if strings.TrimSpace(*f.value) != "" {
			continue
		}
		v, err := prompt(in, cmd.ErrOrStderr(), f.label)
		if err != nil {
			return err
		}
		*f.value = v
	}

	reg := model.NewRegistration(strings.TrimSpace(registerName), strings.TrimSpace(registerUsername), registerPassword, registerConfirm)
	if err := validateRegistration(reg); err != nil {
		return &exitError{code: 1, err: err}
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Creating account...")
	if err := sess.Register(ctx, reg); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Account created for %s. Run \"hos login\" to sign in.\n", reg.Username)
	return nil
}

func validateRegistration(reg model.Registration) error {
	switch {
	case reg.Name == "" || reg.Username == "" || reg.Password == "":
		return errors.New("name, e-mail and password are required")
	case !strings.Contains(reg.Username, "@"):
		return fmt.Errorf("%q is not an e-mail address", reg.Username)
	case reg.Password != reg.Password2:
		return errors.New("passwords do not match")
	}
	return nil
}

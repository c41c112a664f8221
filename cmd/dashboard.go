package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/hos-tracker/internal/guard"
	"github.com/Tiliavir/hos-tracker/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#084152"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#084152")).
			Padding(0, 1)
)

var dashboardCmd = &cobra.Command{
	Use:         "dashboard",
	Short:       "Show your active trip and trip overview",
	Args:        cobra.NoArgs,
	Annotations: guard.Annotate(guard.Protected),
	RunE:        runDashboard,
}

func runDashboard(cmd *cobra.Command, args []string) error {
	loading(cmd, "dashboard")
	trips, err := client.ListTrips(cmd.Context())
	if err != nil {
		return fmt.Errorf("could not load trips: %w", err)
	}
	printDashboard(cmd.OutOrStdout(), sess.User(), trips)
	return nil
}

func printDashboard(w io.Writer, user *model.User, trips []model.Trip) {
	fmt.Fprintln(w, headerStyle.Render("Dashboard"))
	fmt.Fprintf(w, "Welcome back, %s!\n\n", user.DisplayName())

	if active := model.ActiveTrip(trips); active != nil {
		body := fmt.Sprintf("Active trip #%d: %s\nStatus: %s. Update your duty status with \"hos status\".",
			active.ID, active.DisplayTitle(), statusLabel(active.Status))
		if active.PickupLocation != "" || active.DropoffLocation != "" {
			body += fmt.Sprintf("\n%s → %s", orDash(active.PickupLocation), orDash(active.DropoffLocation))
		}
		if miles, ok := active.Distance(); ok {
			body += "\nDistance: " + formatMiles(miles)
		}
		fmt.Fprintln(w, boxStyle.Render(body))
	} else {
		fmt.Fprintln(w, boxStyle.Render("No Active Trip\nStart a planned trip with \"hos trips start <id>\"."))
	}

	counts := map[string]int{}
	for _, t := range trips {
		counts[t.Status]++
	}
	fmt.Fprintf(w, "\nTrips: %d total, %d planned, %d in progress, %d completed, %d cancelled\n",
		len(trips),
		counts[model.TripPlanned],
		counts[model.TripInProgress],
		counts[model.TripCompleted],
		counts[model.TripCancelled],
	)
}

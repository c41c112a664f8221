package cmd

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/hos-tracker/internal/dailylog"
	"github.com/Tiliavir/hos-tracker/internal/guard"
	"github.com/Tiliavir/hos-tracker/internal/model"
)

var (
	statusNew      string
	statusLocation string
	statusLat      float64
	statusLng      float64
	statusRemarks  string
)

var statusCmd = &cobra.Command{
	Use:   "status [trip-id]",
	Short: "Show or change your duty status",
	Long: `Without --status, prints the duty status currently in effect on the trip.
With --status, records a duty status change. The trip defaults to the active trip.

Statuses: off_duty (off), sleeper_berth (sb), driving (driv), on_duty_not_driving (on).`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: guard.Annotate(guard.Protected),
	RunE:        runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusNew, "status", "s", "", "New duty status")
	statusCmd.Flags().StringVarP(&statusLocation, "location", "l", "", "Current location (prompted when omitted)")
	statusCmd.Flags().Float64Var(&statusLat, "lat", 0, "Latitude of the current location")
	statusCmd.Flags().Float64Var(&statusLng, "lng", 0, "Longitude of the current location")
	statusCmd.Flags().StringVar(&statusRemarks, "remarks", "", "Optional remarks")
	statusCmd.MarkFlagsRequiredTogether("lat", "lng")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	loading(cmd, "trip")
	trip, err := resolveTrip(ctx, args)
	if err != nil {
		return err
	}

	if statusNew == "" {
		return showCurrentStatus(cmd, trip)
	}

	status, err := parseDutyStatus(statusNew)
	if err != nil {
		return &exitError{code: 1, err: err}
	}
	location := strings.TrimSpace(statusLocation)
	if location == "" {
		if location, err = prompt(bufio.NewReader(cmd.InOrStdin()), cmd.ErrOrStderr(), "Location: "); err != nil {
			return err
		}
	}

	var lat, lng *float64
	if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
		lat, lng = &statusLat, &statusLng
	}
	change := model.NewStatusChange(status, location, lat, lng, statusRemarks)
	if err := change.Validate(); err != nil {
		return &exitError{code: 1, err: err}
	}

	if _, err := client.ChangeStatus(ctx, trip.ID, change); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Status updated to %s at %s.\n", status.Label(), change.Location)
	return nil
}

func showCurrentStatus(cmd *cobra.Command, trip *model.Trip) error {
	loc, err := cfg.Location()
	if err != nil {
		return &exitError{code: 1, err: err}
	}
	now := time.Now().In(loc)

	intervals, err := client.DailyLogs(cmd.Context(), trip.ID, now)
	if err != nil {
		return fmt.Errorf("could not load today's log: %w", err)
	}
	l := dailylog.Reconstruct(intervals, now, dailylog.Options{Location: loc, Logger: appLog.Logger})

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Trip #%d: %s\n", trip.ID, trip.DisplayTitle())
	status, ok := l.StatusAt(now)
	if !ok {
		fmt.Fprintln(w, "No duty status recorded today.")
		return nil
	}
	fmt.Fprintf(w, "Current status: %s\n", status.Label())
	return nil
}

// parseDutyStatus accepts the API names, the event type aliases and the
// chart abbreviations, case-insensitively.
func parseDutyStatus(s string) (model.DutyStatus, error) {
	s = strings.TrimSpace(s)
	if status, ok := model.ParseEventType(s); ok {
		return status, nil
	}
	for _, status := range model.Statuses {
		if strings.EqualFold(s, status.Short()) {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown duty status %q (want off_duty, sleeper_berth, driving or on_duty_not_driving)", s)
}

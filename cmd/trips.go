package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/hos-tracker/internal/guard"
	"github.com/Tiliavir/hos-tracker/internal/model"
)

var tripsStatus string

var tripsCmd = &cobra.Command{
	Use:         "trips",
	Short:       "List and manage your trips",
	Args:        cobra.NoArgs,
	Annotations: guard.Annotate(guard.Protected),
	RunE:        runTripsList,
}

var tripsListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List your trips",
	Args:        cobra.NoArgs,
	Annotations: guard.Annotate(guard.Protected),
	RunE:        runTripsList,
}

var tripsShowCmd = &cobra.Command{
	Use:         "show <trip-id>",
	Short:       "Show trip details",
	Args:        cobra.ExactArgs(1),
	Annotations: guard.Annotate(guard.Protected),
	RunE:        runTripsShow,
}

var tripsStartCmd = &cobra.Command{
	Use:         "start <trip-id>",
	Short:       "Start a planned trip",
	Args:        cobra.ExactArgs(1),
	Annotations: guard.Annotate(guard.Protected),
	RunE:        runTripsStart,
}

var tripsCompleteCmd = &cobra.Command{
	Use:         "complete <trip-id>",
	Short:       "Mark a trip as completed",
	Args:        cobra.ExactArgs(1),
	Annotations: guard.Annotate(guard.Protected),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateTripStatus(cmd, args[0], model.TripCompleted)
	},
}

var tripsCancelCmd = &cobra.Command{
	Use:         "cancel <trip-id>",
	Short:       "Cancel a trip",
	Args:        cobra.ExactArgs(1),
	Annotations: guard.Annotate(guard.Protected),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateTripStatus(cmd, args[0], model.TripCancelled)
	},
}

func init() {
	tripsListCmd.Flags().StringVar(&tripsStatus, "status", "", "Only show trips with this status (planned, in_progress, completed, cancelled)")
	tripsCmd.AddCommand(tripsListCmd, tripsShowCmd, tripsStartCmd, tripsCompleteCmd, tripsCancelCmd)
}

func runTripsList(cmd *cobra.Command, args []string) error {
	loading(cmd, "trips")
	trips, err := client.ListTrips(cmd.Context())
	if err != nil {
		return fmt.Errorf("could not load trips: %w", err)
	}
	if tripsStatus != "" {
		trips = filterTrips(trips, tripsStatus)
	}
	printTrips(cmd.OutOrStdout(), trips)
	return nil
}

func runTripsShow(cmd *cobra.Command, args []string) error {
	id, err := parseTripID(args[0])
	if err != nil {
		return err
	}
	loading(cmd, "trip")
	t, err := client.GetTrip(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("could not load trip %d: %w", id, err)
	}
	printTripDetails(cmd.OutOrStdout(), t)
	return nil
}

func runTripsStart(cmd *cobra.Command, args []string) error {
	id, err := parseTripID(args[0])
	if err != nil {
		return err
	}
	if _, err := client.StartTrip(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to start trip %d: %w", id, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Trip %d started successfully!\n", id)
	return nil
}

func updateTripStatus(cmd *cobra.Command, arg, status string) error {
	id, err := parseTripID(arg)
	if err != nil {
		return err
	}
	if _, err := client.UpdateTrip(cmd.Context(), id, status); err != nil {
		return fmt.Errorf("failed to update trip %d status: %w", id, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Trip %d status updated to %s.\n", id, statusLabel(status))
	return nil
}

// parseTripID parses a positive trip id, tolerating a leading '#'.
func parseTripID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &exitError{code: 1, err: fmt.Errorf("invalid trip id %q", s)}
	}
	return id, nil
}

// errNoActiveTrip is returned when a command needs the active trip and none is in progress.
var errNoActiveTrip = errors.New("no active trip; pass a trip id or start a trip first")

// resolveTrip returns the trip named by args[0], or the active trip.
func resolveTrip(ctx context.Context, args []string) (*model.Trip, error) {
	if len(args) > 0 {
		id, err := parseTripID(args[0])
		if err != nil {
			return nil, err
		}
		return client.GetTrip(ctx, id)
	}
	trips, err := client.ListTrips(ctx)
	if err != nil {
		return nil, err
	}
	active := model.ActiveTrip(trips)
	if active == nil {
		return nil, &exitError{code: 1, err: errNoActiveTrip}
	}
	return active, nil
}

func filterTrips(trips []model.Trip, status string) []model.Trip {
	var out []model.Trip
	for _, t := range trips {
		if strings.EqualFold(t.Status, status) {
			out = append(out, t)
		}
	}
	return out
}

func printTrips(w io.Writer, trips []model.Trip) {
	if len(trips) == 0 {
		fmt.Fprintln(w, "No trips found.")
		return
	}
	for _, t := range trips {
		fmt.Fprintln(w, formatTripLine(t))
	}
}

// formatTripLine renders one trip as a single list row.
func formatTripLine(t model.Trip) string {
	line := fmt.Sprintf("#%-5d %-24s %-12s", t.ID, truncate(t.DisplayTitle(), 24), statusLabel(t.Status))
	if t.PickupLocation != "" || t.DropoffLocation != "" {
		line += fmt.Sprintf(" %s → %s", orDash(t.PickupLocation), orDash(t.DropoffLocation))
	}
	if miles, ok := t.Distance(); ok {
		line += fmt.Sprintf("  (%s)", formatMiles(miles))
	}
	return strings.TrimRight(line, " ")
}

func printTripDetails(w io.Writer, t *model.Trip) {
	fmt.Fprintf(w, "Trip #%d: %s\n", t.ID, t.DisplayTitle())
	fmt.Fprintf(w, "  Status:   %s\n", statusLabel(t.Status))
	if t.Description != "" {
		fmt.Fprintf(w, "  Details:  %s\n", t.Description)
	}
	fmt.Fprintf(w, "  Pickup:   %s\n", orDash(t.PickupLocation))
	fmt.Fprintf(w, "  Dropoff:  %s\n", orDash(t.DropoffLocation))
	if t.CurrentLocation != "" {
		fmt.Fprintf(w, "  Current:  %s\n", t.CurrentLocation)
	}
	if miles, ok := t.Distance(); ok {
		fmt.Fprintf(w, "  Distance: %s\n", formatMiles(miles))
	}
}

// statusLabel turns "in_progress" into "in progress".
func statusLabel(s string) string {
	if s == "" {
		return "unknown"
	}
	return strings.NewReplacer("_", " ", "-", " ").Replace(s)
}

func formatMiles(miles float64) string {
	return fmt.Sprintf("%d miles", int64(math.Round(miles)))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

package cmd

import (
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/hos-tracker/internal/guard"
	"github.com/Tiliavir/hos-tracker/internal/model"
)

var routeCmd = &cobra.Command{
	Use:         "route [trip-id]",
	Aliases:     []string{"map"},
	Short:       "Show the computed route of a trip",
	Args:        cobra.MaximumNArgs(1),
	Annotations: guard.Annotate(guard.Protected),
	RunE:        runRoute,
}

func runRoute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	loading(cmd, "route")
	trip, err := resolveTrip(ctx, args)
	if err != nil {
		return err
	}
	r, err := client.Route(ctx, trip.ID)
	if err != nil {
		return fmt.Errorf("could not load route for trip %d: %w", trip.ID, err)
	}
	printRoute(cmd.OutOrStdout(), trip, r)
	return nil
}

func printRoute(w io.Writer, trip *model.Trip, r *model.Route) {
	title := r.TripTitle
	if title == "" {
		title = trip.DisplayTitle()
	}
	fmt.Fprintln(w, headerStyle.Render("Route: "+title))

	if len(r.Stops) == 0 && len(r.Polyline) == 0 {
		fmt.Fprintln(w, "No route data available.")
		return
	}
	if r.DurationMinutes > 0 {
		fmt.Fprintf(w, "Estimated duration: %s\n", formatRouteDuration(r.DurationMinutes))
	}

	if start, end := r.Endpoints(); start != nil {
		fmt.Fprintf(w, "Start: %s\n", formatPoint(*start))
		fmt.Fprintf(w, "End:   %s\n", formatPoint(*end))
	}

	if len(r.Stops) > 0 {
		fmt.Fprintln(w, "\nStops:")
		for i, s := range r.Stops {
			line := fmt.Sprintf("  %d. %s", i+1, orDash(s.Location))
			if s.Reason != "" {
				line += " (" + s.Reason + ")"
			}
			if s.Point != nil {
				line += "  " + formatPoint(*s.Point)
			}
			fmt.Fprintln(w, line)
		}
	}
	if n := len(r.Waypoints()); n > 0 {
		fmt.Fprintf(w, "%d waypoint(s) between start and end.\n", n)
	}
	if len(r.Polyline) > 0 {
		fmt.Fprintf(w, "Polyline: %d points\n", len(r.Polyline))
	}
}

// formatRouteDuration renders minutes as "Xh Ym", or "N min" below one hour.
func formatRouteDuration(minutes float64) string {
	m := int(math.Round(minutes))
	if m < 60 {
		return fmt.Sprintf("%d min", m)
	}
	return fmt.Sprintf("%dh %dm", m/60, m%60)
}

func formatPoint(p model.Point) string {
	return fmt.Sprintf("%.5f, %.5f", p.Lat, p.Lng)
}

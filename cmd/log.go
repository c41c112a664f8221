package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Tiliavir/hos-tracker/internal/dailylog"
	"github.com/Tiliavir/hos-tracker/internal/guard"
	"github.com/Tiliavir/hos-tracker/internal/model"
	"github.com/Tiliavir/hos-tracker/internal/timecalc"
)

// maxParallelDays bounds concurrent daily-log requests.
const maxParallelDays = 4

var (
	logDate   string
	logFormat string
)

var logCmd = &cobra.Command{
	Use:         "log [trip-id]",
	Short:       "Print the HOS daily log of a trip",
	Args:        cobra.MaximumNArgs(1),
	Annotations: guard.Annotate(guard.Protected),
	RunE:        runLog,
}

func init() {
	logCmd.Flags().StringVarP(&logDate, "date", "d", "", "Day to show (YYYY-MM-DD, default today)")
	logCmd.Flags().StringVar(&logFormat, "format", "chart", "Output format: chart, csv, json")
}

func runLog(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	loc, err := cfg.Location()
	if err != nil {
		return &exitError{code: 1, err: err}
	}
	day, err := dayArg(logDate, loc)
	if err != nil {
		return err
	}

	loading(cmd, "daily log")
	trip, err := resolveTrip(ctx, args)
	if err != nil {
		return err
	}
	logs, err := fetchLogs(ctx, trip.ID, []time.Time{day}, loc)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	switch logFormat {
	case "csv":
		return writeLogsCSV(w, logs)
	case "json":
		return writeLogsJSON(w, logs)
	case "chart", "":
		return dailylog.Render(w, logs[0], trip.DisplayTitle())
	default:
		return &exitError{code: 1, err: fmt.Errorf("unknown format %q (want chart, csv or json)", logFormat)}
	}
}

// dayArg parses a --date flag value, defaulting to today in loc.
func dayArg(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return timecalc.StartOfDay(time.Now().In(loc)), nil
	}
	d, err := timecalc.ParseDate(s, loc)
	if err != nil {
		return time.Time{}, &exitError{code: 1, err: err}
	}
	return d, nil
}

// fetchLogs loads and reconstructs the log of every day concurrently. The
// result is in the order of days.
func fetchLogs(ctx context.Context, tripID int64, days []time.Time, loc *time.Location) ([]*dailylog.Log, error) {
	logs := make([]*dailylog.Log, len(days))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDays)
	for i, day := range days {
		g.Go(func() error {
			intervals, err := client.DailyLogs(ctx, tripID, day)
			if err != nil {
				return fmt.Errorf("could not load log for %s: %w", day.Format(timecalc.DateLayout), err)
			}
			logs[i] = dailylog.Reconstruct(intervals, day, dailylog.Options{Location: loc, Logger: appLog.Logger})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return logs, nil
}

// daysBetween returns the start of every calendar day in [from, to].
func daysBetween(from, to time.Time) []time.Time {
	var days []time.Time
	for d := timecalc.StartOfDay(from); !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// onDuty is the time counted against the on-duty limits.
func onDuty(t dailylog.Totals) time.Duration {
	return t[model.Driving] + t[model.OnDutyNotDriving]
}

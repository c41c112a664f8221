package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/hos-tracker/internal/dailylog"
	"github.com/Tiliavir/hos-tracker/internal/guard"
	"github.com/Tiliavir/hos-tracker/internal/model"
	"github.com/Tiliavir/hos-tracker/internal/timecalc"
)

// onDutyLimit is the 70 hour / 8 day on-duty limit for property-carrying drivers.
const onDutyLimit = 70 * time.Hour

var (
	reportDays   int
	reportEnd    string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:         "report [trip-id]",
	Short:       "Show a multi-day HOS recap",
	Args:        cobra.MaximumNArgs(1),
	Annotations: guard.Annotate(guard.Protected),
	RunE:        runReport,
}

func init() {
	reportCmd.Flags().IntVar(&reportDays, "days", 8, "Number of days, ending with --date")
	reportCmd.Flags().StringVarP(&reportEnd, "date", "d", "", "Last day of the recap (YYYY-MM-DD, default today)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, csv, json")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if reportDays < 1 || reportDays > 31 {
		return &exitError{code: 1, err: fmt.Errorf("--days must be between 1 and 31, got %d", reportDays)}
	}
	loc, err := cfg.Location()
	if err != nil {
		return &exitError{code: 1, err: err}
	}
	end, err := dayArg(reportEnd, loc)
	if err != nil {
		return err
	}

	loading(cmd, "daily logs")
	trip, err := resolveTrip(ctx, args)
	if err != nil {
		return err
	}
	logs, err := fetchLogs(ctx, trip.ID, daysBetween(end.AddDate(0, 0, 1-reportDays), end), loc)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	switch reportFormat {
	case "csv":
		printReportCSV(w, logs)
	case "json":
		return printReportJSON(w, trip, logs)
	case "md", "":
		printReport(w, trip, logs)
	default:
		return &exitError{code: 1, err: fmt.Errorf("unknown format %q (want md, csv or json)", reportFormat)}
	}
	return nil
}

func printReport(w io.Writer, trip *model.Trip, logs []*dailylog.Log) {
	first, last := logs[0].Day, logs[len(logs)-1].Day
	fmt.Fprintf(w, "%s: %s to %s\n", trip.DisplayTitle(), first.Format(timecalc.DateLayout), last.Format(timecalc.DateLayout))
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "%-12s", "Date")
	for _, s := range model.Statuses {
		fmt.Fprintf(w, "%-8s", s.Short())
	}
	fmt.Fprintln(w, "On duty")

	sums := dailylog.Totals{}
	var onDutyTotal time.Duration
	for _, l := range logs {
		fmt.Fprintf(w, "%-12s", l.Day.Format(timecalc.DateLayout))
		for _, s := range model.Statuses {
			fmt.Fprintf(w, "%-8s", timecalc.FormatClock(l.Totals[s]))
			sums[s] += l.Totals[s]
		}
		fmt.Fprintln(w, timecalc.FormatClock(onDuty(l.Totals)))
		onDutyTotal += onDuty(l.Totals)
	}

	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "%-12s", "Total")
	for _, s := range model.Statuses {
		fmt.Fprintf(w, "%-8s", timecalc.FormatClock(sums[s]))
	}
	fmt.Fprintln(w, timecalc.FormatClock(onDutyTotal))

	if len(logs) == 8 {
		left := onDutyLimit - onDutyTotal
		if left < 0 {
			fmt.Fprintf(w, "On duty %s over the 70h/8 day limit.\n", timecalc.FormatDuration(-left))
		} else {
			fmt.Fprintf(w, "%s left of the 70h/8 day limit.\n", timecalc.FormatDuration(left))
		}
	}
}

func printReportCSV(w io.Writer, logs []*dailylog.Log) {
	fmt.Fprint(w, "date")
	for _, s := range model.Statuses {
		fmt.Fprintf(w, ",%s_minutes", s)
	}
	fmt.Fprintln(w, ",on_duty_minutes")
	for _, l := range logs {
		fmt.Fprint(w, l.Day.Format(timecalc.DateLayout))
		for _, s := range model.Statuses {
			fmt.Fprintf(w, ",%d", l.Totals.Minutes(s))
		}
		fmt.Fprintf(w, ",%d\n", int(onDuty(l.Totals)/time.Minute))
	}
}

type reportDay struct {
	Date          string           `json:"date"`
	Minutes       map[string]int64 `json:"minutes"`
	OnDutyMinutes int64            `json:"on_duty_minutes"`
}

type reportDoc struct {
	TripID        int64       `json:"trip_id"`
	Trip          string      `json:"trip"`
	Days          []reportDay `json:"days"`
	OnDutyMinutes int64       `json:"on_duty_minutes"`
}

func printReportJSON(w io.Writer, trip *model.Trip, logs []*dailylog.Log) error {
	doc := reportDoc{TripID: trip.ID, Trip: trip.DisplayTitle(), Days: make([]reportDay, 0, len(logs))}
	for _, l := range logs {
		d := reportDay{
			Date:          l.Day.Format(timecalc.DateLayout),
			Minutes:       map[string]int64{},
			OnDutyMinutes: int64(onDuty(l.Totals) / time.Minute),
		}
		for _, s := range model.Statuses {
			d.Minutes[string(s)] = int64(l.Totals.Minutes(s))
		}
		doc.Days = append(doc.Days, d)
		doc.OnDutyMinutes += d.OnDutyMinutes
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

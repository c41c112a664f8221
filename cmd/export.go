package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/hos-tracker/internal/dailylog"
	"github.com/Tiliavir/hos-tracker/internal/guard"
	"github.com/Tiliavir/hos-tracker/internal/timecalc"
)

var (
	exportFrom   string
	exportTo     string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:         "export [trip-id]",
	Short:       "Export reconstructed duty segments to stdout",
	Args:        cobra.MaximumNArgs(1),
	Annotations: guard.Annotate(guard.Protected),
	RunE:        runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "First day (YYYY-MM-DD, default today)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Last day (YYYY-MM-DD, default --from)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	loc, err := cfg.Location()
	if err != nil {
		return &exitError{code: 1, err: err}
	}
	from, err := dayArg(exportFrom, loc)
	if err != nil {
		return err
	}
	to := from
	if exportTo != "" {
		if to, err = dayArg(exportTo, loc); err != nil {
			return err
		}
	}
	if to.Before(from) {
		return &exitError{code: 1, err: fmt.Errorf("--to %s is before --from %s", exportTo, from.Format(timecalc.DateLayout))}
	}

	loading(cmd, "daily logs")
	trip, err := resolveTrip(ctx, args)
	if err != nil {
		return err
	}
	logs, err := fetchLogs(ctx, trip.ID, daysBetween(from, to), loc)
	if err != nil {
		return err
	}

	switch exportFormat {
	case "json":
		return writeLogsJSON(cmd.OutOrStdout(), logs)
	case "csv", "":
		return writeLogsCSV(cmd.OutOrStdout(), logs)
	default:
		return &exitError{code: 1, err: fmt.Errorf("unknown format %q (want csv or json)", exportFormat)}
	}
}

type exportSegment struct {
	Date            string `json:"date"`
	Status          string `json:"status"`
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes int64  `json:"duration_minutes"`
}

type exportRemark struct {
	At       string `json:"at"`
	Location string `json:"location"`
	Comment  string `json:"comment"`
}

type exportDay struct {
	Date     string           `json:"date"`
	Segments []exportSegment  `json:"segments"`
	Remarks  []exportRemark   `json:"remarks"`
	Totals   map[string]int64 `json:"totals_minutes"`
}

func segmentsOf(l *dailylog.Log) []exportSegment {
	date := l.Day.Format(timecalc.DateLayout)
	segs := l.Segments()
	out := make([]exportSegment, 0, len(segs))
	for _, s := range segs {
		out = append(out, exportSegment{
			Date:            date,
			Status:          string(s.Status),
			Start:           s.From.Format(time.RFC3339),
			End:             s.To.Format(time.RFC3339),
			DurationMinutes: int64(s.To.Sub(s.From) / time.Minute),
		})
	}
	return out
}

func writeLogsJSON(w io.Writer, logs []*dailylog.Log) error {
	days := make([]exportDay, 0, len(logs))
	for _, l := range logs {
		d := exportDay{
			Date:     l.Day.Format(timecalc.DateLayout),
			Segments: segmentsOf(l),
			Remarks:  []exportRemark{},
			Totals:   map[string]int64{},
		}
		for _, r := range l.Remarks {
			d.Remarks = append(d.Remarks, exportRemark{At: r.At.Format(time.RFC3339), Location: r.Location, Comment: r.Comment})
		}
		for s, dur := range l.Totals {
			d.Totals[string(s)] = int64(dur / time.Minute)
		}
		days = append(days, d)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(days); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

func writeLogsCSV(w io.Writer, logs []*dailylog.Log) error {
	if _, err := fmt.Fprintln(w, "date,status,start,end,duration_minutes"); err != nil {
		return err
	}
	for _, l := range logs {
		for _, s := range segmentsOf(l) {
			if _, err := fmt.Fprintf(w, "%s,%s,%s,%s,%d\n",
				csvEscape(s.Date),
				csvEscape(s.Status),
				csvEscape(s.Start),
				csvEscape(s.End),
				s.DurationMinutes,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

package dailylog

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Tiliavir/hos-tracker/internal/model"
	"github.com/Tiliavir/hos-tracker/internal/timecalc"
)

const cellWidth = 15 * time.Minute

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#084152"))

	lineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#084152")).
			Bold(true)

	gridStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#374151")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B45309"))
)

// Render writes the day as a four-row grid with one column per quarter hour,
// followed by remarks and totals.
func Render(w io.Writer, l *Log, title string) error {
	var b strings.Builder

	heading := fmt.Sprintf("Daily Log: %s", l.Day.Format("Mon, 02 Jan 2006"))
	if title != "" {
		heading = title + " - " + heading
	}
	b.WriteString(titleStyle.Render(heading))
	b.WriteString("\n\n")

	if l.Empty() {
		b.WriteString("No log entries recorded for this date.\n")
		writeWarnings(&b, l)
		_, err := io.WriteString(w, b.String())
		return err
	}

	cells := int(l.DayEnd.Sub(l.Day) / cellWidth)
	segs := l.Segments()

	b.WriteString(strings.Repeat(" ", 6))
	b.WriteString(gridStyle.Render(hourHeader(cells)))
	b.WriteString("\n")

	for _, status := range model.Statuses {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-5s", status.Short())))
		b.WriteString(gridStyle.Render("|"))
		for i := 0; i < cells; i++ {
			mid := l.Day.Add(time.Duration(i)*cellWidth + cellWidth/2)
			if s, ok := statusIn(segs, mid); ok && s == status {
				b.WriteString(lineStyle.Render("━"))
				continue
			}
			if i%4 == 0 {
				b.WriteString(gridStyle.Render("┊"))
			} else {
				b.WriteString(gridStyle.Render("·"))
			}
		}
		b.WriteString(gridStyle.Render("|"))
		fmt.Fprintf(&b, " %s\n", timecalc.FormatClock(l.Totals[status]))
	}
	fmt.Fprintf(&b, "%s %s\n", strings.Repeat(" ", cells+7), timecalc.FormatClock(l.Totals.Sum()))

	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Remarks"))
	b.WriteString("\n")
	if len(l.Remarks) == 0 {
		b.WriteString("  none\n")
	}
	for _, r := range l.Remarks {
		fmt.Fprintf(&b, "  %s: %s - %s\n", r.At.Format("15:04"), r.Location, r.Comment)
	}

	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Totals"))
	b.WriteString("\n")
	for _, status := range model.Statuses {
		fmt.Fprintf(&b, "  %-22s %s\n", status.Label()+":", timecalc.FormatDuration(l.Totals[status]))
	}

	writeWarnings(&b, l)
	_, err := io.WriteString(w, b.String())
	return err
}

// hourHeader labels every hour column: M(idnight), 1..11, N(oon), 1..11, M.
func hourHeader(cells int) string {
	hours := cells / 4
	row := []rune(strings.Repeat(" ", cells+2))
	for h := 0; h <= hours; h++ {
		var label string
		switch h % 24 {
		case 0:
			label = "M"
		case 12:
			label = "N"
		default:
			label = strconv.Itoa(h % 12)
		}
		pos := h * 4
		for i, r := range label {
			if pos+i < len(row) {
				row[pos+i] = r
			}
		}
	}
	return string(row)
}

func statusIn(segs []Segment, t time.Time) (model.DutyStatus, bool) {
	for _, s := range segs {
		if !t.Before(s.From) && t.Before(s.To) {
			return s.Status, true
		}
	}
	return "", false
}

func writeWarnings(b *strings.Builder, l *Log) {
	if l.Skipped > 0 {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render(fmt.Sprintf("Warning: %d record(s) skipped because of invalid timestamps.", l.Skipped)))
		b.WriteString("\n")
	}
	if l.Unmapped > 0 {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render(fmt.Sprintf("Warning: %d record(s) with unknown event type counted as Off Duty.", l.Unmapped)))
		b.WriteString("\n")
	}
}

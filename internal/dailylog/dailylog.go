// Package dailylog rebuilds an hours-of-service day from raw duty intervals.
//
// The API returns intervals in arbitrary order; they may span midnight,
// overlap or leave gaps. Reconstruct turns them into a step function over
// [00:00, next 00:00) of the requested day, plus per-status totals and
// location remarks.
package dailylog

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Tiliavir/hos-tracker/internal/model"
	"github.com/Tiliavir/hos-tracker/internal/timecalc"
)

// Options configures Reconstruct.
type Options struct {
	// Location defines the calendar day and interprets zone-less
	// timestamps. Defaults to the location of the day argument.
	Location *time.Location
	Logger   *zap.Logger
}

// Entry is a status change. The status holds until the next entry or the
// end of the day.
type Entry struct {
	At        time.Time
	Status    model.DutyStatus
	Synthetic bool
}

// Remark is a location note shown below the chart.
type Remark struct {
	At       time.Time
	Location string
	Comment  string
}

// Totals is the time spent per status within the day.
type Totals map[model.DutyStatus]time.Duration

// Minutes returns the whole minutes spent in s.
func (t Totals) Minutes(s model.DutyStatus) int {
	return int(t[s] / time.Minute)
}

// Sum returns the total across all statuses.
func (t Totals) Sum() time.Duration {
	var sum time.Duration
	for _, d := range t {
		sum += d
	}
	return sum
}

// Segment is one step of the timeline, [From, To).
type Segment struct {
	From, To time.Time
	Status   model.DutyStatus
}

// Log is the reconstructed day.
type Log struct {
	Day     time.Time
	DayEnd  time.Time
	TripID  int64
	Entries []Entry
	Totals  Totals
	Remarks []Remark
	// Skipped counts records dropped for unparsable or inverted timestamps.
	Skipped int
	// Unmapped counts records whose event type fell back to off duty.
	Unmapped int
}

// Empty reports whether no interval touched the day.
func (l *Log) Empty() bool {
	return len(l.Entries) == 0
}

// Segments returns the step function, skipping zero-width steps.
func (l *Log) Segments() []Segment {
	var segs []Segment
	for i, e := range l.Entries {
		to := l.DayEnd
		if i+1 < len(l.Entries) {
			to = l.Entries[i+1].At
		}
		if !to.After(e.At) {
			continue
		}
		segs = append(segs, Segment{From: e.At, To: to, Status: e.Status})
	}
	return segs
}

// StatusAt returns the status in effect at t, or false outside the timeline.
func (l *Log) StatusAt(t time.Time) (model.DutyStatus, bool) {
	return statusIn(l.Segments(), t)
}

type interval struct {
	start, end time.Time
	status     model.DutyStatus
	location   string
}

// Reconstruct builds the log of the calendar day containing day.
func Reconstruct(intervals []model.DutyInterval, day time.Time, opts Options) *Log {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := opts.Location
	if loc == nil {
		loc = day.Location()
	}
	dayStart, dayEnd := timecalc.DayBounds(day.In(loc))

	l := &Log{Day: dayStart, DayEnd: dayEnd, Totals: Totals{}}
	for _, s := range model.Statuses {
		l.Totals[s] = 0
	}

	all := make([]interval, 0, len(intervals))
	for i, raw := range intervals {
		start, err := timecalc.ParseTimestamp(raw.StartTime, loc)
		if err != nil {
			l.Skipped++
			logger.Warn("Skipping interval with unparsable start", zap.Int("index", i), zap.Error(err))
			continue
		}
		end, err := timecalc.ParseTimestamp(raw.EndTime, loc)
		if err != nil {
			l.Skipped++
			logger.Warn("Skipping interval with unparsable end", zap.Int("index", i), zap.Error(err))
			continue
		}
		if end.Before(start) {
			l.Skipped++
			logger.Warn("Skipping interval ending before it starts",
				zap.Int("index", i),
				zap.Time("start", start),
				zap.Time("end", end),
			)
			continue
		}

		status, ok := model.ParseEventType(raw.EventType)
		if !ok {
			l.Unmapped++
			logger.Warn("Unmapped event type, counting as off duty", zap.String("event_type", raw.EventType))
		}
		iv := interval{start: start, end: end, status: status}
		if raw.Location != nil {
			iv.location = *raw.Location
		}
		all = append(all, iv)

		if l.TripID == 0 && raw.Trip != 0 {
			l.TripID = raw.Trip
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].start.Before(all[j].start) })

	// Zero-length intervals hold no time: they only contribute remarks.
	var onDay []interval
	for _, iv := range all {
		switch {
		case iv.end.Equal(iv.start):
			if !iv.start.Before(dayStart) && iv.start.Before(dayEnd) && iv.location != "" && iv.location != model.EnRoute {
				l.Remarks = append(l.Remarks, Remark{At: iv.start, Location: iv.location, Comment: iv.status.Label()})
			}
		case iv.start.Before(dayEnd) && iv.end.After(dayStart):
			onDay = append(onDay, iv)
		}
	}
	if len(onDay) == 0 {
		return l
	}

	var entries []Entry
	if !startsAt(onDay, dayStart) {
		entries = append(entries, Entry{At: dayStart, Status: statusAtMidnight(all, dayStart), Synthetic: true})
	}

	for _, iv := range onDay {
		from, to, ok := timecalc.Clip(iv.start, iv.end, dayStart, dayEnd)
		if ok {
			// Whole minutes per interval, so a covered day sums to 1440.
			l.Totals[iv.status] += to.Truncate(time.Minute).Sub(from.Truncate(time.Minute))
		}
		if !iv.start.Before(dayStart) {
			entries = append(entries, Entry{At: iv.start, Status: iv.status})
		}
		if iv.location != "" && iv.location != model.EnRoute {
			l.Remarks = append(l.Remarks, Remark{At: from, Location: iv.location, Comment: iv.status.Label()})
		}
	}

	// Close gaps: where an interval ends inside the day and nothing starts,
	// fall back to whatever still covers that instant, else off duty.
	for _, iv := range onDay {
		if !iv.end.After(dayStart) || !iv.end.Before(dayEnd) || startsAt(onDay, iv.end) {
			continue
		}
		status := model.OffDuty
		if cover := coveringAt(onDay, iv.end); cover != nil {
			status = cover.status
		}
		entries = append(entries, Entry{At: iv.end, Status: status, Synthetic: true})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].At.Before(entries[j].At) })
	l.Entries = dedupe(entries)
	sort.SliceStable(l.Remarks, func(i, j int) bool { return l.Remarks[i].At.Before(l.Remarks[j].At) })
	return l
}

// statusAtMidnight picks the status in effect at dayStart. An interval
// spanning midnight wins; otherwise the latest interval ending at or before
// midnight, then the earliest one starting at or before it, then off duty.
func statusAtMidnight(all []interval, dayStart time.Time) model.DutyStatus {
	var best *interval
	for i := range all {
		iv := &all[i]
		if iv.start.Before(dayStart) && iv.end.After(dayStart) && (best == nil || iv.start.After(best.start)) {
			best = iv
		}
	}
	if best != nil {
		return best.status
	}

	for i := range all {
		iv := &all[i]
		if !iv.end.After(dayStart) && (best == nil || iv.end.After(best.end)) {
			best = iv
		}
	}
	if best != nil {
		return best.status
	}

	for i := range all {
		iv := &all[i]
		if !iv.start.After(dayStart) && (best == nil || iv.start.Before(best.start)) {
			best = iv
		}
	}
	if best != nil {
		return best.status
	}
	return model.OffDuty
}

func startsAt(ivs []interval, t time.Time) bool {
	for _, iv := range ivs {
		if iv.start.Equal(t) {
			return true
		}
	}
	return false
}

// coveringAt returns the latest-starting interval with start <= t < end.
func coveringAt(ivs []interval, t time.Time) *interval {
	var best *interval
	for i := range ivs {
		iv := &ivs[i]
		if !iv.start.After(t) && iv.end.After(t) && (best == nil || !iv.start.Before(best.start)) {
			best = iv
		}
	}
	return best
}

// dedupe keeps one entry per timestamp. Real entries beat synthetic ones;
// among equals the last one wins. Input must be sorted.
func dedupe(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		n := len(out)
		if n == 0 || !out[n-1].At.Equal(e.At) {
			out = append(out, e)
			continue
		}
		if e.Synthetic && !out[n-1].Synthetic {
			continue
		}
		out[n-1] = e
	}
	return out
}

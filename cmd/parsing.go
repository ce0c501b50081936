package cmd

import (
	"errors"
	"fmt"
	"time"
)

// DateTimeFormat is the short format accepted by --begin and --end, read as
// UTC. RFC 3339 timestamps are accepted as well.
const DateTimeFormat = "2006-01-02 15:04:05"

var errTimeFilter = errors.New("invalid time filter")

// parseDateTime parses one --begin or --end value. An empty string yields
// the zero time.
func parseDateTime(flag, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(DateTimeFormat, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: --%s expects %q or RFC 3339, got %q", errTimeFilter, flag, DateTimeFormat, s)
}

// parseDateTimes parses the begin and end datetime strings.
// Returns zero time.Time values if the strings are empty.
func parseDateTimes(beginStr, endStr string) (time.Time, time.Time, error) {
	begin, err := parseDateTime("begin", beginStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDateTime("end", endStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !begin.IsZero() && !end.IsZero() && end.Before(begin) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: --end is before --begin", errTimeFilter)
	}
	return begin, end, nil
}

// parseWindow converts the window flag string to a time.Duration.
// Returns 0 if the string is empty.
//
// Examples of valid duration strings:
//   - "30m" (30 minutes)
//   - "1h30m" (1 hour and 30 minutes)
func parseWindow(windowStr string) (time.Duration, error) {
	if windowStr == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(windowStr)
	if err != nil {
		return 0, fmt.Errorf("%w: --window: %v", errTimeFilter, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: --window must be positive, got %s", errTimeFilter, windowStr)
	}
	return d, nil
}

// parseLast converts the --last flag to begin/end timestamps, where
// end = now and begin = now - duration.
// Returns zero time.Time values if the string is empty.
func parseLast(lastStr string, now time.Time) (time.Time, time.Time, error) {
	if lastStr == "" {
		return time.Time{}, time.Time{}, nil
	}
	d, err := time.ParseDuration(lastStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: --last: %v", errTimeFilter, err)
	}
	if d <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: --last must be positive, got %s", errTimeFilter, lastStr)
	}
	return now.Add(-d), now, nil
}

// applyTimeWindow applies the time window to the begin/end times.
// If only one of begin/end is set, it calculates the other. The second
// result is false when the window had nothing to anchor on.
func applyTimeWindow(begin, end time.Time, window time.Duration) (time.Time, time.Time, bool) {
	if window <= 0 {
		return begin, end, true
	}
	switch {
	case !begin.IsZero() && !end.IsZero():
	case !begin.IsZero():
		end = begin.Add(window)
	case !end.IsZero():
		begin = end.Add(-window)
	default:
		return begin, end, false
	}
	return begin, end, true
}

// timeRange resolves the time filter flags into the range to keep.
func (o *options) timeRange(now time.Time, warn func(string)) (time.Time, time.Time, error) {
	if o.lastFlag != "" {
		if o.beginTime != "" || o.endTime != "" || o.windowFlag != "" {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: --last cannot be combined with --begin, --end or --window", errTimeFilter)
		}
		return parseLast(o.lastFlag, now)
	}
	if o.beginTime != "" && o.endTime != "" && o.windowFlag != "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: --begin, --end and --window cannot all be used together", errTimeFilter)
	}

	begin, end, err := parseDateTimes(o.beginTime, o.endTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	window, err := parseWindow(o.windowFlag)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	begin, end, ok := applyTimeWindow(begin, end, window)
	if !ok {
		warn("--window needs --begin or --end; ignoring it")
	}
	return begin, end, nil
}

// Package scheduler – nlp_schedule.go reads the time part of a reminder.
// One-off times ("5pm", "in 10 minutes", "tomorrow at 9:30") resolve to an
// instant; recurring ones ("daily at 9am", "every monday at 10am",
// "every 2 hours") resolve to a cron or interval schedule.
package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParsedSchedule is a recurring schedule in scheduler terms.
type ParsedSchedule struct {
	Schedule string // cron expression or "@every <duration>"
	Type     string // TypeCron or TypeEvery
}

// minRecurringInterval is the shortest interval a recurring reminder may use.
const minRecurringInterval = time.Minute

// defaultReminderHour is used by weekday schedules that give no time.
const defaultReminderHour = 9

var recurringRules = []struct {
	re    *regexp.Regexp
	build func(m []string) (ParsedSchedule, bool)
}{
	{regexp.MustCompile(`^every\s+(\d+)\s+([a-z]+)$`), func(m []string) (ParsedSchedule, bool) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return ParsedSchedule{}, false
		}
		return everyInterval(time.Duration(n) * unitDuration(m[2]))
	}},
	{regexp.MustCompile(`^every\s+(minute|hour|day)$`), func(m []string) (ParsedSchedule, bool) {
		return everyInterval(unitDuration(m[1]))
	}},
	{regexp.MustCompile(`^hourly$`), func([]string) (ParsedSchedule, bool) {
		return everyInterval(time.Hour)
	}},
	{regexp.MustCompile(`^(?:daily|every\s+day)(?:\s+(?:at\s+)?(.+))?$`), func(m []string) (ParsedSchedule, bool) {
		hour, minute := defaultReminderHour, 0
		if m[1] != "" {
			var ok bool
			if hour, minute, ok = parseClock(m[1]); !ok {
				return ParsedSchedule{}, false
			}
		}
		return cronAt(hour, minute, "*"), true
	}},
	{regexp.MustCompile(`^(?:weekly\s+on|every)\s+([a-z]+)(?:\s+(?:at\s+)?(.+))?$`), func(m []string) (ParsedSchedule, bool) {
		dow := parseDayOfWeek(m[1])
		if dow < 0 {
			return ParsedSchedule{}, false
		}
		hour, minute := defaultReminderHour, 0
		if m[2] != "" {
			var ok bool
			if hour, minute, ok = parseClock(m[2]); !ok {
				return ParsedSchedule{}, false
			}
		}
		return cronAt(hour, minute, strconv.Itoa(dow)), true
	}},
}

// ParseRecurring interprets a repeating reminder time. Intervals shorter
// than a minute are rejected.
func ParseRecurring(input string) (ParsedSchedule, bool) {
	s := normalizeTimeText(input)
	if s == "" {
		return ParsedSchedule{}, false
	}
	for _, rule := range recurringRules {
		m := rule.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		if p, ok := rule.build(m); ok {
			return p, true
		}
	}
	return ParsedSchedule{}, false
}

var (
	reInDuration = regexp.MustCompile(`^in\s+(\d+)\s+([a-z]+)$`)
	reTomorrow   = regexp.MustCompile(`^tomorrow(?:\s+at)?\s+(.+)$`)
	reClock      = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
)

// ParseReminderTime resolves a one-off reminder time to an instant after
// now. Accepted forms: "5pm", "5:30 pm", "17:30", "noon", "midnight",
// "in 10 minutes", "tomorrow [at] 9am", "2006-01-02 15:04" and RFC3339.
// Wall-clock times already past today roll over to tomorrow.
func ParseReminderTime(input string, now time.Time) (time.Time, bool) {
	s := normalizeTimeText(input)
	if s == "" {
		return time.Time{}, false
	}

	if m := reInDuration.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		unit := unitDuration(m[2])
		if err != nil || n <= 0 || unit == 0 {
			return time.Time{}, false
		}
		return now.Add(time.Duration(n) * unit), true
	}

	if m := reTomorrow.FindStringSubmatch(s); m != nil {
		hour, minute, ok := parseClock(m[1])
		if !ok {
			return time.Time{}, false
		}
		day := now.AddDate(0, 0, 1)
		return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location()), true
	}

	if hour, minute, ok := parseClock(s); ok {
		return nextWallClock(now, hour, minute), true
	}

	if t, err := time.ParseInLocation("2006-01-02 15:04", s, now.Location()); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, strings.ToUpper(s)); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func normalizeTimeText(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	return strings.TrimSpace(strings.TrimSuffix(s, "."))
}

// parseClock reads "9", "9am", "9 am", "09:30", "3:30pm", "noon" and
// "midnight" as a 24-hour clock time.
func parseClock(s string) (hour, minute int, ok bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "noon":
		return 12, 0, true
	case "midnight":
		return 0, 0, true
	}

	m := reClock.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if minute > 59 {
		return 0, 0, false
	}

	switch m[3] {
	case "":
		if hour > 23 {
			return 0, 0, false
		}
	default:
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		hour %= 12
		if m[3] == "pm" {
			hour += 12
		}
	}
	return hour, minute, true
}

// unitDuration maps "min", "minutes", "hrs", "day"... to a duration, or 0.
func unitDuration(unit string) time.Duration {
	switch strings.TrimSuffix(unit, "s") {
	case "second", "sec":
		return time.Second
	case "minute", "min":
		return time.Minute
	case "hour", "hr":
		return time.Hour
	case "day":
		return 24 * time.Hour
	}
	return 0
}

func everyInterval(d time.Duration) (ParsedSchedule, bool) {
	if d < minRecurringInterval {
		return ParsedSchedule{}, false
	}
	spec := fmt.Sprintf("@every %dm", d/time.Minute)
	if d%time.Hour == 0 {
		spec = fmt.Sprintf("@every %dh", d/time.Hour)
	}
	return ParsedSchedule{Schedule: spec, Type: TypeEvery}, true
}

func cronAt(hour, minute int, dow string) ParsedSchedule {
	return ParsedSchedule{
		Schedule: fmt.Sprintf("%d %d * * %s", minute, hour, dow),
		Type:     TypeCron,
	}
}

var weekdays = [...]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// parseDayOfWeek accepts a weekday name or an abbreviation of at least three
// letters and returns its cron number (0 = Sunday), or -1.
func parseDayOfWeek(day string) int {
	day = strings.ToLower(day)
	if len(day) < 3 {
		return -1
	}
	for i, name := range weekdays {
		if strings.HasPrefix(name, day) || day == name+"s" {
			return i
		}
	}
	return -1
}

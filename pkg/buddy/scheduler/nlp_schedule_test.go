package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRecurring(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		schedule string
		jobType  string
		matched  bool
	}{
		{"every 5 minutes", "@every 5m", TypeEvery, true},
		{"every 90 mins", "@every 90m", TypeEvery, true},
		{"every 2 hours", "@every 2h", TypeEvery, true},
		{"every 3 days", "@every 72h", TypeEvery, true},
		{"every minute", "@every 1m", TypeEvery, true},
		{"every hour", "@every 1h", TypeEvery, true},
		{"hourly", "@every 1h", TypeEvery, true},

		{"daily", "0 9 * * *", TypeCron, true},
		{"daily at 9:00", "0 9 * * *", TypeCron, true},
		{"daily 3:30pm", "30 15 * * *", TypeCron, true},
		{"every day at 12am", "0 0 * * *", TypeCron, true},

		{"every monday at 10am", "0 10 * * 1", TypeCron, true},
		{"Every Fri", "0 9 * * 5", TypeCron, true},
		{"every sundays at 8 pm", "0 20 * * 0", TypeCron, true},
		{"weekly on wed at 14:30", "30 14 * * 3", TypeCron, true},

		{"every 30 seconds", "", "", false},
		{"every 0 minutes", "", "", false},
		{"daily at 25:00", "", "", false},
		{"every xyz at 9:00", "", "", false},
		{"in 5 minutes", "", "", false},
		{"5pm", "", "", false},
		{"0 9 * * *", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			result, matched := ParseRecurring(tt.input)
			assert.Equal(t, tt.matched, matched)
			if !matched {
				return
			}
			assert.Equal(t, tt.schedule, result.Schedule)
			assert.Equal(t, tt.jobType, result.Type)
		})
	}
}

func TestParseClock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		hour   int
		minute int
		ok     bool
	}{
		{"9:00", 9, 0, true},
		{"14:30", 14, 30, true},
		{"9am", 9, 0, true},
		{"3 pm", 15, 0, true},
		{"3:30pm", 15, 30, true},
		{"12am", 0, 0, true},
		{"12pm", 12, 0, true},
		{"12:30am", 0, 30, true},
		{"23:59", 23, 59, true},
		{"noon", 12, 0, true},
		{"", 0, 0, false},
		{"abc", 0, 0, false},
		{"24:00", 0, 0, false},
		{"9:60", 0, 0, false},
		{"13pm", 0, 0, false},
		{"0am", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			hour, minute, ok := parseClock(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.hour, hour)
			assert.Equal(t, tt.minute, minute)
		})
	}
}

func TestParseDayOfWeek(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, parseDayOfWeek("Sunday"))
	assert.Equal(t, 1, parseDayOfWeek("mondays"))
	assert.Equal(t, 3, parseDayOfWeek("wed"))
	assert.Equal(t, 4, parseDayOfWeek("thurs"))
	assert.Equal(t, 6, parseDayOfWeek("sat"))
	assert.Equal(t, -1, parseDayOfWeek("mo"))
	assert.Equal(t, -1, parseDayOfWeek("someday"))
}

func TestParseReminderTime(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, loc)

	tests := []struct {
		input string
		want  time.Time
		ok    bool
	}{
		{"5pm", time.Date(2025, 3, 10, 17, 0, 0, 0, loc), true},
		{"5:30 pm", time.Date(2025, 3, 10, 17, 30, 0, 0, loc), true},
		{"17:30", time.Date(2025, 3, 10, 17, 30, 0, 0, loc), true},
		{"9am", time.Date(2025, 3, 11, 9, 0, 0, 0, loc), true},
		{"noon", time.Date(2025, 3, 11, 12, 0, 0, 0, loc), true},
		{"midnight", time.Date(2025, 3, 11, 0, 0, 0, 0, loc), true},
		{"14:00", now, true},
		{"in 10 minutes", now.Add(10 * time.Minute), true},
		{"in 2 hours", now.Add(2 * time.Hour), true},
		{"in 1 second", now.Add(time.Second), true},
		{"in 3 fortnights", time.Time{}, false},
		{"tomorrow at 9:30am", time.Date(2025, 3, 11, 9, 30, 0, 0, loc), true},
		{"tomorrow 8pm", time.Date(2025, 3, 11, 20, 0, 0, 0, loc), true},
		{"2025-04-01 08:15", time.Date(2025, 4, 1, 8, 15, 0, 0, loc), true},
		{"5pm.", time.Date(2025, 3, 10, 17, 0, 0, 0, loc), true},
		{"someday", time.Time{}, false},
		{"25:00", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseReminderTime(tt.input, now)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
			}
		})
	}
}

func TestParseOneShotTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	got, err := parseOneShotTime("5m", now)
	assert.NoError(t, err)
	assert.Equal(t, now.Add(5*time.Minute), got)

	got, err = parseOneShotTime("2025-03-10T15:00:00Z", now)
	assert.NoError(t, err)
	assert.Equal(t, 15, got.Hour())

	got, err = parseOneShotTime("1741618800", now)
	assert.NoError(t, err)
	assert.Equal(t, int64(1741618800), got.Unix())

	got, err = parseOneShotTime("09:00", now)
	assert.NoError(t, err)
	assert.Equal(t, 11, got.Day())

	_, err = parseOneShotTime("whenever", now)
	assert.Error(t, err)
}

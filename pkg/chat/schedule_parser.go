package chat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ScheduleKind mirrors store.ScheduledTask.ScheduleKind's three values.
type ScheduleKind string

const (
	KindOnce ScheduleKind = "once"
	KindInterval ScheduleKind = "interval"
	KindDaily ScheduleKind = "daily"
)

// ParsedSchedule is the result of parsing a /schedule <spec> clause.
type ParsedSchedule struct {
	Kind ScheduleKind
	RunAt time.Time
	DailyTime string // "HH:MM" UTC, set when Kind == KindDaily
	IntervalMinutes int
}

var (
	tomorrowRe = regexp.MustCompile(`(?i)^tomorrow\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)$`)
	todayRe = regexp.MustCompile(`(?i)^today\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)$`)
	dailyRe = regexp.MustCompile(`(?i)^daily\s+(\d{1,2}):(\d{2})$`)
	everyRe = regexp.MustCompile(`(?i)^every\s+(\d+)\s*(m|h)$`)
	inRe = regexp.MustCompile(`(?i)^in\s+(\d+)\s*(s|m|h)$`)
)

// ParseScheduleSpec parses the <spec> half of
// "/schedule <spec> | <instruction>": one of
// "tomorrow H[:MM]am|pm", "today H[:MM]am|pm", "daily HH:MM",
// "every N[m|h]", "in N[s|m|h]". All times are UTC; now is injected for
// testability.
func ParseScheduleSpec(spec string, now time.Time) (*ParsedSchedule, error) {
	spec = strings.TrimSpace(spec)
	now = now.UTC()

	if m := tomorrowRe.FindStringSubmatch(spec); m != nil {
		runAt, err := clockOn(now.AddDate(0, 0, 1), m[1], m[2], m[3])
		if err != nil {
			return nil, err
		}
		return &ParsedSchedule{Kind: KindOnce, RunAt: runAt}, nil
	}
	if m := todayRe.FindStringSubmatch(spec); m != nil {
		runAt, err := clockOn(now, m[1], m[2], m[3])
		if err != nil {
			return nil, err
		}
		if !runAt.After(now) {
			runAt = runAt.AddDate(0, 0, 1)
		}
		return &ParsedSchedule{Kind: KindOnce, RunAt: runAt}, nil
	}
	if m := dailyRe.FindStringSubmatch(spec); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return nil, fmt.Errorf("invalid daily time %q", spec)
		}
		return &ParsedSchedule{Kind: KindDaily, DailyTime: fmt.Sprintf("%02d:%02d", hour, minute)}, nil
	}
	if m := everyRe.FindStringSubmatch(spec); m != nil {
		n, _ := strconv.Atoi(m[1])
		minutes := n
		if m[2] == "h" {
			minutes = n * 60
		}
		if minutes <= 0 {
			return nil, fmt.Errorf("invalid interval %q", spec)
		}
		return &ParsedSchedule{Kind: KindInterval, IntervalMinutes: minutes}, nil
	}
	if m := inRe.FindStringSubmatch(spec); m != nil {
		n, _ := strconv.Atoi(m[1])
		var d time.Duration
		switch m[2] {
		case "s":
			d = time.Duration(n) * time.Second
		case "m":
			d = time.Duration(n) * time.Minute
		case "h":
			d = time.Duration(n) * time.Hour
		}
		if d <= 0 {
			return nil, fmt.Errorf("invalid delay %q", spec)
		}
		return &ParsedSchedule{Kind: KindOnce, RunAt: now.Add(d)}, nil
	}

	return nil, fmt.Errorf("unrecognized schedule spec %q (see /schedule help)", spec)
}

func clockOn(day time.Time, hourStr, minuteStr, meridiem string) (time.Time, error) {
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour < 1 || hour > 12 {
		return time.Time{}, fmt.Errorf("invalid hour %q", hourStr)
	}
	minute := 0
	if minuteStr != "" {
		minute, err = strconv.Atoi(minuteStr)
		if err != nil || minute > 59 {
			return time.Time{}, fmt.Errorf("invalid minute %q", minuteStr)
		}
	}
	switch strings.ToLower(meridiem) {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC), nil
}

var (
	temporalCueRe = regexp.MustCompile(`(?i)\b(tomorrow\s+\d{1,2}(?::\d{2})?\s*(?:am|pm)|today\s+\d{1,2}(?::\d{2})?\s*(?:am|pm)|in\s+\d+\s*(?:s|m|h)\b)`)
	scheduleVerbRe = regexp.MustCompile(`(?i)\b(at|schedule|remind|run|send|deliver|do)\b`)
)

// DetectNaturalLanguageSchedule implements its natural-language
// scheduling trigger: a recognized temporal cue together with a schedule
// verb anywhere in the message ("tomorrow 9:45am send PnL"). Returns the
// parsed schedule and the instruction with the temporal clause removed,
// or ok=false if the message isn't a scheduling request.
func DetectNaturalLanguageSchedule(text string, now time.Time) (schedule *ParsedSchedule, instruction string, ok bool) {
	if !scheduleVerbRe.MatchString(text) {
		return nil, "", false
	}
	loc := temporalCueRe.FindStringIndex(text)
	if loc == nil {
		return nil, "", false
	}
	clause := strings.Join(strings.Fields(text[loc[0]:loc[1]]), " ")
	parsed, err := ParseScheduleSpec(clause, now)
	if err != nil {
		return nil, "", false
	}
	remainder := strings.Join(strings.Fields(text[:loc[0]]+" "+text[loc[1]:]), " ")
	if remainder == "" {
		remainder = text
	}
	return parsed, remainder, true
}

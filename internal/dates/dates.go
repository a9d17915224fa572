package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DisplayLayout = "02/01/2006"
	ISOLayout     = "2006-01-02"

	middayMarker = "T12:00:00"
	middayLayout = "2006-01-02T15:04:05"
)

var (
	displayPattern      = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	isoPattern          = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	isoPrefixPattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	looseDisplayPattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

var genericLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
	"2006/01/02 15:04:05",
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
	"Mon, 2 Jan 2006",
}

// ToDisplay renders a stored date as DD/MM/YYYY. Display dates pass through,
// ISO dates (with or without a time part) are rearranged as text, anything
// else goes through a generic parse read in UTC. Unparseable input is
// returned unchanged.
func ToDisplay(value string) string {
	if value == "" {
		return ""
	}
	if displayPattern.MatchString(value) {
		return value
	}
	if isoPrefixPattern.MatchString(value) {
		return value[8:10] + "/" + value[5:7] + "/" + value[0:4]
	}
	if t, ok := parseGeneric(value); ok {
		return t.UTC().Format(DisplayLayout)
	}
	return value
}

func ToDisplayPtr(value *string) string {
	if value == nil {
		return ""
	}
	return ToDisplay(*value)
}

// ToISO converts a DD/MM/YYYY date to YYYY-MM-DD. ISO input passes through.
// ok is false for empty or unrecognised input; no guessing is attempted.
func ToISO(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	if displayPattern.MatchString(value) {
		return value[6:10] + "-" + value[3:5] + "-" + value[0:2], true
	}
	if isoPattern.MatchString(value) {
		return value, true
	}
	return "", false
}

func ToISOPtr(value *string) *string {
	if value == nil {
		return nil
	}
	iso, ok := ToISO(*value)
	if !ok {
		return nil
	}
	return &iso
}

func FormatDisplay(t time.Time) string {
	return t.Format(DisplayLayout)
}

func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

func IsValid(t time.Time) bool {
	return !t.IsZero()
}

// ParseTimestamp reads full timestamps as written by the database
// (created_at, changed_at) and falls back to the generic layouts.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999Z07",
		"2006-01-02 15:04:05.999999999",
		ISOLayout,
	} {
		if t, err := time.Parse(layout, value); err == nil && IsValid(t) {
			return t, true
		}
	}
	return parseGeneric(value)
}

// AddMonths moves t by n calendar months, clamping the day to the end of
// the target month (31 Jan + 1 month = 28/29 Feb).
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

func DaysBetween(a, b time.Time) int {
	diff := b.Sub(a)
	if diff < 0 {
		diff = -diff
	}
	days := diff / (24 * time.Hour)
	if diff%(24*time.Hour) != 0 {
		days++
	}
	return int(days)
}

func parseGeneric(value string) (time.Time, bool) {
	if m := looseDisplayPattern.FindStringSubmatch(value); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if t.Day() != day || int(t.Month()) != month || t.Year() != year {
			return time.Time{}, false
		}
		return t, true
	}
	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, value); err == nil && IsValid(t) {
			return t, true
		}
	}
	return time.Time{}, false
}

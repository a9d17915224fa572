package dates

import (
	"strings"
	"time"
)

type FallbackPolicy func() time.Time

func DefaultToCurrentTime() time.Time {
	return time.Now()
}

func FixedTime(t time.Time) FallbackPolicy {
	return func() time.Time { return t }
}

// FromTimestamp tries a raw timestamp (typically created_at) before handing
// over to next.
func FromTimestamp(raw string, next FallbackPolicy) FallbackPolicy {
	return func() time.Time {
		if t, ok := ParseTimestamp(raw); ok {
			return t
		}
		return next()
	}
}

type Normalizer struct {
	loc      *time.Location
	fallback FallbackPolicy
}

func NewNormalizer(loc *time.Location, fallback FallbackPolicy) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	if fallback == nil {
		fallback = DefaultToCurrentTime
	}
	return &Normalizer{loc: loc, fallback: fallback}
}

var std = NewNormalizer(time.Local, DefaultToCurrentTime)

// EarliestValidDate returns the earliest parseable status date, or the
// current time when none of raw is usable.
func EarliestValidDate(raw []string) time.Time {
	return std.EarliestValidDate(raw)
}

func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// ParseStatusDate parses a status-change date at midday in the normalizer's
// location. Display dates are accepted as well.
func (n *Normalizer) ParseStatusDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if iso, ok := ToISO(raw); ok {
		raw = iso
	}
	t, err := time.ParseInLocation(middayLayout, raw+middayMarker, n.loc)
	if err != nil || !IsValid(t) {
		return time.Time{}, false
	}
	return t, true
}

func (n *Normalizer) EarliestValidDate(raw []string) time.Time {
	t, _ := n.EarliestWith(raw, n.fallback)
	return t
}

// Earliest is EarliestValidDate that also reports whether the result came
// from raw (true) or from the fallback policy (false).
func (n *Normalizer) Earliest(raw []string) (time.Time, bool) {
	return n.EarliestWith(raw, n.fallback)
}

func (n *Normalizer) EarliestWith(raw []string, fallback FallbackPolicy) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, value := range raw {
		t, ok := n.ParseStatusDate(value)
		if !ok {
			continue
		}
		if !found || t.Before(earliest) {
			earliest = t
			found = true
		}
	}
	if found && IsValid(earliest) {
		return earliest, true
	}
	return resolve(fallback), false
}

func resolve(fallback FallbackPolicy) time.Time {
	if fallback != nil {
		if t := fallback(); IsValid(t) {
			return t
		}
	}
	return time.Now()
}

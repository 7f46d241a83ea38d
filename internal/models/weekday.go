package models

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Weekday is an ISO-8601 day of week where Monday is 1 and Sunday is 7.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayCodes = [...]string{"", "MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}

var weekdayAliases = map[string]Weekday{
	"MONDAY":    Monday,
	"TUESDAY":   Tuesday,
	"WEDNESDAY": Wednesday,
	"THURSDAY":  Thursday,
	"FRIDAY":    Friday,
	"SATURDAY":  Saturday,
	"SUNDAY":    Sunday,
}

// WeekdayOf returns the ISO weekday of t.
func WeekdayOf(t time.Time) Weekday {
	wd := t.Weekday()
	if wd == time.Sunday {
		return Sunday
	}
	return Weekday(wd)
}

// ParseWeekday accepts short codes (MON), full names (MONDAY) or ISO numbers (1).
func ParseWeekday(raw string) (Weekday, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	for i := 1; i < len(weekdayCodes); i++ {
		if weekdayCodes[i] == value {
			return Weekday(i), nil
		}
	}
	if wd, ok := weekdayAliases[value]; ok {
		return wd, nil
	}
	if n, err := strconv.Atoi(value); err == nil && Weekday(n).Valid() {
		return Weekday(n), nil
	}
	return 0, fmt.Errorf("invalid weekday %q", raw)
}

// Valid reports whether w is within 1..7.
func (w Weekday) Valid() bool {
	return w >= Monday && w <= Sunday
}

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return weekdayCodes[w]
}

// MarshalText renders the weekday as its short code; it is also used for JSON map keys.
func (w Weekday) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(w))
	}
	return []byte(weekdayCodes[w]), nil
}

// UnmarshalText parses any format accepted by ParseWeekday.
func (w *Weekday) UnmarshalText(text []byte) error {
	parsed, err := ParseWeekday(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// WeekdaySet is the ordered, de-duplicated set of active weekdays of a class.
type WeekdaySet []Weekday

// NewWeekdaySet normalises days into ascending order without duplicates or invalid values.
func NewWeekdaySet(days ...Weekday) WeekdaySet {
	seen := make(map[Weekday]struct{}, len(days))
	out := make(WeekdaySet, 0, len(days))
	for _, d := range days {
		if !d.Valid() {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Contains reports whether d is active.
func (s WeekdaySet) Contains(d Weekday) bool {
	for _, w := range s {
		if w == d {
			return true
		}
	}
	return false
}

// Value stores the set as a Postgres integer array.
func (s WeekdaySet) Value() (driver.Value, error) {
	arr := make(pq.Int64Array, len(s))
	for i, d := range s {
		arr[i] = int64(d)
	}
	return arr.Value()
}

// Scan reads a Postgres integer array.
func (s *WeekdaySet) Scan(src interface{}) error {
	var arr pq.Int64Array
	if err := arr.Scan(src); err != nil {
		return fmt.Errorf("scan weekday set: %w", err)
	}
	days := make([]Weekday, len(arr))
	for i, v := range arr {
		days[i] = Weekday(v)
	}
	*s = NewWeekdaySet(days...)
	return nil
}

package models

import (
	"fmt"
	"time"
)

const clockLayout = "15:04"

// TimeSlotTemplate is a branch-scoped named time range reused across classes.
type TimeSlotTemplate struct {
	ID        string `db:"id" json:"id"`
	BranchID  string `db:"branch_id" json:"branchId"`
	Name      string `db:"name" json:"name"`
	StartTime string `db:"start_time" json:"startTime"`
	EndTime   string `db:"end_time" json:"endTime"`
}

// DurationHours returns the implied duration in hours.
func (t TimeSlotTemplate) DurationHours() (float64, error) {
	start, end, err := t.Bounds()
	if err != nil {
		return 0, err
	}
	return end.Sub(start).Hours(), nil
}

// Bounds parses start and end as clock times on the zero date.
func (t TimeSlotTemplate) Bounds() (time.Time, time.Time, error) {
	start, err := time.Parse(clockLayout, t.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse start time %q: %w", t.StartTime, err)
	}
	end, err := time.Parse(clockLayout, t.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse end time %q: %w", t.EndTime, err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("time slot %s ends before it starts", t.ID)
	}
	return start, end, nil
}

// Overlaps reports whether two templates share any minute of the day.
func (t TimeSlotTemplate) Overlaps(other TimeSlotTemplate) bool {
	aStart, aEnd, err := t.Bounds()
	if err != nil {
		return false
	}
	bStart, bEnd, err := other.Bounds()
	if err != nil {
		return false
	}
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// OverlapsClock reports whether the template overlaps the [start, end) clock range.
func (t TimeSlotTemplate) OverlapsClock(start, end string) bool {
	return t.Overlaps(TimeSlotTemplate{ID: "range", StartTime: start, EndTime: end})
}

// WeekdayTimeSlots lists the candidate templates for one weekday.
type WeekdayTimeSlots struct {
	Weekday    Weekday            `json:"weekday"`
	Assignable bool               `json:"assignable"`
	Candidates []TimeSlotTemplate `json:"candidates"`
}

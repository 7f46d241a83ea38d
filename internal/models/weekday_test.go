package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekdayOf(t *testing.T) {
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, Monday, WeekdayOf(monday))
	assert.Equal(t, Sunday, WeekdayOf(monday.AddDate(0, 0, 6)))
}

func TestParseWeekday(t *testing.T) {
	for _, raw := range []string{"WED", "wednesday", "3", " Wed "} {
		wd, err := ParseWeekday(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, Wednesday, wd)
	}
	_, err := ParseWeekday("8")
	assert.Error(t, err)
	_, err = ParseWeekday("FUNDAY")
	assert.Error(t, err)
}

func TestPatternJSONUsesWeekdayCodes(t *testing.T) {
	raw, err := json.Marshal(Pattern{Monday: "R1", Wednesday: "R2"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"MON":"R1","WED":"R2"}`, string(raw))

	var decoded Pattern
	require.NoError(t, json.Unmarshal([]byte(`{"FRI":"slot-1","1":"slot-2"}`), &decoded))
	assert.Equal(t, Pattern{Friday: "slot-1", Monday: "slot-2"}, decoded)
}

func TestWeekdaySetNormalises(t *testing.T) {
	set := NewWeekdaySet(Wednesday, Monday, Wednesday, 0, 9)
	assert.Equal(t, WeekdaySet{Monday, Wednesday}, set)
	assert.True(t, set.Contains(Monday))
	assert.False(t, set.Contains(Friday))
}

func TestWeekdaySetSQLRoundTrip(t *testing.T) {
	value, err := WeekdaySet{Monday, Friday}.Value()
	require.NoError(t, err)
	assert.Equal(t, "{1,5}", value)

	var set WeekdaySet
	require.NoError(t, set.Scan([]byte("{5,1}")))
	assert.Equal(t, WeekdaySet{Monday, Friday}, set)
}

func TestTimeSlotTemplateDuration(t *testing.T) {
	slot := TimeSlotTemplate{ID: "slot-1", StartTime: "08:00", EndTime: "09:30"}
	hours, err := slot.DurationHours()
	require.NoError(t, err)
	assert.InDelta(t, 1.5, hours, 0.0001)

	assert.True(t, slot.OverlapsClock("09:00", "10:00"))
	assert.False(t, slot.OverlapsClock("09:30", "10:00"))

	_, err = TimeSlotTemplate{ID: "bad", StartTime: "10:00", EndTime: "09:00"}.DurationHours()
	assert.Error(t, err)
}

func TestClassDraftInRange(t *testing.T) {
	draft := &ClassDraft{
		StartDate:      time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		PlannedEndDate: time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC),
	}
	assert.True(t, draft.InRange(time.Date(2026, 1, 30, 18, 0, 0, 0, time.UTC)))
	assert.False(t, draft.InRange(time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, ApprovalStatus(""), draft.Approval())
}

package app

import (
	"testing"
	"time"
)

func TestNextRunBeijing_BeforeNine(t *testing.T) {
	loc := beijing()
	now := time.Date(2026, 8, 24, 7, 30, 0, 0, loc)
	next := nextRunBeijing(now)
	want := time.Date(2026, 8, 24, 9, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
}

func TestNextRunBeijing_AfterNineRollsOver(t *testing.T) {
	loc := beijing()
	now := time.Date(2026, 8, 24, 9, 0, 1, 0, loc)
	next := nextRunBeijing(now)
	want := time.Date(2026, 8, 25, 9, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
}

func TestNextRunBeijing_ExactlyNineRollsOver(t *testing.T) {
	loc := beijing()
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, loc)
	next := nextRunBeijing(now)
	if next.Day() != 25 {
		t.Fatalf("a run at exactly 09:00 must schedule tomorrow, got %v", next)
	}
}

func TestNextRunBeijing_UTCInput(t *testing.T) {
	// 02:00 UTC is 10:00 in Beijing, past the trigger.
	now := time.Date(2026, 8, 24, 2, 0, 0, 0, time.UTC)
	next := nextRunBeijing(now)
	if next.Day() != 25 || next.Hour() != 9 {
		t.Fatalf("next = %v, want Aug 25 09:00 Beijing", next)
	}
}

func TestSchedulerMeta_Contract(t *testing.T) {
	now := time.Date(2026, 8, 24, 1, 0, 0, 0, time.UTC) // 09:00 Beijing
	m := schedulerMeta(now, true, "OK")
	if m.Timezone != "Asia/Shanghai" || m.DailyTime != "09:00" {
		t.Fatalf("contract fields wrong: %+v", m)
	}
	if m.TaskName != "execbrief-daily" {
		t.Fatalf("task name = %q", m.TaskName)
	}
	if !m.Installed || m.LastRunStatus != "OK" {
		t.Fatalf("state fields wrong: %+v", m)
	}
	if m.NextRunAtBeijing == "" {
		t.Fatalf("next run missing")
	}
	if _, err := time.Parse(time.RFC3339, m.NextRunAtBeijing); err != nil {
		t.Fatalf("next run not RFC3339: %q", m.NextRunAtBeijing)
	}
}

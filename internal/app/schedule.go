package app

import (
	"time"
)

// The daily trigger contract: the OS scheduler fires daily mode at 09:00
// Beijing time. The meta file exists even when no task is installed so
// unattended verifiers can still evaluate it.
const (
	scheduleTimezone  = "Asia/Shanghai"
	scheduleDailyTime = "09:00"
	scheduleTaskName  = "execbrief-daily"
)

// SchedulerMeta is persisted as scheduler.meta.json.
type SchedulerMeta struct {
	Installed        bool   `json:"installed"`
	Timezone         string `json:"timezone"`
	DailyTime        string `json:"daily_time"`
	TaskName         string `json:"task_name"`
	NextRunAtBeijing string `json:"next_run_at_beijing"`
	LastRunStatus    string `json:"last_run_status,omitempty"`
}

func beijing() *time.Location {
	if loc, err := time.LoadLocation(scheduleTimezone); err == nil {
		return loc
	}
	// No tzdata on the host; Beijing has no DST so a fixed offset is exact.
	return time.FixedZone("CST", 8*60*60)
}

// nextRunBeijing returns the next 09:00 in Beijing time after now.
func nextRunBeijing(now time.Time) time.Time {
	local := now.In(beijing())
	next := time.Date(local.Year(), local.Month(), local.Day(), 9, 0, 0, 0, local.Location())
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// schedulerMeta builds the meta record for this run. Installation is
// OS-side; the pipeline only reports what it can observe through the
// EXEC_SCHEDULER_INSTALLED surface.
func schedulerMeta(now time.Time, installed bool, lastStatus string) SchedulerMeta {
	return SchedulerMeta{
		Installed:        installed,
		Timezone:         scheduleTimezone,
		DailyTime:        scheduleDailyTime,
		TaskName:         scheduleTaskName,
		NextRunAtBeijing: nextRunBeijing(now).Format(time.RFC3339),
		LastRunStatus:    lastStatus,
	}
}

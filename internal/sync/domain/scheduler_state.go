package domain

import "time"

// ScheduleMode selects how the auto-sync scheduler decides when to fire
type ScheduleMode string

const (
	// ModeInterval triggers whenever intervalHours have elapsed since the
	// last trigger.
	ModeInterval ScheduleMode = "interval"
	// ModeDaily triggers once per calendar day at dailyTime.
	ModeDaily ScheduleMode = "daily"
)

// SchedulerState is the persisted auto-sync configuration plus trigger
// bookkeeping. LastTriggeredAt/LastTriggeredDay live in the database so a
// process restart neither fires an immediate extra sync nor loses track of
// elapsed time.
type SchedulerState struct {
	ID            string       `json:"id" gorm:"primaryKey"`
	UserID        string       `json:"user_id" gorm:"uniqueIndex;not null"`
	Enabled       bool         `json:"enabled" gorm:"default:false"`
	Mode          ScheduleMode `json:"mode" gorm:"default:interval"`
	IntervalHours int          `json:"interval_hours" gorm:"default:1"`
	DailyTime     string       `json:"daily_time" gorm:"default:'09:00'"` // "HH:MM", 24h

	LastTriggeredAt  *time.Time `json:"last_triggered_at,omitempty"`
	LastTriggeredDay string     `json:"last_triggered_day,omitempty"` // "2006-01-02"

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

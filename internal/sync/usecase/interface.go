package usecase

import (
	"time"

	syncdomain "schoolsync-backend/internal/sync/domain"
)

// SyncStatus is the lifecycle state of a user's sync engine
type SyncStatus string

const (
	StatusIdle       SyncStatus = "idle"
	StatusRunning    SyncStatus = "running"
	StatusCancelling SyncStatus = "cancelling"
)

// RunStatus is the externally visible snapshot of a user's sync state
type RunStatus struct {
	Status          SyncStatus `json:"status"`
	ProcessedCount  int        `json:"processed_count"`
	LastMessage     string     `json:"last_message,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
}

// RunSummary is one entry in the bounded sync history, most recent first
type RunSummary struct {
	FinishedAt     time.Time `json:"finished_at"`
	Outcome        string    `json:"outcome"` // completed | cancelled | failed
	ProcessedCount int       `json:"processed_count"`
	SkippedCount   int       `json:"skipped_count"`
	ErrorCount     int       `json:"error_count"`
	Message        string    `json:"message"`
}

// ScheduleUpdate carries a settings change from the API
type ScheduleUpdate struct {
	Enabled       bool   `json:"enabled"`
	Mode          string `json:"mode" binding:"required,oneof=interval daily"`
	IntervalHours int    `json:"interval_hours" binding:"required,min=1,max=24"`
	DailyTime     string `json:"daily_time" binding:"required"`
}

// SyncUsecase drives sync passes and owns their run state. At most one run
// may be in flight per user; StartSync reports false when a run is already
// active (a no-op, not an error).
type SyncUsecase interface {
	StartSync(userID string) bool
	CancelSync(userID string)
	IsRunning(userID string) bool
	Status(userID string) RunStatus
	History(userID string) []RunSummary

	GetSchedule(userID string) (*syncdomain.SchedulerState, error)
	UpdateSchedule(userID string, update ScheduleUpdate) (*syncdomain.SchedulerState, error)
}

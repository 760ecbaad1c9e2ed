package repository

import (
	"time"

	syncdomain "schoolsync-backend/internal/sync/domain"
)

// SchedulerStateRepository defines the interface for scheduler state
// persistence. Trigger bookkeeping is written through here so it survives
// process restarts.
type SchedulerStateRepository interface {
	// GetByUserID returns the user's state, creating a disabled default
	// row on first access.
	GetByUserID(userID string) (*syncdomain.SchedulerState, error)
	// ListEnabled returns every user's state with auto-sync enabled.
	ListEnabled() ([]*syncdomain.SchedulerState, error)
	Save(state *syncdomain.SchedulerState) error
	// MarkTriggered records that a sync was triggered at the given time,
	// updating both LastTriggeredAt and LastTriggeredDay.
	MarkTriggered(userID string, at time.Time) error
}

package repository

import (
	"errors"
	"time"

	syncdomain "schoolsync-backend/internal/sync/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DayLayout formats the calendar day used for daily-mode bookkeeping
const DayLayout = "2006-01-02"

// schedulerStateRepository implements SchedulerStateRepository interface
type schedulerStateRepository struct {
	db *gorm.DB
}

// NewSchedulerStateRepository creates a new instance of schedulerStateRepository
func NewSchedulerStateRepository(db *gorm.DB) SchedulerStateRepository {
	return &schedulerStateRepository{
		db: db,
	}
}

func (r *schedulerStateRepository) GetByUserID(userID string) (*syncdomain.SchedulerState, error) {
	var state syncdomain.SchedulerState
	err := r.db.Where("user_id = ?", userID).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			now := time.Now()
			state = syncdomain.SchedulerState{
				ID:            uuid.New().String(),
				UserID:        userID,
				Enabled:       false,
				Mode:          syncdomain.ModeInterval,
				IntervalHours: 1,
				DailyTime:     "09:00",
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := r.db.Create(&state).Error; err != nil {
				return nil, err
			}
			return &state, nil
		}
		return nil, err
	}
	return &state, nil
}

func (r *schedulerStateRepository) ListEnabled() ([]*syncdomain.SchedulerState, error) {
	var states []*syncdomain.SchedulerState
	err := r.db.Where("enabled = ?", true).Find(&states).Error
	return states, err
}

func (r *schedulerStateRepository) Save(state *syncdomain.SchedulerState) error {
	state.UpdatedAt = time.Now()
	return r.db.Save(state).Error
}

func (r *schedulerStateRepository) MarkTriggered(userID string, at time.Time) error {
	return r.db.Model(&syncdomain.SchedulerState{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"last_triggered_at":  at,
			"last_triggered_day": at.Format(DayLayout),
			"updated_at":         time.Now(),
		}).Error
}

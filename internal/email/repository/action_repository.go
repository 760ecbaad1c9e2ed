package repository

import (
	"errors"
	"time"

	emaildomain "schoolsync-backend/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// actionRepository implements ActionRepository interface
type actionRepository struct {
	db *gorm.DB
}

// NewActionRepository creates a new instance of actionRepository
func NewActionRepository(db *gorm.DB) ActionRepository {
	return &actionRepository{
		db: db,
	}
}

func (r *actionRepository) Create(action *emaildomain.ActionItem) error {
	if action.ID == "" {
		action.ID = uuid.New().String()
	}
	action.CreatedAt = time.Now()
	action.UpdatedAt = time.Now()
	return r.db.Create(action).Error
}

func (r *actionRepository) FindByID(userID, id string) (*emaildomain.ActionItem, error) {
	var action emaildomain.ActionItem
	err := r.db.Where("user_id = ? AND id = ?", userID, id).First(&action).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &action, nil
}

func (r *actionRepository) ListByUser(userID string) ([]*emaildomain.ActionItem, error) {
	var actions []*emaildomain.ActionItem
	err := r.db.Where("user_id = ?", userID).Order("deadline ASC").Find(&actions).Error
	return actions, err
}

func (r *actionRepository) SetCompleted(userID, id string, completed bool) error {
	return r.db.Model(&emaildomain.ActionItem{}).
		Where("user_id = ? AND id = ?", userID, id).
		Updates(map[string]interface{}{
			"is_completed": completed,
			"updated_at":   time.Now(),
		}).Error
}

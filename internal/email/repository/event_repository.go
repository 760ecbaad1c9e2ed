package repository

import (
	"time"

	emaildomain "schoolsync-backend/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// eventRepository implements EventRepository interface
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new instance of eventRepository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{
		db: db,
	}
}

func (r *eventRepository) Create(event *emaildomain.SchoolEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	event.CreatedAt = time.Now()
	event.UpdatedAt = time.Now()
	return r.db.Create(event).Error
}

func (r *eventRepository) ListByUser(userID string) ([]*emaildomain.SchoolEvent, error) {
	var events []*emaildomain.SchoolEvent
	err := r.db.Where("user_id = ?", userID).Order("date ASC").Find(&events).Error
	return events, err
}

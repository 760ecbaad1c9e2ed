package repository

import (
	"time"

	emaildomain "schoolsync-backend/internal/email/domain"
)

// EmailRepository defines the interface for persisted email operations
type EmailRepository interface {
	Create(email *emaildomain.Email) error
	FindByID(userID, id string) (*emaildomain.Email, error)
	ListByUser(userID string, limit, offset int) ([]*emaildomain.Email, int64, error)
	// ExistsBySubjectAndReceivedAt is the dedup guard: an email is a
	// duplicate iff both subject and receivedAt match exactly.
	ExistsBySubjectAndReceivedAt(userID, subject string, receivedAt time.Time) (bool, error)
}

// EventRepository defines the interface for school event persistence
type EventRepository interface {
	Create(event *emaildomain.SchoolEvent) error
	ListByUser(userID string) ([]*emaildomain.SchoolEvent, error)
}

// ActionRepository defines the interface for action item persistence
type ActionRepository interface {
	Create(action *emaildomain.ActionItem) error
	FindByID(userID, id string) (*emaildomain.ActionItem, error)
	ListByUser(userID string) ([]*emaildomain.ActionItem, error)
	SetCompleted(userID, id string, completed bool) error
}

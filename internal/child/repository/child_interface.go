package repository

import childdomain "schoolsync-backend/internal/child/domain"

// ChildRepository defines the interface for child profile persistence.
// Children are ordered by creation time so "first configured child" is a
// stable notion for attribution fallbacks.
type ChildRepository interface {
	Create(child *childdomain.Child) error
	FindByID(userID, id string) (*childdomain.Child, error)
	ListByUser(userID string) ([]*childdomain.Child, error)
	Update(child *childdomain.Child) error
	Delete(userID, id string) error
}

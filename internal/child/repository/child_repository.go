package repository

import (
	"errors"
	"time"

	childdomain "schoolsync-backend/internal/child/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// childRepository implements ChildRepository interface
type childRepository struct {
	db *gorm.DB
}

// NewChildRepository creates a new instance of childRepository
func NewChildRepository(db *gorm.DB) ChildRepository {
	return &childRepository{
		db: db,
	}
}

func (r *childRepository) Create(child *childdomain.Child) error {
	if child.ID == "" {
		child.ID = uuid.New().String()
	}
	child.CreatedAt = time.Now()
	child.UpdatedAt = time.Now()
	return r.db.Create(child).Error
}

func (r *childRepository) FindByID(userID, id string) (*childdomain.Child, error) {
	var child childdomain.Child
	err := r.db.Where("user_id = ? AND id = ?", userID, id).First(&child).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &child, nil
}

func (r *childRepository) ListByUser(userID string) ([]*childdomain.Child, error) {
	var children []*childdomain.Child
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&children).Error
	return children, err
}

func (r *childRepository) Update(child *childdomain.Child) error {
	child.UpdatedAt = time.Now()
	return r.db.Save(child).Error
}

func (r *childRepository) Delete(userID, id string) error {
	return r.db.Where("user_id = ? AND id = ?", userID, id).Delete(&childdomain.Child{}).Error
}

package repository

import (
	"errors"
	"time"

	emaildomain "schoolsync-backend/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// emailRepository implements EmailRepository interface
type emailRepository struct {
	db *gorm.DB
}

// NewEmailRepository creates a new instance of emailRepository
func NewEmailRepository(db *gorm.DB) EmailRepository {
	return &emailRepository{
		db: db,
	}
}

func (r *emailRepository) Create(email *emaildomain.Email) error {
	if email.ID == "" {
		email.ID = uuid.New().String()
	}
	email.CreatedAt = time.Now()
	email.UpdatedAt = time.Now()
	return r.db.Create(email).Error
}

func (r *emailRepository) FindByID(userID, id string) (*emaildomain.Email, error) {
	var email emaildomain.Email
	err := r.db.Where("user_id = ? AND id = ?", userID, id).First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &email, nil
}

func (r *emailRepository) ListByUser(userID string, limit, offset int) ([]*emaildomain.Email, int64, error) {
	var emails []*emaildomain.Email
	var total int64

	query := r.db.Model(&emaildomain.Email{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("received_at DESC").Limit(limit).Offset(offset).Find(&emails).Error
	return emails, total, err
}

// ExistsBySubjectAndReceivedAt matches exactly, no fuzzy comparison: two
// messages with the same subject received one second apart are distinct.
func (r *emailRepository) ExistsBySubjectAndReceivedAt(userID, subject string, receivedAt time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&emaildomain.Email{}).
		Where("user_id = ? AND subject = ? AND received_at = ?", userID, subject, receivedAt).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

package domain

import "time"

// ActionItem is a parent to-do extracted from an email (sign a form, pay
// dinner money) or added manually.
type ActionItem struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	UserID         string    `json:"user_id" gorm:"index;not null"`
	ChildID        string    `json:"child_id" gorm:"index;not null"`
	RelatedEmailID string    `json:"related_email_id,omitempty" gorm:"index"`
	Title          string    `json:"title" gorm:"not null"`
	Deadline       string    `json:"deadline"` // ISO date string, as extracted
	IsCompleted    bool      `json:"is_completed" gorm:"default:false"`
	Urgency        Urgency   `json:"urgency" gorm:"default:Medium"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

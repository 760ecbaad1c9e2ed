package domain

import "time"

// SchoolEvent is a calendar entry extracted from an email, shown on the
// dashboard timeline.
type SchoolEvent struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	UserID      string    `json:"user_id" gorm:"index;not null"`
	ChildID     string    `json:"child_id" gorm:"index;not null"`
	EmailID     string    `json:"email_id,omitempty" gorm:"index"` // source email, if extracted
	Title       string    `json:"title" gorm:"not null"`
	Date        string    `json:"date"` // ISO date string, as extracted
	Time        string    `json:"time,omitempty"`
	Location    string    `json:"location,omitempty"`
	Category    Category  `json:"category"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

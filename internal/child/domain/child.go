package domain

import "time"

// Child is a configured child profile. Name doubles as the classifier's
// candidate label, so it must be unique among a user's children.
// MatchRules holds per-child sender patterns: a bare domain
// ("school.com"), an @-prefixed domain ("@school.com") or a full address
// ("office@school.com"). Rules are compared case-insensitively.
type Child struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	UserID     string    `json:"user_id" gorm:"index;not null"`
	Name       string    `json:"name" gorm:"not null"`
	SchoolName string    `json:"school_name,omitempty"`
	Color      string    `json:"color,omitempty"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	MatchRules []string  `json:"match_rules" gorm:"serializer:json"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

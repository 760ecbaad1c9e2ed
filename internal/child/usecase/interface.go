package usecase

import childdomain "schoolsync-backend/internal/child/domain"

// ChildInput carries create/update fields from the API
type ChildInput struct {
	Name       string   `json:"name" binding:"required"`
	SchoolName string   `json:"school_name"`
	Color      string   `json:"color"`
	AvatarURL  string   `json:"avatar_url"`
	MatchRules []string `json:"match_rules"`
}

// ChildUsecase defines the interface for child profile operations
type ChildUsecase interface {
	CreateChild(userID string, input ChildInput) (*childdomain.Child, error)
	GetChild(userID, id string) (*childdomain.Child, error)
	ListChildren(userID string) ([]*childdomain.Child, error)
	UpdateChild(userID, id string, input ChildInput) (*childdomain.Child, error)
	DeleteChild(userID, id string) error
}

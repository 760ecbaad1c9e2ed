package usecase

import (
	"context"

	emaildomain "schoolsync-backend/internal/email/domain"
)

// EmailUsecase defines the interface for reading the processed mailbox
// and its extracted projections.
type EmailUsecase interface {
	ListEmails(userID string, limit, offset int) ([]*emaildomain.Email, int64, error)
	GetEmail(userID, id string) (*emaildomain.Email, error)
	DraftReply(ctx context.Context, userID, emailID string) (string, error)

	ListEvents(userID string) ([]*emaildomain.SchoolEvent, error)
	ListActions(userID string) ([]*emaildomain.ActionItem, error)
	ToggleAction(userID, id string) (*emaildomain.ActionItem, error)
}

package usecase

import (
	"context"
	"errors"

	emaildomain "schoolsync-backend/internal/email/domain"
	emailrepo "schoolsync-backend/internal/email/repository"
	"schoolsync-backend/pkg/ai"
)

var (
	ErrEmailNotFound  = errors.New("email not found")
	ErrActionNotFound = errors.New("action not found")
)

// emailUsecase implements EmailUsecase interface
type emailUsecase struct {
	emailRepo  emailrepo.EmailRepository
	eventRepo  emailrepo.EventRepository
	actionRepo emailrepo.ActionRepository
	analyzer   ai.AnalyzerService
}

// NewEmailUsecase creates a new instance of emailUsecase
func NewEmailUsecase(
	emailRepo emailrepo.EmailRepository,
	eventRepo emailrepo.EventRepository,
	actionRepo emailrepo.ActionRepository,
	analyzer ai.AnalyzerService,
) EmailUsecase {
	return &emailUsecase{
		emailRepo:  emailRepo,
		eventRepo:  eventRepo,
		actionRepo: actionRepo,
		analyzer:   analyzer,
	}
}

func (u *emailUsecase) ListEmails(userID string, limit, offset int) ([]*emaildomain.Email, int64, error) {
	return u.emailRepo.ListByUser(userID, limit, offset)
}

func (u *emailUsecase) GetEmail(userID, id string) (*emaildomain.Email, error) {
	email, err := u.emailRepo.FindByID(userID, id)
	if err != nil {
		return nil, err
	}
	if email == nil {
		return nil, ErrEmailNotFound
	}
	return email, nil
}

// DraftReply asks the AI provider for a polite reply to the given email
func (u *emailUsecase) DraftReply(ctx context.Context, userID, emailID string) (string, error) {
	email, err := u.GetEmail(userID, emailID)
	if err != nil {
		return "", err
	}

	summary := email.Summary
	if summary == "" {
		summary = email.Preview
	}
	return u.analyzer.GenerateDraftReply(ctx, email.Subject, email.Sender, summary)
}

func (u *emailUsecase) ListEvents(userID string) ([]*emaildomain.SchoolEvent, error) {
	return u.eventRepo.ListByUser(userID)
}

func (u *emailUsecase) ListActions(userID string) ([]*emaildomain.ActionItem, error) {
	return u.actionRepo.ListByUser(userID)
}

func (u *emailUsecase) ToggleAction(userID, id string) (*emaildomain.ActionItem, error) {
	action, err := u.actionRepo.FindByID(userID, id)
	if err != nil {
		return nil, err
	}
	if action == nil {
		return nil, ErrActionNotFound
	}

	if err := u.actionRepo.SetCompleted(userID, id, !action.IsCompleted); err != nil {
		return nil, err
	}
	action.IsCompleted = !action.IsCompleted
	return action, nil
}

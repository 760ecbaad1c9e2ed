package usecase

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	childdomain "schoolsync-backend/internal/child/domain"
	childrepo "schoolsync-backend/internal/child/repository"
)

var (
	ErrChildNotFound = errors.New("child not found")
	ErrDuplicateName = errors.New("a child with this name already exists")
)

// A rule is either a full email address or a domain, optionally with a
// leading "@".
var (
	emailRe  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	domainRe = regexp.MustCompile(`^@?[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?)+$`)
)

// childUsecase implements ChildUsecase interface
type childUsecase struct {
	childRepo childrepo.ChildRepository
}

// NewChildUsecase creates a new instance of childUsecase
func NewChildUsecase(childRepo childrepo.ChildRepository) ChildUsecase {
	return &childUsecase{childRepo: childRepo}
}

func (u *childUsecase) CreateChild(userID string, input ChildInput) (*childdomain.Child, error) {
	rules, err := normalizeRules(input.MatchRules)
	if err != nil {
		return nil, err
	}

	if err := u.checkNameUnique(userID, input.Name, ""); err != nil {
		return nil, err
	}

	child := &childdomain.Child{
		ID:         uuid.New().String(),
		UserID:     userID,
		Name:       strings.TrimSpace(input.Name),
		SchoolName: input.SchoolName,
		Color:      input.Color,
		AvatarURL:  input.AvatarURL,
		MatchRules: rules,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := u.childRepo.Create(child); err != nil {
		return nil, err
	}
	return child, nil
}

func (u *childUsecase) GetChild(userID, id string) (*childdomain.Child, error) {
	child, err := u.childRepo.FindByID(userID, id)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, ErrChildNotFound
	}
	return child, nil
}

func (u *childUsecase) ListChildren(userID string) ([]*childdomain.Child, error) {
	return u.childRepo.ListByUser(userID)
}

func (u *childUsecase) UpdateChild(userID, id string, input ChildInput) (*childdomain.Child, error) {
	child, err := u.childRepo.FindByID(userID, id)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, ErrChildNotFound
	}

	rules, err := normalizeRules(input.MatchRules)
	if err != nil {
		return nil, err
	}

	if err := u.checkNameUnique(userID, input.Name, id); err != nil {
		return nil, err
	}

	child.Name = strings.TrimSpace(input.Name)
	child.SchoolName = input.SchoolName
	child.Color = input.Color
	child.AvatarURL = input.AvatarURL
	child.MatchRules = rules
	child.UpdatedAt = time.Now()

	if err := u.childRepo.Update(child); err != nil {
		return nil, err
	}
	return child, nil
}

func (u *childUsecase) DeleteChild(userID, id string) error {
	child, err := u.childRepo.FindByID(userID, id)
	if err != nil {
		return err
	}
	if child == nil {
		return ErrChildNotFound
	}
	return u.childRepo.Delete(userID, id)
}

// checkNameUnique enforces unique names per user: the name doubles as the
// classifier's candidate label, so two children cannot share it.
func (u *childUsecase) checkNameUnique(userID, name, excludeID string) error {
	children, err := u.childRepo.ListByUser(userID)
	if err != nil {
		return err
	}
	trimmed := strings.TrimSpace(name)
	for _, c := range children {
		if c.ID != excludeID && strings.EqualFold(c.Name, trimmed) {
			return ErrDuplicateName
		}
	}
	return nil
}

// normalizeRules trims, lowercases and deduplicates rules, rejecting
// anything that is neither an email address nor a domain.
func normalizeRules(rules []string) ([]string, error) {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		rule := strings.ToLower(strings.TrimSpace(r))
		if rule == "" {
			continue
		}
		if !emailRe.MatchString(rule) && !domainRe.MatchString(rule) {
			return nil, fmt.Errorf("invalid sender rule %q: must be an email address or domain", r)
		}
		if _, ok := seen[rule]; ok {
			continue
		}
		seen[rule] = struct{}{}
		out = append(out, rule)
	}
	return out, nil
}

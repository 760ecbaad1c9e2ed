package usecase

import (
	"errors"
	"testing"

	childdomain "schoolsync-backend/internal/child/domain"
)

type memChildRepo struct {
	children []*childdomain.Child
}

func (m *memChildRepo) Create(child *childdomain.Child) error {
	m.children = append(m.children, child)
	return nil
}

func (m *memChildRepo) FindByID(userID, id string) (*childdomain.Child, error) {
	for _, c := range m.children {
		if c.UserID == userID && c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memChildRepo) ListByUser(userID string) ([]*childdomain.Child, error) {
	var out []*childdomain.Child
	for _, c := range m.children {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memChildRepo) Update(child *childdomain.Child) error { return nil }

func (m *memChildRepo) Delete(userID, id string) error {
	for i, c := range m.children {
		if c.UserID == userID && c.ID == id {
			m.children = append(m.children[:i], m.children[i+1:]...)
			return nil
		}
	}
	return nil
}

func TestCreateChildNormalizesRules(t *testing.T) {
	u := NewChildUsecase(&memChildRepo{})

	child, err := u.CreateChild("u1", ChildInput{
		Name:       " Sam ",
		MatchRules: []string{"Oakwood.EDU", "  office@oakwood.edu ", "oakwood.edu", ""},
	})
	if err != nil {
		t.Fatalf("CreateChild: %v", err)
	}
	if child.Name != "Sam" {
		t.Errorf("name = %q, want trimmed", child.Name)
	}
	want := []string{"oakwood.edu", "office@oakwood.edu"}
	if len(child.MatchRules) != len(want) {
		t.Fatalf("rules = %v, want %v", child.MatchRules, want)
	}
	for i, r := range want {
		if child.MatchRules[i] != r {
			t.Errorf("rule[%d] = %q, want %q", i, child.MatchRules[i], r)
		}
	}
}

func TestCreateChildRejectsBadRules(t *testing.T) {
	u := NewChildUsecase(&memChildRepo{})

	for _, rule := range []string{"not a rule", "foo@", "@", "school dot com"} {
		_, err := u.CreateChild("u1", ChildInput{Name: "Sam", MatchRules: []string{rule}})
		if err == nil {
			t.Errorf("rule %q accepted, want error", rule)
		}
	}

	// "@school.com" form is valid.
	if _, err := u.CreateChild("u1", ChildInput{Name: "Sam", MatchRules: []string{"@school.com"}}); err != nil {
		t.Errorf("@-prefixed domain rejected: %v", err)
	}
}

func TestCreateChildRejectsDuplicateName(t *testing.T) {
	u := NewChildUsecase(&memChildRepo{})

	if _, err := u.CreateChild("u1", ChildInput{Name: "Sam"}); err != nil {
		t.Fatalf("CreateChild: %v", err)
	}
	_, err := u.CreateChild("u1", ChildInput{Name: "sam"})
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("err = %v, want ErrDuplicateName", err)
	}

	// Same name under a different user is fine.
	if _, err := u.CreateChild("u2", ChildInput{Name: "Sam"}); err != nil {
		t.Errorf("cross-user name rejected: %v", err)
	}
}

func TestUpdateChildNotFound(t *testing.T) {
	u := NewChildUsecase(&memChildRepo{})

	_, err := u.UpdateChild("u1", "missing", ChildInput{Name: "Sam"})
	if !errors.Is(err, ErrChildNotFound) {
		t.Errorf("err = %v, want ErrChildNotFound", err)
	}
	if err := u.DeleteChild("u1", "missing"); !errors.Is(err, ErrChildNotFound) {
		t.Errorf("delete err = %v, want ErrChildNotFound", err)
	}
}

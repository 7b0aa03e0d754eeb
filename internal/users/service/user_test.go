package service

import (
	"context"
	"testing"

	userserrors "loyly/internal/users/errors"
	"loyly/internal/users/repository"
	"loyly/pkg/config"
	apperrors "loyly/pkg/errors"
	"loyly/pkg/logger"
	"loyly/pkg/model"
)

// ────────────────────────────────────────────────
// Mocks
// ────────────────────────────────────────────────

type mockUserRepository struct {
	findByIDFunc func(ctx context.Context, id string) (*model.User, error)
	upserted     []*model.User
}

func (m *mockUserRepository) Upsert(ctx context.Context, user *model.User) error {
	m.upserted = append(m.upserted, user)
	return nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, userserrors.ErrNotFound
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, userserrors.ErrNotFound
}

func (m *mockUserRepository) GrantAccess(ctx context.Context, userID, saunaID string) error {
	return nil
}

func (m *mockUserRepository) RevokeSaunaAccess(ctx context.Context, saunaID string) (int64, error) {
	return 0, nil
}

func (m *mockUserRepository) SetRole(ctx context.Context, userID string, role model.Role) error {
	return nil
}

type mockInviteChecker struct {
	pending bool
	err     error
}

func (m *mockInviteChecker) HasPendingInvites(ctx context.Context, email string) (bool, error) {
	return m.pending, m.err
}

// ────────────────────────────────────────────────
// Fixtures
// ────────────────────────────────────────────────

var _ repository.UserRepository = (*mockUserRepository)(nil)

const saunaID = "6650a1b2c3d4e5f6a7b8c9d0"

func newService(repo *mockUserRepository, invites *mockInviteChecker) UserService {
	cfg := &config.Config{Log: logger.Discard()}
	return NewUserService(repo, invites, cfg)
}

func member() *model.User {
	return &model.User{
		ID:       "auth0|member",
		Email:    "member@example.com",
		Role:     model.RoleUser,
		SaunaIDs: []string{saunaID},
	}
}

// ────────────────────────────────────────────────
// CanBook
// ────────────────────────────────────────────────

func TestCanBook_AllowsMemberWithoutPendingInvites(t *testing.T) {
	repo := &mockUserRepository{findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
		return member(), nil
	}}
	svc := newService(repo, &mockInviteChecker{})

	if err := svc.CanBook(context.Background(), "auth0|member", saunaID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCanBook_NonMemberForbidden(t *testing.T) {
	repo := &mockUserRepository{findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
		user := member()
		user.SaunaIDs = nil
		return user, nil
	}}
	svc := newService(repo, &mockInviteChecker{})

	err := svc.CanBook(context.Background(), "auth0|member", saunaID)
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for non-member, got %v", err)
	}
}

func TestCanBook_UnknownUserForbidden(t *testing.T) {
	svc := newService(&mockUserRepository{}, &mockInviteChecker{})

	err := svc.CanBook(context.Background(), "auth0|ghost", saunaID)
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for unknown user, got %v", err)
	}
}

func TestCanBook_PendingInvitesBlock(t *testing.T) {
	repo := &mockUserRepository{findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
		return member(), nil
	}}
	svc := newService(repo, &mockInviteChecker{pending: true})

	err := svc.CanBook(context.Background(), "auth0|member", saunaID)
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN while invites are pending, got %v", err)
	}
}

// ────────────────────────────────────────────────
// EnsureUser
// ────────────────────────────────────────────────

func TestEnsureUser_RequiresSubjectAndEmail(t *testing.T) {
	svc := newService(&mockUserRepository{}, &mockInviteChecker{})

	if err := svc.EnsureUser(context.Background(), "", "member@example.com", "Member"); err == nil {
		t.Error("expected error for empty subject")
	}
	if err := svc.EnsureUser(context.Background(), "auth0|member", "", "Member"); err == nil {
		t.Error("expected error for empty email")
	}
}

func TestEnsureUser_UpsertsClaims(t *testing.T) {
	repo := &mockUserRepository{}
	svc := newService(repo, &mockInviteChecker{})

	if err := svc.EnsureUser(context.Background(), "auth0|member", "member@example.com", "Member"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.upserted) != 1 || repo.upserted[0].Email != "member@example.com" {
		t.Fatalf("expected one upsert with the token claims, got %v", repo.upserted)
	}
}

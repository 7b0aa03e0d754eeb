package service

import (
	"context"
	"errors"

	userserrors "loyly/internal/users/errors"
	"loyly/internal/users/repository"
	"loyly/pkg/config"
	apperrors "loyly/pkg/errors"
	"loyly/pkg/model"
)

// PendingInviteChecker reports whether an email address still holds pending
// invites anywhere. A user with unresolved invites is blocked from booking
// until they accept or the invites lapse.
type PendingInviteChecker interface {
	HasPendingInvites(ctx context.Context, email string) (bool, error)
}

type UserService interface {
	EnsureUser(ctx context.Context, id, email, name string) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	CanBook(ctx context.Context, userID, saunaID string) error
	GrantAccess(ctx context.Context, userID, saunaID string) error
	PromoteToAdmin(ctx context.Context, userID string) error
}

type userService struct {
	repo    repository.UserRepository
	invites PendingInviteChecker
	cfg     *config.Config
}

func NewUserService(repo repository.UserRepository, invites PendingInviteChecker, cfg *config.Config) UserService {
	return &userService{
		repo:    repo,
		invites: invites,
		cfg:     cfg,
	}
}

func (s *userService) EnsureUser(ctx context.Context, id, email, name string) error {
	if id == "" || email == "" {
		return apperrors.InvalidInput("Token subject and email are required")
	}

	user := &model.User{ID: id, Email: email, Name: name}
	if err := s.repo.Upsert(ctx, user); err != nil {
		s.cfg.Log.Error("Failed to provision user", "user_id", id, "error", err)
		return apperrors.Internal("Failed to provision user", err)
	}
	return nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", id)
		}
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	return user, nil
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, apperrors.InvalidInput("Email cannot be empty")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFound("User")
		}
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	return user, nil
}

// CanBook is the gating predicate in front of all booking actions:
// membership plus no unresolved pending invites.
func (s *userService) CanBook(ctx context.Context, userID, saunaID string) error {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return apperrors.Forbidden("You do not have access to this sauna")
		}
		return err
	}

	if !user.HasAccess(saunaID) {
		return apperrors.Forbidden("You do not have access to this sauna")
	}

	pending, err := s.invites.HasPendingInvites(ctx, user.Email)
	if err != nil {
		return apperrors.Internal("Failed to check pending invites", err)
	}
	if pending {
		return apperrors.Forbidden("Resolve your pending invites before booking")
	}

	return nil
}

func (s *userService) GrantAccess(ctx context.Context, userID, saunaID string) error {
	if err := s.repo.GrantAccess(ctx, userID, saunaID); err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("User", userID)
		}
		return apperrors.Internal("Failed to grant sauna access", err)
	}
	s.cfg.Log.Info("Sauna access granted", "user_id", userID, "sauna_id", saunaID)
	return nil
}

// PromoteToAdmin flips the global role flag. Admining one sauna grants the
// admin role everywhere; downstream gates check only the role.
func (s *userService) PromoteToAdmin(ctx context.Context, userID string) error {
	if err := s.repo.SetRole(ctx, userID, model.RoleAdmin); err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("User", userID)
		}
		return apperrors.Internal("Failed to promote user", err)
	}
	return nil
}

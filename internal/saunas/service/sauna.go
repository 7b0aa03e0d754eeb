package service

import (
	"context"
	"errors"
	"time"

	saunaserrors "loyly/internal/saunas/errors"
	"loyly/internal/saunas/repository"
	"loyly/internal/saunas/validator"
	"loyly/pkg/config"
	apperrors "loyly/pkg/errors"
	"loyly/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// UserManager is the saunas-side view of the users service: membership
// lookups, creator promotion on sauna creation.
type UserManager interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GrantAccess(ctx context.Context, userID, saunaID string) error
	PromoteToAdmin(ctx context.Context, userID string) error
}

// BookingCanceller cancels a sauna's future bookings during deletion.
// Implemented by the bookings repository so the write joins the deletion
// transaction.
type BookingCanceller interface {
	CancelFutureBySauna(ctx context.Context, saunaID string, now time.Time) (int64, error)
}

// AccessRevoker strips a deleted sauna's id from every member.
type AccessRevoker interface {
	RevokeSaunaAccess(ctx context.Context, saunaID string) (int64, error)
}

// WaitlistCleaner drops a deleted sauna's waitlist entries.
type WaitlistCleaner interface {
	DeleteBySauna(ctx context.Context, saunaID string) (int64, error)
}

// InviteExpirer expires a deleted sauna's pending invites.
type InviteExpirer interface {
	ExpirePendingBySauna(ctx context.Context, saunaID string) (int64, error)
}

type SaunaService interface {
	Create(ctx context.Context, creatorID string, sauna *model.Sauna) (*model.Sauna, error)
	GetByID(ctx context.Context, id string) (*model.Sauna, error)
	ListForUser(ctx context.Context, userID string) ([]*model.Sauna, error)
	Update(ctx context.Context, userID, saunaID string, update *model.SaunaUpdate) (*model.Sauna, error)
	Delete(ctx context.Context, userID, saunaID string) error
}

type saunaService struct {
	repo      repository.SaunaRepository
	users     UserManager
	bookings  BookingCanceller
	waitlist  WaitlistCleaner
	invites   InviteExpirer
	access    AccessRevoker
	validator *validator.SaunaValidator
	cfg       *config.Config
}

func NewSaunaService(
	repo repository.SaunaRepository,
	users UserManager,
	bookings BookingCanceller,
	waitlist WaitlistCleaner,
	invites InviteExpirer,
	access AccessRevoker,
	saunaValidator *validator.SaunaValidator,
	cfg *config.Config,
) SaunaService {
	return &saunaService{
		repo:      repo,
		users:     users,
		bookings:  bookings,
		waitlist:  waitlist,
		invites:   invites,
		access:    access,
		validator: saunaValidator,
		cfg:       cfg,
	}
}

// Create persists the sauna and promotes its creator: the creator becomes the
// sauna admin, gains membership, and picks up the global admin role.
func (s *saunaService) Create(ctx context.Context, creatorID string, sauna *model.Sauna) (*model.Sauna, error) {
	sauna.AdminID = creatorID
	if err := s.validator.Validate(sauna); err != nil {
		return nil, validationToAppError(err)
	}

	if err := s.repo.Create(ctx, sauna); err != nil {
		return nil, apperrors.Internal("Failed to create sauna", err)
	}

	if err := s.users.GrantAccess(ctx, creatorID, sauna.ID); err != nil {
		s.cfg.Log.Error("Failed to grant creator access",
			"sauna_id", sauna.ID, "user_id", creatorID, "error", err)
	}
	if err := s.users.PromoteToAdmin(ctx, creatorID); err != nil {
		s.cfg.Log.Error("Failed to promote creator",
			"sauna_id", sauna.ID, "user_id", creatorID, "error", err)
	}

	s.cfg.Log.Info("Sauna created", "sauna_id", sauna.ID, "admin_id", creatorID, "name", sauna.Name)
	return sauna, nil
}

func (s *saunaService) GetByID(ctx context.Context, id string) (*model.Sauna, error) {
	sauna, err := s.repo.FindByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, saunaserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Sauna", id)
		case errors.Is(err, saunaserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid sauna ID format")
		default:
			return nil, apperrors.Internal("Failed to retrieve sauna", err)
		}
	}
	return sauna, nil
}

func (s *saunaService) ListForUser(ctx context.Context, userID string) ([]*model.Sauna, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	saunas, err := s.repo.FindByIDs(ctx, user.SaunaIDs)
	if err != nil {
		return nil, apperrors.Internal("Failed to list saunas", err)
	}
	return saunas, nil
}

func (s *saunaService) Update(ctx context.Context, userID, saunaID string, update *model.SaunaUpdate) (*model.Sauna, error) {
	sauna, err := s.GetByID(ctx, saunaID)
	if err != nil {
		return nil, err
	}
	if err := s.requireSaunaAdmin(ctx, userID, sauna); err != nil {
		return nil, err
	}

	if err := s.validator.ValidateUpdate(update); err != nil {
		return nil, validationToAppError(err)
	}

	updated, err := s.repo.Update(ctx, saunaID, update)
	if err != nil {
		if errors.Is(err, saunaserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Sauna", saunaID)
		}
		return nil, apperrors.Internal("Failed to update sauna", err)
	}

	s.cfg.Log.Info("Sauna updated", "sauna_id", saunaID)
	return updated, nil
}

// Delete removes the sauna and all its dependents in one transaction: future
// bookings cancelled, waitlist cleared, pending invites expired, membership
// revoked, document gone. Either all of it commits or none does.
func (s *saunaService) Delete(ctx context.Context, userID, saunaID string) error {
	sauna, err := s.GetByID(ctx, saunaID)
	if err != nil {
		return err
	}
	if err := s.requireSaunaAdmin(ctx, userID, sauna); err != nil {
		return err
	}

	now := time.Now()
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		cancelled, err := s.bookings.CancelFutureBySauna(sessCtx, saunaID, now)
		if err != nil {
			return apperrors.Internal("Failed to cancel sauna bookings", err)
		}
		cleared, err := s.waitlist.DeleteBySauna(sessCtx, saunaID)
		if err != nil {
			return apperrors.Internal("Failed to clear sauna waitlist", err)
		}
		expired, err := s.invites.ExpirePendingBySauna(sessCtx, saunaID)
		if err != nil {
			return apperrors.Internal("Failed to expire sauna invites", err)
		}
		revoked, err := s.access.RevokeSaunaAccess(sessCtx, saunaID)
		if err != nil {
			return apperrors.Internal("Failed to revoke sauna access", err)
		}
		if err := s.repo.Delete(sessCtx, saunaID); err != nil {
			if errors.Is(err, saunaserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Sauna", saunaID)
			}
			return apperrors.Internal("Failed to delete sauna", err)
		}

		s.cfg.Log.Info("Sauna deleted",
			"sauna_id", saunaID,
			"bookings_cancelled", cancelled,
			"waitlist_cleared", cleared,
			"invites_expired", expired,
			"access_revoked", revoked,
		)
		return nil
	})
	return err
}

func (s *saunaService) requireSaunaAdmin(ctx context.Context, userID string, sauna *model.Sauna) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if sauna.AdminID != userID && user.Role != model.RoleAdmin {
		return apperrors.Forbidden("Only the sauna administrator can do this")
	}
	return nil
}

func validationToAppError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make(map[string]any, len(validationErrs))
		for _, ve := range validationErrs {
			details[ve.Field] = ve.Message
		}
		return apperrors.Validation("Sauna validation failed", details)
	}
	return apperrors.Internal("Sauna validation failed", err)
}

package service

import (
	"context"
	"errors"
	"time"

	inviteserrors "loyly/internal/invites/errors"
	"loyly/internal/invites/repository"
	"loyly/internal/invites/validator"
	"loyly/pkg/config"
	apperrors "loyly/pkg/errors"
	"loyly/pkg/mailer"
	"loyly/pkg/model"
)

// SaunaGetter resolves saunas for admin gating and mail content.
type SaunaGetter interface {
	GetByID(ctx context.Context, id string) (*model.Sauna, error)
}

// UserDirectory is the invites-side view of the users service: resolve
// inviter and invitee, and grant membership on acceptance.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GrantAccess(ctx context.Context, userID, saunaID string) error
}

type InviteService interface {
	Create(ctx context.Context, inviterID string, input *validator.CreateInviteInput) (*model.Invite, error)
	Accept(ctx context.Context, userID, inviteID string) (*model.Invite, error)
	Withdraw(ctx context.Context, adminID, inviteID string) error
	ListBySauna(ctx context.Context, callerID, saunaID string, limit int, offset int64) ([]*model.Invite, int64, error)
	ExpireLapsed(ctx context.Context) (int64, error)
}

type inviteService struct {
	repo      repository.InviteRepository
	saunas    SaunaGetter
	users     UserDirectory
	mail      mailer.Mailer
	validator *validator.InviteValidator
	cfg       *config.Config
}

func NewInviteService(
	repo repository.InviteRepository,
	saunas SaunaGetter,
	users UserDirectory,
	mail mailer.Mailer,
	inviteValidator *validator.InviteValidator,
	cfg *config.Config,
) InviteService {
	return &inviteService{
		repo:      repo,
		saunas:    saunas,
		users:     users,
		mail:      mail,
		validator: inviteValidator,
		cfg:       cfg,
	}
}

// Create issues a pending invite. Only the sauna's admin (or a global admin)
// can invite; inviting an existing member or an email with an open invite is
// a conflict.
func (s *inviteService) Create(ctx context.Context, inviterID string, input *validator.CreateInviteInput) (*model.Invite, error) {
	if err := s.validator.ValidateCreate(input); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			details := make(map[string]any, len(validationErrs))
			for _, ve := range validationErrs {
				details[ve.Field] = ve.Message
			}
			return nil, apperrors.Validation("Invite validation failed", details)
		}
		return nil, apperrors.Internal("Invite validation failed", err)
	}

	sauna, err := s.saunas.GetByID(ctx, input.SaunaID)
	if err != nil {
		return nil, err
	}

	inviter, err := s.requireSaunaAdmin(ctx, inviterID, sauna)
	if err != nil {
		return nil, err
	}

	invitee, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil && !apperrors.HasCode(err, apperrors.CodeNotFound) {
		return nil, err
	}
	if invitee != nil && invitee.HasAccess(sauna.ID) {
		return nil, apperrors.Conflict("This user already has access to the sauna")
	}

	now := time.Now()
	invite := &model.Invite{
		SaunaID:   sauna.ID,
		Email:     input.Email,
		InviterID: inviterID,
		Status:    model.InvitePending,
		ExpiresAt: now.Add(model.InviteTTL),
	}
	if err := s.repo.Create(ctx, invite); err != nil {
		if errors.Is(err, inviteserrors.ErrDuplicatePending) {
			return nil, apperrors.Conflict("A pending invite already exists for this email")
		}
		return nil, apperrors.Internal("Failed to create invite", err)
	}

	s.cfg.Log.Info("Invite created",
		"invite_id", invite.ID, "sauna_id", sauna.ID, "email", invite.Email)

	data := map[string]string{
		"sauna_name":   sauna.Name,
		"inviter_name": inviter.Name,
		"expires_at":   invite.ExpiresAt.Format(time.RFC1123),
	}
	if err := s.mail.Send(ctx, invite.Email, mailer.TemplateInviteSent, data); err != nil {
		s.cfg.Log.Error("Failed to send invite mail",
			"invite_id", invite.ID, "recipient", invite.Email, "error", err)
	}

	return invite, nil
}

// Accept resolves a pending invite for the calling user. The call is strict
// about identity: the caller's verified email must match the invite. A lapsed
// invite is flipped to expired on the spot.
func (s *inviteService) Accept(ctx context.Context, userID, inviteID string) (*model.Invite, error) {
	invite, err := s.getInvite(ctx, inviteID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Email != invite.Email {
		return nil, apperrors.Forbidden("This invite was issued to a different email address")
	}

	now := time.Now()
	if invite.Lapsed(now) {
		if err := s.repo.UpdateStatus(ctx, invite.ID, model.InviteExpired); err != nil {
			s.cfg.Log.Error("Failed to expire lapsed invite", "invite_id", invite.ID, "error", err)
		}
		return nil, apperrors.Conflict("This invite has expired")
	}
	if invite.Status != model.InvitePending {
		return nil, apperrors.Conflict("This invite is no longer pending")
	}

	// GrantAccess is an $addToSet, so retried accepts stay idempotent.
	if err := s.users.GrantAccess(ctx, userID, invite.SaunaID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, invite.ID, model.InviteAccepted); err != nil {
		return nil, apperrors.Internal("Failed to mark invite accepted", err)
	}
	invite.Status = model.InviteAccepted

	s.cfg.Log.Info("Invite accepted",
		"invite_id", invite.ID, "sauna_id", invite.SaunaID, "user_id", userID)

	saunaName := invite.SaunaID
	if sauna, err := s.saunas.GetByID(ctx, invite.SaunaID); err == nil {
		saunaName = sauna.Name
	}
	if err := s.mail.Send(ctx, user.Email, mailer.TemplateInviteAccepted,
		map[string]string{"sauna_name": saunaName}); err != nil {
		s.cfg.Log.Error("Failed to send acceptance mail",
			"invite_id", invite.ID, "recipient", user.Email, "error", err)
	}

	return invite, nil
}

// Withdraw retracts a pending invite. Withdrawn invites read as expired, so a
// later accept attempt conflicts.
func (s *inviteService) Withdraw(ctx context.Context, adminID, inviteID string) error {
	invite, err := s.getInvite(ctx, inviteID)
	if err != nil {
		return err
	}

	sauna, err := s.saunas.GetByID(ctx, invite.SaunaID)
	if err != nil {
		return err
	}
	if _, err := s.requireSaunaAdmin(ctx, adminID, sauna); err != nil {
		return err
	}

	if invite.Status != model.InvitePending {
		return apperrors.Conflict("Only pending invites can be withdrawn")
	}

	if err := s.repo.UpdateStatus(ctx, invite.ID, model.InviteExpired); err != nil {
		return apperrors.Internal("Failed to withdraw invite", err)
	}

	s.cfg.Log.Info("Invite withdrawn", "invite_id", invite.ID, "sauna_id", invite.SaunaID)

	if err := s.mail.Send(ctx, invite.Email, mailer.TemplateInviteWithdrawn,
		map[string]string{"sauna_name": sauna.Name}); err != nil {
		s.cfg.Log.Error("Failed to send withdrawal mail",
			"invite_id", invite.ID, "recipient", invite.Email, "error", err)
	}

	return nil
}

func (s *inviteService) ListBySauna(ctx context.Context, callerID, saunaID string, limit int, offset int64) ([]*model.Invite, int64, error) {
	sauna, err := s.saunas.GetByID(ctx, saunaID)
	if err != nil {
		return nil, 0, err
	}
	if _, err := s.requireSaunaAdmin(ctx, callerID, sauna); err != nil {
		return nil, 0, err
	}

	// Lapsed invites read as expired, so sweep before listing.
	if _, err := s.repo.ExpireLapsed(ctx, time.Now()); err != nil {
		s.cfg.Log.Error("Failed to expire lapsed invites on read", "sauna_id", saunaID, "error", err)
	}

	total, err := s.repo.CountBySauna(ctx, saunaID)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count invites", err)
	}
	invites, err := s.repo.FindBySauna(ctx, saunaID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list invites", err)
	}
	return invites, total, nil
}

// ExpireLapsed is the periodic sweep behind the lazy expiry reads.
func (s *inviteService) ExpireLapsed(ctx context.Context) (int64, error) {
	expired, err := s.repo.ExpireLapsed(ctx, time.Now())
	if err != nil {
		return 0, apperrors.Internal("Failed to expire lapsed invites", err)
	}
	if expired > 0 {
		s.cfg.Log.Info("Lapsed invites expired", "count", expired)
	}
	return expired, nil
}

func (s *inviteService) getInvite(ctx context.Context, inviteID string) (*model.Invite, error) {
	invite, err := s.repo.FindByID(ctx, inviteID)
	if err != nil {
		switch {
		case errors.Is(err, inviteserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Invite", inviteID)
		case errors.Is(err, inviteserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid invite ID format")
		default:
			return nil, apperrors.Internal("Failed to retrieve invite", err)
		}
	}
	return invite, nil
}

func (s *inviteService) requireSaunaAdmin(ctx context.Context, userID string, sauna *model.Sauna) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sauna.AdminID != userID && user.Role != model.RoleAdmin {
		return nil, apperrors.Forbidden("Only the sauna administrator can manage invites")
	}
	return user, nil
}

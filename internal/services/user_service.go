package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BradenHooton/tipoca/internal/models"
	pkglogger "github.com/BradenHooton/tipoca/pkg/logger"
)

// UserService is the self-service side of an account: credentials, profile
// and deletion.
type UserService struct {
	accounts    AccountRepository
	profiles    ProfileRepository
	tokens      SessionTokenStore
	hasher      PasswordHasher
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewUserService(
	accounts AccountRepository,
	profiles ProfileRepository,
	tokens SessionTokenStore,
	hasher PasswordHasher,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *UserService {
	return &UserService{
		accounts:    accounts,
		profiles:    profiles,
		tokens:      tokens,
		hasher:      hasher,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// UpdateMe changes the account's email and/or password. A taken email is
// models.ErrEmailInUse.
func (s *UserService) UpdateMe(ctx context.Context, accountID string, u models.AccountUpdate) (*models.Account, error) {
	var email, hash *string

	if u.Email != nil {
		normalized := models.NormalizeEmail(*u.Email)
		taken, err := s.accounts.EmailTaken(ctx, normalized, accountID)
		if err != nil {
			s.logger.Error("failed to check email availability", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		if taken {
			return nil, models.ErrEmailInUse
		}
		email = &normalized
	}

	if u.Password != nil {
		h, err := s.hasher.Hash(*u.Password)
		if err != nil {
			s.logger.Error("failed to hash password", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		hash = &h
	}

	account, err := s.accounts.UpdateCredentials(ctx, accountID, email, hash)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			return nil, models.ErrEmailInUse
		case errors.Is(err, models.ErrNotFound):
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update account", slog.String("user_id", accountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("account updated",
		slog.String("user_id", accountID),
		slog.Bool("email_changed", email != nil),
		slog.Bool("password_changed", hash != nil))
	return account, nil
}

// DeleteMe removes the account and every session it holds.
func (s *UserService) DeleteMe(ctx context.Context, accountID string) error {
	return deleteAccount(ctx, s.accounts, s.tokens, s.logger, s.auditLogger, accountID, accountID)
}

func (s *UserService) GetProfile(ctx context.Context, accountID string) (*models.Profile, error) {
	p, err := s.profiles.FindByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load profile", slog.String("user_id", accountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return p, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, accountID string, u models.ProfileUpdate) (*models.Profile, error) {
	p, err := s.profiles.Update(ctx, accountID, u)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update profile", slog.String("user_id", accountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return p, nil
}

// deleteAccount revokes the sessions first so a Redis store does not keep
// tokens for an account Postgres no longer has.
func deleteAccount(
	ctx context.Context,
	accounts AccountRepository,
	tokens SessionTokenStore,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	actorID, accountID string,
) error {
	if _, err := tokens.DeleteAllFor(ctx, accountID); err != nil {
		logger.Error("failed to revoke sessions", slog.String("user_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := accounts.Delete(ctx, accountID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		logger.Error("failed to delete account", slog.String("user_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	logger.Info("account deleted", slog.String("user_id", accountID), slog.String("actor_id", actorID))
	auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventAccountDeleted,
		AccountID: accountID,
		Success:   true,
		Metadata:  map[string]string{"actor_id": actorID},
	})
	return nil
}

// CreateProfile recreates a profile after DeleteProfile. Unset fields take
// the default values. An existing profile is models.ErrConflict.
func (s *UserService) CreateProfile(ctx context.Context, accountID string, u models.ProfileUpdate) (*models.Profile, error) {
	p := models.DefaultProfile(accountID)
	if u.FirstName != nil {
		p.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		p.LastName = *u.LastName
	}
	if u.SkinTone != nil {
		p.SkinTone = *u.SkinTone
	}

	created, err := s.profiles.Create(ctx, p)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create profile", slog.String("user_id", accountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return created, nil
}

// DeleteProfile removes the profile together with its avatar.
func (s *UserService) DeleteProfile(ctx context.Context, accountID string) error {
	if err := s.profiles.Delete(ctx, accountID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete profile", slog.String("user_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	s.logger.Info("profile deleted", slog.String("user_id", accountID))
	return nil
}

// GetAvatar returns nil when the account has no avatar.
func (s *UserService) GetAvatar(ctx context.Context, accountID string) (*models.Avatar, error) {
	a, err := s.profiles.FindAvatar(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		s.logger.Error("failed to load avatar", slog.String("user_id", accountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return a, nil
}

// SetAvatar stores a. With replace unset it adds the first avatar and fails
// with models.ErrConflict if one exists; with replace set it overwrites the
// current one and fails with models.ErrNotFound if there is none.
func (s *UserService) SetAvatar(ctx context.Context, a *models.Avatar, replace bool) (*models.Avatar, error) {
	if !models.AvatarMimeTypeAllowed(a.MimeType) {
		return nil, models.ErrBadRequest
	}

	var stored *models.Avatar
	var err error
	if replace {
		stored, err = s.profiles.ReplaceAvatar(ctx, a)
	} else {
		stored, err = s.profiles.CreateAvatar(ctx, a)
	}
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			return nil, models.ErrConflict
		case errors.Is(err, models.ErrNotFound):
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to store avatar", slog.String("user_id", a.AccountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("avatar stored",
		slog.String("user_id", a.AccountID),
		slog.String("mime_type", stored.MimeType),
		slog.Int("size", stored.Size),
		slog.Bool("replaced", replace))
	return stored, nil
}

func (s *UserService) DeleteAvatar(ctx context.Context, accountID string) error {
	if err := s.profiles.DeleteAvatar(ctx, accountID); err != nil {
		s.logger.Error("failed to delete avatar", slog.String("user_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

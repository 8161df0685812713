package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BradenHooton/tipoca/internal/auth"
	"github.com/BradenHooton/tipoca/internal/models"
	pkglogger "github.com/BradenHooton/tipoca/pkg/logger"
)

// PasswordResetService issues and redeems single-use password reset tokens.
// The token stored on the account is authoritative: a new request replaces
// it and redeeming clears it.
type PasswordResetService struct {
	accounts    AccountRepository
	hasher      PasswordHasher
	codec       *auth.TokenCodec
	notifier    NotificationPort
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

func NewPasswordResetService(
	accounts AccountRepository,
	hasher PasswordHasher,
	codec *auth.TokenCodec,
	notifier NotificationPort,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *PasswordResetService {
	return &PasswordResetService{
		accounts:    accounts,
		hasher:      hasher,
		codec:       codec,
		notifier:    notifier,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// ForgotPassword issues a reset token for the account with email, replacing
// any outstanding one, and mails it. The token is returned so non-production
// builds can expose it. An unknown email is models.ErrNotFound.
func (s *PasswordResetService) ForgotPassword(ctx context.Context, email string) (string, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrNotFound
		}
		s.logger.Error("failed to find account by email", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	issuedAt := s.now()
	token, err := s.codec.SignReset(account.Email)
	if err != nil {
		s.logger.Error("failed to sign reset token", slog.String("user_id", account.ID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	if err := s.accounts.SetResetToken(ctx, account.ID, token, issuedAt); err != nil {
		s.logger.Error("failed to store reset token", slog.String("user_id", account.ID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	notify(ctx, s.logger, "forgot_password", func(ctx context.Context) error {
		return s.notifier.SendForgotPassword(ctx, account.Email, token)
	})

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventPasswordResetRequested,
		AccountID: account.ID,
		Success:   true,
	})

	return token, nil
}

// ResetPassword redeems token and sets password. Checks run in order: the
// token must decode, belong to an account and equal the stored token, then
// be younger than models.ResetTokenTTL. The first failing check decides the
// result. Success re-enables the account and clears its failure counter.
func (s *PasswordResetService) ResetPassword(ctx context.Context, password, token string) (models.ResetResult, error) {
	claims, err := s.codec.ParseReset(token)
	if err != nil {
		if errors.Is(err, models.ErrInvalidToken) {
			return models.ResetResult{InvalidToken: true}, nil
		}
		s.logger.Error("failed to parse reset token", slog.Any("error", err))
		return models.ResetResult{}, models.ErrInternalServer
	}

	account, err := s.accounts.FindByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ResetResult{InvalidToken: true}, nil
		}
		s.logger.Error("failed to find account by email", slog.Any("error", err))
		return models.ResetResult{}, models.ErrInternalServer
	}

	if account.PasswordResetToken == nil || *account.PasswordResetToken != token {
		s.auditLogger.Log(ctx, pkglogger.AuditEvent{
			EventType: pkglogger.EventPasswordReset,
			AccountID: account.ID,
			Reason:    "token_mismatch",
		})
		return models.ResetResult{InvalidToken: true}, nil
	}

	if s.now().Sub(claims.IssuedAt) >= models.ResetTokenTTL {
		s.auditLogger.Log(ctx, pkglogger.AuditEvent{
			EventType: pkglogger.EventPasswordReset,
			AccountID: account.ID,
			Reason:    "token_expired",
		})
		return models.ResetResult{TokenExpired: true}, nil
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ResetResult{}, models.ErrInternalServer
	}

	redeemed, err := s.accounts.CompleteReset(ctx, account.ID, token, hash)
	if err != nil {
		s.logger.Error("failed to complete password reset", slog.String("user_id", account.ID), slog.Any("error", err))
		return models.ResetResult{}, models.ErrInternalServer
	}
	if !redeemed {
		// A concurrent request redeemed or replaced the token.
		return models.ResetResult{InvalidToken: true}, nil
	}

	s.logger.Info("password reset", slog.String("user_id", account.ID))
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventPasswordReset,
		AccountID: account.ID,
		Success:   true,
	})

	return models.ResetResult{}, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/BradenHooton/tipoca/internal/auth"
	"github.com/BradenHooton/tipoca/internal/models"
	pkglogger "github.com/BradenHooton/tipoca/pkg/logger"
)

// AuthService verifies credentials, applies the lockout policy and issues
// sessions.
type AuthService struct {
	accounts        AccountRepository
	tokens          SessionTokenStore
	tracker         Tracker
	hasher          PasswordHasher
	codec           *auth.TokenCodec
	notifier        NotificationPort
	maxFailedLogins int
	logger          *slog.Logger
	auditLogger     *pkglogger.AuditLogger
}

func NewAuthService(
	accounts AccountRepository,
	tokens SessionTokenStore,
	tracker Tracker,
	hasher PasswordHasher,
	codec *auth.TokenCodec,
	notifier NotificationPort,
	maxFailedLogins int,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		accounts:        accounts,
		tokens:          tokens,
		tracker:         tracker,
		hasher:          hasher,
		codec:           codec,
		notifier:        notifier,
		maxFailedLogins: maxFailedLogins,
		logger:          logger,
		auditLogger:     auditLogger,
	}
}

// Login checks the credentials in in. Bad credentials and locked accounts
// are reported through the result; the error is reserved for infrastructure
// failures and is always models.ErrInternalServer.
func (s *AuthService) Login(ctx context.Context, in models.LoginInput) (*models.LoginResult, error) {
	account, err := s.accounts.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditLogger.Log(ctx, pkglogger.AuditEvent{
				EventType: pkglogger.EventLoginFailed,
				Email:     in.Email,
				IPAddress: in.SourceIP,
				Reason:    "unknown_account",
			})
			return &models.LoginResult{AuthError: true}, nil
		}
		s.logger.Error("failed to find account by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Locked accounts are rejected before the password is looked at, so the
	// counter does not move and the password cannot be guessed.
	if account.IsLocked() {
		return s.lockedLogin(ctx, account.ID, in.SourceIP), nil
	}

	if !s.hasher.Verify(in.Password, account.PasswordHash) {
		return s.failLogin(ctx, account, in.SourceIP)
	}

	accountID := account.ID
	account, err = s.accounts.ResetFailedLogins(ctx, accountID)
	if errors.Is(err, models.ErrAccountLocked) {
		// Locked by a concurrent failure after the account was read.
		return s.lockedLogin(ctx, accountID, in.SourceIP), nil
	}
	if err != nil {
		s.logger.Error("failed to reset failed login counter", slog.String("user_id", accountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	ip, device, err := s.track(ctx, account.ID, in)
	if err != nil {
		s.logger.Error("failed to record login origin", slog.String("user_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	s.notifyNewOrigin(ctx, account.Email, device, ip)

	token, err := s.issueSession(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("user_id", account.ID))
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLoginSuccess,
		AccountID: account.ID,
		IPAddress: in.SourceIP,
		Success:   true,
	})

	return &models.LoginResult{User: account.Public(), Token: token}, nil
}

func (s *AuthService) lockedLogin(ctx context.Context, accountID, sourceIP string) *models.LoginResult {
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLoginLocked,
		AccountID: accountID,
		IPAddress: sourceIP,
		Reason:    "account_locked",
	})
	return &models.LoginResult{AuthError: true, Locked: true}
}

func (s *AuthService) failLogin(ctx context.Context, account *models.Account, sourceIP string) (*models.LoginResult, error) {
	attempts, status, err := s.accounts.RecordFailedLogin(ctx, account.ID, s.maxFailedLogins)
	if errors.Is(err, models.ErrAccountLocked) {
		return s.lockedLogin(ctx, account.ID, sourceIP), nil
	}
	if err != nil {
		s.logger.Error("failed to record failed login", slog.String("user_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLoginFailed,
		AccountID: account.ID,
		IPAddress: sourceIP,
		Reason:    "invalid_credentials",
		Metadata:  map[string]string{"attempts": fmt.Sprint(attempts)},
	})

	locked := status == models.StatusLocked
	// Only the request that crossed the threshold sends the notice.
	if locked && attempts == s.maxFailedLogins {
		s.logger.Warn("account locked after failed logins", slog.String("user_id", account.ID), slog.Int("attempts", attempts))
		s.auditLogger.Log(ctx, pkglogger.AuditEvent{
			EventType: pkglogger.EventAccountLocked,
			AccountID: account.ID,
			IPAddress: sourceIP,
			Success:   true,
			Reason:    "max_failed_logins",
		})
		s.notify(ctx, "locked", func(ctx context.Context) error {
			return s.notifier.SendLocked(ctx, account.Email)
		})
	}

	return &models.LoginResult{AuthError: true, Locked: locked}, nil
}

// Signup creates an account with its default profile and the User role,
// records where it signed up from and opens its first session.
func (s *AuthService) Signup(ctx context.Context, in models.LoginInput) (*models.SignupResult, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	account, err := s.accounts.Create(ctx, &models.Account{
		Email:        in.Email,
		PasswordHash: hash,
		Status:       models.StatusEnabled,
	}, models.RoleUser)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrDuplicateEmail
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if _, _, err := s.track(ctx, account.ID, in); err != nil {
		s.logger.Error("failed to record signup origin", slog.String("user_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.notify(ctx, "welcome", func(ctx context.Context) error {
		return s.notifier.SendWelcome(ctx, account.Email)
	})

	token, err := s.issueSession(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account created", slog.String("user_id", account.ID))
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventSignup,
		AccountID: account.ID,
		IPAddress: in.SourceIP,
		Success:   true,
	})

	return &models.SignupResult{User: account.Public(), Token: token}, nil
}

// Logout revokes one session token.
func (s *AuthService) Logout(ctx context.Context, accountID, token string) error {
	if err := s.tokens.DeleteOne(ctx, token); err != nil {
		s.logger.Error("failed to delete session token", slog.String("user_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLogout,
		AccountID: accountID,
		Success:   true,
	})
	return nil
}

// LogoutAll revokes every session of the account.
func (s *AuthService) LogoutAll(ctx context.Context, accountID string) error {
	n, err := s.tokens.DeleteAllFor(ctx, accountID)
	if err != nil {
		s.logger.Error("failed to delete session tokens", slog.String("user_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLogoutAll,
		AccountID: accountID,
		Success:   true,
		Metadata:  map[string]string{"sessions": fmt.Sprint(n)},
	})
	return nil
}

func (s *AuthService) issueSession(ctx context.Context, accountID string) (string, error) {
	token, err := s.codec.SignSession(accountID)
	if err != nil {
		s.logger.Error("failed to sign session token", slog.String("user_id", accountID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}
	if err := s.tokens.Save(ctx, token, accountID); err != nil {
		s.logger.Error("failed to store session token", slog.String("user_id", accountID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}
	return token, nil
}

// track records the IP and device concurrently and waits for both.
func (s *AuthService) track(ctx context.Context, accountID string, in models.LoginInput) (*models.IPRecord, *models.DeviceRecord, error) {
	var ip *models.IPRecord
	var device *models.DeviceRecord

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ip, err = s.tracker.RecordIP(gctx, in.SourceIP, accountID)
		return err
	})
	g.Go(func() error {
		var err error
		device, err = s.tracker.RecordDevice(gctx, in.Device, accountID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return ip, device, nil
}

// notifyNewOrigin sends at most one of the three new-login emails.
func (s *AuthService) notifyNewOrigin(ctx context.Context, to string, device *models.DeviceRecord, ip *models.IPRecord) {
	switch {
	case ip != nil && device != nil:
		s.notify(ctx, "new_ip_and_device", func(ctx context.Context) error {
			return s.notifier.SendNewIPAndDevice(ctx, to, device, ip)
		})
	case device != nil:
		s.notify(ctx, "new_device", func(ctx context.Context) error {
			return s.notifier.SendNewDevice(ctx, to, device)
		})
	case ip != nil:
		s.notify(ctx, "new_ip", func(ctx context.Context) error {
			return s.notifier.SendNewIP(ctx, to, ip)
		})
	}
}

func (s *AuthService) notify(ctx context.Context, kind string, send func(context.Context) error) {
	notify(ctx, s.logger, kind, send)
}

// notify runs a best-effort notification. Failures are logged and never
// reach the caller.
func notify(ctx context.Context, logger *slog.Logger, kind string, send func(context.Context) error) {
	if err := send(context.WithoutCancel(ctx)); err != nil {
		logger.Error("failed to send notification", slog.String("kind", kind), slog.Any("error", err))
	}
}

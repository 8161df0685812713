package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BradenHooton/tipoca/internal/models"
	pkglogger "github.com/BradenHooton/tipoca/pkg/logger"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AccountDetail is an account as administrators see it.
type AccountDetail struct {
	*models.PublicAccount
	Roles    []string `json:"roles"`
	Sessions int64    `json:"sessions"`
}

// AccountStats is the summary behind GET /admin/stats.
type AccountStats struct {
	Total   int64 `json:"total"`
	Enabled int64 `json:"enabled"`
	Locked  int64 `json:"locked"`
}

// AdminService is account management for holders of the *_USERS permissions.
type AdminService struct {
	accounts    AccountRepository
	roles       RoleRepository
	tokens      SessionTokenStore
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewAdminService(
	accounts AccountRepository,
	roles RoleRepository,
	tokens SessionTokenStore,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AdminService {
	return &AdminService{
		accounts:    accounts,
		roles:       roles,
		tokens:      tokens,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// ClampPage bounds limit to (0, MaxPageSize] and offset to >= 0.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *AdminService) ListAccounts(ctx context.Context, limit, offset int) ([]*models.PublicAccount, error) {
	limit, offset = ClampPage(limit, offset)

	accounts, err := s.accounts.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list accounts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	out := make([]*models.PublicAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Public())
	}
	return out, nil
}

func (s *AdminService) GetAccount(ctx context.Context, id string) (*AccountDetail, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load account", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	roles, err := s.roles.RolesFor(ctx, id)
	if err != nil {
		s.logger.Error("failed to load roles", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	sessions, err := s.tokens.CountFor(ctx, id)
	if err != nil {
		s.logger.Error("failed to count sessions", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return &AccountDetail{PublicAccount: account.Public(), Roles: names, Sessions: sessions}, nil
}

// SetStatus locks or unlocks an account. Enabling clears the failure counter.
func (s *AdminService) SetStatus(ctx context.Context, actorID, id string, status models.AccountStatus) (*models.Account, error) {
	if !status.Valid() {
		return nil, models.ErrInvalidStatus
	}

	account, err := s.accounts.SetStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to set account status", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("account status changed",
		slog.String("user_id", id),
		slog.String("actor_id", actorID),
		slog.String("status", string(status)))
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventAccountStatusChanged,
		AccountID: id,
		Success:   true,
		Metadata:  map[string]string{"actor_id": actorID, "status": string(status)},
	})
	return account, nil
}

func (s *AdminService) DeleteAccount(ctx context.Context, actorID, id string) error {
	return deleteAccount(ctx, s.accounts, s.tokens, s.logger, s.auditLogger, actorID, id)
}

func (s *AdminService) Stats(ctx context.Context) (*AccountStats, error) {
	counts, err := s.accounts.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("failed to count accounts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	stats := &AccountStats{
		Enabled: counts[models.StatusEnabled],
		Locked:  counts[models.StatusLocked],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

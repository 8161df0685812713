package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BradenHooton/tipoca/internal/models"
	pkghttp "github.com/BradenHooton/tipoca/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// SessionContextKey is the key for storing the authenticated session in context
	SessionContextKey contextKey = "session"
)

// SessionStore resolves a stored session token to its owner.
// A token that is not stored yields models.ErrNotFound.
type SessionStore interface {
	Find(ctx context.Context, token string) (string, error)
}

// AccountFinder loads the account behind a session.
type AccountFinder interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
}

// PermissionChecker answers whether an account holds a permission via any of its roles.
type PermissionChecker interface {
	HasPermission(ctx context.Context, accountID string, permission models.Permission) (bool, error)
}

// Session is what RequireSession places in the request context.
type Session struct {
	Token   string
	Account *models.Account
}

// RequireSession authenticates the bearer token. A request passes only when
// the signature verifies AND the exact token is stored for the same account;
// a deleted token is rejected even though its signature is still good.
func RequireSession(codec *TokenCodec, store SessionStore, accounts AccountFinder, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				pkghttp.WriteInvalidToken(w)
				return
			}

			accountID, err := codec.ParseSession(token)
			if err != nil {
				if errors.Is(err, models.ErrNoSigningSecret) {
					logger.Error("session check without signing secret")
					pkghttp.WriteInternalError(w)
					return
				}
				pkghttp.WriteInvalidToken(w)
				return
			}

			ownerID, err := store.Find(r.Context(), token)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteInvalidToken(w)
					return
				}
				logger.Error("failed to look up session token", slog.Any("error", err))
				pkghttp.WriteInternalError(w)
				return
			}
			if ownerID != accountID {
				pkghttp.WriteInvalidToken(w)
				return
			}

			account, err := accounts.FindByID(r.Context(), accountID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteInvalidToken(w)
					return
				}
				logger.Error("failed to load session account", slog.String("user_id", accountID), slog.Any("error", err))
				pkghttp.WriteInternalError(w)
				return
			}

			ctx := WithSession(r.Context(), &Session{Token: token, Account: account})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission must run after RequireSession.
func RequirePermission(checker PermissionChecker, permission models.Permission, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := GetSession(r.Context())
			if session == nil {
				pkghttp.WriteInvalidToken(w)
				return
			}

			allowed, err := checker.HasPermission(r.Context(), session.Account.ID, permission)
			if err != nil {
				logger.Error("failed to check permission",
					slog.String("user_id", session.Account.ID),
					slog.String("permission", string(permission)),
					slog.Any("error", err))
				pkghttp.WriteInternalError(w)
				return
			}
			if !allowed {
				pkghttp.WritePermissionError(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, SessionContextKey, s)
}

// GetSession returns the authenticated session, or nil outside RequireSession.
func GetSession(ctx context.Context) *Session {
	s, _ := ctx.Value(SessionContextKey).(*Session)
	return s
}

package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types.
const (
	EventLoginSuccess           = "login_success"
	EventLoginFailed            = "login_failed"
	EventLoginLocked            = "login_locked"
	EventAccountLocked          = "account_locked"
	EventSignup                 = "signup"
	EventLogout                 = "logout"
	EventLogoutAll              = "logout_all"
	EventPasswordResetRequested = "password_reset_requested"
	EventPasswordReset          = "password_reset"
	EventAccountDeleted         = "account_deleted"
	EventAccountStatusChanged   = "account_status_changed"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType string
	AccountID string
	Email     string
	IPAddress string
	Success   bool
	Reason    string
	Metadata  map[string]string
}

// AuditLogger writes security events as structured records with audit=true,
// so they can be routed separately from request logs.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// Log records event. Failures are logged at warn level.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) {
	attrs := []slog.Attr{
		slog.Bool("audit", true),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.AccountID != "" {
		attrs = append(attrs, slog.String("user_id", event.AccountID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.Reason != "" {
		attrs = append(attrs, slog.String("reason", event.Reason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

package services

import (
	"context"
	"time"

	"github.com/BradenHooton/tipoca/internal/models"
)

// AccountRepository is the account persistence the services depend on.
type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	List(ctx context.Context, limit, offset int) ([]*models.Account, error)
	CountByStatus(ctx context.Context) (map[models.AccountStatus]int64, error)
	Create(ctx context.Context, account *models.Account, roles ...string) (*models.Account, error)
	UpdateCredentials(ctx context.Context, id string, email, passwordHash *string) (*models.Account, error)
	RecordFailedLogin(ctx context.Context, id string, maxFailures int) (int, models.AccountStatus, error)
	ResetFailedLogins(ctx context.Context, id string) (*models.Account, error)
	SetStatus(ctx context.Context, id string, status models.AccountStatus) (*models.Account, error)
	SetResetToken(ctx context.Context, id, token string, issuedAt time.Time) error
	CompleteReset(ctx context.Context, id, token, passwordHash string) (bool, error)
	Delete(ctx context.Context, id string) error
	EmailTaken(ctx context.Context, email, exceptID string) (bool, error)
}

// SessionTokenStore holds active session tokens. Postgres and Redis
// implementations exist.
type SessionTokenStore interface {
	Save(ctx context.Context, token, ownerID string) error
	Find(ctx context.Context, token string) (string, error)
	DeleteOne(ctx context.Context, token string) error
	DeleteAllFor(ctx context.Context, ownerID string) (int64, error)
	CountFor(ctx context.Context, ownerID string) (int64, error)
}

type TrackingRepository interface {
	InsertDeviceIfNew(ctx context.Context, accountID string, device models.DeviceInfo) (*models.DeviceRecord, error)
	InsertIPIfNew(ctx context.Context, accountID, ip string, loc models.IPLocation) (*models.IPRecord, error)
}

type ProfileRepository interface {
	FindByAccountID(ctx context.Context, accountID string) (*models.Profile, error)
	Create(ctx context.Context, p *models.Profile) (*models.Profile, error)
	Update(ctx context.Context, accountID string, u models.ProfileUpdate) (*models.Profile, error)
	Delete(ctx context.Context, accountID string) error
	FindAvatar(ctx context.Context, accountID string) (*models.Avatar, error)
	CreateAvatar(ctx context.Context, a *models.Avatar) (*models.Avatar, error)
	ReplaceAvatar(ctx context.Context, a *models.Avatar) (*models.Avatar, error)
	DeleteAvatar(ctx context.Context, accountID string) error
}

type PostRepository interface {
	List(ctx context.Context) ([]*models.Post, error)
	FindByID(ctx context.Context, id string) (*models.Post, error)
	Create(ctx context.Context, authorID, content string) (*models.Post, error)
	AddVersion(ctx context.Context, postID, content string) (*models.Post, error)
	Delete(ctx context.Context, id string) error
}

type RoleRepository interface {
	RolesFor(ctx context.Context, accountID string) ([]models.Role, error)
}

// GeoLookup resolves an IP address to a location.
type GeoLookup interface {
	Resolve(ctx context.Context, ip string) (*models.IPLocation, error)
}

// NotificationPort sends account emails. Calls should not block on delivery.
type NotificationPort interface {
	SendWelcome(ctx context.Context, to string) error
	SendLocked(ctx context.Context, to string) error
	SendNewIP(ctx context.Context, to string, ip *models.IPRecord) error
	SendNewDevice(ctx context.Context, to string, device *models.DeviceRecord) error
	SendNewIPAndDevice(ctx context.Context, to string, device *models.DeviceRecord, ip *models.IPRecord) error
	SendForgotPassword(ctx context.Context, to, token string) error
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// Tracker records where an account signs in from. A nil record means the
// value was already on file.
type Tracker interface {
	RecordIP(ctx context.Context, ip, accountID string) (*models.IPRecord, error)
	RecordDevice(ctx context.Context, device models.DeviceInfo, accountID string) (*models.DeviceRecord, error)
}

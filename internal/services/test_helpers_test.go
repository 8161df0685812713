package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BradenHooton/tipoca/internal/auth"
	"github.com/BradenHooton/tipoca/internal/models"
	pkgauth "github.com/BradenHooton/tipoca/pkg/auth"
	pkglogger "github.com/BradenHooton/tipoca/pkg/logger"
)

const testSecret = "test-secret-32-characters-long!!"

var (
	testLogger      = slog.New(slog.NewTextHandler(io.Discard, nil))
	testAuditLogger = pkglogger.NewAuditLogger(testLogger)
	testHasher      = pkgauth.NewHasher(4)
)

// memoryAccounts is an in-memory AccountRepository with the same semantics
// as the Postgres one. Func fields override individual methods.
type memoryAccounts struct {
	mu       sync.Mutex
	byID     map[string]*models.Account
	FindFunc func(ctx context.Context, email string) (*models.Account, error)
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{byID: make(map[string]*models.Account)}
}

func (m *memoryAccounts) add(email, password string) *models.Account {
	hash, err := testHasher.Hash(password)
	if err != nil {
		panic(err)
	}
	a, _ := m.Create(context.Background(), &models.Account{Email: email, PasswordHash: hash})
	return a
}

func (m *memoryAccounts) get(id string) *models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := *m.byID[id]
	return &a
}

func (m *memoryAccounts) FindByID(_ context.Context, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memoryAccounts) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, email)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	email = models.NormalizeEmail(email)
	for _, a := range m.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memoryAccounts) List(_ context.Context, limit, offset int) ([]*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Account, 0)
	for _, a := range m.byID {
		cp := *a
		out = append(out, &cp)
	}
	if offset >= len(out) {
		return []*models.Account{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryAccounts) CountByStatus(_ context.Context) (map[models.AccountStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[models.AccountStatus]int64{models.StatusEnabled: 0, models.StatusLocked: 0}
	for _, a := range m.byID {
		counts[a.Status]++
	}
	return counts, nil
}

func (m *memoryAccounts) Create(_ context.Context, account *models.Account, _ ...string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := models.NormalizeEmail(account.Email)
	for _, a := range m.byID {
		if a.Email == email {
			return nil, models.ErrConflict
		}
	}
	now := time.Now()
	a := &models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: account.PasswordHash,
		Status:       models.StatusEnabled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.byID[a.ID] = a
	cp := *a
	return &cp, nil
}

func (m *memoryAccounts) UpdateCredentials(_ context.Context, id string, email, passwordHash *string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if email != nil {
		a.Email = *email
	}
	if passwordHash != nil {
		a.PasswordHash = *passwordHash
	}
	cp := *a
	return &cp, nil
}

func (m *memoryAccounts) RecordFailedLogin(_ context.Context, id string, maxFailures int) (int, models.AccountStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return 0, "", models.ErrNotFound
	}
	if a.Status == models.StatusLocked {
		return 0, "", models.ErrAccountLocked
	}
	a.FailedLoginAttempts++
	if a.FailedLoginAttempts >= maxFailures {
		a.Status = models.StatusLocked
	}
	return a.FailedLoginAttempts, a.Status, nil
}

func (m *memoryAccounts) ResetFailedLogins(_ context.Context, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if a.Status == models.StatusLocked {
		return nil, models.ErrAccountLocked
	}
	a.FailedLoginAttempts = 0
	cp := *a
	return &cp, nil
}

func (m *memoryAccounts) SetStatus(_ context.Context, id string, status models.AccountStatus) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	a.Status = status
	if status == models.StatusEnabled {
		a.FailedLoginAttempts = 0
	}
	cp := *a
	return &cp, nil
}

func (m *memoryAccounts) SetResetToken(_ context.Context, id, token string, issuedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return models.ErrNotFound
	}
	a.PasswordResetToken = &token
	a.PasswordResetIssuedAt = &issuedAt
	return nil
}

func (m *memoryAccounts) CompleteReset(_ context.Context, id, token, passwordHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok || a.PasswordResetToken == nil || *a.PasswordResetToken != token {
		return false, nil
	}
	a.PasswordHash = passwordHash
	a.Status = models.StatusEnabled
	a.FailedLoginAttempts = 0
	a.PasswordResetToken = nil
	a.PasswordResetIssuedAt = nil
	return true, nil
}

func (m *memoryAccounts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memoryAccounts) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	a, err := m.FindByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return a.ID != exceptID, nil
}

// memoryTokens is an in-memory SessionTokenStore.
type memoryTokens struct {
	mu      sync.Mutex
	owners  map[string]string
	SaveErr error
}

func newMemoryTokens() *memoryTokens {
	return &memoryTokens{owners: make(map[string]string)}
}

func (m *memoryTokens) Save(_ context.Context, token, ownerID string) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[token] = ownerID
	return nil
}

func (m *memoryTokens) Find(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[token]
	if !ok {
		return "", models.ErrNotFound
	}
	return owner, nil
}

func (m *memoryTokens) DeleteOne(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.owners, token)
	return nil
}

func (m *memoryTokens) DeleteAllFor(_ context.Context, ownerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for t, o := range m.owners {
		if o == ownerID {
			delete(m.owners, t)
			n++
		}
	}
	return n, nil
}

func (m *memoryTokens) CountFor(_ context.Context, ownerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.owners {
		if o == ownerID {
			n++
		}
	}
	return n, nil
}

// PruneDangling has nothing to do: the map cannot hold a token without its owner.
func (m *memoryTokens) PruneDangling(context.Context) (int64, error) {
	return 0, nil
}

// MockTracker implements Tracker for testing.
type MockTracker struct {
	RecordIPFunc     func(ctx context.Context, ip, accountID string) (*models.IPRecord, error)
	RecordDeviceFunc func(ctx context.Context, device models.DeviceInfo, accountID string) (*models.DeviceRecord, error)
}

func (m *MockTracker) RecordIP(ctx context.Context, ip, accountID string) (*models.IPRecord, error) {
	if m.RecordIPFunc != nil {
		return m.RecordIPFunc(ctx, ip, accountID)
	}
	return nil, nil
}

func (m *MockTracker) RecordDevice(ctx context.Context, device models.DeviceInfo, accountID string) (*models.DeviceRecord, error) {
	if m.RecordDeviceFunc != nil {
		return m.RecordDeviceFunc(ctx, device, accountID)
	}
	return nil, nil
}

// MockTrackingRepository implements TrackingRepository for testing.
type MockTrackingRepository struct {
	InsertDeviceIfNewFunc func(ctx context.Context, accountID string, device models.DeviceInfo) (*models.DeviceRecord, error)
	InsertIPIfNewFunc     func(ctx context.Context, accountID, ip string, loc models.IPLocation) (*models.IPRecord, error)
}

func (m *MockTrackingRepository) InsertDeviceIfNew(ctx context.Context, accountID string, device models.DeviceInfo) (*models.DeviceRecord, error) {
	if m.InsertDeviceIfNewFunc != nil {
		return m.InsertDeviceIfNewFunc(ctx, accountID, device)
	}
	return nil, nil
}

func (m *MockTrackingRepository) InsertIPIfNew(ctx context.Context, accountID, ip string, loc models.IPLocation) (*models.IPRecord, error) {
	if m.InsertIPIfNewFunc != nil {
		return m.InsertIPIfNewFunc(ctx, accountID, ip, loc)
	}
	return nil, nil
}

// MockGeoLookup implements GeoLookup for testing.
type MockGeoLookup struct {
	ResolveFunc func(ctx context.Context, ip string) (*models.IPLocation, error)
}

func (m *MockGeoLookup) Resolve(ctx context.Context, ip string) (*models.IPLocation, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, ip)
	}
	return &models.IPLocation{Country: "Testland"}, nil
}

// MockProfileRepository implements ProfileRepository for testing.
type MockProfileRepository struct {
	FindByAccountIDFunc func(ctx context.Context, accountID string) (*models.Profile, error)
	CreateFunc          func(ctx context.Context, p *models.Profile) (*models.Profile, error)
	UpdateFunc          func(ctx context.Context, accountID string, u models.ProfileUpdate) (*models.Profile, error)
	DeleteFunc          func(ctx context.Context, accountID string) error
	FindAvatarFunc      func(ctx context.Context, accountID string) (*models.Avatar, error)
	CreateAvatarFunc    func(ctx context.Context, a *models.Avatar) (*models.Avatar, error)
	ReplaceAvatarFunc   func(ctx context.Context, a *models.Avatar) (*models.Avatar, error)
	DeleteAvatarFunc    func(ctx context.Context, accountID string) error
}

func (m *MockProfileRepository) FindByAccountID(ctx context.Context, accountID string) (*models.Profile, error) {
	if m.FindByAccountIDFunc != nil {
		return m.FindByAccountIDFunc(ctx, accountID)
	}
	return models.DefaultProfile(accountID), nil
}

func (m *MockProfileRepository) Create(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	return p, nil
}

func (m *MockProfileRepository) Update(ctx context.Context, accountID string, u models.ProfileUpdate) (*models.Profile, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, accountID, u)
	}
	return nil, models.ErrNotFound
}

func (m *MockProfileRepository) Delete(ctx context.Context, accountID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, accountID)
	}
	return nil
}

func (m *MockProfileRepository) FindAvatar(ctx context.Context, accountID string) (*models.Avatar, error) {
	if m.FindAvatarFunc != nil {
		return m.FindAvatarFunc(ctx, accountID)
	}
	return nil, models.ErrNotFound
}

func (m *MockProfileRepository) CreateAvatar(ctx context.Context, a *models.Avatar) (*models.Avatar, error) {
	if m.CreateAvatarFunc != nil {
		return m.CreateAvatarFunc(ctx, a)
	}
	return a, nil
}

func (m *MockProfileRepository) ReplaceAvatar(ctx context.Context, a *models.Avatar) (*models.Avatar, error) {
	if m.ReplaceAvatarFunc != nil {
		return m.ReplaceAvatarFunc(ctx, a)
	}
	return nil, models.ErrNotFound
}

func (m *MockProfileRepository) DeleteAvatar(ctx context.Context, accountID string) error {
	if m.DeleteAvatarFunc != nil {
		return m.DeleteAvatarFunc(ctx, accountID)
	}
	return nil
}

// memoryPosts is an in-memory PostRepository.
type memoryPosts struct {
	mu    sync.Mutex
	posts map[string]*models.Post
	order []string
}

func newMemoryPosts() *memoryPosts {
	return &memoryPosts{posts: make(map[string]*models.Post)}
}

func clonePost(p *models.Post) *models.Post {
	cp := *p
	cp.Versions = append([]models.PostVersion(nil), p.Versions...)
	return &cp
}

func (m *memoryPosts) List(_ context.Context) ([]*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Post, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		if p, ok := m.posts[m.order[i]]; ok {
			out = append(out, clonePost(p))
		}
	}
	return out, nil
}

func (m *memoryPosts) FindByID(_ context.Context, id string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return clonePost(p), nil
}

func (m *memoryPosts) Create(_ context.Context, authorID, content string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	p := &models.Post{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Status:    models.PostPublished,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.Versions = []models.PostVersion{{ID: uuid.NewString(), PostID: p.ID, Version: 1, Content: content, CreatedAt: now}}
	m.posts[p.ID] = p
	m.order = append(m.order, p.ID)
	return clonePost(p), nil
}

func (m *memoryPosts) AddVersion(_ context.Context, postID, content string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return nil, models.ErrNotFound
	}
	v := models.PostVersion{
		ID:        uuid.NewString(),
		PostID:    postID,
		Version:   p.Versions[0].Version + 1,
		Content:   content,
		CreatedAt: time.Now(),
	}
	p.Versions = append([]models.PostVersion{v}, p.Versions...)
	p.UpdatedAt = v.CreatedAt
	return clonePost(p), nil
}

func (m *memoryPosts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

// MockRoleRepository implements RoleRepository for testing.
type MockRoleRepository struct {
	RolesForFunc func(ctx context.Context, accountID string) ([]models.Role, error)
}

func (m *MockRoleRepository) RolesFor(ctx context.Context, accountID string) ([]models.Role, error) {
	if m.RolesForFunc != nil {
		return m.RolesForFunc(ctx, accountID)
	}
	return []models.Role{{Name: models.RoleUser}}, nil
}

// recordingNotifier records which notifications were sent.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	reset []string
	Err   error
}

func (n *recordingNotifier) record(kind string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, kind)
	return n.Err
}

func (n *recordingNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

func (n *recordingNotifier) SendWelcome(context.Context, string) error { return n.record("welcome") }
func (n *recordingNotifier) SendLocked(context.Context, string) error  { return n.record("locked") }
func (n *recordingNotifier) SendNewIP(context.Context, string, *models.IPRecord) error {
	return n.record("new_ip")
}
func (n *recordingNotifier) SendNewDevice(context.Context, string, *models.DeviceRecord) error {
	return n.record("new_device")
}
func (n *recordingNotifier) SendNewIPAndDevice(context.Context, string, *models.DeviceRecord, *models.IPRecord) error {
	return n.record("new_ip_and_device")
}
func (n *recordingNotifier) SendForgotPassword(_ context.Context, _ string, token string) error {
	n.mu.Lock()
	n.reset = append(n.reset, token)
	n.mu.Unlock()
	return n.record("forgot_password")
}

func newTestCodec() *auth.TokenCodec {
	return auth.NewTokenCodec(testSecret)
}

var testDevice = models.DeviceInfo{
	Model: "Pixel 8", Platform: "android", OperatingSystem: "Android", OSVersion: "14", Manufacturer: "Google",
}

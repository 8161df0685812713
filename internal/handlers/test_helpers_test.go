package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/tipoca/internal/auth"
	"github.com/BradenHooton/tipoca/internal/models"
	"github.com/BradenHooton/tipoca/internal/services"
	pkghttp "github.com/BradenHooton/tipoca/pkg/http"
)

// newTestRequest creates an HTTP request with a JSON body.
func newTestRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withSession attaches an authenticated session as RequireSession would.
func withSession(req *http.Request, account *models.Account, token string) *http.Request {
	ctx := auth.WithSession(req.Context(), &auth.Session{Token: token, Account: account})
	return req.WithContext(ctx)
}

// withURLParam sets a chi route parameter on the request.
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func assertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target any) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	if target != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), target), "Failed to decode response JSON")
	}
}

// assertErrors decodes the error envelope and returns its details.
func assertErrors(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int) []pkghttp.ErrorDetail {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Failed to decode error response")
	require.NotEmpty(t, resp.Errors)
	return resp.Errors
}

func testAccount(id, email string) *models.Account {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &models.Account{
		ID:           id,
		Email:        email,
		PasswordHash: "$2a$04$hash",
		Status:       models.StatusEnabled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func testDevice() models.DeviceInfo {
	return models.DeviceInfo{
		Name:            "Pixel",
		Model:           "Pixel 8",
		Platform:        "android",
		OperatingSystem: "Android",
		OSVersion:       "15",
		Manufacturer:    "Google",
	}
}

const strongPassword = "Sup3r$ecret"

// mockAuthService implements handlers.AuthServiceInterface
type mockAuthService struct {
	LoginFunc     func(ctx context.Context, in models.LoginInput) (*models.LoginResult, error)
	SignupFunc    func(ctx context.Context, in models.LoginInput) (*models.SignupResult, error)
	LogoutFunc    func(ctx context.Context, accountID, token string) error
	LogoutAllFunc func(ctx context.Context, accountID string) error
}

func (m *mockAuthService) Login(ctx context.Context, in models.LoginInput) (*models.LoginResult, error) {
	if m.LoginFunc == nil {
		return &models.LoginResult{AuthError: true}, nil
	}
	return m.LoginFunc(ctx, in)
}

func (m *mockAuthService) Signup(ctx context.Context, in models.LoginInput) (*models.SignupResult, error) {
	if m.SignupFunc == nil {
		return nil, models.ErrDuplicateEmail
	}
	return m.SignupFunc(ctx, in)
}

func (m *mockAuthService) Logout(ctx context.Context, accountID, token string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, accountID, token)
}

func (m *mockAuthService) LogoutAll(ctx context.Context, accountID string) error {
	if m.LogoutAllFunc == nil {
		return nil
	}
	return m.LogoutAllFunc(ctx, accountID)
}

// mockResetService implements handlers.PasswordResetServiceInterface
type mockResetService struct {
	ForgotPasswordFunc func(ctx context.Context, email string) (string, error)
	ResetPasswordFunc  func(ctx context.Context, password, token string) (models.ResetResult, error)
}

func (m *mockResetService) ForgotPassword(ctx context.Context, email string) (string, error) {
	if m.ForgotPasswordFunc == nil {
		return "", models.ErrNotFound
	}
	return m.ForgotPasswordFunc(ctx, email)
}

func (m *mockResetService) ResetPassword(ctx context.Context, password, token string) (models.ResetResult, error) {
	if m.ResetPasswordFunc == nil {
		return models.ResetResult{InvalidToken: true}, nil
	}
	return m.ResetPasswordFunc(ctx, password, token)
}

// mockUserService implements handlers.UserServiceInterface
type mockUserService struct {
	UpdateMeFunc      func(ctx context.Context, accountID string, u models.AccountUpdate) (*models.Account, error)
	DeleteMeFunc      func(ctx context.Context, accountID string) error
	GetProfileFunc    func(ctx context.Context, accountID string) (*models.Profile, error)
	UpdateProfileFunc func(ctx context.Context, accountID string, u models.ProfileUpdate) (*models.Profile, error)
	CreateProfileFunc func(ctx context.Context, accountID string, u models.ProfileUpdate) (*models.Profile, error)
	DeleteProfileFunc func(ctx context.Context, accountID string) error
	GetAvatarFunc     func(ctx context.Context, accountID string) (*models.Avatar, error)
	SetAvatarFunc     func(ctx context.Context, a *models.Avatar, replace bool) (*models.Avatar, error)
	DeleteAvatarFunc  func(ctx context.Context, accountID string) error
}

func (m *mockUserService) UpdateMe(ctx context.Context, accountID string, u models.AccountUpdate) (*models.Account, error) {
	if m.UpdateMeFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateMeFunc(ctx, accountID, u)
}

func (m *mockUserService) DeleteMe(ctx context.Context, accountID string) error {
	if m.DeleteMeFunc == nil {
		return nil
	}
	return m.DeleteMeFunc(ctx, accountID)
}

func (m *mockUserService) GetProfile(ctx context.Context, accountID string) (*models.Profile, error) {
	if m.GetProfileFunc == nil {
		return models.DefaultProfile(accountID), nil
	}
	return m.GetProfileFunc(ctx, accountID)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, accountID string, u models.ProfileUpdate) (*models.Profile, error) {
	if m.UpdateProfileFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateProfileFunc(ctx, accountID, u)
}

func (m *mockUserService) CreateProfile(ctx context.Context, accountID string, u models.ProfileUpdate) (*models.Profile, error) {
	if m.CreateProfileFunc == nil {
		return nil, models.ErrConflict
	}
	return m.CreateProfileFunc(ctx, accountID, u)
}

func (m *mockUserService) DeleteProfile(ctx context.Context, accountID string) error {
	if m.DeleteProfileFunc == nil {
		return nil
	}
	return m.DeleteProfileFunc(ctx, accountID)
}

func (m *mockUserService) GetAvatar(ctx context.Context, accountID string) (*models.Avatar, error) {
	if m.GetAvatarFunc == nil {
		return nil, nil
	}
	return m.GetAvatarFunc(ctx, accountID)
}

func (m *mockUserService) SetAvatar(ctx context.Context, a *models.Avatar, replace bool) (*models.Avatar, error) {
	if m.SetAvatarFunc == nil {
		return a, nil
	}
	return m.SetAvatarFunc(ctx, a, replace)
}

func (m *mockUserService) DeleteAvatar(ctx context.Context, accountID string) error {
	if m.DeleteAvatarFunc == nil {
		return nil
	}
	return m.DeleteAvatarFunc(ctx, accountID)
}

// mockPostService implements handlers.PostServiceInterface
type mockPostService struct {
	ListFunc   func(ctx context.Context) ([]*models.Post, error)
	GetFunc    func(ctx context.Context, id string) (*models.Post, error)
	CreateFunc func(ctx context.Context, authorID, content string) (*models.Post, error)
	UpdateFunc func(ctx context.Context, actorID, postID, content string) (*models.Post, error)
	DeleteFunc func(ctx context.Context, actorID, postID string) error
}

func (m *mockPostService) List(ctx context.Context) ([]*models.Post, error) {
	if m.ListFunc == nil {
		return []*models.Post{}, nil
	}
	return m.ListFunc(ctx)
}

func (m *mockPostService) Get(ctx context.Context, id string) (*models.Post, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id)
}

func (m *mockPostService) Create(ctx context.Context, authorID, content string) (*models.Post, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateFunc(ctx, authorID, content)
}

func (m *mockPostService) Update(ctx context.Context, actorID, postID, content string) (*models.Post, error) {
	if m.UpdateFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateFunc(ctx, actorID, postID, content)
}

func (m *mockPostService) Delete(ctx context.Context, actorID, postID string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, actorID, postID)
}

// mockAdminService implements handlers.AdminServiceInterface
type mockAdminService struct {
	ListAccountsFunc  func(ctx context.Context, limit, offset int) ([]*models.PublicAccount, error)
	GetAccountFunc    func(ctx context.Context, id string) (*services.AccountDetail, error)
	SetStatusFunc     func(ctx context.Context, actorID, id string, status models.AccountStatus) (*models.Account, error)
	DeleteAccountFunc func(ctx context.Context, actorID, id string) error
	StatsFunc         func(ctx context.Context) (*services.AccountStats, error)
}

func (m *mockAdminService) ListAccounts(ctx context.Context, limit, offset int) ([]*models.PublicAccount, error) {
	if m.ListAccountsFunc == nil {
		return []*models.PublicAccount{}, nil
	}
	return m.ListAccountsFunc(ctx, limit, offset)
}

func (m *mockAdminService) GetAccount(ctx context.Context, id string) (*services.AccountDetail, error) {
	if m.GetAccountFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetAccountFunc(ctx, id)
}

func (m *mockAdminService) SetStatus(ctx context.Context, actorID, id string, status models.AccountStatus) (*models.Account, error) {
	if m.SetStatusFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.SetStatusFunc(ctx, actorID, id, status)
}

func (m *mockAdminService) DeleteAccount(ctx context.Context, actorID, id string) error {
	if m.DeleteAccountFunc == nil {
		return nil
	}
	return m.DeleteAccountFunc(ctx, actorID, id)
}

func (m *mockAdminService) Stats(ctx context.Context) (*services.AccountStats, error) {
	if m.StatsFunc == nil {
		return &services.AccountStats{}, nil
	}
	return m.StatsFunc(ctx)
}

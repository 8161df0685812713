package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/tipoca/internal/auth"
	"github.com/BradenHooton/tipoca/internal/handlers"
	"github.com/BradenHooton/tipoca/internal/middleware"
	"github.com/BradenHooton/tipoca/internal/models"
	pkghttp "github.com/BradenHooton/tipoca/pkg/http"
)

// Dependencies is everything the route table needs.
type Dependencies struct {
	Auth   *handlers.AuthHandler
	Users  *handlers.UserHandler
	Admin  *handlers.AdminHandler
	Posts  *handlers.PostHandler
	Health *handlers.HealthHandler

	Codec       *auth.TokenCodec
	Sessions    auth.SessionStore
	Accounts    auth.AccountFinder
	Permissions auth.PermissionChecker

	IPConfig               *pkghttp.IPConfig
	AuthRateLimitPerMinute int
	APIRateLimit           int
	APIRateLimitWindow     time.Duration
	Logger                 *slog.Logger
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, deps Dependencies) {
	router.Get("/health", deps.Health.Health)

	requireSession := auth.RequireSession(deps.Codec, deps.Sessions, deps.Accounts, deps.Logger)
	requirePermission := func(p models.Permission) func(http.Handler) http.Handler {
		return auth.RequirePermission(deps.Permissions, p, deps.Logger)
	}

	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(deps.APIRateLimit, deps.APIRateLimitWindow, deps.IPConfig))

		// Public credential endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthRateLimit(deps.AuthRateLimitPerMinute, deps.IPConfig))
			r.Post("/user/signup", deps.Auth.Signup)
			r.Post("/user/login", deps.Auth.Login)
			r.Post("/user/forgotpassword", deps.Auth.ForgotPassword)
			r.Post("/user/resetpassword", deps.Auth.ResetPassword)
		})

		// Any authenticated account
		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Post("/user/logout", deps.Auth.Logout)
			r.Post("/user/logoutAll", deps.Auth.LogoutAll)
			r.Get("/user/me", deps.Users.Me)
			r.Patch("/user/me", deps.Users.UpdateMe)
			r.Delete("/user/me", deps.Users.DeleteMe)
			r.Get("/user/profile", deps.Users.GetProfile)
			r.Post("/user/profile", deps.Users.CreateProfile)
			r.Patch("/user/profile", deps.Users.UpdateProfile)
			r.Delete("/user/profile", deps.Users.DeleteProfile)

			// The User role holds no UPDATE_FILES, so replacing an avatar
			// needs the same grant as uploading one.
			r.With(requirePermission(models.PermReadFiles)).Get("/user/profile/avatar", deps.Users.GetAvatar)
			r.With(requirePermission(models.PermCreateFiles)).Post("/user/profile/avatar", deps.Users.UploadAvatar)
			r.With(requirePermission(models.PermCreateFiles)).Patch("/user/profile/avatar", deps.Users.ReplaceAvatar)
			r.With(requirePermission(models.PermDeleteFiles)).Delete("/user/profile/avatar", deps.Users.DeleteAvatar)

			r.Route("/posts", func(r chi.Router) {
				r.With(requirePermission(models.PermReadPosts)).Get("/", deps.Posts.List)
				r.With(requirePermission(models.PermCreatePosts)).Post("/", deps.Posts.Create)
				r.With(requirePermission(models.PermReadPosts)).Get("/{postId}", deps.Posts.Get)
				r.With(requirePermission(models.PermUpdatePosts)).Patch("/{postId}", deps.Posts.Update)
				r.With(requirePermission(models.PermDeletePosts)).Delete("/{postId}", deps.Posts.Delete)
			})

			r.Route("/admin", func(r chi.Router) {
				r.With(requirePermission(models.PermReadUsers)).Get("/stats", deps.Admin.Stats)
				r.With(requirePermission(models.PermReadUsers)).Get("/users", deps.Admin.ListAccounts)
				r.With(requirePermission(models.PermReadUsers)).Get("/users/{id}", deps.Admin.GetAccount)
				r.With(requirePermission(models.PermUpdateUsers)).Patch("/users/{id}/status", deps.Admin.SetStatus)
				r.With(requirePermission(models.PermDeleteUsers)).Delete("/users/{id}", deps.Admin.DeleteAccount)
			})
		})
	})
}

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/n-admin/n-admin/internal/platform/httpx"
	"github.com/n-admin/n-admin/internal/shared"
)

// PermissionLister resolves the permission codes granted to a user.
type PermissionLister interface {
	RolePermissionCodes(ctx context.Context, userID int64) ([]string, error)
}

// LoginRecorder counts login outcomes. Optional.
type LoginRecorder interface {
	RecordLogin(outcome string)
}

type Handler struct {
	service  *Service
	perms    PermissionLister
	csrf     *shared.CSRFManager
	logger   *slog.Logger
	validate *validator.Validate

	// Metrics, when set, receives login outcomes.
	Metrics LoginRecorder
}

func NewHandler(service *Service, perms PermissionLister, csrf *shared.CSRFManager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:  service,
		perms:    perms,
		csrf:     csrf,
		logger:   logger,
		validate: validator.New(),
	}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.Get("/session", h.session)
	r.Get("/permissions", h.permissions)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type principalResponse struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Superuser   bool       `json:"isSuperAdmin"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

func toPrincipalResponse(u *User) principalResponse {
	return principalResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Superuser:   u.Superuser,
		Status:      u.Status,
		LastLoginAt: u.LastLoginAt,
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Error", "email and password are required")
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if h.Metrics != nil {
			h.Metrics.RecordLogin("failure")
		}
		httpx.RespondError(w, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordLogin("success")
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "request has no session")
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))

	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID); err != nil {
		h.logger.Error("register session failed", "user_id", user.ID, "error", err)
		httpx.RespondError(w, err)
		return
	}

	resp := map[string]any{"user": toPrincipalResponse(user)}
	if h.csrf != nil {
		token, err := h.csrf.EnsureToken(r.Context(), sess)
		if err == nil {
			resp["csrfToken"] = token
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session row failed", "error", err)
		}
		sess.SetUser("")
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// session returns the authenticated principal, or 401 when the cookie
// carries no user.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": toPrincipalResponse(user)})
}

// permissions returns the role-derived permission codes for the current
// user. Superusers are flagged via the principal; the code list stays
// role-derived so clients resolve the override themselves.
func (h *Handler) permissions(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	codes, err := h.perms.RolePermissionCodes(r.Context(), user.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if codes == nil {
		codes = []string{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": codes})
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*User, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no active session")
		return nil, false
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no active session")
		return nil, false
	}
	user, err := h.service.UserByID(r.Context(), id)
	if err != nil {
		// A session pointing at a deleted account is invalid, not a 404.
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no active session")
			return nil, false
		}
		httpx.RespondError(w, err)
		return nil, false
	}
	return user, true
}

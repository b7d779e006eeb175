package permissions

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/n-admin/n-admin/internal/platform/httpx"
	"github.com/n-admin/n-admin/internal/rbac"
	"github.com/n-admin/n-admin/internal/shared"
)

// Handler manages permission listing and registration.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New(), rbac: mw}
}

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPermissionRead))
		r.Get("/", h.listPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPermissionCreate))
		r.Post("/", h.createPermission)
		r.Delete("/{id}", h.deletePermission)
	})
}

type permissionResponse struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Label     string    `json:"label"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type createPermissionRequest struct {
	Code     string `json:"code" validate:"required,min=3,max=64"`
	Label    string `json:"label" validate:"required,max=128"`
	Category string `json:"category" validate:"max=64"`
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	perms, err := h.service.ListPermissions(r.Context(), ListFilter{
		Keyword:  q.Get("keyword"),
		Code:     q.Get("code"),
		Category: q.Get("category"),
	})
	if err != nil {
		h.logger.Error("list permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]permissionResponse, 0, len(perms))
	for _, perm := range perms {
		out = append(out, permissionResponse{
			ID:        perm.ID,
			Code:      perm.Code,
			Label:     perm.Label,
			Category:  perm.Category,
			CreatedAt: perm.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": out})
}

func (h *Handler) createPermission(w http.ResponseWriter, r *http.Request) {
	var req createPermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	perm, err := h.service.CreatePermission(r.Context(), req.Code, req.Label, req.Category)
	if err != nil {
		h.logger.Error("create permission", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, permissionResponse{
		ID:        perm.ID,
		Code:      perm.Code,
		Label:     perm.Label,
		Category:  perm.Category,
		CreatedAt: perm.CreatedAt,
	})
}

func (h *Handler) deletePermission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive integer")
		return
	}
	if err := h.service.DeletePermission(r.Context(), id); err != nil {
		h.logger.Warn("delete permission", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "permission deleted"})
}

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/registry"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// AuthHandler handles login, registration, and logout for the visitor's
// session.
type AuthHandler struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(reg *registry.Registry, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		registry: reg,
		logger:   logger,
	}
}

// --- Request DTOs ---

// LoginRequest is the JSON request body for logging in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the JSON request body for creating an account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,min=1,max=200"`
}

// SessionView is the session state rendered to the storefront client.
type SessionView struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	FullName      string `json:"full_name,omitempty"`
}

// --- Handlers ---

// Login handles POST /api/v1/auth/login. A successful login flips the cart
// to the server-side source; the anonymous cart snapshot stays persisted but
// leaves view.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	v, err := h.visitor(w, r)
	if err != nil {
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := v.Session.Login(r.Context(), req.Email, req.Password); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, h.view(v))
}

// Register handles POST /api/v1/auth/register. Registration does not log the
// user in; the client follows up with a login call.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	v, err := h.visitor(w, r)
	if err != nil {
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, err := v.Session.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, SessionView{
		Authenticated: false,
		Email:         user.Email,
		FullName:      user.FullName,
	})
}

// Logout handles POST /api/v1/auth/logout. Always succeeds; logging out an
// anonymous session is a no-op.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	v, err := h.visitor(w, r)
	if err != nil {
		return
	}

	v.Session.Logout(r.Context())

	httputil.WriteData(w, http.StatusOK, h.view(v))
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	v, err := h.visitor(w, r)
	if err != nil {
		return
	}

	httputil.WriteData(w, http.StatusOK, h.view(v))
}

// --- Helpers ---

func (h *AuthHandler) visitor(w http.ResponseWriter, r *http.Request) (*registry.Visitor, error) {
	v, err := h.registry.GetOrCreate(r.Context(), VisitorID(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return nil, err
	}
	return v, nil
}

func (h *AuthHandler) view(v *registry.Visitor) SessionView {
	view := SessionView{Authenticated: v.Session.Authenticated()}
	if user := v.Session.User(); user != nil {
		view.Email = user.Email
		view.FullName = user.FullName
	}
	return view
}

package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/atelier-api/internal/api/shared"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/service/auth"
	"github.com/phrazzld/atelier-api/internal/store"
)

// AccountProvisioner creates a user together with their starting quota.
type AccountProvisioner interface {
	Provision(ctx context.Context, user *domain.User, quota *domain.UserQuota) error
}

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	userStore        store.UserStore
	provisioner      AccountProvisioner
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	limits           map[domain.QuotaTier]domain.TierLimits
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
// The tier limits are used to provision a starting quota at registration.
func NewAuthHandler(
	userStore store.UserStore,
	provisioner AccountProvisioner,
	jwtService auth.JWTService,
	passwordVerifier auth.PasswordVerifier,
	limits map[domain.QuotaTier]domain.TierLimits,
) *AuthHandler {
	return &AuthHandler{
		userStore:        userStore,
		provisioner:      provisioner,
		jwtService:       jwtService,
		passwordVerifier: passwordVerifier,
		limits:           limits,
	}
}

// Register handles POST /auth/register. New accounts start on the free tier
// with that tier's full credit allowance.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to create user")
		return
	}

	user, err := domain.NewUser(req.Email, hashed, domain.QuotaTierFree)
	if err != nil {
		HandleAPIError(w, r, err, "Invalid user data")
		return
	}

	quota, err := domain.NewUserQuota(user.ID, user.Tier, h.limits[user.Tier].MonthlyCredits)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to provision quota")
		return
	}

	if err := h.provisioner.Provision(r.Context(), user, quota); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			shared.RespondWithError(w, r, http.StatusConflict, "Email already exists")
			return
		}
		HandleAPIError(w, r, err, "Failed to create user")
		return
	}

	token, err := h.jwtService.GenerateToken(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to generate token", "error", err, "user_id", user.ID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, AuthResponse{
		UserID: user.ID,
		Token:  token,
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	user, err := h.userStore.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// Same response as a wrong password, account existence is
			// not disclosed.
			HandleAPIError(w, r, auth.ErrInvalidCredentials, "")
			return
		}
		HandleAPIError(w, r, err, "Failed to log in")
		return
	}

	if err := h.passwordVerifier.Compare(user.HashedPassword, req.Password); err != nil {
		HandleAPIError(w, r, auth.ErrInvalidCredentials, "")
		return
	}

	token, err := h.jwtService.GenerateToken(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to generate token", "error", err, "user_id", user.ID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		UserID: user.ID,
		Token:  token,
	})
}

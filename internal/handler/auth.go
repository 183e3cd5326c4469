package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/config"
	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/model"
	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/repository"
	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg     config.Config
	Doctors *repository.DoctorRepo
	Tokens  *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, d *repository.DoctorRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Doctors: d, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	FullName       string `json:"full_name"`
	Specialization string `json:"specialization"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}
type updateProfileReq struct {
	FullName       *string `json:"full_name"`
	Specialization *string `json:"specialization"`
	SignatureURL   *string `json:"signature_url"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	Doctor  model.PublicDoctor `json:"doctor"`
	Access  tokenPart          `json:"access"`
	Refresh tokenPart          `json:"refresh"`
}

// issueTokens mints an access/refresh pair for a doctor and stores the
// refresh hash.  Shared by Register, Login and Refresh.
func (h *AuthHandler) issueTokens(ctx context.Context, doctorID uint64) (tokenPart, tokenPart, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, doctorID, h.Cfg.AccessTTLMin)
	if err != nil {
		return tokenPart{}, tokenPart{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return tokenPart{}, tokenPart{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, doctorID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return tokenPart{}, tokenPart{}, err
	}
	return tokenPart{Token: access.Token, Expires: access.Exp},
		tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, nil // raw back to client
}

// Register: create doctor and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Email == "" || req.Password == "" || req.FullName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password/full_name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Doctors.Create(ctx, req.Email, req.Password, req.FullName, req.Specialization, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrEmailExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create doctor failed"})
	}

	d, err := h.Doctors.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load doctor failed"})
	}
	access, refresh, err := h.issueTokens(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}

	return c.JSON(http.StatusCreated, authResp{Doctor: d.Public(), Access: access, Refresh: refresh})
}

// Login: verify credentials and return a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Doctors.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(d.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, refresh, err := h.issueTokens(ctx, d.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, authResp{Doctor: d.Public(), Access: access, Refresh: refresh})
}

// Refresh: validate by hash, revoke old, issue new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	doctorID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	_ = h.Tokens.RevokeByHash(ctx, hash)

	d, err := h.Doctors.GetByID(ctx, doctorID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load doctor failed"})
	}
	access, refresh, err := h.issueTokens(ctx, doctorID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, authResp{Doctor: d.Public(), Access: access, Refresh: refresh})
}

// Logout: revoke the refresh token named in the body.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ChangePassword: protected; the doctor id comes from the access token,
// never from the body, so one doctor cannot rotate another's password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	doctorID, err := getDoctorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "old_password/new_password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Doctors.GetByID(ctx, doctorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "doctor not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(d.PasswordHash, req.OldPassword) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "wrong old password"})
	}
	newHash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash failed"})
	}
	if err := h.Doctors.UpdatePassword(ctx, doctorID, newHash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	// Changing the password ends all other sessions.
	_ = h.Tokens.RevokeAllForDoctor(ctx, doctorID)
	return c.JSON(http.StatusOK, echo.Map{"message": "password changed"})
}

// Me returns the authenticated doctor's public profile.
func (h *AuthHandler) Me(c echo.Context) error {
	doctorID, err := getDoctorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Doctors.GetByID(ctx, doctorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "doctor not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"doctor": d.Public()})
}

// UpdateMe applies a partial profile update (name, specialization,
// signature image URL) to the authenticated doctor.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	doctorID, err := getDoctorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Doctors.UpdateProfile(ctx, doctorID, req.FullName, req.Specialization, req.SignatureURL)
	switch err {
	case nil:
	case repository.ErrNoFields:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
	case repository.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "doctor not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	d, err := h.Doctors.GetByID(ctx, doctorID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load doctor failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"doctor": d.Public()})
}

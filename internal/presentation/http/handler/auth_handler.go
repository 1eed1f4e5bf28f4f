package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/invoicely-api/internal/application/service"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
	"github.com/sangkips/invoicely-api/internal/observability/logger"
	"github.com/sangkips/invoicely-api/internal/presentation/http/dto/request"
	"github.com/sangkips/invoicely-api/internal/presentation/http/dto/response"
	"github.com/sangkips/invoicely-api/pkg/oauth"
	"go.uber.org/zap"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 600
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService   *service.AuthService
	googleOAuth   *oauth.GoogleOAuthService
	secureCookies bool
}

// NewAuthHandler creates a new auth handler. googleOAuth may be nil.
func NewAuthHandler(authService *service.AuthService, googleOAuth *oauth.GoogleOAuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		googleOAuth:   googleOAuth,
		secureCookies: secureCookies,
	}
}

func userPayload(user *entity.User) gin.H {
	return gin.H{
		"id":          user.ID,
		"first_name":  user.FirstName,
		"last_name":   user.LastName,
		"email":       user.Email,
		"photo":       user.Photo,
		"provider":    user.Provider,
		"roles":       user.Roles,
		"permissions": user.GetPermissions(),
	}
}

func sessionPayload(output *service.LoginOutput) gin.H {
	return gin.H{
		"user":          userPayload(output.User),
		"tenants":       output.Tenants,
		"access_token":  output.AccessToken,
		"refresh_token": output.RefreshToken,
		"token_type":    "Bearer",
	}
}

// Login handles user login
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body request.LoginRequest true "Login credentials"
// @Success 200 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req request.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	output, err := h.authService.Login(c.Request.Context(), &service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Login successful", sessionPayload(output))
}

// Register creates an account together with its first tenant
// @Summary Register
// @Tags auth
// @Accept json
// @Produce json
// @Param request body request.RegisterRequest true "Registration data"
// @Success 201 {object} response.APIResponse
// @Failure 409 {object} response.APIResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req request.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	output, err := h.authService.Register(c.Request.Context(), &service.RegisterInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Registration successful", sessionPayload(output))
}

// RefreshToken handles token refresh
// @Summary Refresh Token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body request.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req request.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	output, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Token refreshed successfully", gin.H{
		"access_token":  output.AccessToken,
		"refresh_token": output.RefreshToken,
		"token_type":    "Bearer",
	})
}

// Logout handles user logout
// @Summary Logout
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} response.APIResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	// Tokens are stateless; the client discards them.
	response.OK(c, "Logged out successfully", nil)
}

// GetProfile handles fetching current user profile
// @Summary Get Profile
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	user, err := h.authService.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	payload := userPayload(user)
	payload["email_verified_at"] = user.EmailVerifiedAt
	payload["created_at"] = user.CreatedAt
	payload["updated_at"] = user.UpdatedAt
	response.OK(c, "Profile retrieved successfully", gin.H{
		"user": payload,
	})
}

// UpdateProfile handles updating user profile
// @Summary Update Profile
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req request.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), &service.UpdateProfileInput{
		UserID:    userID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Photo:     req.Photo,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Profile updated successfully", gin.H{
		"user": userPayload(user),
	})
}

// ChangePassword handles password change
// @Summary Change Password
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body request.ChangePasswordRequest true "Password change data"
// @Success 200 {object} response.APIResponse
// @Failure 422 {object} response.APIResponse
// @Router /profile/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req request.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	err := h.authService.ChangePassword(c.Request.Context(), &service.ChangePasswordInput{
		UserID:          userID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Password changed successfully", nil)
}

// GoogleAuth redirects to the Google consent screen
// @Summary Google Login
// @Tags auth
// @Success 302
// @Router /auth/google [get]
func (h *AuthHandler) GoogleAuth(c *gin.Context) {
	if h.googleOAuth == nil || !h.googleOAuth.IsConfigured() {
		response.ErrorWithCode(c, http.StatusServiceUnavailable, oauth.ErrOAuthNotConfigured.Error())
		return
	}

	state, err := oauth.NewState()
	if err != nil {
		response.ErrorWithCode(c, http.StatusInternalServerError, "Failed to start Google login")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, oauthStateMaxAge, "/", "", h.secureCookies, true)
	c.Redirect(http.StatusTemporaryRedirect, h.googleOAuth.GetAuthURL(state))
}

// GoogleCallback completes the Google login and hands the tokens to the
// frontend in the URL fragment.
// @Summary Google Callback
// @Tags auth
// @Success 302
// @Router /auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if h.googleOAuth == nil || !h.googleOAuth.IsConfigured() {
		response.ErrorWithCode(c, http.StatusServiceUnavailable, oauth.ErrOAuthNotConfigured.Error())
		return
	}

	stored, _ := c.Cookie(oauthStateCookie)
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.secureCookies, true)

	state := c.Query("state")
	if state == "" || stored == "" || subtle.ConstantTimeCompare([]byte(state), []byte(stored)) != 1 {
		h.oauthFailure(c, "invalid_state", oauth.ErrInvalidState)
		return
	}
	if denied := c.Query("error"); denied != "" {
		h.oauthFailure(c, denied, nil)
		return
	}

	info, err := h.googleOAuth.Authenticate(c.Request.Context(), c.Query("code"))
	if err != nil {
		reason := "google_error"
		switch {
		case errors.Is(err, oauth.ErrInvalidCode):
			reason = "invalid_code"
		case errors.Is(err, oauth.ErrEmailNotVerified):
			reason = "email_not_verified"
		}
		h.oauthFailure(c, reason, err)
		return
	}

	output, err := h.authService.GoogleLogin(c.Request.Context(), info)
	if err != nil {
		h.oauthFailure(c, "login_failed", err)
		return
	}

	fragment := url.Values{}
	fragment.Set("access_token", output.AccessToken)
	fragment.Set("refresh_token", output.RefreshToken)
	fragment.Set("token_type", "Bearer")
	c.Redirect(http.StatusFound, h.googleOAuth.GetFrontendSuccessURL()+"#"+fragment.Encode())
}

func (h *AuthHandler) oauthFailure(c *gin.Context, reason string, err error) {
	if err != nil {
		logger.FromContext(c.Request.Context()).Warn("google login failed",
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
	target := h.googleOAuth.GetFrontendErrorURL()
	q := url.Values{}
	q.Set("error", reason)
	c.Redirect(http.StatusFound, target+"?"+q.Encode())
}

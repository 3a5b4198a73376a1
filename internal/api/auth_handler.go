package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"thebes/thebes-server/internal/domain"
	"thebes/thebes-server/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the authentication service dependency.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// --- Request/Response Structs ---

type RegisterRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
}

// ProfileResponse excludes sensitive info like the password hash.
type ProfileResponse struct {
	ID                  string            `json:"id"`
	UID                 string            `json:"uid"`
	DisplayName         string            `json:"displayName"`
	Email               string            `json:"email,omitempty"`
	ProfilePic          *string           `json:"profilePic,omitempty"`
	SelectedAvatar      *string           `json:"selectedAvatar,omitempty"`
	UseGradientAvatar   *bool             `json:"useGradientAvatar,omitempty"`
	Tagline             *string           `json:"tagline,omitempty"`
	PreferredWeightUnit domain.WeightUnit `json:"preferredWeightUnit"`
	TrackedExercise     *string           `json:"trackedExercise,omitempty"`
	Followers           []string          `json:"followers"`
	Following           []string          `json:"following"`
	CreatedAt           time.Time         `json:"createdAt"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string          `json:"token"`
	User  ProfileResponse `json:"user"`
}

type ResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

type DeleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}

// --- Handler Methods ---

// Register godoc
// @Summary Register a new user
// @Description Creates a new account and its profile document.
// @Tags Auth
// @Accept json
// @Produce json
// @Param user body RegisterRequest true "Registration details"
// @Success 201 {object} ProfileResponse "User created successfully"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 409 {object} gin.H "Conflict (email already exists)"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	profile, err := h.authService.Register(c.Request.Context(), req.DisplayName, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserAlreadyExists) {
			abortWithError(c, http.StatusConflict, err.Error())
		} else if errors.Is(err, service.ErrHashingFailed) {
			abortWithError(c, http.StatusInternalServerError, "Could not process registration")
		} else {
			abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred during registration")
		}
		return
	}

	c.JSON(http.StatusCreated, MapProfileToResponse(profile))
}

// Login godoc
// @Summary Log in a user
// @Description Authenticates a user and returns a JWT token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse "Login successful"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 401 {object} gin.H "Unauthorized (invalid credentials)"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	token, profile, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrAuthenticationFailed) {
			abortWithError(c, http.StatusUnauthorized, err.Error())
		} else if errors.Is(err, service.ErrTokenGeneration) {
			abortWithError(c, http.StatusInternalServerError, "Could not process login")
		} else {
			abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred during login")
		}
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token: token,
		User:  MapProfileToResponse(profile),
	})
}

// RequestReset issues a password reset token for the given email. The
// response is uniform whether or not the email exists.
func (h *AuthHandler) RequestReset(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	// The token would be delivered out of band; an unknown email gets the
	// same response so the endpoint cannot be used to probe accounts.
	_, _ = h.authService.RequestPasswordReset(c.Request.Context(), req.Email)
	c.JSON(http.StatusOK, gin.H{"message": "If that email is registered, a reset link has been sent"})
}

// ConfirmReset redeems a reset token and installs the new password.
func (h *AuthHandler) ConfirmReset(c *gin.Context) {
	var req ResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrResetTokenInvalid) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Could not reset password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// DeleteAccount removes the authenticated account and all its data.
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}

	var req DeleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	if err := h.authService.DeleteAccount(c.Request.Context(), uid, req.Password); err != nil {
		if errors.Is(err, service.ErrAuthenticationFailed) {
			abortWithError(c, http.StatusUnauthorized, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Could not delete account")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}

// MapProfileToResponse converts a domain UserProfile to a ProfileResponse DTO.
func MapProfileToResponse(profile *domain.UserProfile) ProfileResponse {
	if profile == nil {
		return ProfileResponse{}
	}
	followers := profile.Followers
	if followers == nil {
		followers = []string{}
	}
	following := profile.Following
	if following == nil {
		following = []string{}
	}
	return ProfileResponse{
		ID:                  profile.ID.Hex(),
		UID:                 profile.UID,
		DisplayName:         profile.DisplayName,
		Email:               profile.Email,
		ProfilePic:          profile.ProfilePic,
		SelectedAvatar:      profile.SelectedAvatar,
		UseGradientAvatar:   profile.UseGradientAvatar,
		Tagline:             profile.Tagline,
		PreferredWeightUnit: profile.PreferredWeightUnit,
		TrackedExercise:     profile.TrackedExercise,
		Followers:           followers,
		Following:           following,
		CreatedAt:           profile.CreatedAt,
	}
}

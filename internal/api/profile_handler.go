package api

import (
	"errors"
	"fmt"
	"net/http"

	"thebes/thebes-server/internal/domain"
	"thebes/thebes-server/internal/repository"
	"thebes/thebes-server/internal/service"

	"github.com/gin-gonic/gin"
)

// ProfileHandler holds the profile service dependency.
type ProfileHandler struct {
	profileService service.ProfileService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileService service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// UpdateProfileRequest is a partial edit; absent fields stay untouched.
type UpdateProfileRequest struct {
	DisplayName         *string            `json:"displayName,omitempty"`
	SelectedAvatar      *string            `json:"selectedAvatar,omitempty"`
	UseGradientAvatar   *bool              `json:"useGradientAvatar,omitempty"`
	Tagline             *string            `json:"tagline,omitempty"`
	PreferredWeightUnit *domain.WeightUnit `json:"preferredWeightUnit,omitempty"`
	TrackedExercise     *string            `json:"trackedExercise,omitempty"`
}

type PictureUploadRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

type PictureConfirmRequest struct {
	ObjectKey string `json:"objectKey" binding:"required"`
}

// GetOwn returns the authenticated user's profile.
func (h *ProfileHandler) GetOwn(c *gin.Context) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}
	h.respondWithProfile(c, uid, true)
}

// GetByUID returns another user's public profile.
func (h *ProfileHandler) GetByUID(c *gin.Context) {
	uid := c.Param("uid")
	if uid == "" {
		abortWithError(c, http.StatusBadRequest, "uid is required")
		return
	}
	h.respondWithProfile(c, uid, false)
}

func (h *ProfileHandler) respondWithProfile(c *gin.Context, uid string, includeEmail bool) {
	profile, err := h.profileService.GetProfile(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Could not load profile")
		return
	}
	resp := MapProfileToResponse(profile)
	if !includeEmail {
		resp.Email = ""
	}
	c.JSON(http.StatusOK, resp)
}

// Update applies a partial profile edit.
func (h *ProfileHandler) Update(c *gin.Context) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	profile, err := h.profileService.UpdateProfile(c.Request.Context(), uid, repository.ProfileFields{
		DisplayName:         req.DisplayName,
		SelectedAvatar:      req.SelectedAvatar,
		UseGradientAvatar:   req.UseGradientAvatar,
		Tagline:             req.Tagline,
		PreferredWeightUnit: req.PreferredWeightUnit,
		TrackedExercise:     req.TrackedExercise,
	})
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, MapProfileToResponse(profile))
}

// RequestPictureUpload returns a presigned PUT URL for a new profile picture.
func (h *ProfileHandler) RequestPictureUpload(c *gin.Context) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}

	var req PictureUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	resp, err := h.profileService.RequestPictureUploadURL(c.Request.Context(), uid, req.ContentType)
	if err != nil {
		if errors.Is(err, service.ErrInvalidContentType) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Could not generate upload URL")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ConfirmPicture records the uploaded picture's URL on the profile.
func (h *ProfileHandler) ConfirmPicture(c *gin.Context) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}

	var req PictureConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	profile, err := h.profileService.ConfirmPicture(c.Request.Context(), uid, req.ObjectKey)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Could not record profile picture")
		return
	}
	c.JSON(http.StatusOK, MapProfileToResponse(profile))
}

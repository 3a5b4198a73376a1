package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"thebes/thebes-server/internal/domain"
	"thebes/thebes-server/internal/service"

	"github.com/gin-gonic/gin"
)

// SocialHandler holds the social service dependency.
type SocialHandler struct {
	socialService service.SocialService
}

// NewSocialHandler creates a new SocialHandler.
func NewSocialHandler(socialService service.SocialService) *SocialHandler {
	return &SocialHandler{socialService: socialService}
}

type FollowRequest struct {
	TargetUID string `json:"targetUid" binding:"required"`
}

// Follow makes the authenticated user follow the target uid.
func (h *SocialHandler) Follow(c *gin.Context) {
	h.mutate(c, h.socialService.FollowUser)
}

// Unfollow removes the follow edge toward the target uid.
func (h *SocialHandler) Unfollow(c *gin.Context) {
	h.mutate(c, h.socialService.UnfollowUser)
}

// FollowBack follows a user from the followers context.
func (h *SocialHandler) FollowBack(c *gin.Context) {
	h.mutate(c, h.socialService.FollowBackUser)
}

func (h *SocialHandler) mutate(c *gin.Context, op func(ctx context.Context, currentUID, targetUID string) error) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}

	var req FollowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	if err := op(c.Request.Context(), uid, req.TargetUID); err != nil {
		switch {
		case errors.Is(err, service.ErrProfileNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrSelfFollow):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusBadGateway, "Could not update follow relationship")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Stats returns the friend/follower/following counters for the
// authenticated user.
func (h *SocialHandler) Stats(c *gin.Context) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}

	stats, err := h.socialService.GetSocialStats(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Could not load social stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Friends lists the authenticated user's mutual follows.
func (h *SocialHandler) Friends(c *gin.Context) {
	h.list(c, h.socialService.GetFriends)
}

// Followers lists who follows the authenticated user.
func (h *SocialHandler) Followers(c *gin.Context) {
	h.list(c, h.socialService.GetFollowers)
}

// Following lists who the authenticated user follows.
func (h *SocialHandler) Following(c *gin.Context) {
	h.list(c, h.socialService.GetFollowing)
}

func (h *SocialHandler) list(c *gin.Context, op func(ctx context.Context, uid string) ([]domain.UserProfile, error)) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}

	profiles, err := op(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Could not load profiles")
		return
	}
	c.JSON(http.StatusOK, mapProfiles(profiles))
}

// Activity returns the recent-workout feed across followed users.
// GET /social/activity?limit=10
func (h *SocialHandler) Activity(c *gin.Context) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			abortWithError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	activities, err := h.socialService.GetRecentActivity(c.Request.Context(), uid, limit)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Could not load activity feed")
		return
	}
	c.JSON(http.StatusOK, activities)
}

// Search finds users by display-name prefix.
// GET /users/search?q=Al
func (h *SocialHandler) Search(c *gin.Context) {
	prefix := c.Query("q")
	if prefix == "" {
		abortWithError(c, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	profiles, err := h.socialService.SearchUsers(c.Request.Context(), prefix, 25)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Search failed")
		return
	}
	c.JSON(http.StatusOK, mapProfiles(profiles))
}

func mapProfiles(profiles []domain.UserProfile) []ProfileResponse {
	out := make([]ProfileResponse, len(profiles))
	for i := range profiles {
		out[i] = MapProfileToResponse(&profiles[i])
		out[i].Email = "" // Other users' emails are not exposed
	}
	return out
}

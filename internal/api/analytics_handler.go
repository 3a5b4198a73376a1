package api

import (
	"net/http"
	"time"

	"thebes/thebes-server/internal/service"

	"github.com/gin-gonic/gin"
)

// AnalyticsHandler holds the analytics service dependency.
type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// GetExerciseProgress godoc
// @Summary Exercise progress metrics
// @Description Computes progress metrics for one exercise over a date range.
// @Tags Analytics
// @Produce json
// @Param exercise query string true "Exercise name"
// @Param from query string false "Range start (RFC3339)"
// @Param to query string false "Range end (RFC3339)"
// @Success 200 {object} analytics.Progress
// @Failure 400 {object} gin.H "Invalid input"
// @Router /analytics/exercise [get]
func (h *AnalyticsHandler) GetExerciseProgress(c *gin.Context) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}

	exerciseName := c.Query("exercise")
	if exerciseName == "" {
		abortWithError(c, http.StatusBadRequest, "query parameter 'exercise' is required")
		return
	}

	from, ok := parseTimeQuery(c, "from", time.Time{})
	if !ok {
		return
	}
	to, ok := parseTimeQuery(c, "to", time.Now().UTC())
	if !ok {
		return
	}

	progress, err := h.analyticsService.GetExerciseProgress(c.Request.Context(), uid, exerciseName, from, to)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Could not compute exercise progress")
		return
	}
	c.JSON(http.StatusOK, progress)
}

func parseTimeQuery(c *gin.Context, param string, fallback time.Time) (time.Time, bool) {
	raw := c.Query(param)
	if raw == "" {
		return fallback, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, param+" must be RFC3339")
		return time.Time{}, false
	}
	return t, true
}

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"thebes/thebes-server/internal/domain"
	"thebes/thebes-server/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutHandler holds the workout service dependency.
type WorkoutHandler struct {
	workoutService service.WorkoutService
}

// NewWorkoutHandler creates a new WorkoutHandler.
func NewWorkoutHandler(workoutService service.WorkoutService) *WorkoutHandler {
	return &WorkoutHandler{workoutService: workoutService}
}

// --- Request Structs ---

type CreateWorkoutRequest struct {
	Title     string                  `json:"title" binding:"required"`
	Date      time.Time               `json:"date"`
	Notes     string                  `json:"notes"`
	Exercises []service.ExerciseInput `json:"exercises"`
}

type UpdateWorkoutRequest struct {
	Title string    `json:"title" binding:"required"`
	Date  time.Time `json:"date"`
	Notes string    `json:"notes"`
}

type UpdateSetsRequest struct {
	Sets []domain.SetData `json:"sets" binding:"required"`
}

type CreateTemplateRequest struct {
	Title     string                  `json:"title" binding:"required"`
	Exercises []service.ExerciseInput `json:"exercises"`
}

type InstantiateTemplateRequest struct {
	Date time.Time `json:"date"`
}

func parseObjectID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid %s format", param))
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *WorkoutHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWorkoutNotFound),
		errors.Is(err, service.ErrTemplateNotFound),
		errors.Is(err, service.ErrExerciseNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotOwner):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrValidationFailed):
		abortWithError(c, http.StatusBadRequest, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

// --- Workouts ---

// CreateWorkout logs a new session with its exercises.
func (h *WorkoutHandler) CreateWorkout(c *gin.Context) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}

	var req CreateWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	details, err := h.workoutService.CreateWorkout(c.Request.Context(), uid, req.Title, req.Date, req.Notes, req.Exercises)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, details)
}

// GetWorkouts lists the authenticated user's workouts.
func (h *WorkoutHandler) GetWorkouts(c *gin.Context) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}

	workouts, err := h.workoutService.GetWorkouts(c.Request.Context(), uid)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, workouts)
}

// GetWorkout returns one workout with its exercises.
func (h *WorkoutHandler) GetWorkout(c *gin.Context) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}
	workoutID, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	details, err := h.workoutService.GetWorkout(c.Request.Context(), uid, workoutID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// UpdateWorkout edits a workout's title, date, and notes.
func (h *WorkoutHandler) UpdateWorkout(c *gin.Context) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}
	workoutID, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	var req UpdateWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	workout, err := h.workoutService.UpdateWorkout(c.Request.Context(), uid, workoutID, req.Title, req.Date, req.Notes)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, workout)
}

// DeleteWorkout removes a workout and its exercises.
func (h *WorkoutHandler) DeleteWorkout(c *gin.Context) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}
	workoutID, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	if err := h.workoutService.DeleteWorkout(c.Request.Context(), uid, workoutID); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Workout deleted"})
}

// UpdateExerciseSets replaces the set list of one logged exercise.
func (h *WorkoutHandler) UpdateExerciseSets(c *gin.Context) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}
	exerciseID, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	var req UpdateSetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	if err := h.workoutService.UpdateExerciseSets(c.Request.Context(), uid, exerciseID, req.Sets); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sets updated"})
}

// --- Templates ---

// CreateTemplate stores a reusable exercise collection.
func (h *WorkoutHandler) CreateTemplate(c *gin.Context) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}

	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	details, err := h.workoutService.CreateTemplate(c.Request.Context(), uid, req.Title, req.Exercises)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, details)
}

// GetTemplates lists the authenticated user's templates.
func (h *WorkoutHandler) GetTemplates(c *gin.Context) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}

	templates, err := h.workoutService.GetTemplates(c.Request.Context(), uid)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

// GetTemplate returns one template with its exercises.
func (h *WorkoutHandler) GetTemplate(c *gin.Context) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}
	templateID, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	details, err := h.workoutService.GetTemplate(c.Request.Context(), uid, templateID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// DeleteTemplate removes a template and its exercises.
func (h *WorkoutHandler) DeleteTemplate(c *gin.Context) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}
	templateID, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	if err := h.workoutService.DeleteTemplate(c.Request.Context(), uid, templateID); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Template deleted"})
}

// InstantiateTemplate logs a new workout from a template.
func (h *WorkoutHandler) InstantiateTemplate(c *gin.Context) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}
	templateID, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	var req InstantiateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	details, err := h.workoutService.InstantiateTemplate(c.Request.Context(), uid, templateID, req.Date)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, details)
}

// GetExerciseNames lists distinct logged exercise names.
func (h *WorkoutHandler) GetExerciseNames(c *gin.Context) {
	uid, err := getUIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
		return
	}

	names, err := h.workoutService.GetExerciseNames(c.Request.Context(), uid)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, names)
}

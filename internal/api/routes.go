package api

import (
	"net/http"

	"thebes/thebes-server/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	profileService service.ProfileService,
	socialService service.SocialService,
	workoutService service.WorkoutService,
	analyticsService service.AnalyticsService,
) {

	authHandler := NewAuthHandler(authService)
	profileHandler := NewProfileHandler(profileService)
	socialHandler := NewSocialHandler(socialService)
	workoutHandler := NewWorkoutHandler(workoutService)
	analyticsHandler := NewAnalyticsHandler(analyticsService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/reset", authHandler.RequestReset)
			authGroup.POST("/reset/confirm", authHandler.ConfirmReset)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			uid, err := getUIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get uid from token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"uid": uid})
		})

		protected.DELETE("/account", authHandler.DeleteAccount)

		// --- Profile Routes ---
		protected.GET("/profile", profileHandler.GetOwn)
		protected.PUT("/profile", profileHandler.Update)
		protected.POST("/profile/picture", profileHandler.RequestPictureUpload)
		protected.PUT("/profile/picture", profileHandler.ConfirmPicture)
		protected.GET("/users/:uid", profileHandler.GetByUID)
		protected.GET("/users/search", socialHandler.Search)

		// --- Social Routes ---
		socialGroup := protected.Group("/social")
		{
			socialGroup.POST("/follow", socialHandler.Follow)
			socialGroup.POST("/unfollow", socialHandler.Unfollow)
			socialGroup.POST("/follow-back", socialHandler.FollowBack)
			socialGroup.GET("/stats", socialHandler.Stats)
			socialGroup.GET("/friends", socialHandler.Friends)
			socialGroup.GET("/followers", socialHandler.Followers)
			socialGroup.GET("/following", socialHandler.Following)
			socialGroup.GET("/activity", socialHandler.Activity)
		}

		// --- Workout Routes ---
		workoutGroup := protected.Group("/workouts")
		{
			workoutGroup.POST("", workoutHandler.CreateWorkout)
			workoutGroup.GET("", workoutHandler.GetWorkouts)
			workoutGroup.GET("/:id", workoutHandler.GetWorkout)
			workoutGroup.PUT("/:id", workoutHandler.UpdateWorkout)
			workoutGroup.DELETE("/:id", workoutHandler.DeleteWorkout)
		}
		protected.PUT("/exercises/:id/sets", workoutHandler.UpdateExerciseSets)
		protected.GET("/exercises/names", workoutHandler.GetExerciseNames)

		// --- Template Routes ---
		templateGroup := protected.Group("/templates")
		{
			templateGroup.POST("", workoutHandler.CreateTemplate)
			templateGroup.GET("", workoutHandler.GetTemplates)
			templateGroup.GET("/:id", workoutHandler.GetTemplate)
			templateGroup.DELETE("/:id", workoutHandler.DeleteTemplate)
			templateGroup.POST("/:id/instantiate", workoutHandler.InstantiateTemplate)
		}

		// --- Analytics Routes ---
		protected.GET("/analytics/exercise", analyticsHandler.GetExerciseProgress)
	}
}

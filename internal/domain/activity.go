package domain

import "time"

// RecentWorkoutActivity is a read-only projection joining a workout with its
// owner's profile for feed display. Derived at read time, never persisted.
type RecentWorkoutActivity struct {
	ID              string    `json:"id"` // WorkoutID hex; unique within one feed
	WorkoutID       string    `json:"workoutId"`
	UserID          string    `json:"userId"`
	WorkoutTitle    string    `json:"workoutTitle"`
	WorkoutDate     time.Time `json:"workoutDate"`
	UserDisplayName string    `json:"userDisplayName"`
	UserProfilePic  *string   `json:"userProfilePic,omitempty"`
	ExerciseCount   int       `json:"exerciseCount"`
}

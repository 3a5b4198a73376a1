package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SetData is one performed set. Weight is always stored in kilograms
// regardless of the user's display unit. A nil Weight marks a bodyweight
// set; that is a semantic flag, not a missing value.
type SetData struct {
	Reps     int      `bson:"reps" json:"reps"`
	Weight   *float64 `bson:"weight,omitempty" json:"weight,omitempty"`
	RestTime *int     `bson:"restTime,omitempty" json:"restTime,omitempty"` // Seconds
}

// IsBodyweight reports whether this set has no external weight.
func (s SetData) IsBodyweight() bool {
	return s.Weight == nil
}

// Volume is weight x reps for a weighted set, 0 for a bodyweight set.
func (s SetData) Volume() float64 {
	if s.Weight == nil {
		return 0
	}
	return *s.Weight * float64(s.Reps)
}

// Exercise is one named movement with an ordered list of sets, belonging to
// exactly one of {Workout, Template}. WorkoutID and TemplateID are mutually
// exclusive; never both populated.
type Exercise struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID     string              `bson:"userId" json:"userId"` // Owner uid, denormalized for per-user queries
	Name       string              `bson:"name" json:"name"`
	Sets       []SetData           `bson:"sets" json:"sets"`
	WorkoutID  *primitive.ObjectID `bson:"workoutId,omitempty" json:"workoutId,omitempty"`
	TemplateID *primitive.ObjectID `bson:"templateId,omitempty" json:"templateId,omitempty"`

	// Date is a denormalized copy of the parent workout's date, kept so
	// per-exercise history can be queried without joining workouts.
	// Nil for template exercises.
	Date *time.Time `bson:"date,omitempty" json:"date,omitempty"`

	// Order is the explicit sort key within the parent.
	Order *int `bson:"order,omitempty" json:"order,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// SessionVolume is the total weight x reps across this record's sets.
// Bodyweight sets contribute nothing.
func (e *Exercise) SessionVolume() float64 {
	var total float64
	for _, s := range e.Sets {
		total += s.Volume()
	}
	return total
}

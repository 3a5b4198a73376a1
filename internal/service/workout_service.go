package service

import (
	"context"
	"errors"
	"log"
	"time"

	"thebes/thebes-server/internal/domain"
	"thebes/thebes-server/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrWorkoutNotFound  = errors.New("workout not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrNotOwner         = errors.New("access denied: not the owner of this resource")
	ErrValidationFailed = errors.New("validation failed")
)

// ExerciseInput is one exercise supplied when creating a workout or template.
type ExerciseInput struct {
	Name string           `json:"name"`
	Sets []domain.SetData `json:"sets"`
}

// WorkoutDetails combines a workout with its exercises for display.
type WorkoutDetails struct {
	domain.Workout
	Exercises []domain.Exercise `json:"exercises"`
}

// TemplateDetails combines a template with its exercises.
type TemplateDetails struct {
	domain.Template
	Exercises []domain.Exercise `json:"exercises"`
}

// WorkoutService handles logged workouts, reusable templates, and the
// exercise records hanging off both.
type WorkoutService interface {
	CreateWorkout(ctx context.Context, userID, title string, date time.Time, notes string, exercises []ExerciseInput) (*WorkoutDetails, error)
	GetWorkout(ctx context.Context, userID string, workoutID primitive.ObjectID) (*WorkoutDetails, error)
	GetWorkouts(ctx context.Context, userID string) ([]domain.Workout, error)
	UpdateWorkout(ctx context.Context, userID string, workoutID primitive.ObjectID, title string, date time.Time, notes string) (*domain.Workout, error)
	DeleteWorkout(ctx context.Context, userID string, workoutID primitive.ObjectID) error
	UpdateExerciseSets(ctx context.Context, userID string, exerciseID primitive.ObjectID, sets []domain.SetData) error

	CreateTemplate(ctx context.Context, userID, title string, exercises []ExerciseInput) (*TemplateDetails, error)
	GetTemplate(ctx context.Context, userID string, templateID primitive.ObjectID) (*TemplateDetails, error)
	GetTemplates(ctx context.Context, userID string) ([]domain.Template, error)
	DeleteTemplate(ctx context.Context, userID string, templateID primitive.ObjectID) error
	InstantiateTemplate(ctx context.Context, userID string, templateID primitive.ObjectID, date time.Time) (*WorkoutDetails, error)

	GetExerciseNames(ctx context.Context, userID string) ([]string, error)
}

// workoutService implements the WorkoutService interface.
type workoutService struct {
	workoutRepo  repository.WorkoutRepository
	templateRepo repository.TemplateRepository
	exerciseRepo repository.ExerciseRepository
}

// NewWorkoutService creates a new instance of workoutService.
func NewWorkoutService(
	workoutRepo repository.WorkoutRepository,
	templateRepo repository.TemplateRepository,
	exerciseRepo repository.ExerciseRepository,
) WorkoutService {
	return &workoutService{
		workoutRepo:  workoutRepo,
		templateRepo: templateRepo,
		exerciseRepo: exerciseRepo,
	}
}

// === Workouts ===

// CreateWorkout logs a new session with its exercises. The workout's date is
// denormalized onto every exercise record for time-series queries.
func (s *workoutService) CreateWorkout(ctx context.Context, userID, title string, date time.Time, notes string, exercises []ExerciseInput) (*WorkoutDetails, error) {
	if title == "" || userID == "" {
		return nil, ErrValidationFailed
	}
	if date.IsZero() {
		date = time.Now().UTC()
	}

	workout := &domain.Workout{
		UserID: userID,
		Title:  title,
		Date:   date,
		Notes:  notes,
	}
	workoutID, err := s.workoutRepo.Create(ctx, workout)
	if err != nil {
		return nil, err
	}
	workout.ID = workoutID

	records := buildExerciseRecords(userID, exercises, &workoutID, nil, &date)
	if err := s.exerciseRepo.CreateMany(ctx, records); err != nil {
		// Roll back the parent so a half-created workout is not left behind.
		if rbErr := s.workoutRepo.Delete(ctx, workoutID, userID); rbErr != nil {
			log.Printf("workout create compensation failed, orphan workout %s: %v", workoutID.Hex(), rbErr)
		}
		return nil, err
	}

	saved, err := s.exerciseRepo.GetByWorkoutID(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	return &WorkoutDetails{Workout: *workout, Exercises: saved}, nil
}

// GetWorkout retrieves one workout with its exercises, enforcing ownership.
func (s *workoutService) GetWorkout(ctx context.Context, userID string, workoutID primitive.ObjectID) (*WorkoutDetails, error) {
	workout, err := s.workoutRepo.GetByID(ctx, workoutID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	if workout.UserID != userID {
		return nil, ErrNotOwner
	}

	exercises, err := s.exerciseRepo.GetByWorkoutID(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	return &WorkoutDetails{Workout: *workout, Exercises: exercises}, nil
}

// GetWorkouts lists a user's workouts, newest first.
func (s *workoutService) GetWorkouts(ctx context.Context, userID string) ([]domain.Workout, error) {
	return s.workoutRepo.GetByUserID(ctx, userID)
}

// UpdateWorkout edits title, date, and notes. A date change propagates to
// the denormalized date on the child exercises.
func (s *workoutService) UpdateWorkout(ctx context.Context, userID string, workoutID primitive.ObjectID, title string, date time.Time, notes string) (*domain.Workout, error) {
	if title == "" {
		return nil, ErrValidationFailed
	}

	workout, err := s.workoutRepo.GetByID(ctx, workoutID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	if workout.UserID != userID {
		return nil, ErrNotOwner
	}

	dateChanged := !date.IsZero() && !date.Equal(workout.Date)
	workout.Title = title
	workout.Notes = notes
	if !date.IsZero() {
		workout.Date = date
	}

	if err := s.workoutRepo.Update(ctx, workout); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	if dateChanged {
		if err := s.exerciseRepo.SetDateByWorkoutID(ctx, workoutID, workout.Date); err != nil {
			return nil, err
		}
	}
	return workout, nil
}

// DeleteWorkout removes a workout and cascades to its exercises.
func (s *workoutService) DeleteWorkout(ctx context.Context, userID string, workoutID primitive.ObjectID) error {
	if err := s.workoutRepo.Delete(ctx, workoutID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrWorkoutNotFound
		}
		return err
	}
	return s.exerciseRepo.DeleteByWorkoutID(ctx, workoutID)
}

// UpdateExerciseSets replaces the set list of one logged exercise.
func (s *workoutService) UpdateExerciseSets(ctx context.Context, userID string, exerciseID primitive.ObjectID, sets []domain.SetData) error {
	err := s.exerciseRepo.UpdateSets(ctx, exerciseID, userID, sets)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrExerciseNotFound
	}
	return err
}

// === Templates ===

// CreateTemplate stores a reusable exercise collection. Template exercises
// carry no date.
func (s *workoutService) CreateTemplate(ctx context.Context, userID, title string, exercises []ExerciseInput) (*TemplateDetails, error) {
	if title == "" || userID == "" {
		return nil, ErrValidationFailed
	}

	template := &domain.Template{UserID: userID, Title: title}
	templateID, err := s.templateRepo.Create(ctx, template)
	if err != nil {
		return nil, err
	}
	template.ID = templateID

	records := buildExerciseRecords(userID, exercises, nil, &templateID, nil)
	if err := s.exerciseRepo.CreateMany(ctx, records); err != nil {
		if rbErr := s.templateRepo.Delete(ctx, templateID, userID); rbErr != nil {
			log.Printf("template create compensation failed, orphan template %s: %v", templateID.Hex(), rbErr)
		}
		return nil, err
	}

	saved, err := s.exerciseRepo.GetByTemplateID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	return &TemplateDetails{Template: *template, Exercises: saved}, nil
}

// GetTemplate retrieves one template with its exercises, enforcing ownership.
func (s *workoutService) GetTemplate(ctx context.Context, userID string, templateID primitive.ObjectID) (*TemplateDetails, error) {
	template, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if template.UserID != userID {
		return nil, ErrNotOwner
	}

	exercises, err := s.exerciseRepo.GetByTemplateID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	return &TemplateDetails{Template: *template, Exercises: exercises}, nil
}

// GetTemplates lists a user's templates.
func (s *workoutService) GetTemplates(ctx context.Context, userID string) ([]domain.Template, error) {
	return s.templateRepo.GetByUserID(ctx, userID)
}

// DeleteTemplate removes a template and cascades to its exercises.
func (s *workoutService) DeleteTemplate(ctx context.Context, userID string, templateID primitive.ObjectID) error {
	if err := s.templateRepo.Delete(ctx, templateID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTemplateNotFound
		}
		return err
	}
	return s.exerciseRepo.DeleteByTemplateID(ctx, templateID)
}

// InstantiateTemplate logs a new workout from a template: the template's
// exercises are copied onto the fresh workout with the given date stamped.
func (s *workoutService) InstantiateTemplate(ctx context.Context, userID string, templateID primitive.ObjectID, date time.Time) (*WorkoutDetails, error) {
	details, err := s.GetTemplate(ctx, userID, templateID)
	if err != nil {
		return nil, err
	}

	inputs := make([]ExerciseInput, len(details.Exercises))
	for i, ex := range details.Exercises {
		inputs[i] = ExerciseInput{Name: ex.Name, Sets: ex.Sets}
	}
	return s.CreateWorkout(ctx, userID, details.Title, date, "", inputs)
}

// GetExerciseNames lists the distinct exercise names a user has logged, for
// the analytics picker.
func (s *workoutService) GetExerciseNames(ctx context.Context, userID string) ([]string, error) {
	return s.exerciseRepo.DistinctNames(ctx, userID)
}

// buildExerciseRecords maps inputs to domain records with the explicit order
// key and the denormalized parent linkage set.
func buildExerciseRecords(userID string, inputs []ExerciseInput, workoutID, templateID *primitive.ObjectID, date *time.Time) []domain.Exercise {
	records := make([]domain.Exercise, 0, len(inputs))
	for i, in := range inputs {
		order := i
		sets := in.Sets
		if sets == nil {
			sets = []domain.SetData{}
		}
		records = append(records, domain.Exercise{
			UserID:     userID,
			Name:       in.Name,
			Sets:       sets,
			WorkoutID:  workoutID,
			TemplateID: templateID,
			Date:       date,
			Order:      &order,
		})
	}
	return records
}

package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"thebes/thebes-server/internal/domain"
	"thebes/thebes-server/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository fakes. Error fields let tests inject failures at
// specific calls; everything else behaves like the real store.

// --- fakeUserRepo ---

type fakeUserRepo struct {
	mu       sync.Mutex
	profiles map[string]*domain.UserProfile

	createErr         error
	addFollowerErr    error
	removeFollowerErr error
	upsertSeedErr     error
	upsertSeedCalls   int
}

func newFakeUserRepo(profiles ...*domain.UserProfile) *fakeUserRepo {
	r := &fakeUserRepo{profiles: make(map[string]*domain.UserProfile)}
	for _, p := range profiles {
		cp := *p
		r.profiles[p.UID] = &cp
	}
	return r
}

func (r *fakeUserRepo) snapshot(uid string) (*domain.UserProfile, error) {
	p, ok := r.profiles[uid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	cp.Followers = append([]string(nil), p.Followers...)
	cp.Following = append([]string(nil), p.Following...)
	return &cp, nil
}

func addToSet(list []string, v string) []string {
	for _, e := range list {
		if e == v {
			return list
		}
	}
	return append(list, v)
}

func pull(list []string, v string) []string {
	out := list[:0]
	for _, e := range list {
		if e != v {
			out = append(out, e)
		}
	}
	return out
}

func (r *fakeUserRepo) Create(ctx context.Context, profile *domain.UserProfile) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return primitive.NilObjectID, r.createErr
	}
	cp := *profile
	cp.ID = primitive.NewObjectID()
	r.profiles[cp.UID] = &cp
	return cp.ID, nil
}

func (r *fakeUserRepo) GetByUID(ctx context.Context, uid string) (*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(uid)
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for uid, p := range r.profiles {
		if p.Email == email {
			return r.snapshot(uid)
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByUIDs(ctx context.Context, uids []string) ([]domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.UserProfile, 0, len(uids))
	for _, uid := range uids {
		if p, err := r.snapshot(uid); err == nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) SearchByDisplayNamePrefix(ctx context.Context, prefix string, limit int64) ([]domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.UserProfile, 0)
	for _, p := range r.profiles {
		if strings.HasPrefix(p.DisplayName, prefix) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateFields(ctx context.Context, uid string, fields repository.ProfileFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[uid]
	if !ok {
		return repository.ErrNotFound
	}
	if fields.DisplayName != nil {
		p.DisplayName = *fields.DisplayName
	}
	if fields.ProfilePic != nil {
		p.ProfilePic = fields.ProfilePic
	}
	if fields.SelectedAvatar != nil {
		p.SelectedAvatar = fields.SelectedAvatar
	}
	if fields.UseGradientAvatar != nil {
		p.UseGradientAvatar = fields.UseGradientAvatar
	}
	if fields.Tagline != nil {
		p.Tagline = fields.Tagline
	}
	if fields.PreferredWeightUnit != nil {
		p.PreferredWeightUnit = *fields.PreferredWeightUnit
	}
	if fields.TrackedExercise != nil {
		p.TrackedExercise = fields.TrackedExercise
	}
	return nil
}

func (r *fakeUserRepo) UpdatePasswordHash(ctx context.Context, uid, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[uid]
	if !ok {
		return repository.ErrNotFound
	}
	p.PasswordHash = hash
	return nil
}

func (r *fakeUserRepo) SetResetToken(ctx context.Context, uid, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[uid]
	if !ok {
		return repository.ErrNotFound
	}
	p.ResetToken = token
	p.ResetTokenExpiresAt = &expiresAt
	return nil
}

func (r *fakeUserRepo) GetByResetToken(ctx context.Context, token string) (*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for uid, p := range r.profiles {
		if p.ResetToken != "" && p.ResetToken == token {
			return r.snapshot(uid)
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) ClearResetToken(ctx context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[uid]
	if !ok {
		return repository.ErrNotFound
	}
	p.ResetToken = ""
	p.ResetTokenExpiresAt = nil
	return nil
}

func (r *fakeUserRepo) AddFollowing(ctx context.Context, uid, targetUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[uid]
	if !ok {
		return repository.ErrNotFound
	}
	p.Following = addToSet(p.Following, targetUID)
	return nil
}

func (r *fakeUserRepo) RemoveFollowing(ctx context.Context, uid, targetUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[uid]
	if !ok {
		return repository.ErrNotFound
	}
	p.Following = pull(p.Following, targetUID)
	return nil
}

func (r *fakeUserRepo) AddFollower(ctx context.Context, uid, followerUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addFollowerErr != nil {
		return r.addFollowerErr
	}
	p, ok := r.profiles[uid]
	if !ok {
		return repository.ErrNotFound
	}
	p.Followers = addToSet(p.Followers, followerUID)
	return nil
}

func (r *fakeUserRepo) RemoveFollower(ctx context.Context, uid, followerUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.removeFollowerErr != nil {
		return r.removeFollowerErr
	}
	p, ok := r.profiles[uid]
	if !ok {
		return repository.ErrNotFound
	}
	p.Followers = pull(p.Followers, followerUID)
	return nil
}

func (r *fakeUserRepo) UpsertSeedWithFollower(ctx context.Context, uid, followerUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertSeedCalls++
	if r.upsertSeedErr != nil {
		return r.upsertSeedErr
	}
	p, ok := r.profiles[uid]
	if !ok {
		r.profiles[uid] = &domain.UserProfile{
			UID:                 uid,
			Seed:                true,
			PreferredWeightUnit: domain.UnitKilograms,
			Followers:           []string{followerUID},
			Following:           []string{},
		}
		return nil
	}
	p.Followers = addToSet(p.Followers, followerUID)
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[uid]; !ok {
		return repository.ErrNotFound
	}
	delete(r.profiles, uid)
	return nil
}

// --- fakeWorkoutRepo ---

type fakeWorkoutRepo struct {
	mu       sync.Mutex
	workouts map[primitive.ObjectID]*domain.Workout

	deletedByUser []string
}

func newFakeWorkoutRepo() *fakeWorkoutRepo {
	return &fakeWorkoutRepo{workouts: make(map[primitive.ObjectID]*domain.Workout)}
}

func (r *fakeWorkoutRepo) Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *workout
	cp.ID = primitive.NewObjectID()
	r.workouts[cp.ID] = &cp
	return cp.ID, nil
}

func (r *fakeWorkoutRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workouts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *fakeWorkoutRepo) GetByUserID(ctx context.Context, userID string) ([]domain.Workout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Workout, 0)
	for _, w := range r.workouts {
		if w.UserID == userID {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (r *fakeWorkoutRepo) GetRecentByOwners(ctx context.Context, ownerUIDs []string, since time.Time, limit int64) ([]domain.Workout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owners := make(map[string]struct{}, len(ownerUIDs))
	for _, uid := range ownerUIDs {
		owners[uid] = struct{}{}
	}
	out := make([]domain.Workout, 0)
	for _, w := range r.workouts {
		if _, ok := owners[w.UserID]; ok && !w.Date.Before(since) {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeWorkoutRepo) Update(ctx context.Context, workout *domain.Workout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workouts[workout.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *workout
	r.workouts[workout.ID] = &cp
	return nil
}

func (r *fakeWorkoutRepo) Delete(ctx context.Context, id primitive.ObjectID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workouts[id]
	if !ok || w.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.workouts, id)
	return nil
}

func (r *fakeWorkoutRepo) DeleteByUserID(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, w := range r.workouts {
		if w.UserID == userID {
			delete(r.workouts, id)
		}
	}
	r.deletedByUser = append(r.deletedByUser, userID)
	return nil
}

// --- fakeTemplateRepo ---

type fakeTemplateRepo struct {
	mu        sync.Mutex
	templates map[primitive.ObjectID]*domain.Template

	deletedByUser []string
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: make(map[primitive.ObjectID]*domain.Template)}
}

func (r *fakeTemplateRepo) Create(ctx context.Context, template *domain.Template) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *template
	cp.ID = primitive.NewObjectID()
	r.templates[cp.ID] = &cp
	return cp.ID, nil
}

func (r *fakeTemplateRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTemplateRepo) GetByUserID(ctx context.Context, userID string) ([]domain.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Template, 0)
	for _, t := range r.templates {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTemplateRepo) Delete(ctx context.Context, id primitive.ObjectID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[id]
	if !ok || t.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.templates, id)
	return nil
}

func (r *fakeTemplateRepo) DeleteByUserID(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.templates {
		if t.UserID == userID {
			delete(r.templates, id)
		}
	}
	r.deletedByUser = append(r.deletedByUser, userID)
	return nil
}

// --- fakeExerciseRepo ---

type fakeExerciseRepo struct {
	mu        sync.Mutex
	exercises map[primitive.ObjectID]*domain.Exercise

	createManyErr error
	deletedByUser []string
}

func newFakeExerciseRepo() *fakeExerciseRepo {
	return &fakeExerciseRepo{exercises: make(map[primitive.ObjectID]*domain.Exercise)}
}

func (r *fakeExerciseRepo) Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *exercise
	cp.ID = primitive.NewObjectID()
	r.exercises[cp.ID] = &cp
	return cp.ID, nil
}

func (r *fakeExerciseRepo) CreateMany(ctx context.Context, exercises []domain.Exercise) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createManyErr != nil {
		return r.createManyErr
	}
	for _, ex := range exercises {
		cp := ex
		cp.ID = primitive.NewObjectID()
		r.exercises[cp.ID] = &cp
	}
	return nil
}

func (r *fakeExerciseRepo) byOrder(filter func(*domain.Exercise) bool) []domain.Exercise {
	out := make([]domain.Exercise, 0)
	for _, ex := range r.exercises {
		if filter(ex) {
			out = append(out, *ex)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		oi, oj := 0, 0
		if out[i].Order != nil {
			oi = *out[i].Order
		}
		if out[j].Order != nil {
			oj = *out[j].Order
		}
		return oi < oj
	})
	return out
}

func (r *fakeExerciseRepo) GetByWorkoutID(ctx context.Context, workoutID primitive.ObjectID) ([]domain.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byOrder(func(ex *domain.Exercise) bool {
		return ex.WorkoutID != nil && *ex.WorkoutID == workoutID
	}), nil
}

func (r *fakeExerciseRepo) GetByTemplateID(ctx context.Context, templateID primitive.ObjectID) ([]domain.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byOrder(func(ex *domain.Exercise) bool {
		return ex.TemplateID != nil && *ex.TemplateID == templateID
	}), nil
}

func (r *fakeExerciseRepo) CountByWorkoutID(ctx context.Context, workoutID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, ex := range r.exercises {
		if ex.WorkoutID != nil && *ex.WorkoutID == workoutID {
			n++
		}
	}
	return n, nil
}

func (r *fakeExerciseRepo) GetHistoryByName(ctx context.Context, userID, name string, from, to time.Time) ([]domain.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Exercise, 0)
	for _, ex := range r.exercises {
		if ex.UserID != userID || ex.Name != name || ex.WorkoutID == nil || ex.Date == nil {
			continue
		}
		if ex.Date.Before(from) || ex.Date.After(to) {
			continue
		}
		out = append(out, *ex)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(*out[j].Date) })
	return out, nil
}

func (r *fakeExerciseRepo) DistinctNames(ctx context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, ex := range r.exercises {
		if ex.UserID != userID {
			continue
		}
		if _, ok := seen[ex.Name]; ok {
			continue
		}
		seen[ex.Name] = struct{}{}
		names = append(names, ex.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *fakeExerciseRepo) UpdateSets(ctx context.Context, id primitive.ObjectID, userID string, sets []domain.SetData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ex, ok := r.exercises[id]
	if !ok || ex.UserID != userID {
		return repository.ErrNotFound
	}
	ex.Sets = append([]domain.SetData(nil), sets...)
	return nil
}

func (r *fakeExerciseRepo) SetDateByWorkoutID(ctx context.Context, workoutID primitive.ObjectID, date time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ex := range r.exercises {
		if ex.WorkoutID != nil && *ex.WorkoutID == workoutID {
			d := date
			ex.Date = &d
		}
	}
	return nil
}

func (r *fakeExerciseRepo) DeleteByWorkoutID(ctx context.Context, workoutID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ex := range r.exercises {
		if ex.WorkoutID != nil && *ex.WorkoutID == workoutID {
			delete(r.exercises, id)
		}
	}
	return nil
}

func (r *fakeExerciseRepo) DeleteByTemplateID(ctx context.Context, templateID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ex := range r.exercises {
		if ex.TemplateID != nil && *ex.TemplateID == templateID {
			delete(r.exercises, id)
		}
	}
	return nil
}

func (r *fakeExerciseRepo) DeleteByUserID(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ex := range r.exercises {
		if ex.UserID == userID {
			delete(r.exercises, id)
		}
	}
	r.deletedByUser = append(r.deletedByUser, userID)
	return nil
}

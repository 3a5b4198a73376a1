package service

import (
	"context"
	"testing"
	"time"

	"thebes/thebes-server/internal/domain"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(users *fakeUserRepo, workouts *fakeWorkoutRepo, templates *fakeTemplateRepo, exercises *fakeExerciseRepo) AuthService {
	return NewAuthService(users, workouts, templates, exercises, "test-secret", time.Hour)
}

func TestRegister_CreatesProfile(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestAuthService(users, newFakeWorkoutRepo(), newFakeTemplateRepo(), newFakeExerciseRepo())

	profile, err := svc.Register(context.Background(), "Alice", "alice@example.com", "hunter22")
	require.NoError(t, err)
	require.NotNil(t, profile)

	assert.NotEmpty(t, profile.UID)
	assert.Equal(t, "Alice", profile.DisplayName)
	assert.Equal(t, domain.UnitKilograms, profile.PreferredWeightUnit)
	assert.Empty(t, profile.PasswordHash, "hash must not leave the service")
	assert.NotNil(t, profile.Followers)
	assert.NotNil(t, profile.Following)

	stored, err := users.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "hunter22", stored.PasswordHash, "password must be hashed at rest")
}

func TestRegister_DuplicateEmailRejected(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestAuthService(users, newFakeWorkoutRepo(), newFakeTemplateRepo(), newFakeExerciseRepo())

	_, err := svc.Register(context.Background(), "Alice", "alice@example.com", "hunter22")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "Imposter", "alice@example.com", "other")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestRegister_EmptyFieldsRejected(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo(), newFakeWorkoutRepo(), newFakeTemplateRepo(), newFakeExerciseRepo())

	_, err := svc.Register(context.Background(), "", "alice@example.com", "hunter22")
	assert.Error(t, err)
	_, err = svc.Register(context.Background(), "Alice", "", "hunter22")
	assert.Error(t, err)
	_, err = svc.Register(context.Background(), "Alice", "alice@example.com", "")
	assert.Error(t, err)
}

func TestLogin_ReturnsValidToken(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestAuthService(users, newFakeWorkoutRepo(), newFakeTemplateRepo(), newFakeExerciseRepo())

	registered, err := svc.Register(context.Background(), "Alice", "alice@example.com", "hunter22")
	require.NoError(t, err)

	token, profile, err := svc.Login(context.Background(), "alice@example.com", "hunter22")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, registered.UID, profile.UID)
	assert.Empty(t, profile.PasswordHash)

	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, registered.UID, claims["uid"])
	assert.Equal(t, "thebes", claims["iss"])
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo(), newFakeWorkoutRepo(), newFakeTemplateRepo(), newFakeExerciseRepo())

	_, err := svc.Register(context.Background(), "Alice", "alice@example.com", "hunter22")
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo(), newFakeWorkoutRepo(), newFakeTemplateRepo(), newFakeExerciseRepo())

	_, _, err := svc.Login(context.Background(), "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestPasswordReset_RoundTrip(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestAuthService(users, newFakeWorkoutRepo(), newFakeTemplateRepo(), newFakeExerciseRepo())

	_, err := svc.Register(context.Background(), "Alice", "alice@example.com", "old-password")
	require.NoError(t, err)

	token, err := svc.RequestPasswordReset(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, svc.ResetPassword(context.Background(), token, "new-password"))

	_, _, err = svc.Login(context.Background(), "alice@example.com", "old-password")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	_, _, err = svc.Login(context.Background(), "alice@example.com", "new-password")
	assert.NoError(t, err)

	// A redeemed token cannot be used twice.
	err = svc.ResetPassword(context.Background(), token, "another-password")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestAuthService(users, newFakeWorkoutRepo(), newFakeTemplateRepo(), newFakeExerciseRepo())

	profile, err := svc.Register(context.Background(), "Alice", "alice@example.com", "hunter22")
	require.NoError(t, err)

	expired := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, users.SetResetToken(context.Background(), profile.UID, "stale-token", expired))

	err = svc.ResetPassword(context.Background(), "stale-token", "new-password")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestDeleteAccount_WrongPassword(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestAuthService(users, newFakeWorkoutRepo(), newFakeTemplateRepo(), newFakeExerciseRepo())

	profile, err := svc.Register(context.Background(), "Alice", "alice@example.com", "hunter22")
	require.NoError(t, err)

	err = svc.DeleteAccount(context.Background(), profile.UID, "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, err = users.GetByUID(context.Background(), profile.UID)
	assert.NoError(t, err, "profile must survive a failed deletion attempt")
}

func TestDeleteAccount_CascadesOwnedData(t *testing.T) {
	users := newFakeUserRepo()
	workouts := newFakeWorkoutRepo()
	templates := newFakeTemplateRepo()
	exercises := newFakeExerciseRepo()
	svc := newTestAuthService(users, workouts, templates, exercises)

	profile, err := svc.Register(context.Background(), "Alice", "alice@example.com", "hunter22")
	require.NoError(t, err)
	uid := profile.UID

	wID, err := workouts.Create(context.Background(), &domain.Workout{UserID: uid, Title: "Leg Day", Date: time.Now().UTC()})
	require.NoError(t, err)
	_, err = templates.Create(context.Background(), &domain.Template{UserID: uid, Title: "Push Day"})
	require.NoError(t, err)
	_, err = exercises.Create(context.Background(), &domain.Exercise{UserID: uid, Name: "Squat", WorkoutID: &wID})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(context.Background(), uid, "hunter22"))

	_, err = users.GetByUID(context.Background(), uid)
	assert.Error(t, err)
	assert.Equal(t, []string{uid}, workouts.deletedByUser)
	assert.Equal(t, []string{uid}, templates.deletedByUser)
	assert.Equal(t, []string{uid}, exercises.deletedByUser)
}

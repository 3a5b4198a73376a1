package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"thebes/thebes-server/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestSocialService(users *fakeUserRepo, workouts *fakeWorkoutRepo, exercises *fakeExerciseRepo) *socialService {
	return &socialService{
		userRepo:     users,
		workoutRepo:  workouts,
		exerciseRepo: exercises,
		feedWindow:   30 * 24 * time.Hour,
		feedMaxFetch: 50,
		readRetry:    retryPolicy{maxAttempts: 1},
	}
}

func profileWith(uid, name string) *domain.UserProfile {
	return &domain.UserProfile{
		UID:         uid,
		DisplayName: name,
		Followers:   []string{},
		Following:   []string{},
	}
}

func TestFollowUser_UpdatesBothDocuments(t *testing.T) {
	users := newFakeUserRepo(profileWith("alice", "Alice"), profileWith("bob", "Bob"))
	svc := newTestSocialService(users, newFakeWorkoutRepo(), newFakeExerciseRepo())

	err := svc.FollowUser(context.Background(), "alice", "bob")
	require.NoError(t, err)

	alice, err := users.GetByUID(context.Background(), "alice")
	require.NoError(t, err)
	bob, err := users.GetByUID(context.Background(), "bob")
	require.NoError(t, err)

	assert.Equal(t, []string{"bob"}, alice.Following)
	assert.Equal(t, []string{"alice"}, bob.Followers)
	assert.Empty(t, alice.Followers)
	assert.Empty(t, bob.Following)
}

func TestFollowUser_SelfFollowRejected(t *testing.T) {
	users := newFakeUserRepo(profileWith("alice", "Alice"))
	svc := newTestSocialService(users, newFakeWorkoutRepo(), newFakeExerciseRepo())

	err := svc.FollowUser(context.Background(), "alice", "alice")
	assert.ErrorIs(t, err, ErrSelfFollow)

	alice, _ := users.GetByUID(context.Background(), "alice")
	assert.Empty(t, alice.Following)
	assert.Empty(t, alice.Followers)
}

func TestFollowUser_Idempotent(t *testing.T) {
	users := newFakeUserRepo(profileWith("alice", "Alice"), profileWith("bob", "Bob"))
	svc := newTestSocialService(users, newFakeWorkoutRepo(), newFakeExerciseRepo())

	require.NoError(t, svc.FollowUser(context.Background(), "alice", "bob"))
	require.NoError(t, svc.FollowUser(context.Background(), "alice", "bob"))

	alice, _ := users.GetByUID(context.Background(), "alice")
	bob, _ := users.GetByUID(context.Background(), "bob")
	assert.Equal(t, []string{"bob"}, alice.Following)
	assert.Equal(t, []string{"alice"}, bob.Followers)
}

func TestFollowUser_UnknownUIDRejected(t *testing.T) {
	users := newFakeUserRepo(profileWith("bob", "Bob"))
	svc := newTestSocialService(users, newFakeWorkoutRepo(), newFakeExerciseRepo())

	err := svc.FollowUser(context.Background(), "ghost", "bob")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestFollowUser_SeedTargetGetsUpsertedProfile(t *testing.T) {
	users := newFakeUserRepo(profileWith("alice", "Alice"))
	svc := newTestSocialService(users, newFakeWorkoutRepo(), newFakeExerciseRepo())

	err := svc.FollowUser(context.Background(), "alice", "seed-1")
	require.NoError(t, err)
	assert.Equal(t, 1, users.upsertSeedCalls)

	seed, err := users.GetByUID(context.Background(), "seed-1")
	require.NoError(t, err)
	assert.True(t, seed.Seed)
	assert.Equal(t, []string{"alice"}, seed.Followers)

	// A second follower merges into the seed document instead of replacing it.
	users.profiles["carol"] = profileWith("carol", "Carol")
	require.NoError(t, svc.FollowUser(context.Background(), "carol", "seed-1"))
	seed, _ = users.GetByUID(context.Background(), "seed-1")
	assert.ElementsMatch(t, []string{"alice", "carol"}, seed.Followers)
}

func TestFollowUser_CompensatesOnSecondWriteFailure(t *testing.T) {
	users := newFakeUserRepo(profileWith("alice", "Alice"), profileWith("bob", "Bob"))
	users.addFollowerErr = errors.New("write concern timeout")
	svc := newTestSocialService(users, newFakeWorkoutRepo(), newFakeExerciseRepo())

	err := svc.FollowUser(context.Background(), "alice", "bob")
	assert.ErrorIs(t, err, ErrFollowFailed)

	alice, _ := users.GetByUID(context.Background(), "alice")
	bob, _ := users.GetByUID(context.Background(), "bob")
	assert.Empty(t, alice.Following, "first write must be rolled back")
	assert.Empty(t, bob.Followers)
}

func TestFollowUser_NoRollbackWhenEdgePreExisted(t *testing.T) {
	alice := profileWith("alice", "Alice")
	alice.Following = []string{"bob"}
	users := newFakeUserRepo(alice, profileWith("bob", "Bob"))
	users.addFollowerErr = errors.New("write concern timeout")
	svc := newTestSocialService(users, newFakeWorkoutRepo(), newFakeExerciseRepo())

	err := svc.FollowUser(context.Background(), "alice", "bob")
	assert.ErrorIs(t, err, ErrFollowFailed)

	got, _ := users.GetByUID(context.Background(), "alice")
	assert.Equal(t, []string{"bob"}, got.Following, "pre-existing edge must survive the failed retry")
}

func TestUnfollowUser_RemovesBothSides(t *testing.T) {
	alice := profileWith("alice", "Alice")
	alice.Following = []string{"bob"}
	bob := profileWith("bob", "Bob")
	bob.Followers = []string{"alice"}
	users := newFakeUserRepo(alice, bob)
	svc := newTestSocialService(users, newFakeWorkoutRepo(), newFakeExerciseRepo())

	require.NoError(t, svc.UnfollowUser(context.Background(), "alice", "bob"))

	gotAlice, _ := users.GetByUID(context.Background(), "alice")
	gotBob, _ := users.GetByUID(context.Background(), "bob")
	assert.Empty(t, gotAlice.Following)
	assert.Empty(t, gotBob.Followers)

	// Unfollowing again is a no-op, not an error.
	require.NoError(t, svc.UnfollowUser(context.Background(), "alice", "bob"))
}

func TestUnfollowUser_MissingTargetTolerated(t *testing.T) {
	alice := profileWith("alice", "Alice")
	alice.Following = []string{"gone"}
	users := newFakeUserRepo(alice)
	svc := newTestSocialService(users, newFakeWorkoutRepo(), newFakeExerciseRepo())

	require.NoError(t, svc.UnfollowUser(context.Background(), "alice", "gone"))
	got, _ := users.GetByUID(context.Background(), "alice")
	assert.Empty(t, got.Following)
}

func TestUnfollowUser_CompensatesOnSecondWriteFailure(t *testing.T) {
	alice := profileWith("alice", "Alice")
	alice.Following = []string{"bob"}
	bob := profileWith("bob", "Bob")
	bob.Followers = []string{"alice"}
	users := newFakeUserRepo(alice, bob)
	users.removeFollowerErr = errors.New("write concern timeout")
	svc := newTestSocialService(users, newFakeWorkoutRepo(), newFakeExerciseRepo())

	err := svc.UnfollowUser(context.Background(), "alice", "bob")
	assert.ErrorIs(t, err, ErrFollowFailed)

	got, _ := users.GetByUID(context.Background(), "alice")
	assert.Equal(t, []string{"bob"}, got.Following, "removal must be rolled back")
}

func TestGetSocialStats_FriendsAreMutualFollows(t *testing.T) {
	alice := profileWith("alice", "Alice")
	alice.Following = []string{"bob", "carol", "dave"}
	alice.Followers = []string{"bob", "dave", "eve"}
	users := newFakeUserRepo(alice)
	svc := newTestSocialService(users, newFakeWorkoutRepo(), newFakeExerciseRepo())

	stats, err := svc.GetSocialStats(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FriendsCount)
	assert.Equal(t, 3, stats.FollowersCount)
	assert.Equal(t, 3, stats.FollowingCount)
}

func TestGetFriends_ReturnsIntersectionProfiles(t *testing.T) {
	alice := profileWith("alice", "Alice")
	alice.Following = []string{"bob", "carol"}
	alice.Followers = []string{"bob"}
	users := newFakeUserRepo(alice, profileWith("bob", "Bob"), profileWith("carol", "Carol"))
	svc := newTestSocialService(users, newFakeWorkoutRepo(), newFakeExerciseRepo())

	friends, err := svc.GetFriends(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "bob", friends[0].UID)
}

func TestGetRecentActivity_EmptyFollowing(t *testing.T) {
	users := newFakeUserRepo(profileWith("alice", "Alice"))
	svc := newTestSocialService(users, newFakeWorkoutRepo(), newFakeExerciseRepo())

	feed, err := svc.GetRecentActivity(context.Background(), "alice", 10)
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestGetRecentActivity_EnrichedSortedAndTruncated(t *testing.T) {
	alice := profileWith("alice", "Alice")
	alice.Following = []string{"bob", "carol"}
	bob := profileWith("bob", "Bob")
	carol := profileWith("carol", "Carol")
	users := newFakeUserRepo(alice, bob, carol)
	workouts := newFakeWorkoutRepo()
	exercises := newFakeExerciseRepo()
	svc := newTestSocialService(users, workouts, exercises)

	now := time.Now().UTC()
	addWorkout := func(uid, title string, age time.Duration, exerciseCount int) {
		id, err := workouts.Create(context.Background(), &domain.Workout{
			UserID: uid,
			Title:  title,
			Date:   now.Add(-age),
		})
		require.NoError(t, err)
		for i := 0; i < exerciseCount; i++ {
			_, err := exercises.Create(context.Background(), &domain.Exercise{
				UserID:    uid,
				Name:      "Squat",
				WorkoutID: &id,
			})
			require.NoError(t, err)
		}
	}

	addWorkout("bob", "Leg Day", 3*time.Hour, 2)
	addWorkout("carol", "Push Day", 1*time.Hour, 4)
	addWorkout("bob", "Pull Day", 2*time.Hour, 1)
	// Outside the 30-day window, must not appear.
	addWorkout("carol", "Ancient", 45*24*time.Hour, 3)

	feed, err := svc.GetRecentActivity(context.Background(), "alice", 2)
	require.NoError(t, err)
	require.Len(t, feed, 2)

	assert.Equal(t, "Push Day", feed[0].WorkoutTitle)
	assert.Equal(t, "Carol", feed[0].UserDisplayName)
	assert.Equal(t, 4, feed[0].ExerciseCount)
	assert.Equal(t, "Pull Day", feed[1].WorkoutTitle)
	assert.Equal(t, "Bob", feed[1].UserDisplayName)
	assert.Equal(t, 1, feed[1].ExerciseCount)
}

func TestGetRecentActivity_DropsWorkoutsWithoutOwnerProfile(t *testing.T) {
	alice := profileWith("alice", "Alice")
	alice.Following = []string{"bob", "ghost"}
	users := newFakeUserRepo(alice, profileWith("bob", "Bob"))
	workouts := newFakeWorkoutRepo()
	svc := newTestSocialService(users, workouts, newFakeExerciseRepo())

	now := time.Now().UTC()
	_, err := workouts.Create(context.Background(), &domain.Workout{UserID: "bob", Title: "Kept", Date: now})
	require.NoError(t, err)
	_, err = workouts.Create(context.Background(), &domain.Workout{UserID: "ghost", Title: "Dropped", Date: now})
	require.NoError(t, err)

	feed, err := svc.GetRecentActivity(context.Background(), "alice", 10)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "Kept", feed[0].WorkoutTitle)
}

func TestSearchUsers_EmptyPrefixReturnsNothing(t *testing.T) {
	users := newFakeUserRepo(profileWith("alice", "Alice"))
	svc := newTestSocialService(users, newFakeWorkoutRepo(), newFakeExerciseRepo())

	results, err := svc.SearchUsers(context.Background(), "", 25)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchUsers_PrefixMatch(t *testing.T) {
	users := newFakeUserRepo(
		profileWith("u1", "Alice"),
		profileWith("u2", "Alex"),
		profileWith("u3", "Bob"),
	)
	svc := newTestSocialService(users, newFakeWorkoutRepo(), newFakeExerciseRepo())

	results, err := svc.SearchUsers(context.Background(), "Al", 25)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Alex", results[0].DisplayName)
	assert.Equal(t, "Alice", results[1].DisplayName)
}

func TestGetRecentActivity_ActivityIDsMatchWorkout(t *testing.T) {
	alice := profileWith("alice", "Alice")
	alice.Following = []string{"bob"}
	users := newFakeUserRepo(alice, profileWith("bob", "Bob"))
	workouts := newFakeWorkoutRepo()
	svc := newTestSocialService(users, workouts, newFakeExerciseRepo())

	id, err := workouts.Create(context.Background(), &domain.Workout{UserID: "bob", Title: "Session", Date: time.Now().UTC()})
	require.NoError(t, err)
	require.NotEqual(t, primitive.NilObjectID, id)

	feed, err := svc.GetRecentActivity(context.Background(), "alice", 10)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, id.Hex(), feed[0].WorkoutID)
	assert.Equal(t, id.Hex(), feed[0].ID)
}

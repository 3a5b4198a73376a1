package service

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"thebes/thebes-server/internal/domain"
	"thebes/thebes-server/internal/repository"

	"github.com/sourcegraph/conc"
)

// --- Error Definitions ---
var (
	ErrProfileNotFound = errors.New("user profile not found")
	ErrSelfFollow      = errors.New("cannot follow your own profile")
	ErrFollowFailed    = errors.New("failed to update follow relationship")
)

// retryPolicy is a bounded fixed-delay retry for profile reads that may race
// a recent write in an eventually consistent deployment. Mutations are never
// retried.
type retryPolicy struct {
	maxAttempts int
	delay       time.Duration
}

var profileReadRetry = retryPolicy{maxAttempts: 3, delay: 500 * time.Millisecond}

// SocialStats are the counters shown on a profile header.
type SocialStats struct {
	FriendsCount   int `json:"friendsCount"`
	FollowersCount int `json:"followersCount"`
	FollowingCount int `json:"followingCount"`
}

// SocialService implements the follow graph mutations and the read-side
// aggregations built on top of them.
type SocialService interface {
	FollowUser(ctx context.Context, currentUID, targetUID string) error
	UnfollowUser(ctx context.Context, currentUID, targetUID string) error
	FollowBackUser(ctx context.Context, currentUID, targetUID string) error

	GetSocialStats(ctx context.Context, uid string) (*SocialStats, error)
	GetFriends(ctx context.Context, uid string) ([]domain.UserProfile, error)
	GetFollowers(ctx context.Context, uid string) ([]domain.UserProfile, error)
	GetFollowing(ctx context.Context, uid string) ([]domain.UserProfile, error)
	GetRecentActivity(ctx context.Context, uid string, limit int) ([]domain.RecentWorkoutActivity, error)
	SearchUsers(ctx context.Context, namePrefix string, limit int64) ([]domain.UserProfile, error)
}

// socialService implements the SocialService interface.
type socialService struct {
	userRepo     repository.UserRepository
	workoutRepo  repository.WorkoutRepository
	exerciseRepo repository.ExerciseRepository
	feedWindow   time.Duration
	feedMaxFetch int
	readRetry    retryPolicy
}

// NewSocialService creates a new instance of socialService.
func NewSocialService(
	userRepo repository.UserRepository,
	workoutRepo repository.WorkoutRepository,
	exerciseRepo repository.ExerciseRepository,
	feedWindow time.Duration,
	feedMaxFetch int,
) SocialService {
	if feedWindow <= 0 {
		feedWindow = 30 * 24 * time.Hour
	}
	if feedMaxFetch <= 0 {
		feedMaxFetch = 50
	}
	return &socialService{
		userRepo:     userRepo,
		workoutRepo:  workoutRepo,
		exerciseRepo: exerciseRepo,
		feedWindow:   feedWindow,
		feedMaxFetch: feedMaxFetch,
		readRetry:    profileReadRetry,
	}
}

// getProfileWithRetry absorbs read-after-write lag: a profile that was just
// written may not be visible to an immediate read.
func (s *socialService) getProfileWithRetry(ctx context.Context, uid string) (*domain.UserProfile, error) {
	var lastErr error
	for attempt := 0; attempt < s.readRetry.maxAttempts; attempt++ {
		profile, err := s.userRepo.GetByUID(ctx, uid)
		if err == nil {
			return profile, nil
		}
		lastErr = err
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if attempt < s.readRetry.maxAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.readRetry.delay):
			}
		}
	}
	return nil, lastErr
}

// === Graph mutations ===
//
// Follow and unfollow touch two documents without a transaction: the current
// user's following list, then the target's followers list. The writes are
// sequential because the second depends on the first succeeding. When the
// second write fails the first is rolled back, so a declared success always
// means both sides were updated.

// FollowUser makes currentUID follow targetUID. Idempotent: following an
// already-followed user is a no-op on both documents.
func (s *socialService) FollowUser(ctx context.Context, currentUID, targetUID string) error {
	if currentUID == targetUID {
		return ErrSelfFollow
	}

	current, err := s.getProfileWithRetry(ctx, currentUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProfileNotFound
		}
		return err
	}

	alreadyFollowing := current.IsFollowing(targetUID)
	if err := s.userRepo.AddFollowing(ctx, currentUID, targetUID); err != nil {
		return err
	}

	// Mirror the edge on the target. A uid without a profile document is a
	// seed account; it gets a seed profile upserted rather than a blind
	// followers overwrite.
	_, err = s.userRepo.GetByUID(ctx, targetUID)
	switch {
	case err == nil:
		err = s.userRepo.AddFollower(ctx, targetUID, currentUID)
	case errors.Is(err, repository.ErrNotFound):
		err = s.userRepo.UpsertSeedWithFollower(ctx, targetUID, currentUID)
	}

	if err != nil {
		// Compensate the first write, unless the edge pre-existed and the
		// first write was a no-op anyway.
		if !alreadyFollowing {
			if rbErr := s.userRepo.RemoveFollowing(ctx, currentUID, targetUID); rbErr != nil {
				log.Printf("follow compensation failed: %s -> %s left half-written: %v", currentUID, targetUID, rbErr)
			}
		}
		return ErrFollowFailed
	}
	return nil
}

// UnfollowUser removes the edge in both directions. Idempotent: unfollowing
// twice yields the same end state as once.
func (s *socialService) UnfollowUser(ctx context.Context, currentUID, targetUID string) error {
	current, err := s.getProfileWithRetry(ctx, currentUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProfileNotFound
		}
		return err
	}

	wasFollowing := current.IsFollowing(targetUID)
	if err := s.userRepo.RemoveFollowing(ctx, currentUID, targetUID); err != nil {
		return err
	}

	err = s.userRepo.RemoveFollower(ctx, targetUID, currentUID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		// Restore consistency: re-add what we removed. A missing target
		// document has no follower entry to remove, so that case is fine.
		if wasFollowing {
			if rbErr := s.userRepo.AddFollowing(ctx, currentUID, targetUID); rbErr != nil {
				log.Printf("unfollow compensation failed: %s -> %s left half-removed: %v", currentUID, targetUID, rbErr)
			}
		}
		return ErrFollowFailed
	}
	return nil
}

// FollowBackUser follows a user from the followers context. Same guard and
// compensation as a regular follow.
func (s *socialService) FollowBackUser(ctx context.Context, currentUID, targetUID string) error {
	return s.FollowUser(ctx, currentUID, targetUID)
}

// === Aggregations ===

// GetSocialStats derives the friend/follower/following counters from one
// profile document. Friends are mutual follows.
func (s *socialService) GetSocialStats(ctx context.Context, uid string) (*SocialStats, error) {
	profile, err := s.getProfileWithRetry(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &SocialStats{
		FriendsCount:   len(profile.Friends()),
		FollowersCount: len(profile.Followers),
		FollowingCount: len(profile.Following),
	}, nil
}

// GetFriends returns the profiles this user mutually follows.
func (s *socialService) GetFriends(ctx context.Context, uid string) ([]domain.UserProfile, error) {
	profile, err := s.getProfileWithRetry(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return s.userRepo.GetByUIDs(ctx, profile.Friends())
}

// GetFollowers returns the profiles following this user.
func (s *socialService) GetFollowers(ctx context.Context, uid string) ([]domain.UserProfile, error) {
	profile, err := s.getProfileWithRetry(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return s.userRepo.GetByUIDs(ctx, profile.Followers)
}

// GetFollowing returns the profiles this user follows.
func (s *socialService) GetFollowing(ctx context.Context, uid string) ([]domain.UserProfile, error) {
	profile, err := s.getProfileWithRetry(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return s.userRepo.GetByUIDs(ctx, profile.Following)
}

// GetRecentActivity builds the feed of recent workouts across followed
// users. It over-fetches (limit*3 capped at the configured max) to absorb
// enrichment losses, fans out the per-owner profile and exercise-count
// lookups concurrently, then sorts by date and truncates.
func (s *socialService) GetRecentActivity(ctx context.Context, uid string, limit int) ([]domain.RecentWorkoutActivity, error) {
	if limit <= 0 {
		limit = 10
	}

	profile, err := s.getProfileWithRetry(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	if len(profile.Following) == 0 {
		return []domain.RecentWorkoutActivity{}, nil
	}

	fetchLimit := int64(limit * 3)
	if fetchLimit > int64(s.feedMaxFetch) {
		fetchLimit = int64(s.feedMaxFetch)
	}
	since := time.Now().UTC().Add(-s.feedWindow)

	workouts, err := s.workoutRepo.GetRecentByOwners(ctx, profile.Following, since, fetchLimit)
	if err != nil {
		return nil, err
	}
	if len(workouts) == 0 {
		return []domain.RecentWorkoutActivity{}, nil
	}

	// Scatter-gather: profiles per unique owner, exercise counts per
	// workout. The wait group is the join barrier before assembly.
	ownerUIDs := make(map[string]struct{})
	for _, w := range workouts {
		ownerUIDs[w.UserID] = struct{}{}
	}

	var (
		mu       sync.Mutex
		profiles = make(map[string]*domain.UserProfile, len(ownerUIDs))
		counts   = make(map[string]int64, len(workouts))
		wg       conc.WaitGroup
	)

	for ownerUID := range ownerUIDs {
		ownerUID := ownerUID
		wg.Go(func() {
			owner, err := s.userRepo.GetByUID(ctx, ownerUID)
			if err != nil {
				// Degrade to "no data": the workout is dropped from the
				// feed rather than surfacing an error.
				return
			}
			mu.Lock()
			profiles[ownerUID] = owner
			mu.Unlock()
		})
	}
	for _, w := range workouts {
		w := w
		wg.Go(func() {
			n, err := s.exerciseRepo.CountByWorkoutID(ctx, w.ID)
			if err != nil {
				return
			}
			mu.Lock()
			counts[w.ID.Hex()] = n
			mu.Unlock()
		})
	}
	wg.Wait()

	activities := make([]domain.RecentWorkoutActivity, 0, len(workouts))
	for _, w := range workouts {
		owner, ok := profiles[w.UserID]
		if !ok {
			continue
		}
		activities = append(activities, domain.RecentWorkoutActivity{
			ID:              w.ID.Hex(),
			WorkoutID:       w.ID.Hex(),
			UserID:          w.UserID,
			WorkoutTitle:    w.Title,
			WorkoutDate:     w.Date,
			UserDisplayName: owner.DisplayName,
			UserProfilePic:  owner.ProfilePic,
			ExerciseCount:   int(counts[w.ID.Hex()]),
		})
	}

	sort.Slice(activities, func(i, j int) bool {
		return activities[i].WorkoutDate.After(activities[j].WorkoutDate)
	})
	if len(activities) > limit {
		activities = activities[:limit]
	}
	return activities, nil
}

// SearchUsers finds profiles by display-name prefix. Case sensitive, exact
// prefix, via the lexicographic range query in the repository.
func (s *socialService) SearchUsers(ctx context.Context, namePrefix string, limit int64) ([]domain.UserProfile, error) {
	if namePrefix == "" {
		return []domain.UserProfile{}, nil
	}
	return s.userRepo.SearchByDisplayNamePrefix(ctx, namePrefix, limit)
}

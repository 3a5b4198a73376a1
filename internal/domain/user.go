package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WeightUnit is the user's preferred display unit. Weights are always
// STORED in kilograms; the unit only affects presentation.
type WeightUnit string

const (
	UnitKilograms WeightUnit = "kg"
	UnitPounds    WeightUnit = "lbs"
)

// UserProfile represents one account's public profile, including its side of
// the social graph. Followers/following hold stable uids, not document IDs.
type UserProfile struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UID          string             `bson:"uid" json:"uid"`                  // Stable user identifier, always present for real users
	DisplayName  string             `bson:"displayName" json:"displayName"`
	Email        string             `bson:"email" json:"email"`              // Should be unique
	PasswordHash string             `bson:"passwordHash,omitempty" json:"-"` // Never expose this via JSON

	ProfilePic          *string    `bson:"profilePic,omitempty" json:"profilePic,omitempty"` // URL to the stored picture
	SelectedAvatar      *string    `bson:"selectedAvatar,omitempty" json:"selectedAvatar,omitempty"`
	UseGradientAvatar   *bool      `bson:"useGradientAvatar,omitempty" json:"useGradientAvatar,omitempty"`
	Tagline             *string    `bson:"tagline,omitempty" json:"tagline,omitempty"`
	PreferredWeightUnit WeightUnit `bson:"preferredWeightUnit" json:"preferredWeightUnit"`
	TrackedExercise     *string    `bson:"trackedExercise,omitempty" json:"trackedExercise,omitempty"` // Exercise pinned on the profile

	// Social graph. Uids, insertion order. Updated via $addToSet/$pull so
	// each entry appears at most once per document.
	Followers []string `bson:"followers,omitempty" json:"followers"`
	Following []string `bson:"following,omitempty" json:"following"`

	// Seed marks a pre-populated demo profile created without the social
	// arrays (they get back-filled on first follow). Discriminant for the
	// two document shapes found in the users collection.
	Seed bool `bson:"seed,omitempty" json:"seed,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	// Password reset state, only set while a reset is pending.
	ResetToken          string     `bson:"resetToken,omitempty" json:"-"`
	ResetTokenExpiresAt *time.Time `bson:"resetTokenExpiresAt,omitempty" json:"-"`
}

// IsFollowing reports whether this profile follows the given uid.
func (p *UserProfile) IsFollowing(uid string) bool {
	for _, f := range p.Following {
		if f == uid {
			return true
		}
	}
	return false
}

// IsFollowedBy reports whether the given uid follows this profile.
func (p *UserProfile) IsFollowedBy(uid string) bool {
	for _, f := range p.Followers {
		if f == uid {
			return true
		}
	}
	return false
}

// IsFriend reports a mutual follow: the uid appears in both lists.
func (p *UserProfile) IsFriend(uid string) bool {
	return p.IsFollowing(uid) && p.IsFollowedBy(uid)
}

// Friends returns the uids this profile both follows and is followed by.
// Duplicates in either list are tolerated; the result is de-duplicated.
func (p *UserProfile) Friends() []string {
	followers := make(map[string]struct{}, len(p.Followers))
	for _, f := range p.Followers {
		followers[f] = struct{}{}
	}
	seen := make(map[string]struct{}, len(p.Following))
	friends := make([]string, 0)
	for _, f := range p.Following {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		if _, ok := followers[f]; ok {
			friends = append(friends, f)
		}
	}
	return friends
}

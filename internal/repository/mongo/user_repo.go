package mongo

import (
	"context"
	"errors"
	"log"
	"time"

	"thebes/thebes-server/internal/domain"
	"thebes/thebes-server/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const userCollectionName = "users"

// PrefixSentinel is appended to a search prefix to form the exclusive upper
// bound of a lexicographic range query: [prefix, prefix+U+F8FF).
const PrefixSentinel = ""

// PrefixRange returns the inclusive lower and exclusive upper bound that
// together emulate a "starts with" query on a sorted string index.
func PrefixRange(prefix string) (lower, upper string) {
	return prefix, prefix + PrefixSentinel
}

// mongoUserRepository implements the repository.UserRepository interface using MongoDB.
type mongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new instance of mongoUserRepository.
// It expects a connected *mongo.Database instance.
func NewMongoUserRepository(db *mongo.Database) repository.UserRepository {
	return &mongoUserRepository{
		collection: db.Collection(userCollectionName),
	}
}

// normalizeProfile back-fills the social arrays on documents that were
// written without them (seed profiles), so callers never see nil lists.
func normalizeProfile(p *domain.UserProfile) {
	if p.Followers == nil {
		p.Followers = []string{}
	}
	if p.Following == nil {
		p.Following = []string{}
	}
}

// Create inserts a new user profile.
func (r *mongoUserRepository) Create(ctx context.Context, profile *domain.UserProfile) (primitive.ObjectID, error) {
	if profile.UID == "" || profile.Email == "" {
		return primitive.NilObjectID, errors.New("profile uid and email are required")
	}

	profile.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	if profile.PreferredWeightUnit == "" {
		profile.PreferredWeightUnit = domain.UnitKilograms
	}

	result, err := r.collection.InsertOne(ctx, profile)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, errors.New("user with this email already exists")
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByUID retrieves a profile by its stable user identifier.
func (r *mongoUserRepository) GetByUID(ctx context.Context, uid string) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	err := r.collection.FindOne(ctx, bson.M{"uid": uid}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	normalizeProfile(&profile)
	return &profile, nil
}

// GetByEmail retrieves a profile by its email address.
func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	normalizeProfile(&profile)
	return &profile, nil
}

// GetByUIDs batch-fetches profiles whose uid appears in the given list.
// Missing uids are simply absent from the result, not an error.
func (r *mongoUserRepository) GetByUIDs(ctx context.Context, uids []string) ([]domain.UserProfile, error) {
	if len(uids) == 0 {
		return []domain.UserProfile{}, nil
	}

	var profiles []domain.UserProfile
	cursor, err := r.collection.Find(ctx, bson.M{"uid": bson.M{"$in": uids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &profiles); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	for i := range profiles {
		normalizeProfile(&profiles[i])
	}
	return profiles, nil
}

// SearchByDisplayNamePrefix finds profiles whose displayName starts with the
// given prefix, using the closed range [prefix, prefix+U+F8FF). Case
// sensitive, exact prefix only.
func (r *mongoUserRepository) SearchByDisplayNamePrefix(ctx context.Context, prefix string, limit int64) ([]domain.UserProfile, error) {
	if prefix == "" {
		return []domain.UserProfile{}, nil
	}
	lower, upper := PrefixRange(prefix)
	filter := bson.M{"displayName": bson.M{"$gte": lower, "$lt": upper}}
	findOptions := options.Find().SetSort(bson.D{{Key: "displayName", Value: 1}})
	if limit > 0 {
		findOptions.SetLimit(limit)
	}

	var profiles []domain.UserProfile
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &profiles); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	for i := range profiles {
		normalizeProfile(&profiles[i])
	}
	return profiles, nil
}

// UpdateFields applies a partial update of the editable profile attributes.
func (r *mongoUserRepository) UpdateFields(ctx context.Context, uid string, fields repository.ProfileFields) error {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if fields.DisplayName != nil {
		set["displayName"] = *fields.DisplayName
	}
	if fields.ProfilePic != nil {
		set["profilePic"] = *fields.ProfilePic
	}
	if fields.SelectedAvatar != nil {
		set["selectedAvatar"] = *fields.SelectedAvatar
	}
	if fields.UseGradientAvatar != nil {
		set["useGradientAvatar"] = *fields.UseGradientAvatar
	}
	if fields.Tagline != nil {
		set["tagline"] = *fields.Tagline
	}
	if fields.PreferredWeightUnit != nil {
		set["preferredWeightUnit"] = *fields.PreferredWeightUnit
	}
	if fields.TrackedExercise != nil {
		set["trackedExercise"] = *fields.TrackedExercise
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"uid": uid}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdatePasswordHash replaces the stored password hash.
func (r *mongoUserRepository) UpdatePasswordHash(ctx context.Context, uid, hash string) error {
	update := bson.M{"$set": bson.M{"passwordHash": hash, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"uid": uid}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetResetToken stores a pending password-reset token with its expiry.
func (r *mongoUserRepository) SetResetToken(ctx context.Context, uid, token string, expiresAt time.Time) error {
	update := bson.M{"$set": bson.M{
		"resetToken":          token,
		"resetTokenExpiresAt": expiresAt.UTC(),
		"updatedAt":           time.Now().UTC(),
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"uid": uid}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetByResetToken retrieves the profile holding a pending reset token.
func (r *mongoUserRepository) GetByResetToken(ctx context.Context, token string) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	err := r.collection.FindOne(ctx, bson.M{"resetToken": token}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	normalizeProfile(&profile)
	return &profile, nil
}

// ClearResetToken removes any pending reset token.
func (r *mongoUserRepository) ClearResetToken(ctx context.Context, uid string) error {
	update := bson.M{
		"$unset": bson.M{"resetToken": "", "resetTokenExpiresAt": ""},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"uid": uid}, update)
	return err
}

// --- Social graph array updates ---
// $addToSet/$pull keep each single-document update idempotent and safe under
// concurrent writers touching different entries.

// AddFollowing records that uid follows targetUID.
func (r *mongoUserRepository) AddFollowing(ctx context.Context, uid, targetUID string) error {
	return r.arrayUpdate(ctx, uid, bson.M{"$addToSet": bson.M{"following": targetUID}})
}

// RemoveFollowing removes targetUID from uid's following list.
func (r *mongoUserRepository) RemoveFollowing(ctx context.Context, uid, targetUID string) error {
	return r.arrayUpdate(ctx, uid, bson.M{"$pull": bson.M{"following": targetUID}})
}

// AddFollower records that followerUID follows uid.
func (r *mongoUserRepository) AddFollower(ctx context.Context, uid, followerUID string) error {
	return r.arrayUpdate(ctx, uid, bson.M{"$addToSet": bson.M{"followers": followerUID}})
}

// RemoveFollower removes followerUID from uid's followers list.
func (r *mongoUserRepository) RemoveFollower(ctx context.Context, uid, followerUID string) error {
	return r.arrayUpdate(ctx, uid, bson.M{"$pull": bson.M{"followers": followerUID}})
}

func (r *mongoUserRepository) arrayUpdate(ctx context.Context, uid string, update bson.M) error {
	update["$set"] = bson.M{"updatedAt": time.Now().UTC()}
	result, err := r.collection.UpdateOne(ctx, bson.M{"uid": uid}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	// ModifiedCount may be 0 when the entry was already present/absent;
	// that is the idempotent no-op case.
	return nil
}

// UpsertSeedWithFollower creates a seed profile for a uid that has no
// document yet and records the follower. $addToSet on an upsert never
// clobbers followers a seed account may already have.
func (r *mongoUserRepository) UpsertSeedWithFollower(ctx context.Context, uid, followerUID string) error {
	now := time.Now().UTC()
	update := bson.M{
		"$addToSet": bson.M{"followers": followerUID},
		"$set":      bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{
			"uid":                 uid,
			"displayName":         "",
			"seed":                true,
			"preferredWeightUnit": domain.UnitKilograms,
			"createdAt":           now,
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"uid": uid}, update, options.Update().SetUpsert(true))
	return err
}

// Delete removes a profile document.
func (r *mongoUserRepository) Delete(ctx context.Context, uid string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"uid": uid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureUserIndexes creates necessary indexes for the users collection.
// Call this once during application startup.
func EnsureUserIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "uid", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true), // Seed profiles have no email
		},
		{
			// Backs the displayName prefix range query.
			Keys:    bson.D{{Key: "displayName", Value: 1}},
			Options: options.Index(),
		},
	}

	// Index creation failure is not fatal; queries still work unindexed.
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("WARN: could not ensure user indexes: %v", err)
	}
}

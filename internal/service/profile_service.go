package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"thebes/thebes-server/internal/domain"
	"thebes/thebes-server/internal/repository"
	"thebes/thebes-server/internal/storage"

	"github.com/google/uuid"
)

// --- Error Definitions ---
var (
	ErrUploadURLError     = errors.New("failed to generate upload URL")
	ErrInvalidContentType = errors.New("invalid or missing image content type")
)

// UploadURLResponse carries the presigned URL plus the key the client must
// report back when confirming the upload.
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"`
}

// ProfileService handles profile reads and edits, including the profile
// picture upload flow.
type ProfileService interface {
	GetProfile(ctx context.Context, uid string) (*domain.UserProfile, error)
	UpdateProfile(ctx context.Context, uid string, fields repository.ProfileFields) (*domain.UserProfile, error)
	RequestPictureUploadURL(ctx context.Context, uid, contentType string) (*UploadURLResponse, error)
	ConfirmPicture(ctx context.Context, uid, objectKey string) (*domain.UserProfile, error)
}

// profileService implements the ProfileService interface.
type profileService struct {
	userRepo    repository.UserRepository
	fileStorage storage.FileStorage
}

// NewProfileService creates a new instance of profileService.
func NewProfileService(userRepo repository.UserRepository, fileStorage storage.FileStorage) ProfileService {
	return &profileService{
		userRepo:    userRepo,
		fileStorage: fileStorage,
	}
}

// GetProfile retrieves a profile by uid.
func (s *profileService) GetProfile(ctx context.Context, uid string) (*domain.UserProfile, error) {
	profile, err := s.userRepo.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	profile.PasswordHash = ""
	return profile, nil
}

// UpdateProfile applies a partial edit of the display fields and returns the
// refreshed profile.
func (s *profileService) UpdateProfile(ctx context.Context, uid string, fields repository.ProfileFields) (*domain.UserProfile, error) {
	if fields.PreferredWeightUnit != nil {
		unit := *fields.PreferredWeightUnit
		if unit != domain.UnitKilograms && unit != domain.UnitPounds {
			return nil, fmt.Errorf("unsupported weight unit %q", unit)
		}
	}

	if err := s.userRepo.UpdateFields(ctx, uid, fields); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return s.GetProfile(ctx, uid)
}

// RequestPictureUploadURL generates a presigned PUT URL for a new profile
// picture.
func (s *profileService) RequestPictureUploadURL(ctx context.Context, uid, contentType string) (*UploadURLResponse, error) {
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return nil, ErrInvalidContentType
	}

	fileExtension := ""
	if parts := strings.Split(contentType, "/"); len(parts) == 2 {
		fileExtension = parts[1]
	}
	objectKey := path.Join("avatars", uid, fmt.Sprintf("%s.%s", uuid.NewString(), fileExtension))

	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, ErrUploadURLError
	}
	return &UploadURLResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

// ConfirmPicture records the uploaded object's public URL on the profile.
// Called after the client has PUT the file to the presigned URL.
func (s *profileService) ConfirmPicture(ctx context.Context, uid, objectKey string) (*domain.UserProfile, error) {
	if objectKey == "" {
		return nil, errors.New("object key is required")
	}
	publicURL := s.fileStorage.PublicURL(objectKey)
	return s.UpdateProfile(ctx, uid, repository.ProfileFields{ProfilePic: &publicURL})
}

package service

import (
	"context"
	"errors"
	"log"
	"time"

	"thebes/thebes-server/internal/domain"
	"thebes/thebes-server/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// --- Error Definitions ---
var (
	ErrUserAlreadyExists    = errors.New("user with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed: invalid email or password")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
	ErrResetTokenInvalid    = errors.New("password reset token is invalid or expired")
)

const resetTokenTTL = 1 * time.Hour

// AuthService handles identity: registration, login, password reset, and
// account deletion with its cascade.
type AuthService interface {
	Register(ctx context.Context, displayName, email, password string) (*domain.UserProfile, error)
	Login(ctx context.Context, email, password string) (token string, profile *domain.UserProfile, err error)
	RequestPasswordReset(ctx context.Context, email string) (resetToken string, err error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	DeleteAccount(ctx context.Context, uid, password string) error
	GetJWTSecret() string
}

// authService implements the AuthService interface.
type authService struct {
	userRepo      repository.UserRepository
	workoutRepo   repository.WorkoutRepository
	templateRepo  repository.TemplateRepository
	exerciseRepo  repository.ExerciseRepository
	jwtSecret     string
	jwtExpiration time.Duration
}

// NewAuthService creates a new instance of authService.
func NewAuthService(
	userRepo repository.UserRepository,
	workoutRepo repository.WorkoutRepository,
	templateRepo repository.TemplateRepository,
	exerciseRepo repository.ExerciseRepository,
	jwtSecret string,
	jwtExpiration time.Duration,
) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour * 24
	}
	return &authService{
		userRepo:      userRepo,
		workoutRepo:   workoutRepo,
		templateRepo:  templateRepo,
		exerciseRepo:  exerciseRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

// Register handles new user registration and creates the profile document.
func (s *authService) Register(ctx context.Context, displayName, email, password string) (*domain.UserProfile, error) {
	if displayName == "" || email == "" || password == "" {
		return nil, errors.New("display name, email, and password cannot be empty")
	}

	// Check if the email is already taken.
	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrHashingFailed
	}

	profile := &domain.UserProfile{
		UID:                 uuid.NewString(),
		DisplayName:         displayName,
		Email:               email,
		PasswordHash:        string(hashedPassword),
		PreferredWeightUnit: domain.UnitKilograms,
		Followers:           []string{},
		Following:           []string{},
	}

	profileID, err := s.userRepo.Create(ctx, profile)
	if err != nil {
		// Unique index on email catches the race between the existence
		// check and the insert.
		return nil, err
	}
	profile.ID = profileID

	profile.PasswordHash = ""
	return profile, nil
}

// Login handles user authentication and JWT generation.
func (s *authService) Login(ctx context.Context, email, password string) (token string, profile *domain.UserProfile, err error) {
	if email == "" || password == "" {
		err = errors.New("email and password cannot be empty")
		return
	}

	profile, err = s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = ErrAuthenticationFailed
			return
		}
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password))
	if err != nil {
		err = ErrAuthenticationFailed
		profile = nil
		return
	}

	token, err = s.generateJWT(profile)
	if err != nil {
		return "", nil, ErrTokenGeneration
	}

	profile.PasswordHash = ""
	return token, profile, nil
}

// RequestPasswordReset issues a bounded-lifetime reset token. The token is
// returned to the caller; delivery is outside this service's concern.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	profile, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	token := uuid.NewString()
	expiresAt := time.Now().UTC().Add(resetTokenTTL)
	if err := s.userRepo.SetResetToken(ctx, profile.UID, token, expiresAt); err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword redeems a reset token and installs the new password.
func (s *authService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" || newPassword == "" {
		return errors.New("reset token and new password cannot be empty")
	}

	profile, err := s.userRepo.GetByResetToken(ctx, resetToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}
	if profile.ResetTokenExpiresAt == nil || profile.ResetTokenExpiresAt.Before(time.Now().UTC()) {
		return ErrResetTokenInvalid
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return ErrHashingFailed
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, profile.UID, string(hashedPassword)); err != nil {
		return err
	}
	return s.userRepo.ClearResetToken(ctx, profile.UID)
}

// DeleteAccount verifies the password, then removes the profile and every
// document it owns: workouts, templates, and exercise records.
func (s *authService) DeleteAccount(ctx context.Context, uid, password string) error {
	profile, err := s.userRepo.GetByUID(ctx, uid)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return ErrAuthenticationFailed
	}

	// Dependent documents first, profile last, so a failure part-way leaves
	// an account that can retry deletion rather than an orphaned data set.
	if err := s.exerciseRepo.DeleteByUserID(ctx, uid); err != nil {
		return err
	}
	if err := s.workoutRepo.DeleteByUserID(ctx, uid); err != nil {
		return err
	}
	if err := s.templateRepo.DeleteByUserID(ctx, uid); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, uid); err != nil {
		log.Printf("account deletion: dependent data removed but profile delete failed for uid %s: %v", uid, err)
		return err
	}
	return nil
}

// --- JWT Helper ---

// jwtClaims defines the structure of the JWT payload.
type jwtClaims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// generateJWT creates a new JWT token for the given user.
func (s *authService) generateJWT(profile *domain.UserProfile) (string, error) {
	expirationTime := time.Now().Add(s.jwtExpiration)
	claims := &jwtClaims{
		UID: profile.UID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.UID,
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "thebes",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// GetJWTSecret returns the JWT secret for middleware authentication.
func (s *authService) GetJWTSecret() string {
	return s.jwtSecret
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mind-scribe/internal/config"
	"mind-scribe/internal/utils/crypto"
	"mind-scribe/internal/utils/sanitize"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Service handles authentication business logic
type Service struct {
	repo    UsersRepo
	renamer CollaboratorRenamer
	config  config.Config
	log     *slog.Logger
	now     func() time.Time
}

// NewService creates a new auth service. renamer may be nil when email
// changes do not need to propagate.
func NewService(repo UsersRepo, renamer CollaboratorRenamer, cfg config.Config, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		renamer: renamer,
		config:  cfg,
		log:     log,
		now:     time.Now,
	}
}

// Claims is the identity carried by a verified session token.
type Claims struct {
	UserID string
	Email  string
}

// Register creates a new account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	email := normalizeEmail(req.Email)

	if !crypto.IsStrong(req.Password) {
		return nil, crypto.ErrPasswordStrength
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrDuplicate
	}
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		s.log.Error("failed to look up email", "error", err)
		return nil, ErrRegistration
	}

	hash, err := crypto.HashPassword(req.Password, s.config.BcryptCost)
	if err != nil {
		s.log.Error("failed to hash password", "error", err)
		return nil, ErrRegistration
	}

	now := s.now().UTC()
	user := &User{
		ID:           bson.NewObjectID(),
		Fullname:     sanitize.Clean(req.Fullname),
		Email:        email,
		PasswordHash: hash,
		Avatar:       s.config.DefaultAvatar,
		Notes:        []bson.ObjectID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrDuplicate
		}
		s.log.Error("failed to create user", "error", err)
		return nil, ErrRegistration
	}

	return user, nil
}

// Login checks credentials and issues a session token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (string, error) {
	email := normalizeEmail(req.Email)

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			s.log.Error("failed to find user by email", "error", err)
		}
		return "", ErrInvalidCredentials
	}

	if err := crypto.CheckPassword(req.Password, user.PasswordHash); err != nil {
		s.log.Warn("password check failed", "userID", user.ID.Hex())
		return "", ErrInvalidCredentials
	}

	token, err := s.generateJWT(user)
	if err != nil {
		s.log.Error("failed to generate token", "error", err)
		return "", ErrGenAccessToken
	}
	return token, nil
}

// VerifyToken validates a raw bearer token and returns its identity.
func (s *Service) VerifyToken(raw string) (*Claims, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, ErrInvalidTokenMissingUserID
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return nil, ErrInvalidTokenMissingEmail
	}
	return &Claims{UserID: userID, Email: email}, nil
}

// Me returns the caller's profile.
func (s *Service) Me(ctx context.Context, userID bson.ObjectID) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

// UpdateProfile replaces fullname, email and avatar. A changed email is
// renamed inside every collaborator list so shared notes stay visible.
func (s *Service) UpdateProfile(ctx context.Context, userID bson.ObjectID, req UpdateProfileRequest) (*User, error) {
	current, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	avatar := strings.TrimSpace(req.Avatar)
	if avatar == "" {
		avatar = current.Avatar
	}

	updated, err := s.repo.UpdateProfile(ctx, userID, sanitize.Clean(req.Fullname), email, avatar)
	if err != nil {
		if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		s.log.Error("failed to update profile", "userID", userID.Hex(), "error", err)
		return nil, ErrUpdateProfile
	}

	// The stored email only moves once every collaborator list has followed,
	// so a failed rename is restored and a retry renames again.
	if email != current.Email && s.renamer != nil {
		if err := s.renamer.RenameCollaborator(ctx, current.Email, email); err != nil {
			s.log.Error("failed to rename collaborator", "userID", userID.Hex(), "error", err)
			if _, rerr := s.repo.UpdateProfile(ctx, userID, current.Fullname, current.Email, current.Avatar); rerr != nil {
				s.log.Error("failed to restore profile after rename failure", "userID", userID.Hex(), "error", rerr)
			}
			return nil, ErrUpdateProfile
		}
	}

	return updated, nil
}

// ChangePassword replaces the password after checking the old one.
func (s *Service) ChangePassword(ctx context.Context, userID bson.ObjectID, req ChangePasswordRequest) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := crypto.CheckPassword(req.OldPassword, user.PasswordHash); err != nil {
		return ErrOldPasswordIncorrect
	}
	if !crypto.IsStrong(req.NewPassword) {
		return crypto.ErrPasswordStrength
	}

	hash, err := crypto.HashPassword(req.NewPassword, s.config.BcryptCost)
	if err != nil {
		s.log.Error("failed to hash password", "userID", userID.Hex(), "error", err)
		return ErrChangePass
	}

	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		s.log.Error("failed to store password", "userID", userID.Hex(), "error", err)
		return ErrChangePass
	}
	return nil
}

func (s *Service) generateJWT(user *User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": user.ID.Hex(),
		"email":   user.Email,
		"exp":     now.Add(time.Duration(s.config.TokenTTLHours) * time.Hour).Unix(),
		"iat":     now.Unix(),
	}

	if !strings.EqualFold(s.config.JWTAlgorithm, "HS256") {
		return "", fmt.Errorf("unsupported JWT algorithm %q", s.config.JWTAlgorithm)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// normalizeEmail trims surrounding whitespace. Emails are compared
// case-sensitively everywhere, including collaborator lists.
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

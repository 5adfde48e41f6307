// Package services contains server-side business logic. This file implements
// UserService: registration, login, session token issuance, and profile and
// password maintenance.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/avolkovs/taskdeck/internal/common"
	"github.com/avolkovs/taskdeck/internal/cryptox"
	"github.com/avolkovs/taskdeck/internal/dbx"
	"github.com/avolkovs/taskdeck/internal/server/auth"
	"github.com/avolkovs/taskdeck/internal/server/config"
	"github.com/avolkovs/taskdeck/internal/server/models"
	"github.com/avolkovs/taskdeck/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

var emailRegexp = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// UserService provides authentication-related operations:
//   - Register: create accounts
//   - Login: verify credentials and mint session tokens
//   - CurrentUser: resolve a verified token back to its profile
//   - UpdateProfile / UpdatePassword: owner-scoped account maintenance
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	config                       *config.Config
	jwtSecret                    []byte
	sessionTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		config:                       cfg,
		jwtSecret:                    []byte(cfg.SecretKey),
		sessionTokenValidityDuration: cfg.SessionTokenValidityDuration,
	}
}

// UpdateProfileParams carries the optional profile fields; nil means
// untouched.
type UpdateProfileParams struct {
	Name      *string
	Email     *string
	AvatarKey *string
}

// Register creates a new account. A duplicate email (case-insensitive)
// yields common.ErrorAlreadyExists. The lookup and insert run inside one
// transaction so concurrent registrations of the same email cannot both
// succeed.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	salt := cryptox.GenerateSalt()
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: cryptox.HashPassword(password, salt),
		Salt:         salt,
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetByEmail(ctx, email)
		if err == nil {
			return common.ErrorAlreadyExists
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("error checking email: %w", err)
		}

		user, err = repo.Create(ctx, user)
		return err
	}); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return user, nil
}

// Login verifies the credentials and, on success, returns a fresh session
// token plus the profile. An unknown email and a wrong password produce the
// same ErrorUnauthorized, so callers cannot probe which emails exist.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil, common.ErrorUnauthorized
		}
		return "", nil, common.ErrorInternal
	}

	if !cryptox.VerifyPassword(password, user.Salt, user.PasswordHash) {
		return "", nil, common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.sessionTokenValidityDuration)
	if err != nil {
		return "", nil, common.ErrorInternal
	}

	return token, user, nil
}

// CurrentUser resolves a verified user id back to the stored profile. A
// token whose user no longer resolves is treated as unauthorized; there is
// no partial-trust state.
func (s *UserService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	return user, nil
}

// UpdateProfile applies the provided fields to the caller's own profile.
// Changing the email re-checks uniqueness case-insensitively.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, params UpdateProfileParams) (*models.User, error) {
	if params.Name != nil {
		if err := validateName(*params.Name); err != nil {
			return nil, err
		}
	}
	if params.Email != nil {
		if err := validateEmail(*params.Email); err != nil {
			return nil, err
		}
	}

	var user *models.User
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		var err error
		user, err = repo.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		if params.Name != nil {
			user.Name = *params.Name
		}
		if params.Email != nil {
			other, err := repo.GetByEmail(ctx, *params.Email)
			if err == nil && other.ID != userID {
				return common.ErrorAlreadyExists
			}
			if err != nil && !errors.Is(err, common.ErrorNotFound) {
				return err
			}
			user.Email = *params.Email
		}
		if params.AvatarKey != nil {
			user.AvatarKey = *params.AvatarKey
		}

		return repo.UpdateProfile(ctx, user)
	}); err != nil {
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			return nil, common.ErrorAlreadyExists
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.ErrorUnauthorized
		default:
			return nil, fmt.Errorf("error updating profile: %w", err)
		}
	}

	return user, nil
}

// UpdatePassword re-authenticates with the old password before storing a new
// salted digest. A mismatch is ErrorUnauthorized, same as a bad login.
func (s *UserService) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return common.ErrorInternal
	}

	if !cryptox.VerifyPassword(oldPassword, user.Salt, user.PasswordHash) {
		return common.ErrorUnauthorized
	}

	salt := cryptox.GenerateSalt()
	digest := cryptox.HashPassword(newPassword, salt)

	if err := repo.UpdatePassword(ctx, userID, digest, salt); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}

	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name must be provided", common.ErrorValidation)
	}
	if len(name) > 255 {
		return fmt.Errorf("%w: name must be at most 255 characters", common.ErrorValidation)
	}
	return nil
}

func validateEmail(email string) error {
	if !emailRegexp.MatchString(email) {
		return fmt.Errorf("%w: email must be a valid address", common.ErrorValidation)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", common.ErrorValidation)
	}
	if len(password) > 72 {
		return fmt.Errorf("%w: password must be at most 72 characters", common.ErrorValidation)
	}
	return nil
}

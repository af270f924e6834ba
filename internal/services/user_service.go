package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ledger/internal/core"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// UserService manages accounts. It is used by the admin CLI and by the
// identity middleware; it never issues credentials.
type UserService struct {
	store UserStore
	now   func() time.Time
	cost  int
}

func NewUserService(store UserStore) *UserService {
	return &UserService{
		store: store,
		now:   time.Now,
		cost:  bcrypt.DefaultCost,
	}
}

// Register creates an active account with a bcrypt hashed password.
func (s *UserService) Register(ctx context.Context, username, email, password string, role core.Role) (core.User, error) {
	if role == "" {
		role = core.RoleUser
	}
	if len(password) < minPasswordLength {
		return core.User{}, core.NewValidationError("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	now := s.now()
	u := core.User{
		ID:        uuid.NewString(),
		Username:  strings.TrimSpace(username),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Role:      role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)

	return s.store.CreateUser(ctx, u)
}

// Authenticate checks a username and password pair. Unknown users, inactive
// users and wrong passwords all report NotFound.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (core.User, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return core.User{}, err
	}
	if !u.Active {
		return core.User{}, core.NewNotFoundError("user", username)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return core.User{}, core.NewNotFoundError("user", username)
		}
		return core.User{}, fmt.Errorf("compare password: %w", err)
	}
	return u, nil
}

// ActiveUser returns the user behind an owner id, failing with NotFound if
// the account is missing or disabled.
func (s *UserService) ActiveUser(ctx context.Context, id string) (core.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return core.User{}, err
	}
	if !u.Active {
		return core.User{}, core.NewNotFoundError("user", id)
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context) ([]core.User, error) {
	return s.store.ListUsers(ctx)
}

// SetActive enables or disables the account named by username.
func (s *UserService) SetActive(ctx context.Context, username string, active bool) (core.User, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return core.User{}, err
	}
	if err := s.store.SetUserActive(ctx, u.ID, active, s.now()); err != nil {
		return core.User{}, err
	}
	u.Active = active
	slog.InfoContext(ctx, "User activation updated", "username", u.Username, "active", active)
	return u, nil
}

// Profile returns the caller's own account.
func (s *UserService) Profile(ctx context.Context, id string) (core.User, error) {
	return s.ActiveUser(ctx, id)
}

// UpdateProfile renames the account. A taken username is a ConflictError.
func (s *UserService) UpdateProfile(ctx context.Context, id, username string) (core.User, error) {
	u, err := s.ActiveUser(ctx, id)
	if err != nil {
		return core.User{}, err
	}
	u.Username = strings.TrimSpace(username)
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	return s.store.UpdateUsername(ctx, id, u.Username, s.now())
}

// ChangePassword replaces the password after checking the current one.
// A wrong current password is a ValidationError on currentPassword.
func (s *UserService) ChangePassword(ctx context.Context, id, current, next, confirm string) error {
	switch {
	case current == "":
		return core.NewValidationError("currentPassword", "is required")
	case next == "":
		return core.NewValidationError("newPassword", "is required")
	case confirm == "":
		return core.NewValidationError("confirmPassword", "is required")
	case next != confirm:
		return core.NewValidationError("confirmPassword", "must match newPassword")
	case len(next) < minPasswordLength:
		return core.NewValidationError("newPassword", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	u, err := s.ActiveUser(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return core.NewValidationError("currentPassword", "is incorrect")
		}
		return fmt.Errorf("compare password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.SetUserPassword(ctx, id, string(hash), s.now())
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/eventsphere/eventsphere/internal/auth"
	apperrors "github.com/eventsphere/eventsphere/internal/errors"
	"github.com/eventsphere/eventsphere/internal/store"
	"github.com/eventsphere/eventsphere/pkg/types"
)

// RegisterUserInput holds the fields of a new account. All are required.
type RegisterUserInput struct {
	Username string
	Email    string
	Password string
	Role     types.Role
}

// UpdateUserInput replaces every mutable field of an account.
type UpdateUserInput = RegisterUserInput

func (in RegisterUserInput) validate() error {
	if err := requireFields("username", in.Username, "email", in.Email, "password", in.Password); err != nil {
		return err
	}
	if !in.Role.Valid() {
		return apperrors.NewValidationError(apperrors.CodeInvalidRole, "unknown role")
	}
	return nil
}

// RegisterUser creates an account. Usernames are unique.
func (s *Service) RegisterUser(ctx context.Context, in RegisterUserInput) (*types.User, error) {
	start := time.Now()
	if err := in.validate(); err != nil {
		s.observe(ctx, "register_user", true, start, err, []any{"username", in.Username})
		return nil, err
	}
	hash, err := s.auth.Hasher().Hash(in.Password)
	if err != nil {
		err = apperrors.NewInternalError("failed to hash password", err)
		s.observe(ctx, "register_user", true, start, err, []any{"username", in.Username})
		return nil, err
	}

	var user types.User
	err = s.update(ctx, "register_user", func(tx store.Tx) error {
		if err := s.requireUsernameFree(tx, in.Username, nil); err != nil {
			return err
		}
		id, err := s.userIDs.Next(tx)
		if err != nil {
			return err
		}
		user = types.User{
			ID:           id,
			Username:     in.Username,
			Email:        in.Email,
			PasswordHash: hash,
			Role:         in.Role,
			CreatedAt:    s.clock.Now().UnixNano(),
		}
		_, err = s.users.Put(tx, user)
		return err
	}, "username", in.Username)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser returns the account with id.
func (s *Service) GetUser(ctx context.Context, id uint64) (*types.User, error) {
	var user *types.User
	err := s.view(ctx, "get_user", func(tx store.Tx) error {
		var err error
		user, err = s.requireUser(tx, id)
		return err
	}, "user_id", id)
	return user, err
}

// UpdateUser replaces the fields of account id. The caller must be an
// admin or the account itself, and only an admin may grant Admin.
func (s *Service) UpdateUser(ctx context.Context, id uint64, in UpdateUserInput, creds auth.Credentials) (*types.User, error) {
	// Hashing is slow; do it before entering the write transaction.
	var hash string
	if in.Password != "" {
		start := time.Now()
		var err error
		if hash, err = s.auth.Hasher().Hash(in.Password); err != nil {
			err = apperrors.NewInternalError("failed to hash password", err)
			s.observe(ctx, "update_user", true, start, err, []any{"user_id", id})
			return nil, err
		}
	}

	var updated types.User
	err := s.update(ctx, "update_user", func(tx store.Tx) error {
		caller, err := s.authorizeAccount(tx, id, creds)
		if err != nil {
			return err
		}
		if err := in.validate(); err != nil {
			return err
		}
		if in.Role == types.RoleAdmin && caller.Role != types.RoleAdmin {
			return apperrors.NewUnauthorizedError(apperrors.CodeInsufficientPrivileges, "insufficient privileges")
		}

		current, err := s.requireUser(tx, id)
		if err != nil {
			return err
		}
		if err := s.requireUsernameFree(tx, in.Username, &id); err != nil {
			return err
		}

		now := s.clock.Now().UnixNano()
		updated = types.User{
			ID:           current.ID,
			Username:     in.Username,
			Email:        in.Email,
			PasswordHash: hash,
			Role:         in.Role,
			CreatedAt:    current.CreatedAt,
			UpdatedAt:    &now,
		}
		_, err = s.users.Put(tx, updated)
		return err
	}, "user_id", id, "caller", creds.Username)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteUser removes account id. The caller must be an admin or the
// account itself.
func (s *Service) DeleteUser(ctx context.Context, id uint64, creds auth.Credentials) (*types.User, error) {
	var removed *types.User
	err := s.update(ctx, "delete_user", func(tx store.Tx) error {
		if _, err := s.authorizeAccount(tx, id, creds); err != nil {
			return err
		}
		var err error
		removed, err = s.users.Remove(tx, id)
		if err != nil {
			return err
		}
		if removed == nil {
			return userNotFound(id)
		}
		return nil
	}, "user_id", id, "caller", creds.Username)
	return removed, err
}

// authorizeAccount authenticates creds and requires the caller to be an
// admin or the owner of account id.
func (s *Service) authorizeAccount(tx store.Tx, id uint64, creds auth.Credentials) (*types.User, error) {
	caller, err := s.auth.Authenticate(tx, creds, types.RoleUser)
	if err != nil {
		return nil, err
	}
	if caller.Role != types.RoleAdmin && caller.ID != id {
		return nil, apperrors.NewUnauthorizedError(apperrors.CodeInsufficientPrivileges, "insufficient privileges")
	}
	return caller, nil
}

func (s *Service) requireUser(tx store.Tx, id uint64) (*types.User, error) {
	u, err := s.users.Get(tx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, userNotFound(id)
	}
	return u, nil
}

// requireUsernameFree fails when another account, other than except,
// already holds username.
func (s *Service) requireUsernameFree(tx store.Tx, username string, except *uint64) error {
	existing, err := s.users.FindByUsername(tx, username)
	if err != nil {
		return err
	}
	if existing != nil && (except == nil || existing.ID != *except) {
		return apperrors.NewConflictError(apperrors.CodeUsernameTaken,
			fmt.Sprintf("username %q is already taken", username))
	}
	return nil
}

func userNotFound(id uint64) error {
	return apperrors.NewNotFoundError(apperrors.CodeUserNotFound, fmt.Sprintf("user %d not found", id))
}

// Package auth verifies user credentials and role requirements.
package auth

import (
	"fmt"

	apperrors "github.com/eventsphere/eventsphere/internal/errors"
	"github.com/eventsphere/eventsphere/internal/repository"
	"github.com/eventsphere/eventsphere/internal/store"
	"github.com/eventsphere/eventsphere/pkg/types"
)

// Credentials are the username and plaintext password a caller presents.
type Credentials struct {
	Username string
	Password string
}

// Authenticator checks credentials against the users repository. New
// passwords are hashed with its hasher; stored ones are verified by their
// own format.
type Authenticator struct {
	users  *repository.Users
	hasher Hasher
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(users *repository.Users, hasher Hasher) *Authenticator {
	return &Authenticator{users: users, hasher: hasher}
}

// Hasher returns the hasher used for new passwords.
func (a *Authenticator) Hasher() Hasher {
	return a.hasher
}

// Authenticate resolves creds to the first user with that username and
// checks the password and role. There is no lockout or session state.
func (a *Authenticator) Authenticate(tx store.Tx, creds Credentials, min types.Role) (*types.User, error) {
	user, err := a.users.FindByUsername(tx, creds.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NewNotFoundError(apperrors.CodeUserNotFound,
			fmt.Sprintf("user %q not found", creds.Username))
	}

	ok, err := Verify(creds.Password, user.PasswordHash)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to verify password", err)
	}
	if !ok {
		return nil, apperrors.NewUnauthorizedError(apperrors.CodeIncorrectPassword, "incorrect password")
	}

	if !user.Role.Satisfies(min) {
		return nil, apperrors.NewUnauthorizedError(apperrors.CodeInsufficientPrivileges, "insufficient privileges")
	}
	return user, nil
}

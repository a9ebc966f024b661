package auth

import (
	"context"
	"strings"
	"testing"

	apperrors "github.com/eventsphere/eventsphere/internal/errors"
	"github.com/eventsphere/eventsphere/internal/repository"
	"github.com/eventsphere/eventsphere/internal/store"
	"github.com/eventsphere/eventsphere/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArgon2() *Argon2Hasher {
	return &Argon2Hasher{Params: Argon2Params{Time: 1, MemoryKiB: 1024, Threads: 1}}
}

func TestHashers_RoundTrip(t *testing.T) {
	hashers := map[string]Hasher{
		HasherArgon2: testArgon2(),
		HasherBcrypt: &BcryptHasher{Cost: 4},
		HasherSHA256: SHA256Hasher{},
	}
	for name, h := range hashers {
		t.Run(name, func(t *testing.T) {
			encoded, err := h.Hash("hunter2")
			require.NoError(t, err)
			assert.NotContains(t, encoded, "hunter2")

			ok, err := h.Verify("hunter2", encoded)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = h.Verify("hunter3", encoded)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestArgon2Hasher_Salted(t *testing.T) {
	h := testArgon2()
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "argon2id$v=19$m=1024,t=1,p=1$"))
}

func TestArgon2Hasher_Malformed(t *testing.T) {
	h := testArgon2()
	for _, encoded := range []string{"", "argon2id$v=19", "bcrypt$v=19$m=1,t=1,p=1$AA$AA", "argon2id$v=19$m=1,t=1,p=1$!!$AA"} {
		_, err := h.Verify("x", encoded)
		assert.ErrorIs(t, err, ErrMalformedHash, encoded)
	}
}

func TestSHA256Hasher_KnownDigest(t *testing.T) {
	encoded, err := SHA256Hasher{}.Hash("password")
	require.NoError(t, err)
	assert.Equal(t, "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8", encoded)
}

func TestNewHasher(t *testing.T) {
	h, err := NewHasher("", DefaultArgon2Params())
	require.NoError(t, err)
	assert.IsType(t, &Argon2Hasher{}, h)

	h, err = NewHasher(HasherBcrypt, DefaultArgon2Params())
	require.NoError(t, err)
	assert.IsType(t, &BcryptHasher{}, h)

	_, err = NewHasher("md5", DefaultArgon2Params())
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	s := store.NewMemoryStore()
	users := repository.NewUsers(0)
	hasher := SHA256Hasher{}
	a := NewAuthenticator(users, hasher)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		adminHash, _ := hasher.Hash("root-pw")
		userHash, _ := hasher.Hash("user-pw")
		if _, err := users.Put(tx, types.User{ID: 0, Username: "root", PasswordHash: adminHash, Role: types.RoleAdmin}); err != nil {
			return err
		}
		_, err := users.Put(tx, types.User{ID: 1, Username: "bob", PasswordHash: userHash, Role: types.RoleUser})
		return err
	}))

	err := s.View(ctx, func(tx store.Tx) error {
		u, err := a.Authenticate(tx, Credentials{Username: "root", Password: "root-pw"}, types.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), u.ID)

		// Admin satisfies a User requirement.
		_, err = a.Authenticate(tx, Credentials{Username: "root", Password: "root-pw"}, types.RoleUser)
		assert.NoError(t, err)

		u, err = a.Authenticate(tx, Credentials{Username: "bob", Password: "user-pw"}, types.RoleUser)
		require.NoError(t, err)
		assert.Equal(t, "bob", u.Username)

		_, err = a.Authenticate(tx, Credentials{Username: "bob", Password: "user-pw"}, types.RoleAdmin)
		assert.Equal(t, apperrors.CodeInsufficientPrivileges, apperrors.GetCode(err))
		assert.EqualError(t, err, "[UNAUTHORIZED:INSUFFICIENT_PRIVILEGES] insufficient privileges")

		_, err = a.Authenticate(tx, Credentials{Username: "bob", Password: "wrong"}, types.RoleUser)
		assert.Equal(t, apperrors.CodeIncorrectPassword, apperrors.GetCode(err))

		_, err = a.Authenticate(tx, Credentials{Username: "carol", Password: "x"}, types.RoleUser)
		assert.True(t, apperrors.IsNotFound(err))
		return nil
	})
	require.NoError(t, err)
}

func TestHashers_VerifyEachOthersHashes(t *testing.T) {
	hashers := map[string]Hasher{
		HasherArgon2: testArgon2(),
		HasherBcrypt: &BcryptHasher{Cost: 4},
		HasherSHA256: SHA256Hasher{},
	}
	for madeBy, maker := range hashers {
		encoded, err := maker.Hash("pw")
		require.NoError(t, err)
		for checkedBy, checker := range hashers {
			ok, err := checker.Verify("pw", encoded)
			require.NoError(t, err, "%s hash checked by %s", madeBy, checkedBy)
			assert.True(t, ok, "%s hash checked by %s", madeBy, checkedBy)

			ok, err = checker.Verify("other", encoded)
			require.NoError(t, err, "%s hash checked by %s", madeBy, checkedBy)
			assert.False(t, ok, "%s hash checked by %s", madeBy, checkedBy)
		}
	}

	_, err := Verify("pw", "plaintext-password")
	assert.ErrorIs(t, err, ErrMalformedHash)
}

func TestAuthenticate_AccountsHashedByAnotherHasher(t *testing.T) {
	s := store.NewMemoryStore()
	users := repository.NewUsers(0)
	a := NewAuthenticator(users, testArgon2())
	ctx := context.Background()

	legacy, err := SHA256Hasher{}.Hash("legacy-pw")
	require.NoError(t, err)
	bcrypted, err := (&BcryptHasher{Cost: 4}).Hash("bcrypt-pw")
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		if _, err := users.Put(tx, types.User{ID: 0, Username: "old", PasswordHash: legacy, Role: types.RoleUser}); err != nil {
			return err
		}
		_, err := users.Put(tx, types.User{ID: 1, Username: "mid", PasswordHash: bcrypted, Role: types.RoleUser})
		return err
	}))

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		_, err := a.Authenticate(tx, Credentials{Username: "old", Password: "legacy-pw"}, types.RoleUser)
		assert.NoError(t, err)
		_, err = a.Authenticate(tx, Credentials{Username: "mid", Password: "bcrypt-pw"}, types.RoleUser)
		assert.NoError(t, err)
		_, err = a.Authenticate(tx, Credentials{Username: "old", Password: "bcrypt-pw"}, types.RoleUser)
		assert.Equal(t, apperrors.CodeIncorrectPassword, apperrors.GetCode(err))
		return nil
	}))

	// New passwords still use the configured hasher.
	encoded, err := a.Hasher().Hash("fresh")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, argon2Prefix))
}

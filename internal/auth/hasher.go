package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Hasher turns passwords into stored one-way hashes and checks candidates
// against them. Verify accepts a hash made by any hasher in this package,
// so switching hashers keeps existing accounts usable.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// Hasher names accepted by NewHasher.
const (
	HasherArgon2 = "argon2id"
	HasherBcrypt = "bcrypt"
	HasherSHA256 = "sha256"
)

// ErrMalformedHash is returned when a stored hash cannot be parsed.
var ErrMalformedHash = errors.New("auth: malformed password hash")

// Argon2Params tunes the argon2id key derivation.
type Argon2Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// DefaultArgon2Params follows the RFC 9106 second recommended option.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{Time: 3, MemoryKiB: 64 * 1024, Threads: 4}
}

const (
	argon2Prefix  = "argon2id$"
	argon2SaltLen = 16
	argon2KeyLen  = 32
)

// Verify checks password against encoded, dispatching on the format of
// encoded: argon2id PHC strings, bcrypt hashes and 64-digit hex SHA-256.
func Verify(password, encoded string) (bool, error) {
	switch {
	case strings.HasPrefix(encoded, argon2Prefix):
		return verifyArgon2(password, encoded)
	case isBcrypt(encoded):
		return verifyBcrypt(password, encoded)
	case isSHA256Hex(encoded):
		return verifySHA256(password, encoded)
	default:
		return false, ErrMalformedHash
	}
}

func isBcrypt(encoded string) bool {
	return len(encoded) > 4 && strings.HasPrefix(encoded, "$2")
}

func isSHA256Hex(encoded string) bool {
	if len(encoded) != 2*sha256.Size {
		return false
	}
	_, err := hex.DecodeString(encoded)
	return err == nil
}

// NewHasher returns the hasher registered under name.
func NewHasher(name string, params Argon2Params) (Hasher, error) {
	switch name {
	case HasherArgon2, "":
		return &Argon2Hasher{Params: params}, nil
	case HasherBcrypt:
		return &BcryptHasher{Cost: bcrypt.DefaultCost}, nil
	case HasherSHA256:
		return SHA256Hasher{}, nil
	default:
		return nil, fmt.Errorf("auth: unknown hasher %q", name)
	}
}

// Argon2Hasher salts each password and stores it in the PHC string form
// argon2id$v=19$m=<kib>,t=<time>,p=<threads>$<salt>$<hash>.
type Argon2Hasher struct {
	Params Argon2Params
}

func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: failed to read salt: %w", err)
	}
	p := h.Params
	key := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Threads, argon2KeyLen)

	return fmt.Sprintf(argon2Prefix+"v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.MemoryKiB, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// Verify recomputes an argon2id hash with the parameters recorded in
// encoded. Hashes of other formats go through Verify.
func (h *Argon2Hasher) Verify(password, encoded string) (bool, error) {
	return Verify(password, encoded)
}

func verifyArgon2(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[0] != "argon2id" {
		return false, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[1], "v=%d", &version); err != nil || version != argon2.Version {
		return false, ErrMalformedHash
	}
	var p Argon2Params
	if _, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Time, &p.Threads); err != nil {
		return false, ErrMalformedHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return false, ErrMalformedHash
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(want) == 0 {
		return false, ErrMalformedHash
	}

	got := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// BcryptHasher stores passwords as bcrypt hashes.
type BcryptHasher struct {
	Cost int
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Verify(password, encoded string) (bool, error) {
	return Verify(password, encoded)
}

func verifyBcrypt(password, encoded string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, ErrMalformedHash
	}
	return true, nil
}

// SHA256Hasher stores the unsalted hex SHA-256 digest of the password.
// Accounts imported from deployments that used it log in under any
// configured hasher; select it only for tests, where hashing cost matters.
type SHA256Hasher struct{}

func (SHA256Hasher) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]), nil
}

func (SHA256Hasher) Verify(password, encoded string) (bool, error) {
	return Verify(password, encoded)
}

func verifySHA256(password, encoded string) (bool, error) {
	sum := sha256.Sum256([]byte(password))
	return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(encoded)) == 1, nil
}

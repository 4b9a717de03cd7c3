// Package security holds password hashing and secret comparison.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/ttml-backend/pkg/config"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128

	hashScheme = "argon2id"
)

var (
	ErrInvalidHash   = errors.New("invalid argon2id hash")
	ErrEmptyPassword = errors.New("password cannot be empty")
	ErrWeakPassword  = fmt.Errorf("password must be %d-%d characters and contain a letter and a digit", MinPasswordLength, MaxPasswordLength)
)

// ArgonParams are the cost settings recorded in every encoded hash.
type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// ParamsFromConfig clamps the configured costs to sane bounds.
func ParamsFromConfig(cfg config.PasswordConfig) ArgonParams {
	return ArgonParams{
		Memory:      clamp(cfg.ArgonMemoryKB, 8, 512*1024),
		Time:        clamp(cfg.ArgonTime, 1, 10),
		Parallelism: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		SaltLen:     clamp(cfg.ArgonSaltLen, 8, 64),
		KeyLen:      clamp(cfg.ArgonKeyLen, 16, 64),
	}
}

// Hash is a decoded PHC string: $argon2id$v=19$m=..,t=..,p=..$salt$key.
type Hash struct {
	Version int
	Params  ArgonParams
	Salt    []byte
	Key     []byte
}

func (h Hash) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		hashScheme, h.Version, h.Params.Memory, h.Params.Time, h.Params.Parallelism,
		base64.RawStdEncoding.EncodeToString(h.Salt),
		base64.RawStdEncoding.EncodeToString(h.Key),
	)
}

// ParseHash decodes an encoded hash. Salt and key lengths come from the data.
func ParseHash(encoded string) (Hash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != hashScheme {
		return Hash{}, ErrInvalidHash
	}

	var h Hash
	version, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return Hash{}, ErrInvalidHash
	}
	v, err := strconv.Atoi(version)
	if err != nil || v != argon2.Version {
		return Hash{}, ErrInvalidHash
	}
	h.Version = v

	seen := map[string]bool{}
	for _, token := range strings.Split(parts[3], ",") {
		name, value, ok := strings.Cut(token, "=")
		if !ok || seen[name] {
			return Hash{}, ErrInvalidHash
		}
		seen[name] = true
		switch name {
		case "m":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return Hash{}, ErrInvalidHash
			}
			h.Params.Memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return Hash{}, ErrInvalidHash
			}
			h.Params.Time = uint32(n)
		case "p":
			n, err := strconv.ParseUint(value, 10, 8)
			if err != nil {
				return Hash{}, ErrInvalidHash
			}
			h.Params.Parallelism = uint8(n)
		default:
			return Hash{}, ErrInvalidHash
		}
	}
	if h.Params.Memory == 0 || h.Params.Time == 0 || h.Params.Parallelism == 0 {
		return Hash{}, ErrInvalidHash
	}

	if h.Salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(h.Salt) == 0 {
		return Hash{}, ErrInvalidHash
	}
	if h.Key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(h.Key) == 0 {
		return Hash{}, ErrInvalidHash
	}
	h.Params.SaltLen = uint32(len(h.Salt))
	h.Params.KeyLen = uint32(len(h.Key))
	return h, nil
}

// HashPassword returns an encoded Argon2id hash using the configured costs.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	params := ParamsFromConfig(cfg)
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return Hash{
		Version: argon2.Version,
		Params:  params,
		Salt:    salt,
		Key:     derive(password, salt, params),
	}.String(), nil
}

// VerifyPassword reports whether password matches the encoded hash.
func VerifyPassword(password, encoded string) (bool, error) {
	h, err := ParseHash(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.Key, derive(password, h.Salt, h.Params)) == 1, nil
}

// NeedsRehash reports whether encoded was produced with costs other than the
// configured ones. Unparseable hashes always need replacing.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	h, err := ParseHash(encoded)
	if err != nil {
		return true
	}
	return h.Params != ParamsFromConfig(cfg)
}

// ValidatePasswordStrength enforces the registration password policy.
func ValidatePasswordStrength(password string) error {
	if n := utf8.RuneCountInString(password); n < MinPasswordLength || n > MaxPasswordLength {
		return ErrWeakPassword
	}
	hasLetter := strings.ContainsFunc(password, unicode.IsLetter)
	hasDigit := strings.ContainsFunc(password, unicode.IsDigit)
	if !hasLetter || !hasDigit {
		return ErrWeakPassword
	}
	return nil
}

// SecretsEqual compares two shared secrets in constant time. Empty secrets never match.
func SecretsEqual(expected, provided string) bool {
	if expected == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

func derive(password string, salt []byte, p ArgonParams) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
}

func clamp(value, lo, hi int) uint32 {
	return uint32(min(max(value, lo), hi))
}

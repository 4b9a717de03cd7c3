package security_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ttml-backend/pkg/config"
	"github.com/angelmondragon/ttml-backend/pkg/security"
)

var cheap = config.PasswordConfig{
	ArgonMemoryKB:    32768,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password1", cheap)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=32768,t=1,p=1$"))

	ok, err := security.VerifyPassword("very-secure-password1", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = security.VerifyPassword("bogus-password", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = security.HashPassword("", cheap)
	assert.ErrorIs(t, err, security.ErrEmptyPassword)
}

func TestParseHashRoundTrip(t *testing.T) {
	hash, err := security.HashPassword("letters-and-1234", cheap)
	require.NoError(t, err)

	parsed, err := security.ParseHash(hash)
	require.NoError(t, err)
	assert.Equal(t, security.ParamsFromConfig(cheap), parsed.Params)
	assert.Equal(t, hash, parsed.String())
}

func TestParseHashRejectsMalformedInput(t *testing.T) {
	for _, encoded := range []string{
		"not-a-hash",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$t=1$c2FsdA$aGFzaA",
		"$argon2id$v=16$m=8,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8,t=1,p=1,m=9$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8,t=1,p=1,x=2$c2FsdA$aGFzaA",
		"$argon2i$v=19$m=8,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8,t=1,p=1$$aGFzaA",
	} {
		_, err := security.ParseHash(encoded)
		assert.ErrorIs(t, err, security.ErrInvalidHash, encoded)

		_, err = security.VerifyPassword("irrelevant", encoded)
		assert.Error(t, err, encoded)
	}
}

func TestNeedsRehash(t *testing.T) {
	hash, err := security.HashPassword("letters-and-1234", cheap)
	require.NoError(t, err)
	assert.False(t, security.NeedsRehash(hash, cheap))

	stronger := cheap
	stronger.ArgonTime = 2
	assert.True(t, security.NeedsRehash(hash, stronger))
	assert.True(t, security.NeedsRehash("garbage", cheap))
}

func TestParamsFromConfigClamps(t *testing.T) {
	p := security.ParamsFromConfig(config.PasswordConfig{ArgonParallelism: 1000, ArgonKeyLen: 4})
	assert.Equal(t, uint32(8), p.Memory)
	assert.Equal(t, uint32(1), p.Time)
	assert.Equal(t, uint8(255), p.Parallelism)
	assert.Equal(t, uint32(8), p.SaltLen)
	assert.Equal(t, uint32(16), p.KeyLen)
}

func TestValidatePasswordStrength(t *testing.T) {
	cases := map[string]bool{
		"short1":                 false,
		"allletters":             false,
		"12345678":               false,
		"letters-and-1234":       true,
		"ñandú-2024":             true,
		strings.Repeat("a1", 65): false,
	}
	for password, valid := range cases {
		err := security.ValidatePasswordStrength(password)
		if valid {
			assert.NoError(t, err, password)
		} else {
			assert.ErrorIs(t, err, security.ErrWeakPassword, password)
		}
	}
}

func TestSecretsEqual(t *testing.T) {
	assert.True(t, security.SecretsEqual("s3cret", "s3cret"))
	assert.False(t, security.SecretsEqual("s3cret", "S3cret"))
	assert.False(t, security.SecretsEqual("", ""))
}

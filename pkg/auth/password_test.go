package auth

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		shouldFail bool
	}{
		{name: "six characters", password: "secret", shouldFail: false},
		{name: "long passphrase", password: "correct horse battery staple", shouldFail: false},
		{name: "too short", password: "abc12", shouldFail: true},
		{name: "empty", password: "", shouldFail: true},
		{name: "exactly bcrypt limit", password: strings.Repeat("a", MaxPasswordLen), shouldFail: false},
		{name: "over bcrypt limit", password: strings.Repeat("a", MaxPasswordLen+1), shouldFail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if !tt.shouldFail {
				assert.NoError(t, err)
				return
			}
			var pve *PasswordValidationError
			require.ErrorAs(t, err, &pve)
			assert.NotEmpty(t, pve.Error())
		})
	}
}

func TestHashAndComparePassword(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)
	password := "secret1"

	hash, err := hasher.Hash(password)
	require.NoError(t, err)
	assert.NotEqual(t, password, hash)
	assert.NotContains(t, hash, password)

	assert.NoError(t, hasher.Compare(hash, password))
	assert.Error(t, hasher.Compare(hash, "wrong"))
}

func TestHash_FreshSaltEachCall(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)

	first, err := hasher.Hash("secret1")
	require.NoError(t, err)
	second, err := hasher.Hash("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NoError(t, ComparePassword(first, "secret1"))
	assert.NoError(t, ComparePassword(second, "secret1"))
}

func TestHash_RejectsEmpty(t *testing.T) {
	_, err := NewHasher(bcrypt.MinCost).Hash("")
	assert.Error(t, err)
}

func TestNewHasher_InvalidCostFallsBack(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewHasher(0).cost)
	assert.Equal(t, DefaultBcryptCost, NewHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, bcrypt.MinCost, NewHasher(bcrypt.MinCost).cost)
}

func TestGenerateVerificationCode(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 200; i++ {
		code, err := GenerateVerificationCode()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
	}
}

func TestGenerateResetToken(t *testing.T) {
	token, hash, err := GenerateResetToken()
	require.NoError(t, err)

	assert.Len(t, token, ResetTokenBytes*2)
	assert.Regexp(t, `^[0-9a-f]+$`, token)
	assert.Equal(t, HashResetToken(token), hash)
	assert.NotEqual(t, token, hash)

	other, _, err := GenerateResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

package users_test

import (
	"testing"

	users "github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
			wantErr:  false,
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true, // bcrypt can hash empty strings!
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := users.HashPassword(tt.password)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, hash)

			err = users.ComparePasswordAndHash(tt.password, hash)
			assert.NoError(t, err)
		})
	}
}

func TestComparePasswordAndHash(t *testing.T) {
	password := "testPassword123!"
	hash, err := users.HashPassword(password)
	assert.NoError(t, err)

	t.Run("Matching password", func(t *testing.T) {
		err := users.ComparePasswordAndHash(password, hash)
		assert.NoError(t, err)
	})

	t.Run("Wrong password", func(t *testing.T) {
		err := users.ComparePasswordAndHash("wrongPassword", hash)
		assert.Equal(t, users.ErrMismatchedHashAndPassword, err)
	})
}

func TestUnusablePassword(t *testing.T) {
	hash := users.UnusablePassword()
	assert.NotEmpty(t, hash)

	err := users.ComparePasswordAndHash(hash, hash)
	assert.Equal(t, users.ErrMismatchedHashAndPassword, err,
		"an unusable hash must never verify, not even against itself")

	u := &users.User{PasswordHash: hash}
	assert.False(t, users.HasUsablePassword(u))

	real, err := users.HashPassword("some-password-123")
	assert.NoError(t, err)
	u.PasswordHash = real
	assert.True(t, users.HasUsablePassword(u))
}

package crypto

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCost = 10

func TestHashPassword(t *testing.T) {
	password := "TestPassword123"

	hash, err := HashPassword(password, testCost)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, password, hash)

	again, err := HashPassword(password, testCost)
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "bcrypt salts every hash")
}

func TestCheckPassword(t *testing.T) {
	password := "TestPassword123"

	hash, err := HashPassword(password, testCost)
	require.NoError(t, err)

	assert.NoError(t, CheckPassword(password, hash), "correct password should pass")
	assert.ErrorIs(t, CheckPassword("WrongPassword", hash), ErrPasswordMismatch)
	assert.Error(t, CheckPassword(password, "not-a-bcrypt-hash"))
}

func TestIsStrong(t *testing.T) {
	tests := []struct {
		name     string
		password string
		expected bool
	}{
		{"Valid password", "Password123", true},
		{"Too short", "Pass1", false},
		{"No uppercase", "password123", false},
		{"No lowercase", "PASSWORD123", false},
		{"No digit", "Password", false},
		{"Minimum valid", "Passw0rd", true},
		{"Long valid", "MyVeryLongPassword123", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsStrong(tt.password))
		})
	}
}

func TestRegisterPasswordValidator(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterPasswordValidator(v))

	type req struct {
		Password string `validate:"required,password"`
	}

	assert.NoError(t, v.Struct(req{Password: "Password123"}))
	assert.Error(t, v.Struct(req{Password: "weak"}))
}

package auth

import "errors"

// ErrDuplicate is returned when trying to create a user with an email that already exists
var ErrDuplicate = errors.New("Email already exists.")

// ErrUserNotFound is returned when no account matches the lookup.
var ErrUserNotFound = errors.New("User not found.")

// ErrInvalidCredentials hides whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("Invalid email or password.")

// ErrOldPasswordIncorrect is returned by ChangePassword on a bad old password.
var ErrOldPasswordIncorrect = errors.New("Old password is incorrect.")

// ErrGenAccessToken is returned when we cannot create a JWT.
var ErrGenAccessToken = errors.New("failed to generate access token")

// ErrInvalidToken is returned for expired, malformed or foreign tokens.
var ErrInvalidToken = errors.New("Invalid or expired token.")

// ErrInvalidTokenMissingUserID and ErrInvalidTokenMissingEmail flag tokens
// that verify but lack the claims handlers rely on.
var (
	ErrInvalidTokenMissingUserID = errors.New("invalid token: missing user_id claim")
	ErrInvalidTokenMissingEmail  = errors.New("invalid token: missing email claim")
)

// ErrRegistration and ErrUpdateProfile are generic server-side failures.
var (
	ErrRegistration  = errors.New("failed to register user")
	ErrUpdateProfile = errors.New("failed to update profile")
	ErrChangePass    = errors.New("failed to change password")
)

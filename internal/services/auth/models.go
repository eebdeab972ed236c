package auth

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User represents a registered account. PasswordHash never leaves the server.
type User struct {
	ID                 bson.ObjectID   `bson:"_id,omitempty" json:"id,omitempty" example:"683cdb8aa96ad71e8e075bd1"`
	Fullname           string          `bson:"fullname" json:"fullname" example:"Ada Lovelace"`
	Email              string          `bson:"email" json:"email" example:"ada@example.com"`
	PasswordHash       string          `bson:"password_hash" json:"-"`
	Avatar             string          `bson:"avatar" json:"avatar" example:"default.png"`
	Notes              []bson.ObjectID `bson:"notes" json:"notes"`
	LocationPermission bool            `bson:"location_permission" json:"locationPermission" example:"false"`
	CreatedAt          time.Time       `bson:"created_at" json:"createdAt" example:"2025-06-01T23:00:26.005703677Z"`
	UpdatedAt          time.Time       `bson:"updated_at" json:"updatedAt" example:"2025-06-01T23:00:26.005703677Z"`
}

// PublicProfile is what other users may learn about an account.
type PublicProfile struct {
	ID       string `json:"id" example:"683cdb8aa96ad71e8e075bd1"`
	Fullname string `json:"fullname" example:"Ada Lovelace"`
	Email    string `json:"email" example:"ada@example.com"`
	Avatar   string `json:"avatar" example:"default.png"`
}

// Public returns the user's public profile.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:       u.ID.Hex(),
		Fullname: u.Fullname,
		Email:    u.Email,
		Avatar:   u.Avatar,
	}
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Fullname string `json:"fullname" validate:"required,max=100" example:"Ada Lovelace"`
	Email    string `json:"email" validate:"required,email" example:"ada@example.com"`
	Password string `json:"password" validate:"required,password" example:"Password123"`
}

// LoginRequest represents a user login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"ada@example.com"`
	Password string `json:"password" validate:"required" example:"Password123"`
}

// UpdateProfileRequest replaces the editable profile fields.
type UpdateProfileRequest struct {
	Fullname string `json:"fullname" validate:"required,max=100" example:"Ada King"`
	Email    string `json:"email" validate:"required,email" example:"ada@example.com"`
	Avatar   string `json:"avatar" validate:"omitempty,max=512" example:"https://example.com/ada.png"`
}

// ChangePasswordRequest represents a password change.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required" example:"Password123"`
	NewPassword string `json:"newPassword" validate:"required,password" example:"NewPassword456"`
}

// MessageResponse is the generic success envelope.
type MessageResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"User registered successfully."`
}

// LoginResponse carries the issued session token.
type LoginResponse struct {
	Success bool   `json:"success" example:"true"`
	Token   string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJ1c2VyX2lkIjoiNjgzYyJ9.sig"`
}

// VerifyResponse reports whether a bearer token is still valid.
type VerifyResponse struct {
	Success bool   `json:"success" example:"true"`
	Valid   bool   `json:"valid" example:"true"`
	UserID  string `json:"userId,omitempty" example:"683cdb8aa96ad71e8e075bd1"`
	Message string `json:"message,omitempty"`
}

// UserResponse wraps a profile.
type UserResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty" example:"Profile updated successfully."`
	User    *User  `json:"user"`
}

package auth

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// UsersRepo defines the interface for user repository operations
type UsersRepo interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*User, error)
	UpdateProfile(ctx context.Context, id bson.ObjectID, fullname, email, avatar string) (*User, error)
	UpdatePassword(ctx context.Context, id bson.ObjectID, hash string) error
	AddNoteRef(ctx context.Context, id, noteID bson.ObjectID) error
	RemoveNoteRef(ctx context.Context, id, noteID bson.ObjectID) error
}

// CollaboratorRenamer rewrites an email inside every collaborator list.
type CollaboratorRenamer interface {
	RenameCollaborator(ctx context.Context, oldEmail, newEmail string) error
}

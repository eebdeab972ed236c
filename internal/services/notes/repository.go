package notes

import (
	"context"

	"mind-scribe/internal/services/auth"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Repository defines the interface for notes repository operations
type Repository interface {
	Create(ctx context.Context, n *Note) error
	FindByID(ctx context.Context, id bson.ObjectID) (*Note, error)
	ListVisible(ctx context.Context, userID bson.ObjectID, email string, filter ListNotesRequest) ([]*Note, error)
	Update(ctx context.Context, id bson.ObjectID, f Fields) (*Note, error)
	Delete(ctx context.Context, id bson.ObjectID) error
	Nearby(ctx context.Context, ownerID bson.ObjectID, longitude, latitude float64, radiusM int) ([]*Note, error)

	// AddCollaborator appends email unless already present; ErrCollaboratorExists otherwise.
	AddCollaborator(ctx context.Context, id, ownerID bson.ObjectID, email string) (*Note, error)
	// RemoveCollaborator pulls every entry equal to email.
	RemoveCollaborator(ctx context.Context, id, ownerID bson.ObjectID, email string) (*Note, error)
	RenameCollaborator(ctx context.Context, oldEmail, newEmail string) error
}

// Users is the slice of the credential store the notes service needs.
type Users interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*auth.User, error)
	FindByEmail(ctx context.Context, email string) (*auth.User, error)
	AddNoteRef(ctx context.Context, id, noteID bson.ObjectID) error
	RemoveNoteRef(ctx context.Context, id, noteID bson.ObjectID) error
}

// Bus defines the interface for event broadcasting
type Bus interface {
	Broadcast(ctx context.Context, ev NoteEvent)
}

package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mind-scribe/internal/services/auth"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// UsersRepo implements the auth.UsersRepo interface for MongoDB
type UsersRepo struct {
	collection *mongo.Collection
}

// NewUsersRepo creates the users repository and its unique email index.
func NewUsersRepo(parentCtx context.Context, db *mongo.Database) (*UsersRepo, error) {
	collection := db.Collection("users")

	ctx, cancel := context.WithTimeout(parentCtx, OpTimeout)
	defer cancel()

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create users email index: %w", err)
	}

	return &UsersRepo{collection: collection}, nil
}

// Create creates a new user in the database
func (r *UsersRepo) Create(ctx context.Context, user *auth.User) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	if user.Notes == nil {
		user.Notes = []bson.ObjectID{}
	}

	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return auth.ErrDuplicate
		}
		return err
	}
	return nil
}

// FindByEmail finds a user by exact email match
func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// FindByID finds a user by id
func (r *UsersRepo) FindByID(ctx context.Context, id bson.ObjectID) (*auth.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UsersRepo) findOne(ctx context.Context, filter bson.M) (*auth.User, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	var user auth.User
	if err := r.collection.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfile sets fullname, email and avatar and returns the new document.
func (r *UsersRepo) UpdateProfile(ctx context.Context, id bson.ObjectID, fullname, email, avatar string) (*auth.User, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"fullname":   fullname,
		"email":      email,
		"avatar":     avatar,
		"updated_at": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user auth.User
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&user)
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, auth.ErrUserNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, auth.ErrDuplicate
	default:
		return nil, err
	}
}

// UpdatePassword replaces the stored bcrypt hash.
func (r *UsersRepo) UpdatePassword(ctx context.Context, id bson.ObjectID, hash string) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	}})
}

// AddNoteRef records an owned note on the user.
func (r *UsersRepo) AddNoteRef(ctx context.Context, id, noteID bson.ObjectID) error {
	return r.updateOne(ctx, id, bson.M{"$addToSet": bson.M{"notes": noteID}})
}

// RemoveNoteRef drops an owned note from the user.
func (r *UsersRepo) RemoveNoteRef(ctx context.Context, id, noteID bson.ObjectID) error {
	return r.updateOne(ctx, id, bson.M{"$pull": bson.M{"notes": noteID}})
}

func (r *UsersRepo) updateOne(ctx context.Context, id bson.ObjectID, update bson.M) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mind-scribe/internal/logger"
	"mind-scribe/internal/services/notes"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NotesRepo implements the notes.Repository interface for MongoDB
type NotesRepo struct {
	collection *mongo.Collection
}

// translateNotFound maps the driver ErrNoDocuments to the domain-level ErrNoteNotFound.
func translateNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notes.ErrNoteNotFound
	}
	return err
}

// NewNotesRepo creates a new notes repository and its indexes.
func NewNotesRepo(parentCtx context.Context, db *mongo.Database) (*NotesRepo, error) {
	collection := db.Collection("notes")

	indexes := []mongo.IndexModel{
		// owned notes, newest first
		{
			Keys: bson.D{
				{Key: "user", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("user_created_desc"),
		},
		// shared notes, newest first
		{
			Keys: bson.D{
				{Key: "collaborators", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("collaborators_created_desc"),
		},
		{
			Keys:    bson.D{{Key: "location", Value: "2dsphere"}},
			Options: options.Index().SetName("location_2dsphere"),
		},
	}

	ctx, cancel := context.WithTimeout(parentCtx, OpTimeout)
	defer cancel()

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.L().Error("failed to create index", "collection", "notes", "error", err)
		return nil, fmt.Errorf("%w: %w", notes.ErrCreateNotesRepo, err)
	}

	return &NotesRepo{collection: collection}, nil
}

// Create creates a new note in the database
func (r *NotesRepo) Create(ctx context.Context, note *notes.Note) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, note)
	return err
}

// FindByID returns the note regardless of who owns it; access checks live in the service.
func (r *NotesRepo) FindByID(ctx context.Context, id bson.ObjectID) (*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	var note notes.Note
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&note); err != nil {
		return nil, translateNotFound(err)
	}
	return &note, nil
}

// ListVisible returns notes owned by userID or shared with email, newest first.
func (r *NotesRepo) ListVisible(ctx context.Context, userID bson.ObjectID, email string, req notes.ListNotesRequest) ([]*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	return r.find(ctx, visibleFilter(userID, email, req.Category), opts)
}

// visibleFilter builds {user == id} ∪ {email ∈ collaborators}.
func visibleFilter(userID bson.ObjectID, email, category string) bson.M {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"user": userID},
			bson.M{"collaborators": email},
		},
	}
	if category != "" {
		filter["category"] = category
	}
	return filter
}

// Update replaces the editable fields and returns the new document.
func (r *NotesRepo) Update(ctx context.Context, id bson.ObjectID, f notes.Fields) (*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	var updated notes.Note
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, updateDoc(f, time.Now().UTC()), opts).Decode(&updated)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &updated, nil
}

// updateDoc sets every editable field and unsets the optional ones left empty.
func updateDoc(f notes.Fields, now time.Time) bson.M {
	set := bson.M{
		"title":      f.Title,
		"content":    f.Content,
		"checklist":  f.Checklist,
		"updated_at": now,
	}
	unset := bson.M{}

	if f.Location != nil {
		set["location"] = f.Location
	} else {
		unset["location"] = ""
	}
	if f.Category != "" {
		set["category"] = f.Category
	} else {
		unset["category"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

// Delete removes a note by id
func (r *NotesRepo) Delete(ctx context.Context, id bson.ObjectID) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return notes.ErrNoteNotFound
	}
	return nil
}

// Nearby returns the owner's notes within radiusM metres, nearest first.
func (r *NotesRepo) Nearby(ctx context.Context, ownerID bson.ObjectID, longitude, latitude float64, radiusM int) ([]*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	return r.find(ctx, nearbyFilter(ownerID, longitude, latitude, radiusM))
}

func nearbyFilter(ownerID bson.ObjectID, longitude, latitude float64, radiusM int) bson.M {
	return bson.M{
		"user": ownerID,
		"location": bson.M{
			"$nearSphere": bson.M{
				"$geometry": bson.M{
					"type":        notes.GeoJSONPoint,
					"coordinates": bson.A{longitude, latitude},
				},
				"$maxDistance": radiusM,
			},
		},
	}
}

// AddCollaborator appends email in one conditional update, so concurrent adds
// of the same email cannot both succeed.
func (r *NotesRepo) AddCollaborator(ctx context.Context, id, ownerID bson.ObjectID, email string) (*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := bson.M{
		"_id":           id,
		"user":          ownerID,
		"collaborators": bson.M{"$ne": email},
	}
	update := bson.M{
		"$push": bson.M{"collaborators": email},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}

	var updated notes.Note
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// No match: either the note is gone or the email is already present.
	n, cerr := r.collection.CountDocuments(ctx, bson.M{"_id": id, "user": ownerID})
	if cerr != nil {
		return nil, cerr
	}
	if n > 0 {
		return nil, notes.ErrCollaboratorExists
	}
	return nil, notes.ErrNoteNotFound
}

// RemoveCollaborator pulls every entry equal to email.
func (r *NotesRepo) RemoveCollaborator(ctx context.Context, id, ownerID bson.ObjectID, email string) (*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	update := bson.M{
		"$pull": bson.M{"collaborators": email},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}

	var updated notes.Note
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id, "user": ownerID}, update, opts).Decode(&updated)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &updated, nil
}

// RenameCollaborator rewrites oldEmail to newEmail in every collaborator list.
func (r *NotesRepo) RenameCollaborator(ctx context.Context, oldEmail, newEmail string) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	opts := options.UpdateMany().SetArrayFilters([]any{bson.M{"c": oldEmail}})
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"collaborators": oldEmail},
		bson.M{"$set": bson.M{"collaborators.$[c]": newEmail}},
		opts,
	)
	return err
}

func (r *NotesRepo) find(ctx context.Context, filter bson.M, opts ...options.Lister[options.FindOptions]) ([]*notes.Note, error) {
	cursor, err := r.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer func(ctxToClose context.Context) {
		if cerr := cursor.Close(ctxToClose); cerr != nil {
			logger.L().Error("failed to close cursor", "error", cerr)
		}
	}(ctx)

	out := []*notes.Note{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

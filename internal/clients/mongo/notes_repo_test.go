package mongo

import (
	"context"
	"sync"
	"testing"
	"time"

	"mind-scribe/internal/services/notes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestVisibleFilter(t *testing.T) {
	userID := bson.NewObjectID()

	f := visibleFilter(userID, "ada@example.com", "")
	assert.Equal(t, bson.A{
		bson.M{"user": userID},
		bson.M{"collaborators": "ada@example.com"},
	}, f["$or"])
	assert.NotContains(t, f, "category")

	f = visibleFilter(userID, "ada@example.com", "work")
	assert.Equal(t, "work", f["category"])
}

func TestUpdateDoc(t *testing.T) {
	now := time.Now().UTC()

	t.Run("clears absent optional fields", func(t *testing.T) {
		doc := updateDoc(notes.Fields{Title: "t", Content: []notes.Block{{Type: notes.BlockText}}}, now)
		set := doc["$set"].(bson.M)
		assert.Equal(t, "t", set["title"])
		assert.Equal(t, now, set["updated_at"])
		assert.Equal(t, bson.M{"location": "", "category": ""}, doc["$unset"])
	})

	t.Run("sets provided optional fields", func(t *testing.T) {
		doc := updateDoc(notes.Fields{Title: "t", Location: notes.NewPoint(1, 2), Category: "work"}, now)
		set := doc["$set"].(bson.M)
		assert.Equal(t, notes.NewPoint(1, 2), set["location"])
		assert.Equal(t, "work", set["category"])
		assert.NotContains(t, doc, "$unset")
	})
}

func TestNearbyFilter(t *testing.T) {
	owner := bson.NewObjectID()
	f := nearbyFilter(owner, -122.4, 37.7, 500)

	assert.Equal(t, owner, f["user"])
	near := f["location"].(bson.M)["$nearSphere"].(bson.M)
	assert.Equal(t, 500, near["$maxDistance"])
	assert.Equal(t, bson.A{-122.4, 37.7}, near["$geometry"].(bson.M)["coordinates"], "GeoJSON order is longitude, latitude")
}

func newTestNote(owner bson.ObjectID, ownerEmail, title string, loc *notes.GeoPoint, created time.Time) *notes.Note {
	return &notes.Note{
		ID:            bson.NewObjectID(),
		OwnerID:       owner,
		Collaborators: []string{ownerEmail},
		Title:         title,
		Content:       []notes.Block{{Type: notes.BlockText, Text: title}},
		Checklist:     []notes.ChecklistItem{},
		Location:      loc,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func TestNotesRepoVisibilityAndOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo, err := NewNotesRepo(ctx, db)
	require.NoError(t, err)

	ada, bob := bson.NewObjectID(), bson.NewObjectID()
	base := time.Now().UTC().Truncate(time.Millisecond)

	older := newTestNote(ada, "ada@example.com", "older", nil, base.Add(-time.Hour))
	newer := newTestNote(ada, "ada@example.com", "newer", nil, base)
	bobs := newTestNote(bob, "bob@example.com", "bob's", nil, base)
	for _, n := range []*notes.Note{older, newer, bobs} {
		require.NoError(t, repo.Create(ctx, n))
	}

	list, err := repo.ListVisible(ctx, ada, "ada@example.com", notes.ListNotesRequest{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Title)
	assert.Equal(t, "older", list[1].Title)

	_, err = repo.AddCollaborator(ctx, bobs.ID, bob, "ada@example.com")
	require.NoError(t, err)

	list, err = repo.ListVisible(ctx, ada, "ada@example.com", notes.ListNotesRequest{})
	require.NoError(t, err)
	assert.Len(t, list, 3, "shared note becomes visible")

	list, err = repo.ListVisible(ctx, bson.NewObjectID(), "stranger@example.com", notes.ListNotesRequest{})
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestNotesRepoCollaborators(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo, err := NewNotesRepo(ctx, db)
	require.NoError(t, err)

	owner := bson.NewObjectID()
	note := newTestNote(owner, "ada@example.com", "shared", nil, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, note))

	updated, err := repo.AddCollaborator(ctx, note.ID, owner, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"ada@example.com", "bob@example.com"}, updated.Collaborators)

	_, err = repo.AddCollaborator(ctx, note.ID, owner, "bob@example.com")
	assert.ErrorIs(t, err, notes.ErrCollaboratorExists)

	_, err = repo.AddCollaborator(ctx, note.ID, bson.NewObjectID(), "eve@example.com")
	assert.ErrorIs(t, err, notes.ErrNoteNotFound, "non-owner filter matches nothing")

	require.NoError(t, repo.RenameCollaborator(ctx, "bob@example.com", "bob@new.com"))
	found, err := repo.FindByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ada@example.com", "bob@new.com"}, found.Collaborators)

	updated, err = repo.RemoveCollaborator(ctx, note.ID, owner, "bob@new.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"ada@example.com"}, updated.Collaborators)
}

func TestNotesRepoConcurrentAddIsAtomic(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo, err := NewNotesRepo(ctx, db)
	require.NoError(t, err)

	owner := bson.NewObjectID()
	note := newTestNote(owner, "ada@example.com", "race", nil, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, note))

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.AddCollaborator(ctx, note.ID, owner, "bob@example.com")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, notes.ErrCollaboratorExists)
		}
	}
	assert.Equal(t, 1, successes)

	found, err := repo.FindByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ada@example.com", "bob@example.com"}, found.Collaborators)
}

func TestNotesRepoNearbyAndUpdate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo, err := NewNotesRepo(ctx, db)
	require.NoError(t, err)

	owner := bson.NewObjectID()
	now := time.Now().UTC()
	// ~110 m and ~1.1 km north of the query point
	near := newTestNote(owner, "ada@example.com", "close", notes.NewPoint(-122.4194, 37.7759), now)
	far := newTestNote(owner, "ada@example.com", "far", notes.NewPoint(-122.4194, 37.7849), now)
	plain := newTestNote(owner, "ada@example.com", "no location", nil, now)
	foreign := newTestNote(bson.NewObjectID(), "eve@example.com", "foreign", notes.NewPoint(-122.4194, 37.7750), now)
	for _, n := range []*notes.Note{far, near, plain, foreign} {
		require.NoError(t, repo.Create(ctx, n))
	}

	found, err := repo.Nearby(ctx, owner, -122.4194, 37.7749, 500)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "close", found[0].Title)

	found, err = repo.Nearby(ctx, owner, -122.4194, 37.7749, 5000)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "close", found[0].Title, "nearest first")

	updated, err := repo.Update(ctx, near.ID, notes.Fields{
		Title:   "moved",
		Content: []notes.Block{{Type: notes.BlockText, Text: "x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "moved", updated.Title)
	assert.Nil(t, updated.Location, "update without a location clears it")

	found, err = repo.Nearby(ctx, owner, -122.4194, 37.7749, 500)
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = repo.Update(ctx, bson.NewObjectID(), notes.Fields{Title: "x"})
	assert.ErrorIs(t, err, notes.ErrNoteNotFound)

	require.NoError(t, repo.Delete(ctx, far.ID))
	assert.ErrorIs(t, repo.Delete(ctx, far.ID), notes.ErrNoteNotFound)
}

package notes

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"mind-scribe/cmd/server/testutil"
	"mind-scribe/internal/services/auth"
	"mind-scribe/internal/services/notes"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	notesEndpoint  = "/api/notes/"
	nearbyEndpoint = "/api/notes/nearby"
	ownerEmail     = "ada@example.com"
	guestEmail     = "bob@example.com"
)

// MockNotesService mocks the notes service
type MockNotesService struct {
	mock.Mock
}

func (m *MockNotesService) Create(ctx context.Context, userID bson.ObjectID, req notes.NoteRequest) (*notes.Note, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notes.Note), args.Error(1)
}

func (m *MockNotesService) List(ctx context.Context, userID bson.ObjectID, req notes.ListNotesRequest) ([]*notes.Note, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notes.Note), args.Error(1)
}

func (m *MockNotesService) Update(ctx context.Context, userID, noteID bson.ObjectID, req notes.NoteRequest) (*notes.Note, error) {
	args := m.Called(ctx, userID, noteID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notes.Note), args.Error(1)
}

func (m *MockNotesService) Delete(ctx context.Context, userID, noteID bson.ObjectID) error {
	args := m.Called(ctx, userID, noteID)
	return args.Error(0)
}

func (m *MockNotesService) Nearby(ctx context.Context, userID bson.ObjectID, req notes.NearbyRequest) ([]*notes.Note, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notes.Note), args.Error(1)
}

func (m *MockNotesService) Owner(ctx context.Context, userID, noteID bson.ObjectID) (*auth.PublicProfile, error) {
	args := m.Called(ctx, userID, noteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.PublicProfile), args.Error(1)
}

func (m *MockNotesService) AddCollaborator(ctx context.Context, userID, noteID bson.ObjectID, email string) (*notes.Note, error) {
	args := m.Called(ctx, userID, noteID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notes.Note), args.Error(1)
}

func (m *MockNotesService) RemoveCollaborator(ctx context.Context, userID, noteID bson.ObjectID, email string) (*notes.Note, error) {
	args := m.Called(ctx, userID, noteID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notes.Note), args.Error(1)
}

type notesTestSetup struct {
	svc    *MockNotesService
	app    *fiber.App
	userID bson.ObjectID
	token  string
}

// setupNotesTest mounts the handlers in router order, /nearby before /:id.
func setupNotesTest(t *testing.T) *notesTestSetup {
	t.Helper()

	svc := &MockNotesService{}
	app := testutil.CreateTestApp(t)
	h := NewHandlers(svc, testutil.CreateTestValidator(t))

	grp := app.Group("/api/notes", testutil.SetupJWTMiddleware(testutil.JWTSecret))
	grp.Post("/", h.Create)
	grp.Get("/", h.List)
	grp.Get("/nearby", h.Nearby)
	grp.Put("/:id", h.Update)
	grp.Delete("/:id", h.Delete)
	grp.Get("/:id/owner", h.Owner)
	grp.Put("/:id/add-collaborator", h.AddCollaborator)
	grp.Put("/:id/remove-collaborator", h.RemoveCollaborator)

	userID := bson.NewObjectID()
	return &notesTestSetup{
		svc:    svc,
		app:    app,
		userID: userID,
		token:  testutil.MustJWT(t, userID.Hex(), ownerEmail),
	}
}

func (s *notesTestSetup) do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	resp, err := s.app.Test(testutil.CreateAuthenticatedRequest(method, url, body, s.token))
	require.NoError(t, err)
	return resp
}

func sampleNote(owner bson.ObjectID) *notes.Note {
	return &notes.Note{
		ID:            bson.NewObjectID(),
		OwnerID:       owner,
		Collaborators: []string{ownerEmail},
		Title:         "Groceries",
		Content:       []notes.Block{{Type: notes.BlockText, Text: "eggs"}},
	}
}

func validNoteRequest() notes.NoteRequest {
	return notes.NoteRequest{
		Title:    "Groceries",
		Content:  []notes.Block{{Type: notes.BlockText, Text: "eggs"}},
		Location: notes.NewPoint(-122.42, 37.77),
		Category: "errands",
	}
}

func TestCreateNote(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		setupMock  func(s *notesTestSetup)
		wantStatus int
		wantMsg    string
	}{
		{
			name: "created",
			body: validNoteRequest(),
			setupMock: func(s *notesTestSetup) {
				s.svc.On("Create", mock.Anything, s.userID, validNoteRequest()).Return(sampleNote(s.userID), nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "missing title or content",
			body: notes.NoteRequest{Title: "only a title"},
			setupMock: func(s *notesTestSetup) {
				s.svc.On("Create", mock.Anything, s.userID, mock.Anything).Return(nil, notes.ErrTitleContentRequired)
			},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Title and content are required.",
		},
		{
			name: "malformed location",
			body: validNoteRequest(),
			setupMock: func(s *notesTestSetup) {
				s.svc.On("Create", mock.Anything, s.userID, mock.Anything).Return(nil, notes.ErrInvalidLocation)
			},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "invalid location",
		},
		{
			name:       "unknown block type rejected by validator",
			body:       notes.NoteRequest{Title: "t", Content: []notes.Block{{Type: "video"}}},
			setupMock:  func(*notesTestSetup) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "storage failure is hidden",
			body: validNoteRequest(),
			setupMock: func(s *notesTestSetup) {
				s.svc.On("Create", mock.Anything, s.userID, mock.Anything).Return(nil, errors.New("mongo down"))
			},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupNotesTest(t)
			tt.setupMock(s)

			resp := s.do(t, http.MethodPost, notesEndpoint, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body := testutil.DecodeJSON(t, resp)
			if tt.wantStatus == http.StatusCreated {
				assert.Equal(t, true, body["success"])
				assert.Equal(t, "Groceries", body["note"].(map[string]any)["title"])
			} else {
				assert.Equal(t, false, body["success"])
			}
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, body["message"])
			}
			s.svc.AssertExpectations(t)
		})
	}
}

func TestCreateNoteRequiresToken(t *testing.T) {
	s := setupNotesTest(t)

	resp, err := s.app.Test(testutil.CreateJSONRequest(http.MethodPost, notesEndpoint, validNoteRequest()))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "No token, authorization denied", testutil.DecodeJSON(t, resp)["message"])
	s.svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestListNotes(t *testing.T) {
	s := setupNotesTest(t)
	shared := sampleNote(bson.NewObjectID())
	shared.Collaborators = []string{guestEmail, ownerEmail}
	shared.Shared = true

	s.svc.On("List", mock.Anything, s.userID, notes.ListNotesRequest{}).Return([]*notes.Note{sampleNote(s.userID), shared}, nil).Once()
	s.svc.On("List", mock.Anything, s.userID, notes.ListNotesRequest{Category: "errands"}).Return([]*notes.Note{}, nil).Once()

	resp := s.do(t, http.MethodGet, notesEndpoint, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := testutil.DecodeJSON(t, resp)
	assert.Len(t, body["notes"], 2)
	assert.Equal(t, true, body["notes"].([]any)[1].(map[string]any)["shared"])

	resp = s.do(t, http.MethodGet, notesEndpoint+"?category=errands", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, testutil.DecodeJSON(t, resp)["notes"])

	s.svc.AssertExpectations(t)
}

func TestUpdateNote(t *testing.T) {
	noteID := bson.NewObjectID()

	tests := []struct {
		name       string
		path       string
		setupMock  func(s *notesTestSetup)
		wantStatus int
		wantMsg    string
	}{
		{
			name: "collaborator update",
			path: notesEndpoint + noteID.Hex(),
			setupMock: func(s *notesTestSetup) {
				s.svc.On("Update", mock.Anything, s.userID, noteID, validNoteRequest()).Return(sampleNote(bson.NewObjectID()), nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "non-member sees not found",
			path: notesEndpoint + noteID.Hex(),
			setupMock: func(s *notesTestSetup) {
				s.svc.On("Update", mock.Anything, s.userID, noteID, mock.Anything).Return(nil, notes.ErrNoteNotFound)
			},
			wantStatus: http.StatusNotFound,
			wantMsg:    "Note not found",
		},
		{
			name:       "malformed id",
			path:       notesEndpoint + "not-an-id",
			setupMock:  func(*notesTestSetup) {},
			wantStatus: http.StatusNotFound,
			wantMsg:    "Note not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupNotesTest(t)
			tt.setupMock(s)

			resp := s.do(t, http.MethodPut, tt.path, validNoteRequest())
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, testutil.DecodeJSON(t, resp)["message"])
			}
			s.svc.AssertExpectations(t)
		})
	}
}

func TestDeleteNote(t *testing.T) {
	noteID := bson.NewObjectID()
	forbidden := &notes.ForbiddenError{
		Action: "delete this note",
		Owner:  auth.PublicProfile{Fullname: "Bob Byte", Email: guestEmail},
	}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{name: "owner deletes", wantStatus: http.StatusOK, wantMsg: "Note deleted"},
		{name: "collaborator forbidden", err: forbidden, wantStatus: http.StatusForbidden, wantMsg: "only Bob Byte (bob@example.com) can delete this note"},
		{name: "missing", err: notes.ErrNoteNotFound, wantStatus: http.StatusNotFound, wantMsg: "Note not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupNotesTest(t)
			s.svc.On("Delete", mock.Anything, s.userID, noteID).Return(tt.err)

			resp := s.do(t, http.MethodDelete, notesEndpoint+noteID.Hex(), nil)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantMsg, testutil.DecodeJSON(t, resp)["message"])
			s.svc.AssertExpectations(t)
		})
	}
}

func TestNearbyNotes(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		want       *notes.NearbyRequest
		err        error
		wantStatus int
	}{
		{
			name:       "default radius",
			query:      "?longitude=-122.42&latitude=37.77",
			want:       &notes.NearbyRequest{Longitude: -122.42, Latitude: 37.77},
			wantStatus: http.StatusOK,
		},
		{
			name:       "explicit radius",
			query:      "?longitude=2.35&latitude=48.85&radius=1200",
			want:       &notes.NearbyRequest{Longitude: 2.35, Latitude: 48.85, RadiusM: 1200},
			wantStatus: http.StatusOK,
		},
		{
			name:       "out of range point",
			query:      "?longitude=200&latitude=0",
			want:       &notes.NearbyRequest{Longitude: 200, Latitude: 0},
			err:        notes.ErrInvalidLocation,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "radius above maximum",
			query:      "?longitude=0&latitude=0&radius=999999",
			want:       &notes.NearbyRequest{RadiusM: 999999},
			err:        notes.ErrInvalidRadius,
			wantStatus: http.StatusBadRequest,
		},
		{name: "missing latitude", query: "?longitude=1", wantStatus: http.StatusBadRequest},
		{name: "non-numeric longitude", query: "?longitude=east&latitude=1", wantStatus: http.StatusBadRequest},
		{name: "negative radius", query: "?longitude=1&latitude=1&radius=-5", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupNotesTest(t)
			if tt.want != nil {
				var found []*notes.Note
				if tt.err == nil {
					found = []*notes.Note{sampleNote(s.userID)}
				}
				s.svc.On("Nearby", mock.Anything, s.userID, *tt.want).Return(found, tt.err)
			}

			resp := s.do(t, http.MethodGet, nearbyEndpoint+tt.query, nil)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus == http.StatusOK {
				assert.Len(t, testutil.DecodeJSON(t, resp)["notes"], 1)
			}
			s.svc.AssertExpectations(t)
		})
	}
}

func TestNoteOwner(t *testing.T) {
	s := setupNotesTest(t)
	noteID := bson.NewObjectID()
	profile := &auth.PublicProfile{ID: bson.NewObjectID().Hex(), Fullname: "Bob Byte", Email: guestEmail, Avatar: "default.png"}
	s.svc.On("Owner", mock.Anything, s.userID, noteID).Return(profile, nil)

	resp := s.do(t, http.MethodGet, notesEndpoint+noteID.Hex()+"/owner", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	owner := testutil.DecodeJSON(t, resp)["owner"].(map[string]any)
	assert.Equal(t, "Bob Byte", owner["fullname"])
	assert.Equal(t, guestEmail, owner["email"])
	assert.NotContains(t, owner, "password_hash")
}

func TestCollaborators(t *testing.T) {
	noteID := bson.NewObjectID()

	tests := []struct {
		name       string
		action     string
		method     string
		body       any
		err        error
		wantStatus int
		wantMsg    string
	}{
		{name: "add", action: "add-collaborator", method: "AddCollaborator", body: notes.CollaboratorRequest{CollaboratorEmail: guestEmail}, wantStatus: http.StatusOK, wantMsg: "Collaborator added successfully."},
		{name: "add duplicate", action: "add-collaborator", method: "AddCollaborator", body: notes.CollaboratorRequest{CollaboratorEmail: guestEmail}, err: notes.ErrCollaboratorExists, wantStatus: http.StatusBadRequest, wantMsg: "User is already a collaborator."},
		{name: "add unknown account", action: "add-collaborator", method: "AddCollaborator", body: notes.CollaboratorRequest{CollaboratorEmail: guestEmail}, err: notes.ErrCollaboratorUnknown, wantStatus: http.StatusNotFound, wantMsg: "User with this email does not exist."},
		{name: "add by collaborator", action: "add-collaborator", method: "AddCollaborator", body: notes.CollaboratorRequest{CollaboratorEmail: guestEmail}, err: &notes.ForbiddenError{Action: "manage collaborators"}, wantStatus: http.StatusForbidden, wantMsg: "only the owner can manage collaborators"},
		{name: "remove", action: "remove-collaborator", method: "RemoveCollaborator", body: notes.CollaboratorRequest{CollaboratorEmail: guestEmail}, wantStatus: http.StatusOK, wantMsg: "Collaborator removed successfully."},
		{name: "remove owner", action: "remove-collaborator", method: "RemoveCollaborator", body: notes.CollaboratorRequest{CollaboratorEmail: guestEmail}, err: notes.ErrRemoveOwner, wantStatus: http.StatusBadRequest, wantMsg: "The owner cannot be removed from collaborators."},
		{name: "invalid email", action: "add-collaborator", body: notes.CollaboratorRequest{CollaboratorEmail: "nope"}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupNotesTest(t)
			if tt.method != "" {
				var note *notes.Note
				if tt.err == nil {
					note = sampleNote(s.userID)
					note.Collaborators = []string{ownerEmail, guestEmail}
				}
				s.svc.On(tt.method, mock.Anything, s.userID, noteID, guestEmail).Return(note, tt.err)
			}

			resp := s.do(t, http.MethodPut, notesEndpoint+noteID.Hex()+"/"+tt.action, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, testutil.DecodeJSON(t, resp)["message"])
			}
			s.svc.AssertExpectations(t)
		})
	}
}

package notes

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"mind-scribe/internal/config"
	"mind-scribe/internal/services/auth"
	"mind-scribe/internal/utils/sanitize"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Service handles notes business logic and decides who may touch a note.
type Service struct {
	repo  Repository
	users Users
	bus   Bus
	cfg   config.Config
	log   *slog.Logger
	now   func() time.Time
}

// NewService creates a new notes service
func NewService(repo Repository, users Users, bus Bus, cfg config.Config, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		users: users,
		bus:   bus,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}
}

// NoteRequest is the body for both create and update. Update replaces every
// editable field, so an omitted location clears it.
type NoteRequest struct {
	Title     string          `json:"title" validate:"max=200" example:"Groceries"`
	Content   []Block         `json:"content" validate:"dive"`
	Checklist []ChecklistItem `json:"checklist" validate:"dive"`
	Location  *GeoPoint       `json:"location,omitempty"`
	Category  string          `json:"category" validate:"max=64" example:"errands"`
}

// ListNotesRequest represents a list notes request
type ListNotesRequest struct {
	Category string `query:"category" validate:"omitempty,max=64" example:"errands"`
}

// NearbyRequest asks for owned notes around a point. Zero radius means the
// configured default.
type NearbyRequest struct {
	Longitude float64
	Latitude  float64
	RadiusM   int
}

// CollaboratorRequest names the account to add or remove.
type CollaboratorRequest struct {
	CollaboratorEmail string `json:"collaboratorEmail" validate:"required,email" example:"bob@example.com"`
}

// NoteResponse represents a single note response
type NoteResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty"`
	Note    *Note  `json:"note"`
}

// ListNotesResponse represents a list of notes response
type ListNotesResponse struct {
	Success bool    `json:"success" example:"true"`
	Notes   []*Note `json:"notes"`
}

// OwnerResponse carries the public profile of a note's owner.
type OwnerResponse struct {
	Success bool               `json:"success" example:"true"`
	Owner   auth.PublicProfile `json:"owner"`
}

// DeleteResponse confirms a deletion.
type DeleteResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Note deleted"`
}

type role int

const (
	roleNone role = iota
	roleOwner
	roleCollaborator
)

// Create stores a new note owned by userID. The owner is the first collaborator.
func (s *Service) Create(ctx context.Context, userID bson.ObjectID, req NoteRequest) (*Note, error) {
	fields, err := normalize(req)
	if err != nil {
		return nil, err
	}

	owner, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	note := &Note{
		ID:            bson.NewObjectID(),
		OwnerID:       userID,
		Collaborators: []string{owner.Email},
		Title:         fields.Title,
		Content:       fields.Content,
		Checklist:     fields.Checklist,
		Location:      fields.Location,
		Category:      fields.Category,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, note); err != nil {
		s.log.Error(ErrCreateNote.Error(), "error", err, "user_id", userID.Hex())
		return nil, ErrCreateNote
	}

	if err := s.users.AddNoteRef(ctx, userID, note.ID); err != nil {
		s.log.Warn("failed to record note on owner", "error", err, "user_id", userID.Hex(), "note_id", note.ID.Hex())
	}

	s.publish(ctx, EventCreated, note, "", note.Collaborators)
	return note.syncShared(), nil
}

// List returns every note the user owns or collaborates on, newest first.
func (s *Service) List(ctx context.Context, userID bson.ObjectID, req ListNotesRequest) ([]*Note, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	req.Category = sanitize.Category(req.Category)

	found, err := s.repo.ListVisible(ctx, userID, user.Email, req)
	if err != nil {
		s.log.Error(ErrListNotes.Error(), "error", err, "user_id", userID.Hex())
		return nil, ErrListNotes
	}

	out := make([]*Note, 0, len(found))
	for _, n := range found {
		out = append(out, n.syncShared())
	}
	return out, nil
}

// Update replaces the editable fields. Owner and collaborators may update.
func (s *Service) Update(ctx context.Context, userID, noteID bson.ObjectID, req NoteRequest) (*Note, error) {
	if _, _, err := s.access(ctx, userID, noteID); err != nil {
		return nil, err
	}

	fields, err := normalize(req)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, noteID, fields)
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			return nil, err
		}
		s.log.Error(ErrUpdateNote.Error(), "error", err, "user_id", userID.Hex(), "note_id", noteID.Hex())
		return nil, ErrUpdateNote
	}

	s.publish(ctx, EventUpdated, updated, "", updated.Collaborators)
	return updated.syncShared(), nil
}

// Delete removes a note. Only the owner may delete.
func (s *Service) Delete(ctx context.Context, userID, noteID bson.ObjectID) error {
	note, r, err := s.access(ctx, userID, noteID)
	if err != nil {
		return err
	}
	if r != roleOwner {
		return s.forbidden(ctx, note, "delete this note")
	}

	if err := s.repo.Delete(ctx, noteID); err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			return err
		}
		s.log.Error(ErrDeleteNote.Error(), "error", err, "user_id", userID.Hex(), "note_id", noteID.Hex())
		return ErrDeleteNote
	}

	if err := s.users.RemoveNoteRef(ctx, note.OwnerID, noteID); err != nil {
		s.log.Warn("failed to drop note from owner", "error", err, "user_id", userID.Hex(), "note_id", noteID.Hex())
	}

	s.publish(ctx, EventDeleted, note, "", note.Collaborators)
	return nil
}

// Nearby returns the caller's own geotagged notes within the radius, nearest first.
func (s *Service) Nearby(ctx context.Context, userID bson.ObjectID, req NearbyRequest) ([]*Note, error) {
	if _, err := validateLocation(NewPoint(req.Longitude, req.Latitude)); err != nil {
		return nil, err
	}

	radius := req.RadiusM
	if radius == 0 {
		radius = s.cfg.NearbyDefaultRadiusM
	}
	if radius < 0 || radius > s.cfg.NearbyMaxRadiusM {
		return nil, ErrInvalidRadius
	}

	found, err := s.repo.Nearby(ctx, userID, req.Longitude, req.Latitude, radius)
	if err != nil {
		s.log.Error("failed to query nearby notes", "error", err, "user_id", userID.Hex())
		return nil, ErrListNotes
	}

	out := make([]*Note, 0, len(found))
	for _, n := range found {
		out = append(out, n.syncShared())
	}
	return out, nil
}

// Owner resolves the public profile of a note's owner for any signed-in user.
func (s *Service) Owner(ctx context.Context, _, noteID bson.ObjectID) (*auth.PublicProfile, error) {
	note, err := s.repo.FindByID(ctx, noteID)
	if err != nil {
		return nil, err
	}

	owner, err := s.users.FindByID(ctx, note.OwnerID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, err
	}
	profile := owner.Public()
	return &profile, nil
}

// AddCollaborator shares the note with an existing account. Owner only.
func (s *Service) AddCollaborator(ctx context.Context, userID, noteID bson.ObjectID, email string) (*Note, error) {
	email = strings.TrimSpace(email)

	note, err := s.ownedBy(ctx, userID, noteID, "manage collaborators")
	if err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, email); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, ErrCollaboratorUnknown
		}
		return nil, err
	}

	if note.HasCollaborator(email) {
		return nil, ErrCollaboratorExists
	}

	updated, err := s.repo.AddCollaborator(ctx, noteID, userID, email)
	if err != nil {
		if errors.Is(err, ErrCollaboratorExists) || errors.Is(err, ErrNoteNotFound) {
			return nil, err
		}
		s.log.Error(ErrShareNote.Error(), "error", err, "user_id", userID.Hex(), "note_id", noteID.Hex())
		return nil, ErrShareNote
	}

	s.publish(ctx, EventShared, updated, email, updated.Collaborators)
	return updated.syncShared(), nil
}

// RemoveCollaborator unshares the note. Owner only; removing an email that is
// not on the list succeeds without changes.
func (s *Service) RemoveCollaborator(ctx context.Context, userID, noteID bson.ObjectID, email string) (*Note, error) {
	email = strings.TrimSpace(email)

	note, err := s.ownedBy(ctx, userID, noteID, "manage collaborators")
	if err != nil {
		return nil, err
	}

	owner, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if email == owner.Email {
		return nil, ErrRemoveOwner
	}

	if !note.HasCollaborator(email) {
		return note.syncShared(), nil
	}

	updated, err := s.repo.RemoveCollaborator(ctx, noteID, userID, email)
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			return nil, err
		}
		s.log.Error(ErrShareNote.Error(), "error", err, "user_id", userID.Hex(), "note_id", noteID.Hex())
		return nil, ErrShareNote
	}

	recipients := append(append([]string{}, updated.Collaborators...), email)
	s.publish(ctx, EventUnshared, updated, email, recipients)
	return updated.syncShared(), nil
}

// access loads the note and the caller's role. Non-members get ErrNoteNotFound
// so the note's existence is not disclosed.
func (s *Service) access(ctx context.Context, userID, noteID bson.ObjectID) (*Note, role, error) {
	note, err := s.repo.FindByID(ctx, noteID)
	if err != nil {
		return nil, roleNone, err
	}
	if note.IsOwner(userID) {
		return note, roleOwner, nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, roleNone, ErrNoteNotFound
		}
		return nil, roleNone, err
	}
	if note.HasCollaborator(user.Email) {
		return note, roleCollaborator, nil
	}
	return nil, roleNone, ErrNoteNotFound
}

// ownedBy loads the note for an owner-only action. Every other caller,
// collaborator or not, gets a ForbiddenError naming the owner.
func (s *Service) ownedBy(ctx context.Context, userID, noteID bson.ObjectID, action string) (*Note, error) {
	note, err := s.repo.FindByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if !note.IsOwner(userID) {
		return nil, s.forbidden(ctx, note, action)
	}
	return note, nil
}

func (s *Service) forbidden(ctx context.Context, note *Note, action string) error {
	fe := &ForbiddenError{Action: action, Owner: auth.PublicProfile{ID: note.OwnerID.Hex()}}
	owner, err := s.users.FindByID(ctx, note.OwnerID)
	if err != nil {
		s.log.Warn("failed to resolve note owner", "error", err, "note_id", note.ID.Hex())
		return fe
	}
	fe.Owner = owner.Public()
	return fe
}

func (s *Service) publish(ctx context.Context, typ string, note *Note, email string, recipients []string) {
	if s.bus == nil {
		return
	}
	s.bus.Broadcast(ctx, NoteEvent{
		Type:       typ,
		Note:       note,
		Email:      email,
		Recipients: recipients,
	})
}

// normalize sanitizes user input and enforces the note shape.
func normalize(req NoteRequest) (Fields, error) {
	title := sanitize.Clean(req.Title)
	if title == "" || len(req.Content) == 0 {
		return Fields{}, ErrTitleContentRequired
	}

	content := make([]Block, 0, len(req.Content))
	for _, b := range req.Content {
		switch b.Type {
		case BlockText:
			content = append(content, Block{Type: BlockText, Text: sanitize.Clean(b.Text)})
		case BlockCheckbox:
			content = append(content, Block{Type: BlockCheckbox, Text: sanitize.Clean(b.Text), Checked: b.Checked})
		case BlockImage:
			u := sanitize.ImageURL(b.ImageURL)
			if u == "" {
				return Fields{}, ErrInvalidBlock
			}
			content = append(content, Block{Type: BlockImage, ImageURL: u})
		default:
			return Fields{}, ErrInvalidBlock
		}
	}

	checklist := make([]ChecklistItem, 0, len(req.Checklist))
	for _, it := range req.Checklist {
		checklist = append(checklist, ChecklistItem{Text: sanitize.Clean(it.Text), Checked: it.Checked})
	}

	loc, err := validateLocation(req.Location)
	if err != nil {
		return Fields{}, err
	}

	return Fields{
		Title:     title,
		Content:   content,
		Checklist: checklist,
		Location:  loc,
		Category:  sanitize.Category(req.Category),
	}, nil
}

// validateLocation accepts nil or a well-formed point and rejects the rest.
func validateLocation(p *GeoPoint) (*GeoPoint, error) {
	if p == nil {
		return nil, nil
	}
	if p.Type != "" && p.Type != GeoJSONPoint {
		return nil, ErrInvalidLocation
	}
	if len(p.Coordinates) != 2 {
		return nil, ErrInvalidLocation
	}
	lon, lat := p.Coordinates[0], p.Coordinates[1]
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return nil, ErrInvalidLocation
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return nil, ErrInvalidLocation
	}
	return NewPoint(lon, lat), nil
}

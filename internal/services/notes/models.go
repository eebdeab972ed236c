package notes

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Content block kinds.
const (
	BlockText     = "text"
	BlockCheckbox = "checkbox"
	BlockImage    = "image"
)

// GeoJSONPoint is the only geometry a note location may hold.
const GeoJSONPoint = "Point"

// Event types published on the hub.
const (
	EventCreated  = "created"
	EventUpdated  = "updated"
	EventDeleted  = "deleted"
	EventShared   = "shared"
	EventUnshared = "unshared"
)

// Block is one ordered piece of note content.
type Block struct {
	Type     string `bson:"type" json:"type" validate:"required,oneof=text checkbox image" example:"text"`
	Text     string `bson:"text,omitempty" json:"text,omitempty" example:"Buy milk"`
	Checked  bool   `bson:"checked" json:"checked" example:"false"`
	ImageURL string `bson:"image_url,omitempty" json:"imageUrl,omitempty" example:"https://example.com/cat.png"`
}

// ChecklistItem is a standalone checklist entry.
type ChecklistItem struct {
	Text    string `bson:"text" json:"text" validate:"max=1000" example:"Eggs"`
	Checked bool   `bson:"checked" json:"checked" example:"true"`
}

// GeoPoint is a GeoJSON point: coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type" example:"Point"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates" swaggertype:"array,number" example:"-122.4194,37.7749"`
}

// Longitude returns the first coordinate.
func (p *GeoPoint) Longitude() float64 { return p.Coordinates[0] }

// Latitude returns the second coordinate.
func (p *GeoPoint) Latitude() float64 { return p.Coordinates[1] }

// NewPoint builds a GeoJSON point.
func NewPoint(longitude, latitude float64) *GeoPoint {
	return &GeoPoint{Type: GeoJSONPoint, Coordinates: []float64{longitude, latitude}}
}

// Note is a user-owned document that may be shared by email.
type Note struct {
	ID            bson.ObjectID   `bson:"_id,omitempty" json:"id,omitempty" example:"683cdb8aa96ad71e8e075bd1"`
	OwnerID       bson.ObjectID   `bson:"user" json:"user" example:"683cdb8aa96ad71e8e075bd0"`
	Collaborators []string        `bson:"collaborators" json:"collaborators" example:"ada@example.com"`
	Title         string          `bson:"title" json:"title" example:"Groceries"`
	Content       []Block         `bson:"content" json:"content"`
	Checklist     []ChecklistItem `bson:"checklist" json:"checklist"`
	Location      *GeoPoint       `bson:"location,omitempty" json:"location,omitempty"`
	Category      string          `bson:"category,omitempty" json:"category,omitempty" example:"errands"`
	Shared        bool            `bson:"-" json:"shared" example:"false"`
	CreatedAt     time.Time       `bson:"created_at" json:"createdAt" example:"2025-06-01T23:00:26.005703677Z"`
	UpdatedAt     time.Time       `bson:"updated_at" json:"updatedAt" example:"2025-06-01T23:00:26.005703677Z"`
}

// IsOwner reports whether userID owns the note.
func (n *Note) IsOwner(userID bson.ObjectID) bool {
	return n.OwnerID == userID
}

// HasCollaborator reports exact, case-sensitive membership.
func (n *Note) HasCollaborator(email string) bool {
	return slices.Contains(n.Collaborators, email)
}

// IsShared is true once anyone besides the owner is on the list.
func (n *Note) IsShared() bool {
	return len(n.Collaborators) > 1
}

func (n *Note) syncShared() *Note {
	n.Shared = n.IsShared()
	return n
}

// Fields are the editable parts of a note.
type Fields struct {
	Title     string
	Content   []Block
	Checklist []ChecklistItem
	Location  *GeoPoint
	Category  string
}

// NoteEvent represents an event that occurred on a note
type NoteEvent struct {
	Type       string   `json:"type"`
	Note       *Note    `json:"note"`
	Email      string   `json:"email,omitempty"`
	Recipients []string `json:"-"`
}

package notes

import (
	"errors"
	"fmt"

	"mind-scribe/internal/services/auth"
)

// ErrNoteNotFound - note not found in DB, or not visible to the caller
var ErrNoteNotFound = errors.New("Note not found")

// ErrTitleContentRequired is returned when a note lacks a title or content.
var ErrTitleContentRequired = errors.New("Title and content are required.")

// ErrInvalidLocation is returned for malformed or out-of-range coordinates.
var ErrInvalidLocation = errors.New("invalid location")

// ErrInvalidBlock is returned when a content block does not match its type.
var ErrInvalidBlock = errors.New("invalid content block")

// ErrInvalidRadius is returned when a nearby radius is out of range.
var ErrInvalidRadius = errors.New("invalid radius")

// ErrCollaboratorExists is returned when the email is already on the list.
var ErrCollaboratorExists = errors.New("User is already a collaborator.")

// ErrCollaboratorUnknown is returned when no account has the target email.
var ErrCollaboratorUnknown = errors.New("User with this email does not exist.")

// ErrRemoveOwner is returned when the owner tries to unshare themselves.
var ErrRemoveOwner = errors.New("The owner cannot be removed from collaborators.")

// ErrOwnerNotFound is returned when a note's owner account is gone.
var ErrOwnerNotFound = errors.New("Owner not found")

// ErrForbidden matches every *ForbiddenError via errors.Is.
var ErrForbidden = errors.New("forbidden")

// Generic server-side failures.
var (
	ErrCreateNote      = errors.New("failed to create note")
	ErrUpdateNote      = errors.New("failed to update note")
	ErrDeleteNote      = errors.New("failed to delete note")
	ErrListNotes       = errors.New("failed to list notes")
	ErrShareNote       = errors.New("failed to update collaborators")
	ErrCreateNotesRepo = errors.New("failed to create notes repository")
)

// ForbiddenError names the owner so the caller knows whom to ask.
type ForbiddenError struct {
	Owner  auth.PublicProfile
	Action string
}

func (e *ForbiddenError) Error() string {
	if e.Owner.Email == "" {
		return "only the owner can " + e.Action
	}
	return fmt.Sprintf("only %s (%s) can %s", e.Owner.Fullname, e.Owner.Email, e.Action)
}

// Is lets errors.Is(err, ErrForbidden) match.
func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

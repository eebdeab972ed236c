package handlerutil

import (
	"errors"
	"fmt"
	"testing"

	"mind-scribe/cmd/server/handlers/httperr"
	"mind-scribe/internal/services/auth"
	"mind-scribe/internal/services/notes"
	"mind-scribe/internal/utils/crypto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestHandleServiceError(t *testing.T) {
	owner := auth.PublicProfile{Fullname: "Ada Lovelace", Email: "ada@example.com"}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"note not found", notes.ErrNoteNotFound, 404, "Note not found"},
		{"wrapped not found", fmt.Errorf("lookup: %w", notes.ErrNoteNotFound), 404, "Note not found"},
		{"unknown collaborator", notes.ErrCollaboratorUnknown, 404, "User with this email does not exist."},
		{"user gone", auth.ErrUserNotFound, 404, "User not found."},
		{"duplicate email", auth.ErrDuplicate, 400, "Email already exists."},
		{"collaborator exists", notes.ErrCollaboratorExists, 400, "User is already a collaborator."},
		{"weak password", crypto.ErrPasswordStrength, 400, crypto.ErrPasswordStrength.Error()},
		{"missing title", notes.ErrTitleContentRequired, 400, "Title and content are required."},
		{"forbidden names owner", &notes.ForbiddenError{Owner: owner, Action: "manage collaborators"}, 403,
			"only Ada Lovelace (ada@example.com) can manage collaborators"},
		{"server fault hidden", errors.New("connection reset"), 500, "Server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			noteID := bson.NewObjectID()
			err := HandleServiceError(tt.err, "Test", bson.NewObjectID(), &noteID)

			var e httperr.E
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.wantStatus, e.Status)
			assert.Equal(t, tt.wantMsg, e.Message)
		})
	}
}

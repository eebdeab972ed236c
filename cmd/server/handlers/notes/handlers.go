package notes

import (
	"context"
	"errors"
	"strconv"

	"mind-scribe/cmd/server/handlers/handlerutil"
	"mind-scribe/cmd/server/handlers/httperr"
	"mind-scribe/internal/logger"
	"mind-scribe/internal/services/auth"
	"mind-scribe/internal/services/notes"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Service defines the interface for notes service
type Service interface {
	Create(ctx context.Context, userID bson.ObjectID, req notes.NoteRequest) (*notes.Note, error)
	List(ctx context.Context, userID bson.ObjectID, req notes.ListNotesRequest) ([]*notes.Note, error)
	Update(ctx context.Context, userID, noteID bson.ObjectID, req notes.NoteRequest) (*notes.Note, error)
	Delete(ctx context.Context, userID, noteID bson.ObjectID) error
	Nearby(ctx context.Context, userID bson.ObjectID, req notes.NearbyRequest) ([]*notes.Note, error)
	Owner(ctx context.Context, userID, noteID bson.ObjectID) (*auth.PublicProfile, error)
	AddCollaborator(ctx context.Context, userID, noteID bson.ObjectID, email string) (*notes.Note, error)
	RemoveCollaborator(ctx context.Context, userID, noteID bson.ObjectID, email string) (*notes.Note, error)
}

// Handlers contains the notes HTTP handlers
type Handlers struct {
	service   Service
	validator *validator.Validate
}

// NewHandlers creates new notes handlers
func NewHandlers(service Service, validator *validator.Validate) *Handlers {
	return &Handlers{
		service:   service,
		validator: validator,
	}
}

// Create handles note creation
// @Summary Create a new note
// @Tags notes
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body notes.NoteRequest true "Create note request"
// @Success 201 {object} notes.NoteResponse
// @Failure 400 {object} httperr.E
// @Failure 401 {object} httperr.E
// @Router /notes [post]
func (h *Handlers) Create(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	var req notes.NoteRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Create"); err != nil {
		return err
	}

	note, err := h.service.Create(c.UserContext(), userID, req)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Create", userID, nil)
	}

	return c.Status(fiber.StatusCreated).JSON(notes.NoteResponse{Success: true, Note: note})
}

// List returns every note the caller owns or collaborates on
// @Summary List visible notes
// @Tags notes
// @Produce json
// @Security Bearer
// @Param category query string false "Exact category filter"
// @Success 200 {object} notes.ListNotesResponse
// @Failure 400 {object} httperr.E
// @Failure 401 {object} httperr.E
// @Router /notes [get]
func (h *Handlers) List(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	var req notes.ListNotesRequest
	if err := handlerutil.ParseAndValidateQuery(c, &req, h.validator, "List"); err != nil {
		return err
	}

	found, err := h.service.List(c.UserContext(), userID, req)
	if err != nil {
		return handlerutil.HandleServiceError(err, "List", userID, nil)
	}

	return c.JSON(notes.ListNotesResponse{Success: true, Notes: found})
}

// Update replaces a note's editable fields
// @Summary Update a note
// @Tags notes
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Note ID"
// @Param request body notes.NoteRequest true "Replacement note"
// @Success 200 {object} notes.NoteResponse
// @Failure 400 {object} httperr.E
// @Failure 401 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /notes/{id} [put]
func (h *Handlers) Update(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	noteID, err := handlerutil.ExtractNoteID(c, userID, "Update")
	if err != nil {
		return err
	}

	var req notes.NoteRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Update"); err != nil {
		return err
	}

	note, err := h.service.Update(c.UserContext(), userID, noteID, req)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Update", userID, &noteID)
	}

	return c.JSON(notes.NoteResponse{Success: true, Note: note})
}

// Delete handles note deletion
// @Summary Delete a note
// @Tags notes
// @Produce json
// @Security Bearer
// @Param id path string true "Note ID"
// @Success 200 {object} notes.DeleteResponse
// @Failure 401 {object} httperr.E
// @Failure 403 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /notes/{id} [delete]
func (h *Handlers) Delete(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	noteID, err := handlerutil.ExtractNoteID(c, userID, "Delete")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.UserContext(), userID, noteID); err != nil {
		return handlerutil.HandleServiceError(err, "Delete", userID, &noteID)
	}

	return c.JSON(notes.DeleteResponse{Success: true, Message: "Note deleted"})
}

// Nearby returns the caller's own geotagged notes around a point
// @Summary Find nearby notes
// @Tags notes
// @Produce json
// @Security Bearer
// @Param longitude query number true "Longitude" minimum(-180) maximum(180)
// @Param latitude query number true "Latitude" minimum(-90) maximum(90)
// @Param radius query int false "Radius in metres (default from config)"
// @Success 200 {object} notes.ListNotesResponse
// @Failure 400 {object} httperr.E
// @Failure 401 {object} httperr.E
// @Router /notes/nearby [get]
func (h *Handlers) Nearby(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	req, err := parseNearby(c)
	if err != nil {
		logger.L().Info("invalid nearby query", "handler", "Nearby", "userID", userID.Hex(), "error", err)
		return httperr.InvalidInput(err)
	}

	found, err := h.service.Nearby(c.UserContext(), userID, req)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Nearby", userID, nil)
	}

	return c.JSON(notes.ListNotesResponse{Success: true, Notes: found})
}

// Owner returns the public profile of a note's owner
// @Summary Get note owner
// @Tags notes
// @Produce json
// @Security Bearer
// @Param id path string true "Note ID"
// @Success 200 {object} notes.OwnerResponse
// @Failure 401 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /notes/{id}/owner [get]
func (h *Handlers) Owner(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	noteID, err := handlerutil.ExtractNoteID(c, userID, "Owner")
	if err != nil {
		return err
	}

	owner, err := h.service.Owner(c.UserContext(), userID, noteID)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Owner", userID, &noteID)
	}

	return c.JSON(notes.OwnerResponse{Success: true, Owner: *owner})
}

// AddCollaborator shares a note with another account
// @Summary Add a collaborator
// @Tags notes
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Note ID"
// @Param request body notes.CollaboratorRequest true "Collaborator email"
// @Success 200 {object} notes.NoteResponse
// @Failure 400 {object} httperr.E
// @Failure 403 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /notes/{id}/add-collaborator [put]
func (h *Handlers) AddCollaborator(c *fiber.Ctx) error {
	return h.collaborator(c, "AddCollaborator", h.service.AddCollaborator, "Collaborator added successfully.")
}

// RemoveCollaborator revokes a collaborator's access
// @Summary Remove a collaborator
// @Tags notes
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Note ID"
// @Param request body notes.CollaboratorRequest true "Collaborator email"
// @Success 200 {object} notes.NoteResponse
// @Failure 400 {object} httperr.E
// @Failure 403 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /notes/{id}/remove-collaborator [put]
func (h *Handlers) RemoveCollaborator(c *fiber.Ctx) error {
	return h.collaborator(c, "RemoveCollaborator", h.service.RemoveCollaborator, "Collaborator removed successfully.")
}

type collaboratorFunc func(ctx context.Context, userID, noteID bson.ObjectID, email string) (*notes.Note, error)

func (h *Handlers) collaborator(c *fiber.Ctx, handlerName string, apply collaboratorFunc, message string) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	noteID, err := handlerutil.ExtractNoteID(c, userID, handlerName)
	if err != nil {
		return err
	}

	var req notes.CollaboratorRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, handlerName); err != nil {
		return err
	}

	note, err := apply(c.UserContext(), userID, noteID, req.CollaboratorEmail)
	if err != nil {
		return handlerutil.HandleServiceError(err, handlerName, userID, &noteID)
	}

	return c.JSON(notes.NoteResponse{Success: true, Message: message, Note: note})
}

var (
	errNearbyPointRequired = errors.New("longitude and latitude are required")
	errNearbyLongitude     = errors.New("longitude must be a number")
	errNearbyLatitude      = errors.New("latitude must be a number")
	errNearbyRadius        = errors.New("radius must be a positive integer")
)

func parseNearby(c *fiber.Ctx) (notes.NearbyRequest, error) {
	lonRaw, latRaw := c.Query("longitude"), c.Query("latitude")
	if lonRaw == "" || latRaw == "" {
		return notes.NearbyRequest{}, errNearbyPointRequired
	}

	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil {
		return notes.NearbyRequest{}, errNearbyLongitude
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return notes.NearbyRequest{}, errNearbyLatitude
	}

	req := notes.NearbyRequest{Longitude: lon, Latitude: lat}
	if raw := c.Query("radius"); raw != "" {
		radius, err := strconv.Atoi(raw)
		if err != nil || radius <= 0 {
			return notes.NearbyRequest{}, errNearbyRadius
		}
		req.RadiusM = radius
	}
	return req, nil
}

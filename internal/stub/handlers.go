package stub

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/birbparty/groundhogg-go/internal/telemetry"
	"github.com/birbparty/groundhogg-go/sdk"
)

// Handler holds all dependencies for API handlers
type Handler struct {
	store   *Store
	events  *AsyncPublisher
	metrics *Metrics
	logger  *logrus.Entry
	started time.Time
	clock   func() time.Time
}

// NewHandler creates a new handler instance
func NewHandler(store *Store, events *AsyncPublisher, metrics *Metrics, logger *logrus.Entry) *Handler {
	return &Handler{
		store:   store,
		events:  events,
		metrics: metrics,
		logger:  logger,
		started: time.Now(),
		clock:   time.Now,
	}
}

// CreateContact handles POST /contacts
func (h *Handler) CreateContact(c *fiber.Ctx) error {
	var fields map[string]any
	if err := json.Unmarshal(c.Body(), &fields); err != nil || fields == nil {
		return respondError(c, fiber.StatusBadRequest, ErrCodeInvalidJSON, "Request body must be a JSON object.")
	}
	email, _ := fields["email"].(string)
	if !strings.Contains(email, "@") {
		return respondError(c, fiber.StatusBadRequest, ErrCodeInvalidEmail, "A valid email is required.")
	}

	contact := h.store.Create(fields)
	h.metrics.SetContacts(h.store.Len())
	telemetry.WithContext(c.UserContext()).WithField("contact_id", contact["id"]).Info("Contact created")

	return c.Status(fiber.StatusCreated).JSON(envelope(contact, "Contact created."))
}

// ListContacts handles GET /contacts, honouring the search headers.
func (h *Handler) ListContacts(c *fiber.Ctx) error {
	contacts := h.store.List(c.Get("X-Search-Email"), c.Get("X-Search-Phone"))
	return c.JSON(envelope(contacts, ""))
}

// GetContact handles GET /contacts/:id
func (h *Handler) GetContact(c *fiber.Ctx) error {
	id, ok := contactID(c)
	if !ok {
		return respondError(c, fiber.StatusBadRequest, ErrCodeInvalidParam, "Invalid contact ID.")
	}
	contact, err := h.store.Get(id)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(envelope(contact, ""))
}

// UpdateContact handles PATCH /contacts/:id
func (h *Handler) UpdateContact(c *fiber.Ctx) error {
	id, ok := contactID(c)
	if !ok {
		return respondError(c, fiber.StatusBadRequest, ErrCodeInvalidParam, "Invalid contact ID.")
	}
	var changes map[string]any
	if err := json.Unmarshal(c.Body(), &changes); err != nil {
		return respondError(c, fiber.StatusBadRequest, ErrCodeInvalidJSON, "Request body must be a JSON object.")
	}
	contact, err := h.store.Update(id, changes)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(envelope(contact, "Contact updated."))
}

// AddTags handles POST /contacts/:id/tags
func (h *Handler) AddTags(c *fiber.Ctx) error {
	return h.changeTags(c, h.store.AddTags)
}

// RemoveTags handles DELETE /contacts/:id/tags
func (h *Handler) RemoveTags(c *fiber.Ctx) error {
	return h.changeTags(c, h.store.RemoveTags)
}

func (h *Handler) changeTags(c *fiber.Ctx, apply func(int64, []int64) (map[string]any, error)) error {
	id, ok := contactID(c)
	if !ok {
		return respondError(c, fiber.StatusBadRequest, ErrCodeInvalidParam, "Invalid contact ID.")
	}
	var req TagRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return respondError(c, fiber.StatusBadRequest, ErrCodeInvalidJSON, "tag_ids must be a list of integers.")
	}
	contact, err := apply(id, req.TagIDs)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(envelope(contact, ""))
}

// ListNotes handles GET /contacts/:id/notes
func (h *Handler) ListNotes(c *fiber.Ctx) error {
	id, ok := contactID(c)
	if !ok {
		return respondError(c, fiber.StatusBadRequest, ErrCodeInvalidParam, "Invalid contact ID.")
	}
	notes, err := h.store.Notes(id)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(envelope(notes, ""))
}

// AddNote handles POST /contacts/:id/notes
func (h *Handler) AddNote(c *fiber.Ctx) error {
	id, ok := contactID(c)
	if !ok {
		return respondError(c, fiber.StatusBadRequest, ErrCodeInvalidParam, "Invalid contact ID.")
	}
	var req NoteRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return respondError(c, fiber.StatusBadRequest, ErrCodeInvalidJSON, "Request body must be a JSON object.")
	}
	if strings.TrimSpace(req.Content) == "" {
		return respondError(c, fiber.StatusBadRequest, ErrCodeInvalidParam, "Note content is required.")
	}
	note, err := h.store.AddNote(id, req.Content, req.Type)
	if err != nil {
		return storeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(envelope(note, "Note added."))
}

// Track handles POST on the tracking path and forwards the event.
func (h *Handler) Track(c *fiber.Ctx) error {
	var payload sdk.TrackingPayload
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid tracking payload",
		})
	}
	if strings.TrimSpace(payload.Event) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"code":    ErrCodeMissingEvent,
			"message": "Event name is required",
		})
	}

	event := &TrackedEvent{
		ID:         uuid.NewString(),
		Event:      payload.Event,
		ContactID:  int64(payload.ContactID),
		Data:       payload.Data,
		ReceivedAt: h.clock().UTC(),
	}
	if rid, ok := c.Locals("requestid").(string); ok {
		event.RequestID = rid
	}

	h.metrics.RecordTracked(payload.Event)
	queued := h.events.Enqueue(c.UserContext(), event)
	h.logger.WithFields(logrus.Fields{
		"event":      event.Event,
		"contact_id": event.ContactID,
		"queued":     queued,
	}).Debug("Event accepted")

	return c.JSON(fiber.Map{"success": true})
}

// Health handles GET /health
func (h *Handler) Health(c *fiber.Ctx) error {
	stats := h.events.Stats()
	checks := map[string]string{"store": "healthy", "events": "healthy"}
	status := "healthy"
	if stats.QueueCapacity > 0 && stats.QueueDepth >= stats.QueueCapacity {
		checks["events"] = "saturated"
		status = "degraded"
	}

	return c.JSON(HealthResponse{
		Status:   status,
		Service:  "groundhogg-stub",
		Version:  sdk.Version,
		Uptime:   time.Since(h.started).Round(time.Second).String(),
		Checks:   checks,
		Contacts: h.store.Len(),
	})
}

func contactID(c *fiber.Ctx) (int64, bool) {
	id, err := sdk.ParseContactID(c.Params("id"))
	if err != nil {
		return 0, false
	}
	return int64(id), true
}

func storeError(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrContactNotFound) {
		return respondError(c, fiber.StatusNotFound, ErrCodeNoContact, "Contact not found.")
	}
	return respondError(c, fiber.StatusInternalServerError, ErrCodeInternalError, err.Error())
}

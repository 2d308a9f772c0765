package handlers

import (
	"context"

	"github.com/JustinPerea/youtube-to-notes-sub002/errors"
	"github.com/JustinPerea/youtube-to-notes-sub002/models"
	"github.com/JustinPerea/youtube-to-notes-sub002/queue"
	"github.com/JustinPerea/youtube-to-notes-sub002/repository"
	"github.com/JustinPerea/youtube-to-notes-sub002/services/notes"
	"github.com/JustinPerea/youtube-to-notes-sub002/validation"
	"github.com/gofiber/fiber/v2"
)

// NotesArchive reads notes previously archived to long-term storage.
type NotesArchive interface {
	GetNotes(ctx context.Context, jobID string) (string, error)
}

type NotesHandler struct {
	service   notes.Service
	queue     *queue.Queue
	repo      repository.JobRepository
	archive   NotesArchive
	validator *validation.Validator
	templates map[string]models.Template
}

func NewNotesHandler(
	service notes.Service,
	q *queue.Queue,
	repo repository.JobRepository,
	archive NotesArchive,
	validator *validation.Validator,
	templates map[string]models.Template,
) *NotesHandler {
	return &NotesHandler{
		service:   service,
		queue:     q,
		repo:      repo,
		archive:   archive,
		validator: validator,
		templates: templates,
	}
}

type processRequest struct {
	URL                string `json:"url"`
	TemplateID         string `json:"template_id"`
	Mode               string `json:"mode"`
	CustomInstructions string `json:"custom_instructions"`
	Priority           string `json:"priority"`
}

func (h *NotesHandler) buildRequest(c *fiber.Ctx) (models.ProcessingRequest, *processRequest, error) {
	const op = "NotesHandler.buildRequest"

	var body processRequest
	if err := c.BodyParser(&body); err != nil {
		return models.ProcessingRequest{}, nil, errors.InvalidInput(op, err, "Invalid request body")
	}

	ref, err := h.validator.ParseVideoReference(body.URL)
	if err != nil {
		return models.ProcessingRequest{}, nil, err
	}

	if body.TemplateID == "" {
		body.TemplateID = "basic-summary"
	}
	template, ok := h.templates[body.TemplateID]
	if !ok {
		return models.ProcessingRequest{}, nil, errors.InvalidInput(op, nil, "Unknown template")
	}

	mode := models.ProcessingMode(body.Mode)
	switch mode {
	case models.ModeAuto, models.ModeHybrid, models.ModeTranscriptOnly, models.ModeVideoOnly:
	case "":
		mode = models.ModeAuto
	default:
		return models.ProcessingRequest{}, nil, errors.InvalidInput(op, nil, "Unknown processing mode")
	}

	return models.ProcessingRequest{
		VideoRef:           ref,
		Template:           template,
		TemplateID:         template.ID,
		CustomInstructions: body.CustomInstructions,
		Mode:               mode,
	}, &body, nil
}

// ProcessVideo handles the synchronous processing endpoint.
func (h *NotesHandler) ProcessVideo(c *fiber.Ctx) error {
	req, _, err := h.buildRequest(c)
	if err != nil {
		return err
	}

	resp, err := h.service.ProcessVideo(c.Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": resp.IsCompleted(),
		"data":    resp,
	})
}

// Enqueue handles asynchronous submission with a priority.
func (h *NotesHandler) Enqueue(c *fiber.Ctx) error {
	req, body, err := h.buildRequest(c)
	if err != nil {
		return err
	}

	id, err := h.queue.Enqueue(c.Context(), req, models.ParsePriority(body.Priority))
	if err == queue.ErrQueueFull {
		return &errors.AppError{
			Code:    fiber.StatusServiceUnavailable,
			Message: "Queue is full, try again later",
		}
	}
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"id": id},
	})
}

// GetJob returns the persisted state of an enqueued job.
func (h *NotesHandler) GetJob(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return &errors.AppError{
			Code:    fiber.StatusBadRequest,
			Message: "ID is required",
		}
	}

	job, err := h.repo.Find(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    models.NewJobResponse(job),
	})
}

// GetArchivedNotes serves the long-term archived copy of a completed job.
func (h *NotesHandler) GetArchivedNotes(c *fiber.Ctx) error {
	const op = "NotesHandler.GetArchivedNotes"

	if h.archive == nil {
		return &errors.AppError{
			Code:    fiber.StatusNotFound,
			Message: "Archival is not enabled",
		}
	}

	id := c.Params("id")
	job, err := h.repo.Find(c.Context(), id)
	if err != nil {
		return err
	}
	if !job.IsCompleted() {
		return &errors.AppError{
			Code:    fiber.StatusConflict,
			Message: "Job has not completed",
		}
	}

	text, err := h.archive.GetNotes(c.Context(), id)
	if err != nil {
		return errors.Internal(op, err, "Failed to load archived notes")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"id": id, "notes": text},
	})
}

// QueueStatus reports queue length and worker activity.
func (h *NotesHandler) QueueStatus(c *fiber.Ctx) error {
	length, isProcessing := h.queue.Status()
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"length":        length,
			"is_processing": isProcessing,
		},
	})
}

// HealthCheck issues a minimal generation call through the fallback chain.
func (h *NotesHandler) HealthCheck(c *fiber.Ctx) error {
	if err := h.service.HealthCheck(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":  "unhealthy",
			"message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"message": "generation backend reachable",
	})
}

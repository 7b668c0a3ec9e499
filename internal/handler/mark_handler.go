package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/vidyalay/pariksha-api/internal/dto"
	"github.com/vidyalay/pariksha-api/internal/service"
	"github.com/vidyalay/pariksha-api/internal/utils"
)

// MarkHandler manages mark entry and result endpoints.
type MarkHandler struct {
	service service.MarksEngine
	logger  zerolog.Logger
}

// NewMarkHandler builds a mark handler instance.
func NewMarkHandler(service service.MarksEngine, logger zerolog.Logger) *MarkHandler {
	return &MarkHandler{
		service: service,
		logger:  logger.With().Str("component", "mark_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. The group is
// expected to be rooted at /exams/:id.
func (h *MarkHandler) Register(router fiber.Router) {
	router.Get("/marks", h.listByExam)
	router.Get("/marks/:studentId", h.get)
	router.Put("/marks/:studentId", h.record)
	router.Get("/results", h.results)
}

func (h *MarkHandler) record(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.MarkSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	record, err := h.service.Record(c.Context(), examID, studentID, payload, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "marks recorded", record)
}

func (h *MarkHandler) get(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	record, err := h.service.Get(c.Context(), examID, studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "mark record retrieved", record)
}

func (h *MarkHandler) listByExam(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	records, err := h.service.ListByExam(c.Context(), examID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, records, "mark records retrieved", map[string]int{"count": len(records)})
}

func (h *MarkHandler) results(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	summary, err := h.service.Summary(c.Context(), examID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exam results retrieved", summary)
}

func (h *MarkHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "exam not found")
	case errors.Is(err, service.ErrMarkRecordNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "mark record not found")
	case errors.Is(err, service.ErrExamLocked):
		return utils.SendError(c, fiber.StatusLocked, "exam is locked")
	case errors.Is(err, service.ErrStudentNotEligible):
		return utils.SendError(c, fiber.StatusForbidden, "student is not eligible for this exam")
	case errors.Is(err, service.ErrConcurrentModification):
		return utils.SendError(c, fiber.StatusConflict, "mark record was modified concurrently")
	case errors.Is(err, service.ErrInvalidScope):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrOutOfRangeMarks),
		errors.Is(err, service.ErrDivisionCountMismatch),
		errors.Is(err, service.ErrUnknownSubject):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

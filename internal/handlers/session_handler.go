package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/models"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/repository"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/services"
)

type SessionHandler struct {
	service sessionApplicationService
}

type sessionApplicationService interface {
	Create(ctx context.Context, actorID int64, role string, input services.CreateSessionInput) (*models.SessionRecordView, error)
	Update(ctx context.Context, actorID int64, role string, id int64, input services.UpdateSessionInput) (*models.SessionRecordView, error)
	TogglePayment(ctx context.Context, actorID int64, role string, id int64, expectedVersion int) (*models.SessionRecordView, error)
	UpdateStatus(ctx context.Context, actorID int64, role string, id int64, expectedVersion int, target models.LessonStatus) (*models.SessionRecordView, error)
	Duplicate(ctx context.Context, actorID int64, role string, id int64, anchorDate *time.Time) (*models.SessionRecordView, error)
	Delete(ctx context.Context, actorID int64, role string, id int64) error
	Get(ctx context.Context, actorID int64, role string, id int64) (*models.SessionRecordView, error)
	List(ctx context.Context, actorID int64, role string, filter repository.SessionRecordFilter) ([]models.SessionRecordView, int, error)
	DistinctMonths(ctx context.Context, actorID int64, role string) ([]string, error)
	ListByStudentAndMonth(ctx context.Context, actorID int64, role string, studentID int64, month string) ([]models.SessionRecordView, error)
}

func NewSessionHandler(service *services.SessionRecordService) *SessionHandler {
	return &SessionHandler{service: service}
}

type createSessionRequest struct {
	StudentID       int64   `json:"student_id" validate:"required,gt=0"`
	Month           string  `json:"month" validate:"omitempty,len=7"`
	SessionDate     string  `json:"session_date" validate:"required"`
	Sessions        int     `json:"sessions" validate:"required,gt=0"`
	HoursPerSession float64 `json:"hours_per_session" validate:"omitempty,gt=0"`
	StartTime       *string `json:"start_time"`
	EndTime         *string `json:"end_time"`
	Subject         *string `json:"subject"`
	Notes           *string `json:"notes"`
	Status          string  `json:"status"`
}

type updateSessionRequest struct {
	ExpectedVersion int      `json:"expected_version" validate:"gte=0"`
	Month           *string  `json:"month"`
	SessionDate     *string  `json:"session_date"`
	Sessions        *int     `json:"sessions" validate:"omitempty,gt=0"`
	HoursPerSession *float64 `json:"hours_per_session" validate:"omitempty,gt=0"`
	StartTime       *string  `json:"start_time"`
	EndTime         *string  `json:"end_time"`
	Subject         *string  `json:"subject"`
	Notes           *string  `json:"notes"`
	Status          *string  `json:"status"`
}

type updateStatusRequest struct {
	ExpectedVersion int    `json:"expected_version" validate:"gte=0"`
	Status          string `json:"status" validate:"required"`
}

type duplicateSessionRequest struct {
	SessionDate *string `json:"session_date"`
}

func (h *SessionHandler) Create(c *fiber.Ctx) error {
	actorID, role, err := requireActor(c, "tutor", "admin")
	if err != nil {
		return err
	}

	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	sessionDate, err := parseDate(req.SessionDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "session_date must be a valid date (YYYY-MM-DD)"})
	}

	input := services.CreateSessionInput{
		StudentID:       req.StudentID,
		Month:           strings.TrimSpace(req.Month),
		SessionDate:     sessionDate,
		Sessions:        req.Sessions,
		HoursPerSession: req.HoursPerSession,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Subject:         req.Subject,
		Notes:           req.Notes,
	}
	if req.Status != "" {
		status, err := models.ParseLessonStatus(req.Status)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		input.Status = status
	}

	view, err := h.service.Create(c.Context(), actorID, role, input)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": view})
}

func (h *SessionHandler) List(c *fiber.Ctx) error {
	actorID, role, err := requireActor(c, "tutor", "admin")
	if err != nil {
		return err
	}

	page, limit := parsePageQuery(c)
	filter := repository.SessionRecordFilter{
		Month:      strings.TrimSpace(c.Query("month")),
		UnpaidOnly: c.QueryBool("unpaid"),
		Offset:     (page - 1) * limit,
		Limit:      limit,
	}
	if studentQuery := c.Query("student_id"); studentQuery != "" {
		studentID, err := strconv.ParseInt(studentQuery, 10, 64)
		if err != nil || studentID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student id"})
		}
		filter.StudentID = studentID
	}

	sessions, total, err := h.service.List(c.Context(), actorID, role, filter)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{
		"sessions":   sessions,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *SessionHandler) Get(c *fiber.Ctx) error {
	actorID, role, err := requireActor(c, "tutor", "admin")
	if err != nil {
		return err
	}

	sessionID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	view, err := h.service.Get(c.Context(), actorID, role, sessionID)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"session": view})
}

func (h *SessionHandler) Update(c *fiber.Ctx) error {
	actorID, role, err := requireActor(c, "tutor", "admin")
	if err != nil {
		return err
	}

	sessionID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req updateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	input := services.UpdateSessionInput{
		ExpectedVersion: req.ExpectedVersion,
		Month:           req.Month,
		Sessions:        req.Sessions,
		HoursPerSession: req.HoursPerSession,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Subject:         req.Subject,
		Notes:           req.Notes,
	}
	if req.SessionDate != nil {
		sessionDate, err := parseDate(*req.SessionDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "session_date must be a valid date (YYYY-MM-DD)"})
		}
		input.SessionDate = &sessionDate
	}
	if req.Status != nil {
		status, err := models.ParseLessonStatus(*req.Status)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		input.Status = &status
	}

	view, err := h.service.Update(c.Context(), actorID, role, sessionID, input)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"session": view})
}

func (h *SessionHandler) TogglePayment(c *fiber.Ctx) error {
	actorID, role, err := requireActor(c, "tutor", "admin")
	if err != nil {
		return err
	}

	sessionID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	expectedVersion, err := strconv.Atoi(c.Query("version", "0"))
	if err != nil || expectedVersion < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid version"})
	}

	view, err := h.service.TogglePayment(c.Context(), actorID, role, sessionID, expectedVersion)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"session": view})
}

func (h *SessionHandler) UpdateStatus(c *fiber.Ctx) error {
	actorID, role, err := requireActor(c, "tutor", "admin")
	if err != nil {
		return err
	}

	sessionID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	status, err := models.ParseLessonStatus(req.Status)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	view, err := h.service.UpdateStatus(c.Context(), actorID, role, sessionID, req.ExpectedVersion, status)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"session": view})
}

func (h *SessionHandler) Duplicate(c *fiber.Ctx) error {
	actorID, role, err := requireActor(c, "tutor", "admin")
	if err != nil {
		return err
	}

	sessionID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var anchorDate *time.Time
	if len(c.Body()) > 0 {
		var req duplicateSessionRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.SessionDate != nil {
			parsed, err := parseDate(*req.SessionDate)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).
					JSON(fiber.Map{"error": "session_date must be a valid date (YYYY-MM-DD)"})
			}
			anchorDate = &parsed
		}
	}

	view, err := h.service.Duplicate(c.Context(), actorID, role, sessionID, anchorDate)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": view})
}

func (h *SessionHandler) Delete(c *fiber.Ctx) error {
	actorID, role, err := requireActor(c, "tutor", "admin")
	if err != nil {
		return err
	}

	sessionID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	if err := h.service.Delete(c.Context(), actorID, role, sessionID); err != nil {
		return mapSessionError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *SessionHandler) Months(c *fiber.Ctx) error {
	actorID, role, err := requireActor(c, "tutor", "admin")
	if err != nil {
		return err
	}

	months, err := h.service.DistinctMonths(c.Context(), actorID, role)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"months": months})
}

func (h *SessionHandler) ByStudentAndMonth(c *fiber.Ctx) error {
	actorID, role, err := requireActor(c, "tutor", "admin")
	if err != nil {
		return err
	}

	studentID, err := strconv.ParseInt(c.Params("studentId"), 10, 64)
	if err != nil || studentID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student id"})
	}
	month := strings.TrimSpace(c.Params("month"))
	if month == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid month"})
	}

	sessions, err := h.service.ListByStudentAndMonth(c.Context(), actorID, role, studentID, month)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"sessions": sessions})
}

// requireActor gates a handler to the given roles and returns the actor's
// identity. It writes the response itself on failure.
func requireActor(c *fiber.Ctx, roles ...string) (int64, string, error) {
	role, ok := c.Locals("role").(string)
	if !ok {
		return 0, "", c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	allowed := false
	for _, r := range roles {
		if role == r {
			allowed = true
			break
		}
	}
	if !allowed {
		return 0, "", c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return 0, "", c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	return actorID, role, nil
}

func parseSessionID(c *fiber.Ctx) (int64, error) {
	sessionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		return 0, strconv.ErrSyntax
	}
	return sessionID, nil
}

func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(value))
}

func mapSessionError(c *fiber.Ctx, err error) error {
	var conflict *services.ConflictError
	var transition *services.InvalidTransitionError
	switch {
	case errors.As(err, &conflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":            "Record was modified by another request",
			"expected_version": conflict.Expected,
			"actual_version":   conflict.Actual,
		})
	case errors.As(err, &transition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrStudentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	case errors.Is(err, services.ErrAlreadyOnline):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Session already has an online room"})
	case errors.Is(err, services.ErrNotConvertible):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrRoomEnded):
		return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "Room has ended"})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process session request"})
	}
}

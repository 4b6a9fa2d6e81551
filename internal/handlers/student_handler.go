package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/repository"
)

type StudentHandler struct {
	studentRepo *repository.StudentRepository
}

func NewStudentHandler(studentRepo *repository.StudentRepository) *StudentHandler {
	return &StudentHandler{studentRepo: studentRepo}
}

type createStudentRequest struct {
	Name         string `json:"name" validate:"required,min=1,max=120"`
	PricePerHour int64  `json:"price_per_hour" validate:"required,gt=0"`
}

func (h *StudentHandler) Create(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "tutor" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	tutorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	student, err := h.studentRepo.Create(c.Context(), repository.CreateStudentInput{
		TutorID:      tutorID,
		Name:         req.Name,
		PricePerHour: req.PricePerHour,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create student"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"student": student})
}

func (h *StudentHandler) List(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != "tutor" && role != "admin") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	tutorID := actorID
	if role == "admin" {
		tutorID = 0
	}

	page, limit := parsePageQuery(c)

	students, total, err := h.studentRepo.List(c.Context(), tutorID, (page-1)*limit, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list students"})
	}

	return c.JSON(fiber.Map{
		"students":   students,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *StudentHandler) Get(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != "tutor" && role != "admin") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	studentID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || studentID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student id"})
	}

	student, err := h.studentRepo.GetByID(c.Context(), studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch student"})
	}
	if role == "tutor" && student.TutorID != actorID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	return c.JSON(fiber.Map{"student": student})
}

func parsePageQuery(c *fiber.Ctx) (page, limit int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.Query("limit", strconv.Itoa(defaultPageLimit)))
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

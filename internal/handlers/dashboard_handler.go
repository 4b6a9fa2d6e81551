package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/repository"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/services"
)

type DashboardHandler struct {
	service dashboardApplicationService
}

type dashboardApplicationService interface {
	Stats(ctx context.Context, actorID int64, role string) (*repository.BillingTotals, error)
	MonthlyStats(ctx context.Context, actorID int64, role string, month string) (*repository.BillingTotals, error)
	Months(ctx context.Context, actorID int64, role string) ([]string, error)
}

func NewDashboardHandler(service *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	actorID, role, err := requireActor(c, "tutor", "admin")
	if err != nil {
		return err
	}

	stats, err := h.service.Stats(c.Context(), actorID, role)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"stats": stats})
}

func (h *DashboardHandler) MonthlyStats(c *fiber.Ctx) error {
	actorID, role, err := requireActor(c, "tutor", "admin")
	if err != nil {
		return err
	}

	month := strings.TrimSpace(c.Params("month"))
	if month == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid month"})
	}

	stats, err := h.service.MonthlyStats(c.Context(), actorID, role, month)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"stats": stats})
}

func (h *DashboardHandler) Months(c *fiber.Ctx) error {
	actorID, role, err := requireActor(c, "tutor", "admin")
	if err != nil {
		return err
	}

	months, err := h.service.Months(c.Context(), actorID, role)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"months": months})
}

package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/models"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/services"
)

type OnlineSessionHandler struct {
	service onlineSessionApplicationService
}

type onlineSessionApplicationService interface {
	Join(ctx context.Context, roomID string, userID int64, role string) (*models.OnlineSession, error)
	End(ctx context.Context, roomID string, userID int64, role string) (*models.OnlineSession, error)
	Heartbeat(ctx context.Context, roomID string, userID int64, role string) error
	RoomStats(ctx context.Context, roomID string, userID int64, role string) (*models.RoomStats, error)
	GlobalStats(ctx context.Context, role string) (*models.GlobalRoomStats, error)
	GetByRecordID(ctx context.Context, actorID int64, role string, recordID int64) (*models.OnlineSession, error)
	ConvertToOnline(ctx context.Context, actorID int64, role string, recordID int64) (*models.OnlineSession, error)
	RevertToOffline(ctx context.Context, actorID int64, role string, recordID int64) error
}

func NewOnlineSessionHandler(service *services.OnlineSessionService) *OnlineSessionHandler {
	return &OnlineSessionHandler{service: service}
}

func (h *OnlineSessionHandler) Join(c *fiber.Ctx) error {
	userID, role, err := requireActor(c, "tutor", "student", "admin")
	if err != nil {
		return err
	}

	roomID := c.Params("roomId")
	if roomID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid room id"})
	}

	session, err := h.service.Join(c.Context(), roomID, userID, role)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"room": session})
}

func (h *OnlineSessionHandler) End(c *fiber.Ctx) error {
	userID, role, err := requireActor(c, "tutor", "student", "admin")
	if err != nil {
		return err
	}

	roomID := c.Params("roomId")
	if roomID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid room id"})
	}

	session, err := h.service.End(c.Context(), roomID, userID, role)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"room": session})
}

func (h *OnlineSessionHandler) Heartbeat(c *fiber.Ctx) error {
	userID, role, err := requireActor(c, "tutor", "student", "admin")
	if err != nil {
		return err
	}

	roomID := c.Params("roomId")
	if roomID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid room id"})
	}

	if err := h.service.Heartbeat(c.Context(), roomID, userID, role); err != nil {
		return mapSessionError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *OnlineSessionHandler) RoomStats(c *fiber.Ctx) error {
	userID, role, err := requireActor(c, "tutor", "student", "admin")
	if err != nil {
		return err
	}

	roomID := c.Params("roomId")
	if roomID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid room id"})
	}

	stats, err := h.service.RoomStats(c.Context(), roomID, userID, role)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"stats": stats})
}

func (h *OnlineSessionHandler) GlobalStats(c *fiber.Ctx) error {
	_, role, err := requireActor(c, "admin")
	if err != nil {
		return err
	}

	stats, err := h.service.GlobalStats(c.Context(), role)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"stats": stats})
}

func (h *OnlineSessionHandler) GetByRecord(c *fiber.Ctx) error {
	actorID, role, err := requireActor(c, "tutor", "admin")
	if err != nil {
		return err
	}

	recordID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	session, err := h.service.GetByRecordID(c.Context(), actorID, role, recordID)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"room": session})
}

func (h *OnlineSessionHandler) Convert(c *fiber.Ctx) error {
	actorID, role, err := requireActor(c, "tutor", "admin")
	if err != nil {
		return err
	}

	recordID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	session, err := h.service.ConvertToOnline(c.Context(), actorID, role, recordID)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"room": session})
}

func (h *OnlineSessionHandler) Revert(c *fiber.Ctx) error {
	actorID, role, err := requireActor(c, "tutor", "admin")
	if err != nil {
		return err
	}

	recordID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	if err := h.service.RevertToOffline(c.Context(), actorID, role, recordID); err != nil {
		return mapSessionError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

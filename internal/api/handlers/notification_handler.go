package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
)

type NotificationHandler struct {
	notifications domain.NotificationRepository
	tokens        domain.DeviceTokenRepository
	log           logger.Logger
}

func NewNotificationHandler(notifications domain.NotificationRepository, tokens domain.DeviceTokenRepository, log logger.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, tokens: tokens, log: log}
}

type NotificationEntry struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auction_id,omitempty"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *NotificationHandler) List(c echo.Context) error {
	userID := c.Request().Header.Get(userIDHeader)
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing user identity"})
	}

	unreadOnly := c.QueryParam("unread") == "true"
	rows, err := h.notifications.ListByUser(c.Request().Context(), userID, unreadOnly)
	if err != nil {
		h.log.Error("Failed to list notifications", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list notifications"})
	}

	out := make([]NotificationEntry, 0, len(rows))
	for _, n := range rows {
		out = append(out, NotificationEntry{
			ID:        n.ID,
			AuctionID: n.AuctionID,
			Type:      string(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}

	unread, err := h.notifications.CountUnread(c.Request().Context(), userID)
	if err != nil {
		unread = 0
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": out,
		"unread_count":  unread,
	})
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	if err := h.notifications.MarkRead(c.Request().Context(), c.Param("id")); err != nil {
		h.log.Error("Failed to mark notification read", "notification_id", c.Param("id"), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to mark notification read"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Notification marked read"})
}

type RegisterTokenRequest struct {
	Token string `json:"token"`
}

func (h *NotificationHandler) RegisterToken(c echo.Context) error {
	var req RegisterTokenRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Push token required"})
	}

	userID := c.Param("id")
	if err := h.tokens.Add(c.Request().Context(), userID, req.Token); err != nil {
		h.log.Error("Failed to register push token", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to register token"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Push token registered"})
}

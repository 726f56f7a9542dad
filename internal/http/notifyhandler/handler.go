// Package notifyhandler exposes the internal endpoints through which the
// back-office REST layer pushes signaling events (a message it just
// persisted) and reads the presence mirror. These routes are not part of any
// public API and sit behind the office network boundary.
package notifyhandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"opschat/internal/services/chat"
)

type Notifier interface {
	NotifyNewMessage(ctx context.Context, messageID string) error
	NotifyMessageUpdated(ctx context.Context, messageID string) error
	NotifyMessageDeleted(roomID, messageID string)
}

type PresenceReader interface {
	Online(ctx context.Context) ([]string, error)
}

type Handler struct {
	notifier Notifier
	presence PresenceReader
}

func New(notifier Notifier, presence PresenceReader) *Handler {
	return &Handler{notifier: notifier, presence: presence}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/internal/messages/:id/created", h.messageCreated)
	r.POST("/internal/messages/:id/updated", h.messageUpdated)
	r.POST("/internal/rooms/:room_id/messages/:id/deleted", h.messageDeleted)
	r.GET("/internal/presence", h.presenceOnline)
}

func (h *Handler) messageCreated(c *gin.Context) {
	h.notifyByID(c, h.notifier.NotifyNewMessage)
}

func (h *Handler) messageUpdated(c *gin.Context) {
	h.notifyByID(c, h.notifier.NotifyMessageUpdated)
}

func (h *Handler) notifyByID(c *gin.Context, notify func(context.Context, string) error) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid message id"})
		return
	}
	if err := notify(c.Request.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chat.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *Handler) messageDeleted(c *gin.Context) {
	roomID := c.Param("room_id")
	id := c.Param("id")
	if _, err := uuid.Parse(roomID); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room id"})
		return
	}
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid message id"})
		return
	}
	h.notifier.NotifyMessageDeleted(roomID, id)
	c.Status(http.StatusAccepted)
}

func (h *Handler) presenceOnline(c *gin.Context) {
	users, err := h.presence.Online(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if users == nil {
		users = []string{}
	}
	c.JSON(http.StatusOK, OnlineResponse{Users: users})
}

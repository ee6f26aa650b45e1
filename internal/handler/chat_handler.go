package handler

import (
	"errors"
	"net/http"

	"github.com/Felag1n/AudioBridge/internal/auth"
	"github.com/Felag1n/AudioBridge/internal/hub"
	"github.com/Felag1n/AudioBridge/internal/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatHandler serves the REST collaborator surface of the chat core:
// history, mark-read and the roster. The socket path is the primary
// transport; these endpoints back non-realtime consumers.
type ChatHandler struct {
	hub      *hub.Hub
	messages store.MessageStore
	logger   *zap.Logger
}

func NewChatHandler(h *hub.Hub, messages store.MessageStore, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		hub:      h,
		messages: messages,
		logger:   logger,
	}
}

// SendMessage persists a message to :otherId and pushes it to their live
// connection when online. The non-realtime counterpart of the socket send
// event; no optimistic bookkeeping, the durable message comes back in the
// response.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID := c.GetString(auth.ContextUserKey)
	otherID := c.Param("otherId")
	if otherID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "otherId is required"})
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	msg, err := h.hub.Deliver(c.Request.Context(), userID, otherID, body.Content)
	if err != nil {
		if errors.Is(err, store.ErrEmptyContent) || errors.Is(err, store.ErrInvalidUserID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("send request failed",
			zap.String("user_id", userID),
			zap.String("other_id", otherID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// GetMessages returns the full conversation between the caller and
// :otherId, ascending by creation time.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID := c.GetString(auth.ContextUserKey)
	otherID := c.Param("otherId")
	if otherID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "otherId is required"})
		return
	}

	msgs, err := h.messages.ListMessages(c.Request.Context(), userID, otherID)
	if err != nil {
		h.logger.Error("history request failed",
			zap.String("user_id", userID),
			zap.String("other_id", otherID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// MarkRead marks every unread message from :otherId as read. Idempotent;
// read receipts are pushed to the sender's live connection when online.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID := c.GetString(auth.ContextUserKey)
	otherID := c.Param("otherId")
	if otherID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "otherId is required"})
		return
	}

	ids, err := h.hub.MarkRead(c.Request.Context(), userID, otherID)
	if err != nil {
		h.logger.Error("mark read request failed",
			zap.String("user_id", userID),
			zap.String("other_id", otherID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark messages read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": ids})
}

// GetUsers returns the roster with live presence bits.
func (h *ChatHandler) GetUsers(c *gin.Context) {
	entries, err := h.hub.Roster(c.Request.Context())
	if err != nil {
		h.logger.Error("roster request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": entries})
}

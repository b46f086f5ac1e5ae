package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/ports"
)

// ChatHandler proxies prompts to the inference service
type ChatHandler struct {
	chatService ports.ChatService
	logger      *logger.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService ports.ChatService, logger *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// Send godoc
// @Summary Send a prompt
// @Description Starts a conversation when conversation_id is omitted
// @Tags chat
// @Accept json
// @Produce json
// @Param request body ports.ChatRequest true "Prompt"
// @Success 200 {object} ports.ChatReply
// @Failure 400 {object} ports.ErrorResponse
// @Failure 502 {object} ports.ErrorResponse
// @Router /chat [post]
func (h *ChatHandler) Send(c echo.Context) error {
	var req ports.ChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request format", err)
	}

	if err := c.Validate(&req); err != nil {
		return err
	}

	reply, err := h.chatService.Send(c.Request().Context(), req.ConversationID, req.Prompt)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, reply)
}

// History godoc
// @Summary Get a conversation
// @Tags chat
// @Produce json
// @Param conversation_id path string true "Conversation ID"
// @Success 200 {array} entities.ChatMessage
// @Router /chat/{conversation_id} [get]
func (h *ChatHandler) History(c echo.Context) error {
	messages, err := h.chatService.History(c.Request().Context(), c.Param("conversation_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messages)
}

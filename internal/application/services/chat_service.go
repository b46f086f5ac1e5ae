package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/ports"
)

// Completer produces the assistant's next turn for a conversation
type Completer interface {
	Complete(ctx context.Context, history []*entities.ChatMessage) (string, error)
}

// ChatService relays prompts to the inference service and keeps the transcript
type ChatService struct {
	repo      ports.ChatRepository
	completer Completer
	logger    *logger.Logger
	now       func() int64
}

// NewChatService creates a chat service
func NewChatService(repo ports.ChatRepository, completer Completer, appLogger *logger.Logger) *ChatService {
	return &ChatService{
		repo:      repo,
		completer: completer,
		logger:    appLogger.WithComponent("chat"),
		now:       entities.NowMillis,
	}
}

// Send appends prompt to the conversation, starting a new one when
// conversationID is blank, and stores the reply. The user turn is kept even
// when the inference service fails.
func (s *ChatService) Send(ctx context.Context, conversationID, prompt string) (*ports.ChatReply, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", entities.ErrValidation)
	}
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	userTurn := &entities.ChatMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           entities.ChatRoleUser,
		Content:        prompt,
		CreatedAt:      s.now(),
	}
	if err := s.repo.Append(ctx, userTurn); err != nil {
		return nil, err
	}

	history, err := s.repo.ListConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	text, err := s.completer.Complete(ctx, history)
	if err != nil {
		s.logger.Warnw("Inference request failed", "conversation_id", conversationID, "error", err)
		return nil, fmt.Errorf("%w: %v", entities.ErrUpstream, err)
	}

	reply := &entities.ChatMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           entities.ChatRoleAssistant,
		Content:        text,
		CreatedAt:      s.now(),
	}
	if err := s.repo.Append(ctx, reply); err != nil {
		return nil, err
	}

	return &ports.ChatReply{ConversationID: conversationID, Message: reply}, nil
}

// History returns the turns of a conversation, oldest first
func (s *ChatService) History(ctx context.Context, conversationID string) ([]*entities.ChatMessage, error) {
	return s.repo.ListConversation(ctx, conversationID)
}

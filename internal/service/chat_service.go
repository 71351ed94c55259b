package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"medig/internal/domain"
	"medig/internal/prompt"
	"medig/internal/repository"
)

var ErrEmptyMessage = errors.New("empty chat message")

const chatAction = "chat"

// ChatService 病历上下文中的 AI 问答
type ChatService struct {
	repo      repository.FormsRepository
	completer Completer
	logger    *zap.Logger
	now       func() time.Time
}

func NewChatService(repo repository.FormsRepository, completer Completer, logger *zap.Logger) *ChatService {
	return &ChatService{repo: repo, completer: completer, logger: logger, now: time.Now}
}

func (s *ChatService) History(ctx context.Context, id string) ([]domain.ChatMessage, error) {
	f, err := s.repo.GetForm(ctx, id)
	if err != nil {
		return nil, err
	}
	return f.Chat, nil
}

// Send 追加用户消息并返回模型回复；AI 失败时回复为错误文案，不返回 error
func (s *ChatService) Send(ctx context.Context, id, text string) (*domain.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if _, err := s.repo.BeginAction(ctx, id, chatAction); err != nil {
		return nil, err
	}
	defer s.repo.EndAction(ctx, id, chatAction)

	f, err := s.repo.AppendChat(ctx, id, domain.ChatMessage{Role: domain.RoleUser, Text: text})
	if err != nil {
		return nil, err
	}

	reply := domain.ChatMessage{Role: domain.RoleModel}
	p, err := prompt.BuildChatPrompt(f.Record, f.Variant, f.Chat, s.now())
	if err == nil {
		reply.Text, err = s.completer.Complete(ctx, p)
	}
	if err != nil {
		s.logger.Warn("Chat AI error", zap.String("form_id", id), zap.Error(err))
		reply.Text = ChatErrorMessage
		if errors.Is(err, ErrRateLimited) {
			reply.Text = RateLimitMessage
		}
	}

	if _, err := s.repo.AppendChat(ctx, id, reply); err != nil {
		if errors.Is(err, repository.ErrFormNotFound) {
			s.logger.Info("Form closed during chat, reply discarded", zap.String("form_id", id))
		}
		return nil, err
	}
	return &reply, nil
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"medig/internal/domain"
	"medig/internal/prompt"
	"medig/internal/record"
	"medig/internal/repository"
)

// ErrBusy 同一表单同一操作已在进行
var ErrBusy = repository.ErrBusy

const (
	RateLimitMessage = "Lỗi: Đã đạt đến giới hạn yêu cầu. Vui lòng thử lại sau ít phút. Nếu bạn sử dụng chức năng AI quá thường xuyên, lỗi này có thể xảy ra."
	ChatErrorMessage = "Xin lỗi, tôi đã gặp lỗi. Vui lòng thử lại."

	generateErrorPrefix = "Lỗi khi gọi AI: "
)

// AIError AI 调用失败，Message 为展示给用户的文案
type AIError struct {
	Err     error
	Message string
}

func (e *AIError) Error() string { return e.Err.Error() }
func (e *AIError) Unwrap() error { return e.Err }

func generationFailure(err error) *AIError {
	if errors.Is(err, ErrRateLimited) {
		return &AIError{Err: err, Message: RateLimitMessage}
	}
	return &AIError{Err: err, Message: generateErrorPrefix + err.Error()}
}

// Generation 一次生成的结果
type Generation struct {
	Task  prompt.Task      `json:"task"`
	Field string           `json:"field"`
	Text  string           `json:"text"`
	Form  *repository.Form `json:"form"`
}

// NarrativeService 按任务调用 AI 生成叙述文本并写回病历字段
type NarrativeService struct {
	repo      repository.FormsRepository
	completer Completer
	logger    *zap.Logger
	now       func() time.Time
}

func NewNarrativeService(repo repository.FormsRepository, completer Completer, logger *zap.Logger) *NarrativeService {
	return &NarrativeService{repo: repo, completer: completer, logger: logger, now: time.Now}
}

func (s *NarrativeService) Tasks(ctx context.Context, id string) ([]prompt.Task, error) {
	f, err := s.repo.GetForm(ctx, id)
	if err != nil {
		return nil, err
	}
	return prompt.TasksFor(f.Variant), nil
}

// Generate 失败时字段保持不变；表单在生成期间被关闭时结果被丢弃
func (s *NarrativeService) Generate(ctx context.Context, id string, task prompt.Task) (*Generation, error) {
	action := "generate:" + string(task)
	f, err := s.repo.BeginAction(ctx, id, action)
	if err != nil {
		return nil, err
	}
	defer s.repo.EndAction(ctx, id, action)

	field, err := prompt.TargetField(f.Variant, task)
	if err != nil {
		return nil, err
	}
	p, err := prompt.BuildPrompt(f.Record, f.Variant, task, s.now())
	if err != nil {
		return nil, err
	}

	start := time.Now()
	text, err := s.completer.Complete(ctx, p)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyCompletion
	}
	if err != nil {
		s.logger.Warn("Narrative generation failed",
			zap.String("form_id", id),
			zap.String("task", string(task)),
			zap.Error(err),
		)
		return nil, generationFailure(err)
	}

	updated, err := s.repo.UpdateRecord(ctx, id, func(rec domain.Record) (domain.Record, error) {
		return record.Update(rec, field, text)
	})
	if err != nil {
		if errors.Is(err, repository.ErrFormNotFound) {
			s.logger.Info("Form closed during generation, result discarded",
				zap.String("form_id", id),
				zap.String("task", string(task)),
			)
		}
		return nil, err
	}

	s.logger.Info("Narrative generated",
		zap.String("form_id", id),
		zap.String("task", string(task)),
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Generation{Task: task, Field: field, Text: text, Form: updated}, nil
}

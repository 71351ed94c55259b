package repository

import (
	"context"

	"medig/internal/domain"
)

// FormsRepository 表单会话存储
type FormsRepository interface {
	CreateForm(ctx context.Context, variant domain.Variant) (*Form, error)
	GetForm(ctx context.Context, id string) (*Form, error)
	ListForms(ctx context.Context, page, size int) ([]Form, int, error)
	DeleteForm(ctx context.Context, id string) error
	UpdateRecord(ctx context.Context, id string, fn func(domain.Record) (domain.Record, error)) (*Form, error)
	AppendChat(ctx context.Context, id string, msgs ...domain.ChatMessage) (*Form, error)

	BeginAction(ctx context.Context, id, action string) (*Form, error)
	EndAction(ctx context.Context, id, action string)
}

var _ FormsRepository = (*MemoryFormsRepo)(nil)

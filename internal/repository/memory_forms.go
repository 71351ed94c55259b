package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"medig/internal/domain"
)

var (
	ErrFormNotFound = errors.New("form not found")
	ErrBusy         = errors.New("action already in progress")
)

// Form 一个打开的表单会话：病历 + 对话历史
type Form struct {
	ID        string               `json:"id"`
	Variant   domain.Variant       `json:"variant"`
	Record    domain.Record        `json:"record"`
	Chat      []domain.ChatMessage `json:"chat"`
	Pending   []string             `json:"pending"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

type formEntry struct {
	id        string
	variant   domain.Variant
	record    domain.Record
	chat      []domain.ChatMessage
	pending   map[string]bool
	createdAt time.Time
	updatedAt time.Time
}

// snapshot 返回与内部状态不共享可变数据的副本
func (e *formEntry) snapshot() Form {
	pending := make([]string, 0, len(e.pending))
	for k := range e.pending {
		pending = append(pending, k)
	}
	sort.Strings(pending)
	return Form{
		ID:        e.id,
		Variant:   e.variant,
		Record:    e.record.CloneRecord(),
		Chat:      append([]domain.ChatMessage(nil), e.chat...),
		Pending:   pending,
		CreatedAt: e.createdAt,
		UpdatedAt: e.updatedAt,
	}
}

// MemoryFormsRepo 表单会话仅存在于进程内存，关闭即丢弃
type MemoryFormsRepo struct {
	mu    sync.RWMutex
	forms map[string]*formEntry
	now   func() time.Time
}

func NewMemoryFormsRepo() *MemoryFormsRepo {
	return &MemoryFormsRepo{
		forms: map[string]*formEntry{},
		now:   time.Now,
	}
}

func (r *MemoryFormsRepo) CreateForm(_ context.Context, variant domain.Variant) (*Form, error) {
	if !variant.Valid() {
		return nil, fmt.Errorf("%w %q", domain.ErrUnknownVariant, variant)
	}
	id := uuid.NewString()
	now := r.now()
	e := &formEntry{
		id:        id,
		variant:   variant,
		record:    domain.NewRecord(variant, id),
		chat:      []domain.ChatMessage{},
		pending:   map[string]bool{},
		createdAt: now,
		updatedAt: now,
	}

	r.mu.Lock()
	r.forms[id] = e
	r.mu.Unlock()

	f := e.snapshot()
	return &f, nil
}

func (r *MemoryFormsRepo) GetForm(_ context.Context, id string) (*Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.forms[id]
	if !ok {
		return nil, ErrFormNotFound
	}
	f := e.snapshot()
	return &f, nil
}

func (r *MemoryFormsRepo) ListForms(_ context.Context, page, size int) ([]Form, int, error) {
	r.mu.RLock()
	all := make([]Form, 0, len(r.forms))
	for _, e := range r.forms {
		all = append(all, e.snapshot())
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	total := len(all)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *MemoryFormsRepo) DeleteForm(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.forms[id]; !ok {
		return ErrFormNotFound
	}
	delete(r.forms, id)
	return nil
}

// UpdateRecord 以 fn 计算新记录并原子替换；fn 出错时记录不变
func (r *MemoryFormsRepo) UpdateRecord(_ context.Context, id string, fn func(domain.Record) (domain.Record, error)) (*Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.forms[id]
	if !ok {
		return nil, ErrFormNotFound
	}
	next, err := fn(e.record)
	if err != nil {
		return nil, err
	}
	e.record = next
	e.updatedAt = r.now()
	f := e.snapshot()
	return &f, nil
}

func (r *MemoryFormsRepo) AppendChat(_ context.Context, id string, msgs ...domain.ChatMessage) (*Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.forms[id]
	if !ok {
		return nil, ErrFormNotFound
	}
	e.chat = append(e.chat, msgs...)
	e.updatedAt = r.now()
	f := e.snapshot()
	return &f, nil
}

// BeginAction 标记 action 进行中；同一表单同一 action 不允许并发
func (r *MemoryFormsRepo) BeginAction(_ context.Context, id, action string) (*Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.forms[id]
	if !ok {
		return nil, ErrFormNotFound
	}
	if e.pending[action] {
		return nil, ErrBusy
	}
	e.pending[action] = true
	f := e.snapshot()
	return &f, nil
}

func (r *MemoryFormsRepo) EndAction(_ context.Context, id, action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.forms[id]; ok {
		delete(e.pending, action)
	}
}

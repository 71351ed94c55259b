package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medig/internal/domain"
	"medig/internal/prompt"
	"medig/internal/repository"
)

type fakeCompleter struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []string
	hook    func()
}

func (f *fakeCompleter) Complete(_ context.Context, p string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return f.text, f.err
}

func newForm(t *testing.T, repo *repository.MemoryFormsRepo, v domain.Variant) *repository.Form {
	t.Helper()
	f, err := repo.CreateForm(context.Background(), v)
	require.NoError(t, err)
	return f
}

func TestNarrativeService_GenerateWritesField(t *testing.T) {
	repo := repository.NewMemoryFormsRepo()
	f := newForm(t, repo, domain.VariantPreOp)
	ai := &fakeCompleter{text: "Bệnh nhân nam..."}
	svc := NewNarrativeService(repo, ai, zap.NewNop())

	g, err := svc.Generate(context.Background(), f.ID, prompt.TaskSummary)
	require.NoError(t, err)
	assert.Equal(t, "summary", g.Field)
	assert.Equal(t, "Bệnh nhân nam...", g.Form.Record.(*domain.PatientRecord).Summary)
	require.Len(t, ai.prompts, 1)

	got, _ := repo.GetForm(context.Background(), f.ID)
	assert.Equal(t, "Bệnh nhân nam...", got.Record.(*domain.PatientRecord).Summary)
	assert.Empty(t, got.Pending)
}

func TestNarrativeService_FailureLeavesFieldUnchanged(t *testing.T) {
	cases := []struct {
		name    string
		ai      *fakeCompleter
		message string
	}{
		{"upstream", &fakeCompleter{err: fmt.Errorf("%w: status 500", ErrUpstream)}, "Lỗi khi gọi AI: ai proxy request failed: status 500"},
		{"rate limited", &fakeCompleter{err: ErrRateLimited}, RateLimitMessage},
		{"empty", &fakeCompleter{text: "  "}, "Lỗi khi gọi AI: " + ErrEmptyCompletion.Error()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := repository.NewMemoryFormsRepo()
			f := newForm(t, repo, domain.VariantPostOp)
			_, err := repo.UpdateRecord(context.Background(), f.ID, func(r domain.Record) (domain.Record, error) {
				next := r.CloneRecord().(*domain.PostOpRecord)
				next.TreatmentPlan = "cũ"
				return next, nil
			})
			require.NoError(t, err)

			svc := NewNarrativeService(repo, tc.ai, zap.NewNop())
			_, err = svc.Generate(context.Background(), f.ID, prompt.TaskTreatmentPlan)

			var aiErr *AIError
			require.True(t, errors.As(err, &aiErr))
			assert.Equal(t, tc.message, aiErr.Message)

			got, _ := repo.GetForm(context.Background(), f.ID)
			assert.Equal(t, "cũ", got.Record.(*domain.PostOpRecord).TreatmentPlan)
		})
	}
}

func TestNarrativeService_UnsupportedTask(t *testing.T) {
	repo := repository.NewMemoryFormsRepo()
	f := newForm(t, repo, domain.VariantPostOp)
	ai := &fakeCompleter{text: "x"}
	svc := NewNarrativeService(repo, ai, zap.NewNop())

	_, err := svc.Generate(context.Background(), f.ID, prompt.TaskProblem)
	assert.True(t, errors.Is(err, prompt.ErrUnsupportedTask))
	assert.Empty(t, ai.prompts)
}

func TestNarrativeService_ConcurrentSameTaskIsBusy(t *testing.T) {
	repo := repository.NewMemoryFormsRepo()
	f := newForm(t, repo, domain.VariantPreOp)
	svc := NewNarrativeService(repo, nil, zap.NewNop())

	var second error
	svc.completer = &fakeCompleter{text: "ok", hook: func() {
		_, second = svc.Generate(context.Background(), f.ID, prompt.TaskSummary)
	}}

	_, err := svc.Generate(context.Background(), f.ID, prompt.TaskSummary)
	require.NoError(t, err)
	assert.True(t, errors.Is(second, ErrBusy))
}

func TestNarrativeService_LateResultAfterCloseIsDiscarded(t *testing.T) {
	repo := repository.NewMemoryFormsRepo()
	f := newForm(t, repo, domain.VariantPreOp)
	ai := &fakeCompleter{text: "muộn", hook: func() {
		_ = repo.DeleteForm(context.Background(), f.ID)
	}}
	svc := NewNarrativeService(repo, ai, zap.NewNop())

	_, err := svc.Generate(context.Background(), f.ID, prompt.TaskSummary)
	assert.True(t, errors.Is(err, repository.ErrFormNotFound))
	_, err = repo.GetForm(context.Background(), f.ID)
	assert.True(t, errors.Is(err, repository.ErrFormNotFound))
}

func TestChatService_Send(t *testing.T) {
	repo := repository.NewMemoryFormsRepo()
	f := newForm(t, repo, domain.VariantInternalMed)
	ai := &fakeCompleter{text: "Hello"}
	svc := NewChatService(repo, ai, zap.NewNop())
	ctx := context.Background()

	reply, err := svc.Send(ctx, f.ID, "Hi")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleModel, reply.Role)
	assert.Equal(t, "Hello", reply.Text)
	assert.Contains(t, ai.prompts[0], "User: Hi")

	ai.text = "Again"
	_, err = svc.Send(ctx, f.ID, "Hi 2")
	require.NoError(t, err)
	assert.Contains(t, ai.prompts[1], "User: Hi\nAssistant: Hello\nUser: Hi 2\n\nAssistant:")

	history, err := svc.History(ctx, f.ID)
	require.NoError(t, err)
	assert.Len(t, history, 4)

	_, err = svc.Send(ctx, f.ID, "   ")
	assert.True(t, errors.Is(err, ErrEmptyMessage))
}

func TestChatService_ErrorBecomesModelTurn(t *testing.T) {
	repo := repository.NewMemoryFormsRepo()
	f := newForm(t, repo, domain.VariantPreOp)
	ctx := context.Background()

	svc := NewChatService(repo, &fakeCompleter{err: ErrUpstream}, zap.NewNop())
	reply, err := svc.Send(ctx, f.ID, "Hi")
	require.NoError(t, err)
	assert.Equal(t, ChatErrorMessage, reply.Text)

	svc.completer = &fakeCompleter{err: ErrRateLimited}
	reply, err = svc.Send(ctx, f.ID, "Hi")
	require.NoError(t, err)
	assert.Equal(t, RateLimitMessage, reply.Text)

	history, _ := svc.History(ctx, f.ID)
	require.Len(t, history, 4)
	assert.Equal(t, domain.RoleModel, history[1].Role)
}

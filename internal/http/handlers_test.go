package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"medig/internal/document"
	"medig/internal/repository"
	"medig/internal/service"
	"medig/internal/store"
)

type fakeCompleter struct {
	text string
	err  error
}

func (f *fakeCompleter) Complete(context.Context, string) (string, error) { return f.text, f.err }

type fakeVerifier struct{ res *service.VerifyResult }

func (f *fakeVerifier) Verify(context.Context, string) (*service.VerifyResult, error) {
	return f.res, nil
}

type testEnv struct {
	handler http.Handler
	ai      *fakeCompleter
	mr      *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	kv := store.NewRedisKV(client, "medig:")

	repo := repository.NewMemoryFormsRepo()
	assembler := document.NewAssembler(time.Now)
	exporter := document.NewExporter(assembler, document.NewRenderer(logger, document.DefaultImageWidth))
	ai := &fakeCompleter{text: "AI text"}
	exp := time.Now().Add(48 * time.Hour).UnixMilli()

	r := NewRouter(logger)
	r.RegisterFormRoutes(NewFormsHandler(service.NewFormService(repo, assembler, exporter, logger), logger))
	r.RegisterAIRoutes(NewAIHandler(
		service.NewNarrativeService(repo, ai, logger),
		service.NewChatService(repo, ai, logger),
		logger,
	))
	r.RegisterAuthRoutes(NewAuthHandler(
		service.NewAuthService(kv, &fakeVerifier{res: &service.VerifyResult{Success: true, Exp: exp}}, logger),
		service.NewPreferenceService(kv, logger),
		logger,
	))
	r.RegisterHealth()
	return &testEnv{handler: r.Handler([]string{"*"}), ai: ai, mr: mr}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)

	var env envelope
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	}
	return rr, env
}

func (e *testEnv) createForm(t *testing.T, variant string) string {
	t.Helper()
	rr, env := e.do(t, http.MethodPost, "/api/v1/forms", map[string]string{"variant": variant})
	require.Equal(t, http.StatusCreated, rr.Code)
	var f struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &f))
	return f.ID
}

func TestForms_EditPreviewExport(t *testing.T) {
	e := newTestEnv(t)
	id := e.createForm(t, "pre-op")

	rr, _ := e.do(t, http.MethodPatch, "/api/v1/forms/"+id+"/fields", map[string]any{"path": "examination.vitals.weight", "value": "70"})
	require.Equal(t, http.StatusOK, rr.Code)
	rr, env := e.do(t, http.MethodPatch, "/api/v1/forms/"+id+"/fields", map[string]any{"path": "examination.vitals.height", "value": "175"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, string(env.Result), `"bmi":"22.86"`)
	assert.Contains(t, string(env.Result), "Bình thường theo IDI & WPRO")

	rr, env = e.do(t, http.MethodPatch, "/api/v1/forms/"+id+"/fields", map[string]any{"path": "examination.vitals.bmi", "value": "1"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, ResultError, env.Code)

	_, _ = e.do(t, http.MethodPatch, "/api/v1/forms/"+id+"/fields", map[string]any{"path": "adminDetails.fullName", "value": "Trần Thị B"})

	rr, env = e.do(t, http.MethodGet, "/api/v1/forms/"+id+"/preview", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, string(env.Result), `"kind":"title"`)

	rr, _ = e.do(t, http.MethodGet, "/api/v1/forms/"+id+"/export", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, document.ContentTypeDocx, rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "filename*=UTF-8''BenhAn_TienPhau_Tr%E1%BA%A7n_Th%E1%BB%8B_B.docx")
	assert.Equal(t, "PK", rr.Body.String()[:2])
}

func TestForms_ItemsAndErrors(t *testing.T) {
	e := newTestEnv(t)
	id := e.createForm(t, "post-op")

	rr, env := e.do(t, http.MethodPost, "/api/v1/forms/"+id+"/items", map[string]string{"path": "medicalHistory.postOp.dailyExams"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, string(env.Result), `"index":0`)

	rr, _ = e.do(t, http.MethodDelete, "/api/v1/forms/"+id+"/items", map[string]any{"path": "medicalHistory.postOp.dailyExams", "index": 3})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr, _ = e.do(t, http.MethodDelete, "/api/v1/forms/"+id+"/items", map[string]any{"path": "medicalHistory.postOp.dailyExams", "index": 0})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = e.do(t, http.MethodPost, "/api/v1/forms", map[string]string{"variant": "cardio"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = e.do(t, http.MethodGet, "/api/v1/forms/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, _ = e.do(t, http.MethodDelete, "/api/v1/forms/"+id, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr, _ = e.do(t, http.MethodGet, "/api/v1/forms/"+id+"/preview", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAI_GenerateAndChat(t *testing.T) {
	e := newTestEnv(t)
	id := e.createForm(t, "internal-med")

	rr, env := e.do(t, http.MethodGet, "/api/v1/forms/"+id+"/tasks", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var tasks []string
	require.NoError(t, json.Unmarshal(env.Result, &tasks))
	assert.Len(t, tasks, 9)

	rr, env = e.do(t, http.MethodPost, "/api/v1/forms/"+id+"/generate", map[string]string{"task": "PROBLEM"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, string(env.Result), `"problemList":"AI text"`)

	e.ai.err = service.ErrRateLimited
	rr, env = e.do(t, http.MethodPost, "/api/v1/forms/"+id+"/generate", map[string]string{"task": "SUMMARY"})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, service.RateLimitMessage, env.Message)

	rr, env = e.do(t, http.MethodPost, "/api/v1/forms/"+id+"/chat", map[string]string{"text": "Hi"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, string(env.Result), service.RateLimitMessage)

	rr, _ = e.do(t, http.MethodPost, "/api/v1/forms/"+id+"/chat", map[string]string{"text": ""})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, env = e.do(t, http.MethodGet, "/api/v1/forms/"+id+"/chat", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var msgs []map[string]string
	require.NoError(t, json.Unmarshal(env.Result, &msgs))
	assert.Len(t, msgs, 2)
}

func TestAuth_SessionAndTheme(t *testing.T) {
	e := newTestEnv(t)

	rr, env := e.do(t, http.MethodGet, "/api/v1/auth/session", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "null", string(env.Result))

	rr, env = e.do(t, http.MethodPost, "/api/v1/auth/verify", map[string]string{"key": "abc"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, string(env.Result), `"daysLeft":2`)
	assert.True(t, e.mr.Exists("medig:medig-user"))

	rr, _ = e.do(t, http.MethodDelete, "/api/v1/auth/session", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, e.mr.Exists("medig:medig-user"))

	_, env = e.do(t, http.MethodGet, "/api/v1/preferences/theme", nil)
	assert.JSONEq(t, `{"theme":"light"}`, string(env.Result))
	rr, _ = e.do(t, http.MethodPut, "/api/v1/preferences/theme", map[string]string{"theme": "dark"})
	require.Equal(t, http.StatusOK, rr.Code)
	_, env = e.do(t, http.MethodGet, "/api/v1/preferences/theme", nil)
	assert.JSONEq(t, `{"theme":"dark"}`, string(env.Result))
	rr, _ = e.do(t, http.MethodPut, "/api/v1/preferences/theme", map[string]string{"theme": "sepia"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLabTable_TemplateAndImport(t *testing.T) {
	e := newTestEnv(t)
	id := e.createForm(t, "pre-op")
	_, _ = e.do(t, http.MethodPost, "/api/v1/forms/"+id+"/items", map[string]string{"path": "paraclinicalResults"})

	rr, _ := e.do(t, http.MethodGet, "/api/v1/templates/lab-table.xlsx", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, xlsxContentType, rr.Header().Get("Content-Type"))

	wb, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	sheet := wb.GetSheetName(0)
	require.NoError(t, wb.SetCellValue(sheet, "A2", "WBC"))
	require.NoError(t, wb.SetCellValue(sheet, "B2", "15.2"))
	require.NoError(t, wb.SetCellValue(sheet, "A4", "NEU"))
	var xlsx bytes.Buffer
	_, err = wb.WriteTo(&xlsx)
	require.NoError(t, err)
	_ = wb.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "lab.xlsx")
	require.NoError(t, err)
	_, _ = fw.Write(xlsx.Bytes())
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/forms/"+id+"/tables?path=paraclinicalResults.0", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr = httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	var f struct {
		Record struct {
			ParaclinicalResults []struct {
				TableData [][]string `json:"tableData"`
			} `json:"paraclinicalResults"`
		} `json:"record"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &f))
	assert.Equal(t, [][]string{
		{"Tên xét nghiệm", "Kết quả", "Trị số tham chiếu", "Đơn vị"},
		{"WBC", "15.2", "", ""},
		{"NEU", "", "", ""},
	}, f.Record.ParaclinicalResults[0].TableData)
}

func TestRouter_HealthAndCORS(t *testing.T) {
	e := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	rr, _ = e.do(t, http.MethodPut, "/healthz", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

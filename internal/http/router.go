package httpapi

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Router gorilla/mux 路由 + CORS、panic 恢复、访问日志
type Router struct {
	mux    *mux.Router
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    mux.NewRouter(),
		logger: logger,
	}
}

func (r *Router) Handle(path string, h http.HandlerFunc, methods ...string) {
	route := r.mux.HandleFunc(path, h)
	if len(methods) > 0 {
		route.Methods(methods...)
	}
}

// Handler 返回带中间件的 http.Handler
func (r *Router) Handler(allowedOrigins []string) http.Handler {
	var h http.Handler = r.mux
	h = handlers.CustomLoggingHandler(io.Discard, h, r.logAccess)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(zapRecoveryLogger{r.logger}), handlers.PrintRecoveryStack(false))(h)
	h = handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Accept"}),
		handlers.ExposedHeaders([]string{"Content-Disposition"}),
	)(h)
	return h
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) logAccess(_ io.Writer, p handlers.LogFormatterParams) {
	r.logger.Info("http request",
		zap.String("method", p.Request.Method),
		zap.String("path", p.URL.Path),
		zap.Int("status", p.StatusCode),
		zap.Int("size", p.Size),
		zap.Duration("elapsed", time.Since(p.TimeStamp)),
	)
}

type zapRecoveryLogger struct{ l *zap.Logger }

func (z zapRecoveryLogger) Println(v ...interface{}) {
	z.l.Error("panic recovered", zap.Any("panic", v))
}

// RegisterFormRoutes 表单相关路由
func (r *Router) RegisterFormRoutes(h *FormsHandler) {
	r.Handle("/api/v1/forms", h.Create, http.MethodPost)
	r.Handle("/api/v1/forms", h.List, http.MethodGet)
	r.Handle("/api/v1/forms/{id}", h.Get, http.MethodGet)
	r.Handle("/api/v1/forms/{id}", h.Close, http.MethodDelete)
	r.Handle("/api/v1/forms/{id}/fields", h.UpdateField, http.MethodPatch)
	r.Handle("/api/v1/forms/{id}/items", h.AppendItem, http.MethodPost)
	r.Handle("/api/v1/forms/{id}/items", h.RemoveItem, http.MethodDelete)
	r.Handle("/api/v1/forms/{id}/preview", h.Preview, http.MethodGet)
	r.Handle("/api/v1/forms/{id}/export", h.Export, http.MethodGet)
	r.Handle("/api/v1/forms/{id}/tables", h.ImportTable, http.MethodPost)
	r.Handle("/api/v1/templates/lab-table.xlsx", h.LabTableTemplate, http.MethodGet)
}

// RegisterAIRoutes 生成与对话
func (r *Router) RegisterAIRoutes(h *AIHandler) {
	r.Handle("/api/v1/forms/{id}/tasks", h.Tasks, http.MethodGet)
	r.Handle("/api/v1/forms/{id}/generate", h.Generate, http.MethodPost)
	r.Handle("/api/v1/forms/{id}/chat", h.ChatHistory, http.MethodGet)
	r.Handle("/api/v1/forms/{id}/chat", h.SendChat, http.MethodPost)
}

func (r *Router) RegisterAuthRoutes(h *AuthHandler) {
	r.Handle("/api/v1/auth/verify", h.Verify, http.MethodPost)
	r.Handle("/api/v1/auth/session", h.Session, http.MethodGet)
	r.Handle("/api/v1/auth/session", h.Logout, http.MethodDelete)
	r.Handle("/api/v1/preferences/theme", h.GetTheme, http.MethodGet)
	r.Handle("/api/v1/preferences/theme", h.SetTheme, http.MethodPut)
}

func (r *Router) RegisterHealth() {
	r.Handle("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	}, http.MethodGet)
}

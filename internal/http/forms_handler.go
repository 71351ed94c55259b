package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"medig/internal/domain"
	"medig/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FormsHandler 表单编辑、预览、导出
type FormsHandler struct {
	forms  *service.FormService
	logger *zap.Logger
}

func NewFormsHandler(forms *service.FormService, logger *zap.Logger) *FormsHandler {
	return &FormsHandler{forms: forms, logger: logger}
}

func formID(r *http.Request) string { return mux.Vars(r)["id"] }

func (h *FormsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Variant string `json:"variant"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	v, err := domain.ParseVariant(req.Variant)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	f, err := h.forms.Create(r.Context(), v)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(f))
}

func (h *FormsHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parseInt(r.URL.Query().Get("page"), 1)
	size := parseInt(r.URL.Query().Get("size"), 50)
	items, total, err := h.forms.List(r.Context(), page, size)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": total}))
}

func (h *FormsHandler) Get(w http.ResponseWriter, r *http.Request) {
	f, err := h.forms.Get(r.Context(), formID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(f))
}

func (h *FormsHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.forms.Close(r.Context(), formID(r)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// UpdateField body: {path, value}；value 原样交给 record.Update 解码
func (h *FormsHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path  string          `json:"path"`
		Value json.RawMessage `json:"value"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil || req.Path == "" || req.Value == nil {
		writeJSON(w, http.StatusBadRequest, Fail("path and value are required"))
		return
	}
	f, err := h.forms.UpdateField(r.Context(), formID(r), req.Path, req.Value)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(f))
}

func (h *FormsHandler) AppendItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, Fail("path is required"))
		return
	}
	f, index, err := h.forms.AppendItem(r.Context(), formID(r), req.Path)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"index": index, "form": f}))
}

func (h *FormsHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path  string `json:"path"`
		Index *int   `json:"index"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil || req.Path == "" || req.Index == nil {
		writeJSON(w, http.StatusBadRequest, Fail("path and index are required"))
		return
	}
	f, err := h.forms.RemoveItem(r.Context(), formID(r), req.Path, *req.Index)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(f))
}

func (h *FormsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	blocks, err := h.forms.Preview(r.Context(), formID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(blocks))
}

func (h *FormsHandler) Export(w http.ResponseWriter, r *http.Request) {
	file, err := h.forms.Export(r.Context(), formID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(file.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Content)
}

// ImportTable multipart 字段 file；?path= 指向检验项目（如 paraclinicalResults.0）
func (h *FormsHandler) ImportTable(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, Fail("path is required"))
		return
	}
	if err := r.ParseMultipartForm(10 << 20); err != nil { // 10MB max
		writeJSON(w, http.StatusBadRequest, Fail("failed to parse form"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("file not found in request"))
		return
	}
	defer file.Close()

	rows, err := ParseLabTable(file)
	if err != nil {
		h.logger.Warn("Lab table import rejected", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}
	f, err := h.forms.ImportTable(r.Context(), formID(r), path, rows)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(f))
}

func (h *FormsHandler) LabTableTemplate(w http.ResponseWriter, _ *http.Request) {
	data, err := GenerateLabTableTemplate()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=lab-table.xlsx")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// contentDisposition 文件名含越南语字符，同时给出 ASCII 回退与 RFC 5987 编码
func contentDisposition(name string) string {
	fallback := strings.Map(func(r rune) rune {
		if r > 0x7e || r < 0x20 || r == '"' {
			return '_'
		}
		return r
	}, name)
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, fallback, url.PathEscape(name))
}

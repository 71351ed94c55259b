package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"medig/internal/document"
	"medig/internal/domain"
	"medig/internal/prompt"
	"medig/internal/record"
	"medig/internal/repository"
	"medig/internal/service"
)

const maxBodyBytes = 20 << 20 // 表单里可能带 base64 图片

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// writeError 将业务错误映射为 HTTP 状态 + Result
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var aiErr *service.AIError
	var rejected *service.KeyRejectedError

	switch {
	case errors.As(err, &aiErr):
		if errors.Is(err, service.ErrRateLimited) {
			writeJSON(w, http.StatusTooManyRequests, FailCode(ResultRateLimited, aiErr.Message))
			return
		}
		writeJSON(w, http.StatusBadGateway, Fail(aiErr.Message))
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusUnauthorized, Fail(rejected.Reason))
	case errors.Is(err, service.ErrVerifyUnavailable):
		writeJSON(w, http.StatusBadGateway, Fail(service.VerifyUnavailableMessage))
	case errors.Is(err, repository.ErrFormNotFound):
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
	case errors.Is(err, repository.ErrBusy):
		writeJSON(w, http.StatusConflict, FailCode(ResultBusy, err.Error()))
	case errors.Is(err, record.ErrInvalidPath),
		errors.Is(err, record.ErrInvalidValue),
		errors.Is(err, prompt.ErrUnsupportedTask),
		errors.Is(err, domain.ErrUnknownVariant),
		errors.Is(err, document.ErrVariantMismatch),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrInvalidTheme),
		errors.Is(err, ErrEmptyWorkbook):
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
	default:
		logger.Error("Unhandled request error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
	}
}

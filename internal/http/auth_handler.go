package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"medig/internal/service"
)

// AuthHandler AI key 会话与界面偏好
type AuthHandler struct {
	auth   *service.AuthService
	prefs  *service.PreferenceService
	logger *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, prefs *service.PreferenceService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, prefs: prefs, logger: logger}
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := readBodyJSON(r, 4<<10, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	sess, err := h.auth.VerifyKey(r.Context(), req.Key)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(sess))
}

// Session 未登录时 result 为 null
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sess, err := h.auth.Current(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(sess))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

func (h *AuthHandler) GetTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(map[string]service.Theme{"theme": h.prefs.Theme(r.Context())}))
}

func (h *AuthHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme service.Theme `json:"theme"`
	}
	if err := readBodyJSON(r, 1<<10, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if err := h.prefs.SetTheme(r.Context(), req.Theme); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]service.Theme{"theme": req.Theme}))
}

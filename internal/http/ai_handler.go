package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"medig/internal/prompt"
	"medig/internal/service"
)

// AIHandler 叙述生成与病历问答
type AIHandler struct {
	narrative *service.NarrativeService
	chat      *service.ChatService
	logger    *zap.Logger
}

func NewAIHandler(narrative *service.NarrativeService, chat *service.ChatService, logger *zap.Logger) *AIHandler {
	return &AIHandler{narrative: narrative, chat: chat, logger: logger}
}

func (h *AIHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.narrative.Tasks(r.Context(), formID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(tasks))
}

func (h *AIHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Task string `json:"task"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil || req.Task == "" {
		writeJSON(w, http.StatusBadRequest, Fail("task is required"))
		return
	}
	g, err := h.narrative.Generate(r.Context(), formID(r), prompt.Task(req.Task))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(g))
}

func (h *AIHandler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chat.History(r.Context(), formID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(msgs))
}

func (h *AIHandler) SendChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	reply, err := h.chat.Send(r.Context(), formID(r), req.Text)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(reply))
}

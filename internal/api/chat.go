package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/firebase/genkit/go/ai"

	"github.com/opsmantis/mantis/internal/workflow"
)

// maxRequestBody caps chat request bodies at 1 MiB.
const maxRequestBody = 1 << 20

// chatTurn is one prior conversation turn in a chat request.
type chatTurn struct {
	// Role is "user" or "assistant".
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Message string     `json:"message"`
	History []chatTurn `json:"history,omitempty"`
}

type chatResponse struct {
	Content           string   `json:"content"`
	AnswerSource      string   `json:"answer_source"`
	Confidence        string   `json:"confidence"`
	FollowUpQuestions []string `json:"follow_up_questions,omitempty"`
	Decision          string   `json:"decision"`
}

type chatHandler struct {
	runner Runner
	logger *slog.Logger
}

// send runs one blocking workflow run and returns the structured answer.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	req, history, ok := h.decode(w, r)
	if !ok {
		return
	}

	result, err := h.runner.Run(r.Context(), history, req.Message)
	if err != nil {
		h.logger.Error("workflow run failed", "error", err)
		writeError(w, http.StatusInternalServerError, "workflow run failed")
		return
	}

	writeJSON(w, http.StatusOK, toChatResponse(result))
}

// stream runs one workflow run, emitting progress as server-sent events:
// "stage", "step", "text" and a final "result" (or "error") event.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	req, history, ok := h.decode(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for ev := range h.runner.Stream(r.Context(), history, req.Message) {
		switch ev.Type {
		case workflow.EventTypeStage:
			writeSSE(w, "stage", ev.Stage)
		case workflow.EventTypeStep:
			writeSSE(w, "step", fmt.Sprintf(`{"step":%d}`, ev.Step))
		case workflow.EventTypeText:
			writeSSE(w, "text", ev.TextChunk)
		case workflow.EventTypeError:
			h.logger.Error("workflow stream failed", "error", ev.Err)
			writeSSE(w, "error", "workflow run failed")
		case workflow.EventTypeComplete:
			body, err := json.Marshal(toChatResponse(ev.Result))
			if err != nil {
				writeSSE(w, "error", "encoding result failed")
				break
			}
			writeSSE(w, "result", string(body))
		}
		flusher.Flush()
	}
}

func (h *chatHandler) decode(w http.ResponseWriter, r *http.Request) (chatRequest, []*ai.Message, bool) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return chatRequest{}, nil, false
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return chatRequest{}, nil, false
	}
	return req, toMessages(req.History), true
}

// toMessages converts request history turns into transcript messages.
// Unknown roles are dropped rather than rejected.
func toMessages(turns []chatTurn) []*ai.Message {
	var out []*ai.Message
	for _, turn := range turns {
		switch turn.Role {
		case "user":
			out = append(out, ai.NewUserMessage(ai.NewTextPart(turn.Content)))
		case "assistant", "model":
			out = append(out, &ai.Message{
				Role:    ai.RoleModel,
				Content: []*ai.Part{ai.NewTextPart(turn.Content)},
			})
		}
	}
	return out
}

func toChatResponse(result *workflow.Result) chatResponse {
	return chatResponse{
		Content:           result.Answer.Content,
		AnswerSource:      result.Answer.AnswerSource,
		Confidence:        result.Answer.Confidence,
		FollowUpQuestions: result.Answer.FollowUpQuestions,
		Decision:          string(result.Decision),
	}
}

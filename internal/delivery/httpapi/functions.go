package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/botaqiy/botaqiy/internal/ai"
	"github.com/botaqiy/botaqiy/internal/service"
)

type extractTextRequest struct {
	Text string `json:"text"`
}

type flashcardsResponse struct {
	Flashcards any `json:"flashcards"`
}

type purchaseResponse struct {
	Success      bool   `json:"success"`
	NewCoins     *int   `json:"newCoins,omitempty"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
	CurrentCoins *int   `json:"currentCoins,omitempty"`
	Required     *int   `json:"required,omitempty"`
}

// ExtractText cleans pasted text and splits it into sentences.
func (h *Handler) ExtractText(w http.ResponseWriter, r *http.Request) {
	var req extractTextRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := service.ExtractText(req.Text)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid text input")
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GenerateFlashcards(w http.ResponseWriter, r *http.Request) {
	var req service.FlashcardRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cards, err := h.generation.GenerateFlashcards(r.Context(), req)
	if err != nil {
		h.writeGenerationError(w, r, err, "Failed to generate flashcards")
		return
	}

	writeJSON(w, http.StatusOK, flashcardsResponse{Flashcards: cards})
}

func (h *Handler) GenerateScenario(w http.ResponseWriter, r *http.Request) {
	var req service.ScenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	scenario, err := h.generation.GenerateScenario(r.Context(), req)
	if err != nil {
		h.writeGenerationError(w, r, err, "Failed to generate scenario")
		return
	}

	writeJSON(w, http.StatusOK, scenario)
}

// writeGenerationError hides gateway failures behind a fixed message and
// keeps the gateway's status code.
func (h *Handler) writeGenerationError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var upstream *ai.UpstreamError
	if errors.As(err, &upstream) {
		h.logger.Error("AI gateway error",
			zap.Int("status", upstream.StatusCode),
			zap.String("body", upstream.Body),
		)
		writeErrorMessage(w, upstream.StatusCode, msg)
		return
	}
	h.writeError(w, r, err)
}

// CalculateScore records a finished scenario test and credits its points.
func (h *Handler) CalculateScore(w http.ResponseWriter, r *http.Request) {
	var req service.ScoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.scores.Record(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) PurchaseReward(w http.ResponseWriter, r *http.Request) {
	var req service.PurchaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.purchases.Purchase(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if !result.Success {
		writeJSON(w, http.StatusBadRequest, purchaseResponse{
			Success:      false,
			Error:        "Insufficient coins",
			CurrentCoins: &result.CurrentCoins,
			Required:     &result.Required,
		})
		return
	}

	writeJSON(w, http.StatusOK, purchaseResponse{
		Success:  true,
		NewCoins: &result.NewCoins,
		Message:  result.Message,
	})
}

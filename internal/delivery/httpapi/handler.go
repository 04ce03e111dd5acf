package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/botaqiy/botaqiy/internal/ai"
	"github.com/botaqiy/botaqiy/internal/domain/entities"
	"github.com/botaqiy/botaqiy/internal/infra/postgres/repository"
	"github.com/botaqiy/botaqiy/internal/service"
)

const maxBodyBytes = 1 << 20

type GenerationService interface {
	GenerateFlashcards(ctx context.Context, req service.FlashcardRequest) ([]entities.Flashcard, error)
	GenerateScenario(ctx context.Context, req service.ScenarioRequest) (*entities.GeneratedScenario, error)
}

type ScoreService interface {
	Record(ctx context.Context, req service.ScoreRequest) (*service.ScoreResult, error)
}

type PurchaseService interface {
	Purchase(ctx context.Context, req service.PurchaseRequest) (*service.PurchaseResult, error)
	Rewards() []entities.Reward
	History(ctx context.Context, userID string) ([]*entities.RewardPurchase, error)
}

type SyncService interface {
	Apply(ctx context.Context, item entities.SyncQueueItem) (*service.SyncResult, error)
}

type LibraryService interface {
	SaveSession(ctx context.Context, req service.SaveSessionRequest) (*entities.FlashcardSession, error)
	Session(ctx context.Context, id string) (*entities.FlashcardSession, error)
	Sessions(ctx context.Context, userID string, limit int) ([]*entities.FlashcardSession, error)
	Profile(ctx context.Context, userID string) (*entities.Profile, error)
	SaveProfile(ctx context.Context, userID string, req service.ProfileRequest) (*entities.Profile, bool, error)
	Progress(ctx context.Context, userID string) (*entities.UserProgress, error)
}

type ScenarioCatalog interface {
	GetAll() []entities.Scenario
	GetByDifficulty(d entities.Difficulty) []entities.Scenario
	GetByID(id string) (entities.Scenario, bool)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the JSON API.
type Handler struct {
	generation GenerationService
	scores     ScoreService
	purchases  PurchaseService
	sync       SyncService
	library    LibraryService
	scenarios  ScenarioCatalog
	db         Pinger
	logger     *zap.Logger
}

func NewHandler(
	generation GenerationService,
	scores ScoreService,
	purchases PurchaseService,
	sync SyncService,
	library LibraryService,
	scenarios ScenarioCatalog,
	db Pinger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		generation: generation,
		scores:     scores,
		purchases:  purchases,
		sync:       sync,
		library:    library,
		scenarios:  scenarios,
		db:         db,
		logger:     logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var upstream *ai.UpstreamError

	switch {
	case errors.As(err, &upstream):
		return upstream.StatusCode
	case errors.Is(err, repository.ErrProgressNotFound),
		errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, repository.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrEmptyText),
		errors.Is(err, service.ErrInvalidSyncItem),
		errors.Is(err, service.ErrUnsupportedSyncItem),
		errors.Is(err, entities.ErrInvalidQuestionCount),
		errors.Is(err, entities.ErrInsufficientCoins):
		return http.StatusBadRequest
	case errors.Is(err, ai.ErrInvalidResponse):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and answers with its status and message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	} else {
		h.logger.Debug("request rejected",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	writeErrorMessage(w, status, err.Error())
}

package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
	"github.com/botaqiy/botaqiy/internal/service"
)

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.library.Progress(r.Context(), r.PathValue("userID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

// ListScenarios returns the built-in scenarios, optionally of one difficulty.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	d := r.URL.Query().Get("difficulty")
	if d == "" {
		writeJSON(w, http.StatusOK, h.scenarios.GetAll())
		return
	}

	writeJSON(w, http.StatusOK, h.scenarios.GetByDifficulty(entities.Difficulty(d)))
}

func (h *Handler) GetScenario(w http.ResponseWriter, r *http.Request) {
	scenario, ok := h.scenarios.GetByID(r.PathValue("id"))
	if !ok {
		writeErrorMessage(w, http.StatusNotFound, "scenario not found")
		return
	}

	writeJSON(w, http.StatusOK, scenario)
}

func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.purchases.Rewards())
}

func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	history, err := h.purchases.History(r.Context(), r.PathValue("userID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req service.SaveSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.library.SaveSession(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.library.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// ListSessions returns the newest sessions of a user; ?limit= caps the count.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	sessions, err := h.library.Sessions(r.Context(), r.PathValue("userID"), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sessions)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.library.Profile(r.Context(), r.PathValue("userID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) PutProfile(w http.ResponseWriter, r *http.Request) {
	var req service.ProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, created, err := h.library.SaveProfile(r.Context(), r.PathValue("userID"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, profile)
}

// Sync replays one queued device mutation.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	var item entities.SyncQueueItem
	if !decodeJSON(w, r, &item) {
		return
	}

	result, err := h.sync.Apply(r.Context(), item)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

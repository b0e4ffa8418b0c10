package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lowkeylabs/guildbank/internal/adapter/http/dto"
	"github.com/lowkeylabs/guildbank/internal/domain"
)

// XPService defines the behavior needed by XPHandler.
type XPService interface {
	RecordGain(key domain.XPKey, amount int64)
	Snapshot(ctx context.Context, key domain.XPKey) (domain.LevelStats, error)
	Leaderboard(ctx context.Context, scopeID int64, limit int) ([]*domain.XPRecord, error)
}

// XPHandler handles experience HTTP requests.
type XPHandler struct {
	xpUC XPService
}

// NewXPHandler creates a new XPHandler.
func NewXPHandler(xpUC XPService) *XPHandler {
	return &XPHandler{xpUC: xpUC}
}

// Gain buffers one experience gain. The write is deferred to the next
// flush, so this always answers immediately.
func (h *XPHandler) Gain(w http.ResponseWriter, r *http.Request) {
	var req dto.XPGainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive", "")
		return
	}

	h.xpUC.RecordGain(domain.XPKey{UserID: req.UserID, ScopeID: req.ScopeID}, req.Amount)

	w.WriteHeader(http.StatusAccepted)
}

// Get returns a user's level statistics within a scope.
func (h *XPHandler) Get(w http.ResponseWriter, r *http.Request) {
	scopeID, err := urlParamInt64(r, "scopeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid scope ID", err.Error())
		return
	}

	userID, err := urlParamInt64(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}

	key := domain.XPKey{UserID: userID, ScopeID: scopeID}

	stats, err := h.xpUC.Snapshot(r.Context(), key)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get level", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.LevelFromDomain(key, stats))
}

// Leaderboard lists the top XP totals in a scope.
func (h *XPHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	scopeID, err := urlParamInt64(r, "scopeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid scope ID", err.Error())
		return
	}

	records, err := h.xpUC.Leaderboard(r.Context(), scopeID, parseIntQuery(r, "limit", 10))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get leaderboard", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.XPRecordsFromDomain(records))
}

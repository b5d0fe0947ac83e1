package controllers

import (
	"encoding/json"
	"net/http"

	"bump_server/middleware"
	"bump_server/models"
	"bump_server/services"
	"bump_server/utils"

	"go.uber.org/zap"
)

// ExchangeController handles the hit ingestion and polling endpoints.
type ExchangeController struct {
	Hits    *services.HitService
	Matches *services.MatchStoreService
	Logger  *zap.Logger
}

func NewExchangeController(hits *services.HitService, matches *services.MatchStoreService, logger *zap.Logger) *ExchangeController {
	return &ExchangeController{Hits: hits, Matches: matches, Logger: logger}
}

// SubmitHit handles one device-reported bump event.
func (ec *ExchangeController) SubmitHit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		utils.RespondError(w, models.ErrUnauthorized)
		return
	}

	var req models.SubmitHitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, models.ErrValidation)
		return
	}

	result, err := ec.Hits.IngestHit(r.Context(), userID, utils.ClientIP(r), &req)
	if err != nil {
		ec.Logger.Error("hit ingestion failed", zap.String("sessionId", req.SessionID), zap.Error(err))
		utils.RespondError(w, err)
		return
	}

	resp := models.SubmitHitResponse{Success: true}
	if result != nil {
		resp.Matched = true
		resp.Token = result.Token
		resp.Role = result.Role
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

// PollStatus lets the waiting side discover that a match was completed by
// the other party.
func (ec *ExchangeController) PollStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r.Context()); !ok {
		utils.RespondError(w, models.ErrUnauthorized)
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	idx, err := ec.Matches.PollStatus(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, err)
		return
	}

	resp := models.PollStatusResponse{Success: true}
	if idx != nil {
		resp.HasMatch = true
		resp.Token = idx.Token
		resp.Role = idx.Role
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

package controllers

import (
	"encoding/json"
	"net/http"

	"bump_server/middleware"
	"bump_server/models"
	"bump_server/services"
	"bump_server/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// MatchController handles the QR display/scan endpoints and paired profile
// retrieval.
type MatchController struct {
	QR     *services.QRService
	Logger *zap.Logger
}

func NewMatchController(qr *services.QRService, logger *zap.Logger) *MatchController {
	return &MatchController{QR: qr, Logger: logger}
}

// CreateWaiting starts the QR-display path: a one-sided waiting record the
// displayer polls while the code is on screen.
func (mc *MatchController) CreateWaiting(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		utils.RespondError(w, models.ErrUnauthorized)
		return
	}

	var req models.CreateWaitingRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req) // empty body is fine, all fields optional
	}

	match, err := mc.QR.CreateWaiting(r.Context(), userID, req.SessionID, req.SharingCategory)
	if err != nil {
		mc.Logger.Error("create waiting match failed", zap.Error(err))
		utils.RespondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, models.CreateWaitingResponse{
		Success:   true,
		Token:     match.Token,
		SessionID: match.SessionA,
	})
}

// GetPairedProfile resolves a token for an authenticated viewer, completing a
// waiting record as a side effect when the viewer is the scanner.
func (mc *MatchController) GetPairedProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		utils.RespondError(w, models.ErrUnauthorized)
		return
	}

	token := mux.Vars(r)["token"]
	if token == "" {
		utils.RespondError(w, models.ErrValidation)
		return
	}
	query := r.URL.Query()

	view, err := mc.QR.View(r.Context(), token, userID, query.Get("sessionId"), query.Get("sharingCategory"))
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, models.PairedProfileResponse{
		Success:         true,
		Status:          view.Status,
		Profile:         view.Profile,
		SharingCategory: view.SharingCategory,
		MatchedAt:       view.MatchedAt,
		Role:            view.Role,
	})
}

// GetPreview serves the limited profile view for unauthenticated viewers of a
// waiting record.
func (mc *MatchController) GetPreview(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	if token == "" {
		utils.RespondError(w, models.ErrValidation)
		return
	}

	profile, category, err := mc.QR.Preview(r.Context(), token)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, models.PreviewResponse{
		Success:         true,
		Profile:         profile,
		SharingCategory: category,
	})
}

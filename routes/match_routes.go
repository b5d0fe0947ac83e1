package routes

import (
	"bump_server/controllers"
	"bump_server/middleware"
	"bump_server/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RegisterMatchRoutes sets up routes for match retrieval and the QR path
// under /api/match. The preview route is deliberately outside the auth
// subrouter: it serves viewers who have not signed in yet.
func RegisterMatchRoutes(r *mux.Router, auth *middleware.AuthMiddleware, qr *services.QRService, logger *zap.Logger) {
	controller := controllers.NewMatchController(qr, logger)

	r.HandleFunc("/api/match/{token}/preview", controller.GetPreview).Methods("GET")

	matchRouter := r.PathPrefix("/api/match").Subrouter()
	matchRouter.Use(auth.Require)

	matchRouter.HandleFunc("/waiting", controller.CreateWaiting).Methods("POST")
	matchRouter.HandleFunc("/{token}", controller.GetPairedProfile).Methods("GET")
}

package routes

import (
	"bump_server/controllers"
	"bump_server/middleware"
	"bump_server/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RegisterExchangeRoutes sets up routes for hit ingestion and polling under /api/exchange
func RegisterExchangeRoutes(r *mux.Router, auth *middleware.AuthMiddleware, hits *services.HitService, matches *services.MatchStoreService, logger *zap.Logger) {
	controller := controllers.NewExchangeController(hits, matches, logger)

	exchangeRouter := r.PathPrefix("/api/exchange").Subrouter()
	exchangeRouter.Use(auth.Require)

	exchangeRouter.HandleFunc("/hit", controller.SubmitHit).Methods("POST")
	exchangeRouter.HandleFunc("/status", controller.PollStatus).Methods("GET")
}

package router

import (
	"net/http"

	"github.com/senyabanana/dialogue-bridge/internal/handlers"
	"github.com/senyabanana/dialogue-bridge/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func InitRoutes(tenderHandler *handlers.TenderHandler, stats *services.Stats) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", handlers.PingHandler)
		r.Get("/stats", handlers.StatsHandler(stats))
		r.Get("/tenders/{tenderId}/status", tenderHandler.GetTenderStatus)
		r.Post("/tenders/{tenderId}/sync", tenderHandler.SyncTender)
	})

	return r
}

package handlers

import (
	"net/http"

	"github.com/senyabanana/dialogue-bridge/internal/services"

	"github.com/go-chi/render"
)

// StatsHandler отдает счетчики синхронизации в формате JSON.
func StatsHandler(stats *services.Stats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, stats.Snapshot())
	}
}

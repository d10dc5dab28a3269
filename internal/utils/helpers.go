package utils

import (
	"log/slog"
	"net/http"

	"github.com/senyabanana/dialogue-bridge/internal/models"

	"github.com/go-chi/render"
)

// SendErrorResponse отправляет ошибку в формате JSON
func SendErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	slog.Debug("sending error response", "status", statusCode, "message", message)
	render.Status(r, statusCode)
	render.JSON(w, r, models.NewErrorResponse(statusCode, message))
}

// ContainsStatus - функция для проверки, входит ли статус тендера в список
func ContainsStatus(statuses []string, status string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

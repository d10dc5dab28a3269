package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/senyabanana/dialogue-bridge/internal/models"
	"github.com/senyabanana/dialogue-bridge/internal/services"
	"github.com/senyabanana/dialogue-bridge/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// TenderHandler - структура для обработки HTTP-запросов.
type TenderHandler struct {
	Service *services.TenderService
	Logger  *slog.Logger
	Timeout time.Duration
}

// NewTenderHandler создаёт новый экземпляр TenderHandler.
func NewTenderHandler(service *services.TenderService, logger *slog.Logger, timeout time.Duration) *TenderHandler {
	return &TenderHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// syncResponse - ответ на ручную синхронизацию.
type syncResponse struct {
	TenderID string `json:"tenderId"`
	Outcome  string `json:"outcome"`
}

// GetTenderStatus обрабатывает запросы для получения статуса тендера в реестре.
func (h *TenderHandler) GetTenderStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	summary, err := h.Service.GetTenderStatus(ctx, chi.URLParam(r, "tenderId"))
	if err != nil {
		h.sendError(w, r, err, "failed to get tender status")
		return
	}
	render.JSON(w, r, summary)
}

// SyncTender обрабатывает запросы на синхронизацию диалога вне очереди.
// Таймаут ограничивает только чтение тендера, сама синхронизация не прерывается.
func (h *TenderHandler) SyncTender(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tenderID := chi.URLParam(r, "tenderId")
	outcome, err := h.Service.SyncTender(ctx, tenderID)
	if err != nil {
		h.sendError(w, r, err, "failed to sync tender")
		return
	}
	h.Logger.Info("manual sync finished", "tender_id", tenderID, "outcome", outcome.String())
	render.JSON(w, r, syncResponse{TenderID: tenderID, Outcome: outcome.String()})
}

func (h *TenderHandler) sendError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	h.Logger.Warn(fallback, "error", err)
	var errorResponse *models.ErrorResponse
	if errors.As(err, &errorResponse) {
		utils.SendErrorResponse(w, r, errorResponse.StatusCode, errorResponse.Message)
		return
	}
	utils.SendErrorResponse(w, r, http.StatusInternalServerError, fallback)
}

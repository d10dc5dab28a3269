package services

import (
	"context"
	"net/http"

	"github.com/senyabanana/dialogue-bridge/internal/models"
	"github.com/senyabanana/dialogue-bridge/internal/repository"
)

// TenderService обслуживает ручные запросы к мосту по отдельным тендерам.
type TenderService struct {
	Repo    repository.TenderRepository
	Crawler *Crawler
}

// NewTenderService создаёт новый экземпляр TenderService.
func NewTenderService(repo repository.TenderRepository, crawler *Crawler) *TenderService {
	return &TenderService{Repo: repo, Crawler: crawler}
}

// GetTenderStatus получает текущий статус тендера из реестра.
func (s *TenderService) GetTenderStatus(ctx context.Context, tenderID string) (*models.TenderSummary, error) {
	if tenderID == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing tender id")
	}
	tender, err := s.Repo.GetTender(ctx, tenderID)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusBadGateway, "failed to get tender from registry")
	}
	if tender == nil {
		return nil, models.NewErrorResponse(http.StatusNotFound, "tender not found")
	}
	summary := tender.Summary()
	return &summary, nil
}

// SyncTender синхронизирует диалог вне очереди ленты.
// Отмена ctx прерывает только чтение тендера: начатая синхронизация доводится до конца,
// иначе созданный второй этап может остаться не привязанным к диалогу.
func (s *TenderService) SyncTender(ctx context.Context, tenderID string) (Outcome, error) {
	summary, err := s.GetTenderStatus(ctx, tenderID)
	if err != nil {
		return OutcomeFailed, err
	}
	return s.Crawler.Sync(context.WithoutCancel(ctx), *summary), nil
}

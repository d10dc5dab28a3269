package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/senyabanana/dialogue-bridge/internal/logger"
	"github.com/senyabanana/dialogue-bridge/internal/models"
)

// FeedName - ключ, под которым хранится позиция ленты тендеров.
const FeedName = "tenders"

// feedOffset принимает позицию ленты и в виде строки, и в виде числа.
type feedOffset string

func (o *feedOffset) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = feedOffset(s)
		return nil
	}
	if string(data) == "null" {
		*o = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*o = feedOffset(n.String())
	return nil
}

type feedPage struct {
	Data     []models.TenderSummary `json:"data"`
	NextPage struct {
		Offset feedOffset `json:"offset"`
	} `json:"next_page"`
}

// FeedTenderSource читает ленту изменений тендеров реестра и отдает их по одному.
// Позиция в ленте сохраняется в CursorRepository перед запросом следующей страницы,
// когда предыдущая страница полностью отдана и барьер подтвердил ее обработку.
// Методы не безопасны для одновременного вызова из нескольких горутин.
type FeedTenderSource struct {
	*registryClient
	cursor       CursorRepository
	limit        int
	pollInterval time.Duration

	started bool
	offset  string
	pending string
	buffer  []models.TenderSummary
	barrier func(ctx context.Context) error
}

// NewFeedTenderSource создаёт новый экземпляр FeedTenderSource.
func NewFeedTenderSource(opts RegistryOptions, cursor CursorRepository, limit int, pollInterval time.Duration, log *slog.Logger) *FeedTenderSource {
	if limit <= 0 {
		limit = 100
	}
	return &FeedTenderSource{
		registryClient: newRegistryClient(opts, log),
		cursor:         cursor,
		limit:          limit,
		pollInterval:   pollInterval,
	}
}

// SetCheckpointBarrier задает функцию, которая блокирует сохранение позиции,
// пока не обработаны все отданные тендеры. Без барьера позиция сохраняется сразу.
func (s *FeedTenderSource) SetCheckpointBarrier(barrier func(ctx context.Context) error) {
	s.barrier = barrier
}

// Next возвращает следующий тендер из ленты, ожидая появления новых изменений.
// Возвращает ошибку контекста после его отмены.
func (s *FeedTenderSource) Next(ctx context.Context) (models.TenderSummary, error) {
	for len(s.buffer) == 0 {
		if err := s.loadPage(ctx); err != nil {
			return models.TenderSummary{}, err
		}
	}
	next := s.buffer[0]
	s.buffer = s.buffer[1:]
	return next, nil
}

func (s *FeedTenderSource) loadPage(ctx context.Context) error {
	if !s.started {
		offset, err := s.cursor.GetOffset(ctx, FeedName)
		if err != nil {
			return fmt.Errorf("load feed offset: %w", err)
		}
		s.offset = offset
		s.started = true
	}
	if s.pending != "" && s.pending != s.offset {
		if s.barrier != nil {
			if err := s.barrier(ctx); err != nil {
				return err
			}
		}
		s.offset = s.pending
		if err := s.cursor.SaveOffset(ctx, FeedName, s.offset); err != nil {
			s.log.Warn("Failed to save feed offset", logger.Journal(models.JournalException), "error", err)
		}
	}

	query := url.Values{}
	query.Set("feed", "changes")
	query.Set("limit", strconv.Itoa(s.limit))
	query.Set("opt_fields", "status,procurementMethodType")
	if s.offset != "" {
		query.Set("offset", s.offset)
	}

	var page feedPage
	_, _, err := s.execute(ctx, call{
		method:   http.MethodGet,
		path:     "/tenders?" + query.Encode(),
		failMsg:  "Fail to read tenders feed",
		classify: accept(http.StatusOK, nil),
		decode: func(body []byte) error {
			page = feedPage{}
			return json.Unmarshal(body, &page)
		},
	})
	if err != nil {
		return err
	}

	for _, summary := range page.Data {
		if err := validate.Struct(summary); err != nil {
			s.log.Warn("Skipping feed entry without id", logger.Journal(models.JournalException), "error", err)
			continue
		}
		s.buffer = append(s.buffer, summary)
	}
	s.pending = string(page.NextPage.Offset)
	s.log.Debug("Got feed page", logger.Journal(models.JournalFeedPage), "size", len(s.buffer), "offset", s.offset)

	if len(page.Data) == 0 {
		return s.retry.pause(ctx, s.pollInterval)
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/senyabanana/dialogue-bridge/internal/logger"
	"github.com/senyabanana/dialogue-bridge/internal/models"
)

// TenderSource - поток изменений тендеров. Конец потока обозначается io.EOF.
type TenderSource interface {
	Next(ctx context.Context) (models.TenderSummary, error)
}

// TenderProcessor синхронизирует один тендер.
type TenderProcessor interface {
	ProcessTender(ctx context.Context, summary models.TenderSummary) Outcome
}

// SliceSource отдает заранее известный список тендеров.
type SliceSource struct {
	mu      sync.Mutex
	tenders []models.TenderSummary
}

// NewSliceSource создаёт источник из списка тендеров.
func NewSliceSource(tenders ...models.TenderSummary) *SliceSource {
	return &SliceSource{tenders: tenders}
}

func (s *SliceSource) Next(ctx context.Context) (models.TenderSummary, error) {
	if err := ctx.Err(); err != nil {
		return models.TenderSummary{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tenders) == 0 {
		return models.TenderSummary{}, io.EOF
	}
	next := s.tenders[0]
	s.tenders = s.tenders[1:]
	return next, nil
}

// Stats - счетчики результатов синхронизации.
type Stats struct {
	received atomic.Int64
	outcomes [outcomeCount]atomic.Int64
}

func (s *Stats) record(o Outcome) {
	if o >= 0 && o < outcomeCount {
		s.outcomes[o].Add(1)
	}
}

// Count возвращает число тендеров с данным результатом.
func (s *Stats) Count(o Outcome) int64 {
	if o < 0 || o >= outcomeCount {
		return 0
	}
	return s.outcomes[o].Load()
}

// Snapshot возвращает текущие значения счетчиков.
func (s *Stats) Snapshot() map[string]int64 {
	out := make(map[string]int64, int(outcomeCount)+1)
	out["received"] = s.received.Load()
	for o := Outcome(0); o < outcomeCount; o++ {
		out[o.String()] = s.outcomes[o].Load()
	}
	return out
}

// eligibilityChecker - обработчик, умеющий без сети отсеять неподходящие тендеры.
type eligibilityChecker interface {
	IsEligible(summary models.TenderSummary) bool
}

// checkpointedSource - источник, который сохраняет позицию только после барьера,
// дожидающегося обработки уже отданных тендеров.
type checkpointedSource interface {
	SetCheckpointBarrier(barrier func(ctx context.Context) error)
}

// tenderLocks - блокировки по id тендера. Запись удаляется, когда ее отпускает последний владелец.
type tenderLocks struct {
	mu   sync.Mutex
	held map[string]*tenderLock
}

type tenderLock struct {
	sync.Mutex
	refs int
}

// acquire захватывает блокировку тендера и возвращает функцию ее освобождения.
func (l *tenderLocks) acquire(tenderID string) (release func()) {
	l.mu.Lock()
	if l.held == nil {
		l.held = make(map[string]*tenderLock)
	}
	lock, ok := l.held[tenderID]
	if !ok {
		lock = &tenderLock{}
		l.held[tenderID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()
		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.held, tenderID)
		}
		l.mu.Unlock()
	}
}

func (l *tenderLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

// Crawler раздает тендеры из источника нескольким обработчикам.
type Crawler struct {
	Processor TenderProcessor
	Workers   int
	Stats     *Stats
	log       *slog.Logger

	locks tenderLocks
}

// NewCrawler создаёт новый экземпляр Crawler.
func NewCrawler(processor TenderProcessor, workers int, log *slog.Logger) *Crawler {
	if workers < 1 {
		workers = 1
	}
	return &Crawler{Processor: processor, Workers: workers, Stats: &Stats{}, log: log}
}

// Run читает источник до io.EOF или отмены ctx и ждет завершения начатых обработок.
// Изменения одного тендера обрабатываются строго по очереди.
// Если источник сохраняет позицию, сохранение ждет окончания обработки всех уже прочитанных тендеров.
func (c *Crawler) Run(ctx context.Context, source TenderSource) error {
	jobs := make(chan models.TenderSummary, c.Workers)

	var inflight sync.WaitGroup
	if cs, ok := source.(checkpointedSource); ok {
		cs.SetCheckpointBarrier(func(ctx context.Context) error {
			inflight.Wait()
			return ctx.Err()
		})
	}

	var wg sync.WaitGroup
	for i := 0; i < c.Workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for summary := range jobs {
				c.process(ctx, idx, summary)
				inflight.Done()
			}
		}(i)
	}

	err := c.dispatch(ctx, source, jobs, &inflight)
	close(jobs)
	wg.Wait()
	return err
}

func (c *Crawler) dispatch(ctx context.Context, source TenderSource, jobs chan<- models.TenderSummary, inflight *sync.WaitGroup) error {
	for {
		summary, err := source.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read tender source: %w", err)
		}
		c.Stats.received.Add(1)

		inflight.Add(1)
		select {
		case jobs <- summary:
		case <-ctx.Done():
			inflight.Done()
			return nil
		}
	}
}

func (c *Crawler) process(ctx context.Context, idx int, summary models.TenderSummary) {
	outcome := c.Sync(ctx, summary)
	logger.FromContext(logger.WithTender(ctx, summary.ID), c.log).
		Debug("tender processed", "worker", idx, "outcome", outcome.String())
}

// Sync синхронизирует один тендер вне очереди, не пересекаясь с обработкой того же тендера воркерами.
// Неподходящие тендеры обрабатываются без блокировки.
func (c *Crawler) Sync(ctx context.Context, summary models.TenderSummary) Outcome {
	if checker, ok := c.Processor.(eligibilityChecker); !ok || checker.IsEligible(summary) {
		release := c.locks.acquire(summary.ID)
		defer release()
	}

	outcome := c.Processor.ProcessTender(ctx, summary)
	c.Stats.record(outcome)
	return outcome
}

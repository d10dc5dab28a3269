package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/senyabanana/dialogue-bridge/internal/logger"
	"github.com/senyabanana/dialogue-bridge/internal/models"
	"github.com/senyabanana/dialogue-bridge/internal/repository"
	"github.com/senyabanana/dialogue-bridge/internal/utils"
)

// Outcome - результат синхронизации одного диалога.
type Outcome int

const (
	OutcomeDone          Outcome = iota // второй этап существует, диалог завершен
	OutcomeSkipped                      // тендер не подходит для синхронизации
	OutcomeTenderGone                   // диалог пропал из реестра
	OutcomeDataIntegrity                // в диалоге нет обязательных данных
	OutcomeCreateAborted                // реестр отказал в создании второго этапа
	OutcomeInterrupted                  // синхронизация прервана остановкой процесса
	OutcomeFailed                       // запрос к реестру завершился ошибкой
	outcomeCount
)

var outcomeNames = [...]string{
	OutcomeDone:          "done",
	OutcomeSkipped:       "skipped",
	OutcomeTenderGone:    "tender_gone",
	OutcomeDataIntegrity: "data_integrity",
	OutcomeCreateAborted: "create_aborted",
	OutcomeInterrupted:   "interrupted",
	OutcomeFailed:        "failed",
}

func (o Outcome) String() string {
	if o < 0 || o >= outcomeCount {
		return fmt.Sprintf("outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// DialogueOptions - статусы, по которым принимаются решения о втором этапе.
type DialogueOptions struct {
	WaitingStatus   models.TenderStatus
	AllowedStatuses []string
	RewriteStatuses []string
}

// DialogueService синхронизирует конкурентный диалог с его тендером второго этапа.
type DialogueService struct {
	Repo    repository.TenderRepository
	Builder *Stage2Builder
	opts    DialogueOptions
	log     *slog.Logger
}

// NewDialogueService создаёт новый экземпляр DialogueService.
func NewDialogueService(repo repository.TenderRepository, builder *Stage2Builder, opts DialogueOptions, log *slog.Logger) *DialogueService {
	if opts.WaitingStatus == "" {
		opts.WaitingStatus = models.WaitingStage2Tender
	}
	return &DialogueService{Repo: repo, Builder: builder, opts: opts, log: log}
}

// IsEligible проверяет, что тендер - конкурентный диалог, ожидающий второго этапа.
func (s *DialogueService) IsEligible(summary models.TenderSummary) bool {
	switch summary.ProcurementMethodType {
	case models.CompetitiveDialogueUA, models.CompetitiveDialogueEU:
		return summary.Status == s.opts.WaitingStatus
	default:
		return false
	}
}

// ProcessTender приводит диалог и его второй этап к согласованному состоянию.
// Ошибки не возвращаются, а записываются в журнал; результат описывает, чем закончилась синхронизация.
func (s *DialogueService) ProcessTender(ctx context.Context, summary models.TenderSummary) Outcome {
	ctx = logger.WithTender(ctx, summary.ID)
	log := logger.FromContext(ctx, s.log)

	if !s.IsEligible(summary) {
		log.Debug(fmt.Sprintf("Skipping tender %s in status %s with procurementMethodType %s",
			summary.ID, summary.Status, summary.ProcurementMethodType), logger.Journal(models.JournalFoundNoLot))
		return OutcomeSkipped
	}

	tender, err := s.Repo.GetTender(ctx, summary.ID)
	if err != nil {
		return s.fail(ctx, "refresh tender", err)
	}
	if tender == nil {
		log.Warn(fmt.Sprintf("Tender %s not found in registry", summary.ID), logger.Journal(models.JournalException))
		return OutcomeTenderGone
	}

	createStage2, err := s.NeedsNewStage2(ctx, tender)
	if err != nil {
		return s.fail(ctx, "check stage2 tender", err)
	}
	if !createStage2 {
		if err := s.Repo.PatchDialogStatus(ctx, summary.ID); err != nil {
			return s.fail(ctx, "complete dialogue", err)
		}
		return OutcomeDone
	}

	creds, err := s.Repo.GetCredentials(ctx, summary.ID)
	if err != nil {
		return s.fail(ctx, "get credentials", err)
	}
	stage2, err := s.Builder.Build(tender, creds)
	if err != nil {
		log.Error(fmt.Sprintf("Can't prepare stage2 tender for dialogue %s", summary.ID),
			logger.Journal(models.JournalDataIntegrity), "error", err)
		if errors.Is(err, models.ErrDataIntegrity) {
			return OutcomeDataIntegrity
		}
		return OutcomeFailed
	}

	dialog, err := s.Repo.CreateStage2(ctx, stage2)
	if err != nil {
		return s.fail(ctx, "create stage2 tender", err)
	}
	if dialog == nil {
		return OutcomeCreateAborted
	}

	if err := s.Repo.PatchDialogStage2ID(ctx, *dialog); err != nil {
		return s.fail(ctx, "link stage2 tender", err)
	}
	if err := s.Repo.PatchStage2Status(ctx, *dialog); err != nil {
		return s.fail(ctx, "patch stage2 status", err)
	}
	if err := s.Repo.PatchDialogStatus(ctx, summary.ID); err != nil {
		return s.fail(ctx, "complete dialogue", err)
	}
	return OutcomeDone
}

// NeedsNewStage2 решает, нужно ли создавать тендер второго этапа.
// Второй этап не создается только тогда, когда он уже существует в одном из разрешенных статусов.
func (s *DialogueService) NeedsNewStage2(ctx context.Context, tender *models.Tender) (bool, error) {
	if tender.Stage2TenderID == "" {
		return true, nil
	}
	log := logger.FromContext(ctx, s.log)

	stage2, err := s.Repo.GetTender(ctx, tender.Stage2TenderID)
	if err != nil {
		return false, err
	}
	if stage2 == nil {
		log.Info(fmt.Sprintf("Tender stage 2 id=%s didn't exist, need create new", tender.ID),
			logger.Journal(models.JournalTenderStage2NotExist))
		return true, nil
	}

	status := string(stage2.Status)
	if utils.ContainsStatus(s.opts.AllowedStatuses, status) {
		log.Info(fmt.Sprintf("For dialog %s tender stage 2 already exists, need only patch", tender.ID),
			logger.Journal(models.JournalOnlyPatch))
		return false, nil
	}
	if utils.ContainsStatus(s.opts.RewriteStatuses, status) {
		// Старый черновик второго этапа остается в реестре как есть.
		log.Info(fmt.Sprintf("Tender stage 2 id=%s has bad status need to create new", tender.ID),
			logger.Journal(models.JournalCreateNewStage2), "stage2_tender_id", stage2.ID, "stage2_status", status)
	}
	return true, nil
}

func (s *DialogueService) fail(ctx context.Context, step string, err error) Outcome {
	if ctx.Err() != nil {
		logger.FromContext(ctx, s.log).Info("Synchronization interrupted", "step", step, "error", err)
		return OutcomeInterrupted
	}
	logger.FromContext(ctx, s.log).Error("Synchronization failed",
		logger.Journal(models.JournalException), "step", step, "error", err)
	return OutcomeFailed
}

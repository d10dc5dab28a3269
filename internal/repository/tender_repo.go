package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/senyabanana/dialogue-bridge/internal/logger"
	"github.com/senyabanana/dialogue-bridge/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// TenderRepository - интерфейс для работы с тендерами в реестре.
type TenderRepository interface {
	GetCredentials(ctx context.Context, tenderID string) (*models.Credentials, error)
	GetTender(ctx context.Context, tenderID string) (*models.Tender, error)
	CreateStage2(ctx context.Context, tender *models.Stage2Tender) (*models.Dialog, error)
	PatchDialogStage2ID(ctx context.Context, dialog models.Dialog) error
	PatchStage2Status(ctx context.Context, dialog models.Dialog) error
	PatchDialogStatus(ctx context.Context, dialogueID string) error
}

// RegistryTenderRepository - реализация TenderRepository поверх API реестра.
// Каждый метод повторяет запрос по политике RetryPolicy до окончательного результата.
type RegistryTenderRepository struct {
	*registryClient
	stage2Status string
}

// NewRegistryTenderRepository создаёт новый экземпляр RegistryTenderRepository.
func NewRegistryTenderRepository(opts RegistryOptions, stage2Status string, log *slog.Logger) *RegistryTenderRepository {
	return &RegistryTenderRepository{
		registryClient: newRegistryClient(opts, log),
		stage2Status:   stage2Status,
	}
}

// GetCredentials получает данные владельца тендера.
func (r *RegistryTenderRepository) GetCredentials(ctx context.Context, tenderID string) (*models.Credentials, error) {
	ctx = logger.WithTender(ctx, tenderID)
	log := logger.FromContext(ctx, r.log)
	log.Info(fmt.Sprintf("Getting credentials for tender %s", tenderID), logger.Journal(models.JournalGetCredentials))

	var creds models.Credentials
	_, _, err := r.execute(ctx, call{
		method:   http.MethodGet,
		path:     fmt.Sprintf("/tenders/%s/extract_credentials", tenderID),
		failMsg:  fmt.Sprintf("Can't get tender credentials %s", tenderID),
		classify: accept(http.StatusOK, nil),
		decode:   func(body []byte) error { return decodeData(body, &creds) },
	})
	if err != nil {
		return nil, err
	}
	log.Info(fmt.Sprintf("Got tender %s credentials", tenderID), logger.Journal(models.JournalGotCredentials))
	return &creds, nil
}

// GetTender получает тендер. Для несуществующего тендера возвращает nil без ошибки.
func (r *RegistryTenderRepository) GetTender(ctx context.Context, tenderID string) (*models.Tender, error) {
	ctx = logger.WithTender(ctx, tenderID)

	var tender models.Tender
	status, _, err := r.execute(ctx, call{
		method:   http.MethodGet,
		path:     "/tenders/" + tenderID,
		failMsg:  fmt.Sprintf("Fail to get tender %s", tenderID),
		classify: accept(http.StatusOK, map[int]verdict{http.StatusNotFound: verdictStop}),
		decode: func(body []byte) error {
			if err := decodeData(body, &tender); err != nil {
				return err
			}
			if tender.ID == "" {
				return errors.New("tender document without id")
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	return &tender, nil
}

// createdTender - поля ответа на создание тендера второго этапа.
type createdTender struct {
	ID         string `json:"id" validate:"required"`
	DialogueID string `json:"dialogueID" validate:"required"`
}

// CreateStage2 создает тендер второго этапа. При отказе реестра (422, 404)
// возвращает nil без ошибки: повторять такой запрос бессмысленно.
func (r *RegistryTenderRepository) CreateStage2(ctx context.Context, tender *models.Stage2Tender) (*models.Dialog, error) {
	ctx = logger.WithTender(ctx, tender.DialogueID)
	log := logger.FromContext(ctx, r.log)
	log.Info(fmt.Sprintf("Creating tender stage2 from competitive dialogue id=%s", tender.DialogueID),
		logger.Journal(models.JournalCreateNewTender))

	status, body, err := r.execute(ctx, call{
		method:  http.MethodPost,
		path:    "/tenders",
		payload: tender,
		failMsg: "Fail to post tender stage2",
		classify: accept(http.StatusCreated, map[int]verdict{
			http.StatusUnprocessableEntity: verdictStop,
			http.StatusNotFound:            verdictStop,
		}),
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		log.Warn(fmt.Sprintf("Catch %d status, stop create tender stage2", status),
			logger.Journal(models.JournalUnsuccessfulCreate))
		log.Warn(fmt.Sprintf("Error response %s", body), logger.Journal(models.JournalUnsuccessfulCreate))
		return nil, nil
	}

	// Тендер уже создан: повтор POST после 201 создал бы дубликат, поэтому
	// ошибка разбора ответа не повторяется, а возвращается вызывающему.
	var created createdTender
	if err := decodeData(body, &created); err != nil {
		return nil, fmt.Errorf("decode created tender: %w", err)
	}
	if err := validate.Struct(created); err != nil {
		return nil, fmt.Errorf("created tender response: %w", err)
	}

	log.Info(fmt.Sprintf("Successfully created tender stage2 id=%s from competitive dialogue id=%s", created.ID, created.DialogueID),
		logger.Journal(models.JournalTenderCreated), "stage2_tender_id", created.ID)
	return &models.Dialog{ID: created.DialogueID, Stage2TenderID: created.ID}, nil
}

// patchedTender - поля ответа на PATCH, которые попадают в журнал.
type patchedTender struct {
	ID             string `json:"id"`
	Stage2TenderID string `json:"stage2TenderID"`
}

// PatchDialogStage2ID записывает в диалог ссылку на тендер второго этапа.
func (r *RegistryTenderRepository) PatchDialogStage2ID(ctx context.Context, dialog models.Dialog) error {
	ctx = logger.WithTender(ctx, dialog.ID)
	log := logger.FromContext(ctx, r.log)
	log.Info(fmt.Sprintf("Patch competitive dialogue id=%s with stage2 tender id", dialog.ID),
		logger.Journal(models.JournalPatchStage2ID))

	var patched patchedTender
	_, _, err := r.execute(ctx, call{
		method:   http.MethodPatch,
		path:     "/tenders/" + dialog.ID,
		payload:  dialog,
		failMsg:  fmt.Sprintf("Unsuccessful patch competitive dialogue id=%s with stage2 tender id", dialog.ID),
		classify: accept(http.StatusOK, map[int]verdict{http.StatusPreconditionFailed: verdictAgain}),
		decode:   func(body []byte) error { return decodeData(body, &patched) },
	})
	if err != nil {
		return err
	}
	log.Info(fmt.Sprintf("Successful patch competitive dialogue id=%s with stage2 tender id", dialog.ID),
		logger.Journal(models.JournalPatchedStage2ID), "stage2_tender_id", dialog.Stage2TenderID)
	return nil
}

// stage2StatusPatch - тело запроса на смену статуса тендера второго этапа.
type stage2StatusPatch struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	DialogueID string `json:"dialogueID"`
}

// PatchStage2Status переводит тендер второго этапа в рабочий статус черновика.
func (r *RegistryTenderRepository) PatchStage2Status(ctx context.Context, dialog models.Dialog) error {
	patch := stage2StatusPatch{ID: dialog.Stage2TenderID, Status: r.stage2Status, DialogueID: dialog.ID}
	ctx = logger.WithDialogue(logger.WithTender(ctx, patch.ID), dialog.ID)
	log := logger.FromContext(ctx, r.log)
	log.Info(fmt.Sprintf("Patch tender stage2 id=%s with status %s", patch.ID, patch.Status),
		logger.Journal(models.JournalPatchNewTenderStatus))

	var patched patchedTender
	_, _, err := r.execute(ctx, call{
		method:   http.MethodPatch,
		path:     "/tenders/" + patch.ID,
		payload:  patch,
		failMsg:  fmt.Sprintf("Unsuccessful patch tender stage2 id=%s with status %s", patch.ID, patch.Status),
		classify: accept(http.StatusOK, map[int]verdict{http.StatusPreconditionFailed: verdictAgain}),
		decode:   func(body []byte) error { return decodeData(body, &patched) },
	})
	if err != nil {
		return err
	}
	log.Info(fmt.Sprintf("Successful patch tender stage2 id=%s with status %s", patch.ID, patch.Status),
		logger.Journal(models.JournalPatchedStage2ID))
	return nil
}

// dialogStatusPatch - тело запроса на завершение диалога.
type dialogStatusPatch struct {
	ID     string              `json:"id"`
	Status models.TenderStatus `json:"status"`
}

// PatchDialogStatus завершает диалог. Ответы 403 и 422 означают, что реестр
// не позволяет завершить диалог (например, он уже завершен): попытки прекращаются без ошибки.
func (r *RegistryTenderRepository) PatchDialogStatus(ctx context.Context, dialogueID string) error {
	patch := dialogStatusPatch{ID: dialogueID, Status: models.CompleteTender}
	ctx = logger.WithTender(ctx, dialogueID)
	log := logger.FromContext(ctx, r.log)
	log.Info(fmt.Sprintf("Patch competitive dialogue id=%s with status %s", dialogueID, patch.Status),
		logger.Journal(models.JournalPatchDialogStatus))

	var patched patchedTender
	status, body, err := r.execute(ctx, call{
		method:  http.MethodPatch,
		path:    "/tenders/" + dialogueID,
		payload: patch,
		failMsg: fmt.Sprintf("Unsuccessful patch competitive dialogue id=%s with status %s", dialogueID, patch.Status),
		classify: accept(http.StatusOK, map[int]verdict{
			http.StatusPreconditionFailed:  verdictAgain,
			http.StatusForbidden:           verdictStop,
			http.StatusUnprocessableEntity: verdictStop,
		}),
		decode: func(body []byte) error { return decodeData(body, &patched) },
	})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		log.Error(fmt.Sprintf("Stop trying patch dialogue id=%s with status %s. Response: %s", dialogueID, patch.Status, compact(body)),
			logger.Journal(models.JournalUnsuccessfulPatchStage2ID))
		return nil
	}
	log.Info(fmt.Sprintf("Successful patch competitive dialogue id=%s with status %s", dialogueID, patch.Status),
		logger.Journal(models.JournalSuccessfulPatchDialogStatus), "stage2_tender_id", patched.Stage2TenderID)
	return nil
}

// compact убирает лишние пробелы из JSON-ответа для журнала.
func compact(body []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return string(body)
	}
	return buf.String()
}

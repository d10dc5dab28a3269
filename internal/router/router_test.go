package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/senyabanana/dialogue-bridge/internal/handlers"
	"github.com/senyabanana/dialogue-bridge/internal/logger"
	"github.com/senyabanana/dialogue-bridge/internal/models"
	"github.com/senyabanana/dialogue-bridge/internal/services"
)

// stubRepo отдает тендеры из памяти и успешно выполняет все изменения.
type stubRepo struct {
	tenders map[string]*models.Tender
}

func (s stubRepo) GetCredentials(context.Context, string) (*models.Credentials, error) {
	return &models.Credentials{Owner: "user1", TenderToken: "token"}, nil
}

func (s stubRepo) GetTender(_ context.Context, id string) (*models.Tender, error) {
	return s.tenders[id], nil
}

func (s stubRepo) CreateStage2(context.Context, *models.Stage2Tender) (*models.Dialog, error) {
	return nil, nil
}

func (s stubRepo) PatchDialogStage2ID(context.Context, models.Dialog) error { return nil }
func (s stubRepo) PatchStage2Status(context.Context, models.Dialog) error { return nil }
func (s stubRepo) PatchDialogStatus(context.Context, string) error { return nil }

func newTestRouter() (http.Handler, *services.Crawler) {
	repo := stubRepo{tenders: map[string]*models.Tender{
		"33": {ID: "33", Status: "active.tendering", ProcurementMethodType: "belowThreshold"},
	}}
	builder := services.NewStage2Builder(services.Stage2Options{}, logger.Discard())
	dialogues := services.NewDialogueService(repo, builder, services.DialogueOptions{}, logger.Discard())
	crawler := services.NewCrawler(dialogues, 1, logger.Discard())
	handler := handlers.NewTenderHandler(services.NewTenderService(repo, crawler), logger.Discard(), time.Second)
	return InitRoutes(handler, crawler.Stats), crawler
}

func TestPing(t *testing.T) {
	routes, _ := newTestRouter()
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("expected 200 ok, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestPingRejectsOtherMethods(t *testing.T) {
	routes, _ := newTestRouter()
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ping", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestSyncAndStats(t *testing.T) {
	routes, _ := newTestRouter()

	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tenders/33/sync", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var synced map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &synced); err != nil {
		t.Fatalf("decode sync response: %v", err)
	}
	if synced["outcome"] != "skipped" || synced["tenderId"] != "33" {
		t.Fatalf("unexpected sync response %v", synced)
	}

	rec = httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	var stats map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats["skipped"] != 1 {
		t.Fatalf("expected one skipped tender, got %v", stats)
	}
}

func TestTenderStatusNotFound(t *testing.T) {
	routes, _ := newTestRouter()
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tenders/99/status", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if body["reason"] != "tender not found" {
		t.Fatalf("unexpected error response %v", body)
	}
}

func TestTenderStatus(t *testing.T) {
	routes, _ := newTestRouter()
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tenders/33/status", nil))

	var summary models.TenderSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if summary.ID != "33" || summary.Status != "active.tendering" {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

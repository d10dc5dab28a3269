package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/senyabanana/dialogue-bridge/internal/logger"
	"github.com/senyabanana/dialogue-bridge/internal/models"
)

const dialogueJSON = `{
	"id": "33",
	"title": "test_tender",
	"procurementMethodType": "competitiveDialogueEU",
	"status": "active.stage2.waiting",
	"dialogueID": "35",
	"title_ru": "asd",
	"mode": 1,
	"minimalStep": {"amount": 10, "currency": "UAH"},
	"value": {"amount": 1000, "currency": "UAH"},
	"tenderID": "test_id",
	"features": [
		{"featureOf": "tenderer", "code": "f1"},
		{"featureOf": "item", "relatedItem": "item_1", "code": "f2"},
		{"featureOf": "lot", "relatedItem": "lot_1", "code": "f3"}
	],
	"lots": [{"id": "lot_1", "status": "active", "title": "lot one"}],
	"items": [{"id": "item_1", "relatedLot": "lot_1", "quantity": 5}],
	"bids": [
		{"id": "bid_1", "tenderers": [{"identifier": {"id": "id_1", "scheme": "UA-EDR"}, "name": "test_name"}]},
		{"id": "bid_2", "tenderers": [{"identifier": {"id": "id_2", "scheme": "UA-EDR"}, "name": "test_name"}]}
	],
	"qualifications": [
		{"status": "active", "lotID": "lot_1", "bidID": "bid_1"},
		{"status": "active", "bidID": "bid_2"}
	]
}`

func testCredentials() *models.Credentials {
	return &models.Credentials{Owner: "user1", TenderToken: strings.Repeat("0", 32)}
}

func newTestBuilder() *Stage2Builder {
	return NewStage2Builder(Stage2Options{
		CopyFields: []string{"title", "title_ru", "mode", "minimalStep", "value", "description"},
		EUType:     "competitiveDialogueEU.stage2",
		UAType:     "competitiveDialogueUA.stage2",
	}, logger.Discard())
}

// loadDialogue разбирает фикстуру, позволяя поправить документ перед разбором.
func loadDialogue(t *testing.T, patch func(doc map[string]any)) *models.Tender {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal([]byte(dialogueJSON), &doc); err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	if patch != nil {
		patch(doc)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	var tender models.Tender
	if err := json.Unmarshal(data, &tender); err != nil {
		t.Fatalf("parse tender: %v", err)
	}
	return &tender
}

func firmIDs(firms []models.ShortlistedFirm) []string {
	ids := make([]string, 0, len(firms))
	for _, f := range firms {
		ids = append(ids, f.Identifier.ID)
	}
	return ids
}

func TestBuildFromDialogueWithActiveLot(t *testing.T) {
	stage2, err := newTestBuilder().Build(loadDialogue(t, nil), testCredentials())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if stage2.TenderID != "test_id.2" {
		t.Fatalf("expected tenderID test_id.2, got %s", stage2.TenderID)
	}
	if stage2.ProcurementMethodType != "competitiveDialogueEU.stage2" {
		t.Fatalf("expected EU stage2 type, got %s", stage2.ProcurementMethodType)
	}
	if stage2.ProcurementMethod != "selective" || stage2.Status != models.DraftTender || stage2.DialogueID != "33" {
		t.Fatalf("unexpected base fields: %+v", stage2)
	}
	if got := firmIDs(stage2.ShortlistedFirms); len(got) != 2 || got[0] != "id_1" || got[1] != "id_2" {
		t.Fatalf("expected firms [id_1 id_2], got %v", got)
	}
	if lots := stage2.ShortlistedFirms[0].Lots; len(lots) != 1 || lots[0].ID != "lot_1" {
		t.Fatalf("expected id_1 shortlisted for lot_1, got %v", lots)
	}
	if lots := stage2.ShortlistedFirms[1].Lots; lots == nil || len(lots) != 0 {
		t.Fatalf("expected id_2 with empty lots, got %v", lots)
	}
	if len(stage2.Lots) != 1 || stage2.Lots[0].ID != "lot_1" || stage2.Lots[0].Status != "active" {
		t.Fatalf("expected lots [lot_1], got %+v", stage2.Lots)
	}
	if len(stage2.Items) != 1 || stage2.Items[0].ID != "item_1" {
		t.Fatalf("expected items [item_1], got %+v", stage2.Items)
	}
	if len(stage2.Features) != 3 {
		t.Fatalf("expected all 3 features, got %d", len(stage2.Features))
	}
	if stage2.Owner != "user1" || stage2.DialogueToken != strings.Repeat("0", 32) {
		t.Fatalf("unexpected credentials in result: owner=%s token=%s", stage2.Owner, stage2.DialogueToken)
	}
}

func TestBuildDocumentShape(t *testing.T) {
	stage2, err := newTestBuilder().Build(loadDialogue(t, nil), testCredentials())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	data, err := json.Marshal(stage2)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, key := range []string{"shortlistedFirms", "owner", "dialogue_token", "title", "title_ru", "mode", "minimalStep", "value"} {
		if _, ok := doc[key]; !ok {
			t.Fatalf("expected key %q in stage2 document", key)
		}
	}
	for _, key := range []string{"id", "bids", "qualifications", "description", "stage2TenderID"} {
		if _, ok := doc[key]; ok {
			t.Fatalf("key %q must not be in stage2 document", key)
		}
	}
	if string(doc["status"]) != `"draft"` {
		t.Fatalf("copied fields must not override status, got %s", doc["status"])
	}
	if !bytes.Contains(doc["items"], []byte(`"quantity":5`)) {
		t.Fatalf("expected items copied with all fields, got %s", doc["items"])
	}
	if !bytes.Contains(doc["lots"], []byte(`"title":"lot one"`)) {
		t.Fatalf("expected lots copied with all fields, got %s", doc["lots"])
	}
	if !bytes.Contains(doc["shortlistedFirms"], []byte(`"scheme":"UA-EDR"`)) {
		t.Fatalf("expected identifier copied with all fields, got %s", doc["shortlistedFirms"])
	}
}

func TestBuildWithInactiveLot(t *testing.T) {
	tender := loadDialogue(t, func(doc map[string]any) {
		doc["lots"].([]any)[0].(map[string]any)["status"] = "pending"
	})
	stage2, err := newTestBuilder().Build(tender, testCredentials())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if stage2.Lots == nil || len(stage2.Lots) != 0 {
		t.Fatalf("expected empty lots, got %+v", stage2.Lots)
	}
	// Квалификация по неактивному лоту пропускается целиком, id_2 попадает через квалификацию без лота.
	if got := firmIDs(stage2.ShortlistedFirms); len(got) != 1 || got[0] != "id_2" {
		t.Fatalf("expected firms [id_2], got %v", got)
	}
	if len(stage2.Items) != 1 || stage2.Items[0].ID != "item_1" {
		t.Fatalf("expected full items copy, got %+v", stage2.Items)
	}
	for _, f := range stage2.Features {
		if f.FeatureOf == models.FeatureOfLot {
			t.Fatalf("lot feature of inactive lot must be dropped")
		}
	}
	if len(stage2.Features) != 2 {
		t.Fatalf("expected tenderer and item features, got %d", len(stage2.Features))
	}
}

func TestBuildIgnoresInactiveQualifications(t *testing.T) {
	tender := loadDialogue(t, func(doc map[string]any) {
		for _, q := range doc["qualifications"].([]any) {
			q.(map[string]any)["status"] = "pending"
		}
		delete(doc, "features")
	})
	tender.ProcurementMethodType = models.CompetitiveDialogueUA

	stage2, err := newTestBuilder().Build(tender, testCredentials())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if stage2.ProcurementMethodType != "competitiveDialogueUA.stage2" {
		t.Fatalf("expected UA stage2 type, got %s", stage2.ProcurementMethodType)
	}
	if len(stage2.ShortlistedFirms) != 0 || len(stage2.Lots) != 0 {
		t.Fatalf("expected no firms and lots, got %v %v", stage2.ShortlistedFirms, stage2.Lots)
	}
	if stage2.Items != nil {
		t.Fatalf("expected no items, got %+v", stage2.Items)
	}
	if stage2.Features != nil {
		t.Fatalf("expected no features without source features, got %+v", stage2.Features)
	}
}

func TestBuildKeepsEmptyFeatures(t *testing.T) {
	tender := loadDialogue(t, func(doc map[string]any) {
		doc["features"] = []any{map[string]any{"featureOf": "lot", "relatedItem": "lot_9"}}
	})
	stage2, err := newTestBuilder().Build(tender, testCredentials())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	data, err := json.Marshal(stage2)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Contains(data, []byte(`"features":[]`)) {
		t.Fatalf("expected empty features list in %s", data)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	b := newTestBuilder()
	first, err := b.Build(loadDialogue(t, nil), testCredentials())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	second, err := b.Build(loadDialogue(t, nil), testCredentials())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	a, _ := json.Marshal(first)
	c, _ := json.Marshal(second)
	if !bytes.Equal(a, c) {
		t.Fatalf("expected identical documents:\n%s\n%s", a, c)
	}
}

func TestProcessQualificationsIsIdempotent(t *testing.T) {
	tender := loadDialogue(t, nil)
	first, err := ProcessQualifications(tender)
	if err != nil {
		t.Fatalf("ProcessQualifications returned error: %v", err)
	}
	second, err := ProcessQualifications(tender)
	if err != nil {
		t.Fatalf("ProcessQualifications returned error: %v", err)
	}

	a, _ := json.Marshal(first.Firms)
	c, _ := json.Marshal(second.Firms)
	if !bytes.Equal(a, c) {
		t.Fatalf("firms differ between runs: %s vs %s", a, c)
	}
	a, _ = json.Marshal(first.Lots.Values())
	c, _ = json.Marshal(second.Lots.Values())
	if !bytes.Equal(a, c) {
		t.Fatalf("lots differ between runs: %s vs %s", a, c)
	}
}

func TestProcessQualificationsSharedTenderer(t *testing.T) {
	tender := loadDialogue(t, func(doc map[string]any) {
		doc["lots"] = []any{
			map[string]any{"id": "lot_1", "status": "active"},
			map[string]any{"id": "lot_2", "status": "active"},
		}
		doc["items"] = []any{
			map[string]any{"id": "item_1", "relatedLot": "lot_1"},
			map[string]any{"id": "item_2", "relatedLot": "lot_2"},
		}
		doc["qualifications"] = []any{
			map[string]any{"status": "active", "bidID": "bid_1"},
			map[string]any{"status": "active", "lotID": "lot_1", "bidID": "bid_1"},
			map[string]any{"status": "active", "lotID": "lot_2", "bidID": "bid_1"},
			map[string]any{"status": "active", "lotID": "lot_2", "bidID": "bid_2"},
		}
	})

	result, err := ProcessQualifications(tender)
	if err != nil {
		t.Fatalf("ProcessQualifications returned error: %v", err)
	}
	if got := firmIDs(result.Firms); len(got) != 2 || got[0] != "id_1" || got[1] != "id_2" {
		t.Fatalf("expected firms [id_1 id_2], got %v", got)
	}
	if lots := result.Firms[0].Lots; len(lots) != 2 || lots[0].ID != "lot_1" || lots[1].ID != "lot_2" {
		t.Fatalf("expected id_1 on lot_1 and lot_2, got %v", lots)
	}
	if len(result.Items) != 2 || result.Items[0].ID != "item_1" || result.Items[1].ID != "item_2" {
		t.Fatalf("expected lot items to override full copy, got %+v", result.Items)
	}
}

func TestBuildDataIntegrityErrors(t *testing.T) {
	tests := []struct {
		name  string
		patch func(doc map[string]any)
		creds *models.Credentials
	}{
		{
			name:  "missing owner",
			creds: &models.Credentials{TenderToken: "token"},
		},
		{
			name:  "missing credentials",
			creds: nil,
		},
		{
			name: "unknown bid",
			patch: func(doc map[string]any) {
				doc["qualifications"].([]any)[1].(map[string]any)["bidID"] = "bid_9"
			},
			creds: testCredentials(),
		},
		{
			name: "unknown lot",
			patch: func(doc map[string]any) {
				doc["qualifications"].([]any)[0].(map[string]any)["lotID"] = "lot_9"
			},
			creds: testCredentials(),
		},
		{
			name: "item without relatedLot",
			patch: func(doc map[string]any) {
				doc["items"] = []any{map[string]any{"id": "item_1"}}
			},
			creds: testCredentials(),
		},
		{
			name: "missing tenderID",
			patch: func(doc map[string]any) {
				delete(doc, "tenderID")
			},
			creds: testCredentials(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestBuilder().Build(loadDialogue(t, tt.patch), tt.creds)
			if !errors.Is(err, models.ErrDataIntegrity) {
				t.Fatalf("expected ErrDataIntegrity, got %v", err)
			}
		})
	}
}

func TestProcessFeaturesWithoutItems(t *testing.T) {
	features := []models.Feature{
		{FeatureOf: models.FeatureOfTenderer},
		{FeatureOf: models.FeatureOfItem, RelatedItem: "item_1"},
	}
	got := ProcessFeatures(features, nil, nil)
	if len(got) != 1 || got[0].FeatureOf != models.FeatureOfTenderer {
		t.Fatalf("expected only tenderer feature, got %+v", got)
	}
}

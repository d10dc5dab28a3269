package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/senyabanana/dialogue-bridge/internal/logger"
	"github.com/senyabanana/dialogue-bridge/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Stage2Options - параметры построения тендера второго этапа.
type Stage2Options struct {
	CopyFields []string
	EUType     models.ProcurementMethodType
	UAType     models.ProcurementMethodType
}

// Stage2Builder строит документ тендера второго этапа из конкурентного диалога.
type Stage2Builder struct {
	opts Stage2Options
	log  *slog.Logger
}

// NewStage2Builder создаёт новый экземпляр Stage2Builder.
func NewStage2Builder(opts Stage2Options, log *slog.Logger) *Stage2Builder {
	return &Stage2Builder{opts: opts, log: log}
}

// Build строит тендер второго этапа. Если в диалоге или в данных владельца
// нет обязательных полей, возвращает ошибку, обернутую в models.ErrDataIntegrity.
func (b *Stage2Builder) Build(tender *models.Tender, creds *models.Credentials) (*models.Stage2Tender, error) {
	if tender == nil {
		return nil, fmt.Errorf("%w: empty tender", models.ErrDataIntegrity)
	}
	if tender.ID == "" || tender.TenderID == "" || tender.ProcurementMethodType == "" {
		return nil, fmt.Errorf("%w: tender %q lacks id, tenderID or procurementMethodType", models.ErrDataIntegrity, tender.ID)
	}
	if creds == nil {
		return nil, fmt.Errorf("%w: no credentials for tender %s", models.ErrDataIntegrity, tender.ID)
	}
	if err := validate.Struct(creds); err != nil {
		return nil, fmt.Errorf("%w: credentials of tender %s: %v", models.ErrDataIntegrity, tender.ID, err)
	}

	b.log.Info(fmt.Sprintf("Copy competitive dialogue data, id=%s", tender.ID),
		logger.Journal(models.JournalCopyTenderItems), "tender_id", tender.ID)

	stage2 := &models.Stage2Tender{
		ProcurementMethod: models.SelectiveMethod,
		Status:            models.DraftTender,
		DialogueID:        tender.ID,
		TenderID:          tender.TenderID + ".2",
		Copied:            make(map[string]json.RawMessage),
	}
	for _, name := range b.opts.CopyFields {
		if raw, ok := tender.Field(name); ok {
			stage2.Copied[name] = raw
		}
	}
	if strings.HasSuffix(string(tender.ProcurementMethodType), "EU") {
		stage2.ProcurementMethodType = b.opts.EUType
	} else {
		stage2.ProcurementMethodType = b.opts.UAType
	}

	result, err := ProcessQualifications(tender)
	if err != nil {
		return nil, err
	}
	stage2.ShortlistedFirms = result.Firms
	stage2.Lots = result.Lots.Values()
	stage2.Items = result.Items

	if tender.HasFeatures() {
		stage2.Features = ProcessFeatures(tender.Features, stage2.Items, result.Lots)
	}

	stage2.Owner = creds.Owner
	stage2.DialogueToken = creds.TenderToken
	return stage2, nil
}

// QualificationResult - итог разбора квалификаций диалога.
type QualificationResult struct {
	Lots  *LotSet                  // допущенные лоты по исходному id, в порядке появления
	Items []models.Item            // номенклатура второго этапа
	Firms []models.ShortlistedFirm // допущенные участники, в порядке появления
}

// ProcessQualifications отбирает участников, лоты и номенклатуру по активным квалификациям.
func ProcessQualifications(tender *models.Tender) (*QualificationResult, error) {
	lots := NewLotSet()
	shortlist := NewShortlistBuilder()
	var lotItems, fullItems []models.Item

	for _, q := range tender.Qualifications {
		if q.Status != models.ActiveStatus {
			continue
		}
		bid, err := findBid(tender.Bids, q.BidID)
		if err != nil {
			return nil, err
		}

		if q.LotID == "" {
			fullItems = append([]models.Item{}, tender.Items...)
			for _, t := range bid.Tenderers {
				t := t
				shortlist.Upsert(t.Identifier.ID, func(existing *models.ShortlistedFirm) models.ShortlistedFirm {
					if existing != nil {
						return *existing
					}
					return models.ShortlistedFirm{Name: t.Name, Identifier: t.Identifier, Lots: []models.LotRef{}}
				})
			}
			continue
		}

		if !lots.Has(q.LotID) {
			lot, items, err := prepareLot(tender, q.LotID)
			if err != nil {
				return nil, err
			}
			if lot == nil {
				continue
			}
			lots.Add(*lot)
			lotItems = append(lotItems, items...)
		}

		ref := models.LotRef{ID: q.LotID}
		for _, t := range bid.Tenderers {
			t := t
			shortlist.Upsert(t.Identifier.ID, func(existing *models.ShortlistedFirm) models.ShortlistedFirm {
				if existing == nil {
					return models.ShortlistedFirm{Name: t.Name, Identifier: t.Identifier, Lots: []models.LotRef{ref}}
				}
				firm := *existing
				firm.Lots = append(firm.Lots, ref)
				return firm
			})
		}
	}

	result := &QualificationResult{Lots: lots, Firms: shortlist.Firms(), Items: fullItems}
	if len(lotItems) > 0 {
		result.Items = lotItems
	}
	return result, nil
}

// findBid ищет предложение по id.
func findBid(bids []models.Bid, bidID string) (*models.Bid, error) {
	for i := range bids {
		if bids[i].ID == bidID {
			return &bids[i], nil
		}
	}
	return nil, fmt.Errorf("%w: qualification refers to unknown bid %q", models.ErrDataIntegrity, bidID)
}

// prepareLot возвращает лот и его номенклатуру. Неактивный лот дает nil без ошибки.
func prepareLot(tender *models.Tender, lotID string) (*models.Lot, []models.Item, error) {
	var lot *models.Lot
	for i := range tender.Lots {
		if tender.Lots[i].ID == lotID {
			lot = &tender.Lots[i]
			break
		}
	}
	if lot == nil {
		return nil, nil, fmt.Errorf("%w: qualification refers to unknown lot %q", models.ErrDataIntegrity, lotID)
	}
	if lot.Status != models.ActiveStatus {
		return nil, nil, nil
	}

	var items []models.Item
	for _, item := range tender.Items {
		if item.RelatedLot == nil {
			return nil, nil, fmt.Errorf("%w: item %q should contain 'relatedLot' field", models.ErrDataIntegrity, item.ID)
		}
		if *item.RelatedLot == lotID {
			items = append(items, item)
		}
	}
	return lot, items, nil
}

// ProcessFeatures оставляет критерии участников всегда, критерии номенклатуры
// и лотов - только для оставшихся во втором этапе позиций и лотов.
func ProcessFeatures(features []models.Feature, items []models.Item, lots *LotSet) []models.Feature {
	itemIDs := make(map[string]struct{}, len(items))
	for _, item := range items {
		itemIDs[item.ID] = struct{}{}
	}

	out := make([]models.Feature, 0, len(features))
	for _, f := range features {
		switch f.FeatureOf {
		case models.FeatureOfTenderer:
			out = append(out, f)
		case models.FeatureOfItem:
			if _, ok := itemIDs[f.RelatedItem]; ok {
				out = append(out, f)
			}
		case models.FeatureOfLot:
			if lots.Has(f.RelatedItem) {
				out = append(out, f)
			}
		}
	}
	return out
}

package models

import (
	"encoding/json"
	"errors"
)

// ErrDataIntegrity - в документе диалога нет данных, без которых второй этап не построить.
var ErrDataIntegrity = errors.New("data integrity error")

// LotRef - ссылка на лот в списке допущенных участников.
type LotRef struct {
	ID string `json:"id"`
}

// ShortlistedFirm - участник, допущенный ко второму этапу.
type ShortlistedFirm struct {
	Name       string     `json:"name"`
	Identifier Identifier `json:"identifier"`
	Lots       []LotRef   `json:"lots"`
}

// Stage2Tender представляет новый тендер второго этапа.
type Stage2Tender struct {
	ProcurementMethod     string                `json:"procurementMethod"`
	Status                TenderStatus          `json:"status"`
	DialogueID            string                `json:"dialogueID"`
	TenderID              string                `json:"tenderID"`
	ProcurementMethodType ProcurementMethodType `json:"procurementMethodType"`
	ShortlistedFirms      []ShortlistedFirm     `json:"shortlistedFirms"`
	Lots                  []Lot                 `json:"lots"`
	Items                 []Item                `json:"items,omitempty"`
	Features              []Feature             `json:"features,omitempty"`
	Owner                 string                `json:"owner"`
	DialogueToken         string                `json:"dialogue_token"`

	// Copied - поля, скопированные из диалога без изменений.
	Copied map[string]json.RawMessage `json:"-"`
}

// MarshalJSON добавляет скопированные поля к основным полям документа.
// Пустые, но заданные items и features передаются как [], незаданные опускаются.
func (s Stage2Tender) MarshalJSON() ([]byte, error) {
	type alias Stage2Tender
	base, err := json.Marshal(alias(s))
	if err != nil {
		return nil, err
	}
	emptyItems := s.Items != nil && len(s.Items) == 0
	emptyFeatures := s.Features != nil && len(s.Features) == 0
	if len(s.Copied) == 0 && !emptyItems && !emptyFeatures {
		return base, nil
	}
	doc := make(map[string]json.RawMessage, len(s.Copied)+12)
	for k, v := range s.Copied {
		doc[k] = v
	}
	var own map[string]json.RawMessage
	if err := json.Unmarshal(base, &own); err != nil {
		return nil, err
	}
	for k, v := range own {
		doc[k] = v
	}
	if emptyItems {
		doc["items"] = json.RawMessage("[]")
	}
	if emptyFeatures {
		doc["features"] = json.RawMessage("[]")
	}
	return json.Marshal(doc)
}

// Dialog - связка диалога с тендером второго этапа на время одной синхронизации.
type Dialog struct {
	ID             string `json:"id"`
	Stage2TenderID string `json:"stage2TenderID"`
}

package models

import (
	"encoding/json"
	"fmt"
)

type (
	TenderStatus          string // Статус тендера в реестре
	ProcurementMethodType string // Тип процедуры закупки
)

const (
	CompetitiveDialogueUA ProcurementMethodType = "competitiveDialogueUA"
	CompetitiveDialogueEU ProcurementMethodType = "competitiveDialogueEU"

	WaitingStage2Tender TenderStatus = "active.stage2.waiting" // Диалог ждёт создания второго этапа
	DraftTender         TenderStatus = "draft"                 // Черновик
	DraftStage2Tender   TenderStatus = "draft.stage2"          // Черновик второго этапа
	CompleteTender      TenderStatus = "complete"              // Диалог завершён

	ActiveStatus = "active" // Статус активной квалификации и активного лота

	FeatureOfTenderer = "tenderer"
	FeatureOfItem     = "item"
	FeatureOfLot      = "lot"

	SelectiveMethod = "selective"
)

// TenderSummary - краткое описание тендера из ленты изменений.
type TenderSummary struct {
	ID                    string                `json:"id" validate:"required"`
	Status                TenderStatus          `json:"status"`
	ProcurementMethodType ProcurementMethodType `json:"procurementMethodType"`
	DateModified          string                `json:"dateModified,omitempty"`
}

// Tender представляет тендер первого этапа (конкурентный диалог).
type Tender struct {
	ID                    string                `json:"id"`
	TenderID              string                `json:"tenderID"`
	ProcurementMethodType ProcurementMethodType `json:"procurementMethodType"`
	Status                TenderStatus          `json:"status"`
	Stage2TenderID        string                `json:"stage2TenderID,omitempty"`
	Lots                  []Lot                 `json:"lots,omitempty"`
	Items                 []Item                `json:"items,omitempty"`
	Bids                  []Bid                 `json:"bids,omitempty"`
	Qualifications        []Qualification       `json:"qualifications,omitempty"`
	Features              []Feature             `json:"features,omitempty"`

	// fields хранит все поля документа верхнего уровня для копирования.
	fields map[string]json.RawMessage
}

// UnmarshalJSON разбирает документ и сохраняет сырые поля верхнего уровня.
func (t *Tender) UnmarshalJSON(data []byte) error {
	type alias Tender
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*t = Tender(a)
	t.fields = fields
	return nil
}

// Field возвращает сырое значение поля верхнего уровня.
func (t *Tender) Field(name string) (json.RawMessage, bool) {
	v, ok := t.fields[name]
	return v, ok
}

// SetField задаёт сырое значение поля верхнего уровня.
func (t *Tender) SetField(name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal field %s: %w", name, err)
	}
	if t.fields == nil {
		t.fields = make(map[string]json.RawMessage)
	}
	t.fields[name] = raw
	return nil
}

// HasFeatures сообщает, было ли поле features в исходном документе.
func (t *Tender) HasFeatures() bool {
	if t.Features != nil {
		return true
	}
	_, ok := t.fields["features"]
	return ok
}

// Lot представляет лот тендера.
type Lot struct {
	ID     string `json:"id"`
	Status string `json:"status"`

	raw json.RawMessage
}

func (l *Lot) UnmarshalJSON(data []byte) error {
	type alias Lot
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*l = Lot(a)
	l.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (l Lot) MarshalJSON() ([]byte, error) {
	if l.raw != nil {
		return l.raw, nil
	}
	type alias Lot
	return json.Marshal(alias(l))
}

// Item представляет номенклатуру тендера.
type Item struct {
	ID         string  `json:"id"`
	RelatedLot *string `json:"relatedLot,omitempty"`

	raw json.RawMessage
}

func (i *Item) UnmarshalJSON(data []byte) error {
	type alias Item
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*i = Item(a)
	i.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (i Item) MarshalJSON() ([]byte, error) {
	if i.raw != nil {
		return i.raw, nil
	}
	type alias Item
	return json.Marshal(alias(i))
}

// Identifier - идентификатор участника (ЕДРПОУ и т.п.).
type Identifier struct {
	ID string `json:"id"`

	raw json.RawMessage
}

func (i *Identifier) UnmarshalJSON(data []byte) error {
	type alias Identifier
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*i = Identifier(a)
	i.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (i Identifier) MarshalJSON() ([]byte, error) {
	if i.raw != nil {
		return i.raw, nil
	}
	type alias Identifier
	return json.Marshal(alias(i))
}

// Tenderer - участник, подавший предложение.
type Tenderer struct {
	Identifier Identifier `json:"identifier"`
	Name       string     `json:"name"`
}

// Bid представляет предложение участника.
type Bid struct {
	ID        string     `json:"id"`
	Tenderers []Tenderer `json:"tenderers"`
}

// Qualification - решение о допуске предложения (по лоту или по тендеру целиком).
type Qualification struct {
	Status string `json:"status"`
	BidID  string `json:"bidID"`
	LotID  string `json:"lotID,omitempty"`
}

// Feature - неценовой критерий.
type Feature struct {
	FeatureOf   string `json:"featureOf"`
	RelatedItem string `json:"relatedItem,omitempty"`

	raw json.RawMessage
}

func (f *Feature) UnmarshalJSON(data []byte) error {
	type alias Feature
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*f = Feature(a)
	f.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (f Feature) MarshalJSON() ([]byte, error) {
	if f.raw != nil {
		return f.raw, nil
	}
	type alias Feature
	return json.Marshal(alias(f))
}

// Credentials - данные владельца тендера, выданные реестром.
type Credentials struct {
	Owner       string `json:"owner" validate:"required"`
	TenderToken string `json:"tender_token" validate:"required"`
}

// Summary возвращает краткое описание тендера в том виде, в каком его отдает лента.
func (t *Tender) Summary() TenderSummary {
	summary := TenderSummary{ID: t.ID, Status: t.Status, ProcurementMethodType: t.ProcurementMethodType}
	if raw, ok := t.Field("dateModified"); ok {
		_ = json.Unmarshal(raw, &summary.DateModified)
	}
	return summary
}

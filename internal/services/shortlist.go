package services

import "github.com/senyabanana/dialogue-bridge/internal/models"

// ShortlistBuilder накапливает допущенных участников по идентификатору фирмы,
// сохраняя порядок первого появления.
type ShortlistBuilder struct {
	order []string
	firms map[string]models.ShortlistedFirm
}

// NewShortlistBuilder создаёт пустой ShortlistBuilder.
func NewShortlistBuilder() *ShortlistBuilder {
	return &ShortlistBuilder{firms: make(map[string]models.ShortlistedFirm)}
}

// Upsert передает merge текущую запись фирмы (nil, если фирма еще не встречалась)
// и сохраняет результат. Новая фирма занимает место в конце списка.
func (b *ShortlistBuilder) Upsert(key string, merge func(existing *models.ShortlistedFirm) models.ShortlistedFirm) {
	existing, ok := b.firms[key]
	if !ok {
		b.firms[key] = merge(nil)
		b.order = append(b.order, key)
		return
	}
	b.firms[key] = merge(&existing)
}

// Len возвращает число фирм.
func (b *ShortlistBuilder) Len() int {
	return len(b.order)
}

// Firms возвращает фирмы в порядке первого появления.
func (b *ShortlistBuilder) Firms() []models.ShortlistedFirm {
	out := make([]models.ShortlistedFirm, 0, len(b.order))
	for _, key := range b.order {
		firm := b.firms[key]
		firm.Lots = append(make([]models.LotRef, 0, len(firm.Lots)), firm.Lots...)
		out = append(out, firm)
	}
	return out
}

// LotSet - упорядоченное множество лотов по исходному id.
type LotSet struct {
	order []string
	lots  map[string]models.Lot
}

// NewLotSet создаёт пустой LotSet.
func NewLotSet() *LotSet {
	return &LotSet{lots: make(map[string]models.Lot)}
}

// Add добавляет лот, если его еще нет.
func (s *LotSet) Add(lot models.Lot) {
	if _, ok := s.lots[lot.ID]; ok {
		return
	}
	s.lots[lot.ID] = lot
	s.order = append(s.order, lot.ID)
}

// Has сообщает, есть ли лот с таким id.
func (s *LotSet) Has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.lots[id]
	return ok
}

// Values возвращает лоты в порядке добавления.
func (s *LotSet) Values() []models.Lot {
	out := make([]models.Lot, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.lots[id])
	}
	return out
}

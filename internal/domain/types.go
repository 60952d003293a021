package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PhotoEntry struct {
	ID        uuid.UUID `json:"id"`
	ImageRef  string    `json:"imageFilename"`
	Caption   string    `json:"caption"`
	CreatedAt time.Time `json:"dateCreated"`
	// ItemListData is the entry's item list serialized as a nested document.
	// It is saved and loaded together with the entry, never on its own.
	ItemListData []byte `json:"itemListData,omitempty"`
}

// HasItemList reports whether an item list sub-document is attached.
func (e PhotoEntry) HasItemList() bool {
	return len(e.ItemListData) > 0
}

// Clone returns a copy that shares no memory with e.
func (e PhotoEntry) Clone() PhotoEntry {
	if e.ItemListData != nil {
		e.ItemListData = append([]byte(nil), e.ItemListData...)
	}
	return e
}

type LineItem struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name" validate:"required"`
	Price decimal.Decimal `json:"price" validate:"gte=0"`
}

package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewLineItem builds a validated line item with a fresh id. Price is rounded
// to cents.
func NewLineItem(name string, price decimal.Decimal) (LineItem, error) {
	item := LineItem{
		ID:    uuid.New(),
		Name:  strings.TrimSpace(name),
		Price: price.Round(2),
	}
	if err := ValidateItem(item); err != nil {
		return LineItem{}, err
	}
	return item, nil
}

// ItemList is an ordered list of line items. The zero value is empty and
// ready to use.
type ItemList struct {
	items []LineItem
}

func NewItemList(items []LineItem) *ItemList {
	return &ItemList{items: append([]LineItem(nil), items...)}
}

// Items returns a copy of the items in display order.
func (l *ItemList) Items() []LineItem {
	return append([]LineItem{}, l.items...)
}

func (l *ItemList) Len() int { return len(l.items) }

func (l *ItemList) Add(name string, price decimal.Decimal) (LineItem, error) {
	item, err := NewLineItem(name, price)
	if err != nil {
		return LineItem{}, err
	}
	l.items = append(l.items, item)
	return item, nil
}

// Update replaces the item with the same id at its current position.
func (l *ItemList) Update(item LineItem) error {
	item.Name = strings.TrimSpace(item.Name)
	item.Price = item.Price.Round(2)
	if err := ValidateItem(item); err != nil {
		return err
	}
	for i := range l.items {
		if l.items[i].ID == item.ID {
			l.items[i] = item
			return nil
		}
	}
	return fmt.Errorf("item %s: %w", item.ID, ErrNotFound)
}

// Delete removes the items at the given positions, all interpreted against the
// list as it was before the call.
func (l *ItemList) Delete(indices []int) error {
	kept, err := RemoveIndices(l.items, indices)
	if err != nil {
		return err
	}
	l.items = kept
	return nil
}

func (l *ItemList) Clear() { l.items = nil }

// Total is the exact sum of all item prices.
func (l *ItemList) Total() decimal.Decimal {
	return TotalPrice(l.items)
}

// TotalPrice sums item prices without intermediate rounding.
func TotalPrice(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price)
	}
	return total
}

// ParseLabels splits a comma-delimited label string, trimming each token and
// dropping empty ones.
func ParseLabels(raw string) []string {
	parts := strings.Split(raw, ",")
	labels := make([]string, 0, len(parts))
	for _, part := range parts {
		label := strings.TrimSpace(part)
		if label == "" {
			continue
		}
		labels = append(labels, label)
	}
	return labels
}

// ItemsFromLabels turns a comma-delimited label string into zero-priced items.
func ItemsFromLabels(raw string) []LineItem {
	labels := ParseLabels(raw)
	items := make([]LineItem, 0, len(labels))
	for _, label := range labels {
		items = append(items, LineItem{ID: uuid.New(), Name: label, Price: decimal.Zero})
	}
	return items
}

// RemoveIndices returns s without the elements at indices. Indices refer to
// positions in s before any removal; duplicates are ignored. An index outside
// s rejects the whole batch and s is returned unchanged.
func RemoveIndices[T any](s []T, indices []int) ([]T, error) {
	drop := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(s) {
			return s, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, idx, len(s))
		}
		drop[idx] = true
	}
	kept := make([]T, 0, len(s)-len(drop))
	for i, v := range s {
		if !drop[i] {
			kept = append(kept, v)
		}
	}
	return kept, nil
}

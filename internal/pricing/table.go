// Package pricing maps a closed set of tier keys to fixed amounts. Each form
// owns its own Table; there is no global price list.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownTier   = errors.New("unknown pricing tier")
	ErrEmptyTable    = errors.New("pricing table has no tiers")
	ErrDuplicateTier = errors.New("duplicate pricing tier")
	ErrInvalidAmount = errors.New("pricing amount must be positive")
)

// Entry binds one tier key to its amount in major currency units.
type Entry[K comparable] struct {
	Key    K
	Label  string
	Amount decimal.Decimal
}

// Table is an immutable tier -> amount mapping. Lookups are pure.
type Table[K comparable] struct {
	currency string
	entries  []Entry[K]
	index    map[K]int
}

// NewTable validates the entries and freezes them in declaration order.
func NewTable[K comparable](currency string, entries ...Entry[K]) (*Table[K], error) {
	if len(entries) == 0 {
		return nil, ErrEmptyTable
	}
	t := &Table[K]{
		currency: currency,
		entries:  make([]Entry[K], 0, len(entries)),
		index:    make(map[K]int, len(entries)),
	}
	for _, e := range entries {
		if _, dup := t.index[e.Key]; dup {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateTier, e.Key)
		}
		if !e.Amount.IsPositive() {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, e.Key)
		}
		t.index[e.Key] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t, nil
}

// MustTable is NewTable for package-level literals.
func MustTable[K comparable](currency string, entries ...Entry[K]) *Table[K] {
	t, err := NewTable(currency, entries...)
	if err != nil {
		panic(err)
	}
	return t
}

// Currency returns the ISO currency code of every amount in the table.
func (t *Table[K]) Currency() string {
	return t.currency
}

// Amount returns the fixed price for a tier.
func (t *Table[K]) Amount(key K) (decimal.Decimal, error) {
	i, ok := t.index[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnknownTier, key)
	}
	return t.entries[i].Amount, nil
}

// MinorUnits returns the amount in pence/cents as the gateway expects it.
func (t *Table[K]) MinorUnits(key K) (int64, error) {
	amount, err := t.Amount(key)
	if err != nil {
		return 0, err
	}
	return amount.Shift(2).Round(0).IntPart(), nil
}

// Has reports whether key is one of the table's tiers.
func (t *Table[K]) Has(key K) bool {
	_, ok := t.index[key]
	return ok
}

// Entries returns a copy of the tiers in declaration order.
func (t *Table[K]) Entries() []Entry[K] {
	out := make([]Entry[K], len(t.entries))
	copy(out, t.entries)
	return out
}

// WithOverrides returns a new table where the given tiers carry new amounts.
// Overrides for tiers that do not exist are rejected so a typo in deployment
// config cannot silently leave a price unchanged.
func (t *Table[K]) WithOverrides(overrides map[K]decimal.Decimal) (*Table[K], error) {
	entries := t.Entries()
	for key, amount := range overrides {
		i, ok := t.index[key]
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnknownTier, key)
		}
		entries[i].Amount = amount
	}
	return NewTable(t.currency, entries...)
}

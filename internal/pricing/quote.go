package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Quote is a priced selection: the tier that applied, how many units it
// covers and what it costs.
type Quote struct {
	Tier       string          `json:"tier"`
	Quantity   int             `json:"quantity"`
	Amount     decimal.Decimal `json:"amount"`
	MinorUnits int64           `json:"minor_units"`
	Currency   string          `json:"currency"`
}

// Quote prices a tier. Quantity is carried for downstream metadata only; the
// amount is fixed per tier.
func (t *Table[K]) Quote(key K, quantity int) (Quote, error) {
	amount, err := t.Amount(key)
	if err != nil {
		return Quote{}, err
	}
	if quantity < 1 {
		quantity = 1
	}
	return Quote{
		Tier:       fmt.Sprint(key),
		Quantity:   quantity,
		Amount:     amount,
		MinorUnits: amount.Shift(2).Round(0).IntPart(),
		Currency:   t.currency,
	}, nil
}

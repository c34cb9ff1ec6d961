package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func peopleTable(t *testing.T) *Table[string] {
	t.Helper()
	table, err := NewTable("gbp",
		Entry[string]{Key: "1", Amount: decimal.NewFromInt(40)},
		Entry[string]{Key: "2", Amount: decimal.NewFromInt(75)},
		Entry[string]{Key: "3+", Amount: decimal.NewFromInt(100)},
	)
	require.NoError(t, err)
	return table
}

func TestAmountIsPure(t *testing.T) {
	table := peopleTable(t)
	for _, key := range []string{"1", "2", "3+"} {
		first, err := table.Amount(key)
		require.NoError(t, err)
		_, _ = table.Amount("2")
		second, err := table.Amount(key)
		require.NoError(t, err)
		assert.True(t, first.Equal(second), "tier %s changed between calls", key)
	}
}

func TestMinorUnits(t *testing.T) {
	table := MustTable("gbp",
		Entry[int]{Key: 1, Amount: decimal.RequireFromString("25.50")},
	)
	pence, err := table.MinorUnits(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2550), pence)
}

func TestUnknownTier(t *testing.T) {
	_, err := peopleTable(t).Amount("7")
	assert.True(t, errors.Is(err, ErrUnknownTier))
}

func TestNewTableRejectsBadEntries(t *testing.T) {
	_, err := NewTable[string]("gbp")
	assert.ErrorIs(t, err, ErrEmptyTable)

	_, err = NewTable("gbp",
		Entry[string]{Key: "1", Amount: decimal.NewFromInt(1)},
		Entry[string]{Key: "1", Amount: decimal.NewFromInt(2)},
	)
	assert.ErrorIs(t, err, ErrDuplicateTier)

	_, err = NewTable("gbp", Entry[string]{Key: "1", Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestWithOverrides(t *testing.T) {
	base := peopleTable(t)
	overridden, err := base.WithOverrides(map[string]decimal.Decimal{"1": decimal.NewFromInt(45)})
	require.NoError(t, err)

	amount, _ := overridden.Amount("1")
	assert.True(t, amount.Equal(decimal.NewFromInt(45)))
	original, _ := base.Amount("1")
	assert.True(t, original.Equal(decimal.NewFromInt(40)), "base table must not change")

	_, err = base.WithOverrides(map[string]decimal.Decimal{"9": decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestBand(t *testing.T) {
	assert.Equal(t, "1", Band(0, 3, true))
	assert.Equal(t, "2", Band(2, 3, true))
	assert.Equal(t, "3+", Band(8, 3, true))
	assert.Equal(t, "4", Band(9, 4, false))
}

func TestQuote(t *testing.T) {
	table := peopleTable(t)

	q, err := table.Quote("1", 1)
	require.NoError(t, err)
	assert.Equal(t, "1", q.Tier)
	assert.Equal(t, 1, q.Quantity)
	assert.Equal(t, int64(4000), q.MinorUnits)
	assert.Equal(t, "gbp", q.Currency)

	q, err = table.Quote("3+", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, q.Quantity)

	_, err = table.Quote("9", 9)
	assert.True(t, errors.Is(err, ErrUnknownTier))
}

package ledger

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cli2468/Vision-sub000/internal/money"
)

const v1Record = `{
  "version": 1,
  "lots": [
    {"id": "sold", "name": "Switch", "cost": 20000, "quantity": 2,
     "dateAdded": "2025-06-01T09:00:00Z", "purchaseDate": "2025-05-30",
     "sale": {"id": "s1", "price": 30000, "platform": "ebay", "shippingCost": 1200,
              "dateSold": "2025-06-10T18:00:00Z"}},
    {"id": "unsold", "name": "Cards", "cost": 999, "quantity": 3,
     "dateAdded": "2025-06-02T09:00:00Z"},
    {"name": "Nameless id", "cost": 100, "quantity": 0, "dateAdded": "garbage"}
  ]
}`

func TestMigrateV1ToV2(t *testing.T) {
	lots, migrated, err := decodeRecord([]byte(v1Record), money.Default(), time.UTC)
	require.NoError(t, err)
	assert.True(t, migrated)
	require.Len(t, lots, 3)

	sold := lots[0]
	assert.Equal(t, int64(20000), sold.TotalCost)
	assert.Equal(t, int64(10000), sold.UnitCost)
	assert.Equal(t, 0, sold.Remaining)
	require.Len(t, sold.Sales, 1)
	sale := sold.Sales[0]
	assert.Equal(t, "s1", sale.ID)
	assert.Equal(t, 2, sale.UnitsSold)
	assert.Equal(t, int64(15000), sale.PricePerUnit)
	assert.Equal(t, int64(30000), sale.TotalPrice)
	assert.Equal(t, int64(4050), sale.Fees)
	assert.Equal(t, int64(30000-20000-4050-1200), sale.Profit)
	assert.True(t, sold.Balanced())

	unsold := lots[1]
	assert.Equal(t, 3, unsold.Remaining)
	assert.Equal(t, int64(333), unsold.UnitCost)
	assert.Empty(t, unsold.Sales)
	assert.Equal(t, unsold.DateAdded, unsold.PurchaseDate)

	broken := lots[2]
	assert.NotEmpty(t, broken.ID)
	assert.Equal(t, 1, broken.Quantity)
	assert.True(t, broken.DateAdded.IsZero())
}

func TestMigrateIsIdempotent(t *testing.T) {
	once, err := Migrate([]byte(v1Record), money.Default(), time.UTC)
	require.NoError(t, err)

	// Lots without an id get a fresh one on the first pass only.
	twice, err := Migrate(once, money.Default(), time.UTC)
	require.NoError(t, err)
	assert.JSONEq(t, string(once), string(twice))

	var rec struct {
		Version int               `json:"version"`
		Lots    []json.RawMessage `json:"lots"`
	}
	require.NoError(t, json.Unmarshal(twice, &rec))
	assert.Equal(t, CurrentVersion, rec.Version)
	assert.Len(t, rec.Lots, 3)

	_, migrated, err := decodeRecord(twice, money.Default(), time.UTC)
	require.NoError(t, err)
	assert.False(t, migrated)
}

func TestDecodeBareArrayAsV1(t *testing.T) {
	lots, migrated, err := decodeRecord([]byte(`[{"id":"a","name":"x","cost":500,"quantity":1}]`), money.Default(), time.UTC)
	require.NoError(t, err)
	assert.True(t, migrated)
	require.Len(t, lots, 1)
	assert.Equal(t, int64(500), lots[0].UnitCost)
}

func TestDecodeRejectsNewerVersion(t *testing.T) {
	_, _, err := decodeRecord([]byte(`{"version":9,"lots":[]}`), money.Default(), time.UTC)
	assert.Error(t, err)
}

func TestDecodeKeepsV2NullSales(t *testing.T) {
	lots, migrated, err := decodeRecord([]byte(`{"version":2,"lots":[{"id":"a","name":"x","unitCost":100,"totalCost":300,"quantity":3,"remaining":1,"sales":null}]}`), money.Default(), time.UTC)
	require.NoError(t, err)
	assert.False(t, migrated)
	require.Len(t, lots, 1)
	assert.Equal(t, 1, lots[0].Remaining)
	assert.NotNil(t, lots[0].Sales)
}

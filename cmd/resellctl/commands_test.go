package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cli2468/Vision-sub000/internal/config"
	"github.com/cli2468/Vision-sub000/internal/domain"
	"github.com/cli2468/Vision-sub000/internal/logging"
	"github.com/cli2468/Vision-sub000/internal/money"
)

func newTestEnv(t *testing.T) (*env, *bytes.Buffer) {
	t.Helper()

	cfg := config.Default()
	cfg.LedgerPath = filepath.Join(t.TempDir(), "ledger.json")
	cfg.Timezone = "UTC"
	out := &bytes.Buffer{}
	return &env{cfg: cfg, out: out, logger: logging.NewSilentLogger()}, out
}

// run parses args for cmd the way the commander would and executes it.
func run(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()

	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(f)
	require.NoError(t, f.Parse(args))
	return cmd.Execute(context.Background(), f)
}

func TestLotsListsLedger(t *testing.T) {
	e, out := newTestEnv(t)
	svc, err := e.open()
	require.NoError(t, err)
	lot, err := svc.AddLot(domain.LotInput{Name: "Pokemon | Booster", Cost: 30, Quantity: 3})
	require.NoError(t, err)
	_, err = svc.RecordSale(lot.ID, domain.SaleInput{PricePerUnit: 20, UnitsSold: 1, Platform: "facebook"})
	require.NoError(t, err)

	require.Equal(t, subcommands.ExitSuccess, run(t, &lotsCmd{env: e}))
	assert.Contains(t, out.String(), "| Pokemon / Booster |")
	assert.Contains(t, out.String(), "| 3 | 2 | $30.00 | +$10.00 |")

	out.Reset()
	_, err = svc.AddLot(domain.LotInput{Name: "Funko", Cost: 8, Quantity: 1})
	require.NoError(t, err)
	require.Equal(t, subcommands.ExitSuccess, run(t, &lotsCmd{env: e}))
	assert.Contains(t, out.String(), "| 1 | 1 | $8.00 | "+money.Placeholder+" |")

	assert.Equal(t, subcommands.ExitFailure, run(t, &lotsCmd{env: e}, "-m", "March"))
}

func TestPrettyReportRenders(t *testing.T) {
	e, out := newTestEnv(t)
	e.pretty = true

	require.Equal(t, subcommands.ExitSuccess, run(t, &statsCmd{env: e}))
	assert.Contains(t, out.String(), "All time")
}

func TestStatsRequiresYearAndMonthTogether(t *testing.T) {
	e, out := newTestEnv(t)

	assert.Equal(t, subcommands.ExitFailure, run(t, &statsCmd{env: e}, "-y", "2026"))
	require.Equal(t, subcommands.ExitSuccess, run(t, &statsCmd{env: e}, "-y", "2026", "-m", "2"))
	assert.Contains(t, out.String(), "# February 2026")
	assert.Contains(t, out.String(), "# All time")
}

func TestExportThenImport(t *testing.T) {
	e, out := newTestEnv(t)
	svc, err := e.open()
	require.NoError(t, err)
	_, err = svc.AddLot(domain.LotInput{Name: "Funko", Cost: 12.5, Quantity: 5})
	require.NoError(t, err)

	workbook := filepath.Join(t.TempDir(), "out.xlsx")
	require.Equal(t, subcommands.ExitSuccess, run(t, &exportCmd{env: e}, "-o", workbook))
	assert.Contains(t, out.String(), "exported 1 lots")

	other, otherOut := newTestEnv(t)
	assert.Equal(t, subcommands.ExitUsageError, run(t, &importCmd{env: other}))
	require.Equal(t, subcommands.ExitSuccess, run(t, &importCmd{env: other}, workbook))
	assert.Contains(t, otherOut.String(), "imported 1 lots")

	svc, err = other.open()
	require.NoError(t, err)
	lots := svc.Lots()
	require.Len(t, lots, 1)
	assert.Equal(t, int64(1250), lots[0].TotalCost)
}

func TestMigrateUpgradesLegacyFile(t *testing.T) {
	e, out := newTestEnv(t)
	legacy := `[{"id":"a","name":"Switch","cost":200,"quantity":2,"dateAdded":"2025-06-01T09:00:00Z"}]`
	require.NoError(t, os.WriteFile(e.cfg.LedgerPath, []byte(legacy), 0o600))

	require.Equal(t, subcommands.ExitSuccess, run(t, &migrateCmd{env: e}))
	assert.Contains(t, out.String(), "schema version 2")

	data, err := os.ReadFile(e.cfg.LedgerPath)
	require.NoError(t, err)
	var record struct {
		Version int          `json:"version"`
		Lots    []domain.Lot `json:"lots"`
	}
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, 2, record.Version)
	require.Len(t, record.Lots, 1)
	assert.Equal(t, 2, record.Lots[0].Remaining)
}

func TestMigrateMissingFile(t *testing.T) {
	e, _ := newTestEnv(t)
	assert.Equal(t, subcommands.ExitFailure, run(t, &migrateCmd{env: e}))
}

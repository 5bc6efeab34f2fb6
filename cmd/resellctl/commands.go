package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"github.com/cli2468/Vision-sub000/internal/config"
	"github.com/cli2468/Vision-sub000/internal/ledger"
	"github.com/cli2468/Vision-sub000/internal/logging"
	"github.com/cli2468/Vision-sub000/internal/money"
	"github.com/cli2468/Vision-sub000/internal/service"
)

// env is what every command shares: settings, output and a way to open the ledger.
type env struct {
	cfg    config.Config
	out    io.Writer
	logger *logging.Logger
	// pretty renders report markdown for the terminal instead of printing it raw.
	pretty bool
}

func (e *env) open() (*service.Service, error) {
	loc, err := e.cfg.Location()
	if err != nil {
		return nil, err
	}
	l := ledger.Open(ledger.NewFileBlob(e.cfg.LedgerPath),
		ledger.WithCalculator(money.NewCalculator(e.cfg.FeeTable())),
		ledger.WithLocation(loc),
		ledger.WithLogger(e.logger),
	)
	return service.New(l, service.WithLogger(e.logger)), nil
}

// emit writes a markdown report.
func (e *env) emit(md string) subcommands.ExitStatus {
	if e.pretty {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err != nil {
			return fail(err)
		}
		if md, err = r.Render(md); err != nil {
			return fail(err)
		}
	}
	fmt.Fprint(e.out, md)
	return subcommands.ExitSuccess
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, err)
	return subcommands.ExitFailure
}

var usd = money.NewFormatter("USD")

type lotsCmd struct {
	*env
	month string
}

func (*lotsCmd) Name() string     { return "lots" }
func (*lotsCmd) Synopsis() string { return "list lots with remaining units and realized profit" }
func (*lotsCmd) Usage() string {
	return `resellctl lots [-m YYYY-MM]

  Prints every lot as a markdown table, newest purchase first. With -m only
  lots purchased in that month are listed.
`
}

func (c *lotsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "m", "", "Only lots purchased in this month (YYYY-MM).")
}

func (c *lotsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, err := c.open()
	if err != nil {
		return fail(err)
	}
	lots := svc.Lots()
	if c.month != "" {
		t, err := time.Parse("2006-01", c.month)
		if err != nil {
			return fail(fmt.Errorf("month must be YYYY-MM: %w", err))
		}
		lots = svc.LotsByMonth(t.Year(), t.Month())
	}

	var b strings.Builder
	fmt.Fprintln(&b, "| Name | Purchased | Qty | Remaining | Cost | Profit |")
	fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|---:|")
	for _, lot := range lots {
		// unsold lots show the placeholder rather than $0.00
		var profit any
		if len(lot.Sales) > 0 {
			profit = lot.RealizedProfit()
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %s | %s |\n",
			strings.ReplaceAll(lot.Name, "|", "/"),
			money.FormatDate(lot.PurchaseDate.Time, svc.Location()),
			lot.Quantity, lot.Remaining,
			usd.Format(lot.TotalCost), usd.FormatValue(profit, true))
	}
	return c.emit(b.String())
}

type statsCmd struct {
	*env
	year  int
	month int
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "show monthly figures and overall totals" }
func (*statsCmd) Usage() string {
	return `resellctl stats [-y year -m month]

  Prints the month's revenue, fees, profit and returns, followed by totals
  across the whole ledger. Defaults to the current month.
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "y", 0, "Year of the report.")
	f.IntVar(&c.month, "m", 0, "Month of the report (1-12).")
}

func (c *statsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if (c.year == 0) != (c.month == 0) {
		return fail(errors.New("-y and -m go together"))
	}
	svc, err := c.open()
	if err != nil {
		return fail(err)
	}
	report, err := svc.MonthlyStats(c.year, time.Month(c.month))
	if err != nil {
		return fail(err)
	}
	var b strings.Builder
	s := report.Stats
	fmt.Fprintf(&b, "# %s %d\n\n", report.Month, report.Year)
	fmt.Fprintf(&b, "- Revenue: %s\n", usd.Format(s.TotalRevenue))
	fmt.Fprintf(&b, "- Cost of goods: %s\n", usd.Format(s.TotalCosts))
	fmt.Fprintf(&b, "- Fees: %s\n", usd.Format(s.TotalFees))
	fmt.Fprintf(&b, "- Profit: %s\n", usd.FormatSigned(s.TotalProfit))
	fmt.Fprintf(&b, "- Units sold: %d in %d sales\n", s.UnitsSold, s.TransactionCount)
	if s.ReturnedCount > 0 {
		fmt.Fprintf(&b, "- Returned: %d sales, %s\n", s.ReturnedCount, usd.Format(s.ReturnedRevenue))
	}

	t := svc.Summary()
	fmt.Fprintf(&b, "\n# All time\n\n")
	fmt.Fprintf(&b, "- Lots: %d, %d units on hand worth %s\n", t.Lots, t.UnitsOnHand, usd.Format(t.InventoryValue))
	fmt.Fprintf(&b, "- Invested: %s\n", usd.Format(t.Invested))
	fmt.Fprintf(&b, "- Profit: %s (ROI %d%%)\n", usd.FormatSigned(t.Profit), t.ROI)
	return c.emit(b.String())
}

type exportCmd struct {
	*env
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write the ledger to an .xlsx workbook" }
func (*exportCmd) Usage() string {
	return `resellctl export -o <file.xlsx>
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "resell-ledger.xlsx", "Workbook to write.")
}

func (c *exportCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, err := c.open()
	if err != nil {
		return fail(err)
	}
	file, err := os.Create(c.output)
	if err != nil {
		return fail(err)
	}
	if err := svc.ExportWorkbook(file); err != nil {
		file.Close()
		return fail(err)
	}
	if err := file.Close(); err != nil {
		return fail(err)
	}
	fmt.Fprintf(c.out, "exported %d lots to %s\n", len(svc.Lots()), c.output)
	return subcommands.ExitSuccess
}

type importCmd struct {
	*env
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "add lots from an .xlsx workbook" }
func (*importCmd) Usage() string {
	return `resellctl import <file.xlsx>

  Reads the first sheet with name, quantity and cost columns. Nothing is
  saved unless every row is valid.
`
}

func (*importCmd) SetFlags(*flag.FlagSet) {}

func (c *importCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	svc, err := c.open()
	if err != nil {
		return fail(err)
	}
	file, err := os.Open(f.Arg(0))
	if err != nil {
		return fail(err)
	}
	defer file.Close()

	saved, err := svc.ImportWorkbook(file)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(c.out, "imported %d lots\n", len(saved))
	return subcommands.ExitSuccess
}

type migrateCmd struct {
	*env
	dryRun bool
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "rewrite the ledger file in the current schema" }
func (*migrateCmd) Usage() string {
	return `resellctl migrate [-n]

  Upgrades older records (dollar amounts, missing sale fields) in place.
  Running it on a current file leaves the content unchanged.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.dryRun, "n", false, "Print the migrated record instead of writing it.")
}

func (c *migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	blob := ledger.NewFileBlob(c.cfg.LedgerPath)
	data, err := blob.Load()
	if err != nil {
		return fail(fmt.Errorf("read %s: %w", blob.Path(), err))
	}
	loc, err := c.cfg.Location()
	if err != nil {
		return fail(err)
	}
	migrated, err := ledger.Migrate(data, money.NewCalculator(c.cfg.FeeTable()), loc)
	if err != nil {
		return fail(err)
	}
	if c.dryRun {
		_, _ = c.out.Write(migrated)
		fmt.Fprintln(c.out)
		return subcommands.ExitSuccess
	}
	if err := blob.Save(migrated); err != nil {
		return fail(err)
	}
	fmt.Fprintf(c.out, "%s is at schema version %d\n", blob.Path(), ledger.CurrentVersion)
	return subcommands.ExitSuccess
}

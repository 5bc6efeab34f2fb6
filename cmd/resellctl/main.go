// Command resellctl works on the local ledger file without the server:
// listing, reports, workbook import and export, and schema migration.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/cli2468/Vision-sub000/internal/config"
	"github.com/cli2468/Vision-sub000/internal/logging"
)

var (
	ledgerPath = flag.String("ledger", "", "Path to the ledger file. Defaults to LEDGER_PATH or the config file value.")
	raw        = flag.Bool("raw", false, "Print reports as plain markdown without terminal styling.")
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	e := &env{out: os.Stdout}
	register(commander, e)

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(subcommands.ExitFailure))
	}
	if *ledgerPath != "" {
		cfg.LedgerPath = *ledgerPath
	}
	e.cfg = cfg
	e.logger = logging.NewLogger("warn")
	e.pretty = !*raw

	os.Exit(int(commander.Execute(context.Background())))
}

func register(c *subcommands.Commander, e *env) {
	c.Register(&lotsCmd{env: e}, "ledger")
	c.Register(&statsCmd{env: e}, "ledger")
	c.Register(&exportCmd{env: e}, "files")
	c.Register(&importCmd{env: e}, "files")
	c.Register(&migrateCmd{env: e}, "files")
}

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/posters/bootstrap"
	"github.com/pithecene-io/posters/cli/render"
	"github.com/pithecene-io/posters/cli/tui"
	"github.com/pithecene-io/posters/config"
	"github.com/pithecene-io/posters/iox"
	"github.com/pithecene-io/posters/types"
)

// historyWarningThreshold is the number of records above which we suggest
// narrowing by --day.
const historyWarningThreshold = 100

// HistoryCommand returns the history command.
// It reads the poster ledger; it never generates or publishes.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List published posters from the ledger",
		Flags: append(ConfiguredFlags(),
			&cli.StringFlag{
				Name:  "day",
				Usage: "Only records from this UTC day (YYYY-MM-DD, or \"today\")",
			},
		),
		Action: historyAction,
	}
}

func historyAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	day, err := parseDay(c.String("day"), time.Now())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	cfg, err := config.Resolve(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	logger, sugar, err := commandLogger(cfg, "history", os.Stderr)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer logger.Sync()

	rec, err := bootstrap.NewLedger(c.Context, cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("open ledger: %v", err), 1)
	}
	if rec == nil {
		return cli.Exit("ledger is disabled (set ledger.backend to fs or s3)", 1)
	}
	defer iox.DiscardErr(rec.Close)

	sugar.Debugf("reading ledger %s (%s %s) day=%q", rec.Name(), cfg.Ledger.Backend, cfg.Ledger.Path, day)
	records, err := rec.List(c.Context, day)
	if err != nil {
		return cli.Exit(fmt.Sprintf("read ledger: %v", err), 1)
	}
	sugar.Debugf("read %d records", len(records))
	if records == nil {
		records = []types.PosterRecord{}
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewHistory, records)
	}

	if len(records) > historyWarningThreshold && day == "" && isStderrTTY() {
		fmt.Fprintf(os.Stderr, "Warning: returning %d records. Consider using --day to reduce output.\n\n", len(records))
	}
	return r.Render(records)
}

// parseDay validates a --day value. "today" resolves against now in UTC,
// the zone ledger days are partitioned in.
func parseDay(s string, now time.Time) (string, error) {
	switch s {
	case "":
		return "", nil
	case "today":
		return now.UTC().Format(types.RecordDayLayout), nil
	}
	if _, err := time.Parse(types.RecordDayLayout, s); err != nil {
		return "", fmt.Errorf("invalid --day %q (want YYYY-MM-DD)", s)
	}
	return s, nil
}

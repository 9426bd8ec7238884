package main

import (
	"errors"
	"flag"
	"io"
)

type options struct {
	configPath   string
	target       string
	daysBack     *int
	from         string
	to           string
	backfill     bool
	ticker       string
	limit        int
	chunkDays    *int
	skipExisting bool
	listTargets  bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)

	daysBack := fs.Int("days-back", 0, "ingest the last N days ending today")
	chunkDays := fs.Int("chunk-days", 0, "split the window into chunks of N days (default: per target)")
	fs.StringVar(&o.configPath, "config", "configs/ingestor.yaml", "path to the YAML config")
	fs.StringVar(&o.target, "target", "", "target name from the config (required)")
	fs.StringVar(&o.from, "from", "", "window start, YYYY-MM-DD")
	fs.StringVar(&o.to, "to", "", "window end, YYYY-MM-DD")
	fs.BoolVar(&o.backfill, "backfill", false, "run as a backfill job")
	fs.StringVar(&o.ticker, "ticker", "", "ingest a single ticker")
	fs.IntVar(&o.limit, "limit", 0, "process at most N tickers (0 = all)")
	fs.BoolVar(&o.skipExisting, "skip-existing", false, "skip tickers whose stored range already covers the window")
	fs.BoolVar(&o.listTargets, "list-targets", false, "print configured targets and exit")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	// 明示指定されたフラグだけをポインタとして渡す
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "days-back":
			o.daysBack = daysBack
		case "chunk-days":
			o.chunkDays = chunkDays
		}
	})

	if o.listTargets {
		return o, nil
	}
	if o.target == "" {
		return o, errors.New("-target is required")
	}
	if o.limit < 0 {
		return o, errors.New("-limit must be >= 0")
	}
	if o.chunkDays != nil && *o.chunkDays < 1 {
		return o, errors.New("-chunk-days must be >= 1")
	}
	return o, nil
}

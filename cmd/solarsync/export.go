package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"solar-sync-backend/config"
	"solar-sync-backend/internal/export"
	"solar-sync-backend/internal/parse"
)

func exportCmd(ctx context.Context, cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	dataType := fs.String("type", export.TypeSites, strings.Join(export.Types, ", "))
	format := fs.String("format", export.FormatCSV, "csv or json")
	siteID := fs.Int64("site", 0, "site id (required for energy, power and telemetry; default all sites otherwise)")
	serial := fs.String("serial", "", "inverter serial number (telemetry)")
	start := fs.String("start", "", "range start, YYYY-MM-DD or ISO 8601 (default: 30 days ago)")
	end := fs.String("end", "", "range end, YYYY-MM-DD or ISO 8601 (default: now)")
	output := fs.String("output", "", "output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := export.Request{Type: *dataType, Format: *format, SiteID: *siteID, Serial: *serial, End: time.Now().UTC()}
	var err error
	if *end != "" {
		if req.End, err = parse.ISO(*end); err != nil {
			return fmt.Errorf("%w: --end: %v", config.ErrInvalid, err)
		}
	}
	req.Start = req.End.AddDate(0, 0, -30)
	if *start != "" {
		if req.Start, err = parse.ISO(*start); err != nil {
			return fmt.Errorf("%w: --start: %v", config.ErrInvalid, err)
		}
	}
	if err := req.Validate(); err != nil {
		return err
	}

	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	n, err := export.Export(ctx, a.store, w, req)
	if err != nil {
		return err
	}
	if *output != "" {
		logger.Printf("exported %d %s rows to %s", n, req.Type, *output)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/okian/ipa27/internal/domain/derive"
	"github.com/okian/ipa27/internal/report"
	"github.com/okian/ipa27/pkg/logger"
	"github.com/spf13/pflag"
)

// Default configuration constants.
const (
	defaultSource  = "http://localhost:9080"
	defaultTimeout = 30 * time.Second
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("ipa27-report", pflag.ContinueOnError)
	var (
		src       = flags.StringP("source", "s", defaultSource, "Service base URL or path of a snapshot document")
		format    = flags.StringP("format", "f", report.FormatTable, "Output format: table, json or yaml")
		section   = flags.String("section", "", "Print one table section: headline, pillars, domains, indicators, evolution")
		fallback  = flags.Float64("fallback-reference", derive.DefaultFallbackReference, "Reference for indicators without comparator (local documents only)")
		indicator = flags.Bool("indicator-reference", false, "Compare indicators against the reference region's indicator values (local documents only)")
		region    = flags.String("region-label", "Andalucía", "Label of the analysed region")
		reference = flags.String("reference-label", "España", "Label of the reference region")
		timeout   = flags.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose   = flags.BoolP("verbose", "v", false, "Enable debug logging")
	)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	if err := logger.InitWithWriter(os.Stderr); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	} else {
		_ = logger.SetLevelString("warn")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cfg := &report.Config{
		Source:             *src,
		Format:             *format,
		Section:            *section,
		FallbackReference:  *fallback,
		IndicatorReference: *indicator,
		Region:             *region,
		Reference:          *reference,
		Timeout:            *timeout,
	}

	log := logger.Named("report")
	log.Debug(ctx, "loading views", logger.String("source", cfg.Source), logger.Bool("remote", report.Remote(cfg.Source)))

	views, warnings, err := report.Load(ctx, cfg)
	if err != nil {
		log.Error(ctx, "failed to load views", logger.Error(err))
		return 1
	}
	if err := report.Render(os.Stdout, views, warnings, cfg); err != nil {
		log.Error(ctx, "failed to render report", logger.Error(err))
		return 1
	}
	return 0
}

package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/tradeval/internal/leaguesim"
	"github.com/okian/tradeval/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		baseURL    = flag.String("url", leaguesim.DefaultBaseURL, "Base URL of the service")
		seed       = flag.Uint64("seed", 1, "League generator seed")
		teams      = flag.Int("teams", leaguesim.DefaultTeams, "Teams in the generated league")
		roster     = flag.Int("roster", leaguesim.DefaultRosterSize, "Players per team")
		objective  = flag.String("objective", "balanced", "Proposal objective: balanced, win-now, future-lean")
		band       = flag.Float64("band", leaguesim.DefaultBand, "Fairness band proposals must respect")
		topN       = flag.Int("top", leaguesim.DefaultTopN, "Chart rows to fetch")
		workers    = flag.Int("workers", runtime.NumCPU()*2, "Concurrent rank lookups")
		timeout    = flag.Duration("timeout", leaguesim.DefaultTimeout, "HTTP request timeout")
		chartWait  = flag.Duration("chart-wait", leaguesim.DefaultChartWait, "How long to wait for revaluation")
		outputFile = flag.String("output", "", "Write the JSON report to this file")
		logFormat  = flag.String("log-format", logger.FormatText, "Log format: text or json")
		verbose    = flag.Bool("verbose", false, "Log every failed lookup")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*logFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	_, err := leaguesim.Run(ctx, leaguesim.Config{
		BaseURL:    *baseURL,
		Seed:       *seed,
		Teams:      *teams,
		RosterSize: *roster,
		Objective:  *objective,
		Band:       *band,
		TopN:       *topN,
		Workers:    *workers,
		Timeout:    *timeout,
		ChartWait:  *chartWait,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		os.Exit(1)
	}
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mfreitas/navio/internal/app"
	"github.com/mfreitas/navio/internal/common"
	"github.com/mfreitas/navio/internal/interfaces"
	"github.com/mfreitas/navio/internal/services/ledger"
	"github.com/mfreitas/navio/internal/services/nav"
)

const usage = `navio - portfolio valuation and accounting engine

Usage:
  navio <command> [flags]

Commands:
  positions   Consolidated portfolio table with allocations and cost basis
  nav         Daily NAV series with Modified Dietz returns
  heatmap     Monthly returns heatmap with per-year statistics
  chart       Render the NAV series as a PNG chart
  import      Import a trade CSV into a user's ledger
  version     Print version information

Flags (per command):
  -config     Config file path (default: NAVIO_CONFIG, then navio.toml)
  -user       Account to operate on (required except version)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	if command == "version" {
		common.LoadVersionFromFile()
		fmt.Printf("navio %s (build %s, commit %s)\n", common.GetVersion(), common.GetBuild(), common.GetGitCommit())
		return
	}

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	configPath := flags.String("config", "", "config file path")
	user := flags.String("user", "", "account to operate on")
	fx := flags.String("fx", "", "reporting fiat (default from config)")
	hideDust := flags.Bool("hide-dust", false, "exclude dust positions from output")
	force := flags.Bool("force", false, "discard the cached NAV series before recomputing")
	file := flags.String("file", "", "trade CSV to import")
	out := flags.String("out", "", "chart output filename (default <user>-nav.png under the charts directory)")
	flags.Parse(os.Args[2:])

	a, err := app.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	common.PrintBanner(a.Config, a.Logger)

	if *user == "" {
		fmt.Fprintln(os.Stderr, "missing required -user flag")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch command {
	case "positions":
		err = runPositions(ctx, a, *user, *fx, *hideDust)
	case "nav":
		err = runNAV(ctx, a, *user, *force)
	case "heatmap":
		err = runHeatmap(ctx, a, *user, *force)
	case "chart":
		err = runChart(ctx, a, *user, *force, *out)
	case "import":
		err = runImport(ctx, a, *user, *file)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		a.Logger.Error().Err(err).Str("command", command).Msg("Command failed")
		os.Exit(1)
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runPositions(ctx context.Context, a *app.App, user, fx string, hideDust bool) error {
	table, slices, err := a.Positions.Consolidate(ctx, user, fx, hideDust)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"table": table,
		"pie":   slices,
	})
}

func runNAV(ctx context.Context, a *app.App, user string, force bool) error {
	series, err := a.NAV.Build(ctx, user, interfaces.BuildOptions{Force: force})
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"series": series,
		"chart":  nav.BuildChartData(series),
	})
}

func runHeatmap(ctx context.Context, a *app.App, user string, force bool) error {
	series, err := a.NAV.Build(ctx, user, interfaces.BuildOptions{Force: force})
	if err != nil {
		return err
	}
	heatmap, err := a.NAV.Heatmap(series)
	if err != nil {
		return err
	}
	return printJSON(heatmap)
}

func runChart(ctx context.Context, a *app.App, user string, force bool, out string) error {
	series, err := a.NAV.Build(ctx, user, interfaces.BuildOptions{Force: force})
	if err != nil {
		return err
	}
	png, err := nav.RenderNAVChart(series)
	if err != nil {
		return err
	}
	if out == "" {
		out = user + "-nav.png"
	}
	if err := a.Storage.WriteRaw("charts", out, png); err != nil {
		return err
	}
	a.Logger.Info().Str("file", out).Int("bytes", len(png)).Msg("NAV chart written")
	return nil
}

func runImport(ctx context.Context, a *app.App, user, file string) error {
	if file == "" {
		return fmt.Errorf("missing required -file flag")
	}
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	importer := ledger.NewImporter(a.Storage, a.Logger)
	n, err := importer.ImportCSV(ctx, user, f)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d trades for %s\n", n, user)
	return nil
}

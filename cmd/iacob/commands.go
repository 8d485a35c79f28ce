package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/subcommands"

	"github.com/bobmcallan/iacob/internal/agent"
	"github.com/bobmcallan/iacob/internal/app"
	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/models"
)

// openApp initializes the application or reports why it could not.
func openApp(ctx context.Context) (*app.App, bool) {
	a, err := app.NewApp(ctx, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		return nil, false
	}
	return a, true
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// --- run ---

type runCmd struct{}

func (*runCmd) Name() string { return "run" }
func (*runCmd) Synopsis() string { return "run one trading session for the configured market" }
func (*runCmd) Usage() string {
	return `iacob run

  Loads the previous conversation, lets the assistant review the portfolio
  and trade, saves the conversation, sends the report and refreshes the cash
  chart. The market comes from the config or IACOB_MARKET_TYPE.
`
}
func (*runCmd) SetFlags(*flag.FlagSet) {}

func (*runCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signalContext(ctx)
	defer stop()

	a, ok := openApp(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	defer a.Close()

	common.PrintBanner(os.Stderr, a.Config, a.Logger)
	defer common.PrintShutdownBanner(os.Stderr, a.Logger)

	result, err := a.RunOnce(ctx)
	if err != nil {
		a.Logger.Error().Err(err).Msg("Trading session failed")
		return subcommands.ExitFailure
	}

	fmt.Println(result.FinalOutput)
	return subcommands.ExitSuccess
}

// --- serve ---

type serveCmd struct {
	now bool
}

func (*serveCmd) Name() string { return "serve" }
func (*serveCmd) Synopsis() string { return "run trading sessions on the configured cron schedule" }
func (*serveCmd) Usage() string {
	return `iacob serve [-now]

  Runs a trading session on every activation of scheduler.schedule (a
  six-field cron expression with seconds) until SIGINT or SIGTERM.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.now, "now", false, "Run one session immediately before waiting for the schedule.")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signalContext(ctx)
	defer stop()

	a, ok := openApp(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	defer a.Close()

	common.PrintBanner(os.Stderr, a.Config, a.Logger)

	scheduler := app.NewScheduler(a.Logger)
	job := app.NewTradingJob(ctx, a, a.Config.Scheduler.GetRunTimeout())
	if err := scheduler.AddJob(a.Config.Scheduler.Schedule, job); err != nil {
		a.Logger.Error().Err(err).Str("schedule", a.Config.Scheduler.Schedule).Msg("Invalid schedule")
		return subcommands.ExitFailure
	}

	if c.now {
		if err := scheduler.RunNow(job); err != nil {
			a.Logger.Error().Err(err).Msg("Initial trading session failed")
		}
	}

	scheduler.Start()
	a.Logger.Info().Time("next_run", scheduler.Next()).Msg("Waiting for schedule")

	<-ctx.Done()
	a.Logger.Info().Msg("Shutdown signal received")

	scheduler.Stop()
	common.PrintShutdownBanner(os.Stderr, a.Logger)
	return subcommands.ExitSuccess
}

// --- portfolio ---

type portfolioCmd struct {
	json bool
}

func (*portfolioCmd) Name() string { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "print the valued portfolio and net worth" }
func (*portfolioCmd) Usage() string {
	return `iacob portfolio [-json]

  Prices every holding of the configured market and prints the cash balance,
  holdings and net worth summary.
`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "Print the valuation as JSON.")
}

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, ok := openApp(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	defer a.Close()

	valuation, err := a.PortfolioService.CalculatePortfolioValue(ctx, a.Market)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	summary, err := a.PortfolioService.NetWorthSummary(ctx, a.Market)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if c.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{"valuation": valuation, "summary": summary}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	fmt.Print(formatValuation(valuation))
	fmt.Println()
	fmt.Println(agent.FormatNetWorth(summary))
	return subcommands.ExitSuccess
}

func formatValuation(v *models.PortfolioValuation) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s portfolio\n", v.Market.Label()))
	sb.WriteString(fmt.Sprintf("  %-10s %14s %14s %14s\n", "Ticker", "Shares", "Price", "Value"))
	for _, h := range v.Holdings {
		price, value := "n/a", "n/a"
		if h.Priced {
			price = "$" + common.FormatAmount(h.Price)
			value = "$" + common.FormatAmount(h.Value)
		}
		sb.WriteString(fmt.Sprintf("  %-10s %14s %14s %14s\n", h.Ticker, common.FormatShares(h.Shares), price, value))
	}
	sb.WriteString(fmt.Sprintf("  %-10s %14s %14s %14s\n", "Cash", "", "", "$"+common.FormatAmount(v.Cash)))
	sb.WriteString(fmt.Sprintf("  %-10s %14s %14s %14s\n", "Total", "", "", "$"+common.FormatAmount(v.TotalValue)))
	return sb.String()
}

// --- price ---

type priceCmd struct{}

func (*priceCmd) Name() string { return "price" }
func (*priceCmd) Synopsis() string { return "resolve the live price of one or more tickers" }
func (*priceCmd) Usage() string {
	return `iacob price <ticker> [<ticker>...]

  Resolves each ticker through the configured market's price source chain.
`
}
func (*priceCmd) SetFlags(*flag.FlagSet) {}

func (*priceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "price requires at least one ticker")
		return subcommands.ExitUsageError
	}

	a, ok := openApp(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	defer a.Close()

	status := subcommands.ExitSuccess
	for _, ticker := range f.Args() {
		ticker = strings.TrimSpace(ticker)
		price, err := a.PriceResolver.ResolvePrice(ctx, ticker, a.Market)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", ticker, err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Printf("%s\t%s\n", ticker, price.String())
	}
	return status
}

// --- chart ---

type chartCmd struct {
	out string
}

func (*chartCmd) Name() string { return "chart" }
func (*chartCmd) Synopsis() string { return "render the cash balance chart" }
func (*chartCmd) Usage() string {
	return `iacob chart [-o <file.png>]

  Renders the cash balance history of the configured market as a PNG.
`
}

func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.out, "o", "", "Output file (defaults to report.chart_path).")
}

func (c *chartCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, ok := openApp(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	defer a.Close()

	out := c.out
	if out == "" {
		out = a.Config.Report.ChartFile(a.Market)
	}
	if out == "" {
		fmt.Fprintln(os.Stderr, "no output file: pass -o or set report.chart_path")
		return subcommands.ExitUsageError
	}

	if err := a.ReportService.WriteCashChart(ctx, a.Market, out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// --- version ---

type versionCmd struct{}

func (*versionCmd) Name() string { return "version" }
func (*versionCmd) Synopsis() string { return "print version information" }
func (*versionCmd) Usage() string { return "iacob version\n" }
func (*versionCmd) SetFlags(*flag.FlagSet) {}

func (*versionCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	common.LoadVersionFromFile()
	fmt.Println("iacob " + common.GetFullVersion())
	return subcommands.ExitSuccess
}

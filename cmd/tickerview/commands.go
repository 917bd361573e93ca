package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/zappabad/tickerview/internal/logger"
	"github.com/zappabad/tickerview/internal/ticker"
	"github.com/zappabad/tickerview/internal/ticker/client"
	"github.com/zappabad/tickerview/internal/viewer"
	"github.com/zappabad/tickerview/tui"
)

// maxParallelFetches bounds concurrent requests from the fetch command.
const maxParallelFetches = 4

// errFetchFailed reports that at least one symbol could not be fetched.
var errFetchFailed = errors.New("one or more fetches failed")

func runTUI(ctx context.Context, e env) error {
	if len(e.args) > 0 {
		return errUsage
	}

	v := viewer.New(e.client, e.cfg.Viewer)
	defer v.Close()

	logger.L().Info().
		Str("base_url", e.cfg.Client.BaseURL).
		Str("exchange", e.cfg.Viewer.Exchange).
		Str("symbol", e.cfg.Viewer.Symbol).
		Msg("tui starting")

	p := tea.NewProgram(tui.NewModel(ctx, v, e.client), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// runFetch fetches each symbol through its own viewer and prints the
// payloads in argument order.
func runFetch(ctx context.Context, e env) error {
	symbols := e.args
	if len(symbols) == 0 {
		symbols = []string{e.cfg.Viewer.Symbol}
	}

	type result struct {
		query   ticker.Query
		outcome ticker.Outcome
		render  string
	}
	results := make([]result, len(symbols))

	var g errgroup.Group
	g.SetLimit(maxParallelFetches)
	for i, sym := range symbols {
		g.Go(func() error {
			cfg := e.cfg.Viewer
			cfg.Symbol = sym
			v := viewer.New(e.client, cfg)
			defer v.Close()

			o := v.FetchTicker(ctx)
			results[i] = result{query: v.State().Query(), outcome: o, render: v.Render()}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		fmt.Fprintf(e.stdout, "# %s %s\n", r.query.Exchange, r.query.Symbol)
		if !r.outcome.OK() {
			failed++
			fmt.Fprintf(e.stderr, "%s: %v\n", r.query.Key(), r.outcome.Err)
		}
		fmt.Fprintln(e.stdout, r.render)
		if sum := ticker.Summarize(r.outcome.Payload); !sum.Empty() {
			fmt.Fprintf(e.stdout, "# %s\n", sum)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errFetchFailed, failed, len(results))
	}
	return nil
}

// runWatch prints every streamed payload until ctx is done.
func runWatch(ctx context.Context, e env) error {
	if len(e.args) > 1 {
		return errUsage
	}
	cfg := e.cfg.Viewer
	if len(e.args) == 1 {
		cfg.Symbol = e.args[0]
	}
	v := viewer.New(e.client, cfg)
	defer v.Close()

	err := v.Watch(ctx, streamFunc(func(ctx context.Context, q ticker.Query, fn func(ticker.Outcome)) error {
		return e.client.Stream(ctx, q, func(o ticker.Outcome) {
			fn(o)
			if !o.OK() {
				fmt.Fprintf(e.stderr, "%v\n", o.Err)
				return
			}
			fmt.Fprintln(e.stdout, v.Render())
		})
	}))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// streamFunc adapts a function to viewer.Streamer.
type streamFunc func(ctx context.Context, q ticker.Query, fn func(ticker.Outcome)) error

func (f streamFunc) Stream(ctx context.Context, q ticker.Query, fn func(ticker.Outcome)) error {
	return f(ctx, q, fn)
}

func runMarkets(ctx context.Context, e env) error {
	if len(e.args) > 0 {
		return errUsage
	}
	markets, err := e.client.Markets(ctx, e.cfg.Viewer.Exchange)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, strings.Join(markets, "\n"))
	return nil
}

func historyFlags(fs *pflag.FlagSet) {
	fs.Int64("since", 0, "first candle time in unix milliseconds (0 for the exchange default)")
	fs.Int("limit", client.DefaultHistoryLimit, "candles per page (1-1000)")
	fs.Int("page", 1, "page number, starting at 1")
}

// runHistory prints one page of candles for the configured or given symbol.
func runHistory(ctx context.Context, e env) error {
	if len(e.args) > 1 {
		return errUsage
	}
	q := ticker.Query{Exchange: e.cfg.Viewer.Exchange, Symbol: e.cfg.Viewer.Symbol}
	if len(e.args) == 1 {
		q.Symbol = e.args[0]
	}

	req := client.DefaultHistoryRequest()
	var err error
	if req.Since, err = e.flags.GetInt64("since"); err != nil {
		return err
	}
	if req.Limit, err = e.flags.GetInt("limit"); err != nil {
		return err
	}
	if req.Page, err = e.flags.GetInt("page"); err != nil {
		return err
	}

	h, err := e.client.Historical(ctx, q, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(e.stdout, "# %s %s page %d limit %d\n", h.Exchange, h.Symbol, h.Page, h.Limit)
	table := tablewriter.NewWriter(e.stdout)
	table.SetHeader([]string{"time", "open", "high", "low", "close", "volume"})
	table.SetAutoFormatHeaders(false)
	for _, c := range h.Candles {
		volume := "-"
		if c.HasVolume {
			volume = c.Volume.String()
		}
		table.Append([]string{
			formatCandleTime(c.Time),
			c.Open.String(),
			c.High.String(),
			c.Low.String(),
			c.Close.String(),
			volume,
		})
	}
	table.Render()
	return nil
}

func formatCandleTime(ms int64) string {
	if ms <= 0 {
		return strconv.FormatInt(ms, 10)
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func runHealth(ctx context.Context, e env) error {
	if len(e.args) > 0 {
		return errUsage
	}
	if err := e.client.Health(ctx); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, "ok")
	return nil
}

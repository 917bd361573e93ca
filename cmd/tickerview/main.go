package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/zappabad/tickerview/internal/config"
	"github.com/zappabad/tickerview/internal/logger"
	"github.com/zappabad/tickerview/internal/ticker/client"
)

const usage = `usage: tickerview [command] [flags]

commands:
  tui      interactive viewer (default)
  fetch    fetch one or more symbols and print their payloads
  watch    stream live updates for one symbol
  markets  list the symbols an exchange supports
  history  print a page of OHLCV candles for one symbol
  health   check that the backend is up
`

// errUsage is returned for unknown commands and bad flags.
var errUsage = errors.New("usage")

// main is the entry point of tickerview.
//
// Commands:
//   - tui:     Interactive viewer. Logs go to a file so the screen stays clean.
//   - fetch:   Fetches every symbol concurrently; exits non-zero on any failure.
//   - watch:   Prints each streamed payload until interrupted.
//   - markets: Lists an exchange's symbols.
//   - history: Prints one page of candles as a table.
//   - health:  Checks GET /health.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// env carries what every command needs.
type env struct {
	cfg    config.Config
	client *client.Client
	args   []string
	flags  *pflag.FlagSet
	stdout io.Writer
	stderr io.Writer
}

type command func(ctx context.Context, e env) error

var commands = map[string]command{
	"tui":     runTUI,
	"fetch":   runFetch,
	"watch":   runWatch,
	"markets": runMarkets,
	"history": runHistory,
	"health":  runHealth,
}

// commandFlags registers flags that only one command understands.
var commandFlags = map[string]func(fs *pflag.FlagSet){
	"history": historyFlags,
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	name := "tui"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name, args = args[0], args[1:]
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", name, usage)
		return 2
	}

	fs := pflag.NewFlagSet("tickerview "+name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage, "\nflags:\n")
		fs.PrintDefaults()
	}
	config.Flags(fs)
	if extra, ok := commandFlags[name]; ok {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}

	closeLog, err := setupLogging(cfg.Log, name == "tui", stderr)
	if err != nil {
		fmt.Fprintf(stderr, "log: %v\n", err)
		return 1
	}
	defer closeLog()

	e := env{
		cfg:    cfg,
		client: client.New(cfg.Client, nil),
		args:   fs.Args(),
		flags:  fs,
		stdout: stdout,
		stderr: stderr,
	}

	if err := cmd(ctx, e); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(stderr, usage)
			return 2
		}
		logger.L().Error().Err(err).Str("command", name).Msg("command failed")
		fmt.Fprintf(stderr, "tickerview %s: %v\n", name, err)
		return 1
	}
	return 0
}

// setupLogging initializes the global logger. The TUI owns the terminal, so
// it logs to a file unless one is configured explicitly.
func setupLogging(lc config.LogConfig, tui bool, stderr io.Writer) (func(), error) {
	path := lc.File
	if path == "" && tui {
		path = config.DefaultLogFile()
	}
	if path == "" {
		logger.Init(logger.Options{Level: lc.Level, Pretty: lc.Pretty, Out: stderr})
		return func() {}, nil
	}

	f, err := logger.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	logger.Init(logger.Options{Level: lc.Level, Pretty: lc.Pretty, Out: f})
	return func() { _ = f.Close() }, nil
}

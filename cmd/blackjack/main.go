package main

import (
	"strings"

	"github.com/alecthomas/kong"

	"github.com/lox/blackjack/internal/bot"
)

// version is set by ldflags during build
var version = "dev"

// Globals are the flags shared by every command
type Globals struct {
	Config   string `short:"c" default:"blackjack.hcl" help:"Path to HCL configuration file"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	Seed     int64  `help:"Deterministic RNG seed, 0 for random (overrides config)"`
}

type CLI struct {
	Globals

	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Play     PlayCmd          `cmd:"" default:"1" help:"Play at the terminal"`
	Serve    ServeCmd         `cmd:"" help:"Run the WebSocket table server"`
	Simulate SimulateCmd      `cmd:"" help:"Play many rounds with a bot strategy"`
	Stats    StatsCmd         `cmd:"" help:"Show the cumulative ledger"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("blackjack"),
		kong.Description("Single-player blackjack against the house"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version":    version,
			"strategies": strings.Join(bot.Names(), ", "),
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

// nexusrelay relays chat messages to an LLM through a cascade of models or
// a single default provider.
package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/roelfdiedericks/nexusrelay/internal/config"
	. "github.com/roelfdiedericks/nexusrelay/internal/logging"
)

const version = "0.1.0"

// Globals are flags shared by every command
type Globals struct {
	Config    string `help:"Path to TOML config file (default ./nexusrelay.toml if present)." type:"path" short:"c"`
	EnvFile   string `help:"Path to .env file (default ./.env if present)." name:"env-file" type:"path"`
	LogLevel  string `help:"Log level: trace, debug, info, warn, error." name:"log-level"`
	LogFormat string `help:"Log format: text, json, logfmt." name:"log-format"`
}

// CLI is the command tree
type CLI struct {
	Globals

	Serve      ServeCmd      `cmd:"" default:"1" help:"Run the HTTP relay (default)."`
	Ask        AskCmd        `cmd:"" help:"Relay one message and print the outcome."`
	Candidates CandidatesCmd `cmd:"" help:"Print the cascade's models in attempt order."`
	Version    VersionCmd    `cmd:"" help:"Print the version."`
}

// loadConfig reads configuration and initializes logging from it
func (g *Globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{Path: g.Config, EnvFile: g.EnvFile})
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Logging.Format = g.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	Init(cfg.LoggingConfig())
	return cfg, nil
}

func newParser(cli *CLI, stdout io.Writer) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name("nexusrelay"),
		kong.Description("Relay chat messages to an LLM with model cascade and graceful degradation."),
		kong.UsageOnError(),
		kong.BindTo(stdout, (*io.Writer)(nil)),
	)
}

func main() {
	var cli CLI
	parser, err := newParser(&cli, os.Stdout)
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	err = ctx.Run(&cli.Globals)
	if err != nil {
		L_error("nexusrelay: command failed", "command", ctx.Command(), "error", err)
	}
	ctx.FatalIfErrorf(err)
}

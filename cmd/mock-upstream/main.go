// mock-upstream is a fake chat-completions server for exercising the relay's
// cascade and degradation paths locally.
//
// Every knob can be set per request in the query string or as a default on
// the command line:
//
//	?fail=503          answer with that status (or "quota" for an insufficient_quota 429)
//	?fail_model=a,b    fail only requests for these models
//	?delay=250         wait this many milliseconds first
//	?empty=1           answer 200 with no choices
package main

import (
	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"

	. "github.com/roelfdiedericks/nexusrelay/internal/logging"
)

// CLI holds the server flags
type CLI struct {
	Listen    string   `help:"Listen address." default:":8001"`
	Fail      string   `help:"Default failure status (or \"quota\")."`
	FailModel []string `help:"Models that fail; empty fails every model when --fail is set." name:"fail-model"`
	Delay     int      `help:"Default delay in milliseconds."`
	LogLevel  string   `help:"Log level." name:"log-level" default:"info"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("mock-upstream"),
		kong.Description("Fake OpenAI-compatible and Anthropic-compatible upstream."),
	)

	level, err := ParseLevel(cli.LogLevel)
	if err != nil {
		L_fatal("mock-upstream: %v", err)
	}
	Init(&Config{Level: level})
	gin.SetMode(gin.ReleaseMode)

	router := newRouter(knobs{fail: cli.Fail, failModels: cli.FailModel, delayMs: cli.Delay})
	L_info("mock-upstream: listening", "addr", cli.Listen, "fail", cli.Fail, "failModels", cli.FailModel)
	if err := router.Run(cli.Listen); err != nil {
		L_fatal("mock-upstream: server error", "error", err)
	}
}

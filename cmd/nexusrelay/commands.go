package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/roelfdiedericks/nexusrelay/internal/config"
	nexushttp "github.com/roelfdiedericks/nexusrelay/internal/http"
	. "github.com/roelfdiedericks/nexusrelay/internal/logging"
	"github.com/roelfdiedericks/nexusrelay/internal/relay"
)

// ServeCmd runs the HTTP server until SIGINT or SIGTERM
type ServeCmd struct {
	Listen string `help:"Listen address, overrides config (e.g. :3000)."`
	Mock   bool   `help:"Echo messages instead of calling any model."`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if c.Listen != "" {
		cfg.Server.Listen = c.Listen
	}
	if c.Mock {
		cfg.Relay.MockMode = true
	}

	r, err := relay.New(cfg)
	if err != nil {
		return err
	}
	srv, err := nexushttp.NewServer(&cfg.Server, r)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(); err != nil {
		return err
	}
	L_info("nexusrelay: ready", "version", version, "addr", srv.Addr(), "mode", r.Mode())

	<-ctx.Done()
	L_info("nexusrelay: shutting down")
	return srv.Stop()
}

// AskCmd relays one message from the command line
type AskCmd struct {
	Message []string      `arg:"" optional:"" help:"Message to relay (words are joined with spaces)."`
	Mock    bool          `help:"Echo the message instead of calling any model."`
	Timeout time.Duration `help:"Give up after this long (0 waits for the relay)." default:"0s"`
}

// UpstreamFailure is returned by ask when the relay passes an upstream
// error through.
type UpstreamFailure struct {
	StatusCode int
	Payload    []byte
}

func (e *UpstreamFailure) Error() string {
	return fmt.Sprintf("upstream error %d: %s", e.StatusCode, Snippet(e.Payload, 500))
}

func (c *AskCmd) Run(g *Globals, out io.Writer) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if c.Mock {
		cfg.Relay.MockMode = true
	}
	r, err := relay.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	res := r.Handle(ctx, strings.Join(c.Message, " "))
	if res.Kind == relay.KindUpstreamError {
		return &UpstreamFailure{StatusCode: res.HTTPStatus(), Payload: res.Body()}
	}
	_, err = fmt.Fprintln(out, res.Text)
	return err
}

// CandidatesCmd lists the cascade order
type CandidatesCmd struct{}

func (c *CandidatesCmd) Run(g *Globals, out io.Writer) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	return printCandidates(out, cfg)
}

func printCandidates(out io.Writer, cfg *config.Config) error {
	fmt.Fprintf(out, "mode: %s\n", cfg.Mode())
	for i, model := range cfg.Cascade.Candidates() {
		if _, err := fmt.Fprintf(out, "%d. %s\n", i+1, model); err != nil {
			return err
		}
	}
	return nil
}

// VersionCmd prints the version
type VersionCmd struct{}

func (c *VersionCmd) Run(out io.Writer) error {
	_, err := fmt.Fprintf(out, "nexusrelay %s\n", version)
	return err
}

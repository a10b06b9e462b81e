package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Packages
	kong "github.com/alecthomas/kong"
	chunkup "github.com/mutablelogic/go-chunkup"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type Globals struct {
	Endpoint string        `env:"CHUNKUP_ENDPOINT" default:"http://localhost:8080/api/chunkup" help:"Upload service endpoint"`
	Analysis string        `env:"CHUNKUP_ANALYSIS" default:"http://localhost:8000/api" help:"Analysis service endpoint"`
	Timeout  time.Duration `env:"CHUNKUP_TIMEOUT" default:"0" help:"Client request timeout (0 for none)"`
	Debug    bool          `help:"Enable debug output"`
	Trace    bool          `help:"Trace client requests and responses"`

	vars   kong.Vars `kong:"-"` // Variables for kong
	ctx    context.Context
	cancel context.CancelFunc
	logger *logger
}

var _ chunkup.Logger = (*logger)(nil)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func NewApp(app Globals, vars kong.Vars) *Globals {
	// Set the vars
	app.vars = vars

	// Create the logger
	app.logger = newLogger(os.Stderr, app.Debug || app.Trace)

	// Create the context
	// This context is cancelled when the process receives a SIGINT or SIGTERM
	app.ctx, app.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// Return the app
	return &app
}

func (app *Globals) Close() error {
	app.cancel()
	return nil
}

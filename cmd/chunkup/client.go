package main

import (
	"encoding/json"
	"os"

	// Packages
	analysis "github.com/mutablelogic/go-chunkup/pkg/analysis"
	httpclient "github.com/mutablelogic/go-chunkup/pkg/httpclient"
	client "github.com/mutablelogic/go-client"
)

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Client builds an upload service client from the global flags.
func (g *Globals) Client() (*httpclient.Client, error) {
	return httpclient.New(g.Endpoint, g.clientOpts()...)
}

// AnalysisClient builds an analysis service client from the global flags.
func (g *Globals) AnalysisClient() (*analysis.Client, error) {
	return analysis.New(g.Analysis, g.clientOpts()...)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (g *Globals) clientOpts() []client.ClientOpt {
	opts := []client.ClientOpt{}
	if g.Trace {
		opts = append(opts, client.OptTrace(os.Stderr, true))
	} else if g.Debug {
		opts = append(opts, client.OptTrace(os.Stderr, false))
	}
	if g.Timeout > 0 {
		opts = append(opts, client.OptTimeout(g.Timeout))
	}
	return opts
}

func prettyJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Package analysis is a client for the service which analyses completed
// uploads. Analysis runs asynchronously: poll Status until it is terminal,
// then fetch the Report.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	// Packages
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	client "github.com/mutablelogic/go-client"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type Client struct {
	*client.Client
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

var (
	// ErrFailed is returned by Wait when analysis ends in the failed state.
	ErrFailed = errors.New("analysis failed")
)

const (
	DefaultPollInterval = 2 * time.Second
)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates an analysis client for the endpoint, e.g.
// "http://localhost:8000/assessment".
func New(url string, opts ...client.ClientOpt) (*Client, error) {
	c, err := client.New(append(opts, client.OptEndpoint(url))...)
	if err != nil {
		return nil, err
	}
	return &Client{c}, nil
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Status returns the analysis status of an object.
func (c *Client) Status(ctx context.Context, id string) (*schema.AnalysisStatus, error) {
	var response schema.AnalysisStatus
	if err := c.DoWithContext(ctx, nil, &response, client.OptPath("status", id)); err != nil {
		return nil, err
	}
	return &response, nil
}

// Report returns the analysis report of an object.
func (c *Client) Report(ctx context.Context, id string) (*schema.Report, error) {
	var response schema.Report
	if err := c.DoWithContext(ctx, nil, &response, client.OptPath("report", id)); err != nil {
		return nil, err
	}
	return &response, nil
}

// Wait polls the status of an object every interval until analysis finishes,
// calling fn with each status, and then returns the report. It returns
// ErrFailed when analysis fails.
func (c *Client) Wait(ctx context.Context, id string, interval time.Duration, fn func(schema.AnalysisStatus)) (*schema.Report, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := c.Status(ctx, id)
		if err != nil {
			return nil, err
		}
		if fn != nil {
			fn(*status)
		}
		switch status.Status {
		case schema.AnalysisCompleted:
			return c.Report(ctx, id)
		case schema.AnalysisFailed:
			if status.Error != "" {
				return nil, fmt.Errorf("%w: %s", ErrFailed, status.Error)
			}
			return nil, ErrFailed
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	// Packages
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	uploader "github.com/mutablelogic/go-chunkup/pkg/uploader"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type UploadCommands struct {
	Upload   UploadCommand       `cmd:"" group:"UPLOAD" help:"Upload a file in chunks"`
	Sessions ListSessionsCommand `cmd:"" group:"UPLOAD" help:"List upload sessions"`
	Session  GetSessionCommand   `cmd:"" group:"UPLOAD" help:"Get upload session"`
	Cancel   CancelCommand       `cmd:"" group:"UPLOAD" help:"Cancel upload session"`
}

type UploadCommand struct {
	Path     string        `arg:"" type:"existingfile" help:"File to upload"`
	Wait     bool          `name:"wait" short:"w" help:"Wait for analysis of the uploaded file and print the report"`
	Interval time.Duration `name:"interval" help:"Analysis polling interval" default:"2s"`
}

type ListSessionsCommand struct {
	State  string `name:"state" help:"Only list sessions in this state (collecting, completing, completed, cancelled, expired)" default:""`
	Limit  int    `name:"limit" short:"n" help:"Maximum number of sessions to return (default: all)."`
	Offset int    `name:"offset" help:"Number of sessions to skip (for pagination)." default:"0"`
}

type GetSessionCommand struct {
	Id string `arg:"" name:"id" help:"Session identifier"`
}

type CancelCommand struct {
	GetSessionCommand
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (cmd *UploadCommand) Run(ctx *Globals) error {
	c, err := ctx.Client()
	if err != nil {
		return err
	}

	// Use the chunk size of the service
	info, err := c.Info(ctx.ctx)
	if err != nil {
		return err
	}
	u, err := uploader.New(c, uploader.WithLogger(ctx.logger), uploader.WithChunkSize(info.ChunkSize))
	if err != nil {
		return err
	}

	// Upload, reporting progress on stderr
	obj, err := u.UploadFile(ctx.ctx, cmd.Path, func(percent int) {
		fmt.Fprintf(os.Stderr, "\rUploading %s: %3d%%", cmd.Path, percent)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	if !cmd.Wait {
		return prettyJSON(obj)
	}

	// Wait for analysis
	a, err := ctx.AnalysisClient()
	if err != nil {
		return err
	}
	report, err := a.Wait(ctx.ctx, obj.Id, cmd.Interval, func(status schema.AnalysisStatus) {
		fmt.Fprintf(os.Stderr, "\rAnalysing %s: %-10s %3d%% %s", obj.Id, status.Status, status.Progress, status.Message)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	return prettyJSON(report)
}

func (cmd *ListSessionsCommand) Run(ctx *Globals) error {
	c, err := ctx.Client()
	if err != nil {
		return err
	}
	limit := cmd.Limit
	if limit == 0 {
		limit = schema.MaxListLimit
	}
	resp, err := c.ListSessions(ctx.ctx, schema.SessionListRequest{
		State:  schema.State(cmd.State),
		Offset: cmd.Offset,
		Limit:  limit,
	})
	if err != nil {
		return err
	}
	if ctx.Debug {
		return prettyJSON(resp)
	}
	return printSessions(resp)
}

func (cmd *GetSessionCommand) Run(ctx *Globals) error {
	c, err := ctx.Client()
	if err != nil {
		return err
	}
	session, err := c.GetSession(ctx.ctx, cmd.Id)
	if err != nil {
		return err
	}
	return prettyJSON(session)
}

func (cmd *CancelCommand) Run(ctx *Globals) error {
	c, err := ctx.Client()
	if err != nil {
		return err
	}
	return c.Cancel(ctx.ctx, cmd.Id)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func printSessions(resp *schema.SessionList) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATE\tCHUNKS\tSIZE\tACTIVITY")
	for _, s := range resp.Body {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\t%s\n",
			s.Id, s.Name, s.State, len(s.Received), s.ChunkCount, s.Size,
			s.ActivityAt.Local().Format(time.DateTime),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d of %d sessions\n", len(resp.Body), resp.Count)
	return nil
}

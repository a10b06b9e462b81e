package main

import (
	"io"
	"os"

	// Packages
	units "github.com/docker/go-units"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type ObjectCommands struct {
	Head HeadCommand `cmd:"" group:"OBJECTS" help:"Get uploaded object metadata"`
	Get  GetCommand  `cmd:"" group:"OBJECTS" help:"Download uploaded object"`
}

type HeadCommand struct {
	Id string `arg:"" name:"id" help:"Object identifier"`
}

type GetCommand struct {
	HeadCommand
	Output string `name:"output" short:"o" help:"Write to file instead of stdout"`
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (cmd *HeadCommand) Run(ctx *Globals) error {
	c, err := ctx.Client()
	if err != nil {
		return err
	}
	obj, err := c.GetObject(ctx.ctx, cmd.Id)
	if err != nil {
		return err
	}
	return prettyJSON(obj)
}

func (cmd *GetCommand) Run(ctx *Globals) error {
	c, err := ctx.Client()
	if err != nil {
		return err
	}
	var out io.Writer = os.Stdout
	if cmd.Output != "" {
		f, err := os.Create(cmd.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	obj, err := c.ReadObject(ctx.ctx, cmd.Id, func(chunk []byte) error {
		_, err := out.Write(chunk)
		return err
	})
	if err != nil {
		return err
	}
	if cmd.Output != "" {
		ctx.logger.Printf(ctx.ctx, "wrote %s (%s) to %s", obj.Name, units.BytesSize(float64(obj.Size)), cmd.Output)
	}
	return nil
}

package main

///////////////////////////////////////////////////////////////////////////////
// TYPES

type AnalysisCommands struct {
	Status StatusCommand `cmd:"" group:"ANALYSIS" help:"Get analysis status of an uploaded object"`
	Report ReportCommand `cmd:"" group:"ANALYSIS" help:"Get analysis report of an uploaded object"`
}

type StatusCommand struct {
	Id string `arg:"" name:"id" help:"Object identifier"`
}

type ReportCommand struct {
	StatusCommand
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (cmd *StatusCommand) Run(ctx *Globals) error {
	a, err := ctx.AnalysisClient()
	if err != nil {
		return err
	}
	status, err := a.Status(ctx.ctx, cmd.Id)
	if err != nil {
		return err
	}
	return prettyJSON(status)
}

func (cmd *ReportCommand) Run(ctx *Globals) error {
	a, err := ctx.AnalysisClient()
	if err != nil {
		return err
	}
	report, err := a.Report(ctx.ctx, cmd.Id)
	if err != nil {
		return err
	}
	return prettyJSON(report)
}

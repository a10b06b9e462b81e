package main

import (
	"os"
	"path/filepath"

	// Packages
	kong "github.com/alecthomas/kong"
	_ "github.com/joho/godotenv/autoload"
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type CLI struct {
	Globals
	ServerCommands
	UploadCommands
	ObjectCommands
	AnalysisCommands
	VersionCommands
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func main() {
	// Parse command-line flags
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name(execName()),
		kong.Description("Upload large files in chunks, and serve the upload session protocol"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	// Create the app, which is cancelled on SIGINT or SIGTERM
	app := NewApp(cli.Globals, ctx.Model.Vars())
	defer app.Close()

	// Run the selected command
	ctx.FatalIfErrorf(ctx.Run(app))
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// execName is the name of the executable, or the service name when it
// cannot be determined.
func execName() string {
	if name, err := os.Executable(); err == nil {
		return filepath.Base(name)
	}
	return schema.SchemaName
}

package main

import (
	"context"
	"fmt"

	// Packages
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	backend "github.com/mutablelogic/go-chunkup/pkg/backend"
	config "github.com/mutablelogic/go-chunkup/pkg/config"
	httphandler "github.com/mutablelogic/go-chunkup/pkg/httphandler"
	manager "github.com/mutablelogic/go-chunkup/pkg/manager"
	notify "github.com/mutablelogic/go-chunkup/pkg/notify"
	registry "github.com/mutablelogic/go-chunkup/pkg/registry"
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	version "github.com/mutablelogic/go-chunkup/pkg/version"
	httprouter "github.com/mutablelogic/go-server/pkg/httprouter"
	httpserver "github.com/mutablelogic/go-server/pkg/httpserver"
	errgroup "golang.org/x/sync/errgroup"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type ServerCommands struct {
	Server RunServerCommand `cmd:"" name:"server" help:"Run HTTP server." group:"SERVER"`
}

type RunServerCommand struct {
	Config string `name:"config" short:"c" type:"existingfile" help:"YAML configuration file" optional:""`
}

///////////////////////////////////////////////////////////////////////////////
// COMMANDS

func (cmd *RunServerCommand) Run(ctx *Globals) error {
	cfg, err := config.Load(cmd.Config)
	if err != nil {
		return err
	}

	// Create manager
	opts, err := managerOpts(ctx, cfg)
	if err != nil {
		return err
	}
	mgr, err := manager.New(ctx.ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create manager: %w", err)
	}
	defer mgr.Close()

	return serve(ctx, cfg, mgr)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func managerOpts(ctx *Globals, cfg *config.Config) ([]manager.Opt, error) {
	chunkSize, err := cfg.Upload.ChunkSizeBytes()
	if err != nil {
		return nil, err
	}
	maxSize, err := cfg.Upload.MaxSizeBytes()
	if err != nil {
		return nil, err
	}

	// Storage
	backendOpts := []backend.Opt{backend.WithEndpoint(cfg.Storage.Endpoint)}
	if cfg.Storage.Anonymous {
		backendOpts = append(backendOpts, backend.WithAnonymous())
	}
	opts := []manager.Opt{
		manager.WithLogger(ctx.logger),
		manager.WithBackend(ctx.ctx, cfg.Storage.URL, backendOpts...),
		manager.WithChunkSize(chunkSize),
		manager.WithMaxSize(maxSize),
		manager.WithExtensions(cfg.Upload.Extensions...),
		manager.WithIdleTimeout(cfg.Upload.IdleTimeout),
		manager.WithRetention(cfg.Upload.Retention),
		manager.WithReclaimInterval(cfg.Upload.ReclaimInterval),
	}

	// Session records
	if cfg.Redis.URL != "" {
		r, err := registry.NewRedis(ctx.ctx, cfg.Redis.URL, cfg.Redis.Prefix)
		if err != nil {
			return nil, err
		}
		opts = append(opts, manager.WithRegistry(r))
	}

	// Completion events
	if cfg.Notify.Queue != "" {
		awscfg, err := awsconfig.LoadDefaultConfig(ctx.ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		n, err := notify.NewSQSFromConfig(awscfg, cfg.Notify.Queue, cfg.Notify.Endpoint)
		if err != nil {
			return nil, err
		}
		opts = append(opts, manager.WithNotifier(n))
	}

	// Return success
	return opts, nil
}

// serve registers HTTP handlers and runs the server and the reclaim loop
// until the context is done.
func serve(ctx *Globals, cfg *config.Config, mgr *manager.Manager) error {
	// Create the HTTP server
	srv, err := httpserver.New(cfg.Addr, nil)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Create the router on the server mux
	router, err := httprouter.NewRouter(ctx.ctx, srv.Router(), cfg.Prefix, "", schema.SchemaName, version.Version(), ctx.logger.WrapFunc)
	if err != nil {
		return fmt.Errorf("failed to create router: %w", err)
	}

	// Register upload HTTP handlers and the OpenAPI document
	if err := httphandler.RegisterHandlers(mgr, router); err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}
	if err := router.RegisterOpenAPI("openapi.json", false); err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}
	srv.SetHandler(router)

	// Run the server and the reclaim loop together
	group, child := errgroup.WithContext(ctx.ctx)
	group.Go(func() error {
		return srv.Run(child)
	})
	group.Go(func() error {
		return mgr.Run(child)
	})

	ctx.logger.Printf(ctx.ctx, "%s@%s started on %s%s (storage %s)", schema.SchemaName, version.Version(), cfg.Addr, cfg.Prefix, mgr.Info().Storage)
	if err := group.Wait(); err != nil {
		return err
	}
	ctx.logger.Printf(context.Background(), "%s stopped", schema.SchemaName)
	return nil
}

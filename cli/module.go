package cli

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/isdmx/reqbox/apiserver"
	"github.com/isdmx/reqbox/config"
	"github.com/isdmx/reqbox/history"
	"github.com/isdmx/reqbox/httpclient"
	"github.com/isdmx/reqbox/logger"
	"github.com/isdmx/reqbox/mcpserver"
	"github.com/isdmx/reqbox/runner"
	"github.com/isdmx/reqbox/sandbox"
)

// Module provides every component of the server. It expects a
// *config.Config to be supplied.
var Module = fx.Options(
	fx.Provide(
		// Logger with configuration
		logger.NewFromConfig,

		// Script executor based on config
		sandbox.NewExecutor,

		// Outgoing HTTP client and history
		httpclient.NewFromConfig,
		history.NewFromConfig,

		newRunner,

		// Transports
		newAPIServer,
		newMCPServer,
	),
)

func newRunner(log *zap.Logger, executor sandbox.ScriptExecutor, client *httpclient.Client, store *history.Store) *runner.Runner {
	return runner.New(logger.Component(log, "runner"), executor, client, store)
}

func newAPIServer(cfg *config.Config, log *zap.Logger, r *runner.Runner, store *history.Store) *apiserver.Server {
	return apiserver.New(cfg, logger.Component(log, "api"), r, store)
}

func newMCPServer(cfg *config.Config, log *zap.Logger, r *runner.Runner) (*mcpserver.MCPServer, error) {
	return mcpserver.New(cfg, logger.Component(log, "mcp"), r)
}

// appOptions builds the options of the serve application
func appOptions(cfg *config.Config) []fx.Option {
	return []fx.Option{
		fx.Supply(cfg),
		Module,

		// Start the appropriate transport based on config
		fx.Invoke(registerTransport),

		// Use the application logger for fx logs
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	}
}

type transportParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Config     *config.Config
	Logger     *zap.Logger
	API        *apiserver.Server
	MCP        *mcpserver.MCPServer
}

func registerTransport(p transportParams) {
	switch p.Config.Server.Transport {
	case config.TransportAPI:
		p.Lifecycle.Append(fx.Hook{
			OnStart: p.API.Start,
			OnStop:  p.API.Shutdown,
		})
	case config.TransportMCPStdio:
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go serveUntilDone(p, p.MCP.ServeStdio)
				return nil
			},
		})
	case config.TransportMCPHTTP:
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go serveUntilDone(p, p.MCP.ServeHTTP)
				return nil
			},
		})
	}
}

// serveUntilDone runs a blocking serve function and stops the application
// when it returns
func serveUntilDone(p transportParams, serve func() error) {
	if err := serve(); err != nil {
		p.Logger.Error("transport stopped", zap.String("transport", p.Config.Server.Transport), zap.Error(err))
		_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
		return
	}
	_ = p.Shutdowner.Shutdown()
}

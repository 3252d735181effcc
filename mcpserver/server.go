package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/isdmx/reqbox/config"
	"github.com/isdmx/reqbox/httpclient"
	"github.com/isdmx/reqbox/runner"
	"github.com/isdmx/reqbox/sandbox"
)

// Tool names
const (
	ToolSendRequest         = "send_request"
	ToolRunPreRequestScript = "run_pre_request_script"
)

// Runner runs submissions
type Runner interface {
	Run(ctx context.Context, sub runner.Submission) (*runner.Outcome, error)
	DryRun(ctx context.Context, sub runner.Submission) sandbox.ExecutionResult
}

// MCPServer represents the MCP server
type MCPServer struct {
	config    *config.Config
	logger    *zap.Logger
	runner    Runner
	mcpServer *server.MCPServer
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, r Runner) (*MCPServer, error) {
	if r == nil {
		return nil, errors.New("runner is required")
	}

	s := &MCPServer{
		config: cfg,
		logger: logger,
		runner: r,
	}

	logger.Info("configuration loaded",
		zap.String("server.transport", cfg.Server.Transport),
		zap.Int("server.http_port", cfg.Server.HTTPPort),
		zap.Int("sandbox.timeout_ms", cfg.Sandbox.TimeoutMs),
		zap.Int("sandbox.max_script_size_kb", cfg.Sandbox.MaxScriptSizeKB),
		zap.Strings("sandbox.capabilities", cfg.Sandbox.Capabilities),
		zap.Int("client.timeout_sec", cfg.Client.TimeoutSec),
		zap.Int("history.limit", cfg.History.Limit),
	)

	s.mcpServer = server.NewMCPServer("reqbox", "REST request runner with pre-request scripts")

	s.registerSendRequestTool()
	s.registerRunPreRequestScriptTool()

	return s, nil
}

// requestProperties is the input schema shared by both tools
func requestProperties() map[string]any {
	return map[string]any{
		"method": map[string]any{
			"type":        "string",
			"description": "HTTP method, GET when omitted",
		},
		"url": map[string]any{
			"type":        "string",
			"description": "Absolute http(s) URL; the pre-request script may set it instead",
		},
		"headers": map[string]any{
			"type":                 "object",
			"description":          "Request headers",
			"additionalProperties": map[string]any{"type": "string"},
		},
		"data": map[string]any{
			"description": "Request body; strings are sent verbatim, anything else as JSON",
		},
		"pre_request_script": map[string]any{
			"type":        "string",
			"description": "JavaScript run before sending; it may modify `request` and fill `environment`",
		},
	}
}

func (s *MCPServer) registerSendRequestTool() {
	tool := mcp.Tool{
		Name:        ToolSendRequest,
		Description: "Run the optional pre-request script, then send the resulting HTTP request",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: requestProperties(),
		},
	}

	s.mcpServer.AddTool(tool, s.handleSendRequest)
}

func (s *MCPServer) registerRunPreRequestScriptTool() {
	tool := mcp.Tool{
		Name:        ToolRunPreRequestScript,
		Description: "Run a pre-request script against a request without sending it",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: requestProperties(),
			Required:   []string{"pre_request_script"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleRunPreRequestScript)
}

// submissionFrom reads the shared tool arguments
func submissionFrom(request mcp.CallToolRequest) runner.Submission {
	args := request.GetArguments()

	headers := map[string]string{}
	if raw, ok := args["headers"].(map[string]any); ok {
		for name, value := range raw {
			switch v := value.(type) {
			case nil:
			case string:
				headers[name] = v
			default:
				headers[name] = fmt.Sprint(v)
			}
		}
	}

	return runner.Submission{
		Request: sandbox.RequestSpec{
			Method:  request.GetString("method", ""),
			URL:     request.GetString("url", ""),
			Headers: headers,
			Body:    args["data"],
		},
		PreRequestScript: request.GetString("pre_request_script", ""),
	}
}

// handleSendRequest handles the send_request tool
func (s *MCPServer) handleSendRequest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sub := submissionFrom(request)
	s.logger.Info("send request requested",
		zap.String("method", sub.Request.Method),
		zap.String("url", sub.Request.URL),
		zap.Bool("has_script", sub.PreRequestScript != ""))

	out, err := s.runner.Run(ctx, sub)
	if err != nil {
		s.logger.Warn("send request failed", zap.Error(err))

		payload := map[string]any{"error": err.Error()}
		var scriptErr *runner.ScriptError
		var respErr *httpclient.ResponseError
		switch {
		case errors.As(err, &scriptErr):
			payload["error"] = "Pre-request script error"
			payload["details"] = scriptErr.Failure.Message
			payload["kind"] = scriptErr.Failure.Kind
		case errors.As(err, &respErr):
			payload["error"] = respErr.Error()
			payload["response"] = respErr.Response
		}
		return jsonResult(payload, true)
	}

	return jsonResult(map[string]any{
		"status":      out.Response.Status,
		"headers":     out.Response.Headers,
		"data":        out.Response.Data,
		"request":     out.Request,
		"environment": out.Environment,
		"console":     out.Console,
	}, false)
}

// handleRunPreRequestScript handles the run_pre_request_script tool
func (s *MCPServer) handleRunPreRequestScript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := request.RequireString("pre_request_script"); err != nil {
		return nil, fmt.Errorf("pre_request_script parameter is required: %w", err)
	}

	result := s.runner.DryRun(ctx, submissionFrom(request))

	s.logger.Info("pre-request script dry run completed",
		zap.Bool("succeeded", result.Succeeded()),
		zap.Int("console_lines", len(result.Console)))

	return jsonResult(result, !result.Succeeded())
}

func jsonResult(v any, isError bool) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: string(raw),
			},
		},
		IsError: isError,
	}, nil
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", s.config.Server.HTTPPort))

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	return httpServer.Start(s.config.ListenAddr())
}

// GetMCPServer returns the underlying MCP server for fx
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

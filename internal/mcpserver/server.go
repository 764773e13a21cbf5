// Package mcpserver exposes the tool registry over the Model Context Protocol.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/roelfdiedericks/scrapemcp/internal/logging"
	"github.com/roelfdiedericks/scrapemcp/internal/tools"
	"github.com/roelfdiedericks/scrapemcp/internal/types"
)

// Options configures the server
type Options struct {
	Name        string
	Version     string
	CallTimeout time.Duration // bound for one tool call; 0 = none
	Logger      *slog.Logger  // SDK logger; nil = logging.Slog()
}

// Server bridges a tools.Registry to an MCP server
type Server struct {
	registry *tools.Registry
	opts     Options
	mcp      *mcp.Server
}

// New creates a server exposing every tool in reg
func New(reg *tools.Registry, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = "scrapemcp"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Logger == nil {
		opts.Logger = Slog()
	}

	s := &Server{
		registry: reg,
		opts:     opts,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    opts.Name,
			Version: opts.Version,
		}, &mcp.ServerOptions{
			Logger: opts.Logger,
		}),
	}

	for _, t := range reg.Tools() {
		def := tools.ToDefinition(t)
		s.mcp.AddTool(&mcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}, s.handler(def.Name))
		L_debug("mcp: tool added", "name", def.Name)
	}
	return s
}

// MCP returns the underlying SDK server
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

// Run serves over stdin/stdout until the client disconnects or ctx is done
func (s *Server) Run(ctx context.Context) error {
	L_info("mcp: serving on stdio", "name", s.opts.Name, "version", s.opts.Version, "tools", s.registry.List())
	return s.Serve(ctx, &mcp.StdioTransport{})
}

// Serve runs the server on an arbitrary transport
func (s *Server) Serve(ctx context.Context, t mcp.Transport) error {
	if err := s.mcp.Run(ctx, t); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// handler adapts a registry tool to an SDK tool handler. Tool failures are
// results with IsError set; only an unknown tool is a protocol error.
func (s *Server) handler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		if s.opts.CallTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.opts.CallTimeout)
			defer cancel()
		}

		defer func() {
			if r := recover(); r != nil {
				L_error("mcp: tool panicked", "tool", name, "panic", r)
				result = toCallToolResult(types.ToolErrorResult(types.InternalError(fmt.Errorf("tool %s panicked: %v", name, r))))
				err = nil
			}
		}()

		start := time.Now()
		var args []byte
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}

		res, err := s.registry.Execute(ctx, name, args)
		if err != nil {
			return nil, err
		}
		L_trace("mcp: tool call finished", "tool", name, "isError", res.IsError, "elapsed", time.Since(start).Round(time.Millisecond).String())
		return toCallToolResult(res), nil
	}
}

// toCallToolResult converts a tool result to its wire form
func toCallToolResult(r *types.ToolResult) *mcp.CallToolResult {
	out := &mcp.CallToolResult{
		Content: make([]mcp.Content, 0, len(r.Content)),
		IsError: r.IsError,
	}
	for _, b := range r.Content {
		if b.Type == "text" {
			out.Content = append(out.Content, &mcp.TextContent{Text: b.Text})
		}
	}
	if r.Structured != nil {
		out.StructuredContent = r.Structured
	}
	return out
}

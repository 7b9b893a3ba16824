// Package mcp exposes the customer-service dialogue as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/guiche/internal/logging"
	"github.com/aretw0/guiche/pkg/domain"
	"github.com/aretw0/guiche/pkg/ports"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// ReplyResponse is the structured output of every tool.
type ReplyResponse struct {
	Reply domain.Reply `json:"reply" jsonschema_description:"Structured reply with a stable event tag"`
	Text  string       `json:"text,omitempty" jsonschema_description:"Reply rendered as prose"`
}

// Service is the dialogue surface exposed as tools.
type Service interface {
	Start(ctx context.Context, sessionID string) (domain.Reply, error)
	HandleInput(ctx context.Context, sessionID, text string) (domain.Reply, error)
	Reset(ctx context.Context, sessionID string) (domain.Reply, error)
}

// Server wraps the dialogue and exposes it as an MCP Server.
type Server struct {
	service   Service
	renderer  ports.ReplyRenderer
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithRenderer adds rendered prose to tool results.
func WithRenderer(r ports.ReplyRenderer) Option {
	return func(s *Server) {
		s.renderer = r
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(service Service, version string, opts ...Option) *Server {
	s := &Server{
		service:   service,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("guiche-mcp", version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the tools over SSE until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func (s *Server) registerTools() {
	startTool := mcp.NewTool("start_session",
		mcp.WithDescription("Open a customer-service session (or resume it) and return the current prompt."),
		mcp.WithString("session_id", mcp.Description("Session ID; a new one is generated when omitted")),
		mcp.WithOutputSchema[ReplyResponse](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStart))

	sendTool := mcp.NewTool("send_message",
		mcp.WithDescription("Send one user message to a session: CPF, birth date, menu option or answer."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("text", mcp.Required(), mcp.Description("User message")),
		mcp.WithOutputSchema[ReplyResponse](),
	)
	s.mcpServer.AddTool(sendTool, mcp.NewStructuredToolHandler(s.handleSend))

	resetTool := mcp.NewTool("reset_session",
		mcp.WithDescription("Log out and restart the session at the CPF prompt."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[ReplyResponse](),
	)
	s.mcpServer.AddTool(resetTool, mcp.NewStructuredToolHandler(s.handleReset))
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ReplyResponse, error) {
	id, _ := args["session_id"].(string)
	if id == "" {
		id = uuid.NewString()
	}
	reply, err := s.service.Start(ctx, id)
	return s.respond(ctx, reply, err, "start failed")
}

func (s *Server) handleSend(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ReplyResponse, error) {
	id, _ := args["session_id"].(string)
	text, _ := args["text"].(string)
	if id == "" {
		return ReplyResponse{}, errors.New("session_id is required")
	}
	reply, err := s.service.HandleInput(ctx, id, text)
	return s.respond(ctx, reply, err, "send failed")
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ReplyResponse, error) {
	id, _ := args["session_id"].(string)
	if id == "" {
		return ReplyResponse{}, errors.New("session_id is required")
	}
	reply, err := s.service.Reset(ctx, id)
	return s.respond(ctx, reply, err, "reset failed")
}

// respond keeps replies that carry their own error event (transient or
// rejected input) as successful tool results.
func (s *Server) respond(ctx context.Context, reply domain.Reply, err error, msg string) (ReplyResponse, error) {
	if err != nil {
		s.logger.Warn("MCP tool: "+msg, "session_id", reply.SessionID, "err", err)
		if reply.Event == "" {
			return ReplyResponse{}, fmt.Errorf("%s: %w", msg, err)
		}
	}

	resp := ReplyResponse{Reply: reply}
	if s.renderer != nil {
		text, rerr := s.renderer.Render(ctx, reply)
		if rerr != nil {
			s.logger.Error("MCP tool: render failed", "event", reply.Event, "err", rerr)
		}
		resp.Text = text
	}
	return resp, nil
}

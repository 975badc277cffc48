// Package mcp exposes the backlog as an MCP server so external executors
// can read tasks and mark them completed.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ShayCichocki/rdteam/internal/backlog"
	"github.com/ShayCichocki/rdteam/internal/orchestrator"
)

// Server serves backlog tools over MCP.
type Server struct {
	mcp     *mcp.Server
	store   backlog.Store
	machine *orchestrator.Machine
	logger  *zap.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "rdteam-backlog")
	Name string

	// Version is the server version.
	Version string

	// Logger for structured logging
	Logger *zap.Logger
}

// DefaultConfig returns the defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "rdteam-backlog",
		Version: "dev",
		Logger:  zap.NewNop(),
	}
}

// NewServer creates a server over store.
func NewServer(cfg *Config, store backlog.Store) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if store == nil {
		return nil, fmt.Errorf("backlog store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    cfg.Name,
				Version: cfg.Version,
			},
			nil,
		),
		store:   store,
		machine: orchestrator.New(store, orchestrator.WithLogger(logger)),
		logger:  logger,
	}
	s.registerTools()
	return s, nil
}

// Run serves on the stdio transport until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Connect serves one session on transport and returns without waiting.
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, transport, nil)
}

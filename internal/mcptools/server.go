package mcptools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tvergho/dex/internal/logging"
	"github.com/tvergho/dex/internal/repository"
	"github.com/tvergho/dex/internal/retrieval"
	"github.com/tvergho/dex/internal/search"
)

// Config names the stdio server to connecting clients.
type Config struct {
	ServerName    string
	ServerVersion string
}

// Server exposes stats, list, search, and get over the MCP stdio
// transport, calling the service layer in-process rather than delegating
// to a separate daemon.
type Server struct {
	mcp       *mcp.Server
	repos     *repository.Repositories
	search    *search.Service
	formatter *retrieval.Formatter
	logger    *logging.Logger
}

// New builds a Server with the four tools registered. repos, searchSvc,
// and formatter are all required.
func New(cfg Config, repos *repository.Repositories, searchSvc *search.Service, formatter *retrieval.Formatter, logger *logging.Logger) (*Server, error) {
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if searchSvc == nil {
		return nil, fmt.Errorf("search service is required")
	}
	if formatter == nil {
		return nil, fmt.Errorf("formatter is required")
	}
	if logger == nil {
		logger, _ = logging.NewLogger(logging.NewDefaultConfig())
	}
	if cfg.ServerName == "" {
		cfg.ServerName = "dex"
	}
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "0.1.0"
	}

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.ServerName,
			Version: cfg.ServerVersion,
		}, nil),
		repos:     repos,
		search:    searchSvc,
		formatter: formatter,
		logger:    logger,
	}

	s.registerStats()
	s.registerList()
	s.registerSearch()
	s.registerGet()

	return s, nil
}

// Run serves the four registered tools over stdio until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server run: %w", err)
	}
	return nil
}

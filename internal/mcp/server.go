package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/immodex/immo-mcp/internal/application/services"
)

const (
	// ServerName is the MCP server name
	ServerName = "immo-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"

	defaultMaxResults = 50
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp        *server.MCPServer
	aggregator *services.AggregatorService
	analysis   *services.MarketAnalysisService
	enricher   *services.EnrichmentService
	maxResults int
	logger     zerolog.Logger
}

// NewServer creates the MCP server and registers the tools. enricher may be
// nil, in which case neighborhood_info is not exposed and search enrichment
// is unavailable.
func NewServer(
	aggregator *services.AggregatorService,
	analysis *services.MarketAnalysisService,
	enricher *services.EnrichmentService,
	maxResults int,
	logger zerolog.Logger,
) *Server {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Server{
		mcp:        server.NewMCPServer(ServerName, ServerVersion),
		aggregator: aggregator,
		analysis:   analysis,
		enricher:   enricher,
		maxResults: maxResults,
		logger:     logger.With().Str("component", "mcp").Logger(),
	}
	s.registerTools()
	return s
}

// Serve runs the MCP server on stdio and blocks until the client disconnects
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info().Str("server", ServerName).Str("version", ServerVersion).Msg("serving MCP on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchPropertiesTool(), s.handleSearchProperties)
	s.mcp.AddTool(getPropertySummaryTool(), s.handleGetPropertySummary)
	if s.enricher != nil {
		s.mcp.AddTool(neighborhoodInfoTool(), s.handleNeighborhoodInfo)
	}
}

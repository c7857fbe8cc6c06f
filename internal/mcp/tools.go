package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/immodex/immo-mcp/internal/application/services"
	"github.com/immodex/immo-mcp/internal/domain/entities"
	apperrors "github.com/immodex/immo-mcp/pkg/errors"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeSearchTimeout = -32001 // Search exceeded its deadline
	ErrorCodeNoMarketData  = -32002 // No market reference for the requested city
)

// handleSearchProperties handles the search_properties tool invocation
func (s *Server) handleSearchProperties(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query := queryFromArgs(args)
	enrich, _ := args["enrich"].(bool)

	var (
		result *services.SearchResult
		err    error
	)
	if enrich {
		result, err = s.aggregator.SearchEnriched(ctx, query)
	} else {
		result, err = s.aggregator.Search(ctx, query)
	}
	if err != nil {
		return nil, mapServiceError(err)
	}

	listings := make([]*entities.Listing, len(result.Listings))
	copy(listings, result.Listings)
	sort.SliceStable(listings, func(i, j int) bool { return listings[i].Price < listings[j].Price })
	if len(listings) > s.maxResults {
		listings = listings[:s.maxResults]
	}

	response := map[string]interface{}{
		"listings":       listings,
		"total_unique":   len(result.Listings),
		"returned":       len(listings),
		"sources":        result.Sources,
		"from_cache":     result.FromCache,
		"failed_sources": failedSources(result),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetPropertySummary handles the get_property_summary tool invocation
func (s *Server) handleGetPropertySummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query := queryFromArgs(args)
	if query.TransactionType == "" {
		query.TransactionType = entities.TransactionSale
	}

	result, err := s.aggregator.Search(ctx, query)
	if err != nil {
		return nil, mapServiceError(err)
	}

	stats := s.analysis.Analyze(result.Listings, query.Location, query.TransactionType)

	response := map[string]interface{}{
		"stats":          stats,
		"sources":        result.Sources,
		"from_cache":     result.FromCache,
		"failed_sources": failedSources(result),
	}

	// A missing market reference only drops the yield block from the summary
	if estimate, err := s.analysis.EstimateYield(ctx, query.Location, stats.PricePerSqmStats.Median); err == nil {
		response["yield_estimate"] = estimate
	} else if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		s.logger.Warn().Err(err).Str("location", query.Location).Msg("yield estimation failed")
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleNeighborhoodInfo handles the neighborhood_info tool invocation
func (s *Server) handleNeighborhoodInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	lat, latOK := numberArg(args, "lat")
	lon, lonOK := numberArg(args, "lon")
	if !latOK || !lonOK {
		return nil, newMCPError(ErrorCodeInvalidParams, "lat and lon parameters are required", map[string]interface{}{
			"param":  "lat, lon",
			"reason": "missing or not a number",
		})
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, newMCPError(ErrorCodeInvalidParams, "coordinates out of range", map[string]interface{}{
			"lat": lat,
			"lon": lon,
		})
	}

	info, err := s.enricher.NeighborhoodInfo(ctx, entities.Coordinates{Lat: lat, Lon: lon})
	if err != nil {
		return nil, mapServiceError(err)
	}

	encoded, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to encode neighborhood info", nil)
	}
	return mcp.NewToolResultText(string(encoded)), nil
}

// Helper functions

// queryFromArgs builds a SearchQuery from tool arguments; validation happens
// in the service layer
func queryFromArgs(args map[string]interface{}) entities.SearchQuery {
	query := entities.SearchQuery{
		Location:        getStringDefault(args, "location", ""),
		PropertyType:    getStringDefault(args, "property_type", ""),
		TransactionType: getStringDefault(args, "transaction_type", ""),
	}
	if v, ok := numberArg(args, "min_price"); ok {
		query.MinPrice = &v
	}
	if v, ok := numberArg(args, "max_price"); ok {
		query.MaxPrice = &v
	}
	if v, ok := numberArg(args, "min_surface"); ok {
		query.MinSurface = &v
	}
	if v, ok := numberArg(args, "max_surface"); ok {
		query.MaxSurface = &v
	}
	if v, ok := numberArg(args, "rooms"); ok {
		rooms := int(v)
		query.Rooms = &rooms
	}
	return query
}

func failedSources(result *services.SearchResult) []string {
	failed := []string{}
	for _, report := range result.Sources {
		if report.Failed {
			failed = append(failed, report.Source)
		}
	}
	return failed
}

// mapServiceError translates service errors to MCP protocol errors
func mapServiceError(err error) error {
	switch {
	case apperrors.IsValidation(err):
		return newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
	case apperrors.IsTimeout(err):
		return newMCPError(ErrorCodeSearchTimeout, err.Error(), nil)
	case apperrors.IsType(err, apperrors.ErrorTypeNotFound):
		return newMCPError(ErrorCodeNoMarketData, err.Error(), nil)
	default:
		return newMCPError(ErrorCodeInternalError, err.Error(), nil)
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// numberArg extracts a numeric parameter; JSON numbers arrive as float64
func numberArg(args map[string]interface{}, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

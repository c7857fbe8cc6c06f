package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchPropertiesTool returns the tool definition for search_properties
func searchPropertiesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_properties",
		Description: "Search French real estate listings across sources, merged and deduplicated",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"location": map[string]interface{}{
					"type":        "string",
					"description": "City or area to search in (e.g. 'Paris', 'Lyon 3e')",
				},
				"min_price": map[string]interface{}{
					"type":        "number",
					"description": "Minimum price in EUR",
				},
				"max_price": map[string]interface{}{
					"type":        "number",
					"description": "Maximum price in EUR",
				},
				"property_type": map[string]interface{}{
					"type":        "string",
					"description": "Property type (appartement, maison, terrain, parking)",
				},
				"min_surface": map[string]interface{}{
					"type":        "number",
					"description": "Minimum surface in square meters",
				},
				"max_surface": map[string]interface{}{
					"type":        "number",
					"description": "Maximum surface in square meters",
				},
				"rooms": map[string]interface{}{
					"type":        "integer",
					"description": "Number of rooms",
					"minimum":     0,
				},
				"transaction_type": map[string]interface{}{
					"type":        "string",
					"description": "Transaction type",
					"enum":        []string{"rent", "sale"},
					"default":     "rent",
				},
				"enrich": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, enrich listings with coordinates and neighborhood scores (slower)",
					"default":     false,
				},
			},
			Required: []string{"location"},
		},
	}
}

// getPropertySummaryTool returns the tool definition for get_property_summary
func getPropertySummaryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_property_summary",
		Description: "Summarize the market for a location: price statistics, distribution, gross yield estimate",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"location": map[string]interface{}{
					"type":        "string",
					"description": "City or area to summarize",
				},
				"transaction_type": map[string]interface{}{
					"type":        "string",
					"description": "Transaction type",
					"enum":        []string{"rent", "sale"},
					"default":     "sale",
				},
				"property_type": map[string]interface{}{
					"type":        "string",
					"description": "Restrict the summary to one property type",
				},
			},
			Required: []string{"location"},
		},
	}
}

// neighborhoodInfoTool returns the tool definition for neighborhood_info
func neighborhoodInfoTool() mcp.Tool {
	return mcp.Tool{
		Name:        "neighborhood_info",
		Description: "Describe the neighborhood around a point: transit, amenities, safety and education scores",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"lat": map[string]interface{}{
					"type":        "number",
					"description": "Latitude (WGS84)",
					"minimum":     -90,
					"maximum":     90,
				},
				"lon": map[string]interface{}{
					"type":        "number",
					"description": "Longitude (WGS84)",
					"minimum":     -180,
					"maximum":     180,
				},
			},
			Required: []string{"lat", "lon"},
		},
	}
}

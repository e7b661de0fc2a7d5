package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var dpiProperty = map[string]interface{}{
	"type":        "integer",
	"description": "Resolution the page was rendered at. Default 144",
	"default":     144,
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Page Inspection
		{
			Name:        "page_info",
			Description: "Load a rendered page image and return its dimensions, format and physical size at the given DPI.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the page image",
					},
					"dpi": dpiProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "color_sample",
			Description: "Report the RGB and HSV value of one or more pixels and whether the configured mark color ranges select them. Use this to calibrate color ranges for a new scanner.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the page image",
					},
					"points": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x": map[string]interface{}{"type": "integer"},
								"y": map[string]interface{}{"type": "integer"},
							},
							"required": []string{"x", "y"},
						},
						"description": "Pixels to sample",
					},
				},
				"required": []string{"path", "points"},
			},
		},

		// Extraction
		{
			Name:        "marks_detect",
			Description: "Detect colored circle and cross marks on a page. Returns accepted marks with geometry and counts of discarded and table-rejected contours.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the page image",
					},
					"dpi": dpiProperty,
					"annotate": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return a base64 PNG with every candidate outlined. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "marks_extract",
			Description: "Run the full extraction on one or more pages: detect marks, read identifiers beside them and the month written inside circles. Returns per-page records and a summary.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Absolute paths to page images, in page order",
					},
					"dpi": dpiProperty,
				},
				"required": []string{"paths"},
			},
		},
		{
			Name:        "month_parse",
			Description: "Normalize recognized month text (e.g. \"3月\", \"３月\", \"三月\", \"1O月\") to a canonical YYYY-MM value.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Text to interpret",
					},
					"year": map[string]interface{}{
						"type":        "integer",
						"description": "Year of the result. Defaults to the configured reference year",
					},
				},
				"required": []string{"text"},
			},
		},

		// Persistence
		{
			Name:        "workbook_update",
			Description: "Write the month of each complete record into the spreadsheet row whose lookup cell holds \"<note> <item>\".",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the .xlsx workbook",
					},
					"records": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "object"},
						"description": "Records as returned by marks_extract",
					},
					"sheet": map[string]interface{}{
						"type":        "string",
						"description": "Sheet name. Defaults to the first sheet",
					},
					"lookup_column": map[string]interface{}{
						"type":        "string",
						"description": "Column holding the keys. Default C",
						"default":     "C",
					},
					"output_column": map[string]interface{}{
						"type":        "string",
						"description": "Column receiving the month. Default O",
						"default":     "O",
					},
					"dry_run": map[string]interface{}{
						"type":        "boolean",
						"description": "Match rows without saving. Default false",
						"default":     false,
					},
				},
				"required": []string{"path", "records"},
			},
		},

		// Diagnostics
		{
			Name:        "engine_info",
			Description: "Report whether the OCR engine is available, its version and installed languages.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/mark-extract/internal/detection"
	"github.com/ironsheep/mark-extract/internal/extract"
	"github.com/ironsheep/mark-extract/internal/imaging"
	"github.com/ironsheep/mark-extract/internal/month"
	"github.com/ironsheep/mark-extract/internal/store"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "marks_detect", "month_parse").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	// Page Inspection
	case "page_info":
		return s.handlePageInfo(args)
	case "color_sample":
		return s.handleColorSample(args)

	// Extraction
	case "marks_detect":
		return s.handleMarksDetect(args)
	case "marks_extract":
		return s.handleMarksExtract(ctx, args)
	case "month_parse":
		return s.handleMonthParse(args)

	// Persistence
	case "workbook_update":
		return s.handleWorkbookUpdate(args)

	// Diagnostics
	case "engine_info":
		return s.info(), nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func (s *Server) dpiOrDefault(dpi int) int {
	if dpi <= 0 {
		return s.pipeline.Config().ReferenceDPI
	}
	return dpi
}

// === Page Inspection Handlers ===

type pageArgs struct {
	Path string `json:"path"`
	DPI  int    `json:"dpi"`
}

func (s *Server) handlePageInfo(args json.RawMessage) (interface{}, error) {
	var a pageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	return imaging.DescribePage(s.cache, a.Path, s.dpiOrDefault(a.DPI))
}

type colorSampleArgs struct {
	Path   string `json:"path"`
	Points []struct {
		X int `json:"x"`
		Y int `json:"y"`
	} `json:"points"`
}

func (s *Server) handleColorSample(args json.RawMessage) (interface{}, error) {
	var a colorSampleArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Points) == 0 {
		return nil, errors.New("at least one point is required")
	}
	page, err := s.cache.Load(a.Path, 0, s.pipeline.Config().ReferenceDPI)
	if err != nil {
		return nil, err
	}

	ranges := s.pipeline.Config().Color.Ranges
	samples := make([]*imaging.ColorSample, 0, len(a.Points))
	for _, p := range a.Points {
		sample, err := imaging.SampleColor(page.Image, p.X, p.Y, ranges)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	return map[string]interface{}{"samples": samples}, nil
}

// === Extraction Handlers ===

type marksDetectArgs struct {
	Path     string `json:"path"`
	DPI      int    `json:"dpi"`
	Annotate bool   `json:"annotate"`
}

type marksDetectResult struct {
	detection.Result
	AnnotatedPNG string `json:"annotated_png,omitempty"`
}

func (s *Server) handleMarksDetect(args json.RawMessage) (interface{}, error) {
	var a marksDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	page, err := s.cache.Load(a.Path, 0, s.dpiOrDefault(a.DPI))
	if err != nil {
		return nil, err
	}

	res := marksDetectResult{Result: s.pipeline.Detect(page)}
	if a.Annotate {
		var notes []imaging.Annotation
		for _, c := range res.Candidates {
			col := imaging.RejectedColor
			if c.Outcome == detection.Accepted {
				col = imaging.CircleColor
				if c.Kind == detection.Cross {
					col = imaging.CrossColor
				}
			}
			notes = append(notes, imaging.Annotation{
				Rect:  c.Box.Rect(),
				Label: fmt.Sprintf("%s %s", c.Kind, c.Outcome),
				Color: col,
			})
		}
		encoded, err := imaging.EncodePNGBase64(imaging.Annotate(page.Image, notes))
		if err != nil {
			return nil, err
		}
		res.AnnotatedPNG = encoded
	}
	return res, nil
}

type marksExtractArgs struct {
	Paths []string `json:"paths"`
	DPI   int      `json:"dpi"`
}

func (s *Server) handleMarksExtract(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a marksExtractArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, errors.New("at least one path is required")
	}

	results := s.pipeline.ProcessFiles(ctx, a.Paths, s.dpiOrDefault(a.DPI))
	return map[string]interface{}{
		"pages":   results,
		"records": extract.AllRecords(results),
		"summary": extract.Summarize(results),
	}, nil
}

type monthParseArgs struct {
	Text string `json:"text"`
	Year int    `json:"year"`
}

func (s *Server) handleMonthParse(args json.RawMessage) (interface{}, error) {
	var a monthParseArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	year := a.Year
	if year == 0 {
		year = s.pipeline.Config().Month.ReferenceYear
	}
	c, err := month.NewParser(year).Parse(a.Text)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"text":      a.Text,
		"canonical": c.String(),
		"year":      c.Year,
		"month":     c.Month,
	}, nil
}

// === Persistence Handlers ===

type workbookUpdateArgs struct {
	Path         string           `json:"path"`
	Records      []extract.Record `json:"records"`
	Sheet        string           `json:"sheet"`
	LookupColumn string           `json:"lookup_column"`
	OutputColumn string           `json:"output_column"`
	DryRun       bool             `json:"dry_run"`
}

func (s *Server) handleWorkbookUpdate(args json.RawMessage) (interface{}, error) {
	var a workbookUpdateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	return store.UpdateWorkbook(a.Path, store.WorkbookOptions{
		Sheet:        a.Sheet,
		LookupColumn: a.LookupColumn,
		OutputColumn: a.OutputColumn,
		DryRun:       a.DryRun,
	}, a.Records)
}

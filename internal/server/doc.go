// Package server implements the MCP (Model Context Protocol) server for mark extraction.
//
// This package provides a JSON-RPC 2.0 server that exposes the extraction
// engine through the MCP protocol, so an assistant can inspect pages, tune
// color ranges and run the extraction interactively.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Page Inspection:
//   - page_info: Dimensions and physical size of a page image
//   - color_sample: HSV values of pixels and whether the mark color ranges select them
//
// Extraction:
//   - marks_detect: Circle and cross marks with rejection counts, optionally annotated
//   - marks_extract: Full extraction over several pages with records and a summary
//   - month_parse: Canonical month from recognized text
//
// Persistence:
//   - workbook_update: Write record months into a spreadsheet
//
// Diagnostics:
//   - engine_info: OCR engine availability and languages
//
// # Page Caching
//
// Pages loaded by page_info, color_sample and marks_detect are cached by path
// for the lifetime of the server process. marks_extract decodes its pages in
// the pipeline's workers and does not populate the cache.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// Logging goes to the configured slog.Logger, never to stdout.
package server

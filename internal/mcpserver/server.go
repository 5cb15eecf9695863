// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes hexokit conversions for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/hexokit/internal/apperr"
	"github.com/starford/hexokit/internal/history"
	"github.com/starford/hexokit/internal/models"
	"github.com/starford/hexokit/internal/report"
)

// RulesURI is the resource holding ConversionRules.
const RulesURI = "hexokit://conversion-rules"

// Converter runs conversions.
type Converter interface {
	Convert(ctx context.Context, path string) (*models.Run, error)
	Last() (*models.Run, bool)
}

// History serves finished runs.
type History interface {
	LastRun() (*models.Run, error)
	ListRuns(limit, offset int, path string) ([]history.Summary, int, error)
}

// Notes lists the vault's markdown notes.
type Notes interface {
	List(dir string) ([]models.NoteMetadata, error)
}

// Server wraps the MCP server with hexokit tools.
type Server struct {
	mcp     *server.MCPServer
	conv    Converter
	history History
	notes   Notes
}

// New creates a new MCP server with all hexokit tools registered.
func New(conv Converter, hist History, notes Notes) *Server {
	s := &Server{conv: conv, history: hist, notes: notes}

	s.mcp = server.NewMCPServer(
		"hexokit",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("convert_note",
		mcp.WithDescription("Convert an Obsidian note to Hexo-ready markdown. "+
			"Returns the converted content, the run status and every reference with its replacement. "+
			"Read the rules first via get_conversion_rules or the "+RulesURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. posts/hello.md)")),
	), s.convertNote)

	s.mcp.AddTool(mcp.NewTool("get_last_result",
		mcp.WithDescription("Return the most recent conversion result."),
	), s.getLastResult)

	s.mcp.AddTool(mcp.NewTool("list_conversions",
		mcp.WithDescription("List finished conversions, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of runs (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Number of runs to skip")),
		mcp.WithString("path", mcp.Description("Only runs of this note path")),
	), s.listConversions)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes or notes in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_conversion_rules",
		mcp.WithDescription("Returns how Obsidian references are rewritten for Hexo."),
	), s.getConversionRules)

	s.mcp.AddResource(
		mcp.NewResource(RulesURI, "Conversion Rules",
			mcp.WithResourceDescription("How Obsidian references are rewritten for Hexo."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRulesResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type runResult struct {
	ID           string           `json:"id"`
	Path         string           `json:"path"`
	Status       models.RunStatus `json:"status"`
	ImageService string           `json:"imageService,omitempty"`
	DurationMS   int64            `json:"durationMs"`
	Errors       []string         `json:"errors"`
	References   []report.Line    `json:"references"`
	Content      string           `json:"content"`
}

func runText(run *models.Run) string {
	out, _ := json.MarshalIndent(runResult{
		ID:           run.ID,
		Path:         run.Path,
		Status:       run.Status,
		ImageService: run.ImageService,
		DurationMS:   run.Duration().Milliseconds(),
		Errors:       run.Errors,
		References:   report.Lines(run),
		Content:      run.Content,
	}, "", "  ")
	return string(out)
}

func (s *Server) convertNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	run, err := s.conv.Convert(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(runText(run)), nil
}

func (s *Server) getLastResult(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if run, ok := s.conv.Last(); ok {
		return mcp.NewToolResultText(runText(run)), nil
	}
	run, err := s.history.LastRun()
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultText("no conversions yet"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(runText(run)), nil
}

func (s *Server) listConversions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 50)
	offset := req.GetInt("offset", 0)
	path := req.GetString("path", "")

	runs, total, err := s.history.ListRuns(limit, offset, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"conversions": runs,
		"total":       total,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metas, err := s.notes.List(req.GetString("folder", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getConversionRules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ConversionRules), nil
}

func (s *Server) readRulesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      RulesURI,
			MIMEType: "text/markdown",
			Text:     ConversionRules,
		},
	}, nil
}

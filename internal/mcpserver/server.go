package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dshills/scribe/internal/check"
	"github.com/dshills/scribe/internal/textcheck"
)

// Checker runs an LLM check. *gateway.Local implements it.
type Checker interface {
	CheckLLM(ctx context.Context, req check.Request) (*check.Result, error)
}

// New returns an MCP server with the check_text and list_goals tools.
func New(checker Checker, version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "scribe", Version: version}, nil)
	registerCheckText(srv, checker)
	registerListGoals(srv)
	return srv
}

// Serve runs srv over stdin and stdout until the client disconnects or ctx
// is done.
func Serve(ctx context.Context, srv *mcp.Server) error {
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

type checkTextArgs struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	FileName     string `json:"fileName"`
	SystemPrompt string `json:"systemPrompt"`
}

func registerCheckText(srv *mcp.Server, checker Checker) {
	tool := &mcp.Tool{
		Name:        "check_text",
		Description: "Check text for clarity, consistency, inclusive language, scannability, spelling and grammar, and terminology. Returns a score from 0 to 100 and the issues found.",
		InputSchema: inputSchema(map[string]any{
			"content":      map[string]any{"type": "string", "description": "Text to check"},
			"model":        map[string]any{"type": "string", "description": "Model to use instead of the provider default"},
			"fileName":     map[string]any{"type": "string", "description": "Name of the file the text came from"},
			"systemPrompt": map[string]any{"type": "string", "description": "Instructions replacing the built-in analysis prompt"},
		}, []string{"content"}),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args checkTextArgs
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
		}
		if args.Content == "" {
			return toolError(errors.New("content is required")), nil
		}
		res, err := checker.CheckLLM(ctx, check.Request{
			Content:      args.Content,
			ContentType:  check.ContentText,
			FileName:     args.FileName,
			Model:        args.Model,
			Provider:     check.ProviderLLM,
			SystemPrompt: args.SystemPrompt,
		})
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(res)
	})
}

type goalInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
	Scoring     string `json:"scoring"`
}

func registerListGoals(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "list_goals",
		Description: "List the quality goals check_text reports issues under.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	srv.AddTool(tool, func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		goals := make([]goalInfo, len(textcheck.Goals))
		for i, g := range textcheck.Goals {
			goals[i] = goalInfo{ID: g.ID, DisplayName: g.DisplayName, Color: g.Color, Scoring: g.Scoring}
		}
		return jsonResult(map[string]any{"goals": goals})
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return toolError(fmt.Errorf("marshal: %w", err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

func toolError(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}

// Package mcpadapter exposes grant tagging as MCP tools over stdio.
package mcpadapter

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/grant-tagger/internal/core/domain"
	"github.com/kirillkom/grant-tagger/internal/core/ports"
)

const (
	serverName    = "grant-tagger"
	serverVersion = "1.0.0"
)

type Server struct {
	tagger     ports.GrantTagger
	vocabulary *domain.Vocabulary
}

func New(tagger ports.GrantTagger, vocabulary *domain.Vocabulary) *Server {
	if vocabulary == nil {
		vocabulary = domain.DefaultVocabulary()
	}
	return &Server{tagger: tagger, vocabulary: vocabulary}
}

// MCPServer builds an MCP server with list_tags, classify_grant and submit_grant registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))

	srv.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List the tags a grant can be labelled with, in canonical order."),
	), s.listTags)

	srv.AddTool(mcp.NewTool("classify_grant",
		mcp.WithDescription("Suggest tags for a grant without storing it."),
		mcp.WithString("grant_name", mcp.Required(), mcp.Description("Grant title")),
		mcp.WithString("grant_description", mcp.Required(), mcp.Description("Grant description")),
	), s.classifyGrant)

	srv.AddTool(mcp.NewTool("submit_grant",
		mcp.WithDescription("Tag a grant and store it in the catalogue."),
		mcp.WithString("grant_name", mcp.Required(), mcp.Description("Grant title")),
		mcp.WithString("grant_description", mcp.Required(), mcp.Description("Grant description")),
		mcp.WithArray("website_urls", mcp.Description("Program pages"), mcp.WithStringItems()),
		mcp.WithArray("document_urls", mcp.Description("Application documents"), mcp.WithStringItems()),
	), s.submitGrant)

	return srv
}

// ServeStdio blocks until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.MCPServer())
}

func (s *Server) listTags(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string][]string{"tags": s.vocabulary.Tags()})
}

func (s *Server) classifyGrant(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	grant := grantFromRequest(req)
	tagged, err := s.tagger.TagOne(ctx, grant)
	if err != nil {
		return toolError("classify_grant", err), nil
	}
	return jsonResult(map[string][]string{"tags": tagged.Tags})
}

func (s *Server) submitGrant(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	grant := grantFromRequest(req)
	grant.WebsiteURLs = req.GetStringSlice("website_urls", nil)
	grant.DocumentURLs = req.GetStringSlice("document_urls", nil)

	stored, err := s.tagger.Submit(ctx, grant)
	if err != nil {
		return toolError("submit_grant", err), nil
	}
	return jsonResult(stored)
}

func grantFromRequest(req mcp.CallToolRequest) domain.Grant {
	return domain.Grant{
		Name:        req.GetString("grant_name", ""),
		Description: req.GetString("grant_description", ""),
	}
}

func toolError(tool string, err error) *mcp.CallToolResult {
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		slog.Error("mcp_tool_failed", "tool", tool, "error", err)
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}

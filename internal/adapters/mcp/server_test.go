package mcpadapter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/grant-tagger/internal/core/domain"
)

type taggerFake struct {
	tags      []string
	submitted []domain.Grant
}

func (f *taggerFake) TagOne(_ context.Context, grant domain.Grant) (domain.Grant, error) {
	if missing := grant.MissingFields(); len(missing) > 0 {
		return domain.Grant{}, &domain.MalformedGrantError{Index: -1, Missing: missing}
	}
	out := grant.Clone()
	out.Tags = append([]string{}, f.tags...)
	return out, nil
}

func (f *taggerFake) TagMany(context.Context, []domain.Grant) ([]domain.Grant, error) {
	return nil, nil
}

func (f *taggerFake) Submit(ctx context.Context, grant domain.Grant) (domain.Grant, error) {
	out, err := f.TagOne(ctx, grant)
	if err != nil {
		return domain.Grant{}, err
	}
	out.ID = "grant-9"
	f.submitted = append(f.submitted, out)
	return out, nil
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(result.Content))
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestListTags(t *testing.T) {
	s := New(&taggerFake{}, nil)
	result, err := s.listTags(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("listTags() error = %v", err)
	}
	var body struct {
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(domain.DefaultVocabulary().Tags(), body.Tags); diff != "" {
		t.Fatalf("unexpected tags (-want +got):\n%s", diff)
	}
}

func TestClassifyGrantDoesNotStore(t *testing.T) {
	tagger := &taggerFake{tags: []string{"dairy", "equipment"}}
	s := New(tagger, nil)

	result, err := s.classifyGrant(context.Background(), callRequest(map[string]any{
		"grant_name":        "Test Grant",
		"grant_description": "Supports dairy farmers with equipment funding.",
	}))
	if err != nil {
		t.Fatalf("classifyGrant() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if got := resultText(t, result); got != `{"tags":["dairy","equipment"]}` {
		t.Fatalf("unexpected result %s", got)
	}
	if len(tagger.submitted) != 0 {
		t.Fatalf("classify_grant must not store")
	}
}

func TestClassifyGrantMissingFieldIsToolError(t *testing.T) {
	s := New(&taggerFake{}, nil)
	result, err := s.classifyGrant(context.Background(), callRequest(map[string]any{"grant_name": "X"}))
	if err != nil {
		t.Fatalf("classifyGrant() error = %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected tool error result")
	}
}

func TestSubmitGrantStoresWithURLs(t *testing.T) {
	tagger := &taggerFake{tags: []string{"agriculture"}}
	s := New(tagger, nil)

	result, err := s.submitGrant(context.Background(), callRequest(map[string]any{
		"grant_name":        "Farm to Fork",
		"grant_description": "Local food dinners.",
		"website_urls":      []any{"https://example.org/f2f"},
	}))
	if err != nil {
		t.Fatalf("submitGrant() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if len(tagger.submitted) != 1 {
		t.Fatalf("expected one stored grant, got %d", len(tagger.submitted))
	}
	if diff := cmp.Diff([]string{"https://example.org/f2f"}, tagger.submitted[0].WebsiteURLs); diff != "" {
		t.Fatalf("unexpected urls (-want +got):\n%s", diff)
	}

	var stored domain.Grant
	if err := json.Unmarshal([]byte(resultText(t, result)), &stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stored.ID != "grant-9" {
		t.Fatalf("expected stored id, got %q", stored.ID)
	}
}

func TestMCPServerRegistersTools(t *testing.T) {
	srv := New(&taggerFake{}, nil).MCPServer()
	tools := srv.ListTools()
	for _, name := range []string{"list_tags", "classify_grant", "submit_grant"} {
		if _, ok := tools[name]; !ok {
			t.Fatalf("tool %s not registered", name)
		}
	}
}

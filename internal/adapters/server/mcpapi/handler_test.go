package mcpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rtgae/alignd/internal/adapters/storage/sqlite"
	"github.com/rtgae/alignd/internal/app"
	"github.com/rtgae/alignd/internal/domain"
)

// testBoard wires one service over a real sqlite repository with a seeded
// project, stream, and deliverable.
type testBoard struct {
	svc           *app.Service
	session       *app.Session
	projectID     string
	streamID      string
	deliverableID string
}

func newTestBoard(t *testing.T) *testBoard {
	t.Helper()

	repo, err := sqlite.Open(filepath.Join(t.TempDir(), "alignd.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := repo.Close(); closeErr != nil {
			t.Errorf("close repo: %v", closeErr)
		}
	})

	counter := 0
	idGen := func() string {
		counter++
		return fmt.Sprintf("id-%d", counter)
	}
	now, err := time.Parse(time.RFC3339, "2026-03-01T10:00:00Z")
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	svc := app.NewService(repo, idGen, func() time.Time { return now }, app.ServiceConfig{})

	ctx := context.Background()
	project, err := svc.CreateProject(ctx, "Launch", "")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	stream, err := svc.CreateStream(ctx, app.CreateStreamInput{ProjectID: project.ID, Name: "Design"})
	if err != nil {
		t.Fatalf("create stream: %v", err)
	}
	target := now.AddDate(0, 1, 0)
	deliverable, err := svc.CreateDeliverable(ctx, app.CreateDeliverableInput{
		ProjectID:  project.ID,
		StreamID:   stream.ID,
		Title:      "Wireframes",
		TargetDate: &target,
	})
	if err != nil {
		t.Fatalf("create deliverable: %v", err)
	}

	return &testBoard{
		svc:           svc,
		session:       app.NewSession(),
		projectID:     project.ID,
		streamID:      stream.ID,
		deliverableID: deliverable.ID,
	}
}

func newTestServer(t *testing.T, board *testBoard) *httptest.Server {
	t.Helper()
	handler, err := NewHandler(Config{}, board.svc, board.session)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// jsonRPCResponse models minimal JSON-RPC response fields used in these tests.
type jsonRPCResponse struct {
	ID     float64        `json:"id"`
	Result map[string]any `json:"result"`
}

func postJSONRPC(t *testing.T, client *http.Client, url string, payload any) (*http.Response, jsonRPCResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	var decoded jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return resp, decoded
}

func initializeRequest() map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
			"clientInfo": map[string]any{
				"name":    "alignd-test",
				"version": "1.0.0",
			},
		},
	}
}

func callToolRequest(id int, toolName string, arguments map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	}
}

func toolResultText(t *testing.T, result map[string]any) string {
	t.Helper()
	contentRaw, ok := result["content"].([]any)
	if !ok || len(contentRaw) == 0 {
		t.Fatalf("content missing in tool result: %#v", result)
	}
	first, ok := contentRaw[0].(map[string]any)
	if !ok {
		t.Fatalf("first content entry has unexpected type: %#v", contentRaw[0])
	}
	text, ok := first["text"].(string)
	if !ok {
		t.Fatalf("content text missing in tool result: %#v", first)
	}
	return text
}

func TestHandlerUsesStatelessTransport(t *testing.T) {
	board := newTestBoard(t)
	server := newTestServer(t, board)

	resp, decoded := postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if decoded.ID != 1 {
		t.Fatalf("id = %v, want 1", decoded.ID)
	}
	if got := resp.Header.Get("Mcp-Session-Id"); got != "" {
		t.Fatalf("Mcp-Session-Id header = %q, want empty (stateless transport)", got)
	}
}

func TestHandlerRegistersBoardTools(t *testing.T) {
	board := newTestBoard(t)
	server := newTestServer(t, board)

	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	_, toolsResp := postJSONRPC(t, server.Client(), server.URL, map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})

	toolsRaw, ok := toolsResp.Result["tools"].([]any)
	if !ok {
		t.Fatalf("tools missing in response: %#v", toolsResp.Result)
	}
	var names []string
	for _, raw := range toolsRaw {
		tool, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := tool["name"].(string); ok {
			names = append(names, name)
		}
	}
	for _, want := range []string{
		"alignd.list_projects",
		"alignd.select_project",
		"alignd.current_project",
		"alignd.list_streams",
		"alignd.list_deliverables",
		"alignd.list_change_events",
		"alignd.recommit_deliverable",
		"alignd.complete_deliverable",
		"alignd.promote_note",
		"alignd.program_summary",
		"alignd.stream_summary",
	} {
		if !slices.Contains(names, want) {
			t.Fatalf("tools/list missing %q, got %v", want, names)
		}
	}
}

func TestHandlerSelectProjectThenListStreams(t *testing.T) {
	board := newTestBoard(t)
	server := newTestServer(t, board)

	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())

	// Without a selection, list_streams fails closed.
	_, callResp := postJSONRPC(t, server.Client(), server.URL,
		callToolRequest(2, "alignd.list_streams", map[string]any{}))
	if text := toolResultText(t, callResp.Result); !strings.HasPrefix(text, "no_project_selected:") {
		t.Fatalf("tool text = %q, want no_project_selected prefix", text)
	}

	_, callResp = postJSONRPC(t, server.Client(), server.URL,
		callToolRequest(3, "alignd.select_project", map[string]any{"project_id": board.projectID}))
	if isErr, _ := callResp.Result["isError"].(bool); isErr {
		t.Fatalf("select_project failed: %q", toolResultText(t, callResp.Result))
	}
	if got := board.session.CurrentProjectID(); got != board.projectID {
		t.Fatalf("session project = %q, want %q", got, board.projectID)
	}

	_, callResp = postJSONRPC(t, server.Client(), server.URL,
		callToolRequest(4, "alignd.list_streams", map[string]any{}))
	if text := toolResultText(t, callResp.Result); !strings.Contains(text, "Design") {
		t.Fatalf("list_streams text = %q, want Design stream", text)
	}
}

func TestHandlerRecommitToolCall(t *testing.T) {
	board := newTestBoard(t)
	server := newTestServer(t, board)

	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	_, callResp := postJSONRPC(t, server.Client(), server.URL,
		callToolRequest(2, "alignd.recommit_deliverable", map[string]any{
			"deliverable_id": board.deliverableID,
			"new_date":       "2026-05-01",
			"reason":         "vendor delay",
			"actor":          "dana",
		}))
	if isErr, _ := callResp.Result["isError"].(bool); isErr {
		t.Fatalf("recommit failed: %q", toolResultText(t, callResp.Result))
	}

	deliverable, err := board.svc.GetDeliverable(context.Background(), board.deliverableID)
	if err != nil {
		t.Fatalf("get deliverable: %v", err)
	}
	if deliverable.RecommitCount != 1 {
		t.Fatalf("recommit count = %d, want 1", deliverable.RecommitCount)
	}
	if len(deliverable.DateHistory) != 1 || deliverable.DateHistory[0].ChangedBy != "dana" {
		t.Fatalf("date history = %+v", deliverable.DateHistory)
	}
}

func TestHandlerRecommitRejectsBadDate(t *testing.T) {
	board := newTestBoard(t)
	server := newTestServer(t, board)

	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	_, callResp := postJSONRPC(t, server.Client(), server.URL,
		callToolRequest(2, "alignd.recommit_deliverable", map[string]any{
			"deliverable_id": board.deliverableID,
			"new_date":       "next tuesday",
			"reason":         "vendor delay",
		}))
	if text := toolResultText(t, callResp.Result); !strings.HasPrefix(text, "invalid_request:") {
		t.Fatalf("tool text = %q, want invalid_request prefix", text)
	}
}

func TestNewHandlerRequiresService(t *testing.T) {
	if _, err := NewHandler(Config{}, nil, nil); err == nil {
		t.Fatal("NewHandler(nil service) error = nil, want error")
	}
}

func TestHandlerServeHTTPUnavailable(t *testing.T) {
	for _, h := range []*Handler{nil, {}} {
		req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(`{}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
		}
	}
}

func TestNormalizeConfig(t *testing.T) {
	tests := []struct {
		name string
		in   Config
		want Config
	}{
		{
			name: "defaults",
			in:   Config{},
			want: Config{ServerName: "alignd", ServerVersion: "dev", EndpointPath: "/mcp"},
		},
		{
			name: "trims and normalizes endpoint",
			in:   Config{ServerName: " board ", ServerVersion: " 1.2.3 ", EndpointPath: "tools/"},
			want: Config{ServerName: "board", ServerVersion: "1.2.3", EndpointPath: "/tools"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizeConfig(tc.in); got != tc.want {
				t.Fatalf("normalizeConfig() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	if _, err := parseDate("2026-05-01"); err != nil {
		t.Fatalf("parseDate(date-only) error = %v", err)
	}
	if _, err := parseDate("2026-05-01T12:00:00Z"); err != nil {
		t.Fatalf("parseDate(rfc3339) error = %v", err)
	}
	if _, err := parseDate("soon"); err == nil {
		t.Fatal("parseDate(garbage) error = nil, want error")
	}
}

func TestToolResultFromErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		prefix string
	}{
		{name: "nil", err: nil, prefix: "unknown error"},
		{name: "no selection", err: errNoProjectSelected, prefix: "no_project_selected:"},
		{name: "not found", err: app.ErrNotFound, prefix: "not_found:"},
		{name: "cycle", err: domain.ErrDependencyCycle, prefix: "dependency_cycle:"},
		{name: "promoted", err: domain.ErrAlreadyPromoted, prefix: "already_promoted:"},
		{name: "reason", err: domain.ErrInvalidReason, prefix: "reason_required:"},
		{name: "invalid id", err: domain.ErrInvalidID, prefix: "invalid_request:"},
		{name: "fallback", err: errors.New("boom"), prefix: "internal_error:"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := toolResultFromError(tc.err)
			if result == nil || len(result.Content) == 0 {
				t.Fatal("result content is empty")
			}
			text, ok := result.Content[0].(mcp.TextContent)
			if !ok {
				t.Fatalf("content[0] has unexpected type %T", result.Content[0])
			}
			if !strings.HasPrefix(text.Text, tc.prefix) {
				t.Fatalf("text = %q, want prefix %q", text.Text, tc.prefix)
			}
		})
	}
}

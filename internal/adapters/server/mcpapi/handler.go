// Package mcpapi provides a stateless MCP streamable-HTTP adapter over the
// program board.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/rtgae/alignd/internal/app"
	"github.com/rtgae/alignd/internal/domain"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// errNoProjectSelected is returned when a tool needs a project and neither an
// explicit project_id nor a session selection is available.
var errNoProjectSelected = errors.New("no project selected; pass project_id or call alignd.select_project first")

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the board tools. The
// session supplies the default project for tools that omit project_id.
func NewHandler(cfg Config, svc *app.Service, session *app.Session) (*Handler, error) {
	if svc == nil {
		return nil, fmt.Errorf("service is required")
	}
	if session == nil {
		session = app.NewSession()
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerProjectTools(mcpSrv, svc, session)
	registerBoardTools(mcpSrv, svc, session)
	registerDeliverableTools(mcpSrv, svc)
	registerNoteTools(mcpSrv, svc)
	registerMetricsTools(mcpSrv, svc, session)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "alignd"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

func registerProjectTools(srv *mcpserver.MCPServer, svc *app.Service, session *app.Session) {
	srv.AddTool(
		mcp.NewTool(
			"alignd.list_projects",
			mcp.WithDescription("List programs, including archived ones when requested."),
			mcp.WithBoolean("include_archived", mcp.Description("Include archived programs")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projects, err := svc.ListProjects(ctx, req.GetBool("include_archived", false))
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"projects": projects})
			if err != nil {
				return nil, fmt.Errorf("encode list_projects result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"alignd.select_project",
			mcp.WithDescription("Select the program that later tools default to."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Program identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := req.RequireString("project_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			// Reject unknown ids so a typo does not silently poison the session.
			if _, err := svc.GetProject(ctx, projectID); err != nil {
				return toolResultFromError(err), nil
			}
			session.SetCurrentProject(projectID)
			result, err := mcp.NewToolResultJSON(map[string]any{"project_id": projectID})
			if err != nil {
				return nil, fmt.Errorf("encode select_project result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"alignd.current_project",
			mcp.WithDescription("Return the currently selected program id, empty when unset."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			result, err := mcp.NewToolResultJSON(map[string]any{"project_id": session.CurrentProjectID()})
			if err != nil {
				return nil, fmt.Errorf("encode current_project result: %w", err)
			}
			return result, nil
		},
	)
}

func registerBoardTools(srv *mcpserver.MCPServer, svc *app.Service, session *app.Session) {
	srv.AddTool(
		mcp.NewTool(
			"alignd.list_streams",
			mcp.WithDescription("List the streams of one program in board order."),
			mcp.WithString("project_id", mcp.Description("Program identifier (defaults to the selected program)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := resolveProjectID(req, session)
			if err != nil {
				return toolResultFromError(err), nil
			}
			streams, err := svc.ListStreams(ctx, projectID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"streams": streams})
			if err != nil {
				return nil, fmt.Errorf("encode list_streams result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"alignd.list_deliverables",
			mcp.WithDescription("List the deliverables of one program with their audit history."),
			mcp.WithString("project_id", mcp.Description("Program identifier (defaults to the selected program)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := resolveProjectID(req, session)
			if err != nil {
				return toolResultFromError(err), nil
			}
			deliverables, err := svc.ListDeliverables(ctx, projectID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"deliverables": deliverables})
			if err != nil {
				return nil, fmt.Errorf("encode list_deliverables result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"alignd.list_change_events",
			mcp.WithDescription("List the newest change-ledger entries for one program."),
			mcp.WithString("project_id", mcp.Description("Program identifier (defaults to the selected program)")),
			mcp.WithNumber("limit", mcp.Description("Maximum entries to return")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := resolveProjectID(req, session)
			if err != nil {
				return toolResultFromError(err), nil
			}
			events, err := svc.ListProjectChangeEvents(ctx, projectID, req.GetInt("limit", 50))
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"events": events})
			if err != nil {
				return nil, fmt.Errorf("encode list_change_events result: %w", err)
			}
			return result, nil
		},
	)
}

func registerDeliverableTools(srv *mcpserver.MCPServer, svc *app.Service) {
	srv.AddTool(
		mcp.NewTool(
			"alignd.recommit_deliverable",
			mcp.WithDescription("Move a deliverable's committed date with a mandatory reason."),
			mcp.WithString("deliverable_id", mcp.Required(), mcp.Description("Deliverable identifier")),
			mcp.WithString("new_date", mcp.Required(), mcp.Description("New committed date (YYYY-MM-DD or RFC3339)")),
			mcp.WithString("reason", mcp.Required(), mcp.Description("Why the date moved")),
			mcp.WithString("explanation", mcp.Description("Optional longer explanation")),
			mcp.WithString("actor", mcp.Description("Who is recommitting")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			deliverableID, err := req.RequireString("deliverable_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			rawDate, err := req.RequireString("new_date")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			reason, err := req.RequireString("reason")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			newDate, err := parseDate(rawDate)
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			deliverable, err := svc.RecommitDeliverable(ctx, app.RecommitInput{
				DeliverableID: deliverableID,
				NewDate:       &newDate,
				Reason:        reason,
				Explanation:   req.GetString("explanation", ""),
				Actor:         req.GetString("actor", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(deliverable)
			if err != nil {
				return nil, fmt.Errorf("encode recommit_deliverable result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"alignd.complete_deliverable",
			mcp.WithDescription("Mark one deliverable complete and freeze its planning accuracy."),
			mcp.WithString("deliverable_id", mcp.Required(), mcp.Description("Deliverable identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			deliverableID, err := req.RequireString("deliverable_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			deliverable, err := svc.CompleteDeliverable(ctx, deliverableID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(deliverable)
			if err != nil {
				return nil, fmt.Errorf("encode complete_deliverable result: %w", err)
			}
			return result, nil
		},
	)
}

func registerNoteTools(srv *mcpserver.MCPServer, svc *app.Service) {
	srv.AddTool(
		mcp.NewTool(
			"alignd.promote_note",
			mcp.WithDescription("Promote one whiteboard note into a deliverable."),
			mcp.WithString("note_id", mcp.Required(), mcp.Description("Note identifier")),
			mcp.WithString("stream_id", mcp.Description("Destination stream (defaults to the note's stream)")),
			mcp.WithString("target_date", mcp.Description("Committed date for the new deliverable (YYYY-MM-DD or RFC3339)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			noteID, err := req.RequireString("note_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			var targetDate *time.Time
			if raw := req.GetString("target_date", ""); raw != "" {
				parsed, err := parseDate(raw)
				if err != nil {
					return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
				}
				targetDate = &parsed
			}
			deliverable, err := svc.PromoteNote(ctx, app.PromoteNoteInput{
				NoteID:     noteID,
				StreamID:   req.GetString("stream_id", ""),
				TargetDate: targetDate,
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(deliverable)
			if err != nil {
				return nil, fmt.Errorf("encode promote_note result: %w", err)
			}
			return result, nil
		},
	)
}

func registerMetricsTools(srv *mcpserver.MCPServer, svc *app.Service, session *app.Session) {
	srv.AddTool(
		mcp.NewTool(
			"alignd.program_summary",
			mcp.WithDescription("Aggregate health and planning-accuracy metrics for one program."),
			mcp.WithString("project_id", mcp.Description("Program identifier (defaults to the selected program)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := resolveProjectID(req, session)
			if err != nil {
				return toolResultFromError(err), nil
			}
			summary, err := svc.ProgramSummary(ctx, projectID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(summary)
			if err != nil {
				return nil, fmt.Errorf("encode program_summary result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"alignd.stream_summary",
			mcp.WithDescription("Aggregate health metrics for one stream."),
			mcp.WithString("stream_id", mcp.Required(), mcp.Description("Stream identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			streamID, err := req.RequireString("stream_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			summary, err := svc.StreamSummary(ctx, streamID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(summary)
			if err != nil {
				return nil, fmt.Errorf("encode stream_summary result: %w", err)
			}
			return result, nil
		},
	)
}

// resolveProjectID prefers an explicit project_id argument over the session
// selection.
func resolveProjectID(req mcp.CallToolRequest, session *app.Session) (string, error) {
	if projectID := strings.TrimSpace(req.GetString("project_id", "")); projectID != "" {
		return projectID, nil
	}
	if projectID := session.CurrentProjectID(); projectID != "" {
		return projectID, nil
	}
	return "", errNoProjectSelected
}

// parseDate accepts date-only and RFC3339 timestamps.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if parsed, err := time.Parse("2006-01-02", raw); err == nil {
		return parsed.UTC(), nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: expected YYYY-MM-DD or RFC3339", raw)
	}
	return parsed.UTC(), nil
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, errNoProjectSelected):
		return mcp.NewToolResultError("no_project_selected: " + err.Error())
	case errors.Is(err, app.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, domain.ErrDependencyCycle):
		return mcp.NewToolResultError("dependency_cycle: " + err.Error())
	case errors.Is(err, domain.ErrAlreadyPromoted):
		return mcp.NewToolResultError("already_promoted: " + err.Error())
	case errors.Is(err, domain.ErrInvalidReason):
		return mcp.NewToolResultError("reason_required: " + err.Error())
	case errors.Is(err, domain.ErrInvalidID), errors.Is(err, domain.ErrInvalidStreamID),
		errors.Is(err, domain.ErrInvalidTitle), errors.Is(err, domain.ErrInvalidName):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}

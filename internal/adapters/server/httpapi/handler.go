// Package httpapi provides the REST HTTP adapter mounted under `/api/v1`.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rtgae/alignd/internal/app"
	"github.com/rtgae/alignd/internal/domain"
	"github.com/rtgae/alignd/internal/export"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// errInvalidRequest marks malformed request bodies and parameters.
var errInvalidRequest = errors.New("invalid request")

// Handler serves the versioned API subrouter.
type Handler struct {
	svc *app.Service
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs the HTTP API adapter.
func NewHandler(svc *app.Service) *Handler {
	return &Handler{svc: svc}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	segs := splitPath(r.URL.Path)
	if len(segs) == 0 {
		writeNotFound(w)
		return
	}

	switch segs[0] {
	case "projects":
		h.routeProjects(w, r, segs[1:])
	case "streams":
		h.routeStreams(w, r, segs[1:])
	case "deliverables":
		h.routeDeliverables(w, r, segs[1:])
	case "notes":
		h.routeNotes(w, r, segs[1:])
	case "tracks":
		h.routeTracks(w, r, segs[1:])
	case "users":
		h.routeUsers(w, r, segs[1:])
	case "comments":
		h.routeComments(w, r, segs)
	default:
		writeNotFound(w)
	}
}

func (h *Handler) routeProjects(w http.ResponseWriter, r *http.Request, segs []string) {
	switch {
	case len(segs) == 0:
		switch r.Method {
		case http.MethodGet:
			h.handleListProjects(w, r)
		case http.MethodPost:
			h.handleCreateProject(w, r)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case len(segs) == 1:
		switch r.Method {
		case http.MethodGet:
			h.handleGetProject(w, r, segs[0])
		case http.MethodPatch:
			h.handleUpdateProject(w, r, segs[0])
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPatch)
		}
	case len(segs) == 2:
		projectID := segs[0]
		switch segs[1] {
		case "archive":
			requirePost(w, r, func() { h.handleArchiveProject(w, r, projectID) })
		case "streams":
			switch r.Method {
			case http.MethodGet:
				h.handleListStreams(w, r, projectID)
			case http.MethodPost:
				h.handleCreateStream(w, r, projectID)
			default:
				writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		case "deliverables":
			switch r.Method {
			case http.MethodGet:
				h.handleListDeliverables(w, r, projectID)
			case http.MethodPost:
				h.handleCreateDeliverable(w, r, projectID)
			default:
				writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		case "notes":
			switch r.Method {
			case http.MethodGet:
				h.handleListNotes(w, r, projectID)
			case http.MethodPost:
				h.handleCreateNote(w, r, projectID)
			default:
				writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		case "users":
			switch r.Method {
			case http.MethodGet:
				h.handleListUsers(w, r, projectID)
			case http.MethodPost:
				h.handleCreateUser(w, r, projectID)
			default:
				writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		case "metrics":
			requireGet(w, r, func() { h.handleProgramMetrics(w, r, projectID) })
		case "events":
			requireGet(w, r, func() { h.handleListEvents(w, r, projectID) })
		case "export":
			requireGet(w, r, func() { h.handleExport(w, r, projectID) })
		default:
			writeNotFound(w)
		}
	default:
		writeNotFound(w)
	}
}

func (h *Handler) routeStreams(w http.ResponseWriter, r *http.Request, segs []string) {
	switch {
	case len(segs) == 1:
		switch r.Method {
		case http.MethodPatch:
			h.handleUpdateStream(w, r, segs[0])
		case http.MethodDelete:
			h.handleDeleteStream(w, r, segs[0])
		default:
			writeMethodNotAllowed(w, http.MethodPatch, http.MethodDelete)
		}
	case len(segs) == 2:
		streamID := segs[0]
		switch segs[1] {
		case "status":
			requirePost(w, r, func() { h.handleStreamStatus(w, r, streamID) })
		case "position":
			requirePost(w, r, func() { h.handleStreamPosition(w, r, streamID) })
		case "metrics":
			requireGet(w, r, func() { h.handleStreamMetrics(w, r, streamID) })
		default:
			writeNotFound(w)
		}
	default:
		writeNotFound(w)
	}
}

func (h *Handler) routeDeliverables(w http.ResponseWriter, r *http.Request, segs []string) {
	switch {
	case len(segs) == 1:
		switch r.Method {
		case http.MethodGet:
			h.handleGetDeliverable(w, r, segs[0])
		case http.MethodPatch:
			h.handleUpdateDeliverable(w, r, segs[0])
		case http.MethodDelete:
			h.handleDeleteDeliverable(w, r, segs[0])
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
		}
	case len(segs) == 2:
		id := segs[0]
		switch segs[1] {
		case "recommit":
			requirePost(w, r, func() { h.handleRecommit(w, r, id) })
		case "complete":
			requirePost(w, r, func() { h.handleComplete(w, r, id) })
		case "readiness":
			requirePost(w, r, func() { h.handleReadiness(w, r, id) })
		case "move":
			requirePost(w, r, func() { h.handleMove(w, r, id) })
		case "assign":
			requirePost(w, r, func() { h.handleAssign(w, r, id) })
		case "dependencies":
			if r.Method != http.MethodPut {
				writeMethodNotAllowed(w, http.MethodPut)
				return
			}
			h.handleDependencies(w, r, id)
		case "checklist":
			requirePost(w, r, func() { h.handleChecklistAdd(w, r, id) })
		case "tracks":
			switch r.Method {
			case http.MethodGet:
				h.handleListTracks(w, r, id)
			case http.MethodPost:
				h.handleCreateTrack(w, r, id)
			default:
				writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		default:
			writeNotFound(w)
		}
	case len(segs) == 3 && segs[1] == "checklist":
		id, itemID := segs[0], segs[2]
		switch r.Method {
		case http.MethodPatch:
			h.handleChecklistToggle(w, r, id, itemID)
		case http.MethodDelete:
			h.handleChecklistRemove(w, r, id, itemID)
		default:
			writeMethodNotAllowed(w, http.MethodPatch, http.MethodDelete)
		}
	default:
		writeNotFound(w)
	}
}

func (h *Handler) routeNotes(w http.ResponseWriter, r *http.Request, segs []string) {
	switch {
	case len(segs) == 1:
		switch r.Method {
		case http.MethodPatch:
			h.handleUpdateNote(w, r, segs[0])
		case http.MethodDelete:
			h.handleDeleteNote(w, r, segs[0])
		default:
			writeMethodNotAllowed(w, http.MethodPatch, http.MethodDelete)
		}
	case len(segs) == 2 && segs[1] == "promote":
		requirePost(w, r, func() { h.handlePromoteNote(w, r, segs[0]) })
	default:
		writeNotFound(w)
	}
}

func (h *Handler) routeTracks(w http.ResponseWriter, r *http.Request, segs []string) {
	switch {
	case len(segs) == 1:
		if r.Method != http.MethodDelete {
			writeMethodNotAllowed(w, http.MethodDelete)
			return
		}
		h.handleDeleteTrack(w, r, segs[0])
	case len(segs) == 2:
		id := segs[0]
		switch segs[1] {
		case "recommit":
			requirePost(w, r, func() { h.handleTrackRecommit(w, r, id) })
		case "complete":
			requirePost(w, r, func() { h.handleTrackComplete(w, r, id) })
		case "health":
			requirePost(w, r, func() { h.handleTrackHealth(w, r, id) })
		default:
			writeNotFound(w)
		}
	default:
		writeNotFound(w)
	}
}

func (h *Handler) routeUsers(w http.ResponseWriter, r *http.Request, segs []string) {
	switch {
	case len(segs) == 1:
		if r.Method != http.MethodPatch {
			writeMethodNotAllowed(w, http.MethodPatch)
			return
		}
		h.handleUpdateUser(w, r, segs[0])
	case len(segs) == 2 && segs[1] == "deactivate":
		requirePost(w, r, func() { h.handleDeactivateUser(w, r, segs[0]) })
	default:
		writeNotFound(w)
	}
}

func (h *Handler) routeComments(w http.ResponseWriter, r *http.Request, segs []string) {
	if len(segs) != 1 {
		writeNotFound(w)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.handleListComments(w, r)
	case http.MethodPost:
		h.handleCreateComment(w, r)
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("include_archived") == "true"
	projects, err := h.svc.ListProjects(r.Context(), includeArchived)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	out := make([]projectPayload, 0, len(projects))
	for _, p := range projects {
		out = append(out, presentProject(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": out})
}

func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	project, err := h.svc.CreateProject(r.Context(), req.Name, req.Description)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentProject(project))
}

func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request, projectID string) {
	project, err := h.svc.GetProject(r.Context(), projectID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentProject(project))
}

func (h *Handler) handleUpdateProject(w http.ResponseWriter, r *http.Request, projectID string) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	project, err := h.svc.UpdateProject(r.Context(), projectID, req.Name, req.Description)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentProject(project))
}

func (h *Handler) handleArchiveProject(w http.ResponseWriter, r *http.Request, projectID string) {
	if err := h.svc.ArchiveProject(r.Context(), projectID); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListStreams(w http.ResponseWriter, r *http.Request, projectID string) {
	streams, err := h.svc.ListStreams(r.Context(), projectID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	out := make([]streamPayload, 0, len(streams))
	for _, s := range streams {
		out = append(out, presentStream(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"streams": out})
}

func (h *Handler) handleCreateStream(w http.ResponseWriter, r *http.Request, projectID string) {
	var req struct {
		Name        string `json:"name"`
		Color       string `json:"color"`
		Description string `json:"description"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	stream, err := h.svc.CreateStream(r.Context(), app.CreateStreamInput{
		ProjectID:   projectID,
		Name:        req.Name,
		Color:       req.Color,
		Description: req.Description,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentStream(stream))
}

func (h *Handler) handleUpdateStream(w http.ResponseWriter, r *http.Request, streamID string) {
	var req struct {
		Name        string `json:"name"`
		Color       string `json:"color"`
		Description string `json:"description"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	stream, err := h.svc.UpdateStream(r.Context(), streamID, req.Name, req.Color, req.Description)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentStream(stream))
}

func (h *Handler) handleDeleteStream(w http.ResponseWriter, r *http.Request, streamID string) {
	if err := h.svc.DeleteStream(r.Context(), streamID); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStreamStatus(w http.ResponseWriter, r *http.Request, streamID string) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	stream, err := h.svc.SetStreamStatus(r.Context(), streamID, domain.StreamStatus(req.Status))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentStream(stream))
}

func (h *Handler) handleStreamPosition(w http.ResponseWriter, r *http.Request, streamID string) {
	var req struct {
		Position int `json:"position"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	stream, err := h.svc.ReorderStream(r.Context(), streamID, req.Position)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentStream(stream))
}

func (h *Handler) handleStreamMetrics(w http.ResponseWriter, r *http.Request, streamID string) {
	summary, err := h.svc.StreamSummary(r.Context(), streamID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleListDeliverables(w http.ResponseWriter, r *http.Request, projectID string) {
	items, err := h.svc.ListDeliverables(r.Context(), projectID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deliverables": presentDeliverables(items)})
}

func (h *Handler) handleCreateDeliverable(w http.ResponseWriter, r *http.Request, projectID string) {
	var req struct {
		StreamID       string     `json:"stream_id"`
		Title          string     `json:"title"`
		Description    string     `json:"description"`
		TargetDate     *time.Time `json:"target_date"`
		AssignedUserID string     `json:"assigned_user_id"`
		OwnerName      string     `json:"owner_name"`
		OwnerEmail     string     `json:"owner_email"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	deliverable, err := h.svc.CreateDeliverable(r.Context(), app.CreateDeliverableInput{
		ProjectID:      projectID,
		StreamID:       req.StreamID,
		Title:          req.Title,
		Description:    req.Description,
		TargetDate:     req.TargetDate,
		AssignedUserID: req.AssignedUserID,
		OwnerName:      req.OwnerName,
		OwnerEmail:     req.OwnerEmail,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentDeliverable(deliverable))
}

func (h *Handler) handleGetDeliverable(w http.ResponseWriter, r *http.Request, id string) {
	deliverable, err := h.svc.GetDeliverable(r.Context(), id)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentDeliverable(deliverable))
}

func (h *Handler) handleUpdateDeliverable(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Title          string `json:"title"`
		Description    string `json:"description"`
		AssignedUserID string `json:"assigned_user_id"`
		OwnerName      string `json:"owner_name"`
		OwnerEmail     string `json:"owner_email"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	deliverable, err := h.svc.UpdateDeliverable(r.Context(), app.UpdateDeliverableInput{
		DeliverableID:  id,
		Title:          req.Title,
		Description:    req.Description,
		AssignedUserID: req.AssignedUserID,
		OwnerName:      req.OwnerName,
		OwnerEmail:     req.OwnerEmail,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentDeliverable(deliverable))
}

func (h *Handler) handleDeleteDeliverable(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.svc.DeleteDeliverable(r.Context(), id); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRecommit(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		NewDate     *time.Time `json:"new_date"`
		Reason      string     `json:"reason"`
		Explanation string     `json:"explanation"`
		Actor       string     `json:"actor"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	deliverable, err := h.svc.RecommitDeliverable(r.Context(), app.RecommitInput{
		DeliverableID: id,
		NewDate:       req.NewDate,
		Reason:        req.Reason,
		Explanation:   req.Explanation,
		Actor:         req.Actor,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentDeliverable(deliverable))
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request, id string) {
	deliverable, err := h.svc.CompleteDeliverable(r.Context(), id)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentDeliverable(deliverable))
}

func (h *Handler) handleReadiness(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Readiness string `json:"readiness"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	deliverable, err := h.svc.SetDeliverableReadiness(r.Context(), id, domain.Readiness(req.Readiness))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentDeliverable(deliverable))
}

func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		StreamID string `json:"stream_id"`
		Position int    `json:"position"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	deliverable, err := h.svc.MoveDeliverable(r.Context(), id, req.StreamID, req.Position)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentDeliverable(deliverable))
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	deliverable, err := h.svc.AssignDeliverable(r.Context(), id, req.UserID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentDeliverable(deliverable))
}

func (h *Handler) handleDependencies(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Dependencies []string `json:"dependencies"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	deliverable, err := h.svc.SetDeliverableDependencies(r.Context(), id, req.Dependencies)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentDeliverable(deliverable))
}

func (h *Handler) handleChecklistAdd(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	deliverable, err := h.svc.AddChecklistItem(r.Context(), id, req.Text)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentDeliverable(deliverable))
}

func (h *Handler) handleChecklistToggle(w http.ResponseWriter, r *http.Request, id, itemID string) {
	var req struct {
		Done bool `json:"done"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	deliverable, err := h.svc.ToggleChecklistItem(r.Context(), id, itemID, req.Done)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentDeliverable(deliverable))
}

func (h *Handler) handleChecklistRemove(w http.ResponseWriter, r *http.Request, id, itemID string) {
	deliverable, err := h.svc.RemoveChecklistItem(r.Context(), id, itemID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentDeliverable(deliverable))
}

func (h *Handler) handleListNotes(w http.ResponseWriter, r *http.Request, projectID string) {
	includePromoted := r.URL.Query().Get("include_promoted") == "true"
	notes, err := h.svc.ListNotes(r.Context(), projectID, includePromoted)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	out := make([]notePayload, 0, len(notes))
	for _, n := range notes {
		out = append(out, presentNote(n))
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": out})
}

func (h *Handler) handleCreateNote(w http.ResponseWriter, r *http.Request, projectID string) {
	var req struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
		StreamID    string   `json:"stream_id"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	note, err := h.svc.CreateNote(r.Context(), app.CreateNoteInput{
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		StreamID:    req.StreamID,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentNote(note))
}

func (h *Handler) handleUpdateNote(w http.ResponseWriter, r *http.Request, noteID string) {
	var req struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
		StreamID    string   `json:"stream_id"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	note, err := h.svc.UpdateNote(r.Context(), noteID, req.Title, req.Description, req.Tags, req.StreamID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentNote(note))
}

func (h *Handler) handleDeleteNote(w http.ResponseWriter, r *http.Request, noteID string) {
	if err := h.svc.DeleteNote(r.Context(), noteID); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePromoteNote(w http.ResponseWriter, r *http.Request, noteID string) {
	var req struct {
		StreamID   string     `json:"stream_id"`
		TargetDate *time.Time `json:"target_date"`
	}
	if err := decodeOptionalJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	deliverable, err := h.svc.PromoteNote(r.Context(), app.PromoteNoteInput{
		NoteID:     noteID,
		StreamID:   req.StreamID,
		TargetDate: req.TargetDate,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentDeliverable(deliverable))
}

func (h *Handler) handleListTracks(w http.ResponseWriter, r *http.Request, deliverableID string) {
	tracks, err := h.svc.ListTracksByDeliverable(r.Context(), deliverableID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	out := make([]trackPayload, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, presentTrack(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": out})
}

func (h *Handler) handleCreateTrack(w http.ResponseWriter, r *http.Request, deliverableID string) {
	var req struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Vendor      string     `json:"vendor"`
		TargetDate  *time.Time `json:"target_date"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	track, err := h.svc.CreateTrack(r.Context(), app.CreateTrackInput{
		DeliverableID: deliverableID,
		Title:         req.Title,
		Description:   req.Description,
		Vendor:        req.Vendor,
		TargetDate:    req.TargetDate,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentTrack(track))
}

func (h *Handler) handleTrackRecommit(w http.ResponseWriter, r *http.Request, trackID string) {
	var req struct {
		NewDate *time.Time `json:"new_date"`
		Reason  string     `json:"reason"`
		Actor   string     `json:"actor"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	track, err := h.svc.RecommitTrack(r.Context(), trackID, req.NewDate, req.Reason, req.Actor)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentTrack(track))
}

func (h *Handler) handleTrackComplete(w http.ResponseWriter, r *http.Request, trackID string) {
	track, err := h.svc.CompleteTrack(r.Context(), trackID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentTrack(track))
}

func (h *Handler) handleTrackHealth(w http.ResponseWriter, r *http.Request, trackID string) {
	var req struct {
		Health   string `json:"health"`
		SlipDays int    `json:"slip_days"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	track, err := h.svc.SetTrackHealth(r.Context(), trackID, domain.TrackHealth(req.Health), req.SlipDays)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentTrack(track))
}

func (h *Handler) handleDeleteTrack(w http.ResponseWriter, r *http.Request, trackID string) {
	if err := h.svc.DeleteTrack(r.Context(), trackID); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request, projectID string) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	users, err := h.svc.ListUsers(r.Context(), projectID, includeInactive)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	out := make([]userPayload, 0, len(users))
	for _, u := range users {
		out = append(out, presentUser(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request, projectID string) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	user, err := h.svc.CreateUser(r.Context(), projectID, req.Name, req.Email, req.Role)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentUser(user))
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	user, err := h.svc.UpdateUser(r.Context(), userID, req.Name, req.Email, req.Role)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentUser(user))
}

func (h *Handler) handleDeactivateUser(w http.ResponseWriter, r *http.Request, userID string) {
	user, err := h.svc.DeactivateUser(r.Context(), userID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentUser(user))
}

func (h *Handler) handleListComments(w http.ResponseWriter, r *http.Request) {
	target := domain.CommentTarget{
		ProjectID:  r.URL.Query().Get("project_id"),
		TargetType: domain.CommentTargetType(r.URL.Query().Get("target_type")),
		TargetID:   r.URL.Query().Get("target_id"),
	}
	comments, err := h.svc.ListComments(r.Context(), target)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	out := make([]commentPayload, 0, len(comments))
	for _, c := range comments {
		out = append(out, presentComment(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": out})
}

func (h *Handler) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID  string `json:"project_id"`
		TargetType string `json:"target_type"`
		TargetID   string `json:"target_id"`
		Body       string `json:"body"`
		Author     string `json:"author"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	comment, err := h.svc.AddComment(r.Context(), domain.CommentTarget{
		ProjectID:  req.ProjectID,
		TargetType: domain.CommentTargetType(req.TargetType),
		TargetID:   req.TargetID,
	}, req.Body, req.Author)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentComment(comment))
}

func (h *Handler) handleProgramMetrics(w http.ResponseWriter, r *http.Request, projectID string) {
	summary, err := h.svc.ProgramSummary(r.Context(), projectID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request, projectID string) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSONError(w, http.StatusBadRequest, APIError{
				Code:    "invalid_request",
				Message: "limit must be a non-negative integer",
			})
			return
		}
		limit = parsed
	}
	events, err := h.svc.ListProjectChangeEvents(r.Context(), projectID, limit)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	out := make([]changeEventPayload, 0, len(events))
	for _, e := range events {
		out = append(out, presentChangeEvent(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, projectID string) {
	streams, err := h.svc.ListStreams(r.Context(), projectID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	deliverables, err := h.svc.ListDeliverables(r.Context(), projectID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	tracks, err := h.svc.ListTracks(r.Context(), projectID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="program-export.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, streams, deliverables, tracks); err != nil {
		// Headers are already out; nothing recoverable to send.
		return
	}
}

func requireGet(w http.ResponseWriter, r *http.Request, fn func()) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	fn()
}

func requirePost(w http.ResponseWriter, r *http.Request, fn func()) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}
	fn()
}

// splitPath canonicalizes one request path into non-empty segments.
func splitPath(path string) []string {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// writeErrorFrom maps service and domain errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.Is(err, app.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrDependencyCycle):
		writeJSONError(w, http.StatusConflict, APIError{
			Code:    "dependency_cycle",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrAlreadyPromoted):
		writeJSONError(w, http.StatusConflict, APIError{
			Code:    "already_promoted",
			Message: err.Error(),
		})
	case isDomainValidationErr(err), errors.Is(err, errInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

func isDomainValidationErr(err error) bool {
	for _, sentinel := range []error{
		domain.ErrInvalidID,
		domain.ErrInvalidName,
		domain.ErrInvalidTitle,
		domain.ErrInvalidStreamID,
		domain.ErrInvalidPosition,
		domain.ErrInvalidReadiness,
		domain.ErrInvalidStreamStatus,
		domain.ErrInvalidTrackHealth,
		domain.ErrInvalidReason,
		domain.ErrChecklistItemNotFound,
		domain.ErrSelfDependency,
		domain.ErrInvalidBody,
		domain.ErrInvalidTargetType,
		domain.ErrInvalidTargetID,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func writeNotFound(w http.ResponseWriter) {
	writeJSONError(w, http.StatusNotFound, APIError{
		Code:    "not_found",
		Message: "endpoint not found",
	})
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(errInvalidRequest, err))
	}
	// Reject trailing payloads so malformed JSON bodies fail closed.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", errInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}

// decodeOptionalJSONBody decodes one optional JSON body and ignores empty payloads.
func decodeOptionalJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(out)
	if err == nil {
		select {
		case <-ctx.Done():
			return fmt.Errorf("request canceled: %w", ctx.Err())
		default:
			return nil
		}
	}
	if errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("decode request body: %w", errors.Join(errInvalidRequest, err))
}

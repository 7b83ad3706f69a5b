package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rtgae/alignd/internal/adapters/storage/sqlite"
	"github.com/rtgae/alignd/internal/app"
)

func newTestHandler(t *testing.T) *Handler {
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
	return NewHandler(svc)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func createBoard(t *testing.T, h *Handler) (projectID, streamID string) {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, "/projects", map[string]any{
		"name": "Launch", "description": "Q2 launch program",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project: status %d body %s", rec.Code, rec.Body.String())
	}
	var project struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &project)

	rec = doJSON(t, h, http.MethodPost, "/projects/"+project.ID+"/streams", map[string]any{
		"name": "Design",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create stream: status %d body %s", rec.Code, rec.Body.String())
	}
	var stream struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &stream)
	return project.ID, stream.ID
}

func TestHandlerDeliverableRecommitFlow(t *testing.T) {
	h := newTestHandler(t)
	projectID, streamID := createBoard(t, h)

	rec := doJSON(t, h, http.MethodPost, "/projects/"+projectID+"/deliverables", map[string]any{
		"stream_id":   streamID,
		"title":       "Wireframes",
		"target_date": "2026-04-01T00:00:00Z",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create deliverable: status %d body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID            string `json:"id"`
		RecommitCount int    `json:"recommit_count"`
	}
	decodeBody(t, rec, &created)
	if created.RecommitCount != 0 {
		t.Fatalf("recommit_count = %d, want 0", created.RecommitCount)
	}

	// Recommitting without a reason is rejected.
	rec = doJSON(t, h, http.MethodPost, "/deliverables/"+created.ID+"/recommit", map[string]any{
		"new_date": "2026-04-10T00:00:00Z",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("recommit without reason: status %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/deliverables/"+created.ID+"/recommit", map[string]any{
		"new_date": "2026-04-10T00:00:00Z",
		"reason":   "vendor delay",
		"actor":    "dana",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("recommit: status %d body %s", rec.Code, rec.Body.String())
	}
	var recommitted struct {
		RecommitCount    int    `json:"recommit_count"`
		PlanningAccuracy *int   `json:"planning_accuracy"`
		OriginalDate     string `json:"original_date"`
		DateHistory      []struct {
			Reason    string `json:"reason"`
			ChangedBy string `json:"changed_by"`
		} `json:"date_history"`
	}
	decodeBody(t, rec, &recommitted)
	if recommitted.RecommitCount != 1 {
		t.Fatalf("recommit_count = %d, want 1", recommitted.RecommitCount)
	}
	if recommitted.PlanningAccuracy == nil || *recommitted.PlanningAccuracy != 90 {
		t.Fatalf("planning_accuracy = %v, want 90", recommitted.PlanningAccuracy)
	}
	if !strings.HasPrefix(recommitted.OriginalDate, "2026-04-01") {
		t.Fatalf("original_date = %q, want baseline preserved", recommitted.OriginalDate)
	}
	if len(recommitted.DateHistory) != 1 || recommitted.DateHistory[0].ChangedBy != "dana" {
		t.Fatalf("date_history = %+v", recommitted.DateHistory)
	}

	rec = doJSON(t, h, http.MethodPost, "/deliverables/"+created.ID+"/complete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/projects/"+projectID+"/events?limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("events: status %d body %s", rec.Code, rec.Body.String())
	}
	var events struct {
		Events []struct {
			Operation string `json:"operation"`
		} `json:"events"`
	}
	decodeBody(t, rec, &events)
	if len(events.Events) == 0 {
		t.Fatal("expected change events")
	}
	if events.Events[0].Operation != "complete" {
		t.Fatalf("newest event = %q, want complete", events.Events[0].Operation)
	}
}

func TestHandlerNotePromotion(t *testing.T) {
	h := newTestHandler(t)
	projectID, streamID := createBoard(t, h)

	rec := doJSON(t, h, http.MethodPost, "/projects/"+projectID+"/notes", map[string]any{
		"title": "Risk: vendor contract",
		"tags":  []string{"risk"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create note: status %d body %s", rec.Code, rec.Body.String())
	}
	var note struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &note)

	rec = doJSON(t, h, http.MethodPost, "/notes/"+note.ID+"/promote", map[string]any{
		"stream_id": streamID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("promote: status %d body %s", rec.Code, rec.Body.String())
	}
	var deliverable struct {
		StreamID           string `json:"stream_id"`
		PromotedFromNoteID string `json:"promoted_from_note_id"`
	}
	decodeBody(t, rec, &deliverable)
	if deliverable.StreamID != streamID || deliverable.PromotedFromNoteID != note.ID {
		t.Fatalf("promoted deliverable = %+v", deliverable)
	}

	// Second promotion conflicts.
	rec = doJSON(t, h, http.MethodPost, "/notes/"+note.ID+"/promote", map[string]any{
		"stream_id": streamID,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second promote: status %d, want 409", rec.Code)
	}
}

func TestHandlerDependencyCycleConflict(t *testing.T) {
	h := newTestHandler(t)
	projectID, streamID := createBoard(t, h)

	var ids []string
	for _, title := range []string{"A", "B"} {
		rec := doJSON(t, h, http.MethodPost, "/projects/"+projectID+"/deliverables", map[string]any{
			"stream_id": streamID,
			"title":     title,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create deliverable: status %d body %s", rec.Code, rec.Body.String())
		}
		var d struct {
			ID string `json:"id"`
		}
		decodeBody(t, rec, &d)
		ids = append(ids, d.ID)
	}

	rec := doJSON(t, h, http.MethodPut, "/deliverables/"+ids[0]+"/dependencies", map[string]any{
		"dependencies": []string{ids[1]},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set dependencies: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPut, "/deliverables/"+ids[1]+"/dependencies", map[string]any{
		"dependencies": []string{ids[0]},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("cycle: status %d, want 409", rec.Code)
	}
}

func TestHandlerMethodAndShapeErrors(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodDelete, "/projects", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); !strings.Contains(allow, http.MethodPost) {
		t.Fatalf("Allow = %q, want POST listed", allow)
	}

	req := httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(`{"name":"x","bogus":true}`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: status %d, want 400", rec.Code)
	}
	var envelope ErrorEnvelope
	decodeBody(t, rec, &envelope)
	if envelope.Error.Code != "invalid_request" {
		t.Fatalf("error code = %q, want invalid_request", envelope.Error.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/deliverables/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing deliverable: status %d, want 404", rec.Code)
	}
}

func TestHandlerMetricsAndExport(t *testing.T) {
	h := newTestHandler(t)
	projectID, streamID := createBoard(t, h)

	rec := doJSON(t, h, http.MethodPost, "/projects/"+projectID+"/deliverables", map[string]any{
		"stream_id":   streamID,
		"title":       "Wireframes",
		"target_date": "2026-04-01T00:00:00Z",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create deliverable: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/projects/"+projectID+"/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: status %d body %s", rec.Code, rec.Body.String())
	}
	var summary struct {
		Deliverables  int `json:"deliverables"`
		ActiveStreams int `json:"active_streams"`
	}
	decodeBody(t, rec, &summary)
	if summary.Deliverables != 1 || summary.ActiveStreams != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	rec = doJSON(t, h, http.MethodGet, "/streams/"+streamID+"/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stream metrics: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/projects/"+projectID+"/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: status %d body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content type = %q, want text/csv", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Design") || !strings.Contains(body, "Wireframes") {
		t.Fatalf("export body missing rows: %s", body)
	}
}

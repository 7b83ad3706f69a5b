package httpapi

import (
	"time"

	"github.com/rtgae/alignd/internal/domain"
)

// projectPayload is the wire shape for one project.
type projectPayload struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
}

func presentProject(p domain.Project) projectPayload {
	return projectPayload{
		ID:          p.ID,
		Slug:        p.Slug,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		ArchivedAt:  p.ArchivedAt,
	}
}

type streamPayload struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func presentStream(s domain.Stream) streamPayload {
	return streamPayload{
		ID:          s.ID,
		ProjectID:   s.ProjectID,
		Name:        s.Name,
		Color:       s.Color,
		Description: s.Description,
		Status:      string(s.Status),
		Position:    s.Position,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

type deliverablePayload struct {
	ID                 string                 `json:"id"`
	ProjectID          string                 `json:"project_id"`
	StreamID           string                 `json:"stream_id"`
	Position           int                    `json:"position"`
	Title              string                 `json:"title"`
	Description        string                 `json:"description"`
	Readiness          string                 `json:"readiness"`
	TargetDate         *time.Time             `json:"target_date"`
	OriginalDate       *time.Time             `json:"original_date"`
	DateHistory        []domain.DateChange    `json:"date_history"`
	RecommitReasons    []string               `json:"recommit_reasons"`
	RecommitCount      int                    `json:"recommit_count"`
	PlanningAccuracy   *int                   `json:"planning_accuracy"`
	CompletedAt        *time.Time             `json:"completed_at,omitempty"`
	Checklist          []domain.ChecklistItem `json:"checklist"`
	Dependencies       []string               `json:"dependencies"`
	AssignedUserID     string                 `json:"assigned_user_id,omitempty"`
	OwnerName          string                 `json:"owner_name,omitempty"`
	OwnerEmail         string                 `json:"owner_email,omitempty"`
	PromotedFromNoteID string                 `json:"promoted_from_note_id,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

func presentDeliverable(d domain.Deliverable) deliverablePayload {
	history := d.DateHistory
	if history == nil {
		history = []domain.DateChange{}
	}
	reasons := d.RecommitReasons
	if reasons == nil {
		reasons = []string{}
	}
	checklist := d.Checklist
	if checklist == nil {
		checklist = []domain.ChecklistItem{}
	}
	deps := d.Dependencies
	if deps == nil {
		deps = []string{}
	}
	return deliverablePayload{
		ID:                 d.ID,
		ProjectID:          d.ProjectID,
		StreamID:           d.StreamID,
		Position:           d.Position,
		Title:              d.Title,
		Description:        d.Description,
		Readiness:          string(d.Readiness),
		TargetDate:         d.TargetDate,
		OriginalDate:       d.OriginalDate,
		DateHistory:        history,
		RecommitReasons:    reasons,
		RecommitCount:      d.RecommitCount,
		PlanningAccuracy:   d.PlanningAccuracy,
		CompletedAt:        d.CompletedAt,
		Checklist:          checklist,
		Dependencies:       deps,
		AssignedUserID:     d.AssignedUserID,
		OwnerName:          d.OwnerName,
		OwnerEmail:         d.OwnerEmail,
		PromotedFromNoteID: d.PromotedFromNoteID,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

func presentDeliverables(items []domain.Deliverable) []deliverablePayload {
	out := make([]deliverablePayload, 0, len(items))
	for _, d := range items {
		out = append(out, presentDeliverable(d))
	}
	return out
}

type notePayload struct {
	ID                    string     `json:"id"`
	ProjectID             string     `json:"project_id"`
	StreamID              string     `json:"stream_id,omitempty"`
	Title                 string     `json:"title"`
	Description           string     `json:"description"`
	Tags                  []string   `json:"tags"`
	Promoted              bool       `json:"promoted"`
	PromotedAt            *time.Time `json:"promoted_at,omitempty"`
	PromotedDeliverableID string     `json:"promoted_deliverable_id,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func presentNote(n domain.WhiteboardNote) notePayload {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return notePayload{
		ID:                    n.ID,
		ProjectID:             n.ProjectID,
		StreamID:              n.StreamID,
		Title:                 n.Title,
		Description:           n.Description,
		Tags:                  tags,
		Promoted:              n.Promoted,
		PromotedAt:            n.PromotedAt,
		PromotedDeliverableID: n.PromotedDeliverableID,
		CreatedAt:             n.CreatedAt,
		UpdatedAt:             n.UpdatedAt,
	}
}

type trackPayload struct {
	ID              string              `json:"id"`
	ProjectID       string              `json:"project_id"`
	DeliverableID   string              `json:"deliverable_id"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	Vendor          string              `json:"vendor"`
	TargetDate      *time.Time          `json:"target_date"`
	Health          string              `json:"health"`
	SlipDays        int                 `json:"slip_days"`
	RecommitCount   int                 `json:"recommit_count"`
	RecommitHistory []domain.DateChange `json:"recommit_history"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
}

func presentTrack(t domain.ExecutionTrack) trackPayload {
	history := t.RecommitHistory
	if history == nil {
		history = []domain.DateChange{}
	}
	return trackPayload{
		ID:              t.ID,
		ProjectID:       t.ProjectID,
		DeliverableID:   t.DeliverableID,
		Title:           t.Title,
		Description:     t.Description,
		Vendor:          t.Vendor,
		TargetDate:      t.TargetDate,
		Health:          string(t.Health),
		SlipDays:        t.SlipDays,
		RecommitCount:   t.RecommitCount,
		RecommitHistory: history,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		CompletedAt:     t.CompletedAt,
	}
}

type userPayload struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func presentUser(u domain.User) userPayload {
	return userPayload{
		ID:        u.ID,
		ProjectID: u.ProjectID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type commentPayload struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	TargetType string    `json:"target_type"`
	TargetID   string    `json:"target_id"`
	Body       string    `json:"body"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func presentComment(c domain.Comment) commentPayload {
	return commentPayload{
		ID:         c.ID,
		ProjectID:  c.ProjectID,
		TargetType: string(c.TargetType),
		TargetID:   c.TargetID,
		Body:       c.Body,
		AuthorName: c.AuthorName,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

type changeEventPayload struct {
	ID         int64             `json:"id"`
	ProjectID  string            `json:"project_id"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Operation  string            `json:"operation"`
	ActorID    string            `json:"actor_id"`
	Metadata   map[string]string `json:"metadata"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func presentChangeEvent(e domain.ChangeEvent) changeEventPayload {
	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	return changeEventPayload{
		ID:         e.ID,
		ProjectID:  e.ProjectID,
		EntityType: string(e.EntityType),
		EntityID:   e.EntityID,
		Operation:  string(e.Operation),
		ActorID:    e.ActorID,
		Metadata:   metadata,
		OccurredAt: e.OccurredAt,
	}
}

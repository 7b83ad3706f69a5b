package domain

import (
	"math"
	"slices"
	"strings"
	"time"
)

// Readiness represents the delivery status of a deliverable.
type Readiness string

// Readiness values. The set is deliberately unconstrained as a state machine:
// any readiness is settable from any other.
const (
	ReadinessPlanning  Readiness = "planning"
	ReadinessAlignment Readiness = "alignment"
	ReadinessReady     Readiness = "ready"
	ReadinessExecuting Readiness = "executing"
	ReadinessBlocked   Readiness = "blocked"
	ReadinessReview    Readiness = "review"
	ReadinessComplete  Readiness = "complete"
)

var validReadiness = []Readiness{
	ReadinessPlanning,
	ReadinessAlignment,
	ReadinessReady,
	ReadinessExecuting,
	ReadinessBlocked,
	ReadinessReview,
	ReadinessComplete,
}

// recommitPenalty and slipPenalty are the planning-accuracy deductions per
// recommit and per post-completion slip day.
const (
	recommitPenalty = 10
	slipPenalty     = 2
)

// DateChange is one immutable audit record of a target-date change.
type DateChange struct {
	ID          string     `json:"id"`
	OldDate     *time.Time `json:"old_date"`
	NewDate     *time.Time `json:"new_date"`
	Reason      string     `json:"reason"`
	Explanation string     `json:"explanation"`
	ChangedBy   string     `json:"changed_by"`
	ChangedAt   time.Time  `json:"changed_at"`
}

// ChecklistItem is one ordered checklist entry owned by a deliverable.
type ChecklistItem struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	Done      bool       `json:"done"`
	CreatedAt time.Time  `json:"created_at"`
	DoneAt    *time.Time `json:"done_at,omitempty"`
}

// Deliverable is a trackable unit of work with a committed target date and a
// full recommit audit trail.
type Deliverable struct {
	ID          string
	ProjectID   string
	StreamID    string // empty = unassigned
	Position    int
	Title       string
	Description string
	Readiness   Readiness
	TargetDate  *time.Time

	// OriginalDate is the immutable baseline for slip measurement. Once
	// non-nil it never changes for the life of the deliverable.
	OriginalDate     *time.Time
	DateHistory      []DateChange
	RecommitReasons  []string
	RecommitCount    int
	PlanningAccuracy *int // nil iff OriginalDate is nil
	CompletedAt      *time.Time

	Checklist    []ChecklistItem
	Dependencies []string

	AssignedUserID     string
	OwnerName          string
	OwnerEmail         string
	PromotedFromNoteID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DeliverableInput holds input values for deliverable creation.
type DeliverableInput struct {
	ID                 string
	ProjectID          string
	StreamID           string
	Position           int
	Title              string
	Description        string
	Readiness          Readiness
	TargetDate         *time.Time
	AssignedUserID     string
	OwnerName          string
	OwnerEmail         string
	PromotedFromNoteID string
}

// NewDeliverable constructs a deliverable with the baseline captured from the
// initial target date.
func NewDeliverable(in DeliverableInput, now time.Time) (Deliverable, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.ProjectID = strings.TrimSpace(in.ProjectID)
	in.StreamID = strings.TrimSpace(in.StreamID)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	if in.ID == "" {
		return Deliverable{}, ErrInvalidID
	}
	if in.ProjectID == "" {
		return Deliverable{}, ErrInvalidID
	}
	if in.Title == "" {
		return Deliverable{}, ErrInvalidTitle
	}
	if in.Position < 0 {
		return Deliverable{}, ErrInvalidPosition
	}
	if in.Readiness == "" {
		in.Readiness = ReadinessPlanning
	}
	if !slices.Contains(validReadiness, in.Readiness) {
		return Deliverable{}, ErrInvalidReadiness
	}

	target := normalizeDate(in.TargetDate)
	d := Deliverable{
		ID:                 in.ID,
		ProjectID:          in.ProjectID,
		StreamID:           in.StreamID,
		Position:           in.Position,
		Title:              in.Title,
		Description:        in.Description,
		Readiness:          in.Readiness,
		TargetDate:         target,
		OriginalDate:       normalizeDate(in.TargetDate),
		DateHistory:        []DateChange{},
		RecommitReasons:    []string{},
		Checklist:          []ChecklistItem{},
		Dependencies:       []string{},
		AssignedUserID:     strings.TrimSpace(in.AssignedUserID),
		OwnerName:          strings.TrimSpace(in.OwnerName),
		OwnerEmail:         strings.TrimSpace(in.OwnerEmail),
		PromotedFromNoteID: strings.TrimSpace(in.PromotedFromNoteID),
		CreatedAt:          now.UTC(),
		UpdatedAt:          now.UTC(),
	}
	d.RecomputePlanningAccuracy()
	return d, nil
}

// RecordDateChange appends an immutable audit record for a target-date change
// and moves the committed target to newDate. The operation is total: no input
// combination fails. Reason emptiness is the caller's concern.
//
// Baseline capture: the baseline is taken from the pre-change target date the
// first time a change is recorded. When no prior target existed the baseline
// is captured from newDate instead, so slip measurement works from the first
// real commitment onward.
func (d *Deliverable) RecordDateChange(changeID string, newDate *time.Time, reason, explanation, actor string, now time.Time) {
	newDate = normalizeDate(newDate)
	if d.OriginalDate == nil {
		if d.TargetDate != nil {
			d.OriginalDate = copyDate(d.TargetDate)
		} else {
			d.OriginalDate = copyDate(newDate)
		}
	}

	change := DateChange{
		ID:          strings.TrimSpace(changeID),
		OldDate:     copyDate(d.TargetDate),
		NewDate:     copyDate(newDate),
		Reason:      reason,
		Explanation: explanation,
		ChangedBy:   strings.TrimSpace(actor),
		ChangedAt:   now.UTC(),
	}
	d.DateHistory = append(d.DateHistory, change)
	d.RecommitReasons = append(d.RecommitReasons, reason)
	d.RecommitCount = len(d.DateHistory)
	d.TargetDate = copyDate(newDate)
	d.UpdatedAt = now.UTC()
	d.RecomputePlanningAccuracy()
}

// RecomputePlanningAccuracy derives the 0-100 planning score from current
// fields. It is a full recompute, never an incremental patch, so repeated
// calls cannot drift.
func (d *Deliverable) RecomputePlanningAccuracy() {
	if d.OriginalDate == nil {
		d.PlanningAccuracy = nil
		return
	}

	score := 100 - recommitPenalty*d.RecommitCount
	if d.Readiness == ReadinessComplete && d.CompletedAt != nil {
		score -= slipPenalty * daysBetween(*d.OriginalDate, *d.CompletedAt)
	}
	if score < 0 {
		score = 0
	}
	d.PlanningAccuracy = &score
}

// MarkComplete transitions the deliverable to complete. CompletedAt is set
// once; re-invocation keeps the first completion timestamp.
func (d *Deliverable) MarkComplete(now time.Time) {
	d.Readiness = ReadinessComplete
	if d.CompletedAt == nil {
		ts := now.UTC()
		d.CompletedAt = &ts
	}
	d.UpdatedAt = now.UTC()
	d.RecomputePlanningAccuracy()
}

// SetReadiness moves the deliverable to any readiness value. Leaving complete
// does not clear CompletedAt.
func (d *Deliverable) SetReadiness(readiness Readiness, now time.Time) error {
	if !slices.Contains(validReadiness, readiness) {
		return ErrInvalidReadiness
	}
	if readiness == ReadinessComplete {
		d.MarkComplete(now)
		return nil
	}
	d.Readiness = readiness
	d.UpdatedAt = now.UTC()
	d.RecomputePlanningAccuracy()
	return nil
}

// CurrentSlipDays reports elapsed days past the original baseline, measured
// against the completion time for completed deliverables and asOf otherwise.
// Incomplete items keep slipping every day past the original commitment no
// matter how often the target was pushed.
func (d *Deliverable) CurrentSlipDays(asOf time.Time) int {
	if d.OriginalDate == nil {
		return 0
	}
	compare := asOf.UTC()
	if d.Readiness == ReadinessComplete && d.CompletedAt != nil {
		compare = *d.CompletedAt
	}
	if !compare.After(*d.OriginalDate) {
		return 0
	}
	return daysBetween(*d.OriginalDate, compare)
}

// UpdateDetails updates title, description, and ownership fields.
func (d *Deliverable) UpdateDetails(title, description, assignedUserID, ownerName, ownerEmail string, now time.Time) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}
	d.Title = title
	d.Description = strings.TrimSpace(description)
	d.AssignedUserID = strings.TrimSpace(assignedUserID)
	d.OwnerName = strings.TrimSpace(ownerName)
	d.OwnerEmail = strings.TrimSpace(ownerEmail)
	d.UpdatedAt = now.UTC()
	return nil
}

// Move reassigns the deliverable to a stream slot. An empty streamID leaves
// the deliverable unassigned.
func (d *Deliverable) Move(streamID string, position int, now time.Time) error {
	if position < 0 {
		return ErrInvalidPosition
	}
	d.StreamID = strings.TrimSpace(streamID)
	d.Position = position
	d.UpdatedAt = now.UTC()
	return nil
}

// AddChecklistItem appends one checklist entry.
func (d *Deliverable) AddChecklistItem(id, text string, now time.Time) (ChecklistItem, error) {
	id = strings.TrimSpace(id)
	text = strings.TrimSpace(text)
	if id == "" {
		return ChecklistItem{}, ErrInvalidID
	}
	if text == "" {
		return ChecklistItem{}, ErrInvalidTitle
	}
	item := ChecklistItem{
		ID:        id,
		Text:      text,
		CreatedAt: now.UTC(),
	}
	d.Checklist = append(d.Checklist, item)
	d.UpdatedAt = now.UTC()
	return item, nil
}

// SetChecklistItemDone toggles one checklist entry, stamping DoneAt on
// completion and clearing it when reopened.
func (d *Deliverable) SetChecklistItemDone(itemID string, done bool, now time.Time) error {
	for i := range d.Checklist {
		if d.Checklist[i].ID != itemID {
			continue
		}
		d.Checklist[i].Done = done
		if done {
			ts := now.UTC()
			d.Checklist[i].DoneAt = &ts
		} else {
			d.Checklist[i].DoneAt = nil
		}
		d.UpdatedAt = now.UTC()
		return nil
	}
	return ErrChecklistItemNotFound
}

// RemoveChecklistItem removes one checklist entry by id.
func (d *Deliverable) RemoveChecklistItem(itemID string, now time.Time) error {
	for i := range d.Checklist {
		if d.Checklist[i].ID != itemID {
			continue
		}
		d.Checklist = append(d.Checklist[:i], d.Checklist[i+1:]...)
		d.UpdatedAt = now.UTC()
		return nil
	}
	return ErrChecklistItemNotFound
}

// SetDependencies replaces the dependency id set, excluding self-references
// and duplicates. Cycle checking across deliverables lives in the dependency
// graph helpers, not here.
func (d *Deliverable) SetDependencies(ids []string, now time.Time) error {
	out := make([]string, 0, len(ids))
	seen := map[string]struct{}{}
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if id == d.ID {
			return ErrSelfDependency
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	d.Dependencies = out
	d.UpdatedAt = now.UTC()
	return nil
}

// normalizeDate normalizes nullable target dates to second precision in UTC.
func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	ts := t.UTC().Truncate(time.Second)
	return &ts
}

// copyDate copies a nullable timestamp so audit records stay immutable.
func copyDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	ts := *t
	return &ts
}

// daysBetween counts days from a to b, rounding partial days up. Negative
// spans count as zero.
func daysBetween(a, b time.Time) int {
	delta := b.Sub(a).Hours() / 24
	if delta <= 0 {
		return 0
	}
	return int(math.Ceil(delta))
}

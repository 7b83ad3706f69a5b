package domain

import (
	"slices"
	"strings"
	"time"
)

// TrackHealth classifies execution-track delivery health.
type TrackHealth string

// TrackHealth values.
const (
	TrackHealthOnTrack  TrackHealth = "on_track"
	TrackHealthLate     TrackHealth = "late"
	TrackHealthComplete TrackHealth = "complete"
)

var validTrackHealth = []TrackHealth{TrackHealthOnTrack, TrackHealthLate, TrackHealthComplete}

// ExecutionTrack is a vendor-facing execution lane under a deliverable. It
// carries its own lightweight recommit history, independent of the owning
// deliverable's audit trail.
type ExecutionTrack struct {
	ID              string
	ProjectID       string
	DeliverableID   string
	Title           string
	Description     string
	Vendor          string
	TargetDate      *time.Time
	Health          TrackHealth
	SlipDays        int
	RecommitCount   int
	RecommitHistory []DateChange
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

// NewExecutionTrack constructs a track in on_track health.
func NewExecutionTrack(id, projectID, deliverableID, title, description, vendor string, targetDate *time.Time, now time.Time) (ExecutionTrack, error) {
	id = strings.TrimSpace(id)
	projectID = strings.TrimSpace(projectID)
	deliverableID = strings.TrimSpace(deliverableID)
	title = strings.TrimSpace(title)
	if id == "" || projectID == "" {
		return ExecutionTrack{}, ErrInvalidID
	}
	if deliverableID == "" {
		return ExecutionTrack{}, ErrInvalidID
	}
	if title == "" {
		return ExecutionTrack{}, ErrInvalidTitle
	}

	vendor = strings.TrimSpace(vendor)
	if vendor == "" {
		vendor = "Unassigned"
	}

	return ExecutionTrack{
		ID:              id,
		ProjectID:       projectID,
		DeliverableID:   deliverableID,
		Title:           title,
		Description:     strings.TrimSpace(description),
		Vendor:          vendor,
		TargetDate:      normalizeDate(targetDate),
		Health:          TrackHealthOnTrack,
		RecommitHistory: []DateChange{},
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}, nil
}

// SetHealth sets delivery health and slip days.
func (t *ExecutionTrack) SetHealth(health TrackHealth, slipDays int, now time.Time) error {
	if !slices.Contains(validTrackHealth, health) {
		return ErrInvalidTrackHealth
	}
	if slipDays < 0 {
		slipDays = 0
	}
	t.Health = health
	t.SlipDays = slipDays
	t.UpdatedAt = now.UTC()
	return nil
}

// Recommit pushes the track target date and records the change.
func (t *ExecutionTrack) Recommit(changeID string, newDate *time.Time, reason, actor string, now time.Time) {
	newDate = normalizeDate(newDate)
	t.RecommitHistory = append(t.RecommitHistory, DateChange{
		ID:        strings.TrimSpace(changeID),
		OldDate:   copyDate(t.TargetDate),
		NewDate:   copyDate(newDate),
		Reason:    reason,
		ChangedBy: strings.TrimSpace(actor),
		ChangedAt: now.UTC(),
	})
	t.RecommitCount = len(t.RecommitHistory)
	t.TargetDate = copyDate(newDate)
	t.UpdatedAt = now.UTC()
}

// Complete marks the track complete. The first completion timestamp wins.
func (t *ExecutionTrack) Complete(now time.Time) {
	t.Health = TrackHealthComplete
	if t.CompletedAt == nil {
		ts := now.UTC()
		t.CompletedAt = &ts
	}
	t.SlipDays = 0
	t.UpdatedAt = now.UTC()
}

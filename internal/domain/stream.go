package domain

import (
	"slices"
	"strings"
	"time"
)

// StreamStatus represents the lifecycle status of a stream.
type StreamStatus string

// StreamStatus values.
const (
	StreamStatusActive   StreamStatus = "active"
	StreamStatusComplete StreamStatus = "complete"
	StreamStatusArchived StreamStatus = "archived"
)

var validStreamStatuses = []StreamStatus{StreamStatusActive, StreamStatusComplete, StreamStatusArchived}

// Stream is a named grouping of deliverables. It holds no forward collection;
// membership is computed by filtering deliverables on StreamID.
type Stream struct {
	ID          string
	ProjectID   string
	Name        string
	Color       string
	Description string
	Status      StreamStatus
	Position    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewStream constructs a new stream in active status.
func NewStream(id, projectID, name, color, description string, position int, now time.Time) (Stream, error) {
	id = strings.TrimSpace(id)
	projectID = strings.TrimSpace(projectID)
	name = strings.TrimSpace(name)
	if id == "" {
		return Stream{}, ErrInvalidID
	}
	if projectID == "" {
		return Stream{}, ErrInvalidID
	}
	if name == "" {
		return Stream{}, ErrInvalidName
	}
	if position < 0 {
		return Stream{}, ErrInvalidPosition
	}

	return Stream{
		ID:          id,
		ProjectID:   projectID,
		Name:        name,
		Color:       strings.TrimSpace(color),
		Description: strings.TrimSpace(description),
		Status:      StreamStatusActive,
		Position:    position,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// UpdateDetails updates name, color, and description.
func (s *Stream) UpdateDetails(name, color, description string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	s.Name = name
	s.Color = strings.TrimSpace(color)
	s.Description = strings.TrimSpace(description)
	s.UpdatedAt = now.UTC()
	return nil
}

// SetStatus sets the stream lifecycle status.
func (s *Stream) SetStatus(status StreamStatus, now time.Time) error {
	status = StreamStatus(strings.TrimSpace(strings.ToLower(string(status))))
	if !slices.Contains(validStreamStatuses, status) {
		return ErrInvalidStreamStatus
	}
	s.Status = status
	s.UpdatedAt = now.UTC()
	return nil
}

// SetPosition handles board ordering.
func (s *Stream) SetPosition(position int, now time.Time) error {
	if position < 0 {
		return ErrInvalidPosition
	}
	s.Position = position
	s.UpdatedAt = now.UTC()
	return nil
}

// IsActive reports whether the stream participates in program aggregation.
func (s Stream) IsActive() bool {
	return s.Status == StreamStatusActive
}

package domain

import (
	"slices"
	"strings"
	"time"
)

// WhiteboardNote is a pre-planning idea card. Notes live on the whiteboard
// until they are promoted into deliverables.
type WhiteboardNote struct {
	ID          string
	ProjectID   string
	StreamID    string // optional stream hint for promotion
	Title       string
	Description string
	Tags        []string
	Promoted    bool
	PromotedAt  *time.Time
	// PromotedDeliverableID links the note to the deliverable it became.
	PromotedDeliverableID string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewWhiteboardNote constructs an unpromoted note.
func NewWhiteboardNote(id, projectID, title, description string, tags []string, streamID string, now time.Time) (WhiteboardNote, error) {
	id = strings.TrimSpace(id)
	projectID = strings.TrimSpace(projectID)
	title = strings.TrimSpace(title)
	if id == "" {
		return WhiteboardNote{}, ErrInvalidID
	}
	if projectID == "" {
		return WhiteboardNote{}, ErrInvalidID
	}
	if title == "" {
		return WhiteboardNote{}, ErrInvalidTitle
	}

	return WhiteboardNote{
		ID:          id,
		ProjectID:   projectID,
		StreamID:    strings.TrimSpace(streamID),
		Title:       title,
		Description: strings.TrimSpace(description),
		Tags:        normalizeTags(tags),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// UpdateDetails updates title, description, tags, and stream hint.
func (n *WhiteboardNote) UpdateDetails(title, description string, tags []string, streamID string, now time.Time) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}
	n.Title = title
	n.Description = strings.TrimSpace(description)
	n.Tags = normalizeTags(tags)
	n.StreamID = strings.TrimSpace(streamID)
	n.UpdatedAt = now.UTC()
	return nil
}

// Promote marks the note as promoted into a deliverable. A note promotes at
// most once.
func (n *WhiteboardNote) Promote(deliverableID string, now time.Time) error {
	deliverableID = strings.TrimSpace(deliverableID)
	if deliverableID == "" {
		return ErrInvalidID
	}
	if n.Promoted {
		return ErrAlreadyPromoted
	}
	ts := now.UTC()
	n.Promoted = true
	n.PromotedAt = &ts
	n.PromotedDeliverableID = deliverableID
	n.UpdatedAt = ts
	return nil
}

// normalizeTags trims, lowercases, de-duplicates, and sorts tags.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]struct{}{}
	for _, raw := range tags {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	slices.Sort(out)
	return out
}

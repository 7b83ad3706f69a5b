package domain

import (
	"slices"
	"strings"
	"time"
)

// CommentTargetType identifies the entity type a comment belongs to.
type CommentTargetType string

// Comment target type values.
const (
	CommentTargetTypeProject     CommentTargetType = "project"
	CommentTargetTypeStream      CommentTargetType = "stream"
	CommentTargetTypeDeliverable CommentTargetType = "deliverable"
	CommentTargetTypeTrack       CommentTargetType = "track"
)

var validCommentTargetTypes = []CommentTargetType{
	CommentTargetTypeProject,
	CommentTargetTypeStream,
	CommentTargetTypeDeliverable,
	CommentTargetTypeTrack,
}

// CommentTarget identifies a concrete target within a project.
type CommentTarget struct {
	ProjectID  string
	TargetType CommentTargetType
	TargetID   string
}

// Comment stores an authored note attached to a target.
type Comment struct {
	ID         string
	ProjectID  string
	TargetType CommentTargetType
	TargetID   string
	Body       string
	AuthorName string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CommentInput holds input values for comment creation.
type CommentInput struct {
	ID         string
	ProjectID  string
	TargetType CommentTargetType
	TargetID   string
	Body       string
	AuthorName string
}

// NewComment constructs a normalized comment.
func NewComment(in CommentInput, now time.Time) (Comment, error) {
	in.ID = strings.TrimSpace(in.ID)
	if in.ID == "" {
		return Comment{}, ErrInvalidID
	}

	target, err := NormalizeCommentTarget(CommentTarget{
		ProjectID:  in.ProjectID,
		TargetType: in.TargetType,
		TargetID:   in.TargetID,
	})
	if err != nil {
		return Comment{}, err
	}

	body := strings.TrimSpace(in.Body)
	if body == "" {
		return Comment{}, ErrInvalidBody
	}

	authorName := strings.TrimSpace(in.AuthorName)
	if authorName == "" {
		authorName = "alignd-user"
	}

	timestamp := now.UTC()
	return Comment{
		ID:         in.ID,
		ProjectID:  target.ProjectID,
		TargetType: target.TargetType,
		TargetID:   target.TargetID,
		Body:       body,
		AuthorName: authorName,
		CreatedAt:  timestamp,
		UpdatedAt:  timestamp,
	}, nil
}

// NormalizeCommentTarget validates and canonicalizes comment target identifiers.
func NormalizeCommentTarget(target CommentTarget) (CommentTarget, error) {
	target.ProjectID = strings.TrimSpace(target.ProjectID)
	target.TargetID = strings.TrimSpace(target.TargetID)
	target.TargetType = CommentTargetType(strings.TrimSpace(strings.ToLower(string(target.TargetType))))

	if target.ProjectID == "" {
		return CommentTarget{}, ErrInvalidID
	}
	if target.TargetID == "" {
		return CommentTarget{}, ErrInvalidTargetID
	}
	if !slices.Contains(validCommentTargetTypes, target.TargetType) {
		return CommentTarget{}, ErrInvalidTargetType
	}
	return target, nil
}

package app

import (
	"context"

	"github.com/rtgae/alignd/internal/domain"
)

// Repository is the persistence port the service drives. Every write is a
// per-record operation; collection-level replacement is deliberately absent
// so concurrent editors cannot silently discard each other's rows.
type Repository interface {
	CreateProject(context.Context, domain.Project) error
	UpdateProject(context.Context, domain.Project) error
	GetProject(context.Context, string) (domain.Project, error)
	ListProjects(context.Context, bool) ([]domain.Project, error)

	CreateStream(context.Context, domain.Stream) error
	UpdateStream(context.Context, domain.Stream) error
	GetStream(context.Context, string) (domain.Stream, error)
	ListStreams(context.Context, string) ([]domain.Stream, error)
	DeleteStream(context.Context, string) error

	CreateDeliverable(context.Context, domain.Deliverable) error
	UpdateDeliverable(context.Context, domain.Deliverable) error
	GetDeliverable(context.Context, string) (domain.Deliverable, error)
	ListDeliverables(context.Context, string) ([]domain.Deliverable, error)
	ListDeliverablesByStream(context.Context, string) ([]domain.Deliverable, error)
	DeleteDeliverable(context.Context, string) error

	CreateNote(context.Context, domain.WhiteboardNote) error
	UpdateNote(context.Context, domain.WhiteboardNote) error
	GetNote(context.Context, string) (domain.WhiteboardNote, error)
	ListNotes(context.Context, string, bool) ([]domain.WhiteboardNote, error)
	DeleteNote(context.Context, string) error

	CreateTrack(context.Context, domain.ExecutionTrack) error
	UpdateTrack(context.Context, domain.ExecutionTrack) error
	GetTrack(context.Context, string) (domain.ExecutionTrack, error)
	ListTracks(context.Context, string) ([]domain.ExecutionTrack, error)
	ListTracksByDeliverable(context.Context, string) ([]domain.ExecutionTrack, error)
	DeleteTrack(context.Context, string) error

	CreateUser(context.Context, domain.User) error
	UpdateUser(context.Context, domain.User) error
	GetUser(context.Context, string) (domain.User, error)
	ListUsers(context.Context, string, bool) ([]domain.User, error)

	CreateComment(context.Context, domain.Comment) error
	ListCommentsByTarget(context.Context, domain.CommentTarget) ([]domain.Comment, error)

	ListProjectChangeEvents(context.Context, string, int) ([]domain.ChangeEvent, error)
}

package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rtgae/alignd/internal/domain"
	"github.com/rtgae/alignd/internal/metrics"
)

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	DefaultActor string
	StreamColors []string
}

// Service wires domain operations to the persistence port. All mutations go
// through here so the audit operations stay the only way to change target
// dates and completion state.
type Service struct {
	repo         Repository
	idGen        IDGenerator
	clock        Clock
	defaultActor string
	streamColors []string
}

// NewService constructs a new service.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.DefaultActor == "" {
		cfg.DefaultActor = "alignd-user"
	}
	colors := cfg.StreamColors
	if len(colors) == 0 {
		colors = defaultStreamColors()
	}

	return &Service{
		repo:         repo,
		idGen:        idGen,
		clock:        clock,
		defaultActor: cfg.DefaultActor,
		streamColors: colors,
	}
}

// EnsureDefaultProject returns the first project, creating one if none exist.
func (s *Service) EnsureDefaultProject(ctx context.Context) (domain.Project, error) {
	projects, err := s.repo.ListProjects(ctx, false)
	if err != nil {
		return domain.Project{}, err
	}
	if len(projects) > 0 {
		return projects[0], nil
	}

	project, err := domain.NewProject(s.idGen(), "Program", "Default program", s.clock())
	if err != nil {
		return domain.Project{}, err
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// CreateProject creates a project.
func (s *Service) CreateProject(ctx context.Context, name, description string) (domain.Project, error) {
	project, err := domain.NewProject(s.idGen(), name, description, s.clock())
	if err != nil {
		return domain.Project{}, err
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// UpdateProject updates project name and description.
func (s *Service) UpdateProject(ctx context.Context, projectID, name, description string) (domain.Project, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := project.UpdateDetails(name, description, s.clock()); err != nil {
		return domain.Project{}, err
	}
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// ArchiveProject archives a project.
func (s *Service) ArchiveProject(ctx context.Context, projectID string) error {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	project.Archive(s.clock())
	return s.repo.UpdateProject(ctx, project)
}

// ListProjects lists projects.
func (s *Service) ListProjects(ctx context.Context, includeArchived bool) ([]domain.Project, error) {
	return s.repo.ListProjects(ctx, includeArchived)
}

// GetProject returns one project by id.
func (s *Service) GetProject(ctx context.Context, projectID string) (domain.Project, error) {
	return s.repo.GetProject(ctx, projectID)
}

// CreateStreamInput holds input values for stream creation.
type CreateStreamInput struct {
	ProjectID   string
	Name        string
	Color       string
	Description string
}

// CreateStream creates a stream at the end of the board. When no color is
// given the next palette color is assigned by position.
func (s *Service) CreateStream(ctx context.Context, in CreateStreamInput) (domain.Stream, error) {
	existing, err := s.repo.ListStreams(ctx, in.ProjectID)
	if err != nil {
		return domain.Stream{}, err
	}
	position := 0
	for _, st := range existing {
		if st.Position >= position {
			position = st.Position + 1
		}
	}
	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = s.streamColors[len(existing)%len(s.streamColors)]
	}

	stream, err := domain.NewStream(s.idGen(), in.ProjectID, in.Name, color, in.Description, position, s.clock())
	if err != nil {
		return domain.Stream{}, err
	}
	if err := s.repo.CreateStream(ctx, stream); err != nil {
		return domain.Stream{}, err
	}
	return stream, nil
}

// UpdateStream updates stream details.
func (s *Service) UpdateStream(ctx context.Context, streamID, name, color, description string) (domain.Stream, error) {
	stream, err := s.repo.GetStream(ctx, streamID)
	if err != nil {
		return domain.Stream{}, err
	}
	if err := stream.UpdateDetails(name, color, description, s.clock()); err != nil {
		return domain.Stream{}, err
	}
	if err := s.repo.UpdateStream(ctx, stream); err != nil {
		return domain.Stream{}, err
	}
	return stream, nil
}

// SetStreamStatus sets stream lifecycle status.
func (s *Service) SetStreamStatus(ctx context.Context, streamID string, status domain.StreamStatus) (domain.Stream, error) {
	stream, err := s.repo.GetStream(ctx, streamID)
	if err != nil {
		return domain.Stream{}, err
	}
	if err := stream.SetStatus(status, s.clock()); err != nil {
		return domain.Stream{}, err
	}
	if err := s.repo.UpdateStream(ctx, stream); err != nil {
		return domain.Stream{}, err
	}
	return stream, nil
}

// ReorderStream moves a stream to a new board position.
func (s *Service) ReorderStream(ctx context.Context, streamID string, position int) (domain.Stream, error) {
	stream, err := s.repo.GetStream(ctx, streamID)
	if err != nil {
		return domain.Stream{}, err
	}
	if err := stream.SetPosition(position, s.clock()); err != nil {
		return domain.Stream{}, err
	}
	if err := s.repo.UpdateStream(ctx, stream); err != nil {
		return domain.Stream{}, err
	}
	return stream, nil
}

// ListStreams lists project streams ordered by board position.
func (s *Service) ListStreams(ctx context.Context, projectID string) ([]domain.Stream, error) {
	streams, err := s.repo.ListStreams(ctx, projectID)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(streams, func(a, b domain.Stream) int {
		return a.Position - b.Position
	})
	return streams, nil
}

// DeleteStream deletes a stream. Deletion cascades to the stream's
// deliverables; there is no orphan retention.
func (s *Service) DeleteStream(ctx context.Context, streamID string) error {
	return s.repo.DeleteStream(ctx, streamID)
}

// CreateDeliverableInput holds input values for deliverable creation.
type CreateDeliverableInput struct {
	ProjectID      string
	StreamID       string
	Title          string
	Description    string
	TargetDate     *time.Time
	AssignedUserID string
	OwnerName      string
	OwnerEmail     string
}

// CreateDeliverable creates a deliverable in planning at the end of its
// stream lane. The first target date, when present, becomes the immutable
// slip baseline.
func (s *Service) CreateDeliverable(ctx context.Context, in CreateDeliverableInput) (domain.Deliverable, error) {
	position := 0
	if strings.TrimSpace(in.StreamID) != "" {
		siblings, err := s.repo.ListDeliverablesByStream(ctx, in.StreamID)
		if err != nil {
			return domain.Deliverable{}, err
		}
		for _, d := range siblings {
			if d.Position >= position {
				position = d.Position + 1
			}
		}
	}

	deliverable, err := domain.NewDeliverable(domain.DeliverableInput{
		ID:             s.idGen(),
		ProjectID:      in.ProjectID,
		StreamID:       in.StreamID,
		Position:       position,
		Title:          in.Title,
		Description:    in.Description,
		TargetDate:     in.TargetDate,
		AssignedUserID: in.AssignedUserID,
		OwnerName:      in.OwnerName,
		OwnerEmail:     in.OwnerEmail,
	}, s.clock())
	if err != nil {
		return domain.Deliverable{}, err
	}
	if err := s.repo.CreateDeliverable(ctx, deliverable); err != nil {
		return domain.Deliverable{}, err
	}
	return deliverable, nil
}

// UpdateDeliverableInput holds input values for deliverable detail updates.
type UpdateDeliverableInput struct {
	DeliverableID  string
	Title          string
	Description    string
	AssignedUserID string
	OwnerName      string
	OwnerEmail     string
}

// UpdateDeliverable updates detail fields. Target dates never change here;
// RecommitDeliverable is the only path that moves a committed date.
func (s *Service) UpdateDeliverable(ctx context.Context, in UpdateDeliverableInput) (domain.Deliverable, error) {
	deliverable, err := s.repo.GetDeliverable(ctx, in.DeliverableID)
	if err != nil {
		return domain.Deliverable{}, err
	}
	if err := deliverable.UpdateDetails(in.Title, in.Description, in.AssignedUserID, in.OwnerName, in.OwnerEmail, s.clock()); err != nil {
		return domain.Deliverable{}, err
	}
	if err := s.repo.UpdateDeliverable(ctx, deliverable); err != nil {
		return domain.Deliverable{}, err
	}
	return deliverable, nil
}

// MoveDeliverable reassigns a deliverable to a stream slot.
func (s *Service) MoveDeliverable(ctx context.Context, deliverableID, streamID string, position int) (domain.Deliverable, error) {
	deliverable, err := s.repo.GetDeliverable(ctx, deliverableID)
	if err != nil {
		return domain.Deliverable{}, err
	}
	if streamID = strings.TrimSpace(streamID); streamID != "" {
		stream, streamErr := s.repo.GetStream(ctx, streamID)
		if streamErr != nil {
			return domain.Deliverable{}, streamErr
		}
		if stream.ProjectID != deliverable.ProjectID {
			return domain.Deliverable{}, domain.ErrInvalidStreamID
		}
	}
	if err := deliverable.Move(streamID, position, s.clock()); err != nil {
		return domain.Deliverable{}, err
	}
	if err := s.repo.UpdateDeliverable(ctx, deliverable); err != nil {
		return domain.Deliverable{}, err
	}
	return deliverable, nil
}

// SetDeliverableReadiness moves a deliverable to any readiness value.
func (s *Service) SetDeliverableReadiness(ctx context.Context, deliverableID string, readiness domain.Readiness) (domain.Deliverable, error) {
	deliverable, err := s.repo.GetDeliverable(ctx, deliverableID)
	if err != nil {
		return domain.Deliverable{}, err
	}
	if err := deliverable.SetReadiness(readiness, s.clock()); err != nil {
		return domain.Deliverable{}, err
	}
	if err := s.repo.UpdateDeliverable(ctx, deliverable); err != nil {
		return domain.Deliverable{}, err
	}
	return deliverable, nil
}

// RecommitInput holds input values for a target-date recommit.
type RecommitInput struct {
	DeliverableID string
	NewDate       *time.Time
	Reason        string
	Explanation   string
	Actor         string
}

// RecommitDeliverable records a target-date change with its audit trail
// entry. The reason is required at this layer; the domain operation below it
// stays total.
func (s *Service) RecommitDeliverable(ctx context.Context, in RecommitInput) (domain.Deliverable, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return domain.Deliverable{}, domain.ErrInvalidReason
	}
	deliverable, err := s.repo.GetDeliverable(ctx, in.DeliverableID)
	if err != nil {
		return domain.Deliverable{}, err
	}
	actor := strings.TrimSpace(in.Actor)
	if actor == "" {
		actor = s.defaultActor
	}
	deliverable.RecordDateChange(s.idGen(), in.NewDate, in.Reason, in.Explanation, actor, s.clock())
	if err := s.repo.UpdateDeliverable(ctx, deliverable); err != nil {
		return domain.Deliverable{}, err
	}
	return deliverable, nil
}

// CompleteDeliverable marks a deliverable complete and recomputes its score.
func (s *Service) CompleteDeliverable(ctx context.Context, deliverableID string) (domain.Deliverable, error) {
	deliverable, err := s.repo.GetDeliverable(ctx, deliverableID)
	if err != nil {
		return domain.Deliverable{}, err
	}
	deliverable.MarkComplete(s.clock())
	if err := s.repo.UpdateDeliverable(ctx, deliverable); err != nil {
		return domain.Deliverable{}, err
	}
	return deliverable, nil
}

// DeleteDeliverable deletes a deliverable.
func (s *Service) DeleteDeliverable(ctx context.Context, deliverableID string) error {
	return s.repo.DeleteDeliverable(ctx, deliverableID)
}

// GetDeliverable returns one deliverable.
func (s *Service) GetDeliverable(ctx context.Context, deliverableID string) (domain.Deliverable, error) {
	return s.repo.GetDeliverable(ctx, deliverableID)
}

// ListDeliverables lists project deliverables in stream/position order.
func (s *Service) ListDeliverables(ctx context.Context, projectID string) ([]domain.Deliverable, error) {
	deliverables, err := s.repo.ListDeliverables(ctx, projectID)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(deliverables, func(a, b domain.Deliverable) int {
		if a.StreamID == b.StreamID {
			return a.Position - b.Position
		}
		return strings.Compare(a.StreamID, b.StreamID)
	})
	return deliverables, nil
}

// AddChecklistItem appends a checklist entry to a deliverable.
func (s *Service) AddChecklistItem(ctx context.Context, deliverableID, text string) (domain.Deliverable, error) {
	deliverable, err := s.repo.GetDeliverable(ctx, deliverableID)
	if err != nil {
		return domain.Deliverable{}, err
	}
	if _, err := deliverable.AddChecklistItem(s.idGen(), text, s.clock()); err != nil {
		return domain.Deliverable{}, err
	}
	if err := s.repo.UpdateDeliverable(ctx, deliverable); err != nil {
		return domain.Deliverable{}, err
	}
	return deliverable, nil
}

// ToggleChecklistItem marks a checklist entry done or reopened.
func (s *Service) ToggleChecklistItem(ctx context.Context, deliverableID, itemID string, done bool) (domain.Deliverable, error) {
	deliverable, err := s.repo.GetDeliverable(ctx, deliverableID)
	if err != nil {
		return domain.Deliverable{}, err
	}
	if err := deliverable.SetChecklistItemDone(itemID, done, s.clock()); err != nil {
		return domain.Deliverable{}, err
	}
	if err := s.repo.UpdateDeliverable(ctx, deliverable); err != nil {
		return domain.Deliverable{}, err
	}
	return deliverable, nil
}

// RemoveChecklistItem removes a checklist entry.
func (s *Service) RemoveChecklistItem(ctx context.Context, deliverableID, itemID string) (domain.Deliverable, error) {
	deliverable, err := s.repo.GetDeliverable(ctx, deliverableID)
	if err != nil {
		return domain.Deliverable{}, err
	}
	if err := deliverable.RemoveChecklistItem(itemID, s.clock()); err != nil {
		return domain.Deliverable{}, err
	}
	if err := s.repo.UpdateDeliverable(ctx, deliverable); err != nil {
		return domain.Deliverable{}, err
	}
	return deliverable, nil
}

// SetDeliverableDependencies replaces a deliverable's dependency set after
// checking the project graph for cycles.
func (s *Service) SetDeliverableDependencies(ctx context.Context, deliverableID string, dependencyIDs []string) (domain.Deliverable, error) {
	deliverable, err := s.repo.GetDeliverable(ctx, deliverableID)
	if err != nil {
		return domain.Deliverable{}, err
	}

	siblings, err := s.repo.ListDeliverables(ctx, deliverable.ProjectID)
	if err != nil {
		return domain.Deliverable{}, err
	}
	known := make(map[string]struct{}, len(siblings))
	graph := make(map[string][]string, len(siblings))
	for _, d := range siblings {
		known[d.ID] = struct{}{}
		graph[d.ID] = d.Dependencies
	}
	for _, dep := range dependencyIDs {
		dep = strings.TrimSpace(dep)
		if dep == "" {
			continue
		}
		if _, ok := known[dep]; !ok {
			return domain.Deliverable{}, fmt.Errorf("dependency %q: %w", dep, ErrNotFound)
		}
	}
	if domain.DependencyCycleExists(graph, deliverable.ID, dependencyIDs) {
		return domain.Deliverable{}, domain.ErrDependencyCycle
	}

	if err := deliverable.SetDependencies(dependencyIDs, s.clock()); err != nil {
		return domain.Deliverable{}, err
	}
	if err := s.repo.UpdateDeliverable(ctx, deliverable); err != nil {
		return domain.Deliverable{}, err
	}
	return deliverable, nil
}

// CreateNoteInput holds input values for whiteboard note creation.
type CreateNoteInput struct {
	ProjectID   string
	Title       string
	Description string
	Tags        []string
	StreamID    string
}

// CreateNote creates a whiteboard note.
func (s *Service) CreateNote(ctx context.Context, in CreateNoteInput) (domain.WhiteboardNote, error) {
	note, err := domain.NewWhiteboardNote(s.idGen(), in.ProjectID, in.Title, in.Description, in.Tags, in.StreamID, s.clock())
	if err != nil {
		return domain.WhiteboardNote{}, err
	}
	if err := s.repo.CreateNote(ctx, note); err != nil {
		return domain.WhiteboardNote{}, err
	}
	return note, nil
}

// UpdateNote updates note details.
func (s *Service) UpdateNote(ctx context.Context, noteID, title, description string, tags []string, streamID string) (domain.WhiteboardNote, error) {
	note, err := s.repo.GetNote(ctx, noteID)
	if err != nil {
		return domain.WhiteboardNote{}, err
	}
	if err := note.UpdateDetails(title, description, tags, streamID, s.clock()); err != nil {
		return domain.WhiteboardNote{}, err
	}
	if err := s.repo.UpdateNote(ctx, note); err != nil {
		return domain.WhiteboardNote{}, err
	}
	return note, nil
}

// ListNotes lists whiteboard notes, optionally including promoted ones.
func (s *Service) ListNotes(ctx context.Context, projectID string, includePromoted bool) ([]domain.WhiteboardNote, error) {
	return s.repo.ListNotes(ctx, projectID, includePromoted)
}

// DeleteNote deletes a whiteboard note.
func (s *Service) DeleteNote(ctx context.Context, noteID string) error {
	return s.repo.DeleteNote(ctx, noteID)
}

// PromoteNoteInput holds input values for promoting a note.
type PromoteNoteInput struct {
	NoteID     string
	StreamID   string // overrides the note's stream hint when set
	TargetDate *time.Time
}

// PromoteNote turns a whiteboard note into a planning deliverable and links
// the two. A note promotes at most once.
func (s *Service) PromoteNote(ctx context.Context, in PromoteNoteInput) (domain.Deliverable, error) {
	note, err := s.repo.GetNote(ctx, in.NoteID)
	if err != nil {
		return domain.Deliverable{}, err
	}
	if note.Promoted {
		return domain.Deliverable{}, domain.ErrAlreadyPromoted
	}

	streamID := strings.TrimSpace(in.StreamID)
	if streamID == "" {
		streamID = note.StreamID
	}

	position := 0
	if streamID != "" {
		siblings, listErr := s.repo.ListDeliverablesByStream(ctx, streamID)
		if listErr != nil {
			return domain.Deliverable{}, listErr
		}
		for _, d := range siblings {
			if d.Position >= position {
				position = d.Position + 1
			}
		}
	}

	deliverable, err := domain.NewDeliverable(domain.DeliverableInput{
		ID:                 s.idGen(),
		ProjectID:          note.ProjectID,
		StreamID:           streamID,
		Position:           position,
		Title:              note.Title,
		Description:        note.Description,
		TargetDate:         in.TargetDate,
		PromotedFromNoteID: note.ID,
	}, s.clock())
	if err != nil {
		return domain.Deliverable{}, err
	}
	if err := note.Promote(deliverable.ID, s.clock()); err != nil {
		return domain.Deliverable{}, err
	}

	if err := s.repo.CreateDeliverable(ctx, deliverable); err != nil {
		return domain.Deliverable{}, err
	}
	if err := s.repo.UpdateNote(ctx, note); err != nil {
		return domain.Deliverable{}, err
	}
	return deliverable, nil
}

// CreateTrackInput holds input values for execution-track creation.
type CreateTrackInput struct {
	ProjectID     string
	DeliverableID string
	Title         string
	Description   string
	Vendor        string
	TargetDate    *time.Time
}

// CreateTrack creates an execution track under a deliverable.
func (s *Service) CreateTrack(ctx context.Context, in CreateTrackInput) (domain.ExecutionTrack, error) {
	deliverable, err := s.repo.GetDeliverable(ctx, in.DeliverableID)
	if err != nil {
		return domain.ExecutionTrack{}, err
	}
	track, err := domain.NewExecutionTrack(s.idGen(), deliverable.ProjectID, deliverable.ID, in.Title, in.Description, in.Vendor, in.TargetDate, s.clock())
	if err != nil {
		return domain.ExecutionTrack{}, err
	}
	if err := s.repo.CreateTrack(ctx, track); err != nil {
		return domain.ExecutionTrack{}, err
	}
	return track, nil
}

// RecommitTrack pushes a track target date.
func (s *Service) RecommitTrack(ctx context.Context, trackID string, newDate *time.Time, reason, actor string) (domain.ExecutionTrack, error) {
	if strings.TrimSpace(reason) == "" {
		return domain.ExecutionTrack{}, domain.ErrInvalidReason
	}
	track, err := s.repo.GetTrack(ctx, trackID)
	if err != nil {
		return domain.ExecutionTrack{}, err
	}
	if actor = strings.TrimSpace(actor); actor == "" {
		actor = s.defaultActor
	}
	track.Recommit(s.idGen(), newDate, reason, actor, s.clock())
	if err := s.repo.UpdateTrack(ctx, track); err != nil {
		return domain.ExecutionTrack{}, err
	}
	return track, nil
}

// CompleteTrack marks a track complete.
func (s *Service) CompleteTrack(ctx context.Context, trackID string) (domain.ExecutionTrack, error) {
	track, err := s.repo.GetTrack(ctx, trackID)
	if err != nil {
		return domain.ExecutionTrack{}, err
	}
	track.Complete(s.clock())
	if err := s.repo.UpdateTrack(ctx, track); err != nil {
		return domain.ExecutionTrack{}, err
	}
	return track, nil
}

// SetTrackHealth sets track health and slip days.
func (s *Service) SetTrackHealth(ctx context.Context, trackID string, health domain.TrackHealth, slipDays int) (domain.ExecutionTrack, error) {
	track, err := s.repo.GetTrack(ctx, trackID)
	if err != nil {
		return domain.ExecutionTrack{}, err
	}
	if err := track.SetHealth(health, slipDays, s.clock()); err != nil {
		return domain.ExecutionTrack{}, err
	}
	if err := s.repo.UpdateTrack(ctx, track); err != nil {
		return domain.ExecutionTrack{}, err
	}
	return track, nil
}

// ListTracks lists project tracks.
func (s *Service) ListTracks(ctx context.Context, projectID string) ([]domain.ExecutionTrack, error) {
	return s.repo.ListTracks(ctx, projectID)
}

// ListTracksByDeliverable lists tracks under one deliverable.
func (s *Service) ListTracksByDeliverable(ctx context.Context, deliverableID string) ([]domain.ExecutionTrack, error) {
	return s.repo.ListTracksByDeliverable(ctx, deliverableID)
}

// DeleteTrack deletes a track.
func (s *Service) DeleteTrack(ctx context.Context, trackID string) error {
	return s.repo.DeleteTrack(ctx, trackID)
}

// CreateUser creates a project user.
func (s *Service) CreateUser(ctx context.Context, projectID, name, email, role string) (domain.User, error) {
	user, err := domain.NewUser(s.idGen(), projectID, name, email, role, s.clock())
	if err != nil {
		return domain.User{}, err
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// UpdateUser updates user details.
func (s *Service) UpdateUser(ctx context.Context, userID, name, email, role string) (domain.User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if err := user.UpdateDetails(name, email, role, s.clock()); err != nil {
		return domain.User{}, err
	}
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// DeactivateUser removes a user from assignment without deleting rows.
func (s *Service) DeactivateUser(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	user.Deactivate(s.clock())
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// ListUsers lists project users.
func (s *Service) ListUsers(ctx context.Context, projectID string, includeInactive bool) ([]domain.User, error) {
	return s.repo.ListUsers(ctx, projectID, includeInactive)
}

// AssignDeliverable assigns a deliverable to a user in the same project.
func (s *Service) AssignDeliverable(ctx context.Context, deliverableID, userID string) (domain.Deliverable, error) {
	deliverable, err := s.repo.GetDeliverable(ctx, deliverableID)
	if err != nil {
		return domain.Deliverable{}, err
	}
	ownerName := ""
	ownerEmail := ""
	if userID = strings.TrimSpace(userID); userID != "" {
		user, userErr := s.repo.GetUser(ctx, userID)
		if userErr != nil {
			return domain.Deliverable{}, userErr
		}
		if user.ProjectID != deliverable.ProjectID {
			return domain.Deliverable{}, ErrNotFound
		}
		ownerName = user.Name
		ownerEmail = user.Email
	}
	if err := deliverable.UpdateDetails(deliverable.Title, deliverable.Description, userID, ownerName, ownerEmail, s.clock()); err != nil {
		return domain.Deliverable{}, err
	}
	if err := s.repo.UpdateDeliverable(ctx, deliverable); err != nil {
		return domain.Deliverable{}, err
	}
	return deliverable, nil
}

// AddComment attaches a comment to a project target.
func (s *Service) AddComment(ctx context.Context, target domain.CommentTarget, body, author string) (domain.Comment, error) {
	comment, err := domain.NewComment(domain.CommentInput{
		ID:         s.idGen(),
		ProjectID:  target.ProjectID,
		TargetType: target.TargetType,
		TargetID:   target.TargetID,
		Body:       body,
		AuthorName: author,
	}, s.clock())
	if err != nil {
		return domain.Comment{}, err
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return domain.Comment{}, err
	}
	return comment, nil
}

// ListComments lists comments for a target in creation order.
func (s *Service) ListComments(ctx context.Context, target domain.CommentTarget) ([]domain.Comment, error) {
	target, err := domain.NormalizeCommentTarget(target)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCommentsByTarget(ctx, target)
}

// StreamSummary aggregates one stream's deliverables as of now.
func (s *Service) StreamSummary(ctx context.Context, streamID string) (metrics.StreamSummary, error) {
	stream, err := s.repo.GetStream(ctx, streamID)
	if err != nil {
		return metrics.StreamSummary{}, err
	}
	items, err := s.repo.ListDeliverablesByStream(ctx, streamID)
	if err != nil {
		return metrics.StreamSummary{}, err
	}
	return metrics.AggregateStream(stream.ID, stream.Name, items, s.clock()), nil
}

// ProgramSummary aggregates the whole program as of now.
func (s *Service) ProgramSummary(ctx context.Context, projectID string) (metrics.ProgramSummary, error) {
	if _, err := s.repo.GetProject(ctx, projectID); err != nil {
		return metrics.ProgramSummary{}, err
	}
	streams, err := s.ListStreams(ctx, projectID)
	if err != nil {
		return metrics.ProgramSummary{}, err
	}
	items, err := s.repo.ListDeliverables(ctx, projectID)
	if err != nil {
		return metrics.ProgramSummary{}, err
	}
	return metrics.AggregateProgram(streams, items, s.clock()), nil
}

// ListProjectChangeEvents lists recent change events for a project.
func (s *Service) ListProjectChangeEvents(ctx context.Context, projectID string, limit int) ([]domain.ChangeEvent, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListProjectChangeEvents(ctx, projectID, limit)
}

// defaultStreamColors returns the board palette cycled for auto-coloring.
func defaultStreamColors() []string {
	return []string{
		"#3B82F6", // blue
		"#8B5CF6", // purple
		"#EF4444", // red
		"#10B981", // green
		"#F59E0B", // orange
		"#14B8A6", // teal
		"#6366F1", // indigo
		"#EC4899", // pink
		"#059669", // emerald
		"#64748B", // slate
	}
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rtgae/alignd/internal/app"
	"github.com/rtgae/alignd/internal/domain"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// Repository persists the program board in a single sqlite database.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens a throwaway in-memory database for tests.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the underlying database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			slug TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			archived_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS streams (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			name TEXT NOT NULL,
			color TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			position INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
		);`,
		// stream_id is not a foreign key: deliverables may sit unassigned
		// with an empty stream_id, and stream deletion cascades in code so
		// the ledger row can be written in the same transaction.
		`CREATE TABLE IF NOT EXISTS deliverables (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			stream_id TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			readiness TEXT NOT NULL DEFAULT 'planning',
			target_date TEXT,
			original_date TEXT,
			date_history_json TEXT NOT NULL DEFAULT '[]',
			recommit_reasons_json TEXT NOT NULL DEFAULT '[]',
			recommit_count INTEGER NOT NULL DEFAULT 0,
			planning_accuracy INTEGER,
			completed_at TEXT,
			checklist_json TEXT NOT NULL DEFAULT '[]',
			dependencies_json TEXT NOT NULL DEFAULT '[]',
			assigned_user_id TEXT NOT NULL DEFAULT '',
			owner_name TEXT NOT NULL DEFAULT '',
			owner_email TEXT NOT NULL DEFAULT '',
			promoted_from_note_id TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS whiteboard_notes (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			stream_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			tags_json TEXT NOT NULL DEFAULT '[]',
			promoted INTEGER NOT NULL DEFAULT 0,
			promoted_at TEXT,
			promoted_deliverable_id TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS execution_tracks (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			deliverable_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			vendor TEXT NOT NULL DEFAULT '',
			target_date TEXT,
			health TEXT NOT NULL DEFAULT 'on_track',
			slip_days INTEGER NOT NULL DEFAULT 0,
			recommit_count INTEGER NOT NULL DEFAULT 0,
			recommit_history_json TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			completed_at TEXT,
			FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE,
			FOREIGN KEY(deliverable_id) REFERENCES deliverables(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'Team Member',
			active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
		);`,
		// comments.target_id is polymorphic, so only project_id is enforced as a foreign key.
		`CREATE TABLE IF NOT EXISTS comments (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target_id TEXT NOT NULL,
			body TEXT NOT NULL,
			author_name TEXT NOT NULL DEFAULT 'alignd-user',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS change_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			operation TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			metadata_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_streams_project_position ON streams(project_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_deliverables_project_stream_position ON deliverables(project_id, stream_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_deliverables_stream ON deliverables(stream_id);`,
		`CREATE INDEX IF NOT EXISTS idx_notes_project_promoted ON whiteboard_notes(project_id, promoted);`,
		`CREATE INDEX IF NOT EXISTS idx_tracks_project ON execution_tracks(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tracks_deliverable ON execution_tracks(deliverable_id);`,
		`CREATE INDEX IF NOT EXISTS idx_users_project_active ON users(project_id, active);`,
		`CREATE INDEX IF NOT EXISTS idx_comments_project_target_created_at ON comments(project_id, target_type, target_id, created_at ASC, id ASC);`,
		`CREATE INDEX IF NOT EXISTS idx_change_events_project_created_at ON change_events(project_id, created_at DESC, id DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// CreateProject inserts a project row.
func (r *Repository) CreateProject(ctx context.Context, p domain.Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects(id, slug, name, description, created_at, updated_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Slug, p.Name, p.Description, ts(p.CreatedAt), ts(p.UpdatedAt), nullableTS(p.ArchivedAt))
	return err
}

// UpdateProject updates a project row.
func (r *Repository) UpdateProject(ctx context.Context, p domain.Project) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects
		SET slug = ?, name = ?, description = ?, updated_at = ?, archived_at = ?
		WHERE id = ?
	`, p.Slug, p.Name, p.Description, ts(p.UpdatedAt), nullableTS(p.ArchivedAt), p.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetProject returns one project.
func (r *Repository) GetProject(ctx context.Context, id string) (domain.Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, slug, name, description, created_at, updated_at, archived_at
		FROM projects
		WHERE id = ?
	`, id)
	return scanProject(row)
}

// ListProjects lists projects in creation order.
func (r *Repository) ListProjects(ctx context.Context, includeArchived bool) ([]domain.Project, error) {
	query := `
		SELECT id, slug, name, description, created_at, updated_at, archived_at
		FROM projects
	`
	if !includeArchived {
		query += ` WHERE archived_at IS NULL`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Project{}
	for rows.Next() {
		p, scanErr := scanProject(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateStream inserts a stream row.
func (r *Repository) CreateStream(ctx context.Context, s domain.Stream) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO streams(id, project_id, name, color, description, status, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.ProjectID, s.Name, s.Color, s.Description, string(s.Status), s.Position, ts(s.CreatedAt), ts(s.UpdatedAt))
	return err
}

// UpdateStream updates a stream row.
func (r *Repository) UpdateStream(ctx context.Context, s domain.Stream) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE streams
		SET name = ?, color = ?, description = ?, status = ?, position = ?, updated_at = ?
		WHERE id = ?
	`, s.Name, s.Color, s.Description, string(s.Status), s.Position, ts(s.UpdatedAt), s.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetStream returns one stream.
func (r *Repository) GetStream(ctx context.Context, id string) (domain.Stream, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, name, color, description, status, position, created_at, updated_at
		FROM streams
		WHERE id = ?
	`, id)
	return scanStream(row)
}

// ListStreams lists project streams ordered by board position.
func (r *Repository) ListStreams(ctx context.Context, projectID string) ([]domain.Stream, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, name, color, description, status, position, created_at, updated_at
		FROM streams
		WHERE project_id = ?
		ORDER BY position ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Stream{}
	for rows.Next() {
		s, scanErr := scanStream(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteStream deletes a stream and its deliverables in one transaction,
// writing a ledger row for the cascade.
func (r *Repository) DeleteStream(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stream, err := getStreamByID(ctx, tx, id)
	if err != nil {
		return err
	}

	var removed int
	row := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM deliverables WHERE stream_id = ?`, id)
	if err = row.Scan(&removed); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM deliverables WHERE stream_id = ?`, id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM streams WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err = translateNoRows(res); err != nil {
		return err
	}

	err = insertChangeEvent(ctx, tx, domain.ChangeEvent{
		ProjectID:  stream.ProjectID,
		EntityType: domain.EntityTypeStream,
		EntityID:   stream.ID,
		Operation:  domain.ChangeOperationDelete,
		Metadata: map[string]string{
			"name":                 stream.Name,
			"deliverables_removed": strconv.Itoa(removed),
		},
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// CreateDeliverable inserts a deliverable and its create (or promote) ledger row.
func (r *Repository) CreateDeliverable(ctx context.Context, d domain.Deliverable) error {
	cols, err := encodeDeliverableJSON(d)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO deliverables(
			id, project_id, stream_id, position, title, description, readiness,
			target_date, original_date, date_history_json, recommit_reasons_json, recommit_count,
			planning_accuracy, completed_at, checklist_json, dependencies_json,
			assigned_user_id, owner_name, owner_email, promoted_from_note_id, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.ID,
		d.ProjectID,
		d.StreamID,
		d.Position,
		d.Title,
		d.Description,
		string(d.Readiness),
		nullableTS(d.TargetDate),
		nullableTS(d.OriginalDate),
		cols.dateHistory,
		cols.recommitReasons,
		d.RecommitCount,
		nullableInt(d.PlanningAccuracy),
		nullableTS(d.CompletedAt),
		cols.checklist,
		cols.dependencies,
		d.AssignedUserID,
		d.OwnerName,
		d.OwnerEmail,
		d.PromotedFromNoteID,
		ts(d.CreatedAt),
		ts(d.UpdatedAt),
	)
	if err != nil {
		return err
	}

	op := domain.ChangeOperationCreate
	metadata := map[string]string{
		"stream_id": d.StreamID,
		"position":  strconv.Itoa(d.Position),
		"title":     d.Title,
	}
	if d.PromotedFromNoteID != "" {
		op = domain.ChangeOperationPromote
		metadata["promoted_from_note_id"] = d.PromotedFromNoteID
	}
	err = insertChangeEvent(ctx, tx, domain.ChangeEvent{
		ProjectID:  d.ProjectID,
		EntityType: domain.EntityTypeDeliverable,
		EntityID:   d.ID,
		Operation:  op,
		Metadata:   metadata,
		OccurredAt: d.CreatedAt,
	})
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// UpdateDeliverable updates a deliverable row and records the transition in
// the ledger. The prior row decides whether this was a recommit, completion,
// move, or plain update.
func (r *Repository) UpdateDeliverable(ctx context.Context, d domain.Deliverable) error {
	cols, err := encodeDeliverableJSON(d)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	prev, err := getDeliverableByID(ctx, tx, d.ID)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE deliverables
		SET stream_id = ?, position = ?, title = ?, description = ?, readiness = ?,
		    target_date = ?, original_date = ?, date_history_json = ?, recommit_reasons_json = ?, recommit_count = ?,
		    planning_accuracy = ?, completed_at = ?, checklist_json = ?, dependencies_json = ?,
		    assigned_user_id = ?, owner_name = ?, owner_email = ?, promoted_from_note_id = ?, updated_at = ?
		WHERE id = ?
	`,
		d.StreamID,
		d.Position,
		d.Title,
		d.Description,
		string(d.Readiness),
		nullableTS(d.TargetDate),
		nullableTS(d.OriginalDate),
		cols.dateHistory,
		cols.recommitReasons,
		d.RecommitCount,
		nullableInt(d.PlanningAccuracy),
		nullableTS(d.CompletedAt),
		cols.checklist,
		cols.dependencies,
		d.AssignedUserID,
		d.OwnerName,
		d.OwnerEmail,
		d.PromotedFromNoteID,
		ts(d.UpdatedAt),
		d.ID,
	)
	if err != nil {
		return err
	}
	if err = translateNoRows(res); err != nil {
		return err
	}

	op, metadata := classifyDeliverableTransition(prev, d)
	err = insertChangeEvent(ctx, tx, domain.ChangeEvent{
		ProjectID:  d.ProjectID,
		EntityType: domain.EntityTypeDeliverable,
		EntityID:   d.ID,
		Operation:  op,
		ActorID:    recommitActor(prev, d),
		Metadata:   metadata,
		OccurredAt: d.UpdatedAt,
	})
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// GetDeliverable returns one deliverable.
func (r *Repository) GetDeliverable(ctx context.Context, id string) (domain.Deliverable, error) {
	return getDeliverableByID(ctx, r.db, id)
}

// ListDeliverables lists project deliverables in stream/position order.
func (r *Repository) ListDeliverables(ctx context.Context, projectID string) ([]domain.Deliverable, error) {
	rows, err := r.db.QueryContext(ctx, deliverableSelect+`
		WHERE project_id = ?
		ORDER BY stream_id ASC, position ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDeliverables(rows)
}

// ListDeliverablesByStream lists one stream's deliverables by lane position.
func (r *Repository) ListDeliverablesByStream(ctx context.Context, streamID string) ([]domain.Deliverable, error) {
	rows, err := r.db.QueryContext(ctx, deliverableSelect+`
		WHERE stream_id = ?
		ORDER BY position ASC
	`, streamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDeliverables(rows)
}

// DeleteDeliverable deletes a deliverable and records the removal.
func (r *Repository) DeleteDeliverable(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	d, err := getDeliverableByID(ctx, tx, id)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM deliverables WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err = translateNoRows(res); err != nil {
		return err
	}

	err = insertChangeEvent(ctx, tx, domain.ChangeEvent{
		ProjectID:  d.ProjectID,
		EntityType: domain.EntityTypeDeliverable,
		EntityID:   d.ID,
		Operation:  domain.ChangeOperationDelete,
		Metadata: map[string]string{
			"stream_id": d.StreamID,
			"title":     d.Title,
		},
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// CreateNote inserts a whiteboard note row.
func (r *Repository) CreateNote(ctx context.Context, n domain.WhiteboardNote) error {
	tagsJSON, err := json.Marshal(n.Tags)
	if err != nil {
		return fmt.Errorf("encode note tags: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO whiteboard_notes(id, project_id, stream_id, title, description, tags_json, promoted, promoted_at, promoted_deliverable_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.ProjectID, n.StreamID, n.Title, n.Description, string(tagsJSON), boolToInt(n.Promoted), nullableTS(n.PromotedAt), n.PromotedDeliverableID, ts(n.CreatedAt), ts(n.UpdatedAt))
	return err
}

// UpdateNote updates a whiteboard note row.
func (r *Repository) UpdateNote(ctx context.Context, n domain.WhiteboardNote) error {
	tagsJSON, err := json.Marshal(n.Tags)
	if err != nil {
		return fmt.Errorf("encode note tags: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE whiteboard_notes
		SET stream_id = ?, title = ?, description = ?, tags_json = ?, promoted = ?, promoted_at = ?, promoted_deliverable_id = ?, updated_at = ?
		WHERE id = ?
	`, n.StreamID, n.Title, n.Description, string(tagsJSON), boolToInt(n.Promoted), nullableTS(n.PromotedAt), n.PromotedDeliverableID, ts(n.UpdatedAt), n.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetNote returns one whiteboard note.
func (r *Repository) GetNote(ctx context.Context, id string) (domain.WhiteboardNote, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, stream_id, title, description, tags_json, promoted, promoted_at, promoted_deliverable_id, created_at, updated_at
		FROM whiteboard_notes
		WHERE id = ?
	`, id)
	return scanNote(row)
}

// ListNotes lists project notes, newest first.
func (r *Repository) ListNotes(ctx context.Context, projectID string, includePromoted bool) ([]domain.WhiteboardNote, error) {
	query := `
		SELECT id, project_id, stream_id, title, description, tags_json, promoted, promoted_at, promoted_deliverable_id, created_at, updated_at
		FROM whiteboard_notes
		WHERE project_id = ?
	`
	if !includePromoted {
		query += ` AND promoted = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.WhiteboardNote{}
	for rows.Next() {
		n, scanErr := scanNote(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// DeleteNote deletes a whiteboard note.
func (r *Repository) DeleteNote(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM whiteboard_notes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// CreateTrack inserts an execution track row.
func (r *Repository) CreateTrack(ctx context.Context, t domain.ExecutionTrack) error {
	historyJSON, err := json.Marshal(t.RecommitHistory)
	if err != nil {
		return fmt.Errorf("encode track recommit history: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO execution_tracks(id, project_id, deliverable_id, title, description, vendor, target_date, health, slip_days, recommit_count, recommit_history_json, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.ProjectID, t.DeliverableID, t.Title, t.Description, t.Vendor, nullableTS(t.TargetDate), string(t.Health), t.SlipDays, t.RecommitCount, string(historyJSON), ts(t.CreatedAt), ts(t.UpdatedAt), nullableTS(t.CompletedAt))
	return err
}

// UpdateTrack updates an execution track row.
func (r *Repository) UpdateTrack(ctx context.Context, t domain.ExecutionTrack) error {
	historyJSON, err := json.Marshal(t.RecommitHistory)
	if err != nil {
		return fmt.Errorf("encode track recommit history: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE execution_tracks
		SET title = ?, description = ?, vendor = ?, target_date = ?, health = ?, slip_days = ?, recommit_count = ?, recommit_history_json = ?, updated_at = ?, completed_at = ?
		WHERE id = ?
	`, t.Title, t.Description, t.Vendor, nullableTS(t.TargetDate), string(t.Health), t.SlipDays, t.RecommitCount, string(historyJSON), ts(t.UpdatedAt), nullableTS(t.CompletedAt), t.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetTrack returns one execution track.
func (r *Repository) GetTrack(ctx context.Context, id string) (domain.ExecutionTrack, error) {
	row := r.db.QueryRowContext(ctx, trackSelect+` WHERE id = ?`, id)
	return scanTrack(row)
}

// ListTracks lists project tracks in creation order.
func (r *Repository) ListTracks(ctx context.Context, projectID string) ([]domain.ExecutionTrack, error) {
	rows, err := r.db.QueryContext(ctx, trackSelect+`
		WHERE project_id = ?
		ORDER BY created_at ASC, id ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTracks(rows)
}

// ListTracksByDeliverable lists tracks under a deliverable.
func (r *Repository) ListTracksByDeliverable(ctx context.Context, deliverableID string) ([]domain.ExecutionTrack, error) {
	rows, err := r.db.QueryContext(ctx, trackSelect+`
		WHERE deliverable_id = ?
		ORDER BY created_at ASC, id ASC
	`, deliverableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTracks(rows)
}

// DeleteTrack deletes an execution track.
func (r *Repository) DeleteTrack(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM execution_tracks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// CreateUser inserts a user row.
func (r *Repository) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users(id, project_id, name, email, role, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.ProjectID, u.Name, u.Email, u.Role, boolToInt(u.Active), ts(u.CreatedAt), ts(u.UpdatedAt))
	return err
}

// UpdateUser updates a user row.
func (r *Repository) UpdateUser(ctx context.Context, u domain.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET name = ?, email = ?, role = ?, active = ?, updated_at = ?
		WHERE id = ?
	`, u.Name, u.Email, u.Role, boolToInt(u.Active), ts(u.UpdatedAt), u.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetUser returns one user.
func (r *Repository) GetUser(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, name, email, role, active, created_at, updated_at
		FROM users
		WHERE id = ?
	`, id)
	return scanUser(row)
}

// ListUsers lists project users by name.
func (r *Repository) ListUsers(ctx context.Context, projectID string, includeInactive bool) ([]domain.User, error) {
	query := `
		SELECT id, project_id, name, email, role, active, created_at, updated_at
		FROM users
		WHERE project_id = ?
	`
	if !includeInactive {
		query += ` AND active = 1`
	}
	query += ` ORDER BY name ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.User{}
	for rows.Next() {
		u, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// CreateComment inserts a comment row.
func (r *Repository) CreateComment(ctx context.Context, comment domain.Comment) error {
	target, err := domain.NormalizeCommentTarget(domain.CommentTarget{
		ProjectID:  comment.ProjectID,
		TargetType: comment.TargetType,
		TargetID:   comment.TargetID,
	})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO comments(id, project_id, target_type, target_id, body, author_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, comment.ID, target.ProjectID, string(target.TargetType), target.TargetID, comment.Body, comment.AuthorName, ts(comment.CreatedAt), ts(comment.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// ListCommentsByTarget lists comments for a concrete project target.
func (r *Repository) ListCommentsByTarget(ctx context.Context, target domain.CommentTarget) ([]domain.Comment, error) {
	target, err := domain.NormalizeCommentTarget(target)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, target_type, target_id, body, author_name, created_at, updated_at
		FROM comments
		WHERE project_id = ? AND target_type = ? AND target_id = ?
		ORDER BY created_at ASC, id ASC
	`, target.ProjectID, string(target.TargetType), target.TargetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Comment, 0)
	for rows.Next() {
		comment, scanErr := scanComment(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, comment)
	}
	return out, rows.Err()
}

// ListProjectChangeEvents lists recent project ledger entries, newest first.
func (r *Repository) ListProjectChangeEvents(ctx context.Context, projectID string, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, entity_type, entity_id, operation, actor_id, metadata_json, created_at
		FROM change_events
		WHERE project_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChangeEvent, 0)
	for rows.Next() {
		var (
			event       domain.ChangeEvent
			entityRaw   string
			opRaw       string
			metadataRaw string
			createdRaw  string
		)
		if err := rows.Scan(&event.ID, &event.ProjectID, &entityRaw, &event.EntityID, &opRaw, &event.ActorID, &metadataRaw, &createdRaw); err != nil {
			return nil, err
		}
		event.EntityType = domain.EntityType(entityRaw)
		event.Operation = domain.ChangeOperation(opRaw)
		event.OccurredAt = parseTS(createdRaw)
		if strings.TrimSpace(metadataRaw) == "" {
			metadataRaw = "{}"
		}
		if err := json.Unmarshal([]byte(metadataRaw), &event.Metadata); err != nil {
			return nil, fmt.Errorf("decode change_events.metadata_json: %w", err)
		}
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// queryRower represents a query-only DB contract used by DB and Tx implementations.
type queryRower interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// execerContext represents a write-only DB contract used by DB and Tx implementations.
type execerContext interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

const deliverableSelect = `
	SELECT
		id, project_id, stream_id, position, title, description, readiness,
		target_date, original_date, date_history_json, recommit_reasons_json, recommit_count,
		planning_accuracy, completed_at, checklist_json, dependencies_json,
		assigned_user_id, owner_name, owner_email, promoted_from_note_id, created_at, updated_at
	FROM deliverables
`

const trackSelect = `
	SELECT id, project_id, deliverable_id, title, description, vendor, target_date, health, slip_days, recommit_count, recommit_history_json, created_at, updated_at, completed_at
	FROM execution_tracks
`

func getStreamByID(ctx context.Context, q queryRower, id string) (domain.Stream, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, project_id, name, color, description, status, position, created_at, updated_at
		FROM streams
		WHERE id = ?
	`, id)
	return scanStream(row)
}

func getDeliverableByID(ctx context.Context, q queryRower, id string) (domain.Deliverable, error) {
	row := q.QueryRowContext(ctx, deliverableSelect+` WHERE id = ?`, id)
	return scanDeliverable(row)
}

// insertChangeEvent inserts a ledger record inside the caller's transaction.
func insertChangeEvent(ctx context.Context, execer execerContext, event domain.ChangeEvent) error {
	metadataJSON, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("encode change event metadata: %w", err)
	}
	actorID := strings.TrimSpace(event.ActorID)
	if actorID == "" {
		actorID = "alignd-user"
	}
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	_, err = execer.ExecContext(ctx, `
		INSERT INTO change_events(project_id, entity_type, entity_id, operation, actor_id, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		event.ProjectID,
		string(event.EntityType),
		event.EntityID,
		string(event.Operation),
		actorID,
		string(metadataJSON),
		ts(occurredAt),
	)
	if err != nil {
		return fmt.Errorf("insert change event: %w", err)
	}
	return nil
}

// classifyDeliverableTransition derives the ledger operation for an update.
// Recommit and completion outrank moves so the audit trail keeps the signal
// the score is built from.
func classifyDeliverableTransition(prev, next domain.Deliverable) (domain.ChangeOperation, map[string]string) {
	if next.RecommitCount > prev.RecommitCount {
		metadata := map[string]string{
			"from_date":      formatNullableTS(prev.TargetDate),
			"to_date":        formatNullableTS(next.TargetDate),
			"recommit_count": strconv.Itoa(next.RecommitCount),
		}
		if n := len(next.DateHistory); n > 0 {
			metadata["reason"] = next.DateHistory[n-1].Reason
		}
		return domain.ChangeOperationRecommit, metadata
	}
	if prev.CompletedAt == nil && next.CompletedAt != nil {
		metadata := map[string]string{
			"completed_at": formatNullableTS(next.CompletedAt),
		}
		if next.PlanningAccuracy != nil {
			metadata["planning_accuracy"] = strconv.Itoa(*next.PlanningAccuracy)
		}
		return domain.ChangeOperationComplete, metadata
	}
	if prev.StreamID != next.StreamID || prev.Position != next.Position {
		return domain.ChangeOperationMove, map[string]string{
			"from_stream_id": prev.StreamID,
			"to_stream_id":   next.StreamID,
			"from_position":  strconv.Itoa(prev.Position),
			"to_position":    strconv.Itoa(next.Position),
		}
	}
	fields := changedDeliverableFields(prev, next)
	metadata := map[string]string{}
	if len(fields) > 0 {
		metadata["changed_fields"] = strings.Join(fields, ",")
	}
	return domain.ChangeOperationUpdate, metadata
}

// recommitActor pulls the audit actor from the newest history entry when the
// update added one.
func recommitActor(prev, next domain.Deliverable) string {
	if next.RecommitCount > prev.RecommitCount {
		if n := len(next.DateHistory); n > 0 {
			return next.DateHistory[n-1].ChangedBy
		}
	}
	return ""
}

func changedDeliverableFields(prev, next domain.Deliverable) []string {
	changed := make([]string, 0)
	if prev.Title != next.Title {
		changed = append(changed, "title")
	}
	if prev.Description != next.Description {
		changed = append(changed, "description")
	}
	if prev.Readiness != next.Readiness {
		changed = append(changed, "readiness")
	}
	if prev.AssignedUserID != next.AssignedUserID {
		changed = append(changed, "assigned_user_id")
	}
	if prev.OwnerName != next.OwnerName || prev.OwnerEmail != next.OwnerEmail {
		changed = append(changed, "owner")
	}
	if len(prev.Checklist) != len(next.Checklist) {
		changed = append(changed, "checklist")
	}
	if !equalStringSlices(prev.Dependencies, next.Dependencies) {
		changed = append(changed, "dependencies")
	}
	return changed
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// deliverableJSONColumns carries the encoded JSON columns for one row.
type deliverableJSONColumns struct {
	dateHistory     string
	recommitReasons string
	checklist       string
	dependencies    string
}

func encodeDeliverableJSON(d domain.Deliverable) (deliverableJSONColumns, error) {
	historyJSON, err := json.Marshal(emptyIfNilHistory(d.DateHistory))
	if err != nil {
		return deliverableJSONColumns{}, fmt.Errorf("encode date_history: %w", err)
	}
	reasonsJSON, err := json.Marshal(emptyIfNil(d.RecommitReasons))
	if err != nil {
		return deliverableJSONColumns{}, fmt.Errorf("encode recommit_reasons: %w", err)
	}
	checklistJSON, err := json.Marshal(emptyIfNilChecklist(d.Checklist))
	if err != nil {
		return deliverableJSONColumns{}, fmt.Errorf("encode checklist: %w", err)
	}
	depsJSON, err := json.Marshal(emptyIfNil(d.Dependencies))
	if err != nil {
		return deliverableJSONColumns{}, fmt.Errorf("encode dependencies: %w", err)
	}
	return deliverableJSONColumns{
		dateHistory:     string(historyJSON),
		recommitReasons: string(reasonsJSON),
		checklist:       string(checklistJSON),
		dependencies:    string(depsJSON),
	}, nil
}

func emptyIfNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func emptyIfNilHistory(in []domain.DateChange) []domain.DateChange {
	if in == nil {
		return []domain.DateChange{}
	}
	return in
}

func emptyIfNilChecklist(in []domain.ChecklistItem) []domain.ChecklistItem {
	if in == nil {
		return []domain.ChecklistItem{}
	}
	return in
}

// scanner represents the shared row-scanning contract of Row and Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (domain.Project, error) {
	var (
		p          domain.Project
		createdRaw string
		updatedRaw string
		archived   sql.NullString
	)
	if err := s.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &createdRaw, &updatedRaw, &archived); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Project{}, app.ErrNotFound
		}
		return domain.Project{}, err
	}
	p.CreatedAt = parseTS(createdRaw)
	p.UpdatedAt = parseTS(updatedRaw)
	p.ArchivedAt = parseNullTS(archived)
	return p, nil
}

func scanStream(s scanner) (domain.Stream, error) {
	var (
		st         domain.Stream
		status     string
		createdRaw string
		updatedRaw string
	)
	if err := s.Scan(&st.ID, &st.ProjectID, &st.Name, &st.Color, &st.Description, &status, &st.Position, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Stream{}, app.ErrNotFound
		}
		return domain.Stream{}, err
	}
	st.Status = domain.StreamStatus(status)
	if st.Status == "" {
		st.Status = domain.StreamStatusActive
	}
	st.CreatedAt = parseTS(createdRaw)
	st.UpdatedAt = parseTS(updatedRaw)
	return st, nil
}

func scanDeliverable(s scanner) (domain.Deliverable, error) {
	var (
		d            domain.Deliverable
		readiness    string
		targetRaw    sql.NullString
		originalRaw  sql.NullString
		historyRaw   string
		reasonsRaw   string
		accuracy     sql.NullInt64
		completedRaw sql.NullString
		checklistRaw string
		depsRaw      string
		createdRaw   string
		updatedRaw   string
	)
	if err := s.Scan(
		&d.ID,
		&d.ProjectID,
		&d.StreamID,
		&d.Position,
		&d.Title,
		&d.Description,
		&readiness,
		&targetRaw,
		&originalRaw,
		&historyRaw,
		&reasonsRaw,
		&d.RecommitCount,
		&accuracy,
		&completedRaw,
		&checklistRaw,
		&depsRaw,
		&d.AssignedUserID,
		&d.OwnerName,
		&d.OwnerEmail,
		&d.PromotedFromNoteID,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Deliverable{}, app.ErrNotFound
		}
		return domain.Deliverable{}, err
	}
	d.Readiness = domain.Readiness(readiness)
	if d.Readiness == "" {
		d.Readiness = domain.ReadinessPlanning
	}
	d.TargetDate = parseNullTS(targetRaw)
	d.OriginalDate = parseNullTS(originalRaw)
	d.CompletedAt = parseNullTS(completedRaw)
	if accuracy.Valid {
		v := int(accuracy.Int64)
		d.PlanningAccuracy = &v
	}
	d.CreatedAt = parseTS(createdRaw)
	d.UpdatedAt = parseTS(updatedRaw)

	if strings.TrimSpace(historyRaw) == "" {
		historyRaw = "[]"
	}
	if err := json.Unmarshal([]byte(historyRaw), &d.DateHistory); err != nil {
		return domain.Deliverable{}, fmt.Errorf("decode date_history_json: %w", err)
	}
	if strings.TrimSpace(reasonsRaw) == "" {
		reasonsRaw = "[]"
	}
	if err := json.Unmarshal([]byte(reasonsRaw), &d.RecommitReasons); err != nil {
		return domain.Deliverable{}, fmt.Errorf("decode recommit_reasons_json: %w", err)
	}
	if strings.TrimSpace(checklistRaw) == "" {
		checklistRaw = "[]"
	}
	if err := json.Unmarshal([]byte(checklistRaw), &d.Checklist); err != nil {
		return domain.Deliverable{}, fmt.Errorf("decode checklist_json: %w", err)
	}
	if strings.TrimSpace(depsRaw) == "" {
		depsRaw = "[]"
	}
	if err := json.Unmarshal([]byte(depsRaw), &d.Dependencies); err != nil {
		return domain.Deliverable{}, fmt.Errorf("decode dependencies_json: %w", err)
	}
	return d, nil
}

func collectDeliverables(rows *sql.Rows) ([]domain.Deliverable, error) {
	out := []domain.Deliverable{}
	for rows.Next() {
		d, err := scanDeliverable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanNote(s scanner) (domain.WhiteboardNote, error) {
	var (
		n           domain.WhiteboardNote
		tagsRaw     string
		promoted    int
		promotedRaw sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := s.Scan(&n.ID, &n.ProjectID, &n.StreamID, &n.Title, &n.Description, &tagsRaw, &promoted, &promotedRaw, &n.PromotedDeliverableID, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WhiteboardNote{}, app.ErrNotFound
		}
		return domain.WhiteboardNote{}, err
	}
	n.Promoted = promoted != 0
	n.PromotedAt = parseNullTS(promotedRaw)
	n.CreatedAt = parseTS(createdRaw)
	n.UpdatedAt = parseTS(updatedRaw)
	if strings.TrimSpace(tagsRaw) == "" {
		tagsRaw = "[]"
	}
	if err := json.Unmarshal([]byte(tagsRaw), &n.Tags); err != nil {
		return domain.WhiteboardNote{}, fmt.Errorf("decode tags_json: %w", err)
	}
	return n, nil
}

func scanTrack(s scanner) (domain.ExecutionTrack, error) {
	var (
		t            domain.ExecutionTrack
		targetRaw    sql.NullString
		health       string
		historyRaw   string
		createdRaw   string
		updatedRaw   string
		completedRaw sql.NullString
	)
	if err := s.Scan(&t.ID, &t.ProjectID, &t.DeliverableID, &t.Title, &t.Description, &t.Vendor, &targetRaw, &health, &t.SlipDays, &t.RecommitCount, &historyRaw, &createdRaw, &updatedRaw, &completedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ExecutionTrack{}, app.ErrNotFound
		}
		return domain.ExecutionTrack{}, err
	}
	t.Health = domain.TrackHealth(health)
	if t.Health == "" {
		t.Health = domain.TrackHealthOnTrack
	}
	t.TargetDate = parseNullTS(targetRaw)
	t.CreatedAt = parseTS(createdRaw)
	t.UpdatedAt = parseTS(updatedRaw)
	t.CompletedAt = parseNullTS(completedRaw)
	if strings.TrimSpace(historyRaw) == "" {
		historyRaw = "[]"
	}
	if err := json.Unmarshal([]byte(historyRaw), &t.RecommitHistory); err != nil {
		return domain.ExecutionTrack{}, fmt.Errorf("decode recommit_history_json: %w", err)
	}
	return t, nil
}

func collectTracks(rows *sql.Rows) ([]domain.ExecutionTrack, error) {
	out := []domain.ExecutionTrack{}
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanUser(s scanner) (domain.User, error) {
	var (
		u          domain.User
		active     int
		createdRaw string
		updatedRaw string
	)
	if err := s.Scan(&u.ID, &u.ProjectID, &u.Name, &u.Email, &u.Role, &active, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, app.ErrNotFound
		}
		return domain.User{}, err
	}
	u.Active = active != 0
	u.CreatedAt = parseTS(createdRaw)
	u.UpdatedAt = parseTS(updatedRaw)
	return u, nil
}

func scanComment(s scanner) (domain.Comment, error) {
	var (
		comment       domain.Comment
		targetTypeRaw string
		createdRaw    string
		updatedRaw    string
	)
	if err := s.Scan(&comment.ID, &comment.ProjectID, &targetTypeRaw, &comment.TargetID, &comment.Body, &comment.AuthorName, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Comment{}, app.ErrNotFound
		}
		return domain.Comment{}, err
	}
	comment.TargetType = domain.CommentTargetType(targetTypeRaw)
	comment.CreatedAt = parseTS(createdRaw)
	comment.UpdatedAt = parseTS(updatedRaw)
	return comment, nil
}

func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatNullableTS(t *time.Time) string {
	if t == nil {
		return ""
	}
	return ts(*t)
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	ts := parseTS(v.String)
	return &ts
}

package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/heimdex/heimdex-cut/internal/edl"
	"github.com/heimdex/heimdex-cut/internal/transcript"
)

type Repository interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	DeleteProject(ctx context.Context, id string) error
	TouchProject(ctx context.Context, id string, at time.Time) error

	PutTranscript(ctx context.Context, projectID string, tr *transcript.Transcript) error
	GetTranscript(ctx context.Context, projectID string) (*transcript.Transcript, error)

	// CreateEDLVersion inserts v when v.Version is exactly one past the
	// latest stored version, and returns ErrVersionConflict otherwise.
	CreateEDLVersion(ctx context.Context, v *EDLVersion) error
	LatestEDL(ctx context.Context, projectID string) (*EDLVersion, error)
	ListEDLVersions(ctx context.Context, projectID string) ([]int, error)

	CreateExport(ctx context.Context, e *Export) error
	GetExport(ctx context.Context, id string) (*Export, error)
	ListExports(ctx context.Context, projectID string) ([]*Export, error)
	UpdateExport(ctx context.Context, e *Export) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p *Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, media_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Name, nullString(p.MediaPath), p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, media_path, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)

	p, err := scanProject(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, media_path, created_at, updated_at
		FROM projects ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func scanProject(scan func(dest ...any) error) (*Project, error) {
	var p Project
	var mediaPath sql.NullString
	var createdAt, updatedAt string
	if err := scan(&p.ID, &p.Name, &mediaPath, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.MediaPath = mediaPath.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) TouchProject(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, "UPDATE projects SET updated_at = ? WHERE id = ?", at.Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) PutTranscript(ctx context.Context, projectID string, tr *transcript.Transcript) error {
	body, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	words := 0
	for _, s := range tr.Segments {
		words += len(s.Words)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO transcripts (project_id, language, duration, body, segment_count, word_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			language = excluded.language,
			duration = excluded.duration,
			body = excluded.body,
			segment_count = excluded.segment_count,
			word_count = excluded.word_count,
			updated_at = excluded.updated_at
	`, projectID, nullString(tr.Language), tr.Duration, string(body), len(tr.Segments), words, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetTranscript(ctx context.Context, projectID string) (*transcript.Transcript, error) {
	var body string
	err := r.db.QueryRowContext(ctx, "SELECT body FROM transcripts WHERE project_id = ?", projectID).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var tr transcript.Transcript
	if err := json.Unmarshal([]byte(body), &tr); err != nil {
		return nil, fmt.Errorf("decode stored transcript: %w", err)
	}
	return &tr, nil
}

func (r *SQLiteRepository) CreateEDLVersion(ctx context.Context, v *EDLVersion) error {
	ops := v.Operations
	if ops == nil {
		ops = []edl.Operation{}
	}
	body, err := json.Marshal(ops)
	if err != nil {
		return fmt.Errorf("encode operations: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM edls WHERE project_id = ?", v.ProjectID,
	).Scan(&current); err != nil {
		return err
	}
	if v.Version != current+1 {
		return fmt.Errorf("%w: expected version %d, got %d", ErrVersionConflict, current+1, v.Version)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO edls (id, project_id, version, operations, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, v.ID, v.ProjectID, v.Version, string(body), v.CreatedAt.Format(time.RFC3339Nano)); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) LatestEDL(ctx context.Context, projectID string) (*EDLVersion, error) {
	var v EDLVersion
	var body, createdAt string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, version, operations, created_at
		FROM edls WHERE project_id = ? ORDER BY version DESC LIMIT 1
	`, projectID).Scan(&v.ID, &v.ProjectID, &v.Version, &body, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(body), &v.Operations); err != nil {
		return nil, fmt.Errorf("decode stored operations: %w", err)
	}
	v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &v, nil
}

func (r *SQLiteRepository) ListEDLVersions(ctx context.Context, projectID string) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT version FROM edls WHERE project_id = ? ORDER BY version", projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

const exportColumns = `id, project_id, format, mode, status, edl_version, output_path, file_size, event_count, error, created_at, updated_at`

func (r *SQLiteRepository) CreateExport(ctx context.Context, e *Export) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exports (`+exportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.ProjectID, e.Format, e.Mode, e.Status, e.EDLVersion, nullString(e.OutputPath), e.FileSize, e.EventCount,
		nullString(e.Error), e.CreatedAt.Format(time.RFC3339), e.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetExport(ctx context.Context, id string) (*Export, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+exportColumns+" FROM exports WHERE id = ?", id)
	e, err := scanExport(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (r *SQLiteRepository) ListExports(ctx context.Context, projectID string) ([]*Export, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+exportColumns+" FROM exports WHERE project_id = ? ORDER BY created_at DESC, id DESC", projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exports []*Export
	for rows.Next() {
		e, err := scanExport(rows.Scan)
		if err != nil {
			return nil, err
		}
		exports = append(exports, e)
	}
	return exports, rows.Err()
}

func scanExport(scan func(dest ...any) error) (*Export, error) {
	var e Export
	var outputPath, errMsg sql.NullString
	var createdAt, updatedAt string
	if err := scan(&e.ID, &e.ProjectID, &e.Format, &e.Mode, &e.Status, &e.EDLVersion, &outputPath,
		&e.FileSize, &e.EventCount, &errMsg, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	e.OutputPath = outputPath.String
	e.Error = errMsg.String
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &e, nil
}

func (r *SQLiteRepository) UpdateExport(ctx context.Context, e *Export) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE exports SET status = ?, output_path = ?, file_size = ?, event_count = ?, error = ?, updated_at = ?
		WHERE id = ?
	`, e.Status, nullString(e.OutputPath), e.FileSize, e.EventCount, nullString(e.Error), e.UpdatedAt.Format(time.RFC3339), e.ID)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

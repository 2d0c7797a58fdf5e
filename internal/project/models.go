// Package project stores projects, their transcripts, versioned EDLs and
// exports, and exposes the operations the HTTP API and CLI build on.
package project

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/heimdex/heimdex-cut/internal/edl"
)

var (
	ErrNotFound        = errors.New("project not found")
	ErrNoTranscript    = errors.New("project has no transcript")
	ErrVersionConflict = errors.New("edl version conflict")
	ErrInvalidSegment  = errors.New("invalid segment id")
	ErrInvalidProject  = errors.New("invalid project")
	ErrExportNotFound  = errors.New("export not found")
	ErrInvalidExport   = errors.New("invalid export request")
	ErrNoMedia         = errors.New("project has no media")
)

type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MediaPath string    `json:"media_path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EDLVersion is one immutable saved revision of a project's edit list.
// Version 0 with no ID stands for a project that was never saved.
type EDLVersion struct {
	ID         string          `json:"id,omitempty"`
	ProjectID  string          `json:"project_id"`
	Version    int             `json:"version"`
	Operations []edl.Operation `json:"operations"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Document returns the persisted wire form of the version.
func (v *EDLVersion) Document() edl.Document {
	ops := v.Operations
	if ops == nil {
		ops = []edl.Operation{}
	}
	return edl.Document{Version: v.Version, UpdatedAt: v.CreatedAt, Operations: ops}
}

const (
	ExportStatusPending    = "pending"
	ExportStatusProcessing = "processing"
	ExportStatusCompleted  = "completed"
	ExportStatusFailed     = "failed"

	ExportFormatEDL = "edl"
)

type Export struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	Format     string    `json:"format"`
	Mode       string    `json:"mode"`
	Status     string    `json:"status"`
	EDLVersion int       `json:"edl_version"`
	OutputPath string    `json:"output_path,omitempty"`
	FileSize   int64     `json:"file_size"`
	EventCount int       `json:"event_count"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewID() string {
	return uuid.NewString()
}

func newEDLID() string {
	return "edl_" + ulid.Make().String()
}

func newExportID() string {
	return "export_" + ulid.Make().String()
}

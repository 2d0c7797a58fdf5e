package api

import (
	"time"

	"github.com/heimdex/heimdex-cut/internal/edl"
	"github.com/heimdex/heimdex-cut/internal/interval"
	"github.com/heimdex/heimdex-cut/internal/project"
	"github.com/heimdex/heimdex-cut/internal/timeline"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type CreateProjectRequest struct {
	Name      string `json:"name"`
	MediaPath string `json:"media_path,omitempty"`
}

type ProjectResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MediaPath string `json:"media_path,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

func ProjectToResponse(p *project.Project) ProjectResponse {
	return ProjectResponse{
		ID:        p.ID,
		Name:      p.Name,
		MediaPath: p.MediaPath,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}

type TranscriptSummaryResponse struct {
	ProjectID    string  `json:"project_id"`
	Duration     float64 `json:"duration"`
	SegmentCount int     `json:"segment_count"`
	WordCount    int     `json:"word_count"`
}

// EDLRequest is the body of PUT /projects/{id}/edl. Version must be the
// stored version plus one.
type EDLRequest struct {
	Version    int             `json:"version"`
	Operations []edl.Operation `json:"operations"`
}

type EDLResponse struct {
	ID         string          `json:"id,omitempty"`
	Version    int             `json:"version"`
	UpdatedAt  *time.Time      `json:"updated_at,omitempty"`
	Operations []edl.Operation `json:"operations"`
}

func EDLToResponse(v *project.EDLVersion) EDLResponse {
	resp := EDLResponse{ID: v.ID, Version: v.Version, Operations: v.Operations}
	if resp.Operations == nil {
		resp.Operations = []edl.Operation{}
	}
	if !v.CreatedAt.IsZero() {
		t := v.CreatedAt
		resp.UpdatedAt = &t
	}
	return resp
}

type PlaybackResponse struct {
	Mode           string              `json:"mode"`
	EDLVersion     int                 `json:"edl_version"`
	SkipIntervals  []interval.Interval `json:"skip_intervals"`
	KeptRanges     []interval.Interval `json:"kept_ranges"`
	Duration       float64             `json:"duration"`
	EditedDuration float64             `json:"edited_duration"`
}

type TimelineResponse struct {
	EDLVersion int             `json:"edl_version"`
	Composed   bool            `json:"composed"`
	Duration   float64         `json:"duration"`
	Clips      []timeline.Clip `json:"clips"`
}

type SourceTimeResponse struct {
	OutputTime float64           `json:"output_time"`
	Position   timeline.Position `json:"position"`
}

type OutputTimeResponse struct {
	SourceTime float64 `json:"source_time"`
	OutputTime float64 `json:"output_time"`
}

type SuggestionResponse struct {
	ActionID    string          `json:"action_id"`
	Action      edl.Kind        `json:"action"`
	Description string          `json:"description"`
	Preview     edl.Preview     `json:"preview"`
	Highlights  []int           `json:"highlight_segments,omitempty"`
	Operations  []edl.Operation `json:"operations"`
	ExpiresAt   string          `json:"expires_at"`
}

type ConfirmRequest struct {
	ActionID  string `json:"action_id"`
	Confirmed *bool  `json:"confirmed"`
}

type ConfirmResponse struct {
	Applied    bool   `json:"applied"`
	EDLVersion int    `json:"edl_version,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type ExportRequest struct {
	Format    string  `json:"format"`
	FrameRate float64 `json:"frame_rate"`
	OutputDir string  `json:"output_dir,omitempty"`
	Mode      string  `json:"mode,omitempty"`
}

type ExportResponse struct {
	ID         string `json:"id"`
	Format     string `json:"format"`
	Mode       string `json:"mode"`
	Status     string `json:"status"`
	EDLVersion int    `json:"edl_version"`
	OutputPath string `json:"output_path,omitempty"`
	FileSize   int64  `json:"file_size"`
	EventCount int    `json:"event_count"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
	ExpiresAt  string `json:"expires_at"`
}

type ExportsResponse struct {
	Exports []ExportResponse `json:"exports"`
}

// exportRetention is how long an export is advertised as downloadable.
const exportRetention = 7 * 24 * time.Hour

func ExportToResponse(e *project.Export) ExportResponse {
	return ExportResponse{
		ID:         e.ID,
		Format:     e.Format,
		Mode:       e.Mode,
		Status:     e.Status,
		EDLVersion: e.EDLVersion,
		OutputPath: e.OutputPath,
		FileSize:   e.FileSize,
		EventCount: e.EventCount,
		Error:      e.Error,
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
		ExpiresAt:  e.CreatedAt.Add(exportRetention).Format(time.RFC3339),
	}
}

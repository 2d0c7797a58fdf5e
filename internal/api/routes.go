package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-cut/internal/project"
	"github.com/heimdex/heimdex-cut/internal/suggest"
	"github.com/heimdex/heimdex-cut/internal/transcribe"
	"github.com/heimdex/heimdex-cut/internal/transcript"
)

// maxBodyBytes bounds JSON request bodies. Transcripts of long recordings
// are the largest payload.
const maxBodyBytes = 32 << 20

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(LoopbackGuard())
		r.Get("/projects/{id}/media", mediaHandler(cfg))
		r.Head("/projects/{id}/media", mediaHandler(cfg))
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/projects", listProjectsHandler(cfg))
		r.Post("/projects", createProjectHandler(cfg))
		r.Get("/projects/{id}", getProjectHandler(cfg))
		r.Delete("/projects/{id}", deleteProjectHandler(cfg))

		r.Get("/projects/{id}/transcript", getTranscriptHandler(cfg))
		r.Put("/projects/{id}/transcript", putTranscriptHandler(cfg))
		r.Post("/projects/{id}/transcribe", transcribeHandler(cfg))

		r.Get("/projects/{id}/edl", getEDLHandler(cfg))
		r.Put("/projects/{id}/edl", putEDLHandler(cfg))

		r.Get("/projects/{id}/playback", playbackHandler(cfg))
		r.Get("/projects/{id}/timeline", timelineHandler(cfg))
		r.Get("/projects/{id}/timeline/source-time", sourceTimeHandler(cfg))
		r.Get("/projects/{id}/timeline/output-time", outputTimeHandler(cfg))

		r.Post("/projects/{id}/suggestions", createSuggestionHandler(cfg))
		r.Post("/projects/{id}/suggestions/confirm", confirmSuggestionHandler(cfg))

		r.Get("/projects/{id}/exports", listExportsHandler(cfg))
		r.Post("/projects/{id}/exports", createExportHandler(cfg))
		r.Get("/projects/{id}/exports/{exportID}", getExportHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := cfg.Version
		if version == "" {
			version = "dev"
		}
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

// writeServiceError maps domain errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, project.ErrNotFound):
		WriteError(w, http.StatusNotFound, "project not found", "PROJECT_NOT_FOUND")
	case errors.Is(err, project.ErrNoTranscript):
		WriteError(w, http.StatusNotFound, "project has no transcript", "TRANSCRIPT_NOT_FOUND")
	case errors.Is(err, project.ErrExportNotFound):
		WriteError(w, http.StatusNotFound, "export not found", "EXPORT_NOT_FOUND")
	case errors.Is(err, project.ErrVersionConflict):
		WriteError(w, http.StatusConflict, err.Error(), "VERSION_CONFLICT")
	case errors.Is(err, project.ErrInvalidSegment):
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), "INVALID_SEGMENT_ID")
	case errors.Is(err, project.ErrInvalidProject), errors.Is(err, project.ErrInvalidExport):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case errors.Is(err, suggest.ErrNotFound):
		WriteError(w, http.StatusNotFound, "action not found", "ACTION_NOT_FOUND")
	case errors.Is(err, suggest.ErrExpired):
		WriteError(w, http.StatusUnprocessableEntity, "action has expired", "ACTION_EXPIRED")
	case errors.Is(err, suggest.ErrProjectMismatch):
		WriteError(w, http.StatusUnprocessableEntity, "action belongs to another project", "PROJECT_MISMATCH")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := cfg.Projects.ListProjects(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list projects", "INTERNAL_ERROR")
			return
		}

		resp := ProjectsResponse{Projects: make([]ProjectResponse, len(projects))}
		for i, p := range projects {
			resp.Projects[i] = ProjectToResponse(p)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateProjectRequest
		if !decodeBody(w, r, &req) {
			return
		}

		p, err := cfg.Projects.CreateProject(r.Context(), req.Name, req.MediaPath)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, ProjectToResponse(p))
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := cfg.Projects.GetProject(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ProjectToResponse(p))
	}
}

func deleteProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Projects.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func getTranscriptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tr, err := cfg.Projects.GetTranscript(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, tr)
	}
}

// putTranscriptHandler accepts JSON, or YAML when the content type says so.
func putTranscriptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		format := "json"
		if ct := r.Header.Get("Content-Type"); strings.Contains(ct, "yaml") {
			format = "yaml"
		}
		tr, err := transcript.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes), format)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_TRANSCRIPT")
			return
		}

		if err := cfg.Projects.SetTranscript(r.Context(), id, tr); err != nil {
			writeServiceError(w, err)
			return
		}

		WriteJSON(w, http.StatusOK, transcriptSummary(id, tr))
	}
}

// transcribeHandler runs the speech pipeline synchronously; long media
// keeps the request open until the pipeline finishes.
func transcribeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Transcriber == nil {
			WriteError(w, http.StatusServiceUnavailable, "speech pipeline is not available", "TRANSCRIBER_UNAVAILABLE")
			return
		}
		id := chi.URLParam(r, "id")

		tr, err := cfg.Projects.Transcribe(r.Context(), id, cfg.Transcriber, cfg.WorkDir)
		switch {
		case errors.Is(err, project.ErrNoMedia):
			WriteError(w, http.StatusUnprocessableEntity, err.Error(), "NO_MEDIA")
			return
		case errors.Is(err, transcribe.ErrFailed):
			WriteError(w, http.StatusBadGateway, err.Error(), "TRANSCRIBE_FAILED")
			return
		case err != nil:
			writeServiceError(w, err)
			return
		}

		WriteJSON(w, http.StatusOK, transcriptSummary(id, tr))
	}
}

func transcriptSummary(id string, tr *transcript.Transcript) TranscriptSummaryResponse {
	words := 0
	for _, s := range tr.Segments {
		words += len(s.Words)
	}
	return TranscriptSummaryResponse{
		ProjectID:    id,
		Duration:     transcript.NewIndex(tr).Duration(),
		SegmentCount: len(tr.Segments),
		WordCount:    words,
	}
}

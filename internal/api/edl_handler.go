package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-cut/internal/editor"
	"github.com/heimdex/heimdex-cut/internal/interval"
	"github.com/heimdex/heimdex-cut/internal/playback"
	"github.com/heimdex/heimdex-cut/internal/project"
)

func getEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := cfg.Projects.GetEDL(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, EDLToResponse(v))
	}
}

func putEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req EDLRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Version < 1 {
			WriteError(w, http.StatusBadRequest, "version must be at least 1", "BAD_REQUEST")
			return
		}

		if _, err := cfg.Projects.SaveEDL(r.Context(), id, req.Version, req.Operations); err != nil {
			writeServiceError(w, err)
			return
		}

		v, err := cfg.Projects.GetEDL(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, EDLToResponse(v))
	}
}

// openEditor loads the project state for a read-only derived view.
func openEditor(cfg ServerConfig, r *http.Request) (*editor.Editor, *project.EDLVersion, error) {
	return cfg.Projects.OpenEditor(r.Context(), chi.URLParam(r, "id"), cfg.EditorOptions)
}

func playbackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ed, v, err := openEditor(cfg, r)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		mode := ed.Mode()
		if q := r.URL.Query().Get("mode"); q != "" {
			if mode, err = playback.ParseMode(q); err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
		}

		duration := ed.Index().Duration()
		skips := ed.SkipIntervals(mode)
		kept := interval.Complement(skips, duration)

		edited := interval.Total(kept)
		if mode == playback.ModeComposed {
			edited = ed.Timeline().Duration()
		}

		WriteJSON(w, http.StatusOK, PlaybackResponse{
			Mode:           string(mode),
			EDLVersion:     v.Version,
			SkipIntervals:  skips,
			KeptRanges:     kept,
			Duration:       duration,
			EditedDuration: edited,
		})
	}
}

func timelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ed, v, err := openEditor(cfg, r)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		tl := ed.Timeline()
		WriteJSON(w, http.StatusOK, TimelineResponse{
			EDLVersion: v.Version,
			Composed:   ed.Mode() == playback.ModeComposed,
			Duration:   tl.Duration(),
			Clips:      tl.Clips,
		})
	}
}

func sourceTimeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := floatParam(w, r, "t")
		if !ok {
			return
		}
		ed, _, err := openEditor(cfg, r)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		pos, found := ed.Timeline().SourceTimeAt(t)
		if !found {
			WriteError(w, http.StatusUnprocessableEntity, "output time is outside the timeline", "OUT_OF_RANGE")
			return
		}
		WriteJSON(w, http.StatusOK, SourceTimeResponse{OutputTime: t, Position: pos})
	}
}

// outputTimeHandler maps a source time to output time. With clip (and
// optionally repeat) the lookup is restricted to that placement, which
// disambiguates segments that are played more than once.
func outputTimeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := floatParam(w, r, "t")
		if !ok {
			return
		}
		q := r.URL.Query()

		clip, repeat := -1, 0
		if s := q.Get("clip"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				WriteError(w, http.StatusBadRequest, "clip must be a non-negative integer", "BAD_REQUEST")
				return
			}
			clip = n
		}
		if s := q.Get("repeat"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				WriteError(w, http.StatusBadRequest, "repeat must be a non-negative integer", "BAD_REQUEST")
				return
			}
			repeat = n
		}

		ed, _, err := openEditor(cfg, r)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		tl := ed.Timeline()

		var (
			out   float64
			found bool
		)
		if clip >= 0 {
			out, found = tl.OutputTimeInClip(t, clip, repeat)
		} else {
			out, found = tl.OutputTimeAt(t)
		}
		if !found {
			WriteError(w, http.StatusUnprocessableEntity, "source time is not on the timeline", "NOT_ON_TIMELINE")
			return
		}
		WriteJSON(w, http.StatusOK, OutputTimeResponse{SourceTime: t, OutputTime: out})
	}
}

func floatParam(w http.ResponseWriter, r *http.Request, name string) (float64, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		WriteError(w, http.StatusBadRequest, name+" is required", "BAD_REQUEST")
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		WriteError(w, http.StatusBadRequest, name+" must be a non-negative number", "BAD_REQUEST")
		return 0, false
	}
	return v, true
}

func mediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := cfg.Projects.GetProject(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if p.MediaPath == "" {
			WriteError(w, http.StatusNotFound, "project has no media", "MEDIA_NOT_FOUND")
			return
		}
		if err := cfg.Media.ServeMedia(w, r, p.MediaPath); err != nil {
			cfg.Logger.Error("media error", "project_id", p.ID, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to serve media", "INTERNAL_ERROR")
		}
	}
}

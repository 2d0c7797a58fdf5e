package api

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// maxSuggestionBytes bounds a producer payload.
const maxSuggestionBytes = 1 << 20

func createSuggestionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := cfg.Projects.GetProject(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}

		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSuggestionBytes))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		pending, sug, err := cfg.Suggestions.Register(r.Context(), id, raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_SUGGESTION")
			return
		}

		WriteJSON(w, http.StatusCreated, SuggestionResponse{
			ActionID:    pending.ActionID,
			Action:      sug.Kind,
			Description: sug.Description,
			Preview:     sug.Preview,
			Highlights:  sug.Highlights,
			Operations:  sug.Operations,
			ExpiresAt:   pending.ExpiresAt.Format(time.RFC3339),
		})
	}
}

// confirmSuggestionHandler applies or rejects a pending suggestion. An
// applied suggestion's operations are appended to a new EDL version;
// segments the transcript no longer has are skipped.
func confirmSuggestionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req ConfirmRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.ActionID == "" || req.Confirmed == nil {
			WriteError(w, http.StatusBadRequest, "action_id and confirmed are required", "BAD_REQUEST")
			return
		}

		sug, err := cfg.Suggestions.Resolve(r.Context(), id, req.ActionID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		if !*req.Confirmed {
			cfg.Suggestions.Discard(r.Context(), req.ActionID)
			WriteJSON(w, http.StatusOK, ConfirmResponse{Applied: false})
			return
		}

		if !sug.Actionable() {
			cfg.Suggestions.Discard(r.Context(), req.ActionID)
			reason := sug.Description
			if reason == "" {
				reason = "no action needed"
			}
			WriteJSON(w, http.StatusOK, ConfirmResponse{Applied: false, Reason: reason})
			return
		}

		v, n, err := cfg.Projects.AppendOperations(r.Context(), id, sug.Operations)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if err := cfg.Suggestions.Discard(r.Context(), req.ActionID); err != nil {
			cfg.Logger.Warn("failed to discard applied suggestion", "action_id", req.ActionID, "error", err)
		}
		if n == 0 {
			WriteJSON(w, http.StatusOK, ConfirmResponse{Applied: false, Reason: "suggested segments are not in the transcript", EDLVersion: v.Version})
			return
		}

		cfg.Logger.Info("suggestion applied", "project_id", id, "action_id", req.ActionID, "edl_version", v.Version)
		WriteJSON(w, http.StatusOK, ConfirmResponse{Applied: true, EDLVersion: v.Version})
	}
}

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-cut/internal/export"
)

func createExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if !decodeBody(w, r, &req) {
			return
		}

		outputDir, err := export.ResolveOutputDir(req.OutputDir, cfg.ExportDir)
		if errors.Is(err, export.ErrOutputDir) {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		} else if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to create export directory", "INTERNAL_ERROR")
			return
		}

		rec, err := cfg.Projects.Export(r.Context(), chi.URLParam(r, "id"), export.Request{
			Format:    strings.ToLower(req.Format),
			FrameRate: req.FrameRate,
			OutputDir: outputDir,
			Mode:      req.Mode,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, ExportToResponse(rec))
	}
}

func listExportsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		exports, err := cfg.Projects.ListExports(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		resp := ExportsResponse{Exports: make([]ExportResponse, len(exports))}
		for i, e := range exports {
			resp.Exports[i] = ExportToResponse(e)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := cfg.Projects.GetExport(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "exportID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ExportToResponse(e))
	}
}

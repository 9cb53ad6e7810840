package insights

import (
	"encoding/json"
	"net/http"

	exportdomain "babytrack-go/internal/domain/export"
	commonhandler "babytrack-go/internal/transport/httpserver/handler/common"
	"github.com/go-chi/chi/v5"
)

// ExportRecords serves the snapshot as a JSON file download.
func (h *Handlers) ExportRecords(w http.ResponseWriter, r *http.Request) {
	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")

	snapshot, err := h.Export.Export(r.Context(), user.ID, babyID)
	if err != nil {
		writeServiceError(w, h.log, "export.download", err, "user_id", user.ID, "baby_id", babyID)
		return
	}

	body, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		writeServiceError(w, h.log, "export.download", err, "user_id", user.ID, "baby_id", babyID)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportdomain.Filename(snapshot.ExportDate)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handlers) ArchiveExport(w http.ResponseWriter, r *http.Request) {
	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")

	archived, err := h.Export.Archive(r.Context(), user.ID, babyID)
	if err != nil {
		writeServiceError(w, h.log, "export.archive", err, "user_id", user.ID, "baby_id", babyID)
		return
	}

	h.log.Info("export.archive: snapshot archived", "user_id", user.ID, "baby_id", babyID, "key", archived.Key)
	writeJSON(w, http.StatusCreated, archived)
}

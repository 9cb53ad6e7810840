package insights

import (
	"net/http"

	statsdomain "babytrack-go/internal/domain/stats"
	commonhandler "babytrack-go/internal/transport/httpserver/handler/common"
	"github.com/go-chi/chi/v5"
)

func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")

	query := r.URL.Query()
	days, err := commonhandler.ParseIntParam(query.Get("days"), statsdomain.DefaultDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid days")
		return
	}
	loc, err := commonhandler.ParseLocation(query.Get("tz"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid tz")
		return
	}

	summary, err := h.Stats.Summary(r.Context(), user.ID, babyID, statsdomain.Query{Days: days, Location: loc})
	if err != nil {
		writeServiceError(w, h.log, "stats.summary", err, "user_id", user.ID, "baby_id", babyID)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

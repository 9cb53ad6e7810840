package insights

import (
	"net/http"

	activitydomain "babytrack-go/internal/domain/activity"
	commonhandler "babytrack-go/internal/transport/httpserver/handler/common"
	"github.com/go-chi/chi/v5"
)

type activityListResponse struct {
	Items []activitydomain.Entry `json:"items"`
}

func (h *Handlers) ListActivity(w http.ResponseWriter, r *http.Request) {
	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")

	limit, err := commonhandler.ParseIntParam(r.URL.Query().Get("limit"), activitydomain.DefaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}

	items, err := h.Activity.List(r.Context(), user.ID, babyID, limit)
	if err != nil {
		writeServiceError(w, h.log, "activity.list", err, "user_id", user.ID, "baby_id", babyID)
		return
	}
	if items == nil {
		items = []activitydomain.Entry{}
	}
	writeJSON(w, http.StatusOK, activityListResponse{Items: items})
}

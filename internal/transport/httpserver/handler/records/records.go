package records

import (
	"net/http"

	recordsdomain "babytrack-go/internal/domain/records"
	commonhandler "babytrack-go/internal/transport/httpserver/handler/common"
	"github.com/go-chi/chi/v5"
)

type listResponse[T any] struct {
	Items []T `json:"items"`
}

func (h *Handlers[T, P]) List(w http.ResponseWriter, r *http.Request) {
	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")

	query := r.URL.Query()
	from, err := commonhandler.ParseTimeParam(query.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid from")
		return
	}
	to, err := commonhandler.ParseTimeParam(query.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid to")
		return
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		writeError(w, http.StatusBadRequest, "invalid_request", "to must not be before from")
		return
	}
	limit, err := commonhandler.ParseIntParam(query.Get("limit"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}

	items, err := h.Records.List(r.Context(), user.ID, babyID, recordsdomain.Filter{From: from, To: to, Limit: limit})
	if err != nil {
		writeServiceError(w, h.log, h.op("list"), err, "user_id", user.ID, "baby_id", babyID)
		return
	}
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, listResponse[T]{Items: items})
}

func (h *Handlers[T, P]) Create(w http.ResponseWriter, r *http.Request) {
	var item T
	if err := decodeJSON(r, &item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")

	created, err := h.Records.Create(r.Context(), user.ID, babyID, item)
	if err != nil {
		writeServiceError(w, h.log, h.op("create"), err, "user_id", user.ID, "baby_id", babyID)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handlers[T, P]) Update(w http.ResponseWriter, r *http.Request) {
	var item T
	if err := decodeJSON(r, &item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")
	recordID := chi.URLParam(r, "record_id")

	updated, err := h.Records.Update(r.Context(), user.ID, babyID, recordID, item)
	if err != nil {
		writeServiceError(w, h.log, h.op("update"), err, "user_id", user.ID, "baby_id", babyID, "record_id", recordID)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handlers[T, P]) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")
	recordID := chi.URLParam(r, "record_id")

	if err := h.Records.Delete(r.Context(), user.ID, babyID, recordID); err != nil {
		writeServiceError(w, h.log, h.op("delete"), err, "user_id", user.ID, "baby_id", babyID, "record_id", recordID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Routes mounts list/create on the collection and update/delete on items.
func (h *Handlers[T, P]) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{record_id}", h.Update)
	r.Delete("/{record_id}", h.Delete)
}

func (h *Handlers[T, P]) op(action string) string {
	return "records." + string(h.Records.Kind()) + "." + action
}

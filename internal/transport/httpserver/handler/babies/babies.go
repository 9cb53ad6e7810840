package babies

import (
	"net/http"
	"time"

	babydomain "babytrack-go/internal/domain/baby"
	commonhandler "babytrack-go/internal/transport/httpserver/handler/common"
	"github.com/go-chi/chi/v5"
)

type createBabyRequest struct {
	Name      string  `json:"name"`
	BirthDate string  `json:"birth_date"`
	Gender    *string `json:"gender"`
	Photo     *string `json:"photo"`
}

type updateBabyRequest struct {
	Name      *string        `json:"name"`
	BirthDate *string        `json:"birth_date"`
	Gender    *string        `json:"gender"`
	Photo     nullableString `json:"photo"`
}

type babyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BirthDate string    `json:"birth_date"`
	Gender    *string   `json:"gender"`
	Photo     *string   `json:"photo"`
	CreatedBy string    `json:"created_by"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type babyListResponse struct {
	Items []babyResponse `json:"items"`
}

func (h *Handlers) ListBabies(w http.ResponseWriter, r *http.Request) {
	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}

	items, err := h.Babies.ListBabies(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.log, "babies.list", err, "user_id", user.ID)
		return
	}

	response := make([]babyResponse, 0, len(items))
	for _, item := range items {
		response = append(response, toBabyResponse(item))
	}
	writeJSON(w, http.StatusOK, babyListResponse{Items: response})
}

func (h *Handlers) CreateBaby(w http.ResponseWriter, r *http.Request) {
	var req createBabyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	birthDate, err := commonhandler.ParseTimeParam(req.BirthDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid birth_date")
		return
	}

	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}

	created, err := h.Babies.CreateBaby(r.Context(), user.ID, babydomain.BabyInput{
		Name:      req.Name,
		BirthDate: birthDate,
		Gender:    req.Gender,
		Photo:     req.Photo,
	})
	if err != nil {
		writeServiceError(w, h.log, "babies.create", err, "user_id", user.ID)
		return
	}

	h.refreshSessions(r.Context(), user.ID)
	h.log.Info("babies.create: baby created", "user_id", user.ID, "baby_id", created.ID)
	writeJSON(w, http.StatusCreated, toBabyResponse(*created))
}

func (h *Handlers) GetBaby(w http.ResponseWriter, r *http.Request) {
	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")

	item, err := h.Babies.GetBaby(r.Context(), user.ID, babyID)
	if err != nil {
		writeServiceError(w, h.log, "babies.get", err, "user_id", user.ID, "baby_id", babyID)
		return
	}
	writeJSON(w, http.StatusOK, toBabyResponse(*item))
}

func (h *Handlers) UpdateBaby(w http.ResponseWriter, r *http.Request) {
	var req updateBabyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	patch := babydomain.BabyPatch{
		Name:   req.Name,
		Gender: req.Gender,
	}
	if req.BirthDate != nil {
		birthDate, err := commonhandler.ParseTimeParam(*req.BirthDate)
		if err != nil || birthDate.IsZero() {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid birth_date")
			return
		}
		patch.BirthDate = &birthDate
	}
	if req.Photo.Set {
		patch.Photo = req.Photo.Value
		patch.ClearPhoto = req.Photo.Value == nil
	}

	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")

	updated, err := h.Babies.UpdateBaby(r.Context(), user.ID, babyID, patch)
	if err != nil {
		writeServiceError(w, h.log, "babies.update", err, "user_id", user.ID, "baby_id", babyID)
		return
	}
	writeJSON(w, http.StatusOK, toBabyResponse(*updated))
}

func (h *Handlers) DeleteBaby(w http.ResponseWriter, r *http.Request) {
	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")

	former, err := h.Babies.DeleteBaby(r.Context(), user.ID, babyID)
	if err != nil {
		writeServiceError(w, h.log, "babies.delete", err, "user_id", user.ID, "baby_id", babyID)
		return
	}

	h.refreshSessions(r.Context(), former...)
	h.log.Info("babies.delete: baby deleted", "user_id", user.ID, "baby_id", babyID)
	w.WriteHeader(http.StatusNoContent)
}

func toBabyResponse(item babydomain.BabyWithRole) babyResponse {
	return babyResponse{
		ID:        item.ID,
		Name:      item.Name,
		BirthDate: item.BirthDate.Format(time.DateOnly),
		Gender:    item.Gender,
		Photo:     item.Photo,
		CreatedBy: item.CreatedBy,
		Role:      string(item.Role),
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

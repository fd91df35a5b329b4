package user

import (
	"context"
	"net/http"

	"github.com/frahmantamala/gatepass/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	ListByRole(ctx context.Context, role string) ([]Option, error)
	UpdateProfile(ctx context.Context, id int64, dto UpdateProfileDTO) (*User, error)
	ChangePassword(ctx context.Context, id int64, dto ChangePasswordDTO) error
	List(ctx context.Context, q ListQuery) (*ListResponse, error)
	Create(ctx context.Context, dto CreateUserDTO) (*User, error)
	Update(ctx context.Context, id int64, dto UpdateUserDTO) (*User, error)
	Delete(ctx context.Context, actorID, id int64) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	u, err := h.Service.GetByID(r.Context(), actor.ID)
	if err != nil {
		h.Logger.Error("GetCurrentUser: service GetByID failed", "user_id", actor.ID, "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// UpdateProfile handles PUT /users/me/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	var dto UpdateProfileDTO
	if !h.DecodeJSON(w, r, &dto, false) {
		return
	}

	u, err := h.Service.UpdateProfile(r.Context(), actor.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// ChangePassword handles POST /users/me/change-password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	var dto ChangePasswordDTO
	if !h.DecodeJSON(w, r, &dto, false) {
		return
	}

	if err := h.Service.ChangePassword(r.Context(), actor.ID, dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListByRole handles GET /users/role/{role}
func (h *Handler) ListByRole(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Actor(w, r); !ok {
		return
	}
	opts, err := h.Service.ListByRole(r.Context(), chi.URLParam(r, "role"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, OptionsResponse{Items: opts})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := h.PageParams(w, r)
	if !ok {
		return
	}
	resp, err := h.Service.List(r.Context(), ListQuery{Limit: limit, Offset: offset})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreateUserDTO
	if !h.DecodeJSON(w, r, &dto, false) {
		return
	}
	u, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, u)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}
	var dto UpdateUserDTO
	if !h.DecodeJSON(w, r, &dto, false) {
		return
	}
	u, err := h.Service.Update(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), actor.ID, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, DeleteResponse{ID: id, Message: "User deleted."})
}

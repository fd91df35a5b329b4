package gatepass

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	errors "github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/core/user"
	"github.com/frahmantamala/gatepass/internal/transport"
	"github.com/frahmantamala/gatepass/pkg/logger"
)

type ServiceAPI interface {
	Submit(ctx context.Context, actor user.Actor, dto SubmitGatePassDTO) (*GatePassRequest, error)
	Approve(ctx context.Context, id int64, actor user.Actor, expectedVersion *int64) (*GatePassRequest, error)
	Reject(ctx context.Context, id int64, actor user.Actor, reason string, expectedVersion *int64) (*GatePassRequest, error)
	Modify(ctx context.Context, id int64, actor user.Actor, expectedVersion *int64) (*GatePassRequest, error)
	Delete(ctx context.Context, id int64, actor user.Actor) error
	Get(ctx context.Context, id int64, actor user.Actor) (*GatePassRequest, error)
	Transitions(ctx context.Context, id int64, actor user.Actor) ([]*Transition, error)
	RenderPass(ctx context.Context, id int64, actor user.Actor) ([]byte, error)
	ListPendingFor(ctx context.Context, actor user.Actor, q ListQuery) (*ListResponse, error)
	ListHistoryFor(ctx context.Context, actor user.Actor, q ListQuery) (*ListResponse, error)
	ListApproved(ctx context.Context, actor user.Actor, q ListQuery) (*ListResponse, error)
	ListByStudent(ctx context.Context, actor user.Actor, studentID int64, q ListQuery) (*ListResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI, lg *slog.Logger) *Handler {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	var dto SubmitGatePassDTO
	if !h.DecodeJSON(w, r, &dto, false) {
		return
	}

	g, err := h.Service.Submit(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, g)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}

	g, err := h.Service.Get(r.Context(), id, actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, g)
}

func (h *Handler) Transitions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}

	ts, err := h.Service.Transitions(r.Context(), id, actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": ts})
}

func (h *Handler) Pass(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}

	pdf, err := h.Service.RenderPass(r.Context(), id, actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"gatepass-%d.pdf\"", id))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		h.Logger.Error("Pass: failed to write pdf", "error", err, "request_id", id)
	}
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, ActionApprove)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, ActionReject)
}

func (h *Handler) Modify(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, ActionModify)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action Action) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}

	var dto TransitionDTO
	if !h.DecodeJSON(w, r, &dto, true) {
		return
	}
	version, err := expectedVersion(r, dto.Version)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var g *GatePassRequest
	switch action {
	case ActionApprove:
		g, err = h.Service.Approve(r.Context(), id, actor, version)
	case ActionReject:
		g, err = h.Service.Reject(r.Context(), id, actor, dto.Reason, version)
	case ActionModify:
		g, err = h.Service.Modify(r.Context(), id, actor, version)
	case ActionSubmit, ActionDelete:
		err = ErrInvalidState
	}
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(g.Version, 10)))
	h.WriteJSON(w, http.StatusOK, g)
}

// expectedVersion takes the version from the body, then the version query
// parameter, then If-Match.
func expectedVersion(r *http.Request, fromBody *int64) (*int64, error) {
	if fromBody != nil {
		return fromBody, nil
	}
	raw := r.URL.Query().Get("version")
	if raw == "" {
		raw = strings.Trim(strings.TrimPrefix(r.Header.Get("If-Match"), "W/"), `"`)
	}
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, errors.NewValidationFieldError("version", "version must be a positive integer", errors.ErrCodeInvalidVersion)
	}
	return &v, nil
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

	if err := h.Service.Delete(r.Context(), id, actor); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, DeleteResponse{ID: id, Message: "Gate pass request deleted."})
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	h.list(w, r, func(q ListQuery) (*ListResponse, error) {
		return h.Service.ListByStudent(r.Context(), actor, actor.ID, q)
	})
}

func (h *Handler) ListByStudent(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	studentID, ok := h.IDParam(w, r, "studentId")
	if !ok {
		return
	}
	h.list(w, r, func(q ListQuery) (*ListResponse, error) {
		return h.Service.ListByStudent(r.Context(), actor, studentID, q)
	})
}

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	h.list(w, r, func(q ListQuery) (*ListResponse, error) {
		return h.Service.ListPendingFor(r.Context(), actor, q)
	})
}

func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	h.list(w, r, func(q ListQuery) (*ListResponse, error) {
		return h.Service.ListHistoryFor(r.Context(), actor, q)
	})
}

func (h *Handler) ListApproved(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	h.list(w, r, func(q ListQuery) (*ListResponse, error) {
		return h.Service.ListApproved(r.Context(), actor, q)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, fetch func(ListQuery) (*ListResponse, error)) {
	limit, offset, ok := h.PageParams(w, r)
	if !ok {
		return
	}
	resp, err := fetch(ListQuery{Limit: limit, Offset: offset})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

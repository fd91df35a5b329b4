package gatepass

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	errors "github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/core/common/validation"
	"github.com/frahmantamala/gatepass/internal/core/events"
	"github.com/frahmantamala/gatepass/internal/core/user"
)

var (
	ErrRequestNotFound  = errors.NewNotFoundError("Gate pass request not found", errors.ErrCodeGatePassNotFound)
	ErrApproverNotFound = errors.NewNotFoundError("Assigned approver not found", errors.ErrCodeApproverNotFound)

	// All invalid-state errors share a code, so errors.Is(err, ErrInvalidState) matches each of them.
	ErrInvalidState     = errors.NewInvalidStateError("This request cannot be changed in its current status.", errors.ErrCodeInvalidTransition)
	ErrNotApprovable    = errors.NewInvalidStateError("This request is not awaiting your approval.", errors.ErrCodeInvalidTransition)
	ErrNotRejectable    = errors.NewInvalidStateError("This request cannot be rejected in its current status.", errors.ErrCodeInvalidTransition)
	ErrNotModifiable    = errors.NewInvalidStateError("This request status cannot be modified by you at this time.", errors.ErrCodeInvalidTransition)
	ErrNotDeletable     = errors.NewInvalidStateError("Only requests pending tutor approval can be deleted.", errors.ErrCodeInvalidTransition)
	ErrVersionConflict  = errors.NewInvalidStateError("This request was changed by someone else, reload and try again.", errors.ErrCodeVersionConflict)
	ErrPassNotPrintable = errors.NewInvalidStateError("Only approved gate passes can be printed.", errors.ErrCodePassNotPrintable)

	ErrRoleNotAllowed = errors.NewForbiddenError("Your role cannot perform this action.", errors.ErrCodeRoleNotAllowed)
	ErrNotAssigned    = errors.NewForbiddenError("You are not the assigned approver for this request.", errors.ErrCodeNotAssigned)
	ErrNotOwner       = errors.NewForbiddenError("Only the requesting student can do this.", errors.ErrCodeNotOwner)
	ErrNotParticipant = errors.NewForbiddenError("You cannot view this request.", errors.ErrCodeNotParticipant)
)

// Repository persists gate pass requests and their transition ledger.
type Repository interface {
	// Create stores the request and its submit transition atomically.
	Create(ctx context.Context, g *GatePassRequest, t *Transition) error
	GetByID(ctx context.Context, id int64) (*GatePassRequest, error)
	// ApplyTransition moves the request from current.Status/current.Version to t.ToStatus and
	// appends t, in one transaction. It returns ErrVersionConflict when the row no longer matches.
	ApplyTransition(ctx context.Context, current *GatePassRequest, t *Transition) (*GatePassRequest, error)
	// Delete removes the request only if it is still at the given status and version.
	Delete(ctx context.Context, current *GatePassRequest) error
	ListPending(ctx context.Context, filter ApproverFilter, limit, offset int) ([]*GatePassRequest, error)
	ListActedOn(ctx context.Context, actorID int64, actions []Action, limit, offset int) ([]*GatePassRequest, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*GatePassRequest, error)
	ListByStudent(ctx context.Context, studentID int64, limit, offset int) ([]*GatePassRequest, error)
	ListTransitions(ctx context.Context, requestID int64) ([]*Transition, error)
	CountPendingByApprover(ctx context.Context) ([]PendingCount, error)
	CountForUser(ctx context.Context, userID int64) (int64, error)
	// CountInProgressForApprover counts requests not yet decided that name the user as tutor or warden.
	CountInProgressForApprover(ctx context.Context, approverID int64) (int64, error)
}

// ApproverFilter selects pending requests assigned to one approver.
type ApproverFilter struct {
	Status   Status
	TutorID  int64
	WardenID int64
}

type PendingCount struct {
	ApproverID int64
	Role       user.Role
	Count      int64
}

// UserDirectory resolves the role of an account.
type UserDirectory interface {
	LookupRole(ctx context.Context, id int64) (user.Role, error)
}

// Cache stores JSON encoded values under string keys.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) error
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	DeletePattern(ctx context.Context, pattern string) error
}

type TransitionRecorder interface {
	IncTransition(action, toStatus string)
}

const approvedKeyPrefix = "gatepass:approved:"

type Service struct {
	repo       Repository
	users      UserDirectory
	publisher  events.Publisher
	logger     *slog.Logger
	cache      Cache
	cacheTTL   time.Duration
	recorder   TransitionRecorder
	passRender *PassRenderer

	// approvedGen is part of every approved-list cache key. Bumping it on
	// invalidation strands fills computed from rows read before the change.
	approvedGen atomic.Uint64
}

type Option func(*Service)

func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

func WithRecorder(r TransitionRecorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

func WithPassRenderer(r *PassRenderer) Option {
	return func(s *Service) {
		s.passRender = r
	}
}

func NewService(repo Repository, users UserDirectory, publisher events.Publisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		users:      users,
		publisher:  publisher,
		logger:     logger,
		passRender: NewPassRenderer("Campus Gate Pass"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Submit(ctx context.Context, actor user.Actor, dto SubmitGatePassDTO) (*GatePassRequest, error) {
	if actor.Role != user.RoleStudent {
		s.logger.Warn("submit denied: role not allowed", "actor_id", actor.ID, "role", actor.Role)
		return nil, ErrRoleNotAllowed
	}
	if dto.StudentID == 0 {
		dto.StudentID = actor.ID
	}
	if dto.StudentID != actor.ID {
		s.logger.Warn("submit denied: student id mismatch", "actor_id", actor.ID, "student_id", dto.StudentID)
		return nil, ErrNotOwner
	}
	if strings.TrimSpace(dto.StudentName) == "" {
		dto.StudentName = actor.Name
	}
	if verr := validation.Struct(dto); verr != nil {
		s.logger.Info("gate pass validation failed", "actor_id", actor.ID, "error", verr.GetDetailedMessage())
		return nil, verr
	}

	if err := s.checkApprover(ctx, "tutor_id", dto.TutorID, user.RoleTutor); err != nil {
		return nil, err
	}
	if err := s.checkApprover(ctx, "warden_id", dto.WardenID, user.RoleWarden); err != nil {
		return nil, err
	}

	g := NewGatePassRequest(dto)
	t := &Transition{
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Action:    ActionSubmit,
		ToStatus:  StatusPendingTutor,
		Version:   g.Version,
		CreatedAt: g.CreatedAt,
	}
	if err := s.repo.Create(ctx, g, t); err != nil {
		s.logger.Error("failed to create gate pass request", "error", err, "student_id", actor.ID)
		return nil, errors.NewInternalError("failed to create gate pass request", err)
	}

	s.logger.Info("gate pass request submitted",
		"request_id", g.ID,
		"student_id", g.StudentID,
		"tutor_id", g.TutorID,
		"warden_id", g.WardenID)

	s.record(ActionSubmit, g.Status)
	s.publish(ctx, events.EventTypeGatePassSubmitted, g, actor, "", "")
	return g, nil
}

func (s *Service) checkApprover(ctx context.Context, field string, id int64, want user.Role) error {
	role, err := s.users.LookupRole(ctx, id)
	if err != nil {
		if stdErrors.Is(err, user.ErrNotFound) {
			return ErrApproverNotFound.Clone().WithDetails(errors.ValidationErrors{Errors: []errors.ValidationError{
				{Field: field, Message: fmt.Sprintf("no user with id %d", id), Code: string(errors.ErrCodeApproverNotFound)},
			}})
		}
		s.logger.Error("failed to look up approver", "error", err, "approver_id", id)
		return errors.NewInternalError("failed to look up approver", err)
	}
	if role != want {
		return errors.NewValidationFieldError(field,
			fmt.Sprintf("%s must reference a %s account", field, strings.ToLower(string(want))),
			errors.ErrCodeInvalidApprover)
	}
	return nil
}

func (s *Service) Approve(ctx context.Context, id int64, actor user.Actor, expectedVersion *int64) (*GatePassRequest, error) {
	return s.transition(ctx, id, actor, ActionApprove, expectedVersion, "")
}

func (s *Service) Reject(ctx context.Context, id int64, actor user.Actor, reason string, expectedVersion *int64) (*GatePassRequest, error) {
	return s.transition(ctx, id, actor, ActionReject, expectedVersion, strings.TrimSpace(reason))
}

// Modify revokes the most recent approval stage.
func (s *Service) Modify(ctx context.Context, id int64, actor user.Actor, expectedVersion *int64) (*GatePassRequest, error) {
	return s.transition(ctx, id, actor, ActionModify, expectedVersion, "")
}

func (s *Service) transition(ctx context.Context, id int64, actor user.Actor, action Action, expectedVersion *int64, reason string) (*GatePassRequest, error) {
	if !actor.Role.IsApprover() {
		s.logger.Warn("transition denied: role not allowed", "action", action, "request_id", id, "actor_id", actor.ID, "role", actor.Role)
		return nil, ErrRoleNotAllowed
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, "failed to load gate pass request", id)
	}

	assigned, _ := current.AssignedApprover(actor.Role)
	if assigned != actor.ID {
		s.logger.Warn("transition denied: not the assigned approver",
			"action", action, "request_id", id, "actor_id", actor.ID, "assigned_id", assigned)
		return nil, ErrNotAssigned
	}

	to, ok := NextStatus(current.Status, actor.Role, action)
	if !ok {
		s.logger.Warn("illegal transition",
			"action", action, "request_id", id, "role", actor.Role, "status", current.Status)
		return nil, invalidStateFor(action)
	}

	if expectedVersion != nil && *expectedVersion != current.Version {
		return nil, ErrVersionConflict
	}

	t := &Transition{
		RequestID:  current.ID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		FromStatus: current.Status,
		ToStatus:   to,
		Reason:     reason,
		Version:    current.Version + 1,
		CreatedAt:  time.Now(),
	}
	updated, err := s.repo.ApplyTransition(ctx, current, t)
	if err != nil {
		if stdErrors.Is(err, ErrVersionConflict) {
			s.logger.Info("concurrent transition lost", "action", action, "request_id", id, "actor_id", actor.ID)
			return nil, ErrVersionConflict
		}
		return nil, s.mapRepoError(err, "failed to update gate pass request", id)
	}

	s.logger.Info("gate pass request transitioned",
		"request_id", id,
		"action", action,
		"actor_id", actor.ID,
		"from", current.Status,
		"to", to,
		"version", updated.Version)

	if current.Status == StatusApproved || to == StatusApproved {
		s.invalidateApproved(ctx)
	}
	s.record(action, to)
	s.publish(ctx, eventTypeFor(action), updated, actor, current.Status, reason)
	return updated, nil
}

func invalidStateFor(action Action) *errors.AppError {
	switch action {
	case ActionApprove:
		return ErrNotApprovable
	case ActionReject:
		return ErrNotRejectable
	case ActionModify:
		return ErrNotModifiable
	case ActionDelete:
		return ErrNotDeletable
	case ActionSubmit:
	}
	return ErrInvalidState
}

func eventTypeFor(action Action) string {
	switch action {
	case ActionSubmit:
		return events.EventTypeGatePassSubmitted
	case ActionApprove:
		return events.EventTypeGatePassApproved
	case ActionReject:
		return events.EventTypeGatePassRejected
	case ActionModify:
		return events.EventTypeGatePassModified
	case ActionDelete:
		return events.EventTypeGatePassDeleted
	}
	return ""
}

// Delete removes a request that no approver has acted on yet.
func (s *Service) Delete(ctx context.Context, id int64, actor user.Actor) error {
	if actor.Role != user.RoleStudent {
		return ErrRoleNotAllowed
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.mapRepoError(err, "failed to load gate pass request", id)
	}
	if current.StudentID != actor.ID {
		s.logger.Warn("delete denied: not the owner", "request_id", id, "actor_id", actor.ID)
		return ErrNotOwner
	}
	if current.Status != StatusPendingTutor {
		s.logger.Info("delete refused", "request_id", id, "status", current.Status)
		return ErrNotDeletable
	}

	if err := s.repo.Delete(ctx, current); err != nil {
		if stdErrors.Is(err, ErrVersionConflict) {
			return ErrNotDeletable
		}
		return s.mapRepoError(err, "failed to delete gate pass request", id)
	}

	s.logger.Info("gate pass request deleted", "request_id", id, "student_id", actor.ID)
	s.record(ActionDelete, current.Status)
	s.publish(ctx, events.EventTypeGatePassDeleted, current, actor, current.Status, "")
	return nil
}

func (s *Service) Get(ctx context.Context, id int64, actor user.Actor) (*GatePassRequest, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, "failed to load gate pass request", id)
	}
	if !g.IsParticipant(actor) {
		return nil, ErrNotParticipant
	}
	return g, nil
}

func (s *Service) Transitions(ctx context.Context, id int64, actor user.Actor) ([]*Transition, error) {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return nil, err
	}
	ts, err := s.repo.ListTransitions(ctx, id)
	if err != nil {
		s.logger.Error("failed to list transitions", "error", err, "request_id", id)
		return nil, errors.NewInternalError("failed to list transitions", err)
	}
	return ts, nil
}

// RenderPass produces the printable pass of an approved request.
func (s *Service) RenderPass(ctx context.Context, id int64, actor user.Actor) ([]byte, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, "failed to load gate pass request", id)
	}

	switch actor.Role {
	case user.RoleSecurity, user.RoleAdmin:
	case user.RoleStudent:
		if g.StudentID != actor.ID {
			return nil, ErrNotOwner
		}
	case user.RoleTutor, user.RoleWarden:
		return nil, ErrRoleNotAllowed
	default:
		return nil, ErrRoleNotAllowed
	}

	if g.Status != StatusApproved {
		return nil, ErrPassNotPrintable
	}

	pdf, err := s.passRender.Render(g)
	if err != nil {
		s.logger.Error("failed to render gate pass", "error", err, "request_id", id)
		return nil, errors.NewInternalError("failed to render gate pass", err)
	}
	return pdf, nil
}

// ListPendingFor returns the requests waiting on the actor, oldest first.
func (s *Service) ListPendingFor(ctx context.Context, actor user.Actor, q ListQuery) (*ListResponse, error) {
	limit, offset, verr := validation.Paging(q.Limit, q.Offset)
	if verr != nil {
		return nil, verr
	}

	var filter ApproverFilter
	switch actor.Role {
	case user.RoleTutor:
		filter = ApproverFilter{Status: StatusPendingTutor, TutorID: actor.ID}
	case user.RoleWarden:
		filter = ApproverFilter{Status: StatusPendingWarden, WardenID: actor.ID}
	case user.RoleStudent, user.RoleSecurity, user.RoleAdmin:
		return nil, ErrRoleNotAllowed
	default:
		return nil, ErrRoleNotAllowed
	}

	items, err := s.repo.ListPending(ctx, filter, limit, offset)
	if err != nil {
		s.logger.Error("failed to list pending requests", "error", err, "actor_id", actor.ID)
		return nil, errors.NewInternalError("failed to list pending requests", err)
	}
	return &ListResponse{Items: items, Limit: limit, Offset: offset}, nil
}

// ListHistoryFor returns every request the actor has approved, rejected or modified.
func (s *Service) ListHistoryFor(ctx context.Context, actor user.Actor, q ListQuery) (*ListResponse, error) {
	if !actor.Role.IsApprover() {
		return nil, ErrRoleNotAllowed
	}
	limit, offset, verr := validation.Paging(q.Limit, q.Offset)
	if verr != nil {
		return nil, verr
	}

	items, err := s.repo.ListActedOn(ctx, actor.ID, ApproverActions, limit, offset)
	if err != nil {
		s.logger.Error("failed to list history", "error", err, "actor_id", actor.ID)
		return nil, errors.NewInternalError("failed to list history", err)
	}
	return &ListResponse{Items: items, Limit: limit, Offset: offset}, nil
}

func (s *Service) ListApproved(ctx context.Context, actor user.Actor, q ListQuery) (*ListResponse, error) {
	switch actor.Role {
	case user.RoleSecurity, user.RoleAdmin:
	case user.RoleStudent, user.RoleTutor, user.RoleWarden:
		return nil, ErrRoleNotAllowed
	default:
		return nil, ErrRoleNotAllowed
	}
	limit, offset, verr := validation.Paging(q.Limit, q.Offset)
	if verr != nil {
		return nil, verr
	}

	gen := s.approvedGen.Load()
	key := fmt.Sprintf("%s%d:%d:%d", approvedKeyPrefix, gen, limit, offset)
	if s.cache != nil {
		var cached []*GatePassRequest
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			return &ListResponse{Items: cached, Limit: limit, Offset: offset}, nil
		}
	}

	items, err := s.repo.ListByStatus(ctx, StatusApproved, limit, offset)
	if err != nil {
		s.logger.Error("failed to list approved requests", "error", err)
		return nil, errors.NewInternalError("failed to list approved requests", err)
	}

	if s.cache != nil && s.approvedGen.Load() == gen {
		if err := s.cache.SetJSON(ctx, key, items, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache approved requests", "error", err)
		}
	}
	return &ListResponse{Items: items, Limit: limit, Offset: offset}, nil
}

func (s *Service) ListByStudent(ctx context.Context, actor user.Actor, studentID int64, q ListQuery) (*ListResponse, error) {
	switch actor.Role {
	case user.RoleAdmin:
	case user.RoleStudent:
		if studentID != actor.ID {
			return nil, ErrNotOwner
		}
	case user.RoleTutor, user.RoleWarden, user.RoleSecurity:
		return nil, ErrRoleNotAllowed
	default:
		return nil, ErrRoleNotAllowed
	}
	limit, offset, verr := validation.Paging(q.Limit, q.Offset)
	if verr != nil {
		return nil, verr
	}

	items, err := s.repo.ListByStudent(ctx, studentID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list student requests", "error", err, "student_id", studentID)
		return nil, errors.NewInternalError("failed to list student requests", err)
	}
	return &ListResponse{Items: items, Limit: limit, Offset: offset}, nil
}

// PendingSummary counts waiting requests per approver.
func (s *Service) PendingSummary(ctx context.Context) ([]PendingCount, error) {
	counts, err := s.repo.CountPendingByApprover(ctx)
	if err != nil {
		return nil, fmt.Errorf("count pending requests: %w", err)
	}
	return counts, nil
}

// HasGatePasses reports whether any request references the user as student or approver.
func (s *Service) HasGatePasses(ctx context.Context, userID int64) (bool, error) {
	n, err := s.repo.CountForUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasPendingAssignments reports whether the user is the tutor or warden of a request still awaiting a decision.
func (s *Service) HasPendingAssignments(ctx context.Context, approverID int64) (bool, error) {
	n, err := s.repo.CountInProgressForApprover(ctx, approverID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Service) mapRepoError(err error, msg string, id int64) error {
	if stdErrors.Is(err, ErrRequestNotFound) {
		return ErrRequestNotFound
	}
	s.logger.Error(msg, "error", err, "request_id", id)
	return errors.NewInternalError(msg, err)
}

func (s *Service) invalidateApproved(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.approvedGen.Add(1)
	if err := s.cache.DeletePattern(ctx, approvedKeyPrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate approved cache", "error", err)
	}
}

func (s *Service) record(action Action, to Status) {
	if s.recorder != nil {
		s.recorder.IncTransition(string(action), string(to))
	}
}

func (s *Service) publish(ctx context.Context, eventType string, g *GatePassRequest, actor user.Actor, from Status, reason string) {
	if s.publisher == nil {
		return
	}
	ev := events.NewGatePassEvent(eventType, events.GatePassEventInput{
		RequestID:  g.ID,
		StudentID:  g.StudentID,
		TutorID:    g.TutorID,
		WardenID:   g.WardenID,
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		FromStatus: string(from),
		ToStatus:   string(g.Status),
		Reason:     reason,
	})
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Error("failed to publish gate pass event", "error", err, "event_type", eventType, "request_id", g.ID)
	}
}

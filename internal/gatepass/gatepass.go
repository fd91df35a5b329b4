package gatepass

import (
	"time"

	gatepassDatamodel "github.com/frahmantamala/gatepass/internal/core/datamodel/gatepass"
	"github.com/frahmantamala/gatepass/internal/core/user"
)

type Status string

const (
	StatusPendingTutor  Status = "PENDING_TUTOR_APPROVAL"
	StatusPendingWarden Status = "PENDING_WARDEN_APPROVAL"
	StatusApproved      Status = "APPROVED"
	StatusRejected      Status = "REJECTED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendingTutor, StatusPendingWarden, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (s Status) IsPending() bool {
	return s == StatusPendingTutor || s == StatusPendingWarden
}

type Action string

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionModify  Action = "modify"
	ActionDelete  Action = "delete"
)

// ApproverActions are the actions that put a request into an approver's history.
var ApproverActions = []Action{ActionApprove, ActionReject, ActionModify}

type GatePassRequest struct {
	ID           int64     `json:"id"`
	StudentID    int64     `json:"student_id"`
	StudentName  string    `json:"student_name"`
	RollNumber   string    `json:"roll_number"`
	MobileNumber string    `json:"mobile_number"`
	Department   string    `json:"department"`
	Year         int       `json:"year"`
	ClassSection string    `json:"class_section"`
	Purpose      string    `json:"purpose"`
	TutorID      int64     `json:"tutor_id"`
	WardenID     int64     `json:"warden_id"`
	Status       Status    `json:"status"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Transition struct {
	ID         int64     `json:"id"`
	RequestID  int64     `json:"request_id"`
	ActorID    int64     `json:"actor_id"`
	ActorRole  user.Role `json:"actor_role"`
	Action     Action    `json:"action"`
	FromStatus Status    `json:"from_status,omitempty"`
	ToStatus   Status    `json:"to_status"`
	Reason     string    `json:"reason,omitempty"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
}

// NextStatus is the transition table of the approval workflow. It returns the
// target status for an approver action taken by role from status, and false
// when that combination is not a legal edge.
func NextStatus(from Status, role user.Role, action Action) (Status, bool) {
	switch role {
	case user.RoleTutor:
		switch {
		case action == ActionApprove && from == StatusPendingTutor:
			return StatusPendingWarden, true
		case action == ActionReject && from == StatusPendingTutor:
			return StatusRejected, true
		case action == ActionModify && from == StatusPendingWarden:
			return StatusPendingTutor, true
		}
	case user.RoleWarden:
		switch {
		case action == ActionApprove && from == StatusPendingWarden:
			return StatusApproved, true
		case action == ActionReject && from == StatusPendingWarden:
			return StatusRejected, true
		case action == ActionModify && from == StatusApproved:
			return StatusPendingWarden, true
		}
	case user.RoleStudent, user.RoleSecurity, user.RoleAdmin:
	}
	return "", false
}

// AssignedApprover returns the approver id the role holds on this request.
func (g *GatePassRequest) AssignedApprover(role user.Role) (int64, bool) {
	switch role {
	case user.RoleTutor:
		return g.TutorID, true
	case user.RoleWarden:
		return g.WardenID, true
	case user.RoleStudent, user.RoleSecurity, user.RoleAdmin:
	}
	return 0, false
}

// IsParticipant reports whether the actor may read this request.
func (g *GatePassRequest) IsParticipant(actor user.Actor) bool {
	switch actor.Role {
	case user.RoleAdmin:
		return true
	case user.RoleStudent:
		return g.StudentID == actor.ID
	case user.RoleTutor:
		return g.TutorID == actor.ID
	case user.RoleWarden:
		return g.WardenID == actor.ID
	case user.RoleSecurity:
		return g.Status == StatusApproved
	}
	return false
}

func NewGatePassRequest(dto SubmitGatePassDTO) *GatePassRequest {
	now := time.Now()
	return &GatePassRequest{
		StudentID:    dto.StudentID,
		StudentName:  dto.StudentName,
		RollNumber:   dto.RollNumber,
		MobileNumber: dto.MobileNumber,
		Department:   dto.Department,
		Year:         dto.Year,
		ClassSection: dto.ClassSection,
		Purpose:      dto.Purpose,
		TutorID:      dto.TutorID,
		WardenID:     dto.WardenID,
		Status:       StatusPendingTutor,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func ToDataModel(g *GatePassRequest) *gatepassDatamodel.GatePassRequest {
	return &gatepassDatamodel.GatePassRequest{
		ID:           g.ID,
		StudentID:    g.StudentID,
		StudentName:  g.StudentName,
		RollNumber:   g.RollNumber,
		MobileNumber: g.MobileNumber,
		Department:   g.Department,
		Year:         g.Year,
		ClassSection: g.ClassSection,
		Purpose:      g.Purpose,
		TutorID:      g.TutorID,
		WardenID:     g.WardenID,
		Status:       string(g.Status),
		Version:      g.Version,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

func FromDataModel(g *gatepassDatamodel.GatePassRequest) *GatePassRequest {
	return &GatePassRequest{
		ID:           g.ID,
		StudentID:    g.StudentID,
		StudentName:  g.StudentName,
		RollNumber:   g.RollNumber,
		MobileNumber: g.MobileNumber,
		Department:   g.Department,
		Year:         g.Year,
		ClassSection: g.ClassSection,
		Purpose:      g.Purpose,
		TutorID:      g.TutorID,
		WardenID:     g.WardenID,
		Status:       Status(g.Status),
		Version:      g.Version,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

func TransitionToDataModel(t *Transition) *gatepassDatamodel.Transition {
	return &gatepassDatamodel.Transition{
		ID:         t.ID,
		RequestID:  t.RequestID,
		ActorID:    t.ActorID,
		ActorRole:  string(t.ActorRole),
		Action:     string(t.Action),
		FromStatus: string(t.FromStatus),
		ToStatus:   string(t.ToStatus),
		Reason:     t.Reason,
		Version:    t.Version,
		CreatedAt:  t.CreatedAt,
	}
}

func TransitionFromDataModel(t *gatepassDatamodel.Transition) *Transition {
	return &Transition{
		ID:         t.ID,
		RequestID:  t.RequestID,
		ActorID:    t.ActorID,
		ActorRole:  user.Role(t.ActorRole),
		Action:     Action(t.Action),
		FromStatus: Status(t.FromStatus),
		ToStatus:   Status(t.ToStatus),
		Reason:     t.Reason,
		Version:    t.Version,
		CreatedAt:  t.CreatedAt,
	}
}

package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeGatePassSubmitted = "gatepass.submitted"
	EventTypeGatePassApproved  = "gatepass.approved"
	EventTypeGatePassRejected  = "gatepass.rejected"
	EventTypeGatePassModified  = "gatepass.modified"
	EventTypeGatePassDeleted   = "gatepass.deleted"
)

// GatePassEventTypes lists every lifecycle event, for subscribers interested in all of them.
var GatePassEventTypes = []string{
	EventTypeGatePassSubmitted,
	EventTypeGatePassApproved,
	EventTypeGatePassRejected,
	EventTypeGatePassModified,
	EventTypeGatePassDeleted,
}

type GatePassEvent struct {
	BaseEvent
	RequestID  int64  `json:"request_id"`
	StudentID  int64  `json:"student_id"`
	TutorID    int64  `json:"tutor_id"`
	WardenID   int64  `json:"warden_id"`
	ActorID    int64  `json:"actor_id"`
	ActorRole  string `json:"actor_role"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	Reason     string `json:"reason,omitempty"`
}

type GatePassEventInput struct {
	RequestID  int64
	StudentID  int64
	TutorID    int64
	WardenID   int64
	ActorID    int64
	ActorRole  string
	FromStatus string
	ToStatus   string
	Reason     string
}

func NewGatePassEvent(eventType string, in GatePassEventInput) *GatePassEvent {
	return &GatePassEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"request_id":  in.RequestID,
				"student_id":  in.StudentID,
				"tutor_id":    in.TutorID,
				"warden_id":   in.WardenID,
				"actor_id":    in.ActorID,
				"actor_role":  in.ActorRole,
				"from_status": in.FromStatus,
				"to_status":   in.ToStatus,
				"reason":      in.Reason,
			},
		},
		RequestID:  in.RequestID,
		StudentID:  in.StudentID,
		TutorID:    in.TutorID,
		WardenID:   in.WardenID,
		ActorID:    in.ActorID,
		ActorRole:  in.ActorRole,
		FromStatus: in.FromStatus,
		ToStatus:   in.ToStatus,
		Reason:     in.Reason,
	}
}

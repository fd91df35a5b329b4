package gatepass

import "time"

type GatePassRequest struct {
	ID           int64     `gorm:"primaryKey"`
	StudentID    int64     `gorm:"column:student_id;not null;index"`
	StudentName  string    `gorm:"column:student_name;not null"`
	RollNumber   string    `gorm:"column:roll_number;not null"`
	MobileNumber string    `gorm:"column:mobile_number;not null"`
	Department   string    `gorm:"column:department;not null"`
	Year         int       `gorm:"column:year;not null"`
	ClassSection string    `gorm:"column:class_section;not null"`
	Purpose      string    `gorm:"column:purpose;not null"`
	TutorID      int64     `gorm:"column:tutor_id;not null;index"`
	WardenID     int64     `gorm:"column:warden_id;not null;index"`
	Status       string    `gorm:"column:status;not null;index"`
	Version      int64     `gorm:"column:version;not null;default:1"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (GatePassRequest) TableName() string {
	return "gate_pass_requests"
}

// Transition is one row of the append-only audit ledger.
type Transition struct {
	ID         int64     `gorm:"primaryKey"`
	RequestID  int64     `gorm:"column:request_id;not null;index"`
	ActorID    int64     `gorm:"column:actor_id;not null;index"`
	ActorRole  string    `gorm:"column:actor_role;not null"`
	Action     string    `gorm:"column:action;not null"`
	FromStatus string    `gorm:"column:from_status"`
	ToStatus   string    `gorm:"column:to_status;not null"`
	Reason     string    `gorm:"column:reason"`
	Version    int64     `gorm:"column:version;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Transition) TableName() string {
	return "gate_pass_transitions"
}

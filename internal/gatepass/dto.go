package gatepass

// SubmitGatePassDTO is the payload of a new gate pass request. StudentID and
// StudentName are filled from the caller when omitted.
type SubmitGatePassDTO struct {
	StudentID    int64  `json:"student_id,omitempty" validate:"required,gt=0"`
	StudentName  string `json:"student_name,omitempty" validate:"required,notblank,max=100"`
	RollNumber   string `json:"roll_number" validate:"required,notblank,max=50"`
	MobileNumber string `json:"mobile_number" validate:"required,notblank,max=20"`
	Department   string `json:"department" validate:"required,notblank,max=100"`
	Year         int    `json:"year" validate:"gt=0,max=10"`
	ClassSection string `json:"class_section" validate:"required,notblank,max=20"`
	Purpose      string `json:"purpose" validate:"required,notblank,max=1000"`
	TutorID      int64  `json:"tutor_id" validate:"required,gt=0"`
	WardenID     int64  `json:"warden_id" validate:"required,gt=0"`
}

// TransitionDTO is the optional body of approve, reject and modify calls.
// Version, when set, must equal the request's current version.
type TransitionDTO struct {
	Version *int64 `json:"version,omitempty"`
	Reason  string `json:"reason,omitempty" validate:"max=500"`
}

type ListQuery struct {
	Limit  int
	Offset int
}

type ListResponse struct {
	Items  []*GatePassRequest `json:"items"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

type DeleteResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

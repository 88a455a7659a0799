package models

import "time"

// ExemptionStatus is a strict subset of the application state space: a single
// advisor decision settles it.
type ExemptionStatus string

const (
	ExemptionStatusAwaitingAdvisor ExemptionStatus = "AWAITING_ADVISOR"
	ExemptionStatusApproved        ExemptionStatus = "APPROVED"
	ExemptionStatusRejected        ExemptionStatus = "REJECTED"
)

// ExemptionApplication asks to count prior work experience in place of an
// internship. It shares the CAP resolution and advisor scoping with the main
// pipeline but has no career-center or company stage.
type ExemptionApplication struct {
	ID           int64           `db:"id" json:"id"`
	StudentID    string          `db:"student_id" json:"student_id"`
	AdvisorEmail string          `db:"advisor_email" json:"advisor_email"`
	CompanyName  string          `db:"company_name" json:"company_name"`
	Reason       string          `db:"reason" json:"reason"`
	Status       ExemptionStatus `db:"status" json:"status"`
	Decision     Decision        `db:"decision" json:"decision"`
	Remark       *string         `db:"remark" json:"remark,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// ExemptionDetail enriches an exemption with student context.
type ExemptionDetail struct {
	ExemptionApplication
	StudentName   string `db:"student_name" json:"student_name"`
	StudentNumber string `db:"student_number" json:"student_number"`
}

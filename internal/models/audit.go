package models

import "time"

// AuditAction constants represent state transitions to be logged.
const (
	AuditActionLogin              = "LOGIN"
	AuditActionLogout             = "LOGOUT"
	AuditActionAdvisorApprove     = "ADVISOR_APPROVE"
	AuditActionAdvisorReject      = "ADVISOR_REJECT"
	AuditActionCareerApprove      = "CAREER_CENTER_APPROVE"
	AuditActionCareerReject       = "CAREER_CENTER_REJECT"
	AuditActionCompanyApprove     = "COMPANY_APPROVE"
	AuditActionCompanyReject      = "COMPANY_REJECT"
	AuditActionCancel             = "CANCEL"
	AuditActionDiaryUpload        = "DIARY_UPLOAD"
	AuditActionDiaryCompanyDecide = "DIARY_COMPANY_DECIDE"
	AuditActionDiaryAdvisorDecide = "DIARY_ADVISOR_DECIDE"
	AuditActionExemptionDecide    = "EXEMPTION_DECIDE"
)

// AuditLog is an append-only record of a state transition. Rows are written
// as a committed side effect of every transition and never mutated.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	ActorID    *string   `db:"actor_id" json:"actor_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Detail     []byte    `db:"detail" json:"detail,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

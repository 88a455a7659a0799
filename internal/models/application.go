package models

import "time"

// ApplicationStatus is the overall state of an internship application. The
// literal tokens are persisted and must round-trip unchanged.
type ApplicationStatus string

const (
	ApplicationStatusAwaitingAdvisor      ApplicationStatus = "AWAITING_ADVISOR"
	ApplicationStatusAwaitingCareerCenter ApplicationStatus = "AWAITING_CAREER_CENTER"
	ApplicationStatusAwaitingCompany      ApplicationStatus = "AWAITING_COMPANY"
	ApplicationStatusApproved             ApplicationStatus = "APPROVED"
	ApplicationStatusRejected             ApplicationStatus = "REJECTED"
	ApplicationStatusCancelled            ApplicationStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition can leave the status.
func (s ApplicationStatus) IsTerminal() bool {
	switch s {
	case ApplicationStatusApproved, ApplicationStatusRejected, ApplicationStatusCancelled:
		return true
	}
	return false
}

// Decision is the tri-state verdict of a single gatekeeper.
type Decision string

const (
	DecisionUndecided Decision = "UNDECIDED"
	DecisionApproved  Decision = "APPROVED"
	DecisionRejected  Decision = "REJECTED"
)

// InternshipType distinguishes curriculum variants of an internship.
type InternshipType string

const (
	InternshipTypeMandatory  InternshipType = "MANDATORY"
	InternshipTypeElective   InternshipType = "ELECTIVE"
	InternshipTypeRegulatory InternshipType = "REGULATORY"
)

// Application is one internship placement attempt. The overall status is a
// cached projection of the three per-actor decisions plus cancellation; the
// per-actor fields never regress once decided.
type Application struct {
	ID        int64  `db:"id" json:"id"`
	StudentID string `db:"student_id" json:"student_id"`

	CompanyName    string `db:"company_name" json:"company_name"`
	CompanyAddress string `db:"company_address" json:"company_address"`
	CompanyContact string `db:"company_contact" json:"company_contact"`
	CompanyEmail   string `db:"company_email" json:"company_email"`

	Type      InternshipType `db:"type" json:"type"`
	StartDate time.Time      `db:"start_date" json:"start_date"`
	EndDate   time.Time      `db:"end_date" json:"end_date"`
	TotalDays int            `db:"total_days" json:"total_days"`

	// The advisor is bound by email at submission time, not by foreign key.
	AdvisorEmail string `db:"advisor_email" json:"advisor_email"`

	DualMajor           bool    `db:"dual_major" json:"dual_major"`
	DualMajorFaculty    *string `db:"dual_major_faculty" json:"dual_major_faculty,omitempty"`
	DualMajorDepartment *string `db:"dual_major_department" json:"dual_major_department,omitempty"`

	Status ApplicationStatus `db:"status" json:"status"`

	AdvisorDecision      Decision `db:"advisor_decision" json:"advisor_decision"`
	AdvisorRemark        *string  `db:"advisor_remark" json:"advisor_remark,omitempty"`
	CareerCenterDecision Decision `db:"career_center_decision" json:"career_center_decision"`
	CareerCenterRemark   *string  `db:"career_center_remark" json:"career_center_remark,omitempty"`
	CompanyDecision      Decision `db:"company_decision" json:"company_decision"`
	CompanyRemark        *string  `db:"company_remark" json:"company_remark,omitempty"`

	CancelReason *string `db:"cancel_reason" json:"cancel_reason,omitempty"`

	OTPCode      *string    `db:"otp_code" json:"-"`
	OTPExpiresAt *time.Time `db:"otp_expires_at" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ApplicationDetail enriches an Application with student context for worklists.
type ApplicationDetail struct {
	Application
	StudentName   string `db:"student_name" json:"student_name"`
	StudentNumber string `db:"student_number" json:"student_number"`
	Faculty       string `db:"faculty" json:"faculty"`
	Department    string `db:"department" json:"department"`
}

// ApplicationFilter provides filters for listing applications.
type ApplicationFilter struct {
	AdvisorEmail string
	StudentID    string
	Status       ApplicationStatus
	Type         InternshipType
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// ParseApplicationStatus converts a raw string to a status, rejecting
// unknown tokens.
func ParseApplicationStatus(raw string) (ApplicationStatus, bool) {
	s := ApplicationStatus(raw)
	switch s {
	case ApplicationStatusAwaitingAdvisor, ApplicationStatusAwaitingCareerCenter,
		ApplicationStatusAwaitingCompany, ApplicationStatusApproved,
		ApplicationStatusRejected, ApplicationStatusCancelled:
		return s, true
	}
	return "", false
}

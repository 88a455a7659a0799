package dto

import "time"

// CreateApplicationRequest is the student submission payload.
type CreateApplicationRequest struct {
	CompanyName         string    `json:"company_name" validate:"required"`
	CompanyAddress      string    `json:"company_address"`
	CompanyContact      string    `json:"company_contact"`
	CompanyEmail        string    `json:"company_email" validate:"required,email"`
	Type                string    `json:"type" validate:"required,oneof=MANDATORY ELECTIVE REGULATORY"`
	StartDate           time.Time `json:"start_date" validate:"required"`
	EndDate             time.Time `json:"end_date" validate:"required"`
	TotalDays           int       `json:"total_days" validate:"required,gt=0"`
	AdvisorEmail        string    `json:"advisor_email" validate:"required,email"`
	DualMajor           bool      `json:"dual_major"`
	DualMajorFaculty    *string   `json:"dual_major_faculty"`
	DualMajorDepartment *string   `json:"dual_major_department"`
}

// ApproveRequest carries an optional remark for an approval.
type ApproveRequest struct {
	Remark *string `json:"remark"`
}

// RejectRequest carries the mandatory rejection reason.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// CancelRequest is the student withdrawal payload.
type CancelRequest struct {
	Reason string `json:"reason" validate:"required,min=10"`
}

// CompanyDecisionRequest is used by company contacts on applications. The
// credential replaces a login session.
type CompanyDecisionRequest struct {
	Credential string  `json:"credential" validate:"required"`
	Decision   string  `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
	Remark     *string `json:"remark"`
	Reason     string  `json:"reason"`
}

// ApplicationQuery filters list endpoints.
type ApplicationQuery struct {
	Status   string `form:"status"`
	Type     string `form:"type"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

package models

import "time"

// DiaryStatus is the state of a post-internship diary.
type DiaryStatus string

const (
	DiaryStatusPending         DiaryStatus = "PENDING"
	DiaryStatusAwaitingCompany DiaryStatus = "AWAITING_COMPANY"
	DiaryStatusCompanyRejected DiaryStatus = "COMPANY_REJECTED"
	DiaryStatusAwaitingAdvisor DiaryStatus = "AWAITING_ADVISOR"
	DiaryStatusAdvisorRejected DiaryStatus = "ADVISOR_REJECTED"
	DiaryStatusApproved        DiaryStatus = "APPROVED"
	DiaryStatusRejected        DiaryStatus = "REJECTED"
)

// InPipeline reports whether the diary has entered the approval pipeline,
// i.e. moved past PENDING. Such diaries stay visible after the upload
// deadline for audit purposes.
func (s DiaryStatus) InPipeline() bool {
	return s != DiaryStatusPending
}

// IsTerminal reports whether no further transition can leave the status.
func (s DiaryStatus) IsTerminal() bool {
	switch s {
	case DiaryStatusCompanyRejected, DiaryStatusAdvisorRejected,
		DiaryStatusApproved, DiaryStatusRejected:
		return true
	}
	return false
}

// Diary is the internship logbook attached to exactly one application. It is
// created in PENDING when the advisor approves the application and is never
// deleted.
type Diary struct {
	ID            int64  `db:"id" json:"id"`
	ApplicationID int64  `db:"application_id" json:"application_id"`
	StudentID     string `db:"student_id" json:"student_id"`

	Status DiaryStatus `db:"status" json:"status"`

	FilePath   *string    `db:"file_path" json:"file_path,omitempty"`
	UploadedAt *time.Time `db:"uploaded_at" json:"uploaded_at,omitempty"`

	CompanyDecision Decision `db:"company_decision" json:"company_decision"`
	CompanyRemark   *string  `db:"company_remark" json:"company_remark,omitempty"`
	AdvisorDecision Decision `db:"advisor_decision" json:"advisor_decision"`
	AdvisorRemark   *string  `db:"advisor_remark" json:"advisor_remark,omitempty"`

	OTPCode      *string    `db:"otp_code" json:"-"`
	OTPExpiresAt *time.Time `db:"otp_expires_at" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DiaryDetail joins the diary with its application context and carries the
// flags derived from the eligibility window. The flags are recomputed on
// every fetch, never stored.
type DiaryDetail struct {
	Diary
	StudentName   string    `db:"student_name" json:"student_name"`
	StudentNumber string    `db:"student_number" json:"student_number"`
	StudentEmail  string    `db:"student_email" json:"-"`
	CompanyName   string    `db:"company_name" json:"company_name"`
	CompanyEmail  string    `db:"company_email" json:"company_email"`
	AdvisorEmail  string    `db:"advisor_email" json:"advisor_email"`
	StartDate     time.Time `db:"start_date" json:"start_date"`
	EndDate       time.Time `db:"end_date" json:"end_date"`

	Running          bool      `db:"-" json:"running"`
	UploadWindowOpen bool      `db:"-" json:"upload_window_open"`
	UploadDeadline   time.Time `db:"-" json:"upload_deadline"`
}

// DiaryFilter provides filters for listing diaries.
type DiaryFilter struct {
	AdvisorEmail string
	StudentID    string
	Status       DiaryStatus
	Page         int
	PageSize     int
}

// ParseDiaryDecision validates a company/advisor decision token.
func ParseDiaryDecision(raw string) (Decision, bool) {
	switch Decision(raw) {
	case DecisionApproved:
		return DecisionApproved, true
	case DecisionRejected:
		return DecisionRejected, true
	}
	return "", false
}

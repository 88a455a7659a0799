package dto

// DiaryDecisionRequest is the advisor verdict on a diary.
type DiaryDecisionRequest struct {
	Decision string  `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
	Remark   *string `json:"remark"`
}

// CompanyDiaryDecisionRequest is the company verdict on a diary, gated by the
// one-time credential.
type CompanyDiaryDecisionRequest struct {
	Credential string  `json:"credential" validate:"required"`
	Decision   string  `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
	Remark     *string `json:"remark"`
}

// DiaryQuery filters diary list endpoints.
type DiaryQuery struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

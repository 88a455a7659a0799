package dto

// CreateExemptionRequest asks to count prior work experience as an internship.
type CreateExemptionRequest struct {
	AdvisorEmail string `json:"advisor_email" validate:"required,email"`
	CompanyName  string `json:"company_name" validate:"required"`
	Reason       string `json:"reason" validate:"required,min=10"`
}

// ExemptionDecisionRequest is the advisor verdict on an exemption.
type ExemptionDecisionRequest struct {
	Decision string  `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
	Remark   *string `json:"remark"`
}

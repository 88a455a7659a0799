package models

import "time"

// Advisor is an academic staff member acting as first-stage gatekeeper.
type Advisor struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AdvisorIdentity is the operator identity carried into authorization checks.
type AdvisorIdentity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// ResolutionPath names which authorization path justified advisor access.
type ResolutionPath string

const (
	ResolutionPathDualMajor ResolutionPath = "DUAL_MAJOR"
	ResolutionPathPrimary   ResolutionPath = "PRIMARY"
)

// CapResolution is the authoritative academic identity resolved for a
// student/operator pair.
type CapResolution struct {
	Path       ResolutionPath `json:"path"`
	Faculty    string         `json:"faculty"`
	Department string         `json:"department"`
	Class      string         `json:"class"`
	AdvisorID  string         `json:"advisor_id"`
}

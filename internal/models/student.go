package models

import "time"

// Student represents a learner registered in the institution.
type Student struct {
	ID         string    `db:"id" json:"id"`
	Number     string    `db:"number" json:"number"`
	FullName   string    `db:"full_name" json:"full_name"`
	Email      string    `db:"email" json:"email"`
	Faculty    string    `db:"faculty" json:"faculty"`
	Department string    `db:"department" json:"department"`
	Class      string    `db:"class" json:"class"`
	AdvisorID  *string   `db:"advisor_id" json:"advisor_id,omitempty"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// DualMajorRecord captures a student's concurrent enrollment in a second
// degree program, with its own advisor distinct from the primary one.
type DualMajorRecord struct {
	ID            string    `db:"id" json:"id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	StudentNumber string    `db:"student_number" json:"student_number"`
	Faculty       string    `db:"faculty" json:"faculty"`
	Department    string    `db:"department" json:"department"`
	Class         string    `db:"class" json:"class"`
	AdvisorID     string    `db:"advisor_id" json:"advisor_id"`
	AdvisorEmail  string    `db:"advisor_email" json:"advisor_email"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

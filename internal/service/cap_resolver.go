package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/stajtakip/internship-api/internal/models"
	appErrors "github.com/stajtakip/internship-api/pkg/errors"
)

type capStudentStore interface {
	GetByID(ctx context.Context, id string) (*models.Student, error)
}

type capDualMajorStore interface {
	FindByNumberAndAdvisor(ctx context.Context, studentNumber, advisorID string) (*models.DualMajorRecord, error)
	FindByStudentAndAdvisor(ctx context.Context, studentID, advisorID string) (*models.DualMajorRecord, error)
	FindByStudent(ctx context.Context, studentID string) (*models.DualMajorRecord, error)
}

type capRecordCounter interface {
	CountRecordsForStudent(ctx context.Context, advisorEmail, studentID string) (int, error)
}

// CapResolver determines which academic identity applies when an advisor acts
// on a student who may be concurrently enrolled in a second program. The
// fallback chain is strictly ordered: first match wins, later steps are never
// merged in.
type CapResolver struct {
	students   capStudentStore
	dualMajors capDualMajorStore
	records    capRecordCounter
	logger     *zap.Logger
}

// NewCapResolver constructs the resolver.
func NewCapResolver(students capStudentStore, dualMajors capDualMajorStore, records capRecordCounter, logger *zap.Logger) *CapResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapResolver{students: students, dualMajors: dualMajors, records: records, logger: logger}
}

type dualMajorLookup func(ctx context.Context) (*models.DualMajorRecord, error)

// firstRecord evaluates lookups in order and returns the first hit. A miss is
// sql.ErrNoRows; any other error aborts the chain.
func firstRecord(ctx context.Context, lookups ...dualMajorLookup) (*models.DualMajorRecord, error) {
	for _, lookup := range lookups {
		record, err := lookup(ctx)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}
	return nil, sql.ErrNoRows
}

// Resolve returns the authoritative faculty/department/class for the operator
// acting on the student, or NotFound when neither authorization path holds.
// The application, when given, contributes its stored dual-major snapshot to
// the display fields.
func (r *CapResolver) Resolve(ctx context.Context, operator models.AdvisorIdentity, studentID string, app *models.Application) (*models.CapResolution, error) {
	student, err := r.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	// Path 1: the operator is the student's dual-major advisor. The scoped
	// lookups may match by number or by id; the unscoped lookup only feeds
	// display data once one of the scoped ones authorized.
	record, err := firstRecord(ctx,
		func(ctx context.Context) (*models.DualMajorRecord, error) {
			return r.dualMajors.FindByNumberAndAdvisor(ctx, student.Number, operator.ID)
		},
		func(ctx context.Context) (*models.DualMajorRecord, error) {
			return r.dualMajors.FindByStudentAndAdvisor(ctx, studentID, operator.ID)
		},
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve dual-major record")
	}
	if record != nil {
		return dualMajorResolution(student, record, app), nil
	}

	// Path 2: the operator is the advisor of record on at least one of the
	// student's applications or exemptions.
	count, err := r.records.CountRecordsForStudent(ctx, operator.Email, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check advisor records")
	}
	if count > 0 {
		return &models.CapResolution{
			Path:       models.ResolutionPathPrimary,
			Faculty:    student.Faculty,
			Department: student.Department,
			Class:      student.Class,
			AdvisorID:  operator.ID,
		}, nil
	}

	// Unauthorized folds into NotFound so callers cannot probe existence.
	return nil, appErrors.ErrNotFound
}

func dualMajorResolution(student *models.Student, record *models.DualMajorRecord, app *models.Application) *models.CapResolution {
	resolution := &models.CapResolution{
		Path:      models.ResolutionPathDualMajor,
		Class:     record.Class,
		AdvisorID: record.AdvisorID,
	}
	switch {
	case app != nil && app.DualMajorFaculty != nil && *app.DualMajorFaculty != "":
		resolution.Faculty = *app.DualMajorFaculty
		if app.DualMajorDepartment != nil {
			resolution.Department = *app.DualMajorDepartment
		}
	case record.Faculty != "":
		resolution.Faculty = record.Faculty
		resolution.Department = record.Department
	default:
		resolution.Faculty = student.Faculty
		resolution.Department = student.Department
	}
	if resolution.Department == "" {
		resolution.Department = student.Department
	}
	return resolution
}

// DisplayRecord looks up the best-available dual-major record for rendering
// purposes only. The three-step chain covers records reachable by
// number+advisor, id+advisor, or id alone; it must never be used as an
// authorization decision.
func (r *CapResolver) DisplayRecord(ctx context.Context, operator models.AdvisorIdentity, student *models.Student) (*models.DualMajorRecord, error) {
	record, err := firstRecord(ctx,
		func(ctx context.Context) (*models.DualMajorRecord, error) {
			return r.dualMajors.FindByNumberAndAdvisor(ctx, student.Number, operator.ID)
		},
		func(ctx context.Context) (*models.DualMajorRecord, error) {
			return r.dualMajors.FindByStudentAndAdvisor(ctx, student.ID, operator.ID)
		},
		func(ctx context.Context) (*models.DualMajorRecord, error) {
			return r.dualMajors.FindByStudent(ctx, student.ID)
		},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up dual-major record")
	}
	return record, nil
}

// MatchesAdvisorEmail reports whether the operator email matches the bound
// advisor email on a record, ignoring case.
func MatchesAdvisorEmail(operatorEmail, boundEmail string) bool {
	return operatorEmail != "" && strings.EqualFold(operatorEmail, boundEmail)
}

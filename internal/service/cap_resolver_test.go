package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stajtakip/internship-api/internal/models"
	appErrors "github.com/stajtakip/internship-api/pkg/errors"
)

type stubStudentStore struct {
	student *models.Student
}

func (s *stubStudentStore) GetByID(context.Context, string) (*models.Student, error) {
	if s.student == nil {
		return nil, sql.ErrNoRows
	}
	return s.student, nil
}

type stubDualMajorStore struct {
	byNumber  *models.DualMajorRecord
	byStudent *models.DualMajorRecord
	unscoped  *models.DualMajorRecord

	numberCalls, studentCalls, unscopedCalls int
}

func (s *stubDualMajorStore) FindByNumberAndAdvisor(context.Context, string, string) (*models.DualMajorRecord, error) {
	s.numberCalls++
	if s.byNumber == nil {
		return nil, sql.ErrNoRows
	}
	return s.byNumber, nil
}

func (s *stubDualMajorStore) FindByStudentAndAdvisor(context.Context, string, string) (*models.DualMajorRecord, error) {
	s.studentCalls++
	if s.byStudent == nil {
		return nil, sql.ErrNoRows
	}
	return s.byStudent, nil
}

func (s *stubDualMajorStore) FindByStudent(context.Context, string) (*models.DualMajorRecord, error) {
	s.unscopedCalls++
	if s.unscoped == nil {
		return nil, sql.ErrNoRows
	}
	return s.unscoped, nil
}

type stubRecordCounter struct {
	count int
}

func (s *stubRecordCounter) CountRecordsForStudent(context.Context, string, string) (int, error) {
	return s.count, nil
}

func testStudent() *models.Student {
	return &models.Student{
		ID:         "student-1",
		Number:     "20210001",
		FullName:   "Jane Doe",
		Faculty:    "Engineering",
		Department: "Computer Engineering",
		Class:      "3",
	}
}

func TestCapResolverDualMajorPathWinsOverPrimary(t *testing.T) {
	students := &stubStudentStore{student: testStudent()}
	dualMajors := &stubDualMajorStore{
		byNumber: &models.DualMajorRecord{
			StudentID:  "student-1",
			Faculty:    "Business",
			Department: "Management",
			Class:      "2",
			AdvisorID:  "advisor-2",
		},
	}
	// The operator is also advisor of record; the dual-major path must still win.
	resolver := NewCapResolver(students, dualMajors, &stubRecordCounter{count: 3}, nil)

	res, err := resolver.Resolve(context.Background(), models.AdvisorIdentity{ID: "advisor-2", Email: "dm@uni.example"}, "student-1", nil)
	require.NoError(t, err)
	require.Equal(t, models.ResolutionPathDualMajor, res.Path)
	require.Equal(t, "Business", res.Faculty)
	require.Equal(t, "Management", res.Department)
	require.Equal(t, "advisor-2", res.AdvisorID)
}

func TestCapResolverApplicationSnapshotOverridesRecord(t *testing.T) {
	students := &stubStudentStore{student: testStudent()}
	dualMajors := &stubDualMajorStore{
		byNumber: &models.DualMajorRecord{Faculty: "Business", Department: "Management", Class: "2", AdvisorID: "advisor-2"},
	}
	resolver := NewCapResolver(students, dualMajors, &stubRecordCounter{}, nil)

	faculty := "Economics"
	department := "Finance"
	app := &models.Application{DualMajor: true, DualMajorFaculty: &faculty, DualMajorDepartment: &department}
	res, err := resolver.Resolve(context.Background(), models.AdvisorIdentity{ID: "advisor-2"}, "student-1", app)
	require.NoError(t, err)
	require.Equal(t, "Economics", res.Faculty)
	require.Equal(t, "Finance", res.Department)
}

func TestCapResolverFallsBackToStudentPrimaryDisplay(t *testing.T) {
	students := &stubStudentStore{student: testStudent()}
	dualMajors := &stubDualMajorStore{
		byStudent: &models.DualMajorRecord{Class: "2", AdvisorID: "advisor-2"},
	}
	resolver := NewCapResolver(students, dualMajors, &stubRecordCounter{}, nil)

	res, err := resolver.Resolve(context.Background(), models.AdvisorIdentity{ID: "advisor-2"}, "student-1", nil)
	require.NoError(t, err)
	require.Equal(t, models.ResolutionPathDualMajor, res.Path)
	require.Equal(t, "Engineering", res.Faculty)
	require.Equal(t, "Computer Engineering", res.Department)
	// The first scoped lookup missed, so the second had to run.
	require.Equal(t, 1, dualMajors.numberCalls)
	require.Equal(t, 1, dualMajors.studentCalls)
}

func TestCapResolverPrimaryPath(t *testing.T) {
	students := &stubStudentStore{student: testStudent()}
	resolver := NewCapResolver(students, &stubDualMajorStore{}, &stubRecordCounter{count: 1}, nil)

	res, err := resolver.Resolve(context.Background(), models.AdvisorIdentity{ID: "advisor-1", Email: "advisor@uni.example"}, "student-1", nil)
	require.NoError(t, err)
	require.Equal(t, models.ResolutionPathPrimary, res.Path)
	require.Equal(t, "Engineering", res.Faculty)
	require.Equal(t, "advisor-1", res.AdvisorID)
}

func TestCapResolverUnauthorizedFoldsIntoNotFound(t *testing.T) {
	students := &stubStudentStore{student: testStudent()}
	resolver := NewCapResolver(students, &stubDualMajorStore{}, &stubRecordCounter{count: 0}, nil)

	_, err := resolver.Resolve(context.Background(), models.AdvisorIdentity{ID: "advisor-9", Email: "nobody@uni.example"}, "student-1", nil)
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
}

func TestCapResolverMissingStudentIsNotFound(t *testing.T) {
	resolver := NewCapResolver(&stubStudentStore{}, &stubDualMajorStore{}, &stubRecordCounter{}, nil)
	_, err := resolver.Resolve(context.Background(), models.AdvisorIdentity{ID: "advisor-1"}, "ghost", nil)
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
}

func TestDisplayRecordChainStopsAtFirstHit(t *testing.T) {
	students := &stubStudentStore{student: testStudent()}
	dualMajors := &stubDualMajorStore{
		byNumber: &models.DualMajorRecord{Faculty: "Business"},
		unscoped: &models.DualMajorRecord{Faculty: "Law"},
	}
	resolver := NewCapResolver(students, dualMajors, &stubRecordCounter{}, nil)

	record, err := resolver.DisplayRecord(context.Background(), models.AdvisorIdentity{ID: "advisor-2"}, testStudent())
	require.NoError(t, err)
	require.Equal(t, "Business", record.Faculty)
	require.Zero(t, dualMajors.unscopedCalls)
}

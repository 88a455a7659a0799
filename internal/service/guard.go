package service

import (
	"context"

	"github.com/stajtakip/internship-api/internal/models"
	appErrors "github.com/stajtakip/internship-api/pkg/errors"
)

// AccessGuard applies the scoping rule shared by every mutating operation: an
// actor may only touch records they legitimately own. Violations surface as
// NotFound, indistinguishable from a missing record.
type AccessGuard struct {
	resolver *CapResolver
}

// NewAccessGuard constructs the guard.
func NewAccessGuard(resolver *CapResolver) *AccessGuard {
	return &AccessGuard{resolver: resolver}
}

// AdvisorForApplication verifies the operator may act as the advisor on the
// application, either through the bound advisor email or a CAP path.
func (g *AccessGuard) AdvisorForApplication(ctx context.Context, operator models.AdvisorIdentity, app *models.Application) error {
	if app == nil {
		return appErrors.ErrNotFound
	}
	if MatchesAdvisorEmail(operator.Email, app.AdvisorEmail) {
		return nil
	}
	if g.resolver != nil {
		if _, err := g.resolver.Resolve(ctx, operator, app.StudentID, app); err == nil {
			return nil
		}
	}
	return appErrors.ErrNotFound
}

// AdvisorForDiary verifies the operator may act as the advisor on the diary.
func (g *AccessGuard) AdvisorForDiary(ctx context.Context, operator models.AdvisorIdentity, diary *models.DiaryDetail) error {
	if diary == nil {
		return appErrors.ErrNotFound
	}
	if MatchesAdvisorEmail(operator.Email, diary.AdvisorEmail) {
		return nil
	}
	if g.resolver != nil {
		if _, err := g.resolver.Resolve(ctx, operator, diary.StudentID, nil); err == nil {
			return nil
		}
	}
	return appErrors.ErrNotFound
}

// StudentOwns verifies the acting student owns the record.
func (g *AccessGuard) StudentOwns(studentID, recordStudentID string) error {
	if studentID == "" || studentID != recordStudentID {
		return appErrors.ErrNotFound
	}
	return nil
}

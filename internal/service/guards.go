package service

import (
	"database/sql"
	"errors"

	"github.com/noah-isme/school-admin-api/internal/lifecycle"
	"github.com/noah-isme/school-admin-api/pkg/database"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

// lookupError maps a repository read failure to not found or internal.
func lookupError(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}

// writeError maps a repository write failure. Unique index hits surface as the
// same conflict the pre-write check reports.
func writeError(err error, conflict, internal string) error {
	if database.IsUniqueViolation(err) {
		return appErrors.Clone(appErrors.ErrConflict, conflict)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}

func deletionError(err error, kind string) error {
	switch {
	case errors.Is(err, lifecycle.ErrActiveRecord):
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "cannot delete an active "+kind)
	case errors.Is(err, lifecycle.ErrHasChildren):
		return appErrors.Clone(appErrors.ErrPreconditionFailed, kind+" still has records under it; remove them first")
	}
	return nil
}

// deleteError maps a guarded delete failure. Guard refusals from the
// repository transaction and foreign key hits read like the pre-check's refusal.
func deleteError(err error, kind, notFound, internal string) error {
	if database.IsForeignKeyViolation(err) {
		err = lifecycle.ErrHasChildren
	}
	if mapped := deletionError(err, kind); mapped != nil {
		return mapped
	}
	return lookupError(err, notFound, internal)
}

// transitionError maps a failed activation or archive. A unique index hit means
// a concurrent transition committed first.
func transitionError(err error, notFound, internal string) error {
	if database.IsUniqueViolation(err) {
		return appErrors.Clone(appErrors.ErrConflict, "another status change committed first; retry")
	}
	return lookupError(err, notFound, internal)
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

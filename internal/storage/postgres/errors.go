package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"guide-booking/pkg/response"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	checkViolation      = "23514"
	invalidText         = "22P02"
)

// mapError translates driver errors into the response sentinels. The
// original error is returned when it has no domain meaning.
func mapError(err error, conflictMsg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return response.ErrNotFound
	}

	var sqlErr *pq.Error
	if !errors.As(err, &sqlErr) {
		return err
	}

	switch sqlErr.Code {
	case uniqueViolation:
		return response.Detail(response.ErrConflict, conflictMsg)
	case foreignKeyViolation:
		return response.Detail(response.ErrNotFound, "referenced record does not exist")
	case invalidText:
		// malformed uuid in a lookup
		return response.ErrNotFound
	case checkViolation:
		return response.Detail(response.ErrValidation, sqlErr.Message)
	}

	return err
}

package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// maxListLimit caps limit values for list queries.
const maxListLimit = 100

// uniqueViolation is the SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}

	if limit > maxListLimit {
		return maxListLimit
	}

	return limit
}

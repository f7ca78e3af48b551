package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories translate into domain errors.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsPgNoRowsError reports whether a query matched no rows.
func IsPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsPgDuplicateError reports a unique constraint violation, e.g. a
// second logo at an occupied cover position.
func IsPgDuplicateError(err error) bool {
	return pgErrCode(err) == codeUniqueViolation
}

// IsPgForeignKeyError reports a foreign key violation, e.g. a document
// insert referencing a section deleted concurrently.
func IsPgForeignKeyError(err error) bool {
	return pgErrCode(err) == codeForeignKeyViolation
}

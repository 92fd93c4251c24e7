package filings

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateFiling is returned when a filing with the same accession
	// number or (ticker, fiscal year, fiscal period) already exists.
	ErrDuplicateFiling = errors.New("filing already exists")

	// ErrScoreOutOfRange is returned when a credit assessment score violates
	// the schema's range checks (component scores 1-10, overall 1-100).
	ErrScoreOutOfRange = errors.New("score out of range")
)

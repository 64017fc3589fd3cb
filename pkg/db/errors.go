package db

import "strings"

// IsUniqueViolation reports whether the provided error references a unique
// constraint violation. A provided constraintName is matched against the
// error text when the driver includes it (Postgres); SQLite omits index
// names, so the generic duplicate-key phrasing always counts as a match.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

package database

import (
	"strconv"
	"strings"
	"time"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Rebind rewrites "?" placeholders into the positional form the driver expects.
// MySQL queries are returned unchanged; PostgreSQL gets $1, $2, ...
// Placeholders inside single-quoted literals are left alone.
func Rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 16)

	n := 0
	inLiteral := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'':
			inLiteral = !inLiteral
			b.WriteByte(ch)
		case ch == '?' && !inLiteral:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// IsUniqueViolation reports whether err is a unique-constraint violation on either driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || // postgres 23505
		strings.Contains(msg, "Error 1062") // mysql ER_DUP_ENTRY
}

// IsForeignKeyViolation reports whether err is a foreign-key violation on either driver.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "violates foreign key constraint") || // postgres 23503
		strings.Contains(msg, "Error 1451") || // mysql ER_ROW_IS_REFERENCED_2
		strings.Contains(msg, "Error 1452") // mysql ER_NO_REFERENCED_ROW_2
}

// UpsertClause returns the driver-specific suffix that turns an INSERT into an upsert
// on the given conflict columns, overwriting the update columns.
func UpsertClause(driver string, conflictColumns, updateColumns []string) string {
	sets := make([]string, 0, len(updateColumns))
	if driver == DriverMySQL {
		for _, col := range updateColumns {
			sets = append(sets, col+" = VALUES("+col+")")
		}
		return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}

	for _, col := range updateColumns {
		sets = append(sets, col+" = EXCLUDED."+col)
	}
	return "ON CONFLICT (" + strings.Join(conflictColumns, ", ") + ") DO UPDATE SET " + strings.Join(sets, ", ")
}

// Now returns the current UTC time truncated to microseconds, the finest precision both
// drivers store.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	msg := err.Error()
	switch {
	// PostgreSQL without pgconn wrapping
	case strings.Contains(msg, "duplicate key value violates unique constraint"):
		return true
	// MySQL 1062
	case strings.Contains(msg, "Error 1062"):
		return true
	// SQLite 2067
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return true
	}
	return false
}

// DuplicateKeyOn reports whether err is a unique violation whose constraint
// or column names column. Translated errors carry no constraint and report
// false.
func DuplicateKeyOn(err error, column string) bool {
	if !IsDuplicateKeyErr(err) || column == "" {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName != "" {
		return constraintMentions(pgErr.ConstraintName, column)
	}
	msg := err.Error()
	if i := strings.Index(msg, "UNIQUE constraint failed:"); i >= 0 {
		for _, col := range strings.Split(msg[i+len("UNIQUE constraint failed:"):], ",") {
			fields := strings.Fields(col)
			if len(fields) == 0 {
				continue
			}
			col = fields[0]
			if dot := strings.LastIndex(col, "."); dot >= 0 {
				col = col[dot+1:]
			}
			if col == column {
				return true
			}
		}
		return false
	}
	if i := strings.Index(msg, "constraint \""); i >= 0 {
		name := msg[i+len("constraint \""):]
		if end := strings.Index(name, "\""); end >= 0 {
			name = name[:end]
		}
		return constraintMentions(name, column)
	}
	return false
}

func constraintMentions(constraint, column string) bool {
	for _, part := range strings.Split(strings.ToLower(constraint), "_") {
		if part == column {
			return true
		}
	}
	return false
}

// IsForeignKeyErr reports a referential integrity violation raised by the store.
func IsForeignKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "FOREIGN KEY constraint failed") || strings.Contains(msg, "Error 1452")
}

// Package option holds composable query modifiers applied to a *gorm.DB.
package option

import (
	"strings"

	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

// Func adapts a plain function to QueryOption.
type Func func(db *gorm.DB) *gorm.DB

func (f Func) Apply(db *gorm.DB) *gorm.DB {
	if f == nil {
		return db
	}
	return f(db)
}

// Where adds a raw condition.
func Where(query string, args ...any) QueryOption {
	return Func(func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}

// Equal filters column = value unless value is the zero string.
func Equal(column, value string) QueryOption {
	return Func(func(db *gorm.DB) *gorm.DB {
		if strings.TrimSpace(value) == "" {
			return db
		}
		return db.Where(column+" = ?", value)
	})
}

// Search matches term case-insensitively as a substring of any column.
// An empty term leaves the query untouched.
func Search(term string, columns ...string) QueryOption {
	return Func(func(db *gorm.DB) *gorm.DB {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || len(columns) == 0 {
			return db
		}
		pattern := "%" + term + "%"
		clauses := make([]string, 0, len(columns))
		args := make([]any, 0, len(columns))
		for _, col := range columns {
			clauses = append(clauses, "LOWER("+col+") LIKE ?")
			args = append(args, pattern)
		}
		return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	})
}

// OrderBy sets the ordering clause.
func OrderBy(order string) QueryOption {
	return Func(func(db *gorm.DB) *gorm.DB {
		if strings.TrimSpace(order) == "" {
			return db
		}
		return db.Order(order)
	})
}

// ApplyPage limits the result window.
func ApplyPage(offset, limit int) QueryOption {
	return Func(func(db *gorm.DB) *gorm.DB {
		if offset > 0 {
			db = db.Offset(offset)
		}
		if limit > 0 {
			db = db.Limit(limit)
		}
		return db
	})
}

// ExcludeID filters out a single primary key, used for uniqueness checks on update.
func ExcludeID(id int64) QueryOption {
	return Func(func(db *gorm.DB) *gorm.DB {
		if id == 0 {
			return db
		}
		return db.Where("id <> ?", id)
	})
}

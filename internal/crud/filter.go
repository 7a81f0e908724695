package crud

import (
	"strings"

	"gorm.io/gorm"
)

// LikeEscape is the ESCAPE clause matching Like patterns.
const LikeEscape = ` ESCAPE '\'`

// Like builds a lower-cased substring pattern, escaping LIKE wildcards.
// Pair it with LOWER(column) LIKE ? and LikeEscape.
func Like(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(s))
	return "%" + s + "%"
}

// Contains adds a case-insensitive substring predicate on expr.
func Contains(q *gorm.DB, expr, value string) *gorm.DB {
	if strings.TrimSpace(value) == "" {
		return q
	}
	return q.Where("LOWER("+expr+") LIKE ?"+LikeEscape, Like(value))
}

// Exists reports whether any row of model matches the condition.
func Exists(tx *gorm.DB, model any, query string, args ...any) (bool, error) {
	var count int64
	err := tx.Model(model).Where(query, args...).Limit(1).Count(&count).Error
	return count > 0, err
}

// MustExist turns a missing reference into a validation error.
func MustExist(tx *gorm.DB, model any, id uint, message string) error {
	found, err := Exists(tx, model, "id = ?", id)
	if err != nil {
		return err
	}
	if !found {
		return Invalid("%s", message)
	}
	return nil
}

package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

func isMySQL(db *gorm.DB) bool {
	return db != nil && strings.EqualFold(db.Dialector.Name(), "mysql")
}

// concatExpr joins SQL expressions as text on every supported dialect.
func concatExpr(db *gorm.DB, parts ...string) string {
	if isMySQL(db) {
		return "CONCAT(" + strings.Join(parts, ", ") + ")"
	}
	return strings.Join(parts, " || ")
}

func textCast(db *gorm.DB, expr string) string {
	if isMySQL(db) {
		return fmt.Sprintf("CAST(%s AS CHAR)", expr)
	}
	return fmt.Sprintf("CAST(%s AS TEXT)", expr)
}

func jsonArrayLength(db *gorm.DB, column string) string {
	switch strings.ToLower(db.Dialector.Name()) {
	case "postgres":
		return fmt.Sprintf("COALESCE(jsonb_array_length(%s), 0)", column)
	case "mysql":
		return fmt.Sprintf("COALESCE(JSON_LENGTH(%s), 0)", column)
	default:
		return fmt.Sprintf("COALESCE(json_array_length(%s), 0)", column)
	}
}

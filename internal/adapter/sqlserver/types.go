package sqlserver

import (
	"fmt"
	"strings"
)

// numericTypes maps SQL Server numeric types onto the information_schema
// names the profiler treats as numeric.
var numericTypes = map[string]string{
	"tinyint":    "smallint",
	"smallint":   "smallint",
	"int":        "integer",
	"bigint":     "bigint",
	"decimal":    "numeric",
	"numeric":    "numeric",
	"money":      "numeric",
	"smallmoney": "numeric",
	"real":       "real",
	"float":      "double precision",
}

// canonicalType lower-cases t and renames numeric types to their
// PostgreSQL equivalents.
func canonicalType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if c, ok := numericTypes[t]; ok {
		return c
	}
	return t
}

// quoteName brackets an identifier the way QUOTENAME does, escaping ] as ]].
func quoteName(identifier string) string {
	return "[" + strings.ReplaceAll(identifier, "]", "]]") + "]"
}

func qualifiedTable(schema, table string) string {
	return fmt.Sprintf("%s.%s", quoteName(schema), quoteName(table))
}

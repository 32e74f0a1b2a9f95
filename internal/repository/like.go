package repository

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches term as literal text anywhere in a column.
// Postgres treats backslash as the default LIKE escape character.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

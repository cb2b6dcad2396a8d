package core

import (
	"database/sql"
	"fmt"

	"github.com/iteebz/spaceos/internal/kernelerr"
)

// ResolveShort resolves a possibly-abbreviated id to its full form by
// matching the trailing characters against idCol in table. extraWhere
// (optionally empty) and extraArgs let callers scope the match, e.g.
// to a single agent's rows. Returns kernelerr.NotFound when nothing
// matches and kernelerr.Ambiguous (with every candidate) when more
// than one row matches.
func ResolveShort(db *sql.DB, source, table, idCol, short string, extraWhere string, extraArgs ...any) (string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIKE ?", idCol, table, idCol)
	args := []any{"%" + short}
	if extraWhere != "" {
		query += " AND " + extraWhere
		args = append(args, extraArgs...)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return "", kernelerr.Storage(source, "resolving short id", err)
	}
	defer rows.Close()

	var candidates []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", kernelerr.Storage(source, "scanning short id candidate", err)
		}
		candidates = append(candidates, id)
	}
	if err := rows.Err(); err != nil {
		return "", kernelerr.Storage(source, "iterating short id candidates", err)
	}

	switch len(candidates) {
	case 0:
		return "", kernelerr.NotFound(source, fmt.Sprintf("no %s matches %q", table, short))
	case 1:
		return candidates[0], nil
	default:
		return "", kernelerr.Ambiguous(source, fmt.Sprintf("%q matches multiple %s rows", short, table), candidates)
	}
}

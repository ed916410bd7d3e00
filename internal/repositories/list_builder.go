package repositories

import (
	"fmt"
	"strings"

	"github.com/alimgiray/newsletter-manager/internal/models"
)

// listColumns maps the property names the admin grid sends to SQL columns.
// Anything outside the map is ignored, so user input never reaches the SQL
// text.
type listColumns map[string]string

// whereClause builds an AND-joined LIKE predicate for every whitelisted
// filter. The returned clause is empty or starts with " WHERE ".
func whereClause(filters []models.FilterSpec, cols listColumns) (string, []interface{}) {
	var parts []string
	var args []interface{}

	for _, f := range filters {
		column, ok := cols[f.Property]
		if !ok || f.Value == nil {
			continue
		}
		value := fmt.Sprint(f.Value)
		if value == "" {
			continue
		}
		parts = append(parts, column+" LIKE ?")
		args = append(args, "%"+value+"%")
	}

	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

// orderClause resolves the last sorter against the whitelist and falls back to
// def when nothing usable was sent.
func orderClause(q models.ListQuery, cols listColumns, def string) string {
	s, ok := q.LastSort()
	if !ok {
		return " ORDER BY " + def
	}
	column, ok := cols[s.Property]
	if !ok {
		return " ORDER BY " + def
	}
	direction := models.SortASC
	if s.Direction == models.SortDESC {
		direction = models.SortDESC
	}
	return " ORDER BY " + column + " " + direction
}

// limitClause renders LIMIT/OFFSET. A negative limit means the whole result
// and is only used internally, request parsing never produces one.
func limitClause(q models.ListQuery) (string, []interface{}) {
	if q.Limit < 0 {
		return " LIMIT -1 OFFSET ?", []interface{}{q.Offset}
	}
	return " LIMIT ? OFFSET ?", []interface{}{q.Limit, q.Offset}
}

// placeholders returns "?, ?, ?" for n arguments
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

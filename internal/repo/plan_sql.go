package repo

import (
	"encoding/json"
	"fmt"
	"strings"

	"tasktrack/internal/query"
)

// planClauses renders the WHERE / ORDER BY / OFFSET / LIMIT suffix for a
// plan over a (id TEXT, doc JSONB) table. Equality filters become a single
// JSONB containment check; "_id" is routed to the id column. Sort keys were
// already bounded to identifier characters by the plan builder, so they are
// safe to interpolate. withBounds is false for counts.
func planClauses(p *query.Plan, withBounds bool) (string, []any) {
	var (
		sb    strings.Builder
		args  []any
		conds []string
	)
	if p != nil {
		contain := make(map[string]any, len(p.Where))
		for k, v := range p.Where {
			if k == "_id" {
				args = append(args, fmt.Sprint(v))
				conds = append(conds, fmt.Sprintf("id = $%d", len(args)))
				continue
			}
			contain[k] = v
		}
		if len(contain) > 0 {
			b, err := json.Marshal(contain)
			if err == nil {
				args = append(args, string(b))
				conds = append(conds, fmt.Sprintf("doc @> $%d::jsonb", len(args)))
			}
		}
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	if p != nil && len(p.Sort) > 0 {
		terms := make([]string, 0, len(p.Sort))
		for _, s := range p.Sort {
			expr := "doc->'" + s.Key + "'"
			if s.Key == "_id" {
				expr = "id"
			}
			if s.Desc {
				expr += " DESC"
			} else {
				expr += " ASC"
			}
			terms = append(terms, expr)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}
	if p != nil && withBounds {
		if p.Skip != nil {
			fmt.Fprintf(&sb, " OFFSET %d", *p.Skip)
		}
		if p.Limit != nil {
			fmt.Fprintf(&sb, " LIMIT %d", *p.Limit)
		}
	}
	return sb.String(), args
}

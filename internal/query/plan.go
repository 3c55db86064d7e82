// Package query turns loosely-typed list parameters (where/select/sort/
// skip/limit/count) into a bounded Plan the store can execute. Parsing is
// deliberately permissive: a malformed sub-parameter degrades to its
// default instead of failing the request, and callers rely on that.
package query

import (
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// SortField is one ordered sort term.
type SortField struct {
	Key  string
	Desc bool
}

// Plan is a validated description of a list query. Skip and Limit are nil
// when the parameter was absent or unparseable; an explicit 0 is preserved.
type Plan struct {
	Where      map[string]any
	Projection map[string]any
	Sort       []SortField
	Skip       *int
	Limit      *int
	Count      bool
}

// Build parses the raw query parameters into a Plan. It never fails.
func Build(params url.Values) Plan {
	p := Plan{
		Where: jsonObject(params.Get("where")),
		Sort:  parseSort(params.Get("sort")),
		Skip:  parseBound(params, "skip"),
		Limit: parseBound(params, "limit"),
		Count: strings.EqualFold(params.Get("count"), "true"),
	}
	p.Projection = Projection(params)
	return p
}

// Projection parses the select/filter projection parameters on their own,
// for the get-by-id endpoints that honor projection without the rest of the
// plan. A present and well-formed select wins; otherwise filter is used;
// both degrade to empty.
func Projection(params url.Values) map[string]any {
	if raw := params.Get("select"); raw != "" {
		if obj := tryObject(raw); obj != nil {
			return obj
		}
	}
	return jsonObject(params.Get("filter"))
}

// Key returns a canonical string form of the plan for use as a cache key.
// encoding/json sorts map keys, so equal plans produce equal keys.
func (p Plan) Key() string {
	b, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(b)
}

// HasProjection reports whether any projection fields were requested.
func (p Plan) HasProjection() bool { return len(p.Projection) > 0 }

// Project applies the projection to one document map, Mongo-style: if any
// non-_id field maps to a truthy value the projection is inclusive (keep
// those fields plus _id unless _id is explicitly suppressed), otherwise it
// is exclusive (drop the listed fields).
func (p Plan) Project(doc map[string]any) map[string]any {
	return ApplyProjection(p.Projection, doc)
}

// ApplyProjection is Project for a standalone projection map.
func ApplyProjection(proj map[string]any, doc map[string]any) map[string]any {
	if len(proj) == 0 {
		return doc
	}
	inclusive := false
	for k, v := range proj {
		if k != "_id" && truthy(v) {
			inclusive = true
			break
		}
	}
	out := make(map[string]any, len(doc))
	if inclusive {
		for k, v := range doc {
			if k == "_id" {
				if idv, ok := proj["_id"]; !ok || truthy(idv) {
					out[k] = v
				}
				continue
			}
			if pv, ok := proj[k]; ok && truthy(pv) {
				out[k] = v
			}
		}
		return out
	}
	for k, v := range doc {
		if pv, ok := proj[k]; ok && !truthy(pv) {
			continue
		}
		out[k] = v
	}
	return out
}

// jsonObject parses a JSON object, degrading to empty on any failure.
func jsonObject(raw string) map[string]any {
	if obj := tryObject(raw); obj != nil {
		return obj
	}
	return map[string]any{}
}

func tryObject(raw string) map[string]any {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil || obj == nil {
		return nil
	}
	return obj
}

// parseSort decodes the sort object preserving key order (a JSON object
// round-tripped through a Go map would lose it, and sort order matters).
// Keys are bounded to identifier characters so the store can interpolate
// them; anything else is dropped. The whole parameter degrades to no sort
// on malformed input.
func parseSort(raw string) []SortField {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil
	}
	var fields []SortField
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, _ := keyTok.(string)
		var val any
		if err := dec.Decode(&val); err != nil {
			return nil
		}
		if !validSortKey(key) {
			continue
		}
		desc, ok := sortDirection(val)
		if !ok {
			continue
		}
		fields = append(fields, SortField{Key: key, Desc: desc})
	}
	return fields
}

// sortDirection accepts Mongo-style directions: negative number or
// "desc"/"descending" for descending, positive number or
// "asc"/"ascending" for ascending.
func sortDirection(v any) (desc, ok bool) {
	switch d := v.(type) {
	case float64:
		if d == 0 {
			return false, false
		}
		return d < 0, true
	case string:
		switch strings.ToLower(d) {
		case "asc", "ascending":
			return false, true
		case "desc", "descending":
			return true, true
		}
	}
	return false, false
}

func validSortKey(key string) bool {
	if key == "" {
		return false
	}
	for i, r := range key {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// parseBound returns nil when the parameter is absent or non-finite.
// A present empty value coerces to 0, and explicit 0 survives as 0.
func parseBound(params url.Values, name string) *int {
	if _, ok := params[name]; !ok {
		return nil
	}
	raw := strings.TrimSpace(params.Get(name))
	if raw == "" {
		zero := 0
		return &zero
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(f)
	return &n
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case nil:
		return false
	default:
		return true
	}
}

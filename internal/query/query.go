// Package query translates raw request query parameters into a backing-store
// neutral query description: filter, sort, projection, pagination, relation
// expansion and keyword search. The postgres record repository executes the
// description against the generic record collection.
package query

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// reservedKeys never become filters.
var reservedKeys = map[string]bool{
	"sort":     true,
	"fields":   true,
	"keyword":  true,
	"page":     true,
	"limit":    true,
	"populate": true,
}

type Op string

const (
	OpEq     Op = "eq"
	OpGte    Op = "gte"
	OpGt     Op = "gt"
	OpLte    Op = "lte"
	OpLt     Op = "lt"
	OpNe     Op = "ne"
	OpIn     Op = "in"
	OpNin    Op = "nin"
	OpExists Op = "exists"
)

var operatorTokens = map[string]Op{
	"gte":    OpGte,
	"gt":     OpGt,
	"lte":    OpLte,
	"lt":     OpLt,
	"ne":     OpNe,
	"in":     OpIn,
	"nin":    OpNin,
	"exists": OpExists,
}

type Condition struct {
	Field string
	Op    Op
	// Value is a string, bool, or []string depending on the operator.
	Value interface{}
}

type Sort struct {
	Field string
	Desc  bool
}

// Populate describes one relation expansion: replace the reference value at
// Path with the referenced document, optionally projected to Select.
// Children carries one level of dot-nesting (parent.child).
type Populate struct {
	Path     string
	Select   []string
	Children []Populate
}

type Options struct {
	Conditions []Condition
	Sorts      []Sort
	Fields     []string
	Page       int
	Limit      int
	// Paginated is set only when the caller supplied limit explicitly;
	// page/limit metadata is attached to responses only in that case.
	Paginated bool
	Keyword   string
	Populates []Populate
	// SearchFields is filled by the engine from the resource descriptor when
	// keyword search should be pushed down to the store.
	SearchFields []string
}

func (o Options) Skip() int {
	if !o.Paginated {
		return 0
	}
	return (o.Page - 1) * o.Limit
}

// Parse runs the full pipeline over raw query parameters.
func Parse(raw url.Values) Options {
	opts := Options{Page: DefaultPage, Limit: DefaultLimit}
	opts.Conditions = parseFilter(raw)
	opts.Sorts = parseSort(raw.Get("sort"))
	opts.Fields = splitList(raw.Get("fields"))
	opts.Keyword = strings.TrimSpace(raw.Get("keyword"))
	opts.Populates = parsePopulate(raw.Get("populate"))

	if limitRaw := strings.TrimSpace(raw.Get("limit")); limitRaw != "" {
		if limit, err := strconv.Atoi(limitRaw); err == nil && limit > 0 {
			opts.Limit = limit
			opts.Paginated = true
		}
	}
	if pageRaw := strings.TrimSpace(raw.Get("page")); pageRaw != "" {
		if page, err := strconv.Atoi(pageRaw); err == nil && page > 0 {
			opts.Page = page
		}
	}

	return opts
}

func parseFilter(raw url.Values) []Condition {
	conditions := make([]Condition, 0, len(raw))

	for key, values := range raw {
		if reservedKeys[key] || len(values) == 0 {
			continue
		}
		value := strings.TrimSpace(values[0])
		if value == "" {
			continue
		}

		field, op := splitOperator(key)
		conditions = append(conditions, Condition{
			Field: field,
			Op:    op,
			Value: coerceValue(field, op, value),
		})
	}

	return conditions
}

// splitOperator rewrites `field[op]` keys into their operator form; bare keys
// are equality filters.
func splitOperator(key string) (string, Op) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return key, OpEq
	}
	token := key[open+1 : len(key)-1]
	if op, ok := operatorTokens[token]; ok {
		return key[:open], op
	}
	return key, OpEq
}

func coerceValue(field string, op Op, value string) interface{} {
	switch {
	case op == OpExists:
		return value == "true"
	case field == "isDeleted":
		return value == "true"
	case op == OpIn || op == OpNin:
		return splitList(value)
	default:
		return value
	}
}

func parseSort(raw string) []Sort {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []Sort{{Field: "createdAt", Desc: true}}
	}

	parts := strings.Split(raw, ",")
	sorts := make([]Sort, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "-") {
			sorts = append(sorts, Sort{Field: part[1:], Desc: true})
		} else {
			sorts = append(sorts, Sort{Field: part})
		}
	}
	if len(sorts) == 0 {
		return []Sort{{Field: "createdAt", Desc: true}}
	}
	return sorts
}

func parsePopulate(raw string) []Populate {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	entries := strings.Split(raw, ",")
	populates := make([]Populate, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		path := entry
		var selectFields []string
		if idx := strings.IndexByte(entry, ':'); idx >= 0 {
			path = entry[:idx]
			selectFields = strings.Split(entry[idx+1:], ";")
			// populate selects arrive comma-separated inside one entry when
			// the caller escapes them, or semicolon-separated otherwise.
			if len(selectFields) == 1 {
				selectFields = strings.Fields(strings.ReplaceAll(selectFields[0], ",", " "))
			}
		}

		if parent, child, nested := strings.Cut(path, "."); nested {
			populates = append(populates, Populate{
				Path:     parent,
				Children: []Populate{{Path: child, Select: selectFields}},
			})
			continue
		}
		populates = append(populates, Populate{Path: path, Select: selectFields})
	}
	return populates
}

func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package query turns list-endpoint query strings into parameterized SQL.
//
// Supported keys: field=value and field[gte|gt|lte|lt|ne]=value filters,
// search (case-insensitive substring on one designated column), sort
// (comma separated, "-" prefix for descending), fields (projection of the
// rendered JSON), page and limit. Only whitelisted fields take part.
package query

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"classifieds/internal/apperr"
)

// Type describes how a filter value is parsed.
type Type int

const (
	String Type = iota
	Number
	Integer
	ID
	Timestamp
)

// Field maps a public (JSON) field name to its SQL column.
type Field struct {
	Column   string
	Type     Type
	Filter   bool
	Sortable bool
}

// Spec is the per-resource whitelist.
type Spec struct {
	Fields       map[string]Field
	SearchColumn string
	DefaultSort  string
}

// Defaults bounds pagination.
type Defaults struct {
	Limit    int
	MaxLimit int
}

// Cond is a single column comparison.
type Cond struct {
	Column string
	Op     string
	Value  any
}

// Order is one sort key.
type Order struct {
	Column string
	Desc   bool
}

// Query is a parsed list request.
type Query struct {
	Filters []Cond
	Search  string
	Sort    []Order
	Fields  []string
	Page    int
	Limit   int

	searchColumn string
}

var operators = map[string]string{
	"":    "=",
	"gte": ">=",
	"gt":  ">",
	"lte": "<=",
	"lt":  "<",
	"ne":  "<>",
}

var reserved = map[string]bool{
	"page":   true,
	"limit":  true,
	"sort":   true,
	"fields": true,
	"search": true,
}

// Parse validates values against spec. Unknown filter fields are ignored;
// malformed values, unknown sort keys and unknown projection fields are
// reported as validation errors.
func Parse(values url.Values, spec *Spec, d Defaults) (*Query, error) {
	q := &Query{
		Page:         1,
		Limit:        d.Limit,
		searchColumn: spec.SearchColumn,
	}

	if v := values.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, apperr.Validationf("page must be a positive integer")
		}
		q.Page = n
	}
	if v := values.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, apperr.Validationf("limit must be a positive integer")
		}
		q.Limit = n
	}
	if d.MaxLimit > 0 && q.Limit > d.MaxLimit {
		q.Limit = d.MaxLimit
	}

	if spec.SearchColumn != "" {
		q.Search = strings.TrimSpace(values.Get("search"))
	}

	for _, key := range slices.Sorted(maps.Keys(values)) {
		vals := values[key]
		if reserved[key] || len(vals) == 0 {
			continue
		}
		name, op, ok := splitKey(key)
		if !ok {
			continue
		}
		f, known := spec.Fields[name]
		if !known || !f.Filter {
			continue
		}
		sqlOp, known := operators[op]
		if !known {
			return nil, apperr.Validationf("unsupported operator %q on %s", op, name)
		}
		for _, raw := range vals {
			v, err := parseValue(f.Type, raw)
			if err != nil {
				return nil, apperr.Validationf("invalid value %q for %s", raw, name)
			}
			q.Filters = append(q.Filters, Cond{Column: f.Column, Op: sqlOp, Value: v})
		}
	}

	sort := values.Get("sort")
	if sort == "" {
		sort = spec.DefaultSort
	}
	orders, err := parseSort(sort, spec)
	if err != nil {
		return nil, err
	}
	q.Sort = orders

	fields, err := ParseFields(values, spec)
	if err != nil {
		return nil, err
	}
	q.Fields = fields

	return q, nil
}

// ParseFields validates only the fields projection, for single-item reads.
func ParseFields(values url.Values, spec *Spec) ([]string, error) {
	raw := values.Get("fields")
	if raw == "" {
		return nil, nil
	}
	var fields []string
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := spec.Fields[name]; !ok {
			return nil, apperr.Validationf("unknown field %q", name)
		}
		fields = append(fields, name)
	}
	return fields, nil
}

// splitKey splits "price[gte]" into ("price", "gte").
func splitKey(key string) (name, op string, ok bool) {
	name, rest, found := strings.Cut(key, "[")
	if !found {
		return key, "", true
	}
	if !strings.HasSuffix(rest, "]") {
		return "", "", false
	}
	return name, strings.TrimSuffix(rest, "]"), true
}

func parseValue(t Type, raw string) (any, error) {
	switch t {
	case Number:
		return strconv.ParseFloat(raw, 64)
	case Integer:
		return strconv.Atoi(raw)
	case ID:
		return uuid.Parse(raw)
	case Timestamp:
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts, nil
		}
		return time.Parse(time.DateOnly, raw)
	default:
		return raw, nil
	}
}

func parseSort(raw string, spec *Spec) ([]Order, error) {
	var orders []Order
	hasID := false
	for _, key := range strings.Split(raw, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		desc := strings.HasPrefix(key, "-")
		name := strings.TrimPrefix(key, "-")
		f, ok := spec.Fields[name]
		if !ok || !f.Sortable {
			return nil, apperr.Validationf("cannot sort by %q", name)
		}
		if name == "id" {
			hasID = true
		}
		orders = append(orders, Order{Column: f.Column, Desc: desc})
	}
	if !hasID {
		if f, ok := spec.Fields["id"]; ok {
			orders = append(orders, Order{Column: f.Column})
		}
	}
	return orders, nil
}

// Offset returns the row offset of the requested page.
func (q *Query) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Build appends WHERE, ORDER BY, LIMIT and OFFSET to base. scope conditions
// are always applied (e.g. the parent post of a review). The result uses
// "?" placeholders; callers rebind for their driver.
func (q *Query) Build(base string, scope ...Cond) (string, []any) {
	var (
		where []string
		args  []any
	)
	conds := make([]Cond, 0, len(scope)+len(q.Filters))
	conds = append(conds, scope...)
	conds = append(conds, q.Filters...)
	for _, c := range conds {
		where = append(where, fmt.Sprintf("%s %s ?", c.Column, c.Op))
		args = append(args, c.Value)
	}
	if q.Search != "" && q.searchColumn != "" {
		where = append(where, q.searchColumn+` ILIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(q.Search)+"%")
	}

	var b strings.Builder
	b.WriteString(base)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	if len(q.Sort) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range q.Sort {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(o.Column)
			if o.Desc {
				b.WriteString(" DESC")
			}
		}
	}
	b.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, q.Limit, q.Offset())

	return b.String(), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

package remotestore

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query builds PostgREST-style filters: col=eq.value, col=in.(a,b), order=col.asc, limit=n.
// The zero value selects every row.
type Query struct {
	values url.Values
	order  []string
}

// NewQuery returns an empty query
func NewQuery() *Query {
	return &Query{values: url.Values{}}
}

func (q *Query) add(column, op, value string) *Query {
	if q.values == nil {
		q.values = url.Values{}
	}
	q.values.Add(column, op+"."+value)
	return q
}

// Eq filters column = value
func (q *Query) Eq(column string, value any) *Query {
	return q.add(column, "eq", formatValue(value))
}

// Neq filters column <> value
func (q *Query) Neq(column string, value any) *Query {
	return q.add(column, "neq", formatValue(value))
}

// Lt filters column < value
func (q *Query) Lt(column string, value any) *Query {
	return q.add(column, "lt", formatValue(value))
}

// Gte filters column >= value
func (q *Query) Gte(column string, value any) *Query {
	return q.add(column, "gte", formatValue(value))
}

// In filters column IN (values...)
func (q *Query) In(column string, values ...any) *Query {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = quoteListItem(formatValue(v))
	}
	return q.add(column, "in", "("+strings.Join(parts, ",")+")")
}

// Search matches any of the columns case-insensitively
func (q *Query) Search(term string, columns ...string) *Query {
	if term == "" || len(columns) == 0 {
		return q
	}
	pattern := "*" + strings.NewReplacer(",", " ", "(", " ", ")", " ").Replace(term) + "*"
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = col + ".ilike." + pattern
	}
	return q.or(parts...)
}

// EqOrNull filters column = value OR column IS NULL
func (q *Query) EqOrNull(column string, value any) *Query {
	return q.or(column+".eq."+formatValue(value), column+".is.null")
}

func (q *Query) or(conditions ...string) *Query {
	if q.values == nil {
		q.values = url.Values{}
	}
	q.values.Add("or", "("+strings.Join(conditions, ",")+")")
	return q
}

// Order appends an ordering term
func (q *Query) Order(column string, desc bool) *Query {
	dir := "asc"
	if desc {
		dir = "desc"
	}
	q.order = append(q.order, column+"."+dir)
	return q
}

// Limit bounds the number of rows returned
func (q *Query) Limit(n int) *Query {
	if n > 0 {
		q.set("limit", strconv.Itoa(n))
	}
	return q
}

// Offset skips the first n rows
func (q *Query) Offset(n int) *Query {
	if n > 0 {
		q.set("offset", strconv.Itoa(n))
	}
	return q
}

func (q *Query) set(key, value string) {
	if q.values == nil {
		q.values = url.Values{}
	}
	q.values.Set(key, value)
}

// Encode renders the query string
func (q *Query) Encode() string {
	if q == nil {
		return ""
	}
	values := url.Values{}
	for k, v := range q.values {
		values[k] = append([]string(nil), v...)
	}
	if len(q.order) > 0 {
		values.Set("order", strings.Join(q.order, ","))
	}
	return values.Encode()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// quoteListItem quotes values that would break the in.(...) list syntax
func quoteListItem(s string) string {
	if strings.ContainsAny(s, `,()"`) {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}

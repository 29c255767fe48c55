package soql

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidIdentifier is returned when a field or object name is not a SOQL identifier.
var ErrInvalidIdentifier = errors.New("soql: invalid identifier")

var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z][A-Za-z0-9_]*)*$`)

// Field is a field API name. Fields are fixed strings chosen by the
// developer; they are validated but never escaped.
type Field string

// Valid reports whether f is a well-formed identifier (optionally dotted
// for relationship traversal, e.g. Account.Name).
func (f Field) Valid() bool {
	return identifierPattern.MatchString(string(f))
}

// Condition is one `field = literal` comparison.
type Condition struct {
	field Field
	value any
}

// Eq builds an equality comparison between a field and an untrusted value.
func Eq(field Field, value any) Condition {
	return Condition{field: field, value: value}
}

// String renders the clause with the value escaped.
func (c Condition) String() string {
	return string(c.field) + " = " + Escape(c.value)
}

// Query is a SELECT statement under construction. Builder methods never
// fail; the first problem is reported by Build.
type Query struct {
	fields []Field
	object string
	where  []Condition
	limit  int
}

// Select starts a query selecting the given fields.
func Select(fields ...Field) *Query {
	return &Query{fields: fields}
}

// From sets the object to query.
func (q *Query) From(object string) *Query {
	q.object = object
	return q
}

// Where appends conditions joined by AND.
func (q *Query) Where(conds ...Condition) *Query {
	q.where = append(q.where, conds...)
	return q
}

// Limit caps the number of returned rows. Zero means no LIMIT clause.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Build validates identifiers and renders the SOQL text.
func (q *Query) Build() (string, error) {
	if len(q.fields) == 0 {
		return "", fmt.Errorf("%w: no fields selected", ErrInvalidIdentifier)
	}
	if !Field(q.object).Valid() || strings.Contains(q.object, ".") {
		return "", fmt.Errorf("%w: object %q", ErrInvalidIdentifier, q.object)
	}
	if q.limit < 0 {
		return "", fmt.Errorf("soql: negative limit %d", q.limit)
	}

	names := make([]string, len(q.fields))
	for i, f := range q.fields {
		if !f.Valid() {
			return "", fmt.Errorf("%w: field %q", ErrInvalidIdentifier, f)
		}
		names[i] = string(f)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(names, ", "))
	b.WriteString(" FROM ")
	b.WriteString(q.object)

	for i, c := range q.where {
		if !c.field.Valid() {
			return "", fmt.Errorf("%w: field %q", ErrInvalidIdentifier, c.field)
		}
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(c.String())
	}

	if q.limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.limit))
	}
	return b.String(), nil
}

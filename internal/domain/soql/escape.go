// Package soql builds SOQL query text from developer-controlled field names
// and untrusted values.
//
// SOQL over the REST API has no bind parameters, so every untrusted value
// is rendered through Escape before it reaches the query string. Escaping
// is a minimum bar: it does nothing for field or object names, which is why
// those are typed (Field) and validated against the identifier grammar
// instead of being built from caller input.
package soql

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// NullKeyword is the SOQL literal for "no value".
const NullKeyword = "NULL"

// DateLayout is the only date literal format SOQL accepts.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidLiteral is returned by Unescape for text that is not a single-quoted SOQL string.
	ErrInvalidLiteral = errors.New("soql: invalid string literal")
	// ErrInvalidDate is returned by ParseDate for values not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("soql: invalid date literal")
)

var literalEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// Literal is implemented by values that render themselves as an unquoted
// SOQL literal (dates, booleans). Implementations must only produce text
// from a validated, closed grammar.
type Literal interface {
	SOQLLiteral() string
}

// Escape renders value as a SOQL literal.
// nil becomes NULL; anything else is rendered as text with backslash and
// single quote escaped, then wrapped in single quotes.
func Escape(value any) string {
	switch v := value.(type) {
	case nil:
		return NullKeyword
	case Literal:
		return v.SOQLLiteral()
	case *string:
		if v == nil {
			return NullKeyword
		}
		return quote(*v)
	case string:
		return quote(v)
	case fmt.Stringer:
		return quote(v.String())
	default:
		return quote(fmt.Sprint(v))
	}
}

func quote(s string) string {
	return "'" + literalEscaper.Replace(s) + "'"
}

// Unescape parses a single-quoted SOQL string literal back to its value.
func Unescape(literal string) (string, error) {
	if len(literal) < 2 || literal[0] != '\'' || literal[len(literal)-1] != '\'' {
		return "", ErrInvalidLiteral
	}
	body := literal[1 : len(literal)-1]

	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if ch == '\'' {
			return "", fmt.Errorf("%w: unescaped quote at offset %d", ErrInvalidLiteral, i+1)
		}
		if ch != '\\' {
			b.WriteByte(ch)
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("%w: dangling backslash", ErrInvalidLiteral)
		}
		switch body[i] {
		case '\\', '\'', '"':
			b.WriteByte(body[i])
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		default:
			return "", fmt.Errorf("%w: unknown escape \\%c", ErrInvalidLiteral, body[i])
		}
	}
	return b.String(), nil
}

// Date is a calendar date rendered as an unquoted SOQL date literal.
type Date struct {
	t time.Time
}

// ParseDate validates s as YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{t: t}, nil
}

// String returns the date in YYYY-MM-DD form.
func (d Date) String() string {
	return d.t.Format(DateLayout)
}

// SOQLLiteral implements Literal.
func (d Date) SOQLLiteral() string {
	return d.String()
}

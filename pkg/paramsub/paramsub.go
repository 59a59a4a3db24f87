// Package paramsub implements the spec's parameter substitution algorithm:
// positional ($N) and named (:name) placeholders resolved to SQL literals
// before the statement ever reaches the parser. It has no dependency on the
// rest of the engine, matching its role as an external-collaborator
// interface (spec §6).
package paramsub

import (
	"sort"
	"strconv"
	"strings"

	"github.com/htapcore/engine/pkg/errors"
	"github.com/htapcore/engine/pkg/types"
)

// Substitute replaces every placeholder in sql with a literal built from
// params (positional $1.. or named :name, never both in one statement) and
// returns the resulting SQL text.
func Substitute(sql string, params map[string]types.Scalar) (string, error) {
	positional, named, err := scanPlaceholders(sql)
	if err != nil {
		return "", err
	}
	if len(positional) > 0 && len(named) > 0 {
		return "", &errors.InvalidOperationError{
			Message: "cannot mix positional and named parameter placeholders",
			Context: sql,
		}
	}

	if len(named) > 0 {
		return substituteNamed(sql, named, params)
	}
	return substitutePositional(sql, positional, params)
}

type placeholder struct {
	start, end int // byte range in sql, including the leading $ or :
	index      int // positional: N (1-based); named: resolved scan-order position
	name       string
}

// scanPlaceholders finds every $N and :name occurrence outside single-quoted
// string literals ('' is the escape for a literal quote inside a string).
func scanPlaceholders(sql string) (positional, named []placeholder, err error) {
	inString := false
	nextNamedIndex := 1
	seen := map[string]int{}

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if inString {
			if c == '\'' {
				if i+1 < len(sql) && sql[i+1] == '\'' {
					i++
					continue
				}
				inString = false
			}
			continue
		}
		if c == '\'' {
			inString = true
			continue
		}
		if c == '$' && i+1 < len(sql) && isDigit(sql[i+1]) {
			j := i + 1
			for j < len(sql) && isDigit(sql[j]) {
				j++
			}
			n, convErr := strconv.Atoi(sql[i+1 : j])
			if convErr != nil {
				return nil, nil, &errors.SqlParseError{Message: "invalid positional placeholder", Sql: sql}
			}
			positional = append(positional, placeholder{start: i, end: j, index: n})
			i = j - 1
			continue
		}
		if c == ':' && i+1 < len(sql) && isIdentStart(sql[i+1]) {
			j := i + 1
			for j < len(sql) && isIdentPart(sql[j]) {
				j++
			}
			name := sql[i+1 : j]
			idx, ok := seen[name]
			if !ok {
				idx = nextNamedIndex
				seen[name] = idx
				nextNamedIndex++
			}
			named = append(named, placeholder{start: i, end: j, index: idx, name: name})
			i = j - 1
			continue
		}
	}
	return positional, named, nil
}

func isDigit(b byte) bool      { return b >= '0' && b <= '9' }
func isIdentStart(b byte) bool { return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
func isIdentPart(b byte) bool  { return isIdentStart(b) || isDigit(b) }

func substitutePositional(sql string, placeholders []placeholder, params map[string]types.Scalar) (string, error) {
	return replaceHighestFirst(sql, placeholders, func(p placeholder) (string, error) {
		v, ok := params[strconv.Itoa(p.index)]
		if !ok {
			return "", &errors.InvalidOperationError{
				Message: "missing value for positional parameter $" + strconv.Itoa(p.index),
			}
		}
		return literalFor(v), nil
	})
}

func substituteNamed(sql string, placeholders []placeholder, params map[string]types.Scalar) (string, error) {
	return replaceHighestFirst(sql, placeholders, func(p placeholder) (string, error) {
		v, ok := params[p.name]
		if !ok {
			return "", &errors.InvalidOperationError{
				Message: "missing value for named parameter :" + p.name,
			}
		}
		return literalFor(v), nil
	})
}

// replaceHighestFirst substitutes placeholders working from the rightmost
// occurrence in sql backward, so replacing one placeholder never shifts the
// byte offsets already recorded for the others. The name matches the
// spec's framing (process highest index first to avoid "$10" matching
// "$1"), which this offset-based ordering achieves as a side effect: $10
// always starts to the right of any $1 it could otherwise be confused with.
func replaceHighestFirst(sql string, placeholders []placeholder, literal func(placeholder) (string, error)) (string, error) {
	ordered := append([]placeholder(nil), placeholders...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].start > ordered[j].start })

	result := sql
	for _, p := range ordered {
		lit, err := literal(p)
		if err != nil {
			return "", err
		}
		result = result[:p.start] + lit + result[p.end:]
	}
	return result, nil
}

// literalFor renders a scalar per spec §6: null -> NULL, bool -> TRUE/FALSE,
// numbers -> canonical decimal, strings -> single-quoted with '' escaping.
func literalFor(v types.Scalar) string {
	switch v.Type {
	case types.TypeNull:
		return "NULL"
	case types.TypeBoolean:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case types.TypeInt32:
		return strconv.FormatInt(int64(v.I32), 10)
	case types.TypeInt64:
		return strconv.FormatInt(v.I64, 10)
	case types.TypeFloat64:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case types.TypeUtf8:
		return "'" + strings.ReplaceAll(v.Str, "'", "''") + "'"
	default:
		return "NULL"
	}
}

package sqlsession

import (
	"strconv"
	"strings"
)

// Normalize rewrites generic ? placeholders to the backend's positional $N
// form, preserving order. It returns the rewritten text and the number of
// positional parameters the query expects.
//
// Markers inside single-quoted strings, double-quoted identifiers, and line
// comments are left untouched. Queries already written with $N markers pass
// through unchanged and report the highest index found; the normalizer is
// permissive and never rejects input.
func Normalize(query string) (string, int) {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	highest := 0
	i := 0
	for i < len(query) {
		c := query[i]
		switch {
		case c == '\'' || c == '"':
			end := skipQuoted(query, i)
			b.WriteString(query[i:end])
			i = end
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				end = len(query)
			} else {
				end += i
			}
			b.WriteString(query[i:end])
			i = end
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			i++
		case c == '$':
			j := i + 1
			for j < len(query) && query[j] >= '0' && query[j] <= '9' {
				j++
			}
			if j > i+1 {
				if idx, err := strconv.Atoi(query[i+1 : j]); err == nil && idx > highest {
					highest = idx
				}
			}
			b.WriteString(query[i:j])
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}

	if n == 0 {
		return b.String(), highest
	}
	return b.String(), n
}

// skipQuoted returns the index just past the quoted region starting at i.
// A doubled quote character is the SQL escape for a literal quote.
func skipQuoted(s string, i int) int {
	q := s[i]
	j := i + 1
	for j < len(s) {
		if s[j] == q {
			if j+1 < len(s) && s[j+1] == q {
				j += 2
				continue
			}
			return j + 1
		}
		j++
	}
	return j
}

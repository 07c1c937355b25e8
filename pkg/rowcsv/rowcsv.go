// Package rowcsv parses single lines of delimited feed text.
//
// The reference directories this engine consumes are published in two
// slightly different CSV dialects, neither of which encoding/csv can
// reproduce: one wraps every field in double quotes and tolerates a
// trailing comma, the other mixes quoted and bare fields. Both are parsed
// permissively: a malformed line yields whatever fields can be recovered,
// never an error.
package rowcsv

import "strings"

// Dialect selects the row parsing variant for a feed.
type Dialect int

const (
	// DialectQuoted expects every field to be double-quoted, with `""`
	// escaping an embedded quote and an optional trailing comma.
	DialectQuoted Dialect = iota
	// DialectFlexible accepts either a double-quoted field or a bare
	// comma-free run. An empty field between two commas yields "".
	DialectFlexible
)

// Parse splits one line according to the dialect.
func (d Dialect) Parse(line string) []string {
	if d == DialectFlexible {
		return ParseFlexible(line)
	}
	return ParseQuoted(line)
}

// ParseQuoted parses a line in the quoted-only dialect.
//
// Text outside quoted regions is skipped, so a stray separator or a bit of
// garbage between fields loses at most that field. An unterminated quote at
// the end of the line is dropped rather than reported.
func ParseQuoted(line string) []string {
	var fields []string
	i := 0
	for i < len(line) {
		if line[i] != '"' {
			i++
			continue
		}
		i++
		var b strings.Builder
		closed := false
		for i < len(line) {
			c := line[i]
			if c == '"' {
				if i+1 < len(line) && line[i+1] == '"' {
					b.WriteByte('"')
					i += 2
					continue
				}
				i++
				closed = true
				break
			}
			b.WriteByte(c)
			i++
		}
		if !closed {
			break
		}
		fields = append(fields, b.String())
		if i < len(line) && line[i] == ',' {
			i++
		}
	}
	return fields
}

// ParseFlexible parses a line in the quoted-or-bare dialect.
func ParseFlexible(line string) []string {
	var fields []string
	i := 0
	for {
		if i < len(line) && line[i] == '"' {
			i++
			var b strings.Builder
			for i < len(line) {
				c := line[i]
				if c == '"' {
					if i+1 < len(line) && line[i+1] == '"' {
						b.WriteByte('"')
						i += 2
						continue
					}
					i++
					break
				}
				b.WriteByte(c)
				i++
			}
			fields = append(fields, b.String())
		} else {
			start := i
			for i < len(line) && line[i] != ',' && line[i] != '"' {
				i++
			}
			fields = append(fields, line[start:i])
		}
		if i < len(line) && line[i] == ',' {
			i++
			if i == len(line) {
				// Trailing comma: the final field is present but empty.
				fields = append(fields, "")
				return fields
			}
			continue
		}
		return fields
	}
}

// QuoteRow serializes fields in the quoted-only dialect, doubling embedded
// quotes. ParseQuoted(QuoteRow(fields)) recovers the fields exactly.
func QuoteRow(fields []string) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	return b.String()
}

// HeaderMapper maps parsed rows to header-keyed records. The first line fed
// to it is consumed as the header row; empty column names are dropped and
// the remaining headers are reused for every subsequent row on the stream.
type HeaderMapper struct {
	dialect Dialect
	headers []string
}

// NewHeaderMapper creates a mapper for the given dialect.
func NewHeaderMapper(d Dialect) *HeaderMapper {
	return &HeaderMapper{dialect: d}
}

// Headers returns the header list, or nil before the header row is seen.
func (m *HeaderMapper) Headers() []string {
	return m.headers
}

// Map parses one line. The first call consumes the header row and returns
// nil. Data rows shorter than the header list map the missing trailing
// columns to "".
func (m *HeaderMapper) Map(line string) map[string]string {
	fields := m.dialect.Parse(line)
	if m.headers == nil {
		headers := make([]string, 0, len(fields))
		for _, h := range fields {
			if h != "" {
				headers = append(headers, h)
			}
		}
		m.headers = headers
		return nil
	}

	row := make(map[string]string, len(m.headers))
	for i, h := range m.headers {
		if i < len(fields) {
			row[h] = fields[i]
		} else {
			row[h] = ""
		}
	}
	return row
}

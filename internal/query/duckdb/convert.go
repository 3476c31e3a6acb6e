package duckdb

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb/v2"

	"github.com/duckgate/duckgate/internal/query"
)

const (
	timeLayout   = "15:04:05.999999"
	timeTZLayout = "15:04:05.999999Z07:00"
)

// ConvertColumn returns the converter for one result column, keyed by the
// type name go-duckdb reports (for example "UUID", "DATE", "INTEGER[]" or
// "MAP(VARCHAR, UUID)").
//
// Encodings: UUID as the canonical hyphenated string, BLOB as standard
// base64, DATE as 2006-01-02, TIME as 15:04:05.999999, INTERVAL as an
// ISO 8601 duration, DECIMAL as float64 (lossy past 15 significant
// digits), MAP as an object keyed by the formatted key.
func ConvertColumn(databaseType string) func(any) any {
	t := parseColumnType(databaseType)
	return func(value any) any {
		return convertValue(t, value)
	}
}

func convertValue(t *columnType, value any) any {
	if value == nil {
		return nil
	}
	switch t.base() {
	case "UUID":
		if raw, ok := value.([]byte); ok {
			if id, err := uuid.FromBytes(raw); err == nil {
				return id.String()
			}
		}
	case "BLOB":
		if raw, ok := value.([]byte); ok {
			return base64.StdEncoding.EncodeToString(raw)
		}
	case "DATE":
		if ts, ok := value.(time.Time); ok {
			return ts.Format(time.DateOnly)
		}
	case "TIME":
		if ts, ok := value.(time.Time); ok {
			return ts.Format(timeLayout)
		}
	case "TIMETZ":
		if ts, ok := value.(time.Time); ok {
			return ts.Format(timeTZLayout)
		}
	}

	switch typed := value.(type) {
	case goduckdb.Decimal:
		return typed.Float64()
	case goduckdb.Interval:
		return formatInterval(typed)
	case goduckdb.Union:
		return convertValue(t.field(typed.Tag), typed.Value)
	case goduckdb.Map:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[fmt.Sprint(convertValue(t.key(), key))] = convertValue(t.value(), item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = convertValue(t.element(), item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for name, item := range typed {
			out[name] = convertValue(t.field(name), item)
		}
		return out
	}
	return query.NormalizeValue(value)
}

// formatInterval writes DuckDB's months/days/micros triple as an ISO 8601
// duration. Components keep their own sign, e.g. P1M-2D.
func formatInterval(interval goduckdb.Interval) string {
	var b strings.Builder
	b.WriteByte('P')
	years, months := interval.Months/12, interval.Months%12
	if years != 0 {
		b.WriteString(strconv.Itoa(int(years)) + "Y")
	}
	if months != 0 {
		b.WriteString(strconv.Itoa(int(months)) + "M")
	}
	if interval.Days != 0 {
		b.WriteString(strconv.Itoa(int(interval.Days)) + "D")
	}
	if interval.Micros != 0 {
		micros := interval.Micros
		b.WriteByte('T')
		if hours := micros / int64(time.Hour/time.Microsecond); hours != 0 {
			b.WriteString(strconv.FormatInt(hours, 10) + "H")
			micros -= hours * int64(time.Hour/time.Microsecond)
		}
		if minutes := micros / int64(time.Minute/time.Microsecond); minutes != 0 {
			b.WriteString(strconv.FormatInt(minutes, 10) + "M")
			micros -= minutes * int64(time.Minute/time.Microsecond)
		}
		if micros != 0 {
			b.WriteString(strconv.FormatFloat(float64(micros)/1e6, 'f', -1, 64) + "S")
		}
	}
	if b.Len() == 1 {
		return "PT0S"
	}
	return b.String()
}

// columnType is a parsed DuckDB type name. Only nesting matters here:
// LIST/ARRAY carry an element, MAP a key and value, STRUCT/UNION named
// fields. Everything else is a bare base name.
type columnType struct {
	name   string
	elem   *columnType
	keyT   *columnType
	valueT *columnType
	fields map[string]*columnType
}

func (t *columnType) base() string {
	if t == nil {
		return ""
	}
	return t.name
}

func (t *columnType) element() *columnType {
	if t == nil {
		return nil
	}
	return t.elem
}

func (t *columnType) key() *columnType {
	if t == nil {
		return nil
	}
	return t.keyT
}

func (t *columnType) value() *columnType {
	if t == nil {
		return nil
	}
	return t.valueT
}

func (t *columnType) field(name string) *columnType {
	if t == nil {
		return nil
	}
	return t.fields[name]
}

func parseColumnType(name string) *columnType {
	p := &typeParser{input: strings.TrimSpace(name)}
	t := p.parse()
	if p.failed {
		return nil
	}
	return t
}

type typeParser struct {
	input  string
	pos    int
	failed bool
}

func (p *typeParser) parse() *columnType {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) && !strings.ContainsRune("()[],", rune(p.input[p.pos])) {
		p.pos++
	}
	t := &columnType{name: strings.ToUpper(strings.TrimSpace(p.input[start:p.pos]))}
	if t.name == "" {
		p.failed = true
		return t
	}

	if p.peek() == '(' {
		p.pos++
		switch t.name {
		case "STRUCT", "UNION":
			t.fields = p.parseFields()
		case "MAP":
			t.keyT = p.parse()
			p.expect(',')
			t.valueT = p.parse()
			p.expect(')')
		default:
			p.skipParens()
		}
	}

	for p.peek() == '[' {
		end := strings.IndexByte(p.input[p.pos:], ']')
		if end < 0 {
			p.failed = true
			return t
		}
		p.pos += end + 1
		t = &columnType{name: "LIST", elem: t}
	}
	return t
}

func (p *typeParser) parseFields() map[string]*columnType {
	fields := make(map[string]*columnType)
	for !p.failed {
		p.skipSpace()
		if p.peek() == ')' {
			p.pos++
			return fields
		}
		name := p.parseIdentifier()
		fields[name] = p.parse()
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return fields
		default:
			p.failed = true
		}
	}
	return fields
}

// parseIdentifier reads a field name, either double-quoted with "" escapes
// or bare up to the next space.
func (p *typeParser) parseIdentifier() string {
	p.skipSpace()
	if p.peek() != '"' {
		start := p.pos
		for p.pos < len(p.input) && p.input[p.pos] != ' ' {
			p.pos++
		}
		return p.input[start:p.pos]
	}
	p.pos++
	var b strings.Builder
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		p.pos++
		if c != '"' {
			b.WriteByte(c)
			continue
		}
		if p.peek() == '"' {
			b.WriteByte('"')
			p.pos++
			continue
		}
		return b.String()
	}
	p.failed = true
	return b.String()
}

func (p *typeParser) skipParens() {
	depth := 1
	for p.pos < len(p.input) && depth > 0 {
		switch p.input[p.pos] {
		case '(':
			depth++
		case ')':
			depth--
		}
		p.pos++
	}
	if depth != 0 {
		p.failed = true
	}
}

func (p *typeParser) expect(c byte) {
	p.skipSpace()
	if p.peek() != c {
		p.failed = true
		return
	}
	p.pos++
}

func (p *typeParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

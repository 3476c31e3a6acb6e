package duckdb

import (
	"math"
	"testing"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb/v2"
)

func TestParseColumnType(t *testing.T) {
	tests := []struct {
		name  string
		check func(*columnType) bool
	}{
		{name: "UUID", check: func(c *columnType) bool { return c.base() == "UUID" }},
		{name: "DECIMAL(10,2)", check: func(c *columnType) bool { return c.base() == "DECIMAL" }},
		{name: "UUID[]", check: func(c *columnType) bool { return c.base() == "LIST" && c.element().base() == "UUID" }},
		{name: "INTEGER[3][]", check: func(c *columnType) bool {
			return c.base() == "LIST" && c.element().base() == "LIST" && c.element().element().base() == "INTEGER"
		}},
		{name: "MAP(VARCHAR, DATE)", check: func(c *columnType) bool {
			return c.base() == "MAP" && c.key().base() == "VARCHAR" && c.value().base() == "DATE"
		}},
		{name: `STRUCT("a" UUID, "odd ""name""" MAP(UUID, BLOB[]))`, check: func(c *columnType) bool {
			nested := c.field(`odd "name"`)
			return c.base() == "STRUCT" && c.field("a").base() == "UUID" &&
				nested.key().base() == "UUID" && nested.value().element().base() == "BLOB"
		}},
		{name: `UNION("num" INTEGER, "day" DATE)`, check: func(c *columnType) bool {
			return c.base() == "UNION" && c.field("day").base() == "DATE"
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseColumnType(tc.name); !tc.check(got) {
				t.Fatalf("parseColumnType(%q) = %#v", tc.name, got)
			}
		})
	}
}

func TestParseColumnTypeRejectsMalformed(t *testing.T) {
	for _, name := range []string{"", "STRUCT(\"a INTEGER)", "INTEGER[", "MAP(VARCHAR"} {
		if got := parseColumnType(name); got != nil {
			t.Fatalf("parseColumnType(%q) = %#v, want nil", name, got)
		}
	}
}

func TestConvertColumnScalars(t *testing.T) {
	uuidBytes := []byte{0x55, 0x0e, 0x84, 0x00, 0xe2, 0x9b, 0x41, 0xd4, 0xa7, 0x16, 0x44, 0x66, 0x55, 0x44, 0x00, 0x00}
	tests := []struct {
		databaseType string
		value        any
		want         any
	}{
		{databaseType: "UUID", value: uuidBytes, want: "550e8400-e29b-41d4-a716-446655440000"},
		{databaseType: "BLOB", value: []byte{0xaa, 0xff}, want: "qv8="},
		{databaseType: "DATE", value: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), want: "2024-01-02"},
		{databaseType: "TIME", value: time.Date(1, 1, 1, 10, 11, 12, 0, time.UTC), want: "10:11:12"},
		{databaseType: "TIME", value: time.Date(1, 1, 1, 10, 11, 12, 250000000, time.UTC), want: "10:11:12.25"},
		{databaseType: "TIMETZ", value: time.Date(1, 1, 1, 8, 0, 0, 0, time.UTC), want: "08:00:00Z"},
		{databaseType: "INTERVAL", value: goduckdb.Interval{Months: 14, Days: 3, Micros: 3723500000}, want: "P1Y2M3DT1H2M3.5S"},
		{databaseType: "INTERVAL", value: goduckdb.Interval{}, want: "PT0S"},
		{databaseType: "INTERVAL", value: goduckdb.Interval{Months: 1, Days: -2}, want: "P1M-2D"},
		{databaseType: "VARCHAR", value: "plain", want: "plain"},
		{databaseType: "DOUBLE", value: math.Inf(1), want: "Infinity"},
		{databaseType: "INTEGER", value: nil, want: nil},
		{databaseType: "", value: []byte("text"), want: "text"},
	}

	for _, tc := range tests {
		if got := ConvertColumn(tc.databaseType)(tc.value); got != tc.want {
			t.Fatalf("ConvertColumn(%q)(%#v) = %#v, want %#v", tc.databaseType, tc.value, got, tc.want)
		}
	}
}

func TestConvertColumnNestedValues(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	got := ConvertColumn("MAP(INTEGER, DATE[])")(goduckdb.Map{int32(7): []any{day, nil}})
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("map = %#v", got)
	}
	days, ok := m["7"].([]any)
	if !ok || len(days) != 2 || days[0] != "2024-01-02" || days[1] != nil {
		t.Fatalf("map value = %#v", m["7"])
	}

	got = ConvertColumn(`STRUCT("raw" BLOB, "when" TIME)`)(map[string]any{
		"raw":  []byte{0xaa, 0xff},
		"when": time.Date(1, 1, 1, 10, 11, 12, 0, time.UTC),
	})
	s, ok := got.(map[string]any)
	if !ok || s["raw"] != "qv8=" || s["when"] != "10:11:12" {
		t.Fatalf("struct = %#v", got)
	}

	got = ConvertColumn(`UNION("num" INTEGER, "day" DATE)`)(goduckdb.Union{Tag: "day", Value: day})
	if got != "2024-01-02" {
		t.Fatalf("union = %#v", got)
	}
}

func TestConvertColumnFallsBackWithoutTypeName(t *testing.T) {
	got := ConvertColumn("")(goduckdb.Map{"a": int32(1)})
	m, ok := got.(map[string]any)
	if !ok || m["a"] != int32(1) {
		t.Fatalf("map = %#v", got)
	}
}

package extract

import (
	"math"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestFormatValue(t *testing.T) {
	loc := time.FixedZone("X", 2*60*60)

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "hello, world", "hello, world"},
		{"invalid utf8", string([]byte{'a', 0xff, 'b'}), "a�b"},
		{"bytes", []byte("raw"), "raw"},
		{"bool", true, "true"},
		{"int64", int64(1234567), "1234567"},
		{"negative int32", int32(-42), "-42"},
		{"uint16", uint16(7), "7"},
		{"float64 no grouping", 1234567.25, "1234567.25"},
		{"float64 no exponent", 1e21, "1000000000000000000000"},
		{"float64 small", 0.000015, "0.000015"},
		{"float32", float32(1.5), "1.5"},
		{"nan", math.NaN(), "NaN"},
		{"date", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), "2024-03-09"},
		{"timestamp", time.Date(2024, 3, 9, 14, 5, 6, 500000000, time.UTC), "2024-03-09 14:05:06.5"},
		{"timestamptz", time.Date(2024, 3, 9, 14, 5, 6, 0, loc), "2024-03-09 14:05:06+02:00"},
		{"uuid", [16]byte{0x12, 0x3e, 0x45, 0x67, 0xe8, 0x9b, 0x12, 0xd3, 0xa4, 0x56, 0x42, 0x66, 0x14, 0x17, 0x40, 0x00}, "123e4567-e89b-12d3-a456-426614174000"},
		{"json map", map[string]any{"a": 1}, `{"a":1}`},
		{"text valuer", pgtype.Text{String: "via valuer", Valid: true}, "via valuer"},
		{"null valuer", pgtype.Text{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.in); got != tt.want {
				t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatRow(t *testing.T) {
	got := FormatRow([]any{int64(1), nil, "x"})
	want := []string{"1", "", "x"}
	if len(got) != len(want) {
		t.Fatalf("FormatRow() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FormatRow()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

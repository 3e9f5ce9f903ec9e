package coerce

import (
	"reflect"
	"testing"

	"sheetsync/internal/schema"
)

func TestValue_Integer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want any
	}{
		{"", nil},
		{"none", nil},
		{" NONE ", nil},
		{"NaN", nil},
		{"abc", nil},
		{"42", int64(42)},
		{" 42 ", int64(42)},
		{"1 234,5", int64(1234)},
		{"1 234", int64(1234)},
		{"12abc", int64(12)},
		{"12.5abc", int64(12)},
		{"1,234", int64(1234)},
		{"12,345,678", int64(12345678)},
		{"-1,234", int64(-1234)},
		{"1,5", int64(1)},
		{"0,123", int64(0)},
		{"-3,9", int64(-3)},
		{"1.234,56", int64(1234)},
		{"1,234.56", int64(1234)},
		{"1.234.567", int64(1234567)},
		{"1e3", int64(1000)},
		{"inf", nil},
		{"99999999999999999999", nil},
	}
	for _, tc := range tests {
		if got := Value(tc.in, schema.Integer, Options{}); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Value(%q, integer) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestValue_Float(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want any
	}{
		{"", nil},
		{"nan", nil},
		{"abc", nil},
		{"1 234,5", 1234.5},
		{"0,25", 0.25},
		{"1,234.5", 1234.5},
		{"1.234,5", 1234.5},
		{"-7", -7.0},
		{"12abc", nil},
	}
	for _, tc := range tests {
		if got := Value(tc.in, schema.Float, Options{}); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Value(%q, float) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestValue_Date(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want any
	}{
		{"31/01/2024", "2024-01-31"},
		{"03/04/2024", "2024-04-03"},
		{"3/4/2024", "2024-04-03"},
		{"01/31/2024", "2024-01-31"},
		{"2024-01-31", "2024-01-31"},
		{"2024/1/5", "2024-01-05"},
		{"31.01.2024", "2024-01-31"},
		{"31.01.24", "2024-01-31"},
		{"31-01-2024", "2024-01-31"},
		{"2024-01-31T10:00:00Z", "2024-01-31"},
		{"31/01/2024 10:30", "2024-01-31"},
		{"31/01/2024 10:30:00 PM", "2024-01-31"},
		{"5 March 2024", "2024-03-05"},
		{"5-Mar-24", "2024-03-05"},
		{"March 5, 2024", "2024-03-05"},
		{"31/02/2024", nil},
		{"not a date", nil},
		{"", nil},
		{"   ", nil},
	}
	for _, tc := range tests {
		if got := Value(tc.in, schema.Date, Options{}); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Value(%q, date) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestValue_Text(t *testing.T) {
	t.Parallel()

	if got := Value("", schema.Text, Options{}); got != "" {
		t.Errorf("empty text = %#v, want \"\"", got)
	}
	if got := Value("", schema.Other, Options{EmptyTextAsNull: true}); got != nil {
		t.Errorf("empty text with EmptyTextAsNull = %#v, want nil", got)
	}
	if got := Value(" Springfield ", schema.Text, Options{EmptyTextAsNull: true}); got != " Springfield " {
		t.Errorf("text = %#v, want passthrough", got)
	}
}

func TestColumn(t *testing.T) {
	t.Parallel()

	got := Column([]string{"1", "x", ""}, schema.Integer, Options{})
	want := []any{int64(1), nil, nil}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Column = %#v, want %#v", got, want)
	}
}

func TestTable(t *testing.T) {
	t.Parallel()

	plan := []schema.ColumnSpec{
		{Name: "city", Type: schema.Text},
		{Name: "population", Type: schema.Integer},
	}
	rows := [][]string{
		{"Springfield", "1,234", "ignored"},
		{"Shelbyville"},
	}
	got := Table(rows, []int{0, 1}, plan, Options{})
	want := [][]any{
		{"Springfield", int64(1234)},
		{"Shelbyville", nil},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Table = %#v, want %#v", got, want)
	}
	for i, r := range got {
		if len(r) != len(plan) {
			t.Fatalf("row %d has %d values, want %d", i, len(r), len(plan))
		}
	}
}

func FuzzValueNeverPanics(f *testing.F) {
	for _, s := range []string{"", "none", "1 234,5", "12abc", "31/01/2024", "1,2,3", "--1", "1e999", ",", "."} {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, s string) {
		for _, typ := range []schema.DeclaredType{schema.Date, schema.Integer, schema.Float, schema.Text, schema.Other} {
			switch v := Value(s, typ, Options{}).(type) {
			case nil, string, int64, float64:
			default:
				t.Fatalf("Value(%q, %s) returned %T", s, typ, v)
			}
		}
	})
}

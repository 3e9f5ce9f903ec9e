package header

import (
	"reflect"
	"testing"

	"sheetsync/internal/config"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		opts Options
		want []string
	}{
		{
			name: "line breaks and padding",
			in:   []string{"City", "Population ", "Дата\r\nначала", "  a \n\n b  "},
			want: []string{"City", "Population", "Дата начала", "a b"},
		},
		{
			name: "tabs and no-break spaces",
			in:   []string{"oc\trate", "min\u00a0\u00a0value"},
			want: []string{"oc rate", "min value"},
		},
		{
			name: "lowercase",
			in:   []string{"City", "ГОРОД", "Population "},
			opts: Options{Lowercase: true},
			want: []string{"city", "город", "population"},
		},
		{
			name: "decomposed accents compose",
			in:   []string{"Cafe\u0301"},
			want: []string{"Caf\u00e9"},
		},
		{
			name: "empty stays empty",
			in:   []string{"", "   "},
			want: []string{"", ""},
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Normalize(tc.in, tc.opts)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestApplyAliases(t *testing.T) {
	t.Parallel()

	aliases := config.AliasTable{
		{From: "Город", To: "city"},
		{From: "min", To: "oc_rate_ps_min"},
		{From: "город", To: "town"}, // shadowed by the first entry once lowercased
		{From: "Town", To: "city"},
	}
	opts := Options{Lowercase: true}

	labels := Normalize([]string{"ГОРОД", "Min", "Operator", "town"}, opts)
	got := ApplyAliases(labels, aliases, opts)
	want := []string{"city", "oc_rate_ps_min", "operator", "city"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ApplyAliases = %q, want %q", got, want)
	}
	if labels[0] != "город" {
		t.Fatalf("input slice mutated: %q", labels)
	}
}

func TestApplyAliases_CaseSensitive(t *testing.T) {
	t.Parallel()

	aliases := config.AliasTable{{From: "ФИО", To: "full_name"}, {From: "1", To: "m1"}}
	got := Canonical([]string{"ФИО", "фио", " 1 ", "2"}, aliases, Options{})
	want := []string{"full_name", "фио", "m1", "2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Canonical = %q, want %q", got, want)
	}
}

func FuzzLabelIdempotent(f *testing.F) {
	for _, s := range []string{"City", "Population ", "a\r\n\r\nb", " x ", "ГОРОД", "Café", ""} {
		f.Add(s, false)
		f.Add(s, true)
	}
	f.Fuzz(func(t *testing.T, s string, lc bool) {
		opts := Options{Lowercase: lc}
		once := Label(s, opts)
		if twice := Label(once, opts); twice != once {
			t.Fatalf("Label not idempotent: %q -> %q -> %q", s, once, twice)
		}
	})
}

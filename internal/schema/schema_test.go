package schema

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"sheetsync/internal/config"
	"sheetsync/internal/storage"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := map[string]DeclaredType{
		"date":                        Date,
		"DATE":                        Date,
		"integer":                     Integer,
		"bigint":                      Integer,
		"INT":                         Integer,
		"tinyint":                     Integer,
		"double precision":            Float,
		"numeric(10,2)":               Float,
		"DECIMAL(18, 4)":              Float,
		"real":                        Float,
		"text":                        Text,
		"character varying":           Text,
		"VARCHAR(40)":                 Text,
		"nvarchar":                    Text,
		"timestamp without time zone": Other,
		"boolean":                     Other,
		"uuid":                        Other,
		"":                            Other,
	}
	for in, want := range tests {
		if got := Classify(in); got != want {
			t.Errorf("Classify(%q) = %q, want %q", in, got, want)
		}
	}
}

type fakeSource struct {
	cols []storage.Column
	err  error
	got  config.TableID
}

func (f *fakeSource) Columns(_ context.Context, t config.TableID) ([]storage.Column, error) {
	f.got = t
	return f.cols, f.err
}

func TestRead(t *testing.T) {
	t.Parallel()

	src := &fakeSource{cols: []storage.Column{
		{Name: "city", DataType: "text"},
		{Name: "population", DataType: "integer"},
		{Name: "updated_at", DataType: "timestamp with time zone"},
	}}
	tid := config.TableID{Schema: "hr", Name: "lop_cities"}

	got, err := Read(context.Background(), src, tid)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if src.got != tid {
		t.Fatalf("queried %v, want %v", src.got, tid)
	}
	if want := []string{"city", "population", "updated_at"}; !reflect.DeepEqual(Names(got), want) {
		t.Fatalf("names = %v, want %v", Names(got), want)
	}
	if got[0].Type != Text || got[1].Type != Integer || got[2].Type != Other {
		t.Fatalf("types = %+v", got)
	}
}

func TestRead_NotFound(t *testing.T) {
	t.Parallel()

	_, err := Read(context.Background(), &fakeSource{}, config.TableID{Schema: "hr", Name: "missing"})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want *NotFoundError", err)
	}
	if nf.Table.Name != "missing" {
		t.Fatalf("NotFoundError.Table = %v", nf.Table)
	}
}

func TestRead_SourceError(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	_, err := Read(context.Background(), &fakeSource{err: boom}, config.TableID{Schema: "a", Name: "b"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		t.Fatalf("source error must not be reported as not found")
	}
}

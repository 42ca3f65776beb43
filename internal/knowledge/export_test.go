package knowledge

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExport_RoundTrip(t *testing.T) {
	s := newStore(t)
	in := []Record{
		{Title: "First", URL: "https://a.example/1", Snippet: "snip \"quoted\"", Query: "Jane Doe leaked", Page: 1, Date: "2024-03-09"},
		{Title: "", URL: "https://b.example/2", Snippet: "", Query: "Jane Doe leaked", Page: 2, Date: "2024-03-09"},
	}
	if _, err := s.Merge("Jane Doe", in); err != nil {
		t.Fatalf("merge: %v", err)
	}
	want, err := s.Load("Jane Doe")
	if err != nil {
		t.Fatal(err)
	}
	for _, format := range []string{"csv", "excel", "xlsx", "json"} {
		path, err := s.Export("Jane Doe", format)
		if err != nil {
			t.Fatalf("%s export: %v", format, err)
		}
		got, err := ReadExport(path)
		if err != nil {
			t.Fatalf("%s read back: %v", format, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("%s round trip (-want +got):\n%s", format, diff)
		}
	}
}

func TestExport_CSVIsLedger(t *testing.T) {
	s := newStore(t)
	if _, err := s.Merge("k", []Record{{URL: "https://a.example/"}}); err != nil {
		t.Fatal(err)
	}
	p, err := s.Export("k", "CSV")
	if err != nil {
		t.Fatal(err)
	}
	if p != s.LedgerPath("k") {
		t.Fatalf("path=%s", p)
	}
	if filepath.Base(p) != "k_master.csv" {
		t.Fatalf("base=%s", filepath.Base(p))
	}
}

func TestExport_Errors(t *testing.T) {
	s := newStore(t)
	if _, err := s.Export("missing", "json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := s.Merge("k", []Record{{URL: "https://a.example/"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Export("k", "parquet"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("want ErrUnsupportedFormat, got %v", err)
	}
	if _, err := ReadExport("x.txt"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("want ErrUnsupportedFormat, got %v", err)
	}
}

package knowledge

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func fixedNow() time.Time { return time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC) }

func newStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir(), nil)
	s.Now = fixedNow
	return s
}

func TestMerge_AddsOnlyNewURLs(t *testing.T) {
	s := newStore(t)
	n, err := s.Merge("Jane Doe", []Record{
		{Title: "a", URL: "https://a.example/1", Query: "q", Page: 1, Date: "2024-03-09"},
		{Title: "b", URL: "https://b.example/2", Query: "q", Page: 1, Date: "2024-03-09"},
		{Title: "dup", URL: "https://a.example/1", Query: "q", Page: 2, Date: "2024-03-09"},
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if n != 2 {
		t.Fatalf("added=%d want 2", n)
	}
	n, err = s.Merge("jane  doe", []Record{
		{Title: "again", URL: "https://b.example/2"},
		{Title: "c", URL: "https://c.example/3"},
	})
	if err != nil {
		t.Fatalf("merge 2: %v", err)
	}
	if n != 1 {
		t.Fatalf("second added=%d want 1", n)
	}
	recs, err := s.Load("JANE DOE")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var urls []string
	for _, r := range recs {
		urls = append(urls, r.URL)
		if r.DiscoveredDate != "2024-03-09" {
			t.Fatalf("discovered_date=%q", r.DiscoveredDate)
		}
	}
	want := []string{"https://a.example/1", "https://b.example/2", "https://c.example/3"}
	if diff := cmp.Diff(want, urls); diff != "" {
		t.Fatalf("urls mismatch (-want +got):\n%s", diff)
	}
	if recs[0].Title != "a" {
		t.Fatalf("existing row must be preserved, got %q", recs[0].Title)
	}
}

func TestMerge_NothingNewLeavesNoFile(t *testing.T) {
	s := newStore(t)
	n, err := s.Merge("nobody", nil)
	if err != nil || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if _, err := s.Load("nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMerge_ConcurrentWritersDoNotLoseRows(t *testing.T) {
	s := newStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recs := []Record{{URL: fmt.Sprintf("https://w%d.example/x", i)}, {URL: "https://shared.example/"}}
			if _, err := s.Merge("Same Subject", recs); err != nil {
				t.Errorf("merge %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()
	st, err := s.Stats("same subject")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalURLs != 9 {
		t.Fatalf("total=%d want 9", st.TotalURLs)
	}
}

func TestStats_EmptySubject(t *testing.T) {
	s := newStore(t)
	st, err := s.Stats("unknown")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalURLs != 0 || len(st.Domains) != 0 || st.Oldest != nil || st.Newest != nil {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.Domains == nil {
		t.Fatalf("domains must be an empty map, not nil")
	}
}

func TestStats_DomainsAndDates(t *testing.T) {
	s := newStore(t)
	if _, err := s.Merge("x", []Record{{URL: "https://www.a.example/1"}, {URL: "https://a.example/2"}, {URL: "https://b.example/"}}); err != nil {
		t.Fatal(err)
	}
	s.Now = func() time.Time { return fixedNow().AddDate(0, 0, 3) }
	if _, err := s.Merge("x", []Record{{URL: "https://c.example/"}}); err != nil {
		t.Fatal(err)
	}
	st, err := s.Stats("x")
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalURLs != 4 {
		t.Fatalf("total=%d", st.TotalURLs)
	}
	if st.Domains["a.example"] != 2 || st.Domains["b.example"] != 1 {
		t.Fatalf("domains=%v", st.Domains)
	}
	if st.Oldest == nil || *st.Oldest != "2024-03-09" || *st.Newest != "2024-03-12" {
		t.Fatalf("dates: %v %v", st.Oldest, st.Newest)
	}
	if top := st.TopDomains(); top[0].Domain != "a.example" {
		t.Fatalf("top=%v", top)
	}
}

func TestURLs(t *testing.T) {
	s := newStore(t)
	urls, err := s.URLs("none")
	if err != nil || len(urls) != 0 {
		t.Fatalf("urls=%v err=%v", urls, err)
	}
	if _, err := s.Merge("some", []Record{{URL: "https://u.example/"}}); err != nil {
		t.Fatal(err)
	}
	urls, _ = s.URLs("some")
	if diff := cmp.Diff([]string{"https://u.example/"}, urls); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestSaveSnapshot(t *testing.T) {
	s := newStore(t)
	path, err := s.SaveSnapshot("Jane Doe", "", []Record{{Title: "t, with comma", URL: "https://a.example/", Snippet: "line\nbreak", Page: 3}})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if want := "jane_doe_temp_20240309_140506.csv"; !endsWith(path, want) {
		t.Fatalf("path=%s want suffix %s", path, want)
	}
	recs, err := ReadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Title != "t, with comma" || recs[0].Snippet != "line\nbreak" || recs[0].Page != 3 {
		t.Fatalf("round trip: %+v", recs)
	}
	if p, err := s.SaveSnapshot("x", "", nil); err != nil || p != "" {
		t.Fatalf("empty snapshot: %q %v", p, err)
	}
}

func endsWith(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func TestMerge_ConcurrentSpellingsShareOneLedger(t *testing.T) {
	s := newStore(t)
	spellings := []string{"Jane Doe", "  jane   DOE", "ＪＡＮＥ Doe"}
	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := spellings[i%len(spellings)]
			if _, err := s.Merge(name, []Record{{URL: fmt.Sprintf("https://x.example/%d", i)}}); err != nil {
				t.Errorf("merge %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()
	recs, err := s.Load("Jane Doe")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 60 {
		t.Fatalf("ledger has %d rows, want 60", len(recs))
	}
}

func TestLedgerPath_DistinctSubjectsDoNotAlias(t *testing.T) {
	s := newStore(t)
	paths := map[string]string{}
	for _, name := range []string{"Jane Doe", "Jane_Doe", "jane.doe", "Jane-Doe"} {
		p := s.LedgerPath(name)
		if prev, ok := paths[p]; ok {
			t.Fatalf("%q and %q share ledger %s", prev, name, p)
		}
		paths[p] = name
	}
	if _, err := s.Merge("Jane_Doe", []Record{{URL: "https://only.example/1"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load("Jane Doe"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Jane Doe must not see Jane_Doe's ledger, got %v", err)
	}
}

package keywords

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hyperifyio/goleakscan/internal/knowledge"
)

func TestCandidates(t *testing.T) {
	recs := []knowledge.Record{
		{Title: "Jane Doe leaked videos", Snippet: "Download leaked videos 2024 free"},
		{Title: "Videos mirror", Snippet: "mirror of the free archive, don't miss"},
		{Title: "Misc", Snippet: "once only words here"},
	}
	got := Candidates(recs)
	want := []string{"videos", "leaked", "free", "mirror"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestCandidates_Empty(t *testing.T) {
	if got := Candidates(nil); len(got) != 0 {
		t.Fatalf("got %v", got)
	}
}

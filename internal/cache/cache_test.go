package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRankingCache_StoreLookup(t *testing.T) {
	c := &RankingCache{Dir: t.TempDir()}
	key := Key("model", "prompt")
	in := Entry{Model: "model", Kind: "heuristic", Phrases: []string{"leaked videos"}, Raw: "leaked videos\n"}
	if err := c.Store("Jane Doe", key, in); err != nil {
		t.Fatalf("store: %v", err)
	}
	got, ok, err := c.Lookup("  jane DOE", key)
	if err != nil || !ok {
		t.Fatalf("lookup: %v ok=%v", err, ok)
	}
	if got.Kind != "heuristic" || got.Subject != "Jane Doe" || got.StoredAt.IsZero() {
		t.Fatalf("entry: %+v", got)
	}
	if diff := cmp.Diff(in.Phrases, got.Phrases); diff != "" {
		t.Fatalf("phrases (-want +got):\n%s", diff)
	}
	if _, ok, _ := c.Lookup("Jane Doe", Key("model", "other")); ok {
		t.Fatal("unexpected hit for another prompt")
	}
	if _, ok, _ := c.Lookup("John Roe", key); ok {
		t.Fatal("entries must not be shared between subjects")
	}
}

func TestRankingCache_CorruptEntryIsAMiss(t *testing.T) {
	c := &RankingCache{Dir: t.TempDir()}
	key := Key("m", "p")
	if err := c.Store("Jane Doe", key, Entry{Kind: "structured"}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.pathFor("Jane Doe", key), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Lookup("Jane Doe", key); ok || err != nil {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(c.pathFor("Jane Doe", key)); !os.IsNotExist(err) {
		t.Fatalf("corrupt entry should be removed, stat err=%v", err)
	}
}

func TestKey_DependsOnModel(t *testing.T) {
	if Key("a", "p") == Key("b", "p") {
		t.Fatal("keys must differ per model")
	}
}

func TestRankingCache_Unconfigured(t *testing.T) {
	var c *RankingCache
	if _, _, err := c.Lookup("x", "k"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}
	if err := (&RankingCache{}).Store("x", "k", Entry{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}
}

func TestRankingCache_StrictPerms(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "llm")
	c := &RankingCache{Dir: dir, StrictPerms: true}
	key := Key("model", "prompt")
	if err := c.Store("Jane Doe", key, Entry{}); err != nil {
		t.Fatalf("store: %v", err)
	}
	for _, d := range []string{dir, c.subjectDir("Jane Doe")} {
		info, err := os.Stat(d)
		if err != nil {
			t.Fatalf("stat dir: %v", err)
		}
		if got := info.Mode() & 0o777; got != 0o700 {
			t.Fatalf("%s mode = %o, want 0700", d, got)
		}
	}
	finfo, err := os.Stat(c.pathFor("Jane Doe", key))
	if err != nil {
		t.Fatalf("stat file: %v", err)
	}
	if got := finfo.Mode() & 0o777; got != 0o600 {
		t.Fatalf("file mode = %o, want 0600", got)
	}
}

func TestRankingCache_PurgeSubject(t *testing.T) {
	c := &RankingCache{Dir: t.TempDir()}
	for i := 0; i < 3; i++ {
		if err := c.Store("Jane Doe", Key("m", fmt.Sprint(i)), Entry{}); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Store("John Roe", Key("m", "0"), Entry{}); err != nil {
		t.Fatal(err)
	}
	n, err := c.PurgeSubject("jane doe")
	if err != nil || n != 3 {
		t.Fatalf("removed=%d err=%v", n, err)
	}
	if _, ok, _ := c.Lookup("John Roe", Key("m", "0")); !ok {
		t.Fatal("other subjects must be kept")
	}
	if n, err := c.PurgeSubject("nobody"); err != nil || n != 0 {
		t.Fatalf("purging an unknown subject: n=%d err=%v", n, err)
	}
}

func TestEnforceLimits_EvictsLeastRecentlyUsed(t *testing.T) {
	dir := t.TempDir()
	c := &RankingCache{Dir: dir}
	keys := []string{Key("m", "p1"), Key("m", "p2"), Key("m", "p3")}
	subjects := []string{"Jane Doe", "John Roe", "Jane Doe"}
	base := time.Now().Add(-time.Hour)
	for i, k := range keys {
		if err := c.Store(subjects[i], k, Entry{Raw: fmt.Sprintf("%d", i)}); err != nil {
			t.Fatalf("store %d: %v", i, err)
		}
		ts := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(c.pathFor(subjects[i], k), ts, ts); err != nil {
			t.Fatal(err)
		}
	}
	// A hit on p1 makes p2 the oldest.
	if _, ok, _ := c.Lookup(subjects[0], keys[0]); !ok {
		t.Fatal("expected hit")
	}
	removed, err := EnforceLimits(dir, 0, 2)
	if err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed=%d want 1", removed)
	}
	if _, ok, _ := c.Lookup(subjects[1], keys[1]); ok {
		t.Fatal("expected p2 evicted")
	}
	if _, ok, _ := c.Lookup(subjects[0], keys[0]); !ok {
		t.Fatal("recently used entry must survive")
	}
}

func TestPurgeByAge(t *testing.T) {
	dir := t.TempDir()
	c := &RankingCache{Dir: dir}
	oldKey, newKey := Key("m", "old"), Key("m", "new")
	for _, k := range []string{oldKey, newKey} {
		if err := c.Store("Jane Doe", k, Entry{Raw: "x"}); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(c.pathFor("Jane Doe", oldKey), old, old); err != nil {
		t.Fatal(err)
	}
	removed, err := PurgeByAge(dir, 24*time.Hour)
	if err != nil || removed != 1 {
		t.Fatalf("removed=%d err=%v", removed, err)
	}
	if n, _ := PurgeByAge(dir, 0); n != 0 {
		t.Fatalf("zero age must be a no-op, removed %d", n)
	}
}

func TestClearDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.json"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ClearDir(dir); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("entries=%d", len(entries))
	}
	if err := ClearDir("  "); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

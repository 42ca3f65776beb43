package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/goleakscan/internal/cache"
	"github.com/hyperifyio/goleakscan/internal/scan"
	"github.com/hyperifyio/goleakscan/internal/search"
)

func writeResults(t *testing.T, dir string) string {
	t.Helper()
	results := []search.Result{
		{Title: "Jane Doe leaked videos archive", URL: "https://mirror.example/a", Snippet: "leaked videos archive"},
		{Title: "Jane Doe videos mirror", URL: "https://other.example/b", Snippet: "archive mirror"},
		{Title: "Unrelated", URL: "https://x.example/c", Snippet: "nothing"},
	}
	b, _ := json.Marshal(results)
	p := filepath.Join(dir, "results.json")
	if err := os.WriteFile(p, b, 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func llmStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/models":
			_ = json.NewEncoder(w).Encode(openai.ModelsList{Models: []openai.Model{{ID: "stub"}}})
		case "/v1/chat/completions":
			_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
				Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: "assistant", Content: `["video archive", "mirror download"]`}}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestNew_OfflineScan(t *testing.T) {
	dir := t.TempDir()
	srv := llmStub(t)
	defer srv.Close()
	cfg := Config{
		SearchFile: writeResults(t, dir),
		LLMBaseURL: srv.URL + "/v1",
		LLMModel:   "stub",
		DataDir:    filepath.Join(dir, "data"),
		CacheDir:   filepath.Join(dir, "cache"),
		CallDelay:  1,
		ErrorDelay: 1,
	}
	ApplyDefaults(&cfg)
	a, err := New(context.Background(), cfg, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()

	s, err := a.Orchestrator().Run(context.Background(), scan.Request{Subject: "Jane Doe", Keywords: []string{"leaked"}, MaxCalls: 2})
	if err != nil {
		t.Fatal(err)
	}
	if s.Status != scan.StatusCompleted {
		t.Fatalf("status=%s err=%s", s.Status, s.Error)
	}
	if s.RowsAdded != 2 {
		t.Fatalf("added=%d", s.RowsAdded)
	}
	kws, err := a.Orchestrator().Suggest("Jane Doe", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(kws) != 2 || kws[0] != "mirror download" && kws[0] != "video archive" {
		t.Fatalf("suggest=%v", kws)
	}
}

func TestNew_RedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	cfg := Config{SearchFile: writeResults(t, dir), DataDir: dir, RedisURL: "redis://" + mr.Addr() + "/0"}
	ApplyDefaults(&cfg)
	a, err := New(context.Background(), cfg, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()
	if _, ok := a.Orchestrator().Sessions.(*scan.RedisStore); !ok {
		t.Fatalf("sessions=%T", a.Orchestrator().Sessions)
	}
}

func TestNew_BadRedisURL(t *testing.T) {
	cfg := Config{DataDir: t.TempDir(), RedisURL: "not a url"}
	if _, err := New(context.Background(), cfg, prometheus.NewRegistry()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNew_EnforcesCacheLimitsAndForgets(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	rc := &cache.RankingCache{Dir: cacheDir}
	for i, name := range []string{"Jane Doe", "Jane Doe", "John Roe"} {
		if err := rc.Store(name, cache.Key("m", fmt.Sprint(i)), cache.Entry{Kind: "structured"}); err != nil {
			t.Fatal(err)
		}
	}
	cfg := Config{DataDir: filepath.Join(dir, "data"), CacheDir: cacheDir, CacheMaxCount: 2}
	ApplyDefaults(&cfg)
	a, err := New(context.Background(), cfg, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()

	var left int
	err = filepath.WalkDir(cacheDir, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() && filepath.Ext(path) == ".json" {
			left++
		}
		return err
	})
	if err != nil || left != 2 {
		t.Fatalf("entries left=%d err=%v", left, err)
	}

	if _, err := a.ForgetRankings("John Roe"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := rc.Lookup("John Roe", cache.Key("m", "2")); ok {
		t.Fatal("forgotten subject still cached")
	}
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperifyio/goleakscan/internal/knowledge"
	"github.com/hyperifyio/goleakscan/internal/scan"
	"github.com/hyperifyio/goleakscan/internal/search"
)

// clearEnv keeps the developer's environment out of the flag precedence chain.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GOOGLE_API_KEY", "SEARCH_ENGINE_ID", "SEARCH_BASE_URL", "SEARCH_FILE", "LLM_BASE_URL", "LLM_MODEL", "LLM_API_KEY", "DATA_DIR", "CACHE_DIR", "REDIS_URL", "CALL_DELAY", "ERROR_DELAY", "VERBOSE"} {
		t.Setenv(k, "")
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func baseArgs(dir string) []string {
	return []string{
		"--env-file", filepath.Join(dir, "missing.env"),
		"--data.dir", filepath.Join(dir, "data"),
		"--cache.dir", filepath.Join(dir, "cache"),
		"--pacing.callDelay", "1ns",
		"--pacing.errorDelay", "1ns",
	}
}

func TestScanThenInspect(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	results := []search.Result{
		{Title: "Jane Doe leaked videos", URL: "https://mirror.example/a", Snippet: "archive"},
		{Title: "Jane Doe photos", URL: "https://other.example/b", Snippet: "mirror"},
	}
	b, _ := json.Marshal(results)
	file := filepath.Join(dir, "results.json")
	if err := os.WriteFile(file, b, 0o600); err != nil {
		t.Fatal(err)
	}
	common := append(baseArgs(dir), "--search.file", file)

	out, err := run(t, append([]string{"scan", "Jane Doe", "-k", "leaked", "--max-calls", "2"}, common...)...)
	if err != nil {
		t.Fatalf("scan: %v\n%s", err, out)
	}
	var s scan.Session
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("decode session: %v\n%s", err, out)
	}
	if s.Status != scan.StatusCompleted || s.RowsAdded != 2 || s.Results == nil || s.Results.TotalMatches != 2 {
		t.Fatalf("unexpected session: %+v", s)
	}

	out, err = run(t, append([]string{"stats", "jane doe"}, common...)...)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var st knowledge.Stats
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if st.TotalURLs != 2 || st.Domains["mirror.example"] != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}

	out, err = run(t, append([]string{"export", "Jane Doe", "-f", "json"}, common...)...)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if p := strings.TrimSpace(out); !strings.HasSuffix(p, "_master.json") {
		t.Fatalf("export path: %q", p)
	} else if _, err := os.Stat(p); err != nil {
		t.Fatalf("export missing: %v", err)
	}

	out, err = run(t, append([]string{"report", "Jane Doe", "-f", "pdf"}, common...)...)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if _, err := os.Stat(strings.TrimSpace(out)); err != nil {
		t.Fatalf("report missing: %v", err)
	}

	// No model configured: nothing learned, so the built-in suggestions are served.
	out, err = run(t, append([]string{"suggest", "Jane Doe", "-n", "2"}, common...)...)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 2 || lines[0] != "leaked content" {
		t.Fatalf("suggest output: %q", out)
	}
}

func TestForget_NoCachedRankings(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	out, err := run(t, append([]string{"forget", "Jane Doe"}, baseArgs(dir)...)...)
	if err != nil {
		t.Fatalf("forget: %v", err)
	}
	if strings.TrimSpace(out) != "removed 0 cached rankings" {
		t.Fatalf("output: %q", out)
	}
}

func TestScan_ErrorStatusFails(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	// No search credentials: the first call fails and the session ends in error.
	out, err := run(t, append([]string{"scan", "Jane Doe", "-k", "leaked", "--max-calls", "1"}, baseArgs(dir)...)...)
	if err == nil {
		t.Fatalf("expected error, output: %s", out)
	}
	var s scan.Session
	if jerr := json.Unmarshal([]byte(out), &s); jerr != nil {
		t.Fatalf("session should still be printed: %v\n%s", jerr, out)
	}
	if s.Status != scan.StatusError || s.Error == "" {
		t.Fatalf("unexpected session: %+v", s)
	}
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "goleakscan.yaml")
	yaml := "dataDir: " + filepath.Join(dir, "from-file") + "\nmax:\n  pages: 3\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATA_DIR", filepath.Join(dir, "from-env"))

	opts := &options{configFile: cfgPath}
	opts.cfg.MaxPages = 5
	if err := opts.prepare(context.Background()); err != nil {
		t.Fatal(err)
	}
	if opts.cfg.DataDir != filepath.Join(dir, "from-env") {
		t.Fatalf("env should beat file, got %q", opts.cfg.DataDir)
	}
	if opts.cfg.MaxPages != 5 {
		t.Fatalf("flag should beat file, got %d", opts.cfg.MaxPages)
	}
	if opts.cfg.BatchSize != 1 {
		t.Fatalf("default batch size, got %d", opts.cfg.BatchSize)
	}
}

func TestUnknownExportFormat(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if _, err := run(t, append([]string{"export", "Jane Doe", "-f", "xml"}, baseArgs(dir)...)...); err == nil {
		t.Fatal("expected error")
	}
}

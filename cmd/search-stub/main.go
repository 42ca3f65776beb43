// Command search-stub serves a canned Custom Search API and an
// OpenAI-compatible chat API for offline end-to-end runs of goleakscan.
//
// Environment:
//
//	ADDR          listen address (default :8081)
//	MODEL_ID      model reported by /v1/models (default test-model)
//	RESULTS_FILE  JSON array of {"title","url","snippet"} served as search items
//	QUOTA_AFTER   answer with a quota error after this many search calls (0 disables)
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/goleakscan/internal/search"
)

type stub struct {
	model      string
	results    []search.Result
	quotaAfter int64
	calls      atomic.Int64
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	s := &stub{model: envOr("MODEL_ID", "test-model")}
	if p := strings.TrimSpace(os.Getenv("RESULTS_FILE")); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			log.Fatal().Err(err).Str("file", p).Msg("read results")
		}
		if err := json.Unmarshal(b, &s.results); err != nil {
			log.Fatal().Err(err).Str("file", p).Msg("decode results")
		}
	}
	if n, err := strconv.ParseInt(os.Getenv("QUOTA_AFTER"), 10, 64); err == nil {
		s.quotaAfter = n
	}
	addr := envOr("ADDR", ":8081")

	log.Info().Str("addr", addr).Str("model", s.model).Int("results", len(s.results)).Msg("search-stub listening")
	srv := &http.Server{Addr: addr, Handler: s.routes(), ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (s *stub) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/customsearch/v1", s.handleSearch)
	mux.HandleFunc("/v1/models", s.handleModels)
	mux.HandleFunc("/v1/chat/completions", s.handleChat)
	return mux
}

type cseItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

func (s *stub) handleSearch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	n := s.calls.Add(1)
	if s.quotaAfter > 0 && n > s.quotaAfter {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    http.StatusTooManyRequests,
				"message": "Quota exceeded for quota metric 'Queries' and limit 'Queries per day'",
			},
		})
		return
	}
	q := r.URL.Query()
	if q.Get("key") == "" || q.Get("cx") == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": http.StatusBadRequest, "message": "Missing key or cx"},
		})
		return
	}
	start, _ := strconv.Atoi(q.Get("start"))
	if start < 1 {
		start = 1
	}
	terms := strings.ToLower(strings.TrimSpace(q.Get("exactTerms")))
	matched := make([]cseItem, 0, len(s.results))
	for _, res := range s.results {
		hay := strings.ToLower(res.Title + " " + res.Snippet + " " + res.URL)
		if terms == "" || strings.Contains(hay, terms) {
			matched = append(matched, cseItem{Title: res.Title, Link: res.URL, Snippet: res.Snippet})
		}
	}
	body := map[string]any{}
	if from := start - 1; from < len(matched) {
		to := from + search.PageSize
		if to > len(matched) {
			to = len(matched)
		}
		body["items"] = matched[from:to]
	}
	_ = json.NewEncoder(w).Encode(body)
}

func (s *stub) handleModels(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(openai.ModelsList{Models: []openai.Model{{ID: s.model, Object: "model"}}})
}

// handleChat answers keyword-ranking prompts with a fixed phrase list derived
// from the candidate line of the user message when present.
func (s *stub) handleChat(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	phrases := []string{"full archive", "mirror download"}
	for _, m := range req.Messages {
		if m.Role != openai.ChatMessageRoleUser {
			continue
		}
		if c := candidatePhrases(m.Content); len(c) > 0 {
			phrases = c
		}
	}
	b, _ := json.Marshal(phrases)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
		Model: s.model,
		Choices: []openai.ChatCompletionChoice{{
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: string(b)},
			FinishReason: openai.FinishReasonStop,
		}},
	})
}

// candidatePhrases pairs the first candidate words into two-word phrases.
func candidatePhrases(prompt string) []string {
	for _, line := range strings.Split(prompt, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "Frequent words in the latest results:")
		if !ok {
			continue
		}
		words := strings.FieldsFunc(rest, func(r rune) bool { return r == ',' || r == ' ' })
		out := make([]string, 0, 3)
		for i := 0; i+1 < len(words) && len(out) < 3; i += 2 {
			out = append(out, words[i]+" "+words[i+1])
		}
		return out
	}
	return nil
}

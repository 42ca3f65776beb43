package keywords

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/goleakscan/internal/budget"
	"github.com/hyperifyio/goleakscan/internal/cache"
	"github.com/hyperifyio/goleakscan/internal/knowledge"
	"github.com/hyperifyio/goleakscan/internal/llm"
)

const (
	maxPriorKeywords   = 15
	maxPromptCandidate = 30
	maxSampleRows      = 30
	// ~2000 characters of sample text.
	maxSampleTokens = 500
)

// Request is what the ranking service sees for one learning pass.
type Request struct {
	Subject    string
	Prior      []string
	Candidates []string
	Records    []knowledge.Record
}

// Ranker proposes search phrases for a subject.
type Ranker interface {
	Rank(ctx context.Context, req Request) (Parsed, error)
}

// ErrRankerNotConfigured is returned when no model client is available.
var ErrRankerNotConfigured = errors.New("ranker not configured")

// LLMRanker asks an OpenAI-compatible chat model for phrases.
type LLMRanker struct {
	Client llm.Client
	Model  string
	Cache  *cache.RankingCache
	// CacheOnly returns from cache and fails fast on a miss.
	CacheOnly bool
	Verbose   bool
}

const systemMessage = "You are a search intelligence analyst who helps content owners find unauthorized copies of their work. Respond with a single list of quoted search phrases and nothing else, for example [\"leaked videos\", \"free download\"]."

// Rank implements Ranker. Transport failures and empty answers are returned
// as errors; callers decide how fatal they are.
func (r *LLMRanker) Rank(ctx context.Context, req Request) (Parsed, error) {
	if r == nil || r.Client == nil || r.Model == "" {
		return Parsed{}, ErrRankerNotConfigured
	}
	user := BuildPrompt(req)
	key := cache.Key(r.Model, systemMessage+"\n\n"+user)
	if r.Cache != nil {
		if e, ok, _ := r.Cache.Lookup(req.Subject, key); ok {
			return Parsed{Kind: kindOf(e.Kind), Phrases: e.Phrases}, nil
		}
	}
	if r.CacheOnly {
		return Parsed{}, errors.New("ranker cache-only: not found")
	}
	if r.Verbose {
		log.Debug().Str("stage", "learn").Str("model", r.Model).Int("est_tokens", budget.EstimateTokens(systemMessage)+budget.EstimateTokens(user)).Msg("ranking prompt")
	}
	resp, err := r.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.7,
		MaxTokens:   400,
		N:           1,
	})
	if err != nil {
		return Parsed{}, fmt.Errorf("ranker call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Parsed{}, errors.New("no choices")
	}
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	parsed := Parse(raw)
	if r.Cache != nil && parsed.Kind != Empty {
		if err := r.Cache.Store(req.Subject, key, cache.Entry{Model: r.Model, Kind: parsed.Kind.String(), Phrases: parsed.Phrases, Raw: raw}); err != nil {
			log.Warn().Err(err).Str("stage", "learn").Msg("ranking cache write failed")
		}
	}
	return parsed, nil
}

// BuildPrompt renders the user message for a learning pass.
func BuildPrompt(req Request) string {
	prior := req.Prior
	if len(prior) > maxPriorKeywords {
		prior = prior[:maxPriorKeywords]
	}
	cands := req.Candidates
	if len(cands) > maxPromptCandidate {
		cands = cands[:maxPromptCandidate]
	}
	var sb strings.Builder
	sb.WriteString("Subject: ")
	sb.WriteString(req.Subject)
	sb.WriteString("\n\nPreviously successful phrases: ")
	if len(prior) == 0 {
		sb.WriteString("none yet")
	} else {
		sb.WriteString(strings.Join(prior, ", "))
	}
	sb.WriteString("\n\nFrequent words in the latest results: ")
	sb.WriteString(strings.Join(cands, ", "))
	sb.WriteString("\n\nSample results:\n")
	sb.WriteString(sampleText(req.Records))
	sb.WriteString("\n\nPropose 8 to 10 short search phrases most likely to find unauthorized or duplicated copies of this subject's content: file types, hosting platforms and content types seen above. Do not include the subject's name; it is added separately.")
	return sb.String()
}

func sampleText(records []knowledge.Record) string {
	var sb strings.Builder
	for i, r := range records {
		if i == maxSampleRows {
			break
		}
		sb.WriteString(r.Title)
		sb.WriteString(" | ")
		sb.WriteString(r.Snippet)
		sb.WriteString(" | ")
		sb.WriteString(r.URL)
		sb.WriteByte('\n')
	}
	return budget.TruncateToTokens(sb.String(), maxSampleTokens)
}

package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperifyio/goleakscan/internal/extract"
)

// DefaultGoogleBaseURL is the Custom Search JSON API endpoint.
const DefaultGoogleBaseURL = "https://www.googleapis.com/customsearch/v1"

// GoogleCSE implements Provider against the Custom Search JSON API or any
// service speaking the same protocol.
type GoogleCSE struct {
	BaseURL    string // optional, defaults to DefaultGoogleBaseURL
	APIKey     string
	EngineID   string
	HTTPClient *http.Client
	UserAgent  string // optional custom UA
}

func (g *GoogleCSE) Name() string { return "google-cse" }

func (g *GoogleCSE) Search(ctx context.Context, req Request) ([]Result, error) {
	if strings.TrimSpace(g.APIKey) == "" || strings.TrimSpace(g.EngineID) == "" {
		return nil, fmt.Errorf("%w: missing api key or engine id", ErrNotConfigured)
	}
	base := g.BaseURL
	if base == "" {
		base = DefaultGoogleBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base url: %v", ErrNotConfigured, err)
	}
	q := u.Query()
	q.Set("q", req.Query)
	q.Set("cx", g.EngineID)
	q.Set("key", g.APIKey)
	q.Set("num", strconv.Itoa(PageSize))
	q.Set("start", strconv.Itoa(req.Start()))
	if req.DateRestrict != "" {
		q.Set("dateRestrict", req.DateRestrict)
	}
	q.Set("exactTerms", req.ExactTerms)
	u.RawQuery = q.Encode()

	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if g.UserAgent != "" {
		hreq.Header.Set("User-Agent", g.UserAgent)
	}
	hc := g.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	resp, err := hc.Do(hreq)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = redactKey(u)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	var cr cseResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("search status: %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if cr.Error != nil {
		return nil, &APIError{Code: cr.Error.Code, Message: cr.Error.Message}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("search status: %d", resp.StatusCode)
	}

	// Items without a link are kept with an empty URL so that a page of
	// unusable items is not mistaken for the end of the results.
	out := make([]Result, 0, len(cr.Items))
	for _, it := range cr.Items {
		link := strings.TrimSpace(it.Link)
		title := strings.TrimSpace(it.Title)
		if title == "" && it.HTMLTitle != "" {
			title = extract.PlainText(it.HTMLTitle)
		}
		snippet := strings.TrimSpace(it.Snippet)
		if snippet == "" && it.HTMLSnippet != "" {
			snippet = extract.PlainText(it.HTMLSnippet)
		}
		out = append(out, Result{Title: title, URL: link, Snippet: snippet})
	}
	return out, nil
}

// redactKey returns u with the API key masked, for error messages.
func redactKey(u *url.URL) string {
	c := *u
	q := c.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
	}
	c.RawQuery = q.Encode()
	return c.String()
}

type cseResponse struct {
	Items []struct {
		Title       string `json:"title"`
		HTMLTitle   string `json:"htmlTitle"`
		Link        string `json:"link"`
		Snippet     string `json:"snippet"`
		HTMLSnippet string `json:"htmlSnippet"`
	} `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

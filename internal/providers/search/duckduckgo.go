// Package search adapts the DuckDuckGo Instant Answer API to the Searcher
// contract: a query in, a text blob of result snippets out, never an error.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/inbucket/html2text"
	"github.com/sandevgo/finbot/internal/config"
	"github.com/sandevgo/finbot/internal/core"
	"github.com/sandevgo/finbot/pkg/log"
	"github.com/sandevgo/finbot/pkg/retry"
)

const (
	// NoResults is the sentinel returned for an empty result set.
	NoResults = "По результату ничего не найдено."

	// Failed is the sentinel returned on provider failure.
	Failed = "⚠️ Ошибка при поиске в интернете."

	// snippetSeparator joins title/snippet/url blocks.
	snippetSeparator = "\n\n---\n\n"

	maxResponseSize = 1 << 20 // 1MB limit
)

type DuckDuckGo struct {
	client     *http.Client
	retrier    *retry.Retrier
	baseURL    string
	maxResults int
}

func NewDuckDuckGo(cfg *config.SearchConfig) *DuckDuckGo {
	return &DuckDuckGo{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		retrier:    retry.NewDefaultRetrier(),
		baseURL:    cfg.BaseURL,
		maxResults: cfg.MaxResults,
	}
}

type ddgResponse struct {
	Heading       string     `json:"Heading"`
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Answer        string     `json:"Answer"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Result   string     `json:"Result"`
	Topics   []ddgTopic `json:"Topics"`
}

// Search returns concatenated result snippets, the NoResults sentinel for an
// empty set, or the Failed sentinel on provider error.
func (d *DuckDuckGo) Search(ctx context.Context, query string) string {
	logger := log.FromCtx(ctx)

	var parsed ddgResponse
	err := d.retrier.Do(ctx, func() error {
		return d.fetch(ctx, query, &parsed)
	})
	if err != nil {
		logger.Error().Err(err).Str("query", query).Msg("web search failed")
		return Failed
	}

	snippets := d.collectSnippets(parsed)
	if len(snippets) == 0 {
		return NoResults
	}
	return strings.Join(snippets, snippetSeparator)
}

func (d *DuckDuckGo) fetch(ctx context.Context, query string, out *ddgResponse) error {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_redirect", "1")
	params.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", core.BotUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func (d *DuckDuckGo) collectSnippets(resp ddgResponse) []string {
	var snippets []string

	if resp.Answer != "" {
		snippets = append(snippets, resp.Answer)
	}
	if resp.AbstractText != "" {
		snippets = append(snippets, formatSnippet(resp.Heading, resp.AbstractText, resp.AbstractURL))
	}

	for _, topic := range flattenTopics(resp.RelatedTopics) {
		if len(snippets) >= d.maxResults {
			break
		}
		text := topic.Text
		if text == "" && topic.Result != "" {
			// Result carries HTML when Text is absent.
			if plain, err := html2text.FromString(topic.Result); err == nil {
				text = strings.TrimSpace(plain)
			}
		}
		if text == "" {
			continue
		}
		snippets = append(snippets, formatSnippet("", text, topic.FirstURL))
	}

	if len(snippets) > d.maxResults {
		snippets = snippets[:d.maxResults]
	}
	return snippets
}

func flattenTopics(topics []ddgTopic) []ddgTopic {
	var flat []ddgTopic
	for _, t := range topics {
		if len(t.Topics) > 0 {
			flat = append(flat, flattenTopics(t.Topics)...)
			continue
		}
		flat = append(flat, t)
	}
	return flat
}

func formatSnippet(title, body, link string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{title, body, link} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

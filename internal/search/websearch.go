// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/biomed-agent/internal/httputil"
	"github.com/pdiddy/biomed-agent/pkg/types"
)

// duckDuckGoBase is the DuckDuckGo Instant Answer endpoint. Declared as a
// var so tests can substitute an httptest server.
var duckDuckGoBase = "https://api.duckduckgo.com/"

// webRelevance is flat for general web hits: the instant-answer API gives
// no rank signal worth trusting over the curated databases.
const webRelevance = 0.5

// WebSearchTool performs a general web search through the DuckDuckGo
// Instant Answer API. It needs no API key, which makes it the tool of last
// resort when everything else is disabled.
type WebSearchTool struct {
	Client    *http.Client
	UserAgent string
}

// Name returns the tool identifier.
func (t *WebSearchTool) Name() string { return string(types.SourceWeb) }

// Search returns evidence assembled from the abstract and related topics.
func (t *WebSearchTool) Search(ctx context.Context, query string, maxResults int) ([]types.Evidence, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty web query")
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{
		"q":             {query},
		"format":        {"json"},
		"no_html":       {"1"},
		"skip_disambig": {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, duckDuckGoBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("web search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search returned HTTP %d", resp.StatusCode)
	}

	var dr duckDuckGoResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("parsing web search response: %w", err)
	}

	var evidence []types.Evidence
	if dr.Abstract != "" {
		title := dr.Heading
		if title == "" {
			title = query
		}
		evidence = append(evidence, webEvidence(title, dr.Abstract, dr.AbstractURL))
	}

	for _, topic := range flattenTopics(dr.RelatedTopics) {
		if len(evidence) >= maxResults {
			break
		}
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		evidence = append(evidence, webEvidence(topicTitle(topic.Text), topic.Text, topic.FirstURL))
	}
	return evidence, nil
}

func webEvidence(title, content, link string) types.Evidence {
	return types.NewEvidence(
		content,
		types.Citation{
			Source: types.SourceWeb,
			Title:  title,
			URL:    link,
			Date:   "n.d.",
		},
		webRelevance,
	)
}

// topicTitle takes the leading sentence of a related-topic blurb as its
// title.
func topicTitle(text string) string {
	if i := strings.Index(text, " - "); i > 0 {
		return text[:i]
	}
	if i := strings.Index(text, ". "); i > 0 {
		return text[:i]
	}
	return types.Truncate(text, 80)
}

// flattenTopics unnests grouped related topics. DuckDuckGo mixes plain
// topics with named groups that hold their own topic lists.
func flattenTopics(topics []duckDuckGoTopic) []duckDuckGoTopic {
	var flat []duckDuckGoTopic
	for _, t := range topics {
		if len(t.Topics) > 0 {
			flat = append(flat, flattenTopics(t.Topics)...)
			continue
		}
		flat = append(flat, t)
	}
	return flat
}

// DuckDuckGo Instant Answer JSON structures.
type duckDuckGoResponse struct {
	Heading       string            `json:"Heading"`
	Abstract      string            `json:"Abstract"`
	AbstractURL   string            `json:"AbstractURL"`
	RelatedTopics []duckDuckGoTopic `json:"RelatedTopics"`
}

type duckDuckGoTopic struct {
	Text     string            `json:"Text"`
	FirstURL string            `json:"FirstURL"`
	Topics   []duckDuckGoTopic `json:"Topics"`
}

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

// E-utilities endpoints. Declared as vars so tests can substitute an
// httptest server.
var (
	pubmedSearchBase  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	pubmedSummaryBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esummary.fcgi"
)

// PubMedTool queries NCBI PubMed through the E-utilities API: esearch for
// matching PMIDs, then esummary for the article metadata.
type PubMedTool struct {
	Client *http.Client
	// APIKey raises the E-utilities rate limit from 3 to 10 req/s.
	APIKey    string
	UserAgent string
}

// Name returns the tool identifier.
func (t *PubMedTool) Name() string { return string(types.SourcePubMed) }

// Search returns evidence for the top PubMed matches.
func (t *PubMedTool) Search(ctx context.Context, query string, maxResults int) ([]types.Evidence, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty PubMed query")
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	ids, err := t.searchIDs(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	summaries, err := t.fetchSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	total := len(ids)
	var evidence []types.Evidence
	for i, id := range ids {
		doc, ok := summaries[id]
		if !ok {
			continue
		}

		var authors []string
		for _, a := range doc.Authors {
			if a.Name != "" {
				authors = append(authors, a.Name)
			}
		}
		if len(authors) > 5 {
			authors = authors[:5]
		}

		content := doc.Title
		if doc.Source != "" {
			content = fmt.Sprintf("%s Published in %s.", doc.Title, doc.Source)
		}

		evidence = append(evidence, types.NewEvidence(
			content,
			types.Citation{
				Source:  types.SourcePubMed,
				Title:   doc.Title,
				URL:     "https://pubmed.ncbi.nlm.nih.gov/" + id + "/",
				Date:    doc.PubDate,
				Authors: authors,
			},
			positionRelevance(i, total),
		))
	}
	return evidence, nil
}

// searchIDs calls esearch and returns the matching PMIDs in rank order.
func (t *PubMedTool) searchIDs(ctx context.Context, query string, maxResults int) ([]string, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {query},
		"retmax":  {fmt.Sprintf("%d", maxResults)},
		"retmode": {"json"},
		"sort":    {"relevance"},
	}
	if t.APIKey != "" {
		params.Set("api_key", t.APIKey)
	}

	var sr pubmedSearchResponse
	if err := t.getJSON(ctx, pubmedSearchBase+"?"+params.Encode(), &sr); err != nil {
		return nil, fmt.Errorf("PubMed esearch: %w", err)
	}
	return sr.ESearchResult.IDList, nil
}

// fetchSummaries calls esummary for the given PMIDs.
func (t *PubMedTool) fetchSummaries(ctx context.Context, ids []string) (map[string]pubmedDocSummary, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids, ",")},
		"retmode": {"json"},
	}
	if t.APIKey != "" {
		params.Set("api_key", t.APIKey)
	}

	var sr pubmedSummaryResponse
	if err := t.getJSON(ctx, pubmedSummaryBase+"?"+params.Encode(), &sr); err != nil {
		return nil, fmt.Errorf("PubMed esummary: %w", err)
	}

	docs := make(map[string]pubmedDocSummary, len(sr.Result.docs))
	for id, doc := range sr.Result.docs {
		docs[id] = doc
	}
	return docs, nil
}

func (t *PubMedTool) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
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
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// positionRelevance scores a result by its rank: APIs return results
// sorted by relevance, so position is the best signal available.
func positionRelevance(i, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(total-1)*0.9
}

// E-utilities JSON structures.
type pubmedSearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// pubmedSummaryResponse holds esummary's result map, which mixes a "uids"
// array with one key per PMID. The custom unmarshaller splits them.
type pubmedSummaryResponse struct {
	Result pubmedSummaryResult `json:"result"`
}

type pubmedSummaryResult struct {
	docs map[string]pubmedDocSummary
}

func (r *pubmedSummaryResult) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.docs = make(map[string]pubmedDocSummary)
	for key, val := range raw {
		if key == "uids" {
			continue
		}
		var doc pubmedDocSummary
		if err := json.Unmarshal(val, &doc); err != nil {
			continue
		}
		r.docs[key] = doc
	}
	return nil
}

type pubmedDocSummary struct {
	UID     string         `json:"uid"`
	Title   string         `json:"title"`
	PubDate string         `json:"pubdate"`
	Source  string         `json:"source"`
	Authors []pubmedAuthor `json:"authors"`
}

type pubmedAuthor struct {
	Name string `json:"name"`
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/biomed-agent/internal/httputil"
	"github.com/pdiddy/biomed-agent/pkg/types"
)

// bioRxivBase is the bioRxiv/medRxiv details endpoint. Declared as a var
// so tests can substitute an httptest server.
var bioRxivBase = "https://api.biorxiv.org/details"

const (
	// defaultPreprintServer is medRxiv: clinical content is the better
	// fit for drug-repurposing questions.
	defaultPreprintServer = "medrxiv"

	// defaultPreprintDays is how far back to fetch.
	defaultPreprintDays = 90

	// preprintRelevance sits below the peer-reviewed defaults.
	preprintRelevance = 0.75
)

// BioRxivTool searches bioRxiv/medRxiv preprints. The API has no keyword
// search, so the tool fetches recent papers for a date interval and
// filters them client-side against the query terms.
type BioRxivTool struct {
	Client    *http.Client
	UserAgent string
	// Server is "biorxiv" or "medrxiv"; empty selects medrxiv.
	Server string
	// Days is the lookback window; zero selects 90.
	Days int
}

// Name returns the tool identifier.
func (t *BioRxivTool) Name() string { return string(types.SourceBioRxiv) }

// Search returns evidence for recent preprints matching the query terms.
func (t *BioRxivTool) Search(ctx context.Context, query string, maxResults int) ([]types.Evidence, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	server := t.Server
	if server == "" {
		server = defaultPreprintServer
	}
	days := t.Days
	if days <= 0 {
		days = defaultPreprintDays
	}

	end := time.Now()
	start := end.AddDate(0, 0, -days)
	reqURL := fmt.Sprintf("%s/%s/%s/%s/0/json",
		bioRxivBase, server, start.Format("2006-01-02"), end.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
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
		return nil, fmt.Errorf("bioRxiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bioRxiv API returned HTTP %d", resp.StatusCode)
	}

	var br bioRxivResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("parsing bioRxiv response: %w", err)
	}

	terms := queryTerms(query)
	matched := filterByKeywords(br.Collection, terms, maxResults)

	evidence := make([]types.Evidence, 0, len(matched))
	for _, p := range matched {
		evidence = append(evidence, preprintToEvidence(p, server))
	}
	return evidence, nil
}

// wordRe tokenizes queries for the client-side keyword filter.
var wordRe = regexp.MustCompile(`\b\w+\b`)

// queryStopWords are skipped during matching.
var queryStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "in": true, "on": true,
	"for": true, "and": true, "or": true, "of": true, "to": true,
}

// queryTerms extracts lowercase search terms, dropping stop words and
// very short tokens.
func queryTerms(query string) []string {
	var terms []string
	for _, w := range wordRe.FindAllString(strings.ToLower(query), -1) {
		if !queryStopWords[w] && len(w) > 2 {
			terms = append(terms, w)
		}
	}
	return terms
}

// filterByKeywords keeps papers whose title or abstract contains at least
// one query term, ranked by how many terms match.
func filterByKeywords(papers []bioRxivPaper, terms []string, maxResults int) []bioRxivPaper {
	type scored struct {
		matches int
		paper   bioRxivPaper
	}
	var hits []scored

	for _, p := range papers {
		text := strings.ToLower(p.Title + " " + p.Abstract)
		matches := 0
		for _, term := range terms {
			if strings.Contains(text, term) {
				matches++
			}
		}
		if matches > 0 {
			hits = append(hits, scored{matches: matches, paper: p})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].matches > hits[j].matches
	})
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}

	out := make([]bioRxivPaper, len(hits))
	for i, h := range hits {
		out[i] = h.paper
	}
	return out
}

// preprintToEvidence converts one preprint record. The content is flagged
// as not peer-reviewed so downstream consumers can weigh it accordingly.
func preprintToEvidence(p bioRxivPaper, server string) types.Evidence {
	link := "https://www." + server + ".org/"
	if p.DOI != "" {
		link = "https://doi.org/" + p.DOI
	}

	// Authors come as "Smith, J; Jones, A".
	var authors []string
	for _, a := range strings.Split(p.Authors, ";") {
		if a = strings.TrimSpace(a); a != "" {
			authors = append(authors, a)
		}
	}
	if len(authors) > 5 {
		authors = authors[:5]
	}

	content := fmt.Sprintf("[PREPRINT - Not peer-reviewed] %s", p.Abstract)
	if p.Category != "" {
		content += " Category: " + p.Category + "."
	}

	return types.NewEvidence(
		content,
		types.Citation{
			Source:  types.SourceBioRxiv,
			Title:   p.Title,
			URL:     link,
			Date:    p.Date,
			Authors: authors,
		},
		preprintRelevance,
	)
}

// bioRxiv details JSON structures.
type bioRxivResponse struct {
	Collection []bioRxivPaper `json:"collection"`
}

type bioRxivPaper struct {
	DOI      string `json:"doi"`
	Title    string `json:"title"`
	Authors  string `json:"authors"`
	Date     string `json:"date"`
	Abstract string `json:"abstract"`
	Category string `json:"category"`
}

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

// europePMCBase is the Europe PMC REST search endpoint. Declared as a var
// so tests can substitute an httptest server.
var europePMCBase = "https://www.ebi.ac.uk/europepmc/webservices/rest/search"

// EuropePMCTool queries the Europe PMC literature database, which indexes
// PubMed plus preprints and European sources.
type EuropePMCTool struct {
	Client    *http.Client
	UserAgent string
}

// Name returns the tool identifier.
func (t *EuropePMCTool) Name() string { return string(types.SourceEuropePMC) }

// Search returns evidence for the top Europe PMC matches.
func (t *EuropePMCTool) Search(ctx context.Context, query string, maxResults int) ([]types.Evidence, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty Europe PMC query")
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{
		"query":      {query},
		"format":     {"json"},
		"resultType": {"core"},
		"pageSize":   {fmt.Sprintf("%d", maxResults)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, europePMCBase+"?"+params.Encode(), nil)
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
		return nil, fmt.Errorf("Europe PMC API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Europe PMC API returned HTTP %d", resp.StatusCode)
	}

	var er europePMCResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("parsing Europe PMC response: %w", err)
	}

	total := len(er.ResultList.Result)
	var evidence []types.Evidence
	for i, r := range er.ResultList.Result {
		if r.Title == "" {
			continue
		}

		content := r.AbstractText
		if content == "" {
			content = r.Title
		}
		// Embed the identifiers so the dedup extractor can see them even
		// when the landing URL is a DOI link.
		if r.PMID != "" {
			content = fmt.Sprintf("PMID: %s. %s", r.PMID, content)
		} else if r.DOI != "" {
			content = fmt.Sprintf("doi:%s. %s", r.DOI, content)
		}

		evidence = append(evidence, types.NewEvidence(
			content,
			types.Citation{
				Source:  types.SourceEuropePMC,
				Title:   r.Title,
				URL:     europePMCLink(r),
				Date:    r.FirstPublicationDate,
				Authors: splitAuthorString(r.AuthorString),
			},
			positionRelevance(i, total),
		))
	}
	return evidence, nil
}

// europePMCLink prefers the PubMed URL (keeps PMIDs visible for dedup),
// then DOI, then the Europe PMC article page.
func europePMCLink(r europePMCResult) string {
	if r.PMID != "" {
		return "https://pubmed.ncbi.nlm.nih.gov/" + r.PMID + "/"
	}
	if r.DOI != "" {
		return "https://doi.org/" + r.DOI
	}
	return "https://europepmc.org/article/" + r.Source + "/" + r.ID
}

// splitAuthorString parses Europe PMC's "Smith J, Jones A." author format.
func splitAuthorString(s string) []string {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var authors []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			authors = append(authors, p)
		}
	}
	if len(authors) > 5 {
		authors = authors[:5]
	}
	return authors
}

// Europe PMC JSON structures.
type europePMCResponse struct {
	ResultList struct {
		Result []europePMCResult `json:"result"`
	} `json:"resultList"`
}

type europePMCResult struct {
	ID                   string `json:"id"`
	Source               string `json:"source"`
	PMID                 string `json:"pmid"`
	DOI                  string `json:"doi"`
	Title                string `json:"title"`
	AuthorString         string `json:"authorString"`
	AbstractText         string `json:"abstractText"`
	FirstPublicationDate string `json:"firstPublicationDate"`
}

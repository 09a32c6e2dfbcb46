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

// clinicalTrialsBase is the ClinicalTrials.gov v2 studies endpoint.
// Declared as a var so tests can substitute an httptest server.
var clinicalTrialsBase = "https://clinicaltrials.gov/api/v2/studies"

// ClinicalTrialsTool queries the ClinicalTrials.gov registry.
type ClinicalTrialsTool struct {
	Client    *http.Client
	UserAgent string
}

// Name returns the tool identifier.
func (t *ClinicalTrialsTool) Name() string { return string(types.SourceClinicalTrials) }

// Search returns evidence for registered trials matching the query.
func (t *ClinicalTrialsTool) Search(ctx context.Context, query string, maxResults int) ([]types.Evidence, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty ClinicalTrials query")
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{
		"query.term": {query},
		"pageSize":   {fmt.Sprintf("%d", maxResults)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, clinicalTrialsBase+"?"+params.Encode(), nil)
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
		return nil, fmt.Errorf("ClinicalTrials API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ClinicalTrials API returned HTTP %d", resp.StatusCode)
	}

	var cr ctgovResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("parsing ClinicalTrials response: %w", err)
	}

	total := len(cr.Studies)
	var evidence []types.Evidence
	for i, study := range cr.Studies {
		ident := study.ProtocolSection.IdentificationModule
		if ident.NCTID == "" {
			continue
		}

		title := ident.BriefTitle
		if title == "" {
			title = ident.OfficialTitle
		}

		status := study.ProtocolSection.StatusModule.OverallStatus
		summary := study.ProtocolSection.DescriptionModule.BriefSummary

		var parts []string
		parts = append(parts, fmt.Sprintf("[%s] Trial %s.", strings.ToUpper(status), ident.NCTID))
		if len(study.ProtocolSection.ConditionsModule.Conditions) > 0 {
			parts = append(parts, "Conditions: "+strings.Join(study.ProtocolSection.ConditionsModule.Conditions, ", ")+".")
		}
		if summary != "" {
			parts = append(parts, summary)
		}

		evidence = append(evidence, types.NewEvidence(
			strings.Join(parts, " "),
			types.Citation{
				Source: types.SourceClinicalTrials,
				Title:  title,
				URL:    "https://clinicaltrials.gov/study/" + ident.NCTID,
				Date:   study.ProtocolSection.StatusModule.StartDateStruct.Date,
			},
			positionRelevance(i, total),
		))
	}
	return evidence, nil
}

// ClinicalTrials.gov v2 JSON structures (the subset used here).
type ctgovResponse struct {
	Studies []ctgovStudy `json:"studies"`
}

type ctgovStudy struct {
	ProtocolSection struct {
		IdentificationModule struct {
			NCTID         string `json:"nctId"`
			BriefTitle    string `json:"briefTitle"`
			OfficialTitle string `json:"officialTitle"`
		} `json:"identificationModule"`
		StatusModule struct {
			OverallStatus   string `json:"overallStatus"`
			StartDateStruct struct {
				Date string `json:"date"`
			} `json:"startDateStruct"`
		} `json:"statusModule"`
		DescriptionModule struct {
			BriefSummary string `json:"briefSummary"`
		} `json:"descriptionModule"`
		ConditionsModule struct {
			Conditions []string `json:"conditions"`
		} `json:"conditionsModule"`
	} `json:"protocolSection"`
}

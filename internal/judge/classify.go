// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package judge decides when accumulated evidence is sufficient to answer
// a research question, and synthesizes the final report. Model access
// failures degrade to deterministic fallbacks rather than aborting a run.
package judge

import (
	"context"
	"errors"
	"net"

	openai "github.com/sashabaranov/go-openai"
)

// ErrorKind partitions model API failures by the recovery they allow.
type ErrorKind int

const (
	// KindTransient failures (rate limits, server errors, network) are
	// worth retrying with backoff.
	KindTransient ErrorKind = iota
	// KindQuota means the account has no model access left. Retrying is
	// pointless; callers switch to the degraded assessment path.
	KindQuota
	// KindFatal covers everything else: bad requests, auth failures,
	// malformed prompts.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindQuota:
		return "quota"
	default:
		return "fatal"
	}
}

// Classify maps a model API error onto its recovery category. Typed API
// errors are inspected for status code and error code; anything reachable
// as a timeout or connection failure counts as transient.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindFatal
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 402 {
			return KindQuota
		}
		if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
			return KindQuota
		}
		switch {
		case apiErr.HTTPStatusCode == 429,
			apiErr.HTTPStatusCode >= 500:
			return KindTransient
		}
		return KindFatal
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == 402 {
			return KindQuota
		}
		if reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500 {
			return KindTransient
		}
		return KindFatal
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}

	return KindFatal
}

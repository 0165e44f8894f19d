package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/byteowlz/kaextract/internal/model"
)

const extractPath = "/api/extract"

// APIBackend calls a kaextract server's /api/extract endpoint. It never
// retries on its own; the orchestrator owns the retry policy.
type APIBackend struct {
	BaseURL string
	client  *resty.Client
}

// NewAPIBackend creates a backend for the server at baseURL
// (e.g. http://localhost:3000).
func NewAPIBackend(baseURL string) *APIBackend {
	baseURL = strings.TrimRight(baseURL, "/")

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetRetryCount(0)
	client.SetHeader("Accept", "application/json")
	client.SetHeader("Cache-Control", "no-cache")
	client.SetHeader("Pragma", "no-cache")

	return &APIBackend{
		BaseURL: baseURL,
		client:  client,
	}
}

// Name returns the backend identifier
func (a *APIBackend) Name() string {
	return "api"
}

func (a *APIBackend) IsAvailable() bool {
	return a.BaseURL != ""
}

// Extract performs one round trip and maps the answer to a Result or to a
// *StatusError / *NetworkError.
func (a *APIBackend) Extract(ctx context.Context, targetURL string) (*model.Result, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("url", targetURL).
		Get(extractPath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("api: %w", ctx.Err())
		}
		return nil, &NetworkError{Backend: a.Name(), Err: err}
	}

	if resp.StatusCode() != http.StatusOK {
		se := &StatusError{Backend: a.Name(), Code: resp.StatusCode()}
		var body model.ErrorResponse
		if json.Unmarshal(resp.Body(), &body) == nil {
			se.Reason = body.Error
			se.Message = body.Message
		}
		return nil, se
	}

	var body model.ExtractResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		// a proxy answering 200 with HTML is as good as unreachable
		return nil, &NetworkError{Backend: a.Name(), Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	result := body.Result(targetURL)
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}
	return &result, nil
}

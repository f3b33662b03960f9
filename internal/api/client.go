// Package api implements the HTTP client for the remote repository-analysis
// and question-generation service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultRateLimit = 10 // requests per second
	defaultBurst     = 5
)

// CredentialSource supplies the caller's credential headers for requests
// that may trigger backend compute. Read-only lookups never consult it.
type CredentialSource interface {
	Credentials() (repoToken, aiKey string)
}

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. "http://localhost:8000/api".
	BaseURL string

	// Timeout bounds each request. Zero means the default.
	Timeout time.Duration

	// RateLimit caps outgoing requests per second. Zero means the default.
	RateLimit float64

	// Credentials is optional; when nil, compute requests are sent without
	// credential headers.
	Credentials CredentialSource

	// Logger is optional.
	Logger *zap.Logger
}

// Client is a typed JSON client for the analysis service. All methods take
// a context and return explicit errors; 202 and 409 are mapped to
// PendingError and a 409 APIError so the orchestrator can branch on them.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	creds      CredentialSource
	logger     *zap.Logger
}

// NewClient creates a Client from cfg.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api base URL required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid api base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(limit), defaultBurst),
		creds:      cfg.Credentials,
		logger:     logger,
	}, nil
}

// GetAnalysis retrieves the analysis by id. A 202 response is returned as a
// *PendingError carrying the backend's detail message.
func (c *Client) GetAnalysis(ctx context.Context, id string) (*AnalysisResult, error) {
	var result AnalysisResult
	if err := c.get(ctx, "/analysis/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetGraph retrieves the dependency graph for an analysis.
func (c *Client) GetGraph(ctx context.Context, id string) (*Graph, error) {
	var graph Graph
	if err := c.get(ctx, "/analysis/"+url.PathEscape(id)+"/graph", nil, &graph); err != nil {
		return nil, err
	}
	return &graph, nil
}

// GetFileTree retrieves a bounded file tree for an analysis.
func (c *Client) GetFileTree(ctx context.Context, id string, maxDepth, maxFiles int) ([]FileTreeNode, error) {
	query := url.Values{}
	if maxDepth > 0 {
		query.Set("max_depth", strconv.Itoa(maxDepth))
	}
	if maxFiles > 0 {
		query.Set("max_files", strconv.Itoa(maxFiles))
	}
	var tree []FileTreeNode
	if err := c.get(ctx, "/analysis/"+url.PathEscape(id)+"/all-files", query, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// GetQuestions looks up existing questions for an analysis.
func (c *Client) GetQuestions(ctx context.Context, id string) (*QuestionSet, error) {
	var set QuestionSet
	if err := c.get(ctx, "/questions/analysis/"+url.PathEscape(id), nil, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

// GenerateQuestions requests question generation. A 409 means an equivalent
// job is already running; callers detect it with IsConflict. This request
// may trigger backend compute, so credential headers are attached.
func (c *Client) GenerateQuestions(ctx context.Context, req GenerateRequest) (*QuestionSet, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generate request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/questions/generate", nil, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.attachCredentials(httpReq)

	var set QuestionSet
	if err := c.do(httpReq, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

// GetRecent retrieves up to limit recent analyses.
func (c *Client) GetRecent(ctx context.Context, limit int) ([]RecentAnalysis, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var resp recentResponse
	if err := c.get(ctx, "/analysis/recent", query, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// get issues a credential-free GET and decodes the response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return req, nil
}

// attachCredentials adds the caller-supplied credential headers when a
// credential source is configured. Empty values are omitted.
func (c *Client) attachCredentials(req *http.Request) {
	if c.creds == nil {
		return
	}
	repoToken, aiKey := c.creds.Credentials()
	if repoToken != "" {
		req.Header.Set("X-Repo-Token", repoToken)
	}
	if aiKey != "" {
		req.Header.Set("X-AI-Key", aiKey)
	}
}

func (c *Client) do(req *http.Request, out interface{}) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("api request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode == http.StatusAccepted {
		var pending pendingResponse
		if err := json.Unmarshal(body, &pending); err != nil {
			return &PendingError{}
		}
		return &PendingError{Detail: pending.Detail}
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

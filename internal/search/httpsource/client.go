// Package httpsource runs searches against the log-search HTTP API.
package httpsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/loupe/internal/core/logging"
	coresearch "github.com/colonyops/loupe/internal/core/search"
	"github.com/colonyops/loupe/internal/search"
)

const (
	detailsPath = "/api/logs/search/details"
	successCode = "0000"
	maxBodyLog  = 512
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client implements search.Source over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// New returns a Client for the API rooted at opts.BaseURL.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		http:    hc,
		log:     logging.Component("httpsource"),
	}
}

// request is the body of a details search. The datasource is implied by the
// module and never sent.
type request struct {
	Module    string   `json:"module"`
	Keywords  []string `json:"keywords,omitempty"`
	WhereSQLs []string `json:"whereSqls,omitempty"`
	StartTime string   `json:"startTime,omitempty"`
	EndTime   string   `json:"endTime,omitempty"`
	TimeRange string   `json:"timeRange,omitempty"`
	PageSize  int      `json:"pageSize"`
	Offset    int      `json:"offset"`
	Fields    []string `json:"fields,omitempty"`
}

type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type details struct {
	Success         bool             `json:"success"`
	ErrorMessage    string           `json:"errorMessage"`
	ExecutionTimeMs int64            `json:"executionTimeMs"`
	Columns         []string         `json:"columns"`
	Rows            []map[string]any `json:"rows"`
	TotalCount      int              `json:"totalCount"`
}

// Search posts p to the details endpoint.
func (c *Client) Search(ctx context.Context, p coresearch.Params) (search.Result, error) {
	body, err := json.Marshal(request{
		Module:    p.Module,
		Keywords:  p.Keywords,
		WhereSQLs: p.WhereSQLs,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
		TimeRange: p.TimeRange,
		PageSize:  p.Limit(),
		Offset:    p.Offset,
		Fields:    p.Fields,
	})
	if err != nil {
		return search.Result{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+detailsPath, bytes.NewReader(body))
	if err != nil {
		return search.Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id := logging.GetFetchID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return search.Result{}, fmt.Errorf("post %s: %w", detailsPath, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return search.Result{}, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debug().Ctx(ctx).Int("status", resp.StatusCode).Str("body", clip(raw)).Msg("search rejected")
		if decodeErr == nil && env.Message != "" {
			return search.Result{}, &search.BackendError{Code: env.Code, Message: env.Message}
		}
		return search.Result{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if decodeErr != nil {
		return search.Result{}, fmt.Errorf("decode response: %w", decodeErr)
	}
	if env.Code != successCode {
		return search.Result{}, &search.BackendError{Code: env.Code, Message: env.Message}
	}

	var d details
	if err := json.Unmarshal(env.Data, &d); err != nil {
		return search.Result{}, fmt.Errorf("decode details: %w", err)
	}
	if !d.Success && d.ErrorMessage != "" {
		return search.Result{}, &search.BackendError{Message: d.ErrorMessage}
	}

	return search.Result{
		Columns:       d.Columns,
		Rows:          d.Rows,
		TotalCount:    d.TotalCount,
		ExecutionTime: time.Duration(d.ExecutionTimeMs) * time.Millisecond,
	}, nil
}

func clip(b []byte) string {
	if len(b) > maxBodyLog {
		return string(b[:maxBodyLog]) + "..."
	}
	return string(b)
}

var _ search.Source = (*Client)(nil)

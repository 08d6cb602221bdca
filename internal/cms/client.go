// Package cms is the HTTP client for the headless content store.
// It covers the four store interfaces the service consumes: query execution,
// transaction history, document-at-revision snapshots, and patch commits.
// No business logic lives here — only wire calls and type mapping.
package cms

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/summitupfitters/slugsvc/internal/domain"
)

// Client talks to one dataset of the content store's HTTP API.
// The zero value is not usable; construct with New.
type Client struct {
	baseURL string
	dataset string
	token   string
	http    *http.Client
}

// New constructs a Client for the given API base URL and dataset.
// token may be empty: queries against a public dataset still work, but the
// transaction history endpoints and patch commits will be unavailable.
func New(baseURL, dataset, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		dataset: dataset,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Transaction is one entry in a document's revision history,
// most-recent-first as returned by Transactions.
type Transaction struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	ResultRev   string    `json:"resultRev"`
	PreviousRev string    `json:"previousRev,omitempty"`
}

// Mutation is one store mutation for Commit. Exactly one field is set.
type Mutation struct {
	Patch *Patch `json:"patch,omitempty"`
}

// Patch is a field-level patch against one document.
// Set overwrites fields; SetIfMissing writes them only when absent, which is
// what makes lazy history initialization idempotent.
type Patch struct {
	ID           string         `json:"id"`
	Set          map[string]any `json:"set,omitempty"`
	SetIfMissing map[string]any `json:"setIfMissing,omitempty"`
}

// Query executes a declarative query with the given parameters and decodes
// the result into into. Parameter values are JSON-encoded and sent as
// $-prefixed query string entries, per the store's convention.
// A null result leaves into untouched.
func (c *Client) Query(ctx context.Context, query string, params map[string]any, into any) error {
	q := url.Values{}
	q.Set("query", query)
	for name, value := range params {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("cms.Client.Query: encode param %s: %w", name, err)
		}
		q.Set("$"+name, string(encoded))
	}

	endpoint := fmt.Sprintf("%s/data/query/%s?%s", c.baseURL, c.dataset, q.Encode())
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("cms.Client.Query: %w", err)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("cms.Client.Query: decode envelope: %w", err)
	}
	if len(envelope.Result) == 0 || bytes.Equal(envelope.Result, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, into); err != nil {
		return fmt.Errorf("cms.Client.Query: decode result: %w", err)
	}
	return nil
}

// Transactions returns up to limit revision-history records for the given
// document, most recent first. The endpoint streams newline-delimited JSON.
//
// Requires a token with history-read permission. A missing token, or a 401 or
// 403 from the store, is reported as domain.ErrHistoryUnavailable so callers
// can degrade gracefully instead of failing the publish pipeline.
func (c *Client) Transactions(ctx context.Context, documentID string, limit int) ([]Transaction, error) {
	if c.token == "" {
		return nil, fmt.Errorf("cms.Client.Transactions: no token configured: %w", domain.ErrHistoryUnavailable)
	}

	endpoint := fmt.Sprintf("%s/data/history/%s/transactions/%s?limit=%s",
		c.baseURL, c.dataset, url.PathEscape(documentID), strconv.Itoa(limit))
	body, err := c.getHistory(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("cms.Client.Transactions: %w", err)
	}

	var txns []Transaction
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var t Transaction
		if err := json.Unmarshal(line, &t); err != nil {
			return nil, fmt.Errorf("cms.Client.Transactions: decode line: %w", err)
		}
		txns = append(txns, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cms.Client.Transactions: read: %w", err)
	}
	return txns, nil
}

// DocumentAtRevision fetches the full snapshot of a document as it existed at
// the given revision and decodes it into into.
// Returns domain.ErrNotFound when the store has no such snapshot, and
// domain.ErrHistoryUnavailable on credential problems (same degradation rule
// as Transactions — this endpoint needs history-read permission too).
func (c *Client) DocumentAtRevision(ctx context.Context, documentID, revision string, into any) error {
	if c.token == "" {
		return fmt.Errorf("cms.Client.DocumentAtRevision: no token configured: %w", domain.ErrHistoryUnavailable)
	}

	endpoint := fmt.Sprintf("%s/data/doc/%s/%s?rev=%s",
		c.baseURL, c.dataset, url.PathEscape(documentID), url.QueryEscape(revision))
	body, err := c.getHistory(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("cms.Client.DocumentAtRevision: %w", err)
	}

	var envelope struct {
		Documents []json.RawMessage `json:"documents"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("cms.Client.DocumentAtRevision: decode envelope: %w", err)
	}
	if len(envelope.Documents) == 0 {
		return fmt.Errorf("cms.Client.DocumentAtRevision: %w", domain.ErrNotFound)
	}
	if err := json.Unmarshal(envelope.Documents[0], into); err != nil {
		return fmt.Errorf("cms.Client.DocumentAtRevision: decode document: %w", err)
	}
	return nil
}

// Commit applies the given mutations in one atomic transaction.
func (c *Client) Commit(ctx context.Context, mutations []Mutation) error {
	payload, err := json.Marshal(map[string]any{"mutations": mutations})
	if err != nil {
		return fmt.Errorf("cms.Client.Commit: encode: %w", err)
	}

	endpoint := fmt.Sprintf("%s/data/mutate/%s", c.baseURL, c.dataset)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("cms.Client.Commit: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cms.Client.Commit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("cms.Client.Commit: %w", statusError(resp))
	}
	return nil
}

// get performs an authorized GET and returns the response body.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	return c.getMapped(ctx, endpoint, false)
}

// getHistory is get for the permission-gated history endpoints: a 401 or 403
// from the store maps to domain.ErrHistoryUnavailable so callers can degrade
// gracefully.
func (c *Client) getHistory(ctx context.Context, endpoint string) ([]byte, error) {
	return c.getMapped(ctx, endpoint, true)
}

func (c *Client) getMapped(ctx context.Context, endpoint string, historyScoped bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	denied := resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden
	switch {
	case denied && historyScoped:
		return nil, fmt.Errorf("%v: %w", statusError(resp), domain.ErrHistoryUnavailable)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, statusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// authorize attaches the bearer token when one is configured.
func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// statusError builds an error from a non-2xx response, including a bounded
// prefix of the body for context.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("store returned %s", resp.Status)
	}
	return fmt.Errorf("store returned %s: %s", resp.Status, msg)
}

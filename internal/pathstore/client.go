// Package pathstore publishes finished summaries to a pathstore key/value
// service so they can be listed and removed per user.
package pathstore

import (
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
)

// Client communicates with the pathstore HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Summary is the record stored for one summarized document.
type Summary struct {
	DocID        string    `json:"doc_id"`
	UserID       string    `json:"user_id"`
	Filename     string    `json:"filename,omitempty"`
	Title        string    `json:"title,omitempty"`
	Style        string    `json:"style"`
	MaxChunkSize int       `json:"max_chunk_size"`
	Chunks       int       `json:"chunks"`
	Calls        int       `json:"calls"`
	ContentHash  string    `json:"content_hash,omitempty"`
	Text         string    `json:"summary"`
	CreatedAt    time.Time `json:"created_at"`
}

// nodeRequest is the body for PUT /kv/{key}.
type nodeRequest struct {
	Value      Summary `json:"value"`
	MemoryType string  `json:"memory_type,omitempty"`
	Source     string  `json:"source,omitempty"`
}

type node struct {
	Key   string  `json:"key_path"`
	Value Summary `json:"value"`
}

func userPrefix(userID string) string {
	return "summaries/users/" + url.PathEscape(userID)
}

func summaryKey(userID, docID string) string {
	return userPrefix(userID) + "/" + url.PathEscape(docID)
}

// PutSummary stores or replaces the summary of s.DocID for s.UserID.
func (c *Client) PutSummary(ctx context.Context, s Summary) error {
	if s.UserID == "" || s.DocID == "" {
		return fmt.Errorf("put summary: user_id and doc_id are required")
	}
	body, err := json.Marshal(nodeRequest{Value: s, MemoryType: "document_summary", Source: "capdigest:" + s.DocID})
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	key := summaryKey(s.UserID, s.DocID)
	resp, err := c.do(ctx, http.MethodPut, "/kv/"+key, body)
	if err != nil {
		return fmt.Errorf("put summary: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError("put summary", key, resp)
	}
	return nil
}

// GetSummary returns the stored summary, or nil when there is none.
func (c *Client) GetSummary(ctx context.Context, userID, docID string) (*Summary, error) {
	key := summaryKey(userID, docID)
	resp, err := c.do(ctx, http.MethodGet, "/kv/"+key, nil)
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("get summary", key, resp)
	}

	var n node
	if err := json.NewDecoder(resp.Body).Decode(&n); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &n.Value, nil
}

// ListSummaries does a prefix scan over the user's summaries.
func (c *Client) ListSummaries(ctx context.Context, userID string, limit int) ([]Summary, error) {
	key := userPrefix(userID)
	path := "/kv/" + key + "/*"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("list summaries", key, resp)
	}

	var result struct {
		Nodes []node `json:"nodes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode summaries: %w", err)
	}
	out := make([]Summary, 0, len(result.Nodes))
	for _, n := range result.Nodes {
		out = append(out, n.Value)
	}
	return out, nil
}

// DeleteSummary removes one stored summary. Deleting a missing summary is
// not an error.
func (c *Client) DeleteSummary(ctx context.Context, userID, docID string) error {
	key := summaryKey(userID, docID)
	resp, err := c.do(ctx, http.MethodDelete, "/kv/"+key, nil)
	if err != nil {
		return fmt.Errorf("delete summary: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return statusError("delete summary", key, resp)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.httpClient.Do(req)
}

func statusError(op, key string, resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%s %s: status %d: %s", op, key, resp.StatusCode, string(respBody))
}

// Close drops idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

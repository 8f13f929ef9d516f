package matchengine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/helpline/faqmatch/internal/domain/matching"
)

// Client performs HTTP requests to the embedding/matching engine service.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a matching engine client. The request deadline is
// enforced by the caller's context; the transport timeout only guards
// against connections that never complete.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("matching engine base url cannot be empty")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		token:      token,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type scoreEntryPayload struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

type scoreRequest struct {
	Text    string              `json:"text"`
	Entries []scoreEntryPayload `json:"entries"`
}

type scoreResponse struct {
	TagScores      []map[string]float64 `json:"tag_scores"`
	SpellCorrected []string             `json:"spell_corrected"`
}

type configureRequest struct {
	Glossary         map[string][]string `json:"custom_wvs"`
	PairwiseEntities map[string]string   `json:"pairwise_triplewise_entities"`
	TagGuidingTypos  []string            `json:"tag_guiding_typos"`
}

type vocabularyResponse struct {
	Found bool `json:"found"`
}

// ScoreEntries implements matching.Engine over HTTP.
func (c *Client) ScoreEntries(ctx context.Context, text string, entries []matching.Entry) (matching.EngineResult, error) {
	req := scoreRequest{Text: text, Entries: make([]scoreEntryPayload, len(entries))}
	for i, entry := range entries {
		req.Entries[i] = scoreEntryPayload{
			ID:    entry.EntryID(),
			Title: entry.EntryTitle(),
			Tags:  entry.EntryTags(),
		}
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/score", req)
	if err != nil {
		return matching.EngineResult{}, err
	}
	var resp scoreResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return matching.EngineResult{}, fmt.Errorf("decode score response: %w", err)
	}
	if len(resp.TagScores) != len(entries) {
		return matching.EngineResult{}, fmt.Errorf("engine returned %d score rows for %d entries", len(resp.TagScores), len(entries))
	}

	result := matching.EngineResult{
		TagScores:      make([][]float64, len(entries)),
		SpellCorrected: resp.SpellCorrected,
	}
	for i, entry := range entries {
		tags := entry.EntryTags()
		row := make([]float64, len(tags))
		for j, tag := range tags {
			row[j] = resp.TagScores[i][tag]
		}
		result.TagScores[i] = row
	}
	return result, nil
}

// Configure implements matching.Engine.
func (c *Client) Configure(ctx context.Context, lc *matching.LanguageContext) error {
	req := configureRequest{}
	if lc != nil {
		req.Glossary = lc.Glossary
		req.PairwiseEntities = lc.PairwiseEntities
		req.TagGuidingTypos = lc.TagGuidingTypos
	}
	_, err := c.doRequest(ctx, http.MethodPut, "/language-context", req)
	return err
}

// HasTerm implements matching.Engine.
func (c *Client) HasTerm(ctx context.Context, term string) (bool, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/vocabulary/"+url.PathEscape(term), nil)
	if err != nil {
		return false, err
	}
	var resp vocabularyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("decode vocabulary response: %w", err)
	}
	return resp.Found, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode engine request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build engine request: %w", err)
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Surface the context deadline so callers can classify timeouts.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("engine request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("engine request failed: status=%d body=%s", resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}

var _ matching.Engine = (*Client)(nil)

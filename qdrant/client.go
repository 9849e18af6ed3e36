package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultUpsertBatch = 128
	defaultSearchLimit = 10

	// maxErrorBodyBytes caps how much of an error response body is carried
	// into an OperationError message.
	maxErrorBodyBytes = 1024

	// maxResponseBytes caps how much of any response body is read.
	maxResponseBytes = 8 << 20
)

// Config locates the Qdrant instance and the collection this client owns.
type Config struct {
	// URL is the Qdrant REST base URL, e.g. "http://localhost:6333".
	URL string

	// Collection is the collection all operations target.
	Collection string

	// APIKey is sent as the api-key header when set.
	APIKey string

	// VectorSize is the embedding dimension the collection must store.
	VectorSize int

	// Timeout bounds every call. Zero means the default.
	Timeout time.Duration

	// UpsertBatch is the number of points per upsert request. Zero means
	// the default.
	UpsertBatch int
}

// Client talks to one Qdrant collection over REST.
type Client struct {
	baseURL     string
	collection  string
	apiKey      string
	vectorSize  int
	timeout     time.Duration
	upsertBatch int
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient validates the config and returns a ready client. It performs no
// network calls; use EnsureCollection or Ready for that.
func NewClient(config Config) (*Client, error) {
	const op = "new_client"
	if config.URL == "" {
		return nil, opErr(op, OperationErrorValidation, "url is required", nil)
	}
	parsed, err := url.Parse(config.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, opErr(op, OperationErrorValidation, fmt.Sprintf("invalid url %q", config.URL), err)
	}
	if config.Collection == "" {
		return nil, opErr(op, OperationErrorValidation, "collection is required", nil)
	}
	if config.VectorSize <= 0 {
		return nil, opErr(op, OperationErrorValidation, "vector size must be positive", nil)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	batch := config.UpsertBatch
	if batch <= 0 {
		batch = defaultUpsertBatch
	}

	return &Client{
		baseURL:     strings.TrimRight(config.URL, "/"),
		collection:  config.Collection,
		apiKey:      config.APIKey,
		vectorSize:  config.VectorSize,
		timeout:     timeout,
		upsertBatch: batch,
		httpClient:  &http.Client{},
		logger:      slog.Default().With("component", "qdrant"),
	}, nil
}

// Collection returns the collection name this client targets.
func (c *Client) Collection() string {
	return c.collection
}

// VectorSize returns the embedding dimension this client enforces.
func (c *Client) VectorSize() int {
	return c.vectorSize
}

// EnsureCollection creates the collection with cosine distance and the
// configured dimension when it does not exist. When it exists, the stored
// dimension must match the configured one.
func (c *Client) EnsureCollection(ctx context.Context) error {
	const op = "ensure_collection"

	size, err := c.collectionSize(ctx, op)
	if err == nil {
		return c.verifySize(op, size)
	}
	var opError *OperationError
	if !errors.As(err, &opError) || opError.StatusCode != http.StatusNotFound {
		return err
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     c.vectorSize,
			"distance": "Cosine",
		},
	}
	if err := c.doJSON(ctx, op, http.MethodPut, c.collectionPath(), body, nil); err != nil {
		return err
	}
	c.logger.Info("created collection",
		"collection", c.collection,
		"vector_size", c.vectorSize)
	return nil
}

// Upsert writes points in batches. Point ids are deterministic, so repeating
// an upsert overwrites rather than duplicates.
func (c *Client) Upsert(ctx context.Context, points []Point) error {
	const op = "upsert"
	if len(points) == 0 {
		return nil
	}
	for i, p := range points {
		if p.ID == "" {
			return opErr(op, OperationErrorValidation, fmt.Sprintf("point %d has no id", i), nil)
		}
		if len(p.Vector) != c.vectorSize {
			return opErr(op, OperationErrorValidation,
				fmt.Sprintf("point %s has dimension %d, expected %d", p.ID, len(p.Vector), c.vectorSize), nil)
		}
	}

	path := c.collectionPath() + "/points?wait=true"
	for start := 0; start < len(points); start += c.upsertBatch {
		end := min(start+c.upsertBatch, len(points))
		batch := make([]map[string]any, 0, end-start)
		for _, p := range points[start:end] {
			batch = append(batch, map[string]any{
				"id":      p.ID,
				"vector":  p.Vector,
				"payload": p.Payload,
			})
		}
		if err := c.doJSON(ctx, op, http.MethodPut, path, map[string]any{"points": batch}, nil); err != nil {
			return err
		}
		c.logger.Debug("upserted points", "count", end-start, "collection", c.collection)
	}
	return nil
}

// Condition is one must-match payload constraint.
type Condition struct {
	Key   string
	Value any
}

// Match builds a payload equality condition.
func Match(key string, value any) Condition {
	return Condition{Key: key, Value: value}
}

// SearchRequest is one similarity query against the collection.
type SearchRequest struct {
	Vector []float32
	Limit  int
	Filter []Condition
}

// Search runs a similarity query and returns hits with payloads, best score
// first.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]ScoredPoint, error) {
	const op = "search"
	if len(req.Vector) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector is empty", nil)
	}
	if len(req.Vector) != c.vectorSize {
		return nil, opErr(op, OperationErrorValidation,
			fmt.Sprintf("query has dimension %d, expected %d", len(req.Vector), c.vectorSize), nil)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	body := map[string]any{
		"vector":       req.Vector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if len(req.Filter) > 0 {
		must := make([]map[string]any, 0, len(req.Filter))
		for _, cond := range req.Filter {
			must = append(must, map[string]any{
				"key":   cond.Key,
				"match": map[string]any{"value": cond.Value},
			})
		}
		body["filter"] = map[string]any{"must": must}
	}

	var raw []struct {
		ID      string         `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	}
	if err := c.doJSON(ctx, op, http.MethodPost, c.collectionPath()+"/points/search", body, &raw); err != nil {
		return nil, err
	}

	hits := make([]ScoredPoint, 0, len(raw))
	for _, r := range raw {
		hits = append(hits, ScoredPoint{ID: r.ID, Score: r.Score, Payload: r.Payload})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	c.logger.Debug("search completed", "hits", len(hits), "limit", limit, "filtered", len(req.Filter) > 0)
	return hits, nil
}

// DeleteByAssetID removes every point whose payload asset_id matches.
func (c *Client) DeleteByAssetID(ctx context.Context, assetID string) error {
	return c.deleteByFilter(ctx, "delete_by_asset", "asset_id", assetID)
}

// DeleteByNotesID removes every point of one notes version set.
func (c *Client) DeleteByNotesID(ctx context.Context, notesID string) error {
	return c.deleteByFilter(ctx, "delete_by_notes", "notes_id", notesID)
}

func (c *Client) deleteByFilter(ctx context.Context, op, key, value string) error {
	if value == "" {
		return opErr(op, OperationErrorValidation, key+" is required", nil)
	}
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": key, "match": map[string]any{"value": value}},
			},
		},
	}
	if err := c.doJSON(ctx, op, http.MethodPost, c.collectionPath()+"/points/delete?wait=true", body, nil); err != nil {
		return err
	}
	c.logger.Debug("deleted points by filter", "key", key, "value", value)
	return nil
}

// Count returns the exact number of points in the collection.
func (c *Client) Count(ctx context.Context) (int64, error) {
	var result struct {
		Count int64 `json:"count"`
	}
	err := c.doJSON(ctx, "count", http.MethodPost, c.collectionPath()+"/points/count",
		map[string]any{"exact": true}, &result)
	if err != nil {
		return 0, err
	}
	return result.Count, nil
}

// Ready reports whether the instance answers its health endpoint and the
// collection exists with a compatible dimension.
func (c *Client) Ready(ctx context.Context) error {
	const op = "ready"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return opErr(op, OperationErrorValidation, "build request", err)
	}
	c.setHeaders(req, false)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyCallError(op, err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorTransportFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    "health check failed",
		}
	}

	size, err := c.collectionSize(ctx, op)
	if err != nil {
		return err
	}
	return c.verifySize(op, size)
}

func (c *Client) collectionPath() string {
	return "/collections/" + url.PathEscape(c.collection)
}

// collectionSize fetches the collection's stored vector dimension. A missing
// collection surfaces as an OperationError with StatusCode 404.
func (c *Client) collectionSize(ctx context.Context, op string) (int, error) {
	var info struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	if err := c.doJSON(ctx, op, http.MethodGet, c.collectionPath(), nil, &info); err != nil {
		return 0, err
	}
	return info.Config.Params.Vectors.Size, nil
}

func (c *Client) verifySize(op string, size int) error {
	if size != 0 && size != c.vectorSize {
		return &OperationError{
			Code:      OperationErrorConfigMismatch,
			Operation: op,
			Message: fmt.Sprintf("collection %q stores %d-dim vectors but %d is configured; recreate the collection to change dimension",
				c.collection, size, c.vectorSize),
		}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, jsonBody bool) {
	if jsonBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
}

// envelope is the standard Qdrant response wrapper.
type envelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

// doJSON runs one request under the client timeout, checks the HTTP status,
// and when result is non-nil unwraps the response envelope into it.
func (c *Client) doJSON(ctx context.Context, op, method, path string, reqBody, result any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if reqBody != nil {
		encoded, err := json.Marshal(reqBody)
		if err != nil {
			return opErr(op, OperationErrorEncodeFailed, "marshal request", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorValidation, "build request", err)
	}
	c.setHeaders(req, reqBody != nil)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyCallError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return classifyCallError(op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    truncateBody(raw),
		}
	}
	if result == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode response envelope", err)
	}
	if msg, failed := envelopeError(env.Status); failed {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}
	if len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode result", err)
	}
	return nil
}

// envelopeError extracts a failure message from the envelope status, which
// is either the string "ok" or an object holding an error message.
func envelopeError(status json.RawMessage) (string, bool) {
	if len(status) == 0 {
		return "", false
	}
	var plain string
	if err := json.Unmarshal(status, &plain); err == nil {
		if plain == "" || strings.EqualFold(plain, "ok") {
			return "", false
		}
		return plain, true
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(status, &obj); err == nil && obj.Error != "" {
		return obj.Error, true
	}
	return "", false
}

func classifyCallError(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return opErr(op, OperationErrorTimeout, "request timed out", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return opErr(op, OperationErrorTimeout, "request timed out", err)
	default:
		return opErr(op, OperationErrorTransportFailed, "request failed", err)
	}
}

func truncateBody(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > maxErrorBodyBytes {
		return s[:maxErrorBodyBytes] + "..."
	}
	return s
}

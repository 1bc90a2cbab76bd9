package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/certia/certia-core/internal/services"
)

// ErrPushRejected marks a mutation the backend refused (a per-item failure,
// not a transport fault). The coordinator keeps the run alive and retries
// the item on a later run.
var ErrPushRejected = errors.New("mutation rejected by remote backend")

// Mutation is one sync queue entry on the wire
type Mutation struct {
	Action   string          `json:"action"`
	Table    string          `json:"table"`
	RecordID string          `json:"record_id"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// PushAck is the backend's acknowledgement of a pushed mutation. RecordID
// carries the id the backend stored the record under, which differs from the
// local id when the backend re-keys client-generated ids.
type PushAck struct {
	RecordID string `json:"record_id"`
}

// RemoteRecord is one entity pulled from the backend
type RemoteRecord struct {
	ID        string          `json:"id"`
	UpdatedAt time.Time       `json:"updated_at"`
	Payload   json.RawMessage `json:"payload"`
}

// RemoteClient is the remote backend collaborator: network-fallible,
// idempotent-retry-safe push and pull per table.
type RemoteClient interface {
	Push(ctx context.Context, mutation Mutation) (*PushAck, error)
	Pull(ctx context.Context, table string, since time.Time) ([]RemoteRecord, error)
}

// HTTPRemoteClient talks to the backend over HTTP with bearer-token auth
type HTTPRemoteClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPRemoteClient creates a remote client for the given base URL
func NewHTTPRemoteClient(baseURL, token string) *HTTPRemoteClient {
	return &HTTPRemoteClient{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Push sends one mutation to the backend
func (c *HTTPRemoteClient) Push(ctx context.Context, mutation Mutation) (*PushAck, error) {
	body, err := json.Marshal(mutation)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mutation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sync/push", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrSyncTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var ack PushAck
		if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode push ack: %w", err)
		}
		if ack.RecordID == "" {
			ack.RecordID = mutation.RecordID
		}
		return &ack, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("%w: %s %s (status %d)", ErrPushRejected, mutation.Action, mutation.Table, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: push returned status %d", services.ErrSyncTransport, resp.StatusCode)
	}
}

// Pull fetches the records of one table changed since the given time; a
// zero time fetches everything.
func (c *HTTPRemoteClient) Pull(ctx context.Context, table string, since time.Time) ([]RemoteRecord, error) {
	q := url.Values{}
	q.Set("table", table)
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sync/pull?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build pull request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrSyncTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: pull %s returned status %d", services.ErrSyncTransport, table, resp.StatusCode)
	}

	var records []RemoteRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode pull response for %s: %w", table, err)
	}
	return records, nil
}

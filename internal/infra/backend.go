package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// TransientError marks a failure worth retrying: the request may never have
// reached the backend, or the backend was temporarily unable to process it.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a rejection that will not change on retry (validation
// failure, business-rule conflict). The queue moves these entries to failed.
type PermanentError struct {
	Status int
	Detail string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("backend rejected with %d: %s", e.Status, e.Detail)
}

// SubmitResult is the backend's acknowledgement of one mutation.
type SubmitResult struct {
	ServerID string `json:"server_id"`
	// Duplicate is true when the idempotency key was already applied — the
	// entry is synced either way.
	Duplicate bool `json:"duplicate"`
}

// RemoteRecord is one reference-data record in a pull page. Data carries the
// entity fields; the puller decodes it per entity type.
type RemoteRecord struct {
	ID        int64           `json:"id"`
	UpdatedAt time.Time       `json:"updated_at"`
	Deleted   bool            `json:"deleted"`
	Data      json.RawMessage `json:"data"`
}

// Page is one slice of an incremental pull.
type Page struct {
	Records []RemoteRecord `json:"records"`
	HasMore bool           `json:"has_more"`
}

// BackendClient talks to the store backend. It only interprets
// success/failure — auth, token refresh and endpoint discovery live outside
// this process.
type BackendClient struct {
	baseURL    string
	deviceID   string
	httpClient *http.Client
}

func NewBackendClient(baseURL, deviceID string, timeout time.Duration) *BackendClient {
	return &BackendClient{
		baseURL:    baseURL,
		deviceID:   deviceID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Submit pushes one queued mutation. The idempotency key travels as a header
// so a re-sent entry after a timeout is deduplicated server-side.
func (c *BackendClient) Submit(ctx context.Context, entityType string, payload []byte, idempotencyKey string) (*SubmitResult, error) {
	endpoint := fmt.Sprintf("%s/v1/sync/%s", c.baseURL, entityType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("backend: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	req.Header.Set("X-Device-ID", c.deviceID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Op: "backend: submit " + entityType, Err: err}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	var result SubmitResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// The backend may have applied the mutation before the response was
		// cut short; retrying is safe because of the idempotency key.
		return nil, &TransientError{Op: "backend: decode submit response", Err: err}
	}
	return &result, nil
}

// FetchPage requests reference records updated after (since, sinceID),
// ordered by (updated_at, id) ascending.
func (c *BackendClient) FetchPage(ctx context.Context, entityType string, since time.Time, sinceID int64, limit int) (*Page, error) {
	q := url.Values{}
	q.Set("since", since.UTC().Format(time.RFC3339Nano))
	q.Set("since_id", strconv.FormatInt(sinceID, 10))
	q.Set("limit", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/v1/sync/%s?%s", c.baseURL, entityType, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("backend: create request: %w", err)
	}
	req.Header.Set("X-Device-ID", c.deviceID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Op: "backend: fetch " + entityType, Err: err}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, &TransientError{Op: "backend: decode page", Err: err}
	}
	return &page, nil
}

// classifyStatus maps HTTP status codes onto the retry taxonomy:
// 2xx ok, 5xx and 429 transient, everything else permanent.
func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return &TransientError{
			Op:  "backend",
			Err: fmt.Errorf("status %d", resp.StatusCode),
		}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &PermanentError{Status: resp.StatusCode, Detail: string(body)}
	}
}

// IsTransient reports whether err should be retried with backoff.
// Unclassified errors count as transient: assuming non-delivery is safe
// because every submission carries an idempotency key.
func IsTransient(err error) bool {
	var pe *PermanentError
	return !errors.As(err, &pe)
}

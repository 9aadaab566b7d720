package infra

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitSuccess(t *testing.T) {
	var gotKey, gotDevice, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		gotDevice = r.Header.Get("X-Device-ID")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"server_id":"srv-77","duplicate":false}`))
	}))
	defer srv.Close()

	c := NewBackendClient(srv.URL, "till-01", 5*time.Second)
	result, err := c.Submit(context.Background(), "sale", []byte(`{}`), "abc123")

	require.NoError(t, err)
	assert.Equal(t, "srv-77", result.ServerID)
	assert.False(t, result.Duplicate)
	assert.Equal(t, "abc123", gotKey)
	assert.Equal(t, "till-01", gotDevice)
	assert.Equal(t, "/v1/sync/sale", gotPath)
}

func TestSubmitDuplicateAck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"server_id":"srv-77","duplicate":true}`))
	}))
	defer srv.Close()

	c := NewBackendClient(srv.URL, "till-01", 5*time.Second)
	result, err := c.Submit(context.Background(), "sale", []byte(`{}`), "abc123")

	require.NoError(t, err)
	assert.True(t, result.Duplicate, "an already-applied key is still a success")
}

func TestSubmitClassifiesServerErrorsAsTransient(t *testing.T) {
	for _, status := range []int{500, 502, 503, http.StatusTooManyRequests} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))
		c := NewBackendClient(srv.URL, "till-01", 5*time.Second)
		_, err := c.Submit(context.Background(), "sale", []byte(`{}`), "k")
		srv.Close()

		require.Error(t, err)
		assert.True(t, IsTransient(err), "status %d must be retryable", status)
	}
}

func TestSubmitClassifiesClientErrorsAsPermanent(t *testing.T) {
	for _, status := range []int{400, 404, 409, 422} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte("no such product"))
		}))
		c := NewBackendClient(srv.URL, "till-01", 5*time.Second)
		_, err := c.Submit(context.Background(), "sale", []byte(`{}`), "k")
		srv.Close()

		require.Error(t, err)
		assert.False(t, IsTransient(err), "status %d must not be retried", status)
		var pe *PermanentError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, status, pe.Status)
		assert.Contains(t, pe.Detail, "no such product")
	}
}

func TestSubmitNetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // nothing listening any more

	c := NewBackendClient(srv.URL, "till-01", time.Second)
	_, err := c.Submit(context.Background(), "sale", []byte(`{}`), "k")

	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestFetchPageSendsCursor(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"since":    r.URL.Query().Get("since"),
			"since_id": r.URL.Query().Get("since_id"),
			"limit":    r.URL.Query().Get("limit"),
		}
		_, _ = w.Write([]byte(`{"records":[{"id":4,"updated_at":"2026-03-01T10:00:00Z","deleted":false,"data":{"name":"yerba"}}],"has_more":true}`))
	}))
	defer srv.Close()

	c := NewBackendClient(srv.URL, "till-01", 5*time.Second)
	since := time.Date(2026, 2, 28, 12, 30, 0, 0, time.UTC)
	page, err := c.FetchPage(context.Background(), "product", since, 17, 200)

	require.NoError(t, err)
	assert.Equal(t, "2026-02-28T12:30:00Z", gotQuery["since"])
	assert.Equal(t, "17", gotQuery["since_id"])
	assert.Equal(t, "200", gotQuery["limit"])
	require.Len(t, page.Records, 1)
	assert.Equal(t, int64(4), page.Records[0].ID)
	assert.True(t, page.HasMore)
}

func TestIsTransientTreatsUnknownErrorsAsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.New("something odd")))
	assert.True(t, IsTransient(&TransientError{Op: "x", Err: errors.New("y")}))
	assert.False(t, IsTransient(&PermanentError{Status: 400}))
}

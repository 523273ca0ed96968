package vault_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vaultmirror/go-vaultmirror/apierror"
	"github.com/vaultmirror/go-vaultmirror/vault"
)

func newTestServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	var flakyHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/vault/":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"files": ["a.md", "sub/"]}`))
		case "/vault/sub/":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"files": ["b.md"]}`))
		case "/vault/a.md":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"content": "alpha", "stat": {"mtime": 1700000000123}}`))
		case "/vault/flaky.md":
			if flakyHits.Add(1) < 3 {
				http.Error(w, "try again", http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"content": "flaky", "stat": {"mtime": 42}}`))
		case "/vault/garbage.md":
			w.Write([]byte("not json"))
		case "/vault/locked.md":
			// Plain-text error body, classified from the status line alone.
			http.Error(w, "document is locked", http.StatusForbidden)
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write(apierror.EncodeError(apierror.New(errors.New("no such document"), http.StatusNotFound)))
		}
	}))
	t.Cleanup(server.Close)
	return server, &flakyHits
}

func TestHTTPStoreListDirectory(t *testing.T) {
	server, _ := newTestServer(t)
	s, err := vault.NewHTTPStore(server.URL)
	require.NoError(t, err)

	entries, err := s.ListDirectory(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, []vault.DirEntry{
		{Name: "a.md", Dir: false},
		{Name: "sub", Dir: true},
	}, entries)

	entries, err = s.ListDirectory(context.Background(), "sub")
	require.NoError(t, err)
	require.Equal(t, []vault.DirEntry{
		{Name: "b.md", Dir: false},
	}, entries)
}

func TestHTTPStoreContent(t *testing.T) {
	server, _ := newTestServer(t)
	s, err := vault.NewHTTPStore(server.URL)
	require.NoError(t, err)

	doc, err := s.Content(context.Background(), "a.md")
	require.NoError(t, err)
	require.Equal(t, "alpha", doc.Content)
	require.Equal(t, int64(1700000000123), doc.Mtime)

	mtime, err := s.Mtime(context.Background(), "a.md")
	require.NoError(t, err)
	require.Equal(t, int64(1700000000123), mtime)
}

func TestHTTPStoreNotFound(t *testing.T) {
	server, _ := newTestServer(t)
	s, err := vault.NewHTTPStore(server.URL)
	require.NoError(t, err)

	// The encoded error body carries both the message and the status.
	_, err = s.Content(context.Background(), "missing.md")
	require.Error(t, err)
	require.True(t, apierror.IsNotFound(err))
	require.Equal(t, "no such document", err.Error())

	_, err = s.ListDirectory(context.Background(), "missing")
	require.Error(t, err)
	require.True(t, apierror.IsNotFound(err))
}

func TestHTTPStorePlainTextError(t *testing.T) {
	server, _ := newTestServer(t)
	s, err := vault.NewHTTPStore(server.URL)
	require.NoError(t, err)

	_, err = s.Content(context.Background(), "locked.md")
	require.Error(t, err)
	require.Equal(t, "document is locked", err.Error())

	var ae *apierror.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, http.StatusForbidden, ae.Status())
}

func TestHTTPStoreMalformedResponse(t *testing.T) {
	server, _ := newTestServer(t)
	s, err := vault.NewHTTPStore(server.URL)
	require.NoError(t, err)

	_, err = s.Content(context.Background(), "garbage.md")
	require.Error(t, err)
	require.True(t, apierror.IsValidation(err))
}

func TestHTTPStoreRetriesTransient(t *testing.T) {
	server, hits := newTestServer(t)
	s, err := vault.NewHTTPStore(server.URL,
		vault.WithRetry(3, time.Millisecond, 5*time.Millisecond))
	require.NoError(t, err)

	doc, err := s.Content(context.Background(), "flaky.md")
	require.NoError(t, err)
	require.Equal(t, "flaky", doc.Content)
	require.Equal(t, int32(3), hits.Load())
}

func TestHTTPStoreNoRetry(t *testing.T) {
	server, hits := newTestServer(t)
	s, err := vault.NewHTTPStore(server.URL, vault.WithRetry(0, 0, 0))
	require.NoError(t, err)

	_, err = s.Content(context.Background(), "flaky.md")
	require.Error(t, err)
	require.True(t, apierror.IsUnavailable(err))
	require.Equal(t, int32(1), hits.Load())
}

func TestHTTPStoreHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"files": []}`))
	}))
	t.Cleanup(server.Close)

	s, err := vault.NewHTTPStore(server.URL, vault.WithHeader("Authorization", "Bearer sekrit"))
	require.NoError(t, err)

	_, err = s.ListDirectory(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "Bearer sekrit", gotAuth)
}

func TestNewHTTPStoreBadURL(t *testing.T) {
	_, err := vault.NewHTTPStore("ftp://example.com")
	require.Error(t, err)

	_, err = vault.NewHTTPStore("://nope")
	require.Error(t, err)
}

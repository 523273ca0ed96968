package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/vaultmirror/go-vaultmirror/apierror"
)

const vaultPath = "vault"

// jsonDocumentMediaType asks the store for document content together with
// its stat block, instead of the raw bytes.
const jsonDocumentMediaType = "application/vnd.vaultmirror.document+json"

// HTTPStore is a Store implementation over a REST vault API.
type HTTPStore struct {
	url    *url.URL
	client *http.Client
	header http.Header
}

var _ Store = (*HTTPStore)(nil)
var _ MetadataStore = (*HTTPStore)(nil)

// NewHTTPStore creates a Store that talks to the vault API rooted at
// baseURL.
func NewHTTPStore(baseURL string, options ...Option) (*HTTPStore, error) {
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("url must have http or https scheme: %s", baseURL)
	}
	u.Path = ""
	u = u.JoinPath(vaultPath)

	return &HTTPStore{
		url:    u,
		client: opts.httpClient(),
		header: opts.header,
	}, nil
}

type listResponse struct {
	Files []string `json:"files"`
}

type statResponse struct {
	Mtime int64 `json:"mtime"`
}

type documentResponse struct {
	Content string       `json:"content"`
	Stat    statResponse `json:"stat"`
}

func (s *HTTPStore) ListDirectory(ctx context.Context, dirpath string) ([]DirEntry, error) {
	u := s.url.JoinPath(strings.Trim(dirpath, "/"), "/")
	body, err := s.get(ctx, u, "application/json")
	if err != nil {
		return nil, err
	}

	var list listResponse
	if err = json.Unmarshal(body, &list); err != nil {
		return nil, apierror.New(fmt.Errorf("cannot decode directory listing: %w", err), http.StatusUnprocessableEntity)
	}

	entries := make([]DirEntry, len(list.Files))
	for i, name := range list.Files {
		dir := strings.HasSuffix(name, "/")
		entries[i] = DirEntry{
			Name: strings.TrimSuffix(name, "/"),
			Dir:  dir,
		}
	}
	return entries, nil
}

func (s *HTTPStore) Content(ctx context.Context, path string) (Document, error) {
	doc, err := s.getDocument(ctx, path)
	if err != nil {
		return Document{}, err
	}
	return Document{
		Content: doc.Content,
		Mtime:   doc.Stat.Mtime,
	}, nil
}

func (s *HTTPStore) Mtime(ctx context.Context, path string) (int64, error) {
	doc, err := s.getDocument(ctx, path)
	if err != nil {
		return 0, err
	}
	return doc.Stat.Mtime, nil
}

func (s *HTTPStore) getDocument(ctx context.Context, path string) (documentResponse, error) {
	u := s.url.JoinPath(strings.Trim(path, "/"))
	body, err := s.get(ctx, u, jsonDocumentMediaType)
	if err != nil {
		return documentResponse{}, err
	}

	var doc documentResponse
	if err = json.Unmarshal(body, &doc); err != nil {
		return documentResponse{}, apierror.New(fmt.Errorf("cannot decode document: %w", err), http.StatusUnprocessableEntity)
	}
	return doc, nil
}

func (s *HTTPStore) get(ctx context.Context, u *url.URL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	for key, vals := range s.header {
		for _, val := range vals {
			req.Header.Add(key, val)
		}
	}
	req.Header.Add("Accept", accept)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		// A store that encodes structured errors sends a JSON body carrying
		// its own status. Otherwise classify by the response status line.
		if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
			derr := apierror.DecodeError(body)
			var ae *apierror.Error
			if errors.As(derr, &ae) {
				return nil, derr
			}
		}
		return nil, apierror.FromResponse(resp.StatusCode, body)
	}
	return body, nil
}

func (s *HTTPStore) String() string {
	return s.url.String()
}

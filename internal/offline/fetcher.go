package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"
)

// Fetcher retrieves an asset from its origin. A response with a non-200
// status is not an error; failing to get any response is.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (Entry, error)
}

// FSFetcher serves assets from a file tree, such as os.DirFS("web").
type FSFetcher struct {
	FS fs.FS
}

func (f FSFetcher) Fetch(ctx context.Context, p string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	name := strings.TrimPrefix(path.Clean("/"+p), "/")
	if name == "" {
		name = "index.html"
	}

	body, err := fs.ReadFile(f.FS, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return Entry{Status: http.StatusNotFound, Header: http.Header{}, Type: TypeBasic}, nil
		}
		return Entry{}, fmt.Errorf("read %s: %w", name, err)
	}

	header := http.Header{}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		header.Set("Content-Type", ct)
	}
	return Entry{Status: http.StatusOK, Header: header, Body: body, Type: TypeBasic}, nil
}

// HTTPFetcher pulls assets from an upstream origin such as a CDN.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, p string) (Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+p, nil)
	if err != nil {
		return Entry{}, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return Entry{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Entry{}, fmt.Errorf("read body: %w", err)
	}
	return Entry{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body, Type: TypeBasic}, nil
}

package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"
)

const (
	defaultFetchTimeout = 30 * time.Second
	maxErrorBodyBytes   = 256
)

// Source opens the raw CSV table.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// NewSource picks an HTTPSource for http(s) locations and a FileSource otherwise.
// Spreadsheet edit links are rewritten to their CSV export form.
func NewSource(location string) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		if export, ok := SheetCSVURL(location); ok {
			location = export
		}
		return NewHTTPSource(location, nil)
	}
	return FileSource(location)
}

type FileSource string

func (f FileSource) Open(context.Context) (io.ReadCloser, error) {
	fh, err := os.Open(string(f))
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	return fh, nil
}

func (f FileSource) String() string { return string(f) }

type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource fetches url with client, or a client with a 30s timeout when nil.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &HTTPSource{url: url, client: client}
}

func (h *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build dataset request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("fetch dataset: status %d: %s", resp.StatusCode, snippet)
	}
	return resp.Body, nil
}

func (h *HTTPSource) String() string { return h.url }

var (
	sheetIDPattern  = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	sheetGIDPattern = regexp.MustCompile(`gid=(\d+)`)
)

// SheetCSVURL converts a Google Sheets link into its CSV export URL. A gid in
// the link selects that tab, otherwise Sheet1 is exported. ok is false for
// links that are not spreadsheets or already point at an export.
func SheetCSVURL(raw string) (export string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil || !strings.HasSuffix(u.Host, "docs.google.com") {
		return "", false
	}
	if strings.Contains(u.Path, "/export") || strings.Contains(u.Path, "/gviz/") {
		return "", false
	}
	m := sheetIDPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return "", false
	}
	base := "https://docs.google.com/spreadsheets/d/" + m[1]
	if g := sheetGIDPattern.FindStringSubmatch(raw); g != nil {
		return base + "/export?format=csv&gid=" + g[1], true
	}
	return base + "/gviz/tq?tqx=out:csv&sheet=Sheet1", true
}

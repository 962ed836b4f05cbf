package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"

	"github.com/fioncat/vbrowse/pathcodec"
	"github.com/fioncat/vbrowse/types"
)

// ListPrefix is the path below the base URL where an HTTP index serves
// listings: GET <base>/api/list/<encoded path> returns a JSON array of
// entries.
const ListPrefix = "api/list"

// HTTPIndex lists folders from a JSON index server and reads files from
// its access URLs.
type HTTPIndex struct {
	base string

	list    *pathcodec.Codec
	content *HTTPContent
	codec   *pathcodec.Codec
}

func NewHTTPIndex(base string, codec *pathcodec.Codec, client *http.Client) *HTTPIndex {
	base = strings.TrimSuffix(base, "/")
	return &HTTPIndex{
		base:    base,
		list:    pathcodec.New(ListPrefix),
		content: NewHTTPContent(base, client),
		codec:   codec,
	}
}

func (p *HTTPIndex) List(ctx context.Context, dir string) ([]*types.Entry, error) {
	dir = pathcodec.Normalize(dir)
	data, err := p.content.Fetch(ctx, p.list.BuildAccessURL(dir))
	if err != nil {
		return nil, fmt.Errorf("http list %q: %w", dir, err)
	}

	var ents []*types.Entry
	err = json.Unmarshal(data, &ents)
	if err != nil {
		return nil, fmt.Errorf("decode listing of %q: %w", dir, err)
	}
	for _, ent := range ents {
		if ent == nil || ent.Name == "" {
			return nil, fmt.Errorf("listing of %q contains an entry without name", dir)
		}
		if ent.Path == "" {
			ent.Path = joinLogical(dir, ent.Name)
		}
		ent.Path = pathcodec.Normalize(ent.Path)
	}
	return ents, nil
}

func (p *HTTPIndex) ReadFile(ctx context.Context, file string) ([]byte, error) {
	return p.content.Fetch(ctx, p.codec.BuildAccessURL(pathcodec.Normalize(file)))
}

// HTTPContent fetches access URLs relative to a base URL. URLs with a
// leading slash are resolved against the site root instead.
type HTTPContent struct {
	base   string
	client *http.Client
}

func NewHTTPContent(base string, client *http.Client) *HTTPContent {
	if client == nil {
		client = newHTTPClient()
	}
	return &HTTPContent{
		base:   strings.TrimSuffix(base, "/"),
		client: client,
	}
}

// Fetch sends url as it is when it is safe on the wire, otherwise its
// delimiters are escaped first.
func (c *HTTPContent) Fetch(ctx context.Context, url string) ([]byte, error) {
	if !pathcodec.ValidRaw(url) {
		url = pathcodec.EscapeRaw(url)
	}
	return c.get(ctx, url)
}

// FetchCandidate sends encoded candidates unchanged and raw candidates with
// only their delimiters escaped, so raw Unicode reaches the server as raw
// bytes and never aliases another file.
func (c *HTTPContent) FetchCandidate(ctx context.Context, candidate pathcodec.Candidate) ([]byte, error) {
	target := candidate.URL
	if candidate.Form != pathcodec.FormEncoded {
		target = pathcodec.EscapeRaw(target)
	}
	return c.get(ctx, target)
}

// get requests target, which must already be a valid request path.
func (c *HTTPContent) get(ctx context.Context, target string) ([]byte, error) {
	base, err := neturl.Parse(c.base)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", c.base, err)
	}

	var requestPath string
	if strings.HasPrefix(target, "/") {
		requestPath = "/" + strings.TrimLeft(target, "/")
	} else {
		requestPath = strings.TrimSuffix(base.EscapedPath(), "/") + "/" + target
	}
	full := base.Scheme + "://" + base.Host + requestPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %q: %w", full, err)
	}
	// Opaque goes on the request line verbatim, net/http would re-escape
	// a Path holding raw Unicode.
	req.URL.Opaque = requestPath
	req.URL.RawQuery = ""

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("request %q: %v: %w", full, err, types.ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("request %q: %s: %w", full, resp.Status, types.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("request %q: %s: %w", full, resp.Status, types.ErrUnavailable)
	}

	data, err := readAll(ctx, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response of %q: %v: %w", full, err, types.ErrUnavailable)
	}
	return data, nil
}

func (c *HTTPContent) Capabilities() types.Capabilities {
	return types.Capabilities{CanFetch: true}
}

type offlineContent struct{}

// NewOfflineContent returns a content provider for environments that cannot
// fetch. Previews check its capabilities and never call Fetch.
func NewOfflineContent() types.ContentProvider {
	return offlineContent{}
}

func (offlineContent) Fetch(ctx context.Context, url string) ([]byte, error) {
	return nil, fmt.Errorf("fetch %q: content fetching is disabled: %w", url, types.ErrUnavailable)
}

func (offlineContent) Capabilities() types.Capabilities {
	return types.Capabilities{CanFetch: false}
}

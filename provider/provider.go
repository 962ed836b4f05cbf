package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/fioncat/vbrowse/pathcodec"
	"github.com/fioncat/vbrowse/types"
	"github.com/hashicorp/go-cleanhttp"
)

const modifiedLayout = "2006-01-02 15:04"

// Checker is implemented by backends that verify the source before the
// first listing, such as resolving a repository's default branch.
type Checker interface {
	Check(ctx context.Context) error
}

// Load creates the backend serving src.
func Load(src *types.Source, cfg *types.Config) (types.Backend, error) {
	switch src.Kind {
	case types.SourceLocal:
		return NewLocal(src.Location)

	case types.SourceArchive:
		return NewArchive(src.Location)

	case types.SourceGithub, types.SourceGitlab:
		token, err := ResolveToken(cfg, src.Repo.Domain)
		if err != nil {
			return nil, err
		}
		if src.Kind == types.SourceGithub {
			return newGithub(src.Repo, token), nil
		}
		prov, err := newGitlab(src.Repo, token)
		if err != nil {
			return nil, fmt.Errorf("init gitlab api: %w", err)
		}
		return prov, nil

	case types.SourceS3:
		return NewS3(context.Background(), src.Bucket, src.Prefix, cfg.S3)

	case types.SourceHTTP:
		return NewHTTPIndex(src.Location, pathcodec.New(cfg.AccessRoot), newHTTPClient()), nil
	}
	return nil, fmt.Errorf("unsupported source kind %q", src.Kind)
}

// LoadContent creates the content provider previews fetch from. An explicit
// content base URL wins, HTTP sources serve their own content, offline mode
// disables fetching and every other source reads through the backend.
func LoadContent(src *types.Source, backend types.Backend, cfg *types.Config) types.ContentProvider {
	switch {
	case cfg.Offline:
		return NewOfflineContent()
	case cfg.ContentBaseURL != "":
		return NewHTTPContent(cfg.ContentBaseURL, newHTTPClient())
	case src.Kind == types.SourceHTTP:
		return NewHTTPContent(src.Location, newHTTPClient())
	}
	return NewBackendContent(backend, pathcodec.New(cfg.AccessRoot))
}

func newHTTPClient() *http.Client {
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = time.Minute
	return client
}

// readAll reads r, stopping at the limit carried by ctx.
func readAll(ctx context.Context, r io.Reader) ([]byte, error) {
	if n := types.ReadLimit(ctx); n > 0 {
		r = io.LimitReader(r, n)
	}
	return io.ReadAll(r)
}

// sortEntries orders folders first, then by name.
func sortEntries(ents []*types.Entry) {
	sort.SliceStable(ents, func(i, j int) bool {
		a, b := ents[i], ents[j]
		if a.IsFolder() != b.IsFolder() {
			return a.IsFolder()
		}
		return a.Name < b.Name
	})
}

package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/fioncat/vbrowse/pathcodec"
	"github.com/fioncat/vbrowse/types"
	"github.com/google/go-github/v56/github"
	"golang.org/x/oauth2"
)

type githubProvider struct {
	repo *types.Repository

	client *github.Client
}

func newGithub(repo *types.Repository, token string) *githubProvider {
	httpCli := newHTTPClient()
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: token,
		})
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpCli)
		httpCli = oauth2.NewClient(ctx, ts)
	}

	client := github.NewClient(httpCli)

	return &githubProvider{
		repo:   repo,
		client: client,
	}
}

func (p *githubProvider) Check(ctx context.Context) error {
	githubRepo, _, err := p.client.Repositories.Get(ctx, p.repo.Owner, p.repo.Name)
	if err != nil {
		return fmt.Errorf("github get repository: %w", convertGithubError(err))
	}
	if p.repo.Ref == "" {
		if githubRepo.DefaultBranch != nil {
			p.repo.Ref = *githubRepo.DefaultBranch
		}
	}
	return nil
}

func (p *githubProvider) List(ctx context.Context, dir string) ([]*types.Entry, error) {
	dir = pathcodec.Normalize(dir)
	fc, dc, _, err := p.client.Repositories.GetContents(ctx, p.repo.Owner, p.repo.Name, repoPath(dir),
		&github.RepositoryContentGetOptions{
			Ref: p.repo.Ref,
		})
	if err != nil {
		return nil, fmt.Errorf("github list %q: %w", dir, convertGithubError(err))
	}
	if fc != nil {
		return nil, fmt.Errorf("%q is a file, not directory: %w", dir, types.ErrNotFound)
	}

	ents := make([]*types.Entry, len(dc))
	for i, content := range dc {
		name := content.GetName()
		if content.GetPath() == "" || name == "" {
			return nil, errors.New("github return entry with empty name or path")
		}

		kind := types.KindFile
		var size int64
		switch content.GetType() {
		case "dir":
			kind = types.KindFolder

		case "file":
			size = int64(content.GetSize())

		case "symlink", "submodule":
			// Shown as files, reading them returns the link target or an error
			// from the API.

		case "":
			return nil, fmt.Errorf("entry type is empty for %q", content.GetPath())

		default:
			return nil, fmt.Errorf("unknown entry type %q for %q", content.GetType(), content.GetPath())
		}

		ents[i] = &types.Entry{
			Name: name,
			Kind: kind,
			Size: size,
			Path: "/" + content.GetPath(),
		}
	}
	sortEntries(ents)

	return ents, nil
}

func (p *githubProvider) ReadFile(ctx context.Context, file string) ([]byte, error) {
	file = pathcodec.Normalize(file)
	reader, resp, err := p.client.Repositories.DownloadContents(ctx, p.repo.Owner, p.repo.Name, repoPath(file),
		&github.RepositoryContentGetOptions{
			Ref: p.repo.Ref,
		})
	if err != nil {
		return nil, fmt.Errorf("github read %q: %w", file, convertGithubError(err))
	}
	defer reader.Close()
	// The download itself is not checked by the client.
	if resp != nil && resp.Response != nil {
		switch code := resp.StatusCode; {
		case code == http.StatusNotFound:
			return nil, fmt.Errorf("github download %q: %s: %w", file, resp.Status, types.ErrNotFound)
		case code < 200 || code > 299:
			return nil, fmt.Errorf("github download %q: %s: %w", file, resp.Status, types.ErrUnavailable)
		}
	}

	data, err := readAll(ctx, reader)
	if err != nil {
		return nil, fmt.Errorf("read content for %q: %w", file, err)
	}

	return data, nil
}

func convertGithubError(err error) error {
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		if respErr.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%v: %w", err, types.ErrNotFound)
		}
		return fmt.Errorf("%v: %w", err, types.ErrUnavailable)
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%v: %w", err, types.ErrUnavailable)
	}
	// DownloadContents reports missing files with a plain error.
	if strings.Contains(err.Error(), "no file named") {
		return fmt.Errorf("%v: %w", err, types.ErrNotFound)
	}
	return err
}

// repoPath converts a logical path into the repository relative form the
// hosting APIs expect, "" for the root.
func repoPath(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	return p
}

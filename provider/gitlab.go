package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fioncat/vbrowse/pathcodec"
	"github.com/fioncat/vbrowse/types"
	"github.com/xanzy/go-gitlab"
)

type gitlabProvider struct {
	repo *types.Repository

	client *gitlab.Client
}

func newGitlab(repo *types.Repository, token string) (*gitlabProvider, error) {
	url := fmt.Sprintf("https://%s/api/v4", repo.Domain)
	client, err := gitlab.NewClient(token,
		gitlab.WithBaseURL(url),
		gitlab.WithHTTPClient(newHTTPClient()),
	)
	if err != nil {
		return nil, err
	}

	return &gitlabProvider{
		repo:   repo,
		client: client,
	}, nil
}

func (p *gitlabProvider) Check(ctx context.Context) error {
	project, _, err := p.client.Projects.GetProject(p.repo.Path(), &gitlab.GetProjectOptions{},
		gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("gitlab get project: %w", convertGitlabError(err))
	}
	if p.repo.Ref == "" {
		p.repo.Ref = project.DefaultBranch
	}

	return nil
}

func (p *gitlabProvider) List(ctx context.Context, dir string) ([]*types.Entry, error) {
	dir = pathcodec.Normalize(dir)
	opts := &gitlab.ListTreeOptions{
		ListOptions: gitlab.ListOptions{PerPage: 100},
		Ref:         &p.repo.Ref,
	}
	if rel := repoPath(dir); rel != "" {
		opts.Path = gitlab.Ptr(rel)
	}

	var nodes []*gitlab.TreeNode
	for {
		page, resp, err := p.client.Repositories.ListTree(p.repo.Path(), opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("gitlab list %q: %w", dir, convertGitlabError(err))
		}
		nodes = append(nodes, page...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	// GitLab answers an unknown path with an empty tree.
	if len(nodes) == 0 && dir != "/" {
		return nil, fmt.Errorf("gitlab list %q: %w", dir, types.ErrNotFound)
	}

	ents := make([]*types.Entry, len(nodes))
	for i, node := range nodes {
		if node.Path == "" || node.Name == "" {
			return nil, errors.New("gitlab return entry with empty name or path")
		}

		kind := types.KindFile
		var size int64
		switch node.Type {
		case "tree":
			kind = types.KindFolder

		case "blob":
			fileMeta, _, err := p.client.RepositoryFiles.GetFileMetaData(p.repo.Path(), node.Path, &gitlab.GetFileMetaDataOptions{
				Ref: &p.repo.Ref,
			}, gitlab.WithContext(ctx))
			if err != nil {
				return nil, fmt.Errorf("get file meta for %q: %w", node.Path, convertGitlabError(err))
			}
			size = int64(fileMeta.Size)
		}

		ents[i] = &types.Entry{
			Name: node.Name,
			Kind: kind,
			Size: size,
			Path: "/" + node.Path,
		}
	}
	sortEntries(ents)

	return ents, nil
}

func (p *gitlabProvider) ReadFile(ctx context.Context, file string) ([]byte, error) {
	file = pathcodec.Normalize(file)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	u := fmt.Sprintf("projects/%s/repository/files/%s/raw",
		gitlab.PathEscape(p.repo.Path()), gitlab.PathEscape(repoPath(file)))
	req, err := p.client.NewRequest(http.MethodGet, u, &gitlab.GetRawFileOptions{
		Ref: &p.repo.Ref,
	}, []gitlab.RequestOptionFunc{gitlab.WithContext(ctx)})
	if err != nil {
		return nil, fmt.Errorf("build gitlab request for %q: %w", file, err)
	}

	buf := &limitBuffer{limit: types.ReadLimit(ctx), full: cancel}
	_, err = p.client.Do(req, buf)
	if err != nil && !errors.Is(err, errLimitReached) {
		return nil, fmt.Errorf("gitlab read %q: %w", file, convertGitlabError(err))
	}
	return buf.buf.Bytes(), nil
}

var errLimitReached = errors.New("read limit reached")

// limitBuffer keeps the first limit bytes written to it, a zero limit keeps
// everything. Once full it calls full and fails further writes.
type limitBuffer struct {
	buf   bytes.Buffer
	limit int64
	full  func()
}

func (b *limitBuffer) Write(data []byte) (int, error) {
	if b.limit <= 0 {
		return b.buf.Write(data)
	}
	room := b.limit - int64(b.buf.Len())
	if int64(len(data)) < room {
		return b.buf.Write(data)
	}
	b.buf.Write(data[:room])
	if b.full != nil {
		b.full()
	}
	return int(room), errLimitReached
}

func convertGitlabError(err error) error {
	var respErr *gitlab.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		if respErr.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%v: %w", err, types.ErrNotFound)
		}
		return fmt.Errorf("%v: %w", err, types.ErrUnavailable)
	}
	return err
}

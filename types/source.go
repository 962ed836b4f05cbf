package types

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	gitparser "github.com/kubescape/go-git-url"
	githubparserv1 "github.com/kubescape/go-git-url/githubparser/v1"
	gitlabparserv1 "github.com/kubescape/go-git-url/gitlabparser/v1"
	giturl "github.com/whilp/git-urls"
)

type SourceKind string

const (
	SourceLocal   SourceKind = "local"
	SourceGithub  SourceKind = "github"
	SourceGitlab  SourceKind = "gitlab"
	SourceS3      SourceKind = "s3"
	SourceArchive SourceKind = "archive"
	SourceHTTP    SourceKind = "http"
)

// Source describes where listings and file contents come from.
type Source struct {
	Kind SourceKind `json:"kind"`

	// Local directory, archive file or HTTP base URL.
	Location string `json:"location,omitempty"`

	Repo *Repository `json:"repo,omitempty"`

	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`
}

func (s *Source) String() string {
	switch s.Kind {
	case SourceGithub, SourceGitlab:
		return s.Repo.String()
	case SourceS3:
		if s.Prefix == "" {
			return "s3://" + s.Bucket
		}
		return fmt.Sprintf("s3://%s/%s", s.Bucket, s.Prefix)
	case SourceArchive:
		return "archive:" + s.Location
	}
	return s.Location
}

var archiveSuffixes = []string{".zip", ".tar", ".tar.gz", ".tgz", ".tar.bz2", ".tar.xz", ".7z", ".rar"}

func isArchiveName(name string) bool {
	name = strings.ToLower(name)
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// ParseSource recognizes the following forms:
//
//	s3://bucket[/prefix]
//	archive:/path/to/file.zip, or a plain path with an archive suffix
//	https://github.com/owner/name[/tree/ref], [git@]domain:owner/name[@ref]
//	http(s)://host/base (a static file server exposing a JSON index)
//	file:///dir, or any other local directory path
func ParseSource(raw string) (*Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("source could not be empty")
	}

	switch {
	case strings.HasPrefix(raw, "s3://"):
		rest := strings.TrimPrefix(raw, "s3://")
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return nil, fmt.Errorf("invalid s3 source %q, bucket is empty", raw)
		}
		return &Source{
			Kind:   SourceS3,
			Bucket: bucket,
			Prefix: strings.Trim(prefix, "/"),
		}, nil

	case strings.HasPrefix(raw, "archive:"):
		location := strings.TrimPrefix(raw, "archive:")
		if location == "" {
			return nil, errors.New("archive source path could not be empty")
		}
		return &Source{Kind: SourceArchive, Location: location}, nil

	case strings.HasPrefix(raw, "file://"):
		return &Source{Kind: SourceLocal, Location: strings.TrimPrefix(raw, "file://")}, nil

	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		if !isRepositoryURL(raw) {
			return &Source{Kind: SourceHTTP, Location: strings.TrimRight(raw, "/")}, nil
		}
		return parseRepositorySource(raw)

	case repoSshUrlRegex.MatchString(raw) && !filepath.IsAbs(raw) && !strings.HasPrefix(raw, "."):
		return parseRepositorySource(raw)
	}

	if isArchiveName(raw) {
		return &Source{Kind: SourceArchive, Location: raw}, nil
	}
	return &Source{Kind: SourceLocal, Location: raw}, nil
}

func isRepositoryURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if githubparserv1.IsHostGitHub(u.Hostname()) {
		return true
	}
	if strings.HasPrefix(u.Hostname(), "gitlab.") {
		return true
	}
	return strings.HasSuffix(u.Path, ".git") || strings.Contains(u.Path, "/-/")
}

func parseRepositorySource(raw string) (*Source, error) {
	repo, err := ParseRepository(raw)
	if err != nil {
		return nil, err
	}
	kind := SourceGitlab
	if repo.IsGithub() {
		kind = SourceGithub
	}
	return &Source{Kind: kind, Repo: repo}, nil
}

// Repository is a git hosted tree browsed through the GitHub or GitLab API.
type Repository struct {
	Domain string `json:"domain"`

	Owner string `json:"owner"`
	Name  string `json:"name"`

	Ref string `json:"ref"`
}

func (r *Repository) String() string {
	base := fmt.Sprintf("%s:%s/%s", r.Domain, r.Owner, r.Name)
	if r.Ref != "" {
		return fmt.Sprintf("%s@%s", base, r.Ref)
	}
	return base
}

func (r *Repository) IsGithub() bool {
	return githubparserv1.IsHostGitHub(r.Domain)
}

func (r *Repository) Path() string {
	return path.Join(r.Owner, r.Name)
}

func (r *Repository) Validate() error {
	switch {
	case r.Domain == "":
		return errors.New("invalid repo, domain is empty")
	case r.Owner == "":
		return errors.New("invalid repo, owner is empty")
	case r.Name == "":
		return errors.New("invalid repo, name is empty")
	}
	return nil
}

var repoSshUrlRegex = regexp.MustCompile(`^(git@)?([^:/]+\.[^:/]+):([^@]+)(@.*)?$`)

func ParseRepository(raw string) (*Repository, error) {
	var ref string
	if !strings.HasPrefix(raw, "http") {
		matches := repoSshUrlRegex.FindStringSubmatch(raw)
		if len(matches) != 5 {
			return nil, errors.New("invalid ssh clone url, the format is: '[git@]<domain>:<repo-path>[@ref]'")
		}

		ref = strings.TrimSpace(strings.TrimPrefix(matches[4], "@"))
	}

	gitUrl, err := giturl.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse repo url: %w", err)
	}

	var parsed gitparser.IGitURL
	if githubparserv1.IsHostGitHub(gitUrl.Host) {
		parsed, err = githubparserv1.NewGitHubParserWithURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse github url: %w", err)
		}
	} else {
		parsed, err = gitlabparserv1.NewGitLabParserWithURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse gitlab url: %w", err)
		}
	}

	if ref == "" {
		ref = path.Join(parsed.GetBranchName(), parsed.GetPath())
	}

	repo := &Repository{
		Domain: gitUrl.Hostname(),
		Owner:  parsed.GetOwnerName(),
		Name:   parsed.GetRepoName(),
		Ref:    ref,
	}
	err = repo.Validate()
	return repo, err
}

package preview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/fioncat/vbrowse/classify"
	"github.com/fioncat/vbrowse/pathcodec"
	"github.com/fioncat/vbrowse/types"
)

type testContent struct {
	mu sync.Mutex

	files map[string][]byte

	// hang lists URLs that only return once ctx is done.
	hang map[string]bool

	block   chan struct{}
	started chan string

	offline bool

	calls  []string
	limits []int64
}

func (c *testContent) Fetch(ctx context.Context, url string) ([]byte, error) {
	c.mu.Lock()
	c.calls = append(c.calls, url)
	c.limits = append(c.limits, types.ReadLimit(ctx))
	block, started := c.block, c.started
	hang := c.hang[url]
	data, ok := c.files[url]
	c.mu.Unlock()

	if started != nil {
		started <- url
	}
	if block != nil {
		<-block
	}
	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if !ok {
		return nil, fmt.Errorf("fetch %q: %w", url, types.ErrNotFound)
	}
	if limit := types.ReadLimit(ctx); limit > 0 && int64(len(data)) > limit {
		data = data[:limit]
	}
	return data, nil
}

func (c *testContent) Capabilities() types.Capabilities {
	return types.Capabilities{CanFetch: !c.offline}
}

func (c *testContent) getCalls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type testNavigator struct {
	paths []string
}

func (n *testNavigator) Navigate(ctx context.Context, p string) bool {
	n.paths = append(n.paths, p)
	return true
}

func TestOpenFolder(t *testing.T) {
	nav := &testNavigator{}
	content := &testContent{}
	r := NewResolver(nav, content, pathcodec.New("download"))

	plan, err := r.Open(context.Background(), &types.Entry{
		Name: "马主义哲学入门研读资料",
		Kind: types.KindFolder,
		Path: "/马主义哲学入门研读资料",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !plan.Navigated || plan.Kind != classify.Folder || plan.Strategy != StrategyNone {
		t.Fatalf("Unexpect folder plan %+v", plan)
	}
	if len(nav.paths) != 1 || nav.paths[0] != "/马主义哲学入门研读资料" {
		t.Fatalf("Unexpect navigations %q", nav.paths)
	}
	if len(content.getCalls()) != 0 {
		t.Fatal("Opening a folder should not fetch content")
	}
	if _, ok := r.Current(); ok {
		t.Fatal("Opening a folder should not leave a preview")
	}
}

func TestOpenTextCandidateFallback(t *testing.T) {
	codec := pathcodec.New("download")
	candidates := codec.CandidateURLs("/更新说明.txt")

	content := &testContent{
		files: map[string][]byte{
			// Only the raw form is served
			candidates[1]: []byte("更新说明\n\n版本: v1.0.1"),
		},
	}
	r := NewResolver(nil, content, codec)

	plan, err := r.Open(context.Background(), &types.Entry{Name: "更新说明.txt", Kind: types.KindFile, Path: "/更新说明.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if plan.Strategy != StrategyInlineText {
		t.Fatalf("Unexpect strategy %v", plan.Strategy)
	}
	if plan.Content != "更新说明\n\n版本: v1.0.1" || plan.Placeholder != "" {
		t.Fatalf("Unexpect plan content %q, placeholder %q", plan.Content, plan.Placeholder)
	}
	if plan.FetchedFrom != candidates[1] {
		t.Fatalf("Unexpect fetched url %q", plan.FetchedFrom)
	}

	calls := content.getCalls()
	if len(calls) != 2 || calls[0] != candidates[0] || calls[1] != candidates[1] {
		t.Fatalf("Unexpect fetch calls %q", calls)
	}

	if len(plan.Actions) != 2 {
		t.Fatalf("Unexpect actions %+v", plan.Actions)
	}
	for _, action := range plan.Actions {
		if action.URL != codec.BuildAccessURL("/更新说明.txt") {
			t.Fatalf("Unexpect action url %q", action.URL)
		}
	}

	cur, ok := r.Current()
	if !ok || cur != plan {
		t.Fatal("Expect plan to be the current preview")
	}
}

func TestOpenTextAllCandidatesFail(t *testing.T) {
	content := &testContent{}
	r := NewResolver(nil, content, pathcodec.New("download"))

	plan, err := r.Open(context.Background(), &types.Entry{Name: "missing.txt", Kind: types.KindFile, Path: "/missing.txt"})
	if err != nil {
		t.Fatalf("Content failures should not be returned, got %v", err)
	}
	if plan.Placeholder != UnavailablePlaceholder || plan.Content != "" {
		t.Fatalf("Unexpect plan %+v", plan)
	}
	if len(content.getCalls()) != 3 {
		t.Fatalf("Expect all 3 candidates to be tried, got %q", content.getCalls())
	}
	if len(plan.Actions) != 2 {
		t.Fatal("Failed previews should still offer actions")
	}
}

func TestOpenTextCandidateTimeout(t *testing.T) {
	codec := pathcodec.New("download")
	candidates := codec.CandidateURLs("/slow.md")

	content := &testContent{
		files: map[string][]byte{
			candidates[1]: []byte("# Title\n\nbody"),
		},
		hang: map[string]bool{candidates[0]: true},
	}
	r := NewResolver(nil, content, codec, WithCandidateTimeout(20*time.Millisecond))

	plan, err := r.Open(context.Background(), &types.Entry{Name: "slow.md", Kind: types.KindFile, Path: "/slow.md"})
	if err != nil {
		t.Fatal(err)
	}
	if plan.FetchedFrom != candidates[1] {
		t.Fatalf("Expect fallback after timeout, got %q", plan.FetchedFrom)
	}
	if !strings.Contains(plan.HTML, "<h1") || !strings.Contains(plan.HTML, "Title") {
		t.Fatalf("Expect markdown to be rendered, got %q", plan.HTML)
	}
}

func TestOpenOffline(t *testing.T) {
	content := &testContent{offline: true}
	r := NewResolver(nil, content, pathcodec.New("download"))

	plan, err := r.Open(context.Background(), &types.Entry{Name: "readme.TXT", Kind: types.KindFile, Path: "/readme.TXT"})
	if err != nil {
		t.Fatal(err)
	}
	if plan.Placeholder != OfflinePlaceholder {
		t.Fatalf("Unexpect placeholder %q", plan.Placeholder)
	}
	if len(content.getCalls()) != 0 {
		t.Fatal("Offline previews should not fetch")
	}
}

func TestOpenNonText(t *testing.T) {
	content := &testContent{}
	codec := pathcodec.New("download")
	r := NewResolver(nil, content, codec)

	testCases := []struct {
		name     string
		strategy Strategy
		kind     classify.Kind
		hasHint  bool
	}{
		{name: "封面.png", strategy: StrategyInlineImage, kind: classify.Image},
		{name: "马克思主义基本原理.pdf", strategy: StrategyExternalOnly, kind: classify.PDF, hasHint: true},
		{name: "哲学笔记.docx", strategy: StrategyExternalOnly, kind: classify.Document, hasHint: true},
		{name: "资料.zip", strategy: StrategyExternalOnly, kind: classify.Archive, hasHint: true},
		{name: "noext", strategy: StrategyExternalOnly, kind: classify.Other, hasHint: true},
	}

	for _, tc := range testCases {
		p := "/" + tc.name
		plan, err := r.Open(context.Background(), &types.Entry{Name: tc.name, Kind: types.KindFile, Path: p})
		if err != nil {
			t.Fatal(err)
		}
		if plan.Strategy != tc.strategy || plan.Kind != tc.kind {
			t.Fatalf("Unexpect plan for %q: %v %v", tc.name, plan.Strategy, plan.Kind)
		}
		if (plan.Placeholder != "") != tc.hasHint {
			t.Fatalf("Unexpect placeholder for %q: %q", tc.name, plan.Placeholder)
		}
		if plan.AccessURL != codec.BuildAccessURL(p) {
			t.Fatalf("Unexpect access url %q", plan.AccessURL)
		}
		if len(plan.Actions) != 2 {
			t.Fatalf("Unexpect actions for %q", tc.name)
		}
	}
	if len(content.getCalls()) != 0 {
		t.Fatalf("Non text previews should not fetch, got %q", content.getCalls())
	}
}

func TestOpenDiscardedOnClose(t *testing.T) {
	content := &testContent{
		files: map[string][]byte{
			"download/a.txt": []byte("a"),
		},
		block:   make(chan struct{}),
		started: make(chan string, 1),
	}
	r := NewResolver(nil, content, pathcodec.New("download"))

	type result struct {
		plan *Plan
		err  error
	}
	done := make(chan result)
	go func() {
		plan, err := r.Open(context.Background(), &types.Entry{Name: "a.txt", Kind: types.KindFile, Path: "/a.txt"})
		done <- result{plan: plan, err: err}
	}()

	<-content.started
	r.Close()
	close(content.block)

	res := <-done
	if !errors.Is(res.err, ErrDiscarded) {
		t.Fatalf("Expect discarded, got plan %+v, err %v", res.plan, res.err)
	}
	if _, ok := r.Current(); ok {
		t.Fatal("Closed preview should not be current")
	}
}

func TestOpenDiscardedOnRetarget(t *testing.T) {
	content := &testContent{
		files: map[string][]byte{
			"download/a.txt": []byte("a"),
		},
		block:   make(chan struct{}),
		started: make(chan string, 1),
	}
	r := NewResolver(nil, content, pathcodec.New("download"))

	done := make(chan error)
	go func() {
		_, err := r.Open(context.Background(), &types.Entry{Name: "a.txt", Kind: types.KindFile, Path: "/a.txt"})
		done <- err
	}()
	<-content.started

	// Images do not fetch, so this returns while the text fetch is blocked
	img, err := r.Open(context.Background(), &types.Entry{Name: "b.png", Kind: types.KindFile, Path: "/b.png"})
	if err != nil {
		t.Fatal(err)
	}
	close(content.block)

	if err := <-done; !errors.Is(err, ErrDiscarded) {
		t.Fatalf("Expect discarded, got %v", err)
	}
	cur, ok := r.Current()
	if !ok || cur != img {
		t.Fatalf("Expect image preview to stay current, got %+v", cur)
	}
}

func TestOpenTruncate(t *testing.T) {
	content := &testContent{
		files: map[string][]byte{
			"download/big.txt": []byte("哲学哲学"),
		},
	}
	r := NewResolver(nil, content, pathcodec.New("download"), WithMaxTextBytes(7))

	plan, err := r.Open(context.Background(), &types.Entry{Name: "big.txt", Kind: types.KindFile, Path: "/big.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if plan.Content != "哲学" || !plan.Truncated {
		t.Fatalf("Unexpect truncated content %q, %v", plan.Content, plan.Truncated)
	}
}

func TestOpenMarkdownDisabled(t *testing.T) {
	content := &testContent{
		files: map[string][]byte{
			"download/README.md": []byte("# Title"),
		},
	}
	r := NewResolver(nil, content, pathcodec.New("download"), WithMarkdown(false))

	plan, err := r.Open(context.Background(), &types.Entry{Name: "README.md", Kind: types.KindFile, Path: "/README.md"})
	if err != nil {
		t.Fatal(err)
	}
	if plan.Content != "# Title" || plan.HTML != "" {
		t.Fatalf("Unexpect plan %+v", plan)
	}
}

func TestOpenNil(t *testing.T) {
	r := NewResolver(nil, &testContent{}, nil)
	_, err := r.Open(context.Background(), nil)
	if err == nil {
		t.Fatal("Expect error for nil entry")
	}
}

// pathContent serves files by logical path, the way backend content does.
type pathContent struct {
	files map[string]string

	candidates []pathcodec.Candidate
}

func (c *pathContent) Fetch(ctx context.Context, url string) ([]byte, error) {
	return nil, errors.New("fetch by url should not be used")
}

func (c *pathContent) FetchCandidate(ctx context.Context, candidate pathcodec.Candidate) ([]byte, error) {
	c.candidates = append(c.candidates, candidate)
	data, ok := c.files[candidate.Path]
	if !ok {
		return nil, fmt.Errorf("read %q: %w", candidate.Path, types.ErrNotFound)
	}
	return []byte(data), nil
}

func TestOpenCandidateFetcher(t *testing.T) {
	content := &pathContent{
		files: map[string]string{
			"/aA.txt":      "other file",
			"/notes":       "other file",
			"/notes#1.txt": "notes",
			"/100%.txt":    "percent",
			"/文件 名.txt":    "raw",
		},
	}
	codec := pathcodec.New("download")
	r := NewResolver(nil, content, codec)
	ctx := context.Background()

	testCases := []struct {
		path    string
		content string
	}{
		{path: "/notes#1.txt", content: "notes"},
		{path: "/100%.txt", content: "percent"},
		{path: "/文件 名.txt", content: "raw"},
		// Percent-looking names are never decoded into another file
		{path: "/a%41.txt"},
	}
	for _, tc := range testCases {
		content.candidates = nil
		plan, err := r.Open(ctx, &types.Entry{Name: strings.TrimPrefix(tc.path, "/"), Kind: types.KindFile, Path: tc.path})
		if err != nil {
			t.Fatal(err)
		}
		if tc.content == "" {
			if plan.Placeholder != UnavailablePlaceholder || plan.Content != "" {
				t.Fatalf("Expect unavailable placeholder for %q, got %+v", tc.path, plan)
			}
			if len(content.candidates) != 3 {
				t.Fatalf("Expect every candidate of %q to be tried, got %d", tc.path, len(content.candidates))
			}
		} else if plan.Content != tc.content {
			t.Fatalf("Unexpect content %q for %q, expect %q", plan.Content, tc.path, tc.content)
		}
		for _, candidate := range content.candidates {
			if candidate.Path != tc.path {
				t.Fatalf("Candidate %q of %q stands for %q", candidate.URL, tc.path, candidate.Path)
			}
		}
	}
}

func TestOpenReadLimit(t *testing.T) {
	full := strings.Repeat("唯物论", 100)
	content := &testContent{
		files: map[string][]byte{
			"download/long.txt": []byte(full),
		},
	}
	r := NewResolver(nil, content, pathcodec.New("download"), WithMaxTextBytes(16))

	plan, err := r.Open(context.Background(), &types.Entry{Name: "long.txt", Kind: types.KindFile, Path: "/long.txt"})
	if err != nil {
		t.Fatal(err)
	}
	calls := content.getCalls()
	if len(calls) != 1 || content.limits[0] != 16+utf8.UTFMax {
		t.Fatalf("Expect one fetch bounded to %d bytes, got %q %v", 16+utf8.UTFMax, calls, content.limits)
	}
	// The bounded read ends inside a rune, it must still decode as UTF-8.
	if plan.Content != "唯物论唯物" || !plan.Truncated {
		t.Fatalf("Unexpect content %q, truncated %v", plan.Content, plan.Truncated)
	}
}

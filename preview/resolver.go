// Package preview decides how an opened entry is shown and loads the
// content of inline text previews.
package preview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fioncat/vbrowse/classify"
	"github.com/fioncat/vbrowse/pathcodec"
	"github.com/fioncat/vbrowse/types"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
)

// ErrDiscarded is returned by Open when the preview was closed or opened
// for another entry before its content arrived.
var ErrDiscarded = errors.New("preview discarded")

const (
	DefaultCandidateTimeout = 5 * time.Second
	DefaultMaxTextBytes     = 1 << 20
)

// Navigator is the part of the navigation session that opening a folder
// needs.
type Navigator interface {
	Navigate(ctx context.Context, p string) bool
}

type Resolver struct {
	nav     Navigator
	content types.ContentProvider
	codec   *pathcodec.Codec

	candidateTimeout time.Duration
	maxTextBytes     int

	markdown goldmark.Markdown

	logger *logrus.Entry

	mu sync.Mutex

	// seq identifies the preview currently shown. Open and Close bump it so
	// that in-flight fetches of an older preview can tell they are stale.
	seq     uint64
	current *Plan
}

type Option func(r *Resolver)

func WithCandidateTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		r.candidateTimeout = d
	}
}

func WithMaxTextBytes(n int) Option {
	return func(r *Resolver) {
		r.maxTextBytes = n
	}
}

func WithMarkdown(enable bool) Option {
	return func(r *Resolver) {
		if enable {
			r.markdown = newMarkdownRenderer()
		} else {
			r.markdown = nil
		}
	}
}

func WithLogger(logger *logrus.Entry) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func NewResolver(nav Navigator, content types.ContentProvider, codec *pathcodec.Codec, opts ...Option) *Resolver {
	r := &Resolver{
		nav:     nav,
		content: content,
		codec:   codec,

		candidateTimeout: DefaultCandidateTimeout,
		maxTextBytes:     DefaultMaxTextBytes,

		markdown: newMarkdownRenderer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.codec == nil {
		r.codec = pathcodec.New(pathcodec.DefaultRoot)
	}
	if r.logger == nil {
		r.logger = logrus.WithField("Component", "preview")
	}
	return r
}

// Open resolves the preview of ent. Folders are handed to the navigator and
// the returned plan only records that. Content failures never surface as
// errors; they turn into a placeholder on the plan.
func (r *Resolver) Open(ctx context.Context, ent *types.Entry) (*Plan, error) {
	if ent == nil {
		return nil, errors.New("open preview: nil entry")
	}

	kind := classify.ClassifyEntry(ent)
	if kind == classify.Folder {
		r.Close()
		navigated := r.nav != nil && r.nav.Navigate(ctx, ent.Path)
		return &Plan{
			Entry:     ent,
			Kind:      kind,
			Strategy:  StrategyNone,
			Navigated: navigated,
		}, nil
	}

	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.current = nil
	r.mu.Unlock()

	accessURL := r.codec.BuildAccessURL(ent.Path)
	plan := &Plan{
		Entry:     ent,
		Kind:      kind,
		Strategy:  StrategyFor(kind),
		AccessURL: accessURL,
		Actions:   fileActions(accessURL),
	}

	logger := r.logger.WithFields(logrus.Fields{
		"Path":     ent.Path,
		"Strategy": plan.Strategy.String(),
	})

	switch plan.Strategy {
	case StrategyInlineText:
		r.loadText(ctx, plan, logger)

	case StrategyInlineImage:
		// The presentation layer loads the image from the access URL itself.

	default:
		if kind == classify.PDF {
			plan.Placeholder = pdfPlaceholder
		} else {
			plan.Placeholder = kindPlaceholder(kind)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.seq {
		logger.Debug("Discard stale preview")
		return nil, ErrDiscarded
	}
	r.current = plan
	return plan, nil
}

func (r *Resolver) loadText(ctx context.Context, plan *Plan, logger *logrus.Entry) {
	if !canFetch(r.content) {
		logger.Debug("Content provider cannot fetch, use offline placeholder")
		plan.Placeholder = OfflinePlaceholder
		return
	}

	data, url, err := r.fetch(ctx, plan.Entry.Path, logger)
	if err != nil {
		logger.Warnf("Fetch content error: %v", err)
		plan.Placeholder = UnavailablePlaceholder
		return
	}
	plan.FetchedFrom = url

	if limit := r.readLimit(); limit > 0 && int64(len(data)) >= limit {
		data = trimCutRune(data)
	}
	text, err := DecodeText(data)
	if err != nil {
		logger.Warnf("Decode content error: %v", err)
		plan.Placeholder = UnavailablePlaceholder
		return
	}
	plan.Content, plan.Truncated = TruncateText(text, r.maxTextBytes)

	if r.markdown != nil && classify.IsMarkdown(plan.Entry.Name) {
		html, err := RenderMarkdown(r.markdown, plan.Content)
		if err != nil {
			logger.Warnf("Render markdown error: %v", err)
			return
		}
		plan.HTML = html
	}
}

// fetch tries every candidate of p in order and returns the first
// successful body together with the URL that produced it.
func (r *Resolver) fetch(ctx context.Context, p string, logger *logrus.Entry) ([]byte, string, error) {
	candidates := r.codec.Candidates(p)
	var lastErr error
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		start := time.Now()
		data, err := r.fetchOne(ctx, candidate)
		if err != nil {
			logger.Debugf("Fetch %s candidate %q failed after %v: %v", candidate.Form, candidate.URL, time.Since(start), err)
			lastErr = err
			continue
		}
		logger.Debugf("Fetch %s candidate %q done, with %d bytes, took %v", candidate.Form, candidate.URL, len(data), time.Since(start))
		return data, candidate.URL, nil
	}
	return nil, "", fmt.Errorf("all %d candidates failed, last error: %w", len(candidates), lastErr)
}

func (r *Resolver) fetchOne(ctx context.Context, candidate pathcodec.Candidate) ([]byte, error) {
	if r.candidateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.candidateTimeout)
		defer cancel()
	}
	if limit := r.readLimit(); limit > 0 {
		ctx = types.WithReadLimit(ctx, limit)
	}
	if fetcher, ok := r.content.(types.CandidateFetcher); ok {
		return fetcher.FetchCandidate(ctx, candidate)
	}
	return r.content.Fetch(ctx, candidate.URL)
}

// readLimit is how much of a file text previews read. The extra rune lets
// TruncateText see that the content was longer than the preview.
func (r *Resolver) readLimit() int64 {
	if r.maxTextBytes <= 0 {
		return 0
	}
	return int64(r.maxTextBytes) + utf8.UTFMax
}

// Close dismisses the current preview. Content still being fetched for it
// is dropped when it arrives.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.current = nil
}

func (r *Resolver) Current() (*Plan, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.current != nil
}

func canFetch(content types.ContentProvider) bool {
	if content == nil {
		return false
	}
	if reporter, ok := content.(types.CapabilityReporter); ok {
		return reporter.Capabilities().CanFetch
	}
	return true
}

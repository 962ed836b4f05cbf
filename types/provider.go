package types

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fioncat/vbrowse/pathcodec"
)

type EntryKind string

const (
	KindFolder EntryKind = "folder"
	KindFile   EntryKind = "file"
)

func (k *EntryKind) UnmarshalJSON(data []byte) error {
	var s string
	err := json.Unmarshal(data, &s)
	if err != nil {
		return err
	}
	switch EntryKind(s) {
	case KindFolder, KindFile:
		*k = EntryKind(s)
		return nil
	}
	return fmt.Errorf("unknown entry kind %q", s)
}

// Entry is one item of a directory listing. Path is the absolute logical
// path and identifies the entry within its listing.
type Entry struct {
	Name string    `json:"name"`
	Kind EntryKind `json:"type"`

	Size     int64  `json:"size,omitempty"`
	SizeText string `json:"sizeText,omitempty"`

	ModifiedAt string `json:"modified,omitempty"`

	Path string `json:"path"`
}

func (e *Entry) IsFolder() bool {
	return e.Kind == KindFolder
}

// DisplaySize returns the provider's pre-formatted size when present,
// otherwise the humanized byte count. Folders always display "-".
func (e *Entry) DisplaySize() string {
	if e.IsFolder() {
		return "-"
	}
	if e.SizeText != "" {
		return e.SizeText
	}
	return humanize.IBytes(uint64(e.Size))
}

type DirectoryProvider interface {
	List(ctx context.Context, path string) ([]*Entry, error)
}

// ContentProvider fetches raw bytes for an access URL built by the path
// codec. Callers try each candidate URL in order.
type ContentProvider interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// CandidateFetcher is implemented by content providers that fetch a
// candidate knowing which logical path and form it stands for. Callers
// prefer it over Fetch when available.
type CandidateFetcher interface {
	FetchCandidate(ctx context.Context, c pathcodec.Candidate) ([]byte, error)
}

type readLimitKey struct{}

// WithReadLimit bounds the number of bytes providers read for one file or
// fetch made with the returned context.
func WithReadLimit(ctx context.Context, n int64) context.Context {
	return context.WithValue(ctx, readLimitKey{}, n)
}

// ReadLimit returns the limit set by WithReadLimit, 0 means unbounded.
func ReadLimit(ctx context.Context) int64 {
	n, _ := ctx.Value(readLimitKey{}).(int64)
	return n
}

// Backend is a full source: it lists folders and reads files by logical
// path.
type Backend interface {
	DirectoryProvider
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// Invalidator is implemented by providers holding cached listings.
type Invalidator interface {
	Invalidate(path string) error
}

type Capabilities struct {
	CanFetch bool
}

// CapabilityReporter lets a content provider declare what the current
// environment supports. Providers that do not implement it are assumed to
// fetch.
type CapabilityReporter interface {
	Capabilities() Capabilities
}

package provider

import (
	"context"
	"fmt"

	"github.com/fioncat/vbrowse/pathcodec"
	"github.com/fioncat/vbrowse/types"
)

// BackendContent serves access URLs by reading their logical paths from a
// backend.
type BackendContent struct {
	backend types.Backend
	codec   *pathcodec.Codec
}

func NewBackendContent(backend types.Backend, codec *pathcodec.Codec) *BackendContent {
	return &BackendContent{backend: backend, codec: codec}
}

func (c *BackendContent) Fetch(ctx context.Context, url string) ([]byte, error) {
	logical, ok := c.codec.DecodeAccessURL(url)
	if !ok {
		return nil, fmt.Errorf("url %q is outside access root %q: %w", url, c.codec.Root(), types.ErrNotFound)
	}
	return c.backend.ReadFile(ctx, logical)
}

// FetchCandidate reads the logical path the candidate stands for, so every
// form of one path reads the same file.
func (c *BackendContent) FetchCandidate(ctx context.Context, candidate pathcodec.Candidate) ([]byte, error) {
	return c.backend.ReadFile(ctx, candidate.Path)
}

func (c *BackendContent) Capabilities() types.Capabilities {
	return types.Capabilities{CanFetch: true}
}

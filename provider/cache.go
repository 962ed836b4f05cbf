package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fioncat/vbrowse/pathcodec"
	"github.com/fioncat/vbrowse/storage"
	"github.com/fioncat/vbrowse/types"
	"github.com/sirupsen/logrus"
)

// ListingStore persists listings between runs.
type ListingStore interface {
	Get(source, path string) (*storage.CachedListing, error)
	Put(listing *storage.CachedListing) error
	Remove(source, path string) error
}

// Cached serves listings from a ListingStore while they are younger than
// ttl and falls back to the wrapped backend otherwise. File reads are never
// cached.
type Cached struct {
	backend types.Backend
	store   ListingStore

	source string
	ttl    time.Duration

	now func() time.Time

	logger *logrus.Entry
}

func NewCached(backend types.Backend, store ListingStore, source string, ttl time.Duration) *Cached {
	return &Cached{
		backend: backend,
		store:   store,
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		logger:  logrus.WithFields(logrus.Fields{"Component": "cache", "Source": source}),
	}
}

func (c *Cached) List(ctx context.Context, dir string) ([]*types.Entry, error) {
	dir = pathcodec.Normalize(dir)
	logger := c.logger.WithField("Path", dir)

	listing, err := c.store.Get(c.source, dir)
	switch {
	case err == nil && !listing.Expired(c.ttl, c.now()):
		logger.Debugf("Use cached listing, with %d entries", len(listing.Entries))
		return listing.Entries, nil
	case err == nil:
		logger.Debug("Cached listing expired")
	case !errors.Is(err, storage.ErrListingNotFound):
		logger.Warnf("Get cached listing error: %v", err)
	}

	start := time.Now()
	ents, err := c.backend.List(ctx, dir)
	if err != nil {
		return nil, err
	}
	logger.Debugf("List directory done, with %d entries, took %v", len(ents), time.Since(start))

	err = c.store.Put(&storage.CachedListing{
		Source:   c.source,
		Path:     dir,
		Entries:  ents,
		CachedAt: c.now().Unix(),
	})
	if err != nil {
		logger.Warnf("Save listing to cache error: %v", err)
	}
	return ents, nil
}

func (c *Cached) ReadFile(ctx context.Context, file string) ([]byte, error) {
	return c.backend.ReadFile(ctx, file)
}

// Invalidate drops the cached listing of dir so the next List goes to the
// backend.
func (c *Cached) Invalidate(dir string) error {
	err := c.store.Remove(c.source, pathcodec.Normalize(dir))
	if err != nil {
		return fmt.Errorf("invalidate cached listing: %w", err)
	}
	return nil
}

func (c *Cached) Check(ctx context.Context) error {
	if checker, ok := c.backend.(Checker); ok {
		return checker.Check(ctx)
	}
	return nil
}

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fioncat/vbrowse/types"
	bolt "go.etcd.io/bbolt"
)

var ErrListingNotFound = errors.New("could not find the cached listing")

const boltListingBucketName = "listing"

// CachedListing is a directory listing saved for one source.
type CachedListing struct {
	Source string `json:"source"`
	Path   string `json:"path"`

	Entries []*types.Entry `json:"entries"`

	CachedAt int64 `json:"cached_at"`
}

func (l *CachedListing) Expired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return true
	}
	return now.Sub(time.Unix(l.CachedAt, 0)) >= ttl
}

func (l *CachedListing) Validate() error {
	switch {
	case l.Source == "":
		return errors.New("source is empty")
	case l.Path == "":
		return errors.New("path is empty")
	}
	for _, ent := range l.Entries {
		if ent == nil || ent.Name == "" || ent.Path == "" {
			return errors.New("listing contains an entry without name or path")
		}
	}
	return nil
}

type BoltListingCache struct {
	db *bolt.DB

	bucket []byte
}

// OpenBolt opens the listing cache at "<BaseDir>/cache.db".
func OpenBolt(cfg *types.Config) (*BoltListingCache, error) {
	path := filepath.Join(cfg.BaseDir, "cache.db")
	db, err := bolt.Open(path, 0644, &bolt.Options{
		Timeout: cfg.OpenBoltTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open boltdb: %w", err)
	}

	bucket := []byte(boltListingBucketName)
	err = ensureBoltBucket(db, bucket)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltListingCache{
		db:     db,
		bucket: bucket,
	}, nil
}

func ensureBoltBucket(db *bolt.DB, bucket []byte) error {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		return fmt.Errorf("ensure bolt bucket %q: %v", string(bucket), err)
	}
	return nil
}

func listingKey(source, path string) []byte {
	return []byte(source + "\x00" + path)
}

func (b *BoltListingCache) Put(listing *CachedListing) error {
	err := listing.Validate()
	if err != nil {
		return fmt.Errorf("validate listing: %w", err)
	}

	key := listingKey(listing.Source, listing.Path)
	data, err := json.Marshal(listing)
	if err != nil {
		return fmt.Errorf("encode listing to json: %w", err)
	}

	err = b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		return bucket.Put(key, data)
	})
	if err != nil {
		return fmt.Errorf("boltdb put: %w", err)
	}

	return nil
}

func (b *BoltListingCache) Get(source, path string) (*CachedListing, error) {
	key := listingKey(source, path)

	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		// The value is only valid inside the transaction
		data = append([]byte(nil), bucket.Get(key)...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("boltdb get: %w", err)
	}

	if len(data) == 0 {
		return nil, ErrListingNotFound
	}

	return b.decodeData(data)
}

func (b *BoltListingCache) List() ([]*CachedListing, error) {
	var listings []*CachedListing
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		cursor := bucket.Cursor()
		for key, data := cursor.First(); key != nil; key, data = cursor.Next() {
			listing, err := b.decodeData(data)
			if err != nil {
				return fmt.Errorf("decode listing %q: %w", string(key), err)
			}
			listings = append(listings, listing)
		}
		return nil
	})
	return listings, err
}

func (b *BoltListingCache) Remove(source, path string) error {
	key := listingKey(source, path)
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		return bucket.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("delete boltdb: %w", err)
	}

	return nil
}

// Clear removes every cached listing and returns how many were removed.
func (b *BoltListingCache) Clear() (int, error) {
	var count int
	err := b.db.Update(func(tx *bolt.Tx) error {
		count = tx.Bucket(b.bucket).Stats().KeyN
		err := tx.DeleteBucket(b.bucket)
		if err != nil {
			return err
		}
		_, err = tx.CreateBucket(b.bucket)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("clear boltdb: %w", err)
	}
	return count, nil
}

func (b *BoltListingCache) Close() error {
	return b.db.Close()
}

func (b *BoltListingCache) decodeData(data []byte) (*CachedListing, error) {
	var listing CachedListing
	err := json.Unmarshal(data, &listing)
	if err != nil {
		return nil, fmt.Errorf("decode listing json in cache: %w", err)
	}

	err = listing.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate listing in cache: %w", err)
	}

	return &listing, nil
}
